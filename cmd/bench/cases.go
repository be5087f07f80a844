// README: Bench cases: backing stores, stateless lookups, session flow, concurrency and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"

	benchCity = "Qibla Bench Town"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Gazetteer: seeded place resolves",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				_, err := r.db.Exec(ctx,
					`INSERT INTO places (name, lat, lng) VALUES ($1, $2, $3)
					 ON CONFLICT ((lower(name))) DO UPDATE SET lat = EXCLUDED.lat, lng = EXCLUDED.lng`,
					benchCity, 33.6844, 73.0479)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if r.redis != nil {
					_ = r.redis.Del(ctx, "qibla:geocode:"+strings.ToLower(benchCity)).Err()
				}
				status, body, latency, err := r.do(ctx, http.MethodGet, base+"/api/qibla/city?q="+url.QueryEscape(benchCity), nil)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: statusPass, Latency: latency, Note: "source=" + fmt.Sprint(body["source"])}
			},
		},
		{
			Name: "Cache: second lookup served from redis",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				q := base + "/api/qibla/city?q=" + url.QueryEscape("Makkah")
				if _, _, _, err := r.do(ctx, http.MethodGet, q, nil); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				_, body, latency, err := r.do(ctx, http.MethodGet, q, nil)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				// built-in fallbacks are never cached
				if src := fmt.Sprint(body["source"]); src != "cache" && src != "builtin" {
					return Result{Status: statusFail, Latency: latency, Note: "source=" + src}
				}
				return Result{Status: statusPass, Latency: latency, Note: "source=" + fmt.Sprint(body["source"])}
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", nil, http.StatusOK),
		httpCase("Qibla: London by coordinate", http.MethodGet, base+"/api/qibla?lat=51.5074&lng=-0.1278", nil, http.StatusOK),
		httpCase("Qibla: invalid coordinate -> 400", http.MethodGet, base+"/api/qibla?lat=123&lng=456", nil, http.StatusBadRequest),
		httpCase("Qibla: city London", http.MethodGet, base+"/api/qibla/city?q=London", nil, http.StatusOK),
		httpCase("Qibla: unknown city -> 404", http.MethodGet, base+"/api/qibla/city?q=Atlantis", nil, http.StatusNotFound),
		httpCase("Session: unknown id -> 404", http.MethodGet, base+"/api/sessions/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound),
		{
			Name: "Session: locate, city, camera, teardown",
			Run: func(ctx context.Context, r *Runner) Result {
				return sessionFlow(ctx, r, base)
			},
		},
		{
			Name: "Metrics: computations exported",
			Run: func(ctx context.Context, r *Runner) Result {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/metrics", nil)
				resp, err := r.httpc.Do(req)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				defer resp.Body.Close()
				b, _ := io.ReadAll(resp.Body)
				if resp.StatusCode == http.StatusNotFound {
					return Result{Status: statusSkip, Note: "metrics disabled"}
				}
				if !strings.Contains(string(b), "qibla_computations_total") {
					return Result{Status: statusFail, Note: "qibla_computations_total missing"}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Concurrency: session ids unique",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentSessions(ctx, r, base)
			},
		},
		{
			Name: "Perf: coordinate lookup throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/qibla?lat=24.8607&lng=67.0011", nil)
			},
		},
		{
			Name: "Perf: city lookup throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/qibla/city?q=Istanbul", nil)
			},
		},
	}
}

func (r *Runner) newRequest(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", r.cfg.APIKey)
	}
	return req, nil
}

// do sends one request and decodes a JSON object body when present.
func (r *Runner) do(ctx context.Context, method, target string, body any) (int, map[string]any, time.Duration, error) {
	req, err := r.newRequest(ctx, method, target, body)
	if err != nil {
		return 0, nil, 0, err
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out, latency, nil
}

func httpCase(name, method, target string, body any, okStatuses ...int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, _, latency, err := r.do(ctx, method, target, body)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if contains(okStatuses, status) {
				return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func sessionFlow(ctx context.Context, r *Runner, base string) Result {
	start := time.Now()
	status, body, _, err := r.do(ctx, http.MethodPost, base+"/api/sessions", nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("create status=%d", status)}
	}
	id := fmt.Sprint(body["id"])
	session := base + "/api/sessions/" + id
	defer func() { _, _, _, _ = r.do(context.Background(), http.MethodDelete, session, nil) }()

	steps := []struct {
		name   string
		method string
		path   string
		body   any
		ok     []int
	}{
		{"locate (client fix)", http.MethodPost, "/locate", map[string]float64{"lat": 40.7128, "lng": -74.0060}, []int{http.StatusOK}},
		{"city", http.MethodPost, "/city", map[string]string{"name": "Cairo"}, []int{http.StatusOK}},
		{"camera start", http.MethodPost, "/camera/start", nil, []int{http.StatusOK, http.StatusConflict}},
		{"camera stop", http.MethodPost, "/camera/stop", nil, []int{http.StatusOK}},
		{"view", http.MethodGet, "", nil, []int{http.StatusOK}},
	}
	for _, s := range steps {
		status, body, _, err := r.do(ctx, s.method, session+s.path, s.body)
		if err != nil {
			return Result{Status: statusFail, Note: s.name + ": " + err.Error()}
		}
		if !contains(s.ok, status) {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s status=%d body=%v", s.name, status, body)}
		}
	}

	status, _, _, err = r.do(ctx, http.MethodDelete, session, nil)
	if err != nil || status != http.StatusNoContent {
		return Result{Status: statusFail, Note: fmt.Sprintf("delete status=%d err=%v", status, err)}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

func concurrentSessions(ctx context.Context, r *Runner, base string) Result {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = map[string]bool{}
		errs int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, body, _, err := r.do(ctx, http.MethodPost, base+"/api/sessions", nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || status != http.StatusCreated {
				errs++
				return
			}
			ids[fmt.Sprint(body["id"])] = true
		}()
	}
	wg.Wait()

	for id := range ids {
		_, _, _, _ = r.do(ctx, http.MethodDelete, base+"/api/sessions/"+id, nil)
	}
	if errs > 0 || len(ids) != r.cfg.Concurrency {
		return Result{Status: statusFail, Note: fmt.Sprintf("unique=%d errors=%d", len(ids), errs)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("unique=%d", len(ids))}
}

func perfLoad(ctx context.Context, r *Runner, method, target string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, err := r.newRequest(ctx, method, target, payload)
				if err != nil {
					return
				}
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil {
					errCount++
					mu.Unlock()
					continue
				}
				count++
				mu.Unlock()
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
