package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"qibla/internal/types"
)

func TestCachedGeocoder_NilRedisPassesThrough(t *testing.T) {
	next := &stubGeocoder{place: Place{Name: "Rome", Source: SourceGoogle}}
	c := NewCachedGeocoder(next, nil, time.Minute)

	for i := 0; i < 2; i++ {
		p, err := c.Geocode(context.Background(), "Rome")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Source != SourceGoogle {
			t.Errorf("source = %q, want google", p.Source)
		}
	}
	if next.calls != 2 {
		t.Errorf("expected 2 upstream calls without cache, got %d", next.calls)
	}
}

func TestGeocodeKey_Normalized(t *testing.T) {
	if geocodeKey("  New York ") != geocodeKey("new york") {
		t.Errorf("cache key not normalized: %q vs %q", geocodeKey("  New York "), geocodeKey("new york"))
	}
}

func TestCachedGeocoder_Redis(t *testing.T) {
	redisAddr := os.Getenv("QIBLA_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("QIBLA_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	query := fmt.Sprintf("cache_test_%d", time.Now().UnixNano())
	defer rdb.Del(ctx, geocodeKey(query))

	next := &stubGeocoder{place: Place{Name: "Somewhere", Point: types.Point{Lat: 1, Lng: 2}, Source: SourceOpenCage}}
	c := NewCachedGeocoder(next, rdb, time.Minute)

	first, err := c.Geocode(ctx, query)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	if first.Source != SourceOpenCage {
		t.Errorf("first source = %q, want opencage", first.Source)
	}

	second, err := c.Geocode(ctx, query)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if second.Source != SourceCache || second.Point != first.Point {
		t.Errorf("second lookup not served from cache: %+v", second)
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}

	// Misses are not cached.
	miss := &stubGeocoder{err: ErrNoMatch}
	missQuery := query + "_miss"
	mc := NewCachedGeocoder(miss, rdb, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := mc.Geocode(ctx, missQuery); !errors.Is(err, ErrNoMatch) {
			t.Fatalf("expected ErrNoMatch, got %v", err)
		}
	}
	if miss.calls != 2 {
		t.Errorf("misses should not be cached, upstream calls = %d", miss.calls)
	}
}

func TestGazetteer_Postgres(t *testing.T) {
	dsn := os.Getenv("QIBLA_TEST_DSN")
	if dsn == "" {
		t.Skip("QIBLA_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migration, err := os.ReadFile("../../../migrations/0001_places.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, stmt := range strings.Split(string(migration), ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}

	g := NewGazetteer(db)
	name := fmt.Sprintf("Testville %d", time.Now().UnixNano())
	t.Cleanup(func() { _, _ = db.Exec(ctx, "DELETE FROM places WHERE lower(name) = lower($1)", name) })

	if err := g.Upsert(ctx, Place{Name: name, Point: types.Point{Lat: 10, Lng: 20}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := g.Geocode(ctx, " "+name+" ")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if got.Name != name || got.Point != (types.Point{Lat: 10, Lng: 20}) || got.Source != SourceGazetteer {
		t.Errorf("unexpected place %+v", got)
	}

	if _, err := g.Geocode(ctx, name+" nowhere"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch, got %v", err)
	}

	// a differently cased name updates the same row
	lower := strings.ToLower(name)
	if err := g.Upsert(ctx, Place{Name: lower, Point: types.Point{Lat: 11, Lng: 21}}); err != nil {
		t.Fatalf("upsert case variant: %v", err)
	}
	var rows int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM places WHERE lower(name) = lower($1)", name).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected 1 row, got %d", rows)
	}
	got, err = g.Geocode(ctx, name)
	if err != nil {
		t.Fatalf("geocode after update: %v", err)
	}
	if got.Name != lower || got.Point != (types.Point{Lat: 11, Lng: 21}) {
		t.Errorf("unexpected place after update %+v", got)
	}
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
