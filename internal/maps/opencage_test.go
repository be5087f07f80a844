package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qibla/internal/modules/location"
)

func newOpenCageServer(t *testing.T, status int, body string) (*httptest.Server, <-chan string) {
	t.Helper()
	queries := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query().Get("q")
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in request: %s", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, queries
}

func TestOpenCage_Match(t *testing.T) {
	srv, gotQuery := newOpenCageServer(t, http.StatusOK, `{
		"results": [{"formatted": "Cairo, Egypt", "geometry": {"lat": 30.0444, "lng": 31.2357}}],
		"status": {"code": 200, "message": "OK"}
	}`)
	c := NewOpenCageClient(srv.URL, "test-key", time.Second)

	p, err := c.Geocode(context.Background(), "Cairo & Giza")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q := <-gotQuery; q != "Cairo & Giza" {
		t.Errorf("query not encoded correctly, server saw %q", q)
	}
	if p.Name != "Cairo, Egypt" || p.Point.Lat != 30.0444 || p.Point.Lng != 31.2357 {
		t.Errorf("unexpected place %+v", p)
	}
	if p.Source != location.SourceOpenCage {
		t.Errorf("source = %q", p.Source)
	}
}

func TestOpenCage_EmptyResults(t *testing.T) {
	srv, _ := newOpenCageServer(t, http.StatusOK, `{"results": [], "status": {"code": 200, "message": "OK"}}`)
	c := NewOpenCageClient(srv.URL, "test-key", time.Second)

	_, err := c.Geocode(context.Background(), "Atlantis")
	if !errors.Is(err, location.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestOpenCage_Non200IsUnavailable(t *testing.T) {
	srv, _ := newOpenCageServer(t, http.StatusPaymentRequired, `{"status": {"code": 402, "message": "quota exceeded"}}`)
	c := NewOpenCageClient(srv.URL, "test-key", time.Second)

	_, err := c.Geocode(context.Background(), "London")
	if err == nil || errors.Is(err, location.ErrNoMatch) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestOpenCage_BadJSON(t *testing.T) {
	srv, _ := newOpenCageServer(t, http.StatusOK, `not json`)
	c := NewOpenCageClient(srv.URL, "test-key", time.Second)

	if _, err := c.Geocode(context.Background(), "London"); err == nil || errors.Is(err, location.ErrNoMatch) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestOpenCage_FallsBackThroughResolver(t *testing.T) {
	srv, _ := newOpenCageServer(t, http.StatusInternalServerError, `oops`)
	r := location.NewResolver(NewOpenCageClient(srv.URL, "test-key", time.Second), nil)

	p, err := r.ResolveCity(context.Background(), "Istanbul")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Source != location.SourceBuiltin || p.Name != "Istanbul" {
		t.Errorf("expected built-in fallback, got %+v", p)
	}
}
