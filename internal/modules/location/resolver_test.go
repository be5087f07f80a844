package location

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"qibla/internal/types"
)

type stubGeocoder struct {
	place Place
	err   error
	calls int
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (Place, error) {
	s.calls++
	return s.place, s.err
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) ObserveResolution(source, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, source+":"+outcome)
}

func TestResolveCity_GeocoderMatch(t *testing.T) {
	want := Place{Name: "Leeds, United Kingdom", Point: types.Point{Lat: 53.8, Lng: -1.55}, Source: SourceOpenCage}
	obs := &recordingObserver{}
	r := NewResolver(&stubGeocoder{place: want}, obs)

	got, err := r.ResolveCity(context.Background(), "  Leeds ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(obs.events) != 1 || obs.events[0] != "opencage:matched" {
		t.Errorf("unexpected observations: %v", obs.events)
	}
}

func TestResolveCity_NoMatchIsAuthoritative(t *testing.T) {
	obs := &recordingObserver{}
	r := NewResolver(&stubGeocoder{err: ErrNoMatch}, obs)

	// London is in the built-in table but the geocoder answered.
	_, err := r.ResolveCity(context.Background(), "london")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected not-found cause to be ErrNoMatch, got %v", err)
	}
	if obs.events[0] != "geocoder:not_found" {
		t.Errorf("unexpected observations: %v", obs.events)
	}
}

func TestResolveCity_UnavailableFallsBackToTable(t *testing.T) {
	obs := &recordingObserver{}
	r := NewResolver(&stubGeocoder{err: errors.New("opencage: status 503")}, obs)

	got, err := r.ResolveCity(context.Background(), "NEW YORK")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "New York" || got.Source != SourceBuiltin {
		t.Errorf("got %+v, want built-in New York", got)
	}
	if got.Point != (types.Point{Lat: 40.7128, Lng: -74.0060}) {
		t.Errorf("unexpected point %v", got.Point)
	}
	want := []string{"geocoder:unavailable", "builtin:matched"}
	if strings.Join(obs.events, ",") != strings.Join(want, ",") {
		t.Errorf("observations = %v, want %v", obs.events, want)
	}
}

func TestResolveCity_UnavailableAndUnknown(t *testing.T) {
	unreachable := errors.New("dial tcp: connection refused")
	r := NewResolver(&stubGeocoder{err: unreachable}, nil)

	_, err := r.ResolveCity(context.Background(), "Atlantis")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if errors.Is(err, ErrNoMatch) {
		t.Fatalf("unavailable geocoder must not be reported as no-match: %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in error, got %v", err)
	}
}

func TestResolveCity_NoGeocoder(t *testing.T) {
	r := NewResolver(nil, nil)
	got, err := r.ResolveCity(context.Background(), "makkah")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Makkah" {
		t.Errorf("got %q, want Makkah", got.Name)
	}
}

func TestResolveCity_Empty(t *testing.T) {
	g := &stubGeocoder{}
	r := NewResolver(g, nil)
	_, err := r.ResolveCity(context.Background(), "   ")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if g.calls != 0 {
		t.Errorf("geocoder called for empty query")
	}
}

func TestResolveCity_ExactMatchOnly(t *testing.T) {
	r := NewResolver(nil, nil)
	if _, err := r.ResolveCity(context.Background(), "Lond"); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected partial name to miss, got %v", err)
	}
}

func TestKnownCities(t *testing.T) {
	names := KnownCities()
	if len(names) != 10 || names[0] != "London" || names[9] != "Madinah" {
		t.Errorf("unexpected known cities: %v", names)
	}
}

func TestChain(t *testing.T) {
	match := Place{Name: "Cairo", Source: SourceGazetteer}
	down := errors.New("timeout")

	tests := []struct {
		name      string
		chain     Chain
		wantPlace Place
		wantErr   error
	}{
		{"first match wins", Chain{&stubGeocoder{err: ErrNoMatch}, &stubGeocoder{place: match}}, match, nil},
		{"all no match", Chain{&stubGeocoder{err: ErrNoMatch}, &stubGeocoder{err: ErrNoMatch}}, Place{}, ErrNoMatch},
		{"unavailable reported over no match", Chain{&stubGeocoder{err: down}, &stubGeocoder{err: ErrNoMatch}}, Place{}, down},
		{"unavailable then match", Chain{&stubGeocoder{err: down}, &stubGeocoder{place: match}}, match, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.chain.Geocode(context.Background(), "cairo")
			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.wantPlace {
				t.Errorf("place = %+v, want %+v", got, tt.wantPlace)
			}
		})
	}

	if _, err := (Chain{}).Geocode(context.Background(), "x"); err == nil || errors.Is(err, ErrNoMatch) {
		t.Errorf("empty chain should be unavailable, got %v", err)
	}
}
