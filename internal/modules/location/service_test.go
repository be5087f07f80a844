package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"qibla/internal/types"
)

func TestRequestCurrentLocation_Unsupported(t *testing.T) {
	svc := NewService(nil, time.Second)
	_, err := svc.RequestCurrentLocation(context.Background())
	if !errors.Is(err, ErrLocationUnsupported) {
		t.Fatalf("expected ErrLocationUnsupported, got %v", err)
	}
}

func TestRequestCurrentLocation_Static(t *testing.T) {
	london := types.Point{Lat: 51.5074, Lng: -0.1278}
	svc := NewService(Static{Point: london}, time.Second)
	got, err := svc.RequestCurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != london {
		t.Errorf("got %v, want %v", got, london)
	}
}

func TestRequestFrom_LocatorError(t *testing.T) {
	denied := errors.New("user denied geolocation")
	svc := NewService(nil, time.Second)
	_, err := svc.RequestFrom(context.Background(), Func(func(context.Context) (types.Point, error) {
		return types.Point{}, denied
	}))
	if !errors.Is(err, ErrLocationDenied) {
		t.Fatalf("expected ErrLocationDenied, got %v", err)
	}
	if !errors.Is(err, denied) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestRequestFrom_LocatorReportsUnsupported(t *testing.T) {
	svc := NewService(nil, time.Second)
	_, err := svc.RequestFrom(context.Background(), Func(func(context.Context) (types.Point, error) {
		return types.Point{}, ErrLocationUnsupported
	}))
	if !errors.Is(err, ErrLocationUnsupported) || errors.Is(err, ErrLocationDenied) {
		t.Fatalf("expected bare ErrLocationUnsupported, got %v", err)
	}
}

func TestRequestFrom_TimeoutFailsClosed(t *testing.T) {
	svc := NewService(nil, 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := svc.RequestFrom(context.Background(), Func(func(context.Context) (types.Point, error) {
		// Ignores ctx on purpose.
		<-release
		return types.Point{Lat: 1, Lng: 1}, nil
	}))
	if !errors.Is(err, ErrLocationDenied) {
		t.Fatalf("expected ErrLocationDenied after timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout not enforced, waited %v", elapsed)
	}
}

func TestRequestFrom_InvalidFix(t *testing.T) {
	svc := NewService(nil, time.Second)
	_, err := svc.RequestFrom(context.Background(), Fixed{Lat: 91, Lng: 0})
	if !errors.Is(err, ErrLocationDenied) {
		t.Fatalf("expected ErrLocationDenied for out-of-range fix, got %v", err)
	}
}
