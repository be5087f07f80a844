// README: Location service acquires a single device fix per request with a bounded wait.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	qlog "qibla/internal/log"
	"qibla/internal/types"
)

const defaultLocateTimeout = 10 * time.Second

// Locator produces the current position of the device.
type Locator interface {
	CurrentLocation(ctx context.Context) (types.Point, error)
}

// Func adapts a function to the Locator interface.
type Func func(ctx context.Context) (types.Point, error)

func (f Func) CurrentLocation(ctx context.Context) (types.Point, error) {
	return f(ctx)
}

// Static reports a configured position, e.g. a kiosk installed in a mosque.
type Static struct {
	Point types.Point
}

func (s Static) CurrentLocation(context.Context) (types.Point, error) {
	return s.Point, nil
}

// Fixed is a position reported by the client itself.
type Fixed types.Point

func (f Fixed) CurrentLocation(context.Context) (types.Point, error) {
	return types.Point(f), nil
}

type Service struct {
	locator Locator
	timeout time.Duration
	log     *slog.Logger
}

// NewService wraps locator with a bounded wait. A nil locator means the
// platform has no location capability.
func NewService(locator Locator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultLocateTimeout
	}
	return &Service{locator: locator, timeout: timeout, log: qlog.With("component", "location")}
}

// RequestCurrentLocation asks the configured locator for one fix.
func (s *Service) RequestCurrentLocation(ctx context.Context) (types.Point, error) {
	return s.RequestFrom(ctx, s.locator)
}

// RequestFrom asks locator for one fix, failing closed after the configured
// timeout even if the locator ignores ctx.
func (s *Service) RequestFrom(ctx context.Context, locator Locator) (types.Point, error) {
	if locator == nil {
		return types.Point{}, ErrLocationUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type fix struct {
		p   types.Point
		err error
	}
	done := make(chan fix, 1)
	go func() {
		p, err := locator.CurrentLocation(ctx)
		done <- fix{p: p, err: err}
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("location request timed out", "timeout", s.timeout)
		return types.Point{}, fmt.Errorf("%w: %v", ErrLocationDenied, ctx.Err())
	case f := <-done:
		if errors.Is(f.err, ErrLocationUnsupported) {
			return types.Point{}, f.err
		}
		if f.err != nil {
			s.log.Warn("location request failed", "error", f.err)
			return types.Point{}, fmt.Errorf("%w: %w", ErrLocationDenied, f.err)
		}
		if !f.p.Valid() {
			return types.Point{}, fmt.Errorf("%w: invalid fix %v", ErrLocationDenied, f.p)
		}
		return f.p, nil
	}
}
