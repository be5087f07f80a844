// README: Heading tracker turns raw orientation events into normalized samples for one subscriber.
package heading

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Tracker struct {
	source Source
	now    func() time.Time
}

// NewTracker builds a tracker over source. A nil source means the platform
// has no orientation sensor.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source, now: time.Now}
}

// Subscription is a live heading stream. Cancel must be called on teardown.
type Subscription struct {
	mu     sync.Mutex
	stop   func()
	active bool
	latest *Sample
}

// Subscribe requests sensor permission when the source needs it, then starts
// delivering normalized samples to fn. Events without a usable heading are
// dropped.
func (t *Tracker) Subscribe(ctx context.Context, fn func(Sample)) (*Subscription, error) {
	if t.source == nil {
		return nil, ErrSensorUnsupported
	}
	if pr, ok := t.source.(PermissionRequester); ok {
		if err := pr.RequestPermission(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSensorPermissionDenied, err)
		}
	}

	sub := &Subscription{active: true}
	stop, err := t.source.Listen(func(ev OrientationEvent) {
		r, ok := Classify(ev)
		if !ok {
			return
		}
		s := Sample{CompassDegrees: Normalize(r), At: t.now()}
		if !sub.record(s) {
			return
		}
		fn(s)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSensorPermissionDenied, err)
	}

	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()
	return sub, nil
}

func (s *Subscription) record(sample Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.latest = &sample
	return true
}

// Cancel stops further samples. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.active = false
	s.latest = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Active reports whether the subscription still delivers samples.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Latest returns the most recent sample, if any.
func (s *Subscription) Latest() (Sample, bool) {
	if s == nil {
		return Sample{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Sample{}, false
	}
	return *s.latest, true
}
