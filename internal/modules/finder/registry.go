package finder

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	qlog "qibla/internal/log"
)

// Factory builds the collaborators for a new session.
type Factory func(id string) Deps

// Registry keeps live finder sessions and expires idle ones.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Finder
	factory  Factory
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: map[string]*Finder{},
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create starts a new idle session.
func (r *Registry) Create() *Finder {
	id := uuid.NewString()
	var deps Deps
	if r.factory != nil {
		deps = r.factory(id)
	}
	f := New(id, deps)
	f.now = r.now
	f.touched = r.now()

	r.mu.Lock()
	r.sessions[id] = f
	r.mu.Unlock()
	return f
}

func (r *Registry) Get(id string) (*Finder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return f, nil
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	f, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	f.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var expired []*Finder

	r.mu.Lock()
	for id, f := range r.sessions {
		if f.idleSince().Before(cutoff) {
			expired = append(expired, f)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, f := range expired {
		f.Close()
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				qlog.Info("expired idle finder sessions", "count", n)
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Finder{}
	r.mu.Unlock()
	for _, f := range sessions {
		f.Close()
	}
}
