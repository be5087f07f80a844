// README: Orientation event sources. Broadcaster is fed by connected clients.
package heading

import (
	"context"
	"sync"
)

// Source delivers orientation events until the returned stop func is called.
type Source interface {
	Listen(fn func(OrientationEvent)) (stop func(), err error)
}

// PermissionRequester is implemented by sources that need an explicit motion
// permission before delivering events.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// Broadcaster is an in-process Source. Publish fans an event out to every
// active listener on the caller's goroutine.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(OrientationEvent)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]func(OrientationEvent))}
}

func (b *Broadcaster) Listen(fn func(OrientationEvent)) (func(), error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}, nil
}

// Publish delivers ev to the current listeners.
func (b *Broadcaster) Publish(ev OrientationEvent) {
	b.mu.Lock()
	fns := make([]func(OrientationEvent), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners reports how many listeners are attached.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
