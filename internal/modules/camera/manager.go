// README: Camera manager owns at most one capture session at a time, shared by every client session.
package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	qlog "qibla/internal/log"
)

// Observer is notified when sessions start and stop.
type Observer interface {
	CameraStarted()
	CameraStopped()
}

// Session is an active capture stream attached to the sink. Owner is the
// client session holding the device.
type Session struct {
	ID        string
	Owner     string
	Stream    Stream
	StartedAt time.Time
}

// Manager holds the current camera session and guards the device.
type Manager struct {
	mu       sync.Mutex
	device   Device
	sink     Sink
	observer Observer
	session  *Session
	log      *slog.Logger

	// owner mirrors session.Owner so overlay updates never wait on a
	// device open holding mu.
	ownerMu sync.Mutex
	owner   string
	owned   bool
}

// NewManager creates a manager. A nil device means the platform has no
// capture capability; a nil sink discards the stream.
func NewManager(device Device, sink Sink, observer Observer) *Manager {
	return &Manager{
		device:   device,
		sink:     sink,
		observer: observer,
		log:      qlog.With("component", "camera"),
	}
}

// Start opens a rear-facing video stream for the anonymous owner.
func (m *Manager) Start(ctx context.Context) error {
	_, err := m.StartFor(ctx, "")
	return err
}

// StartFor opens a rear-facing video stream on behalf of owner and returns
// the new session id. A session already held by owner is replaced; one held
// by anybody else fails with ErrCameraBusy.
func (m *Manager) StartFor(ctx context.Context, owner string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return "", ErrCameraUnsupported
	}
	if m.session != nil && m.session.Owner != owner {
		m.log.Info("camera busy", "owner", m.session.Owner, "requested_by", owner)
		return "", ErrCameraBusy
	}
	m.stopLocked()

	stream, err := m.device.Open(ctx, RearVideo())
	if err != nil {
		m.log.Warn("camera open failed", "owner", owner, "error", err)
		return "", fmt.Errorf("%w: %w", ErrCameraPermission, err)
	}

	m.session = &Session{ID: uuid.NewString(), Owner: owner, Stream: stream, StartedAt: time.Now()}
	m.setOwner(owner, true)
	if m.sink != nil {
		m.sink.Attach(stream)
	}
	if m.observer != nil {
		m.observer.CameraStarted()
	}
	m.log.Info("camera session started", "session", m.session.ID, "owner", owner, "tracks", len(stream.Tracks()))
	return m.session.ID, nil
}

// Stop releases every track of the active stream whoever holds it. Safe to
// call when no session is active.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// StopFor releases the active stream only when owner holds it.
func (m *Manager) StopFor(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.Owner == owner {
		m.stopLocked()
	}
}

// StopSession releases the active stream only when it is the session with
// the given id. A replaced or already stopped session is a no-op.
func (m *Manager) StopSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.ID == id {
		m.stopLocked()
	}
}

func (m *Manager) stopLocked() {
	if m.session == nil {
		return
	}
	if m.sink != nil {
		m.sink.Detach()
	}
	for _, t := range m.session.Stream.Tracks() {
		t.Stop()
	}
	m.log.Info("camera session stopped", "session", m.session.ID, "owner", m.session.Owner, "duration", time.Since(m.session.StartedAt))
	m.session = nil
	m.setOwner("", false)
	if m.observer != nil {
		m.observer.CameraStopped()
	}
}

func (m *Manager) setOwner(owner string, owned bool) {
	m.ownerMu.Lock()
	m.owner, m.owned = owner, owned
	m.ownerMu.Unlock()
}

func (m *Manager) holds(owner string) bool {
	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()
	return m.owned && m.owner == owner
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()
	return m.owned
}

// ActiveFor reports whether owner holds the running session.
func (m *Manager) ActiveFor(owner string) bool { return m.holds(owner) }

// Session returns the active session or nil.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// SetOverlay forwards the indicator rotation to the sink when it draws one.
func (m *Manager) SetOverlay(deg float64, visible bool) {
	if o, ok := m.sink.(Overlay); ok {
		o.SetAngle(deg, visible)
	}
}

// SetOverlayFor is SetOverlay restricted to the owner of the running
// session, so an idle session cannot rotate another session's indicator.
func (m *Manager) SetOverlayFor(owner string, deg float64, visible bool) {
	if !m.holds(owner) {
		return
	}
	m.SetOverlay(deg, visible)
}

// Frame returns the latest rendered frame when the sink keeps one.
func (m *Manager) Frame() ([]byte, bool) {
	if fs, ok := m.sink.(FrameSource); ok {
		return fs.Frame()
	}
	return nil, false
}

// FrameFor returns the latest frame only to the owner of the running session.
func (m *Manager) FrameFor(owner string) ([]byte, bool) {
	if !m.holds(owner) {
		return nil, false
	}
	return m.Frame()
}
