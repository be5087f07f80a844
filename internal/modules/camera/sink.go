package camera

import "sync"

// AngleSink tracks the attached stream and the indicator rotation without
// rendering frames.
type AngleSink struct {
	mu      sync.Mutex
	stream  Stream
	angle   float64
	visible bool
}

func NewAngleSink() *AngleSink { return &AngleSink{} }

func (s *AngleSink) Attach(st Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = st
}

// Detach drops the stream and hides the indicator.
func (s *AngleSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
	s.visible = false
}

func (s *AngleSink) SetAngle(deg float64, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.angle, s.visible = deg, visible
}

// Angle returns the indicator rotation and whether it is shown.
func (s *AngleSink) Angle() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle, s.visible
}

func (s *AngleSink) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}
