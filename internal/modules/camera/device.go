// README: Camera capture abstractions: devices, streams, tracks and the sinks they attach to.
package camera

import (
	"context"
	"errors"
)

var (
	ErrCameraUnsupported = errors.New("camera capture is not supported on this platform")
	ErrCameraPermission  = errors.New("camera permission denied or hardware unavailable")
	ErrCameraBusy        = errors.New("camera is in use by another session")
)

type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Constraints select the capture stream to open.
type Constraints struct {
	Facing Facing
	Video  bool
	Audio  bool
}

// RearVideo is a rear-facing, video-only capture.
func RearVideo() Constraints {
	return Constraints{Facing: FacingEnvironment, Video: true}
}

// Track is one media track of a stream. Stop releases the underlying hardware.
type Track interface {
	Kind() string
	Stop()
	Live() bool
}

type Stream interface {
	Tracks() []Track
}

// Device opens capture streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Sink displays an attached stream.
type Sink interface {
	Attach(s Stream)
	Detach()
}

// Overlay is implemented by sinks that draw the direction indicator.
type Overlay interface {
	SetAngle(deg float64, visible bool)
}

// FrameSource is implemented by sinks that keep the latest rendered frame.
type FrameSource interface {
	Frame() ([]byte, bool)
}
