//go:build !gocv

package camera

// NewCaptureDevice reports no capture capability in builds without OpenCV.
func NewCaptureDevice(int) Device { return nil }

func NewPlatformSink() Sink { return NewAngleSink() }
