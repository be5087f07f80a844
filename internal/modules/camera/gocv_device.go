//go:build gocv

// README: OpenCV-backed capture device and frame sink.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

type captureDevice struct {
	id int
}

// NewCaptureDevice returns a Device reading from the given OpenCV camera index.
func NewCaptureDevice(id int) Device {
	return &captureDevice{id: id}
}

func (d *captureDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if !c.Video {
		return nil, fmt.Errorf("video track required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return nil, fmt.Errorf("open capture %d: %w", d.id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture %d not opened", d.id)
	}
	return &captureStream{track: &videoTrack{vc: vc, live: true}}, nil
}

type captureStream struct {
	track *videoTrack
}

func (s *captureStream) Tracks() []Track { return []Track{s.track} }

type videoTrack struct {
	mu   sync.Mutex
	vc   *gocv.VideoCapture
	live bool
}

func (t *videoTrack) Kind() string { return "video" }

func (t *videoTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

func (t *videoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live {
		return
	}
	t.live = false
	t.vc.Close()
}

// read grabs one frame as JPEG. False once the track is stopped.
func (t *videoTrack) read(mat *gocv.Mat) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live || !t.vc.Read(mat) || mat.Empty() {
		return nil, false
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, false
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, true
}

// FrameSink pulls frames from the attached stream and keeps the latest JPEG.
// The indicator angle is exported next to the frame for the client to draw.
type FrameSink struct {
	*AngleSink
	interval time.Duration

	mu     sync.Mutex
	frame  []byte
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFrameSink(interval time.Duration) *FrameSink {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &FrameSink{AngleSink: NewAngleSink(), interval: interval}
}

func (s *FrameSink) Attach(st Stream) {
	s.Detach()
	var track *videoTrack
	for _, t := range st.Tracks() {
		if vt, ok := t.(*videoTrack); ok {
			track = vt
			break
		}
	}
	s.AngleSink.Attach(st)
	if track == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()
	go s.loop(ctx, track, done)
}

func (s *FrameSink) loop(ctx context.Context, track *videoTrack, done chan struct{}) {
	defer close(done)
	mat := gocv.NewMat()
	defer mat.Close()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jpeg, ok := track.read(&mat)
			if !ok {
				continue
			}
			s.mu.Lock()
			s.frame = jpeg
			s.mu.Unlock()
		}
	}
}

func (s *FrameSink) Detach() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.frame = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	s.AngleSink.Detach()
}

func (s *FrameSink) Frame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.frame != nil
}

// NewPlatformSink returns the sink used with NewCaptureDevice.
func NewPlatformSink() Sink { return NewFrameSink(0) }
