// README: Finder orchestrates location, city lookup, camera and heading for one client session.
package finder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	qlog "qibla/internal/log"
	"qibla/internal/modules/camera"
	"qibla/internal/modules/heading"
	"qibla/internal/modules/location"
	"qibla/internal/modules/qibla"
	"qibla/internal/types"
)

// Observer receives finder events for metrics.
type Observer interface {
	QiblaComputed(source string)
	HeadingSampled()
}

// Deps are the collaborators of one finder.
type Deps struct {
	Location *location.Service
	Resolver *location.Resolver
	// Camera is shared by every session; at most one holds the device.
	Camera *camera.Manager
	// Heading is the orientation source. Defaults to a Broadcaster fed by
	// Publish.
	Heading  heading.Source
	Observer Observer
}

type Finder struct {
	id       string
	location *location.Service
	resolver *location.Resolver
	camera   *camera.Manager
	source   heading.Source
	tracker  *heading.Tracker
	observer Observer
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	status  Status
	message string
	warning string
	place   *location.Place
	result  *qibla.Result
	heading *float64
	sub     *heading.Subscription
	seq     int
	// camGen changes on every camera start, stop and close; a start that
	// finds it changed after opening the device lost the race.
	camGen     int
	camSession string
	closed     bool
	touched    time.Time
	listeners  map[int]func(View)
	nextLis    int
}

func New(id string, deps Deps) *Finder {
	src := deps.Heading
	if src == nil {
		src = heading.NewBroadcaster()
	}
	loc := deps.Location
	if loc == nil {
		loc = location.NewService(nil, 0)
	}
	cam := deps.Camera
	if cam == nil {
		cam = camera.NewManager(nil, nil, nil)
	}
	return &Finder{
		id:        id,
		location:  loc,
		resolver:  deps.Resolver,
		camera:    cam,
		source:    src,
		tracker:   heading.NewTracker(src),
		observer:  deps.Observer,
		log:       qlog.With("component", "finder", "session", id),
		now:       time.Now,
		status:    StatusIdle,
		touched:   time.Now(),
		listeners: map[int]func(View){},
	}
}

func (f *Finder) ID() string { return f.id }

// Locate asks the configured locator for the device position.
func (f *Finder) Locate(ctx context.Context) (View, error) {
	return f.locate(ctx, location.SourceDevice, func(ctx context.Context) (types.Point, error) {
		return f.location.RequestCurrentLocation(ctx)
	})
}

// LocateFrom uses a locator supplied by the caller, e.g. a fix reported by
// the client.
func (f *Finder) LocateFrom(ctx context.Context, locator location.Locator) (View, error) {
	return f.locate(ctx, location.SourceClient, func(ctx context.Context) (types.Point, error) {
		return f.location.RequestFrom(ctx, locator)
	})
}

func (f *Finder) locate(ctx context.Context, source string, fix func(context.Context) (types.Point, error)) (View, error) {
	seq, err := f.beginLocating()
	if err != nil {
		return View{}, err
	}

	p, err := fix(ctx)
	if err != nil {
		msg := msgLocationDenied
		if errors.Is(err, location.ErrLocationUnsupported) {
			msg = msgLocationUnsupported
		}
		f.log.Info("location failed", "error", err)
		return f.fail(seq, msg, err)
	}
	return f.succeed(seq, location.Place{Point: p, Source: source})
}

// SearchCity resolves a free-text city name and computes the direction from it.
func (f *Finder) SearchCity(ctx context.Context, name string) (View, error) {
	seq, err := f.beginLocating()
	if err != nil {
		return View{}, err
	}
	if f.resolver == nil {
		return f.fail(seq, cityNotFoundMessage(), location.ErrCityNotFound)
	}

	place, err := f.resolver.ResolveCity(ctx, name)
	if err != nil {
		msg := cityNotFoundMessage()
		if !errors.Is(err, location.ErrCityNotFound) {
			msg = err.Error()
		}
		return f.fail(seq, msg, err)
	}
	return f.succeed(seq, place)
}

func (f *Finder) beginLocating() (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrClosed
	}
	f.seq++
	seq := f.seq
	f.touched = f.now()
	if f.status != StatusCameraActive {
		f.status = StatusLocating
		f.message = ""
	}
	view, ls := f.snapshotLocked()
	f.mu.Unlock()
	notify(ls, view)
	return seq, nil
}

func (f *Finder) fail(seq int, msg string, cause error) (View, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return View{}, ErrClosed
	}
	if seq == f.seq && f.status != StatusCameraActive {
		f.status = StatusLocationError
		f.message = msg
	}
	view, ls := f.snapshotLocked()
	f.mu.Unlock()
	notify(ls, view)
	return view, cause
}

func (f *Finder) succeed(seq int, place location.Place) (View, error) {
	res := qibla.Compute(place.Point)
	if f.observer != nil {
		f.observer.QiblaComputed(place.Source)
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return View{}, ErrClosed
	}
	if seq == f.seq {
		f.place = &place
		f.result = &res
		f.message = ""
		if f.status != StatusCameraActive {
			f.status = StatusReady
		}
		f.refreshOverlayLocked()
	}
	view, ls := f.snapshotLocked()
	f.mu.Unlock()

	f.log.Info("qibla computed", "source", place.Source, "bearing", res.BearingDegrees, "distance_km", res.DistanceKm)
	notify(ls, view)
	return view, nil
}

// StartCamera opens the camera and subscribes to heading samples. A camera
// failure moves the session to camera_error and keeps the computed
// direction; a sensor failure only sets a warning. A StopCamera or Close
// that lands while the device is opening wins: the new stream and
// subscription are released and ErrCameraInterrupted is returned.
func (f *Finder) StartCamera(ctx context.Context) (View, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return View{}, ErrClosed
	}
	switch f.status {
	case StatusReady, StatusCameraActive, StatusCameraError:
	default:
		f.mu.Unlock()
		return View{}, ErrNotReady
	}
	f.touched = f.now()
	f.camGen++
	gen := f.camGen
	f.cancelHeadingLocked()
	f.mu.Unlock()

	sid, err := f.camera.StartFor(ctx, f.id)
	if err != nil {
		msg := msgCameraDenied
		switch {
		case errors.Is(err, camera.ErrCameraUnsupported):
			msg = msgCameraUnsupported
		case errors.Is(err, camera.ErrCameraBusy):
			msg = msgCameraBusy
		}
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return View{}, ErrClosed
		}
		if gen == f.camGen {
			f.status = StatusCameraError
			f.message = msg
			f.camSession = ""
		}
		view, ls := f.snapshotLocked()
		f.mu.Unlock()
		notify(ls, view)
		return view, err
	}

	sub, subErr := f.tracker.Subscribe(ctx, f.onSample)

	f.mu.Lock()
	if f.closed || gen != f.camGen {
		closed := f.closed
		view, _ := f.snapshotLocked()
		f.mu.Unlock()
		sub.Cancel()
		f.camera.StopSession(sid)
		if closed {
			return View{}, ErrClosed
		}
		f.log.Info("camera start interrupted", "camera_session", sid)
		return view, ErrCameraInterrupted
	}
	f.camSession = sid
	f.status = StatusCameraActive
	f.message = ""
	f.warning = ""
	if subErr != nil {
		f.log.Warn("heading unavailable", "error", subErr)
		f.warning = msgSensorUnavailable
	} else {
		f.sub = sub
	}
	f.refreshOverlayLocked()
	view, ls := f.snapshotLocked()
	f.mu.Unlock()
	notify(ls, view)
	return view, nil
}

// StopCamera releases the camera and the heading subscription together and
// hides the overlay. A start still opening the device is interrupted.
func (f *Finder) StopCamera() (View, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return View{}, ErrClosed
	}
	f.touched = f.now()
	f.camGen++
	sid := f.camSession
	f.camSession = ""
	f.cancelHeadingLocked()
	f.warning = ""
	if f.status == StatusCameraActive || f.status == StatusCameraError {
		f.status = StatusReady
		f.message = ""
	}
	view, ls := f.snapshotLocked()
	f.mu.Unlock()

	// outside f.mu: the device may still be busy opening for another start
	if sid != "" {
		f.camera.StopSession(sid)
	}
	notify(ls, view)
	return view, nil
}

// Close tears the session down. Safe to call more than once.
func (f *Finder) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.camGen++
	sid := f.camSession
	f.camSession = ""
	f.cancelHeadingLocked()
	f.listeners = map[int]func(View){}
	f.mu.Unlock()

	// a start still opening the device releases its own stream
	if sid != "" {
		f.camera.StopSession(sid)
	}
	f.log.Debug("finder closed")
}

func (f *Finder) cancelHeadingLocked() {
	f.sub.Cancel()
	f.sub = nil
	f.heading = nil
	f.camera.SetOverlayFor(f.id, 0, false)
}

func (f *Finder) onSample(s heading.Sample) {
	f.mu.Lock()
	if f.closed || f.sub == nil || !f.sub.Active() {
		f.mu.Unlock()
		return
	}
	deg := s.CompassDegrees
	f.heading = &deg
	f.refreshOverlayLocked()
	view, ls := f.snapshotLocked()
	f.mu.Unlock()

	if f.observer != nil {
		f.observer.HeadingSampled()
	}
	notify(ls, view)
}

func (f *Finder) refreshOverlayLocked() {
	if f.result == nil || f.heading == nil {
		f.camera.SetOverlayFor(f.id, 0, false)
		return
	}
	f.camera.SetOverlayFor(f.id, qibla.RelativeAngle(f.result.BearingDegrees, *f.heading), true)
}

// Publish feeds an orientation event to the session when its heading source
// is an in-process broadcaster.
func (f *Finder) Publish(ev heading.OrientationEvent) error {
	b, ok := f.source.(*heading.Broadcaster)
	if !ok {
		return heading.ErrSensorUnsupported
	}
	f.mu.Lock()
	closed := f.closed
	f.touched = f.now()
	f.mu.Unlock()
	if closed {
		return ErrClosed
	}
	b.Publish(ev)
	return nil
}

// OnChange registers fn to receive every new view. The returned func
// unregisters it.
func (f *Finder) OnChange(fn func(View)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextLis
	f.nextLis++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// View returns the current render snapshot.
func (f *Finder) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := f.snapshotLocked()
	return v
}

// HeadingActive reports whether a heading subscription is live.
func (f *Finder) HeadingActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub.Active()
}

// CameraActive reports whether this session holds a live camera stream.
func (f *Finder) CameraActive() bool { return f.camera.ActiveFor(f.id) }

// Frame returns the latest rendered camera frame, if the sink keeps one and
// this session holds the camera.
func (f *Finder) Frame() ([]byte, bool) { return f.camera.FrameFor(f.id) }

func (f *Finder) idleSince() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

func (f *Finder) snapshotLocked() (View, []func(View)) {
	v := View{
		ID:           f.id,
		Status:       f.status,
		Message:      f.message,
		Warning:      f.warning,
		CameraActive: f.status == StatusCameraActive,
	}
	if f.place != nil {
		p := f.place.Point
		v.Location = &p
		v.PlaceName = f.place.Name
		v.Source = f.place.Source
	}
	if f.result != nil {
		b := f.result.Rounded()
		exact := f.result.BearingDegrees
		d := f.result.DistanceKm
		v.Bearing = &b
		v.BearingExact = &exact
		v.DistanceKm = &d
		v.Cardinal = qibla.CardinalDirection(exact)
	}
	if f.heading != nil {
		h := *f.heading
		v.Heading = &h
		if f.result != nil {
			rel := qibla.RelativeAngle(f.result.BearingDegrees, h)
			v.RelativeAngle = &rel
		}
	}

	ls := make([]func(View), 0, len(f.listeners))
	for _, fn := range f.listeners {
		ls = append(ls, fn)
	}
	return v, ls
}

func notify(ls []func(View), v View) {
	for _, fn := range ls {
		fn(v)
	}
}
