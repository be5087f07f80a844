package finder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qibla/internal/modules/camera"
	"qibla/internal/modules/location"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	r := NewRegistry(nil, time.Minute)
	f := r.Create()
	require.NotEmpty(t, f.ID())

	got, err := r.Get(f.ID())
	require.NoError(t, err)
	assert.Same(t, f, got)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Remove(f.ID()))
	_, err = r.Get(f.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Remove(f.ID()), ErrSessionNotFound)

	_, err = f.Locate(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_SweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	dev := &stubDevice{}
	cam := camera.NewManager(dev, nil, nil)
	r := NewRegistry(func(string) Deps {
		return Deps{
			Location: location.NewService(location.Static{Point: london}, time.Second),
			Camera:   cam,
		}
	}, 10*time.Minute)
	r.now = func() time.Time { return now }

	stale := r.Create()
	_, err := stale.Locate(context.Background())
	require.NoError(t, err)
	_, err = stale.StartCamera(context.Background())
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	fresh := r.Create()
	assert.Zero(t, r.Sweep())

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
	assert.False(t, stale.CameraActive())
	assert.False(t, dev.tracks[0].Live())

	// the expired session gave the shared camera back
	_, err = fresh.Locate(context.Background())
	require.NoError(t, err)
	_, err = fresh.StartCamera(context.Background())
	require.NoError(t, err)
	assert.True(t, fresh.CameraActive())
}

func TestRegistry_RunClosesOnShutdown(t *testing.T) {
	r := NewRegistry(nil, time.Minute)
	f := r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	assert.Zero(t, r.Len())
	_, err := f.StopCamera()
	assert.ErrorIs(t, err, ErrClosed)
}
