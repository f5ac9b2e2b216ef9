package engine3D_test

import (
	"image"
	"testing"
	"time"

	"duo-cards/internal/device"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/engine3D/enginetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedLeaseIsolation(t *testing.T) {
	dev := &enginetest.Device{}
	shared := engine3D.NewShared(engine3D.NewManager(dev, device.Medium, nil))

	first, err := shared.Acquire(stageRect)
	require.NoError(t, err)
	old := []*engine3D.CardMesh{card("a", engine3D.Vec3{}, engine3D.Vec3{}), card("b", engine3D.Vec3{}, engine3D.Vec3{})}
	first.Manager().Scene().Add(engine3D.NewGroup("first", old...))

	second, err := shared.Acquire(engine3D.Region(image.Rect(0, 0, 400, 400)))
	require.NoError(t, err)
	assert.False(t, first.Active())
	assert.True(t, second.Active())

	scene := second.Manager().Scene()
	for _, m := range old {
		assert.False(t, scene.Contains(m))
	}
	fresh := card("c", engine3D.Vec3{}, engine3D.Vec3{})
	scene.Add(engine3D.NewGroup("second", fresh))

	first.Release()
	assert.True(t, scene.Contains(fresh), "revoked lease leaves the new session alone")
	assert.NotNil(t, second.Manager().Container())

	second.Release()
	second.Release()
	assert.Zero(t, scene.Len())
	assert.Nil(t, second.Manager().Container())

	assert.Len(t, dev.Contexts, 1)
	assert.False(t, dev.Contexts[0].Released(), "lease release keeps the context")

	shared.Destroy()
	assert.True(t, dev.Contexts[0].Released())
}

func TestSharedFramesAndPresents(t *testing.T) {
	dev := &enginetest.Device{}
	shared := engine3D.NewShared(engine3D.NewManager(dev, device.High, nil))
	var p engine3D.Provider = shared

	s, err := p.Open(stageRect)
	require.NoError(t, err)
	p.Frame(time.Unix(5, 0))
	p.Present()
	assert.Equal(t, 1, dev.Contexts[0].Draws())
	assert.Len(t, dev.Contexts[0].Presented(), 1)

	s.Release()
	p.Destroy()
	assert.NotPanics(t, p.Destroy)
}

func TestDedicatedContextCeiling(t *testing.T) {
	dev := &enginetest.Device{}
	lim := engine3D.NewLimiter(3)
	d := engine3D.NewDedicated(dev, device.Low, lim)

	var sessions []engine3D.Session
	for i := 0; i < 3; i++ {
		s, err := d.Open(stageRect)
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	var s engine3D.Session
	var err error
	assert.NotPanics(t, func() { s, err = d.Open(stageRect) })
	assert.ErrorIs(t, err, engine3D.ErrContextCeiling)
	assert.Nil(t, s)
	assert.Len(t, dev.Contexts, 3, "no context allocated past the ceiling")
	assert.Equal(t, 3, lim.InUse())
	assert.Equal(t, 3, d.Len())

	sessions[0].Release()
	sessions[0].Release()
	assert.Equal(t, 2, lim.InUse())
	assert.Equal(t, 2, dev.Live())

	s, err = d.Open(stageRect)
	require.NoError(t, err)
	assert.NotSame(t, sessions[1].Manager(), s.Manager())

	d.Frame(time.Unix(1, 0))
	d.Present()
	d.Destroy()
	assert.Zero(t, lim.InUse())
	assert.Zero(t, dev.Live())
	assert.Zero(t, d.Len())
}

func TestLimiterDefaults(t *testing.T) {
	lim := engine3D.NewLimiter(0)
	assert.Equal(t, engine3D.DefaultMaxContexts, lim.Max())
	for i := 0; i < engine3D.DefaultMaxContexts; i++ {
		require.NoError(t, lim.Acquire())
	}
	assert.ErrorIs(t, lim.Acquire(), engine3D.ErrContextCeiling)
	lim.Release()
	assert.NoError(t, lim.Acquire())
}
