package stage

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"duo-cards/internal/deck"
	"duo-cards/internal/device"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/engine3D/enginetest"
	"duo-cards/internal/motion"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stageRect  = image.Rect(100, 50, 900, 650)
	threeCards = []deck.Card{
		{Title: "A", Content: "x"},
		{Title: "B", Content: "y"},
		{Title: "C", Content: "z"},
	}
)

// driver plays the host's frame loop with a synthetic clock.
type driver struct {
	t        *testing.T
	provider engine3D.Provider
	now      time.Time
}

func newDriver(t *testing.T, p engine3D.Provider) *driver {
	return &driver{t: t, provider: p, now: time.Unix(1000, 0)}
}

func (d *driver) frames(n int) {
	for i := 0; i < n; i++ {
		d.now = d.now.Add(17 * time.Millisecond)
		d.provider.Frame(d.now)
		time.Sleep(50 * time.Microsecond)
	}
}

func (d *driver) until(s *Stage, want State) {
	d.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			d.t.Fatalf("stage stuck in %s, want %s", s.State(), want)
		}
		d.frames(1)
	}
}

type feedback struct {
	mu     sync.Mutex
	draws  int
	fans   []int
	atFan  []engine3D.Vec3
	source *Stage
}

func (f *feedback) Draw() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws++
}

func (f *feedback) Fan(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fans = append(f.fans, n)
	for _, m := range f.source.Meshes() {
		f.atFan = append(f.atFan, m.Position)
	}
}

// fullOptions stages over the whole of the mounted container.
func fullOptions() Options {
	opts := DefaultOptions()
	opts.Fullscreen = true
	return opts
}

// pixelOf returns the window pixel under world point p.
func pixelOf(m *engine3D.Manager, r image.Rectangle, p engine3D.Vec3) (int, int) {
	nx, ny := m.Camera().Project(p)
	px := engine3D.NDCToPixel(nx, ny, r)
	return px.X, px.Y
}

func sharedProvider() (*enginetest.Device, *engine3D.Shared) {
	dev := &enginetest.Device{}
	return dev, engine3D.NewShared(engine3D.NewManager(dev, device.High, nil))
}

func TestEndToEndThreeCards(t *testing.T) {
	dev, shared := sharedProvider()
	defer shared.Destroy()

	selected := make(chan int, 2)
	fb := &feedback{}
	opts := fullOptions()
	opts.Feedback = fb
	opts.OnCardSelected = func(i int) { selected <- i }

	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
	fb.source = s
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	assert.Equal(t, Introducing, s.State())

	d := newDriver(t, shared)
	d.until(s, AwaitingPick)
	require.NoError(t, s.Wait(context.Background()))

	// Overlap ran before the fan.
	assert.Equal(t, []int{3}, fb.fans)
	for i, p := range fb.atFan {
		assert.Equal(t, motion.OverlapPose(i), p)
	}
	meshes := s.Meshes()
	for i, m := range meshes {
		p, rotZ := motion.FanPose(i, 3, motion.DefaultFanRadius, motion.DefaultFanSpread)
		assert.Equal(t, p, m.Position)
		assert.Equal(t, rotZ, m.Rotation.Z)
	}

	x, y := pixelOf(s.Manager(), stageRect, meshes[1].Position.Add(engine3D.V3(0, 1, 0)))
	require.True(t, s.Click(x, y))
	assert.Equal(t, Resolving, s.State())
	assert.Equal(t, 1, s.Selected())
	assert.False(t, s.Click(x, y), "no re-entry while resolving")

	d.until(s, Resolved)
	select {
	case i := <-selected:
		assert.Equal(t, 1, i)
	case <-time.After(time.Second):
		t.Fatal("OnCardSelected not called")
	}
	assert.Equal(t, 1, fb.draws)
	assert.False(t, meshes[0].Visible)
	assert.False(t, meshes[2].Visible)
	assert.True(t, meshes[1].Visible)
	assert.Equal(t, engine3D.Vec3{}, meshes[1].Position)
	assert.Equal(t, math32.Pi, meshes[1].Rotation.Y)

	assert.False(t, s.Click(x, y), "at most one selection per session")
	d.frames(5)
	assert.Empty(t, selected)

	s.Unmount()
	assert.Equal(t, Closed, s.State())
	ctx := dev.Last()
	assert.Zero(t, ctx.LiveResources())
	assert.False(t, ctx.Released(), "shared context survives the session")
	assert.Zero(t, shared.Manager().Scene().Len())
}

func TestClickIgnored(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	centre := stageRect.Min.Add(stageRect.Size().Div(2))

	assert.False(t, s.Click(centre.X, centre.Y), "ignored while introducing")

	d := newDriver(t, shared)
	d.until(s, AwaitingPick)
	assert.False(t, s.Click(stageRect.Min.X+1, stageRect.Min.Y+1), "empty space")
	assert.False(t, s.Click(10, 10), "outside the container")
	assert.Equal(t, AwaitingPick, s.State())
	s.Unmount()
}

func TestClickSelectDisabled(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	opts := fullOptions()
	opts.EnableClickSelect = false
	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	newDriver(t, shared).until(s, AwaitingPick)

	centre := stageRect.Min.Add(stageRect.Size().Div(2))
	assert.False(t, s.Click(centre.X, centre.Y))
	s.Unmount()
}

func TestNextAfterResolve(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	next := 0
	opts := fullOptions()
	opts.OnNext = func() { next++ }
	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards[:1]))

	d := newDriver(t, shared)
	d.until(s, AwaitingPick)
	assert.False(t, s.Next())

	centre := stageRect.Min.Add(stageRect.Size().Div(2))
	require.True(t, s.Click(centre.X, centre.Y))
	d.until(s, Resolved)
	assert.True(t, s.Next())
	assert.Equal(t, 1, next)
	s.Unmount()
	assert.False(t, s.Next())
}

func TestMountNotVisible(t *testing.T) {
	dev, shared := sharedProvider()
	opts := fullOptions()
	opts.Visible = false

	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
	err := s.Mount(context.Background(), engine3D.Region(stageRect), threeCards)
	assert.ErrorIs(t, err, ErrNotVisible)
	assert.Equal(t, Idle, s.State())
	assert.Empty(t, dev.Contexts)
}

func TestMountRejectsEmptyAndRepeated(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	assert.ErrorIs(t, s.Mount(context.Background(), engine3D.Region(stageRect), nil), ErrNoCards)

	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	assert.Error(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	s.Unmount()
}

func TestMountContextCeiling(t *testing.T) {
	dev := &enginetest.Device{}
	dedicated := engine3D.NewDedicated(dev, device.High, engine3D.NewLimiter(1))
	defer dedicated.Destroy()

	first := New(dedicated, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	require.NoError(t, first.Mount(context.Background(), engine3D.Region(stageRect), threeCards))

	src := &enginetest.Source{}
	second := New(dedicated, src, image.Pt(64, 96), fullOptions())
	err := second.Mount(context.Background(), engine3D.Region(stageRect), threeCards)
	assert.ErrorIs(t, err, engine3D.ErrContextCeiling)
	assert.Equal(t, Failed, second.State())
	assert.Zero(t, src.Calls)
	assert.Nil(t, second.Meshes())
	assert.Len(t, dev.Contexts, 1)

	second.Unmount()
	first.Unmount()
	assert.Zero(t, dev.Live())
	assert.Zero(t, dedicated.Len())
}

func TestMountFaceFailureReleasesEverything(t *testing.T) {
	dev := &enginetest.Device{}
	dedicated := engine3D.NewDedicated(dev, device.High, nil)

	s := New(dedicated, &enginetest.Source{Fail: errors.New("no font")}, image.Pt(64, 96), fullOptions())
	err := s.Mount(context.Background(), engine3D.Region(stageRect), threeCards)
	assert.ErrorContains(t, err, "no font")
	assert.Equal(t, Failed, s.State())
	assert.Zero(t, dev.Live())
	assert.Zero(t, dedicated.Len())
}

func TestMountMeshFailureDisposesBuiltCards(t *testing.T) {
	dev, shared := sharedProvider()
	defer shared.Destroy()

	// Prime the context so the upload failure can be injected.
	_, err := shared.Acquire(engine3D.Region(stageRect))
	require.NoError(t, err)
	ctx := dev.Last()
	ctx.FailUpload = 5

	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	err = s.Mount(context.Background(), engine3D.Region(stageRect), threeCards)
	assert.ErrorContains(t, err, "card 2 mesh")
	assert.Equal(t, Failed, s.State())
	assert.Zero(t, ctx.LiveResources())
	assert.Zero(t, shared.Manager().Scene().Len())
	assert.Nil(t, shared.Manager().Container(), "container left empty")
}

func TestUnmountDuringIntro(t *testing.T) {
	dev := &enginetest.Device{}
	dedicated := engine3D.NewDedicated(dev, device.High, nil)

	s := New(dedicated, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	newDriver(t, dedicated).frames(10)

	ctx := dev.Last()
	s.Unmount()
	s.Unmount()

	assert.Equal(t, Closed, s.State())
	require.NoError(t, s.Wait(context.Background()))
	assert.Zero(t, ctx.LiveResources())
	assert.True(t, ctx.Released())
	assert.Zero(t, dedicated.Len())
}

func TestSharedSessionsIsolated(t *testing.T) {
	dev, shared := sharedProvider()
	defer shared.Destroy()
	d := newDriver(t, shared)

	first := New(shared, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	require.NoError(t, first.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	d.until(first, AwaitingPick)
	old := first.Meshes()

	second := New(shared, &enginetest.Source{}, image.Pt(64, 96), fullOptions())
	require.NoError(t, second.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
	d.until(second, AwaitingPick)

	scene := shared.Manager().Scene()
	for _, m := range old {
		assert.False(t, scene.Contains(m))
	}
	assert.Equal(t, 3, scene.Len())

	centre := stageRect.Min.Add(stageRect.Size().Div(2))
	assert.False(t, first.Click(centre.X, centre.Y), "revoked session cannot pick")

	first.Unmount()
	assert.Equal(t, second.Meshes(), scene.Meshes())
	assert.Equal(t, 12, dev.Last().LiveResources())

	require.True(t, second.Click(centre.X, centre.Y))
	d.until(second, Resolved)
	second.Unmount()
	assert.Zero(t, dev.Last().LiveResources())
	assert.Len(t, dev.Contexts, 1)
}

func TestIntroStrategies(t *testing.T) {
	t.Run("grid", func(t *testing.T) {
		_, shared := sharedProvider()
		defer shared.Destroy()

		opts := fullOptions()
		opts.Strategy = Grid
		s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
		require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
		newDriver(t, shared).until(s, AwaitingPick)

		for i, m := range s.Meshes() {
			assert.Equal(t, motion.GridPose(i, 3, motion.GridGap), m.Position)
		}
		s.Unmount()
	})

	t.Run("focus", func(t *testing.T) {
		_, shared := sharedProvider()
		defer shared.Destroy()

		opts := fullOptions()
		opts.Strategy = Focus
		s := New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
		require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards))
		newDriver(t, shared).until(s, AwaitingPick)

		meshes := s.Meshes()
		for _, m := range meshes {
			assert.Equal(t, engine3D.Vec3{}, m.Position)
		}
		assert.Equal(t, math32.Pi, meshes[2].Rotation.Y)
		assert.Zero(t, meshes[0].Rotation.Y)
		s.Unmount()
	})
}

func TestViewport(t *testing.T) {
	window := image.Rect(0, 0, 1000, 800)
	assert.Equal(t, engine3D.Region(window), Viewport(window, true))

	r := Viewport(window, false).Bounds()
	assert.Equal(t, image.Rect(230, 40, 770, 760), r)
	assert.Equal(t, image.Pt(500, 400), r.Min.Add(r.Size().Div(2)))
}

func TestMountEmbeddedUsesViewport(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	window := image.Rect(0, 0, 1000, 800)
	s := New(shared, &enginetest.Source{}, image.Pt(64, 96), DefaultOptions())
	assert.True(t, s.Bounds().Empty())
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(window), threeCards[:1]))
	defer s.Unmount()

	want := image.Rect(230, 40, 770, 760)
	assert.Equal(t, want, s.Bounds())
	assert.Equal(t, want, s.Manager().Container().Bounds())

	newDriver(t, shared).until(s, AwaitingPick)
	assert.False(t, s.Click(100, 400), "inside the window, outside the stage")
	assert.True(t, s.Click(500, 400))
}

func TestOnCardSelectedSeesResolvedStage(t *testing.T) {
	_, shared := sharedProvider()
	defer shared.Destroy()

	type seen struct {
		state    State
		selected int
	}
	got := make(chan seen, 1)
	var s *Stage
	opts := fullOptions()
	opts.OnCardSelected = func(int) { got <- seen{s.State(), s.Selected()} }

	s = New(shared, &enginetest.Source{}, image.Pt(64, 96), opts)
	require.NoError(t, s.Mount(context.Background(), engine3D.Region(stageRect), threeCards[:1]))
	defer s.Unmount()

	d := newDriver(t, shared)
	d.until(s, AwaitingPick)
	centre := stageRect.Min.Add(stageRect.Size().Div(2))
	require.True(t, s.Click(centre.X, centre.Y))
	d.until(s, Resolved)

	select {
	case v := <-got:
		assert.Equal(t, seen{Resolved, 0}, v)
	case <-time.After(time.Second):
		t.Fatal("OnCardSelected not called")
	}
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{"": Fan, "fan": Fan, "grid": Grid, "focus": Focus} {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("spiral")
	assert.Error(t, err)
	assert.Equal(t, "awaiting-pick", AwaitingPick.String())
}
