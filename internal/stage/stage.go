// Package stage mounts a set of cards into a container, runs the intro
// choreography, waits for a pick and resolves it.
package stage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"duo-cards/internal/deck"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/faces"
	"duo-cards/internal/motion"
	"duo-cards/internal/utils"
)

var (
	ErrNotVisible = errors.New("stage is not visible")
	ErrNoCards    = errors.New("no cards to stage")
)

// Feedback receives the draw and fan cues.
type Feedback = motion.Feedback

// Offscreen is where cards wait before the overlap brings them in.
const Offscreen float32 = -8

type Options struct {
	EnableClickSelect bool
	// Fullscreen stages over the whole container. Otherwise only its
	// Viewport region is used.
	Fullscreen bool
	Visible    bool
	Strategy   Strategy
	FanRadius  float32
	FanSpread  float32
	// Timing overrides motion.DefaultTiming when non-zero.
	Timing motion.Timing

	// OnCardSelected runs once on the resolving goroutine, after the stage
	// is Resolved and without its lock held. It must not call Unmount: GPU
	// resources belong to the frame thread, so hand the index over to it.
	OnCardSelected func(index int)
	// OnNext runs on the caller of Next.
	OnNext   func()
	Feedback Feedback
}

func DefaultOptions() Options {
	return Options{
		EnableClickSelect: true,
		Visible:           true,
		Strategy:          Fan,
		FanRadius:         motion.DefaultFanRadius,
		FanSpread:         motion.DefaultFanSpread,
	}
}

// Viewport is the container rectangle for a window: all of it when
// fullscreen, otherwise a centred 3:4 portrait region with a margin.
func Viewport(window image.Rectangle, fullscreen bool) engine3D.Region {
	if fullscreen || window.Empty() {
		return engine3D.Region(window)
	}
	h := window.Dy() * 9 / 10
	w := h * 3 / 4
	if w > window.Dx()*9/10 {
		w = window.Dx() * 9 / 10
		h = w * 4 / 3
	}
	c := window.Min.Add(window.Size().Div(2))
	return engine3D.Region(image.Rect(c.X-w/2, c.Y-h/2, c.X-w/2+w, c.Y-h/2+h))
}

// viewport narrows a window-sized container to the stage region, following resizes.
type viewport struct {
	window     engine3D.Container
	fullscreen bool
}

func (v viewport) Bounds() image.Rectangle {
	return Viewport(v.window.Bounds(), v.fullscreen).Bounds()
}

// Stage is one staging session. Mount, Click, Next and Unmount are called on
// the thread that drives the provider's frames.
type Stage struct {
	mu       sync.Mutex
	provider engine3D.Provider
	source   faces.Source
	size     image.Point
	opts     Options

	state     State
	selected  int
	container engine3D.Container
	session   engine3D.Session
	manager   *engine3D.Manager
	group     *engine3D.Group
	anim      *motion.Animator
	ctrl      *motion.Controller
	unsub     func()
	runCtx    context.Context
	cancel    context.CancelFunc
	introDone chan struct{}
	wg        sync.WaitGroup
}

// New prepares a stage. textureSize may be zero to use the device tier's size.
func New(provider engine3D.Provider, source faces.Source, textureSize image.Point, opts Options) *Stage {
	if opts.Strategy == "" {
		opts.Strategy = Fan
	}
	if opts.Timing == (motion.Timing{}) {
		opts.Timing = motion.DefaultTiming
	}
	return &Stage{
		provider:  provider,
		source:    source,
		size:      textureSize,
		opts:      opts,
		selected:  -1,
		introDone: make(chan struct{}),
	}
}

// Mount opens a rendering session on c, builds one mesh per card and starts
// the intro. Resource failures leave the container empty and the stage Failed.
func (s *Stage) Mount(ctx context.Context, c engine3D.Container, cards []deck.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("mount: stage is %s", s.state)
	}
	if !s.opts.Visible {
		utils.Debug("Stage: not visible, skipping mount")
		return ErrNotVisible
	}
	if len(cards) == 0 {
		return ErrNoCards
	}

	c = viewport{window: c, fullscreen: s.opts.Fullscreen}
	session, err := s.provider.Open(c)
	if err != nil {
		utils.Warn("Stage: no rendering context: %v", err)
		s.state = Failed
		return err
	}
	s.session = session
	s.manager = session.Manager()
	s.container = c

	meshes, err := s.build(cards)
	if err != nil {
		utils.Warn("Stage: building cards failed: %v", err)
		s.session.Release()
		s.session, s.manager, s.container = nil, nil, nil
		s.state = Failed
		return err
	}

	s.group = engine3D.NewGroup("cards", meshes...)
	s.manager.Scene().Add(s.group)

	s.anim = motion.NewAnimator()
	s.unsub = s.manager.Subscribe(func(dt float64) { s.anim.Update(float32(dt)) })
	s.ctrl = motion.NewController(s.anim, s.group, s.opts.Feedback)
	s.ctrl.Timing = s.opts.Timing

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.state = Introducing
	s.wg.Add(1)
	go s.intro(s.runCtx)

	utils.Info("Stage: mounted %d cards (%s)", len(meshes), s.opts.Strategy)
	return nil
}

func (s *Stage) build(cards []deck.Card) (meshes []*engine3D.CardMesh, err error) {
	defer func() {
		if err != nil {
			for _, m := range meshes {
				m.Dispose()
			}
			meshes = nil
		}
	}()

	size := s.size
	if size == (image.Point{}) {
		size = s.manager.Tier().TextureSize
	}
	gpu := s.manager.Context()

	for i, card := range cards {
		pair, err := s.source.Build(card, size)
		if err != nil {
			return meshes, fmt.Errorf("card %d faces: %w", i, err)
		}
		m, err := engine3D.NewCardMesh(gpu, pair, engine3D.MeshOptions{Name: fmt.Sprintf("card-%d", i)})
		if err != nil {
			return meshes, fmt.Errorf("card %d mesh: %w", i, err)
		}
		m.Position = engine3D.V3(0, Offscreen, motion.OverlapPose(i).Z)
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func (s *Stage) intro(ctx context.Context) {
	defer close(s.introDone)
	defer s.wg.Done()

	err := s.ctrl.Overlap(ctx)
	if err == nil {
		switch s.opts.Strategy {
		case Grid:
			err = s.ctrl.GridSpread(ctx)
		case Focus:
			err = s.ctrl.FocusAndFlip(ctx)
		default:
			err = s.ctrl.FanOut(ctx, s.opts.FanRadius, s.opts.FanSpread)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Introducing {
		return
	}
	if err != nil {
		utils.Warn("Stage: intro interrupted: %v", err)
		s.state = Failed
		return
	}
	s.state = AwaitingPick
	utils.Debug("Stage: awaiting pick")
}

// Click handles a pointer press at window pixel (x, y). It reports whether
// the press picked a card.
func (s *Stage) Click(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingPick || !s.opts.EnableClickSelect {
		return false
	}
	b := s.container.Bounds()
	if b.Empty() || !image.Pt(x, y).In(b) {
		return false
	}

	camera, scene := s.manager.Camera(), s.manager.Scene()
	if camera == nil || scene == nil {
		return false
	}
	hit, ok := scene.Pick(camera.Ray(engine3D.PixelToNDC(x, y, b)))
	if !ok || hit.Group != s.group {
		return false
	}

	s.state = Resolving
	s.selected = hit.Index
	s.wg.Add(1)
	go s.resolve(s.runCtx, hit.Index)
	utils.Debug("Stage: picked card %d", hit.Index)
	return true
}

func (s *Stage) resolve(ctx context.Context, index int) {
	err := s.ctrl.FocusSelected(ctx, index)

	s.mu.Lock()
	fire := false
	if s.state == Resolving {
		if err != nil {
			utils.Warn("Stage: resolving card %d interrupted: %v", index, err)
			s.state = Failed
		} else {
			s.state = Resolved
			fire = true
		}
	}
	cb := s.opts.OnCardSelected
	s.mu.Unlock()
	s.wg.Done()

	if fire && cb != nil {
		cb(index)
	}
}

// Next invokes OnNext once a pick has resolved. It reports whether it did.
func (s *Stage) Next() bool {
	s.mu.Lock()
	ok := s.state == Resolved
	cb := s.opts.OnNext
	s.mu.Unlock()

	if !ok || cb == nil {
		return false
	}
	cb()
	return true
}

// Unmount stops the choreography, disposes every mesh and releases the
// session. A shared context is only cleared and detached.
func (s *Stage) Unmount() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	cancel, unsub, anim := s.cancel, s.unsub, s.anim
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	if anim != nil {
		anim.Close()
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		if scene := s.manager.Scene(); scene != nil {
			scene.Remove(s.group)
		}
		for _, m := range s.group.Meshes {
			m.Dispose()
		}
	}
	if s.session != nil {
		s.session.Release()
	}
	s.session, s.manager, s.container = nil, nil, nil
	utils.Debug("Stage: unmounted")
}

// Wait blocks until the intro has finished or been interrupted.
func (s *Stage) Wait(ctx context.Context) error {
	select {
	case <-s.introDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stage) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selected returns the picked index, or -1.
func (s *Stage) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Bounds is the window region the stage renders into and takes clicks from.
// It is empty unless mounted.
func (s *Stage) Bounds() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.container == nil {
		return image.Rectangle{}
	}
	return s.container.Bounds()
}

// Meshes returns the mounted cards in order.
func (s *Stage) Meshes() []*engine3D.CardMesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group == nil {
		return nil
	}
	return append([]*engine3D.CardMesh(nil), s.group.Meshes...)
}

// Manager returns the session's manager while mounted.
func (s *Stage) Manager() *engine3D.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

func (s *Stage) Options() Options { return s.opts }
