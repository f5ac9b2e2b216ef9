package engine3D

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"duo-cards/internal/device"
	"duo-cards/internal/utils"
)

type frameHook struct {
	id int
	fn func(dt float64)
}

// Manager owns one GPU context with its scene and camera, and drives a
// frame-rate capped render loop. The host calls Frame and Present once per
// window frame on the thread that owns the GPU.
type Manager struct {
	mu        sync.Mutex
	device    Device
	tier      device.Tier
	limiter   *Limiter
	ctx       Context
	scene     *Scene
	camera    *Camera
	container Container
	slot      bool
	running   bool
	last      time.Time
	hooks     []frameHook
	nextHook  int
}

func NewManager(dev Device, tier device.Tier, limiter *Limiter) *Manager {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxContexts)
	}
	if tier.TargetFPS <= 0 {
		tier = device.Medium
	}
	return &Manager{device: dev, tier: tier, limiter: limiter}
}

// Initialize binds the manager to c. The first call creates the GPU context,
// scene and camera and starts the render loop. Later calls clear the scene and
// re-bind the existing context to c. A lost context is torn down and created
// again. On failure nothing is left allocated.
func (m *Manager) Initialize(c Container) error {
	if c == nil {
		return fmt.Errorf("initialize: nil container")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil && m.ctx.Lost() {
		utils.Warn("Engine3D: context lost, recreating")
		m.cleanupLocked()
	}

	if m.ctx != nil {
		m.scene.Clear()
		m.container = c
		if err := m.resizeLocked(c.Bounds().Size()); err != nil {
			return err
		}
		m.running = true
		m.last = time.Time{}
		utils.Debug("Engine3D: re-bound context to %v", c.Bounds())
		return nil
	}

	if err := m.limiter.Acquire(); err != nil {
		utils.Warn("Engine3D: refusing new context (%d/%d in use)", m.limiter.InUse(), m.limiter.Max())
		return err
	}

	size := c.Bounds().Size()
	ctx, err := m.device.NewContext(m.targetSize(size))
	if err != nil {
		m.limiter.Release()
		utils.Warn("Engine3D: context creation failed: %v", err)
		return fmt.Errorf("create gpu context: %w", err)
	}

	m.ctx = ctx
	m.slot = true
	m.scene = NewScene()
	m.camera = NewCamera(aspect(size))
	m.container = c
	m.running = true
	m.last = time.Time{}
	utils.Debug("Engine3D: context created for %v (%d/%d in use)", c.Bounds(), m.limiter.InUse(), m.limiter.Max())
	return nil
}

// Resize updates the render target and the camera aspect for a container of
// width x height window pixels.
func (m *Manager) Resize(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resizeLocked(image.Pt(width, height))
}

func (m *Manager) resizeLocked(size image.Point) error {
	if m.ctx == nil {
		return ErrNotInitialized
	}
	if err := m.ctx.Resize(m.targetSize(size)); err != nil {
		return fmt.Errorf("resize render target: %w", err)
	}
	m.camera.SetAspect(aspect(size))
	return nil
}

func (m *Manager) targetSize(size image.Point) image.Point {
	ratio := float64(m.tier.PixelRatioCap)
	if ratio <= 0 {
		ratio = 1
	}
	w := int(float64(size.X) * ratio)
	h := int(float64(size.Y) * ratio)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

func aspect(size image.Point) float32 {
	if size.X <= 0 || size.Y <= 0 {
		return 1
	}
	return float32(size.X) / float32(size.Y)
}

// Subscribe registers fn to run before every rendered frame with the seconds
// elapsed since the previous one. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(dt float64)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHook++
	id := m.nextHook
	m.hooks = append(m.hooks, frameHook{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, h := range m.hooks {
				if h.id == id {
					m.hooks = append(m.hooks[:i], m.hooks[i+1:]...)
					break
				}
			}
		})
	}
}

// Frame renders one frame if the loop is running and at least 1/TargetFPS
// has passed since the previous one. It reports whether a frame was drawn.
func (m *Manager) Frame(now time.Time) bool {
	m.mu.Lock()
	if !m.running || m.ctx == nil {
		m.mu.Unlock()
		return false
	}
	if m.ctx.Lost() {
		m.stopLocked(ErrContextLost)
		m.mu.Unlock()
		return false
	}

	interval := time.Second / time.Duration(m.tier.TargetFPS)
	var dt float64
	if m.last.IsZero() {
		m.last = now
	} else {
		elapsed := now.Sub(m.last)
		if elapsed < interval {
			m.mu.Unlock()
			return false
		}
		dt = elapsed.Seconds()
		m.last = now.Add(-(elapsed % interval))
	}
	hooks := append([]frameHook(nil), m.hooks...)
	m.mu.Unlock()

	for _, h := range hooks {
		h.fn(dt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.ctx == nil {
		return false
	}
	if err := m.ctx.Draw(m.scene, m.camera); err != nil {
		m.stopLocked(err)
		return false
	}
	return true
}

// ContextLost stops the render loop. It is not restarted until Initialize.
func (m *Manager) ContextLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(ErrContextLost)
}

func (m *Manager) stopLocked(err error) {
	if !m.running {
		return
	}
	m.running = false
	if errors.Is(err, ErrContextLost) {
		utils.Warn("Engine3D: context lost, render loop stopped")
		return
	}
	utils.Error("Engine3D: draw failed, render loop stopped: %v", err)
}

// Present blits the last rendered frame into the bound container.
func (m *Manager) Present() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil || m.container == nil {
		return
	}
	m.ctx.Present(m.container.Bounds())
}

// Detach unbinds the container and clears the scene, keeping the context.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scene != nil {
		m.scene.Clear()
	}
	m.container = nil
}

// Cleanup stops the loop, releases the GPU context and returns its limiter
// slot. It is safe to call more than once.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked()
}

func (m *Manager) cleanupLocked() {
	m.running = false
	if m.scene != nil {
		m.scene.Clear()
	}
	if m.ctx != nil {
		release("gpu context", m.ctx)
		utils.Debug("Engine3D: context released")
	}
	if m.slot {
		m.limiter.Release()
		m.slot = false
	}
	m.ctx = nil
	m.scene = nil
	m.camera = nil
	m.container = nil
	m.hooks = nil
	m.last = time.Time{}
}

func (m *Manager) Scene() *Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scene
}

func (m *Manager) Camera() *Camera {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera
}

func (m *Manager) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

func (m *Manager) Container() Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.container
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) Tier() device.Tier { return m.tier }
