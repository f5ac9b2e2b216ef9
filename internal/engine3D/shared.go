package engine3D

import (
	"sync"
	"time"

	"duo-cards/internal/device"
	"duo-cards/internal/utils"
)

// Session is one staging session's hold on a GPU context.
type Session interface {
	Manager() *Manager
	// Release ends the session. Whether the context survives depends on the provider.
	Release()
}

// Provider hands GPU contexts to staging sessions and drives their frames.
type Provider interface {
	Open(c Container) (Session, error)
	Frame(now time.Time)
	Present()
	Destroy()
}

// Shared lends one Manager to one session at a time. Acquiring a new lease
// clears the scene and revokes the previous lease, so nothing from an older
// session stays reachable.
type Shared struct {
	mu      sync.Mutex
	manager *Manager
	current *Lease
}

func NewShared(m *Manager) *Shared {
	return &Shared{manager: m}
}

// Lease is the active session's claim on a Shared manager.
type Lease struct {
	shared *Shared
	once   sync.Once
}

// Acquire binds the shared manager to c for a new session.
func (s *Shared) Acquire(c Container) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.Initialize(c); err != nil {
		return nil, err
	}
	if s.current != nil {
		utils.Debug("Engine3D: shared context handed to a new session")
	}
	l := &Lease{shared: s}
	s.current = l
	return l, nil
}

func (s *Shared) Open(c Container) (Session, error) {
	l, err := s.Acquire(c)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Shared) Frame(now time.Time) { s.manager.Frame(now) }
func (s *Shared) Present()            { s.manager.Present() }

// Manager returns the underlying manager.
func (s *Shared) Manager() *Manager { return s.manager }

// Destroy revokes any lease and releases the GPU context. Used when the
// application exits.
func (s *Shared) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.manager.Cleanup()
}

// Active reports whether l is still the current lease.
func (l *Lease) Active() bool {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	return l.shared.current == l
}

func (l *Lease) Manager() *Manager { return l.shared.manager }

// Release clears the scene and detaches the container if l is still current.
// The GPU context stays alive for the next session.
func (l *Lease) Release() {
	l.once.Do(func() {
		s := l.shared
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current != l {
			return
		}
		s.current = nil
		s.manager.Detach()
	})
}

// Dedicated gives every session its own Manager, bounded by a shared Limiter.
type Dedicated struct {
	mu      sync.Mutex
	device  Device
	tier    device.Tier
	limiter *Limiter
	open    map[*dedicatedSession]struct{}
}

func NewDedicated(dev Device, tier device.Tier, limiter *Limiter) *Dedicated {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxContexts)
	}
	return &Dedicated{
		device:  dev,
		tier:    tier,
		limiter: limiter,
		open:    make(map[*dedicatedSession]struct{}),
	}
}

type dedicatedSession struct {
	owner   *Dedicated
	manager *Manager
	once    sync.Once
}

func (d *Dedicated) Open(c Container) (Session, error) {
	m := NewManager(d.device, d.tier, d.limiter)
	if err := m.Initialize(c); err != nil {
		return nil, err
	}
	s := &dedicatedSession{owner: d, manager: m}
	d.mu.Lock()
	d.open[s] = struct{}{}
	d.mu.Unlock()
	return s, nil
}

func (d *Dedicated) sessions() []*dedicatedSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*dedicatedSession, 0, len(d.open))
	for s := range d.open {
		out = append(out, s)
	}
	return out
}

func (d *Dedicated) Frame(now time.Time) {
	for _, s := range d.sessions() {
		s.manager.Frame(now)
	}
}

func (d *Dedicated) Present() {
	for _, s := range d.sessions() {
		s.manager.Present()
	}
}

// Destroy closes every open session.
func (d *Dedicated) Destroy() {
	for _, s := range d.sessions() {
		s.Release()
	}
}

// Len reports the number of open sessions.
func (d *Dedicated) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

func (s *dedicatedSession) Manager() *Manager { return s.manager }

func (s *dedicatedSession) Release() {
	s.once.Do(func() {
		s.manager.Cleanup()
		s.owner.mu.Lock()
		delete(s.owner.open, s)
		s.owner.mu.Unlock()
	})
}
