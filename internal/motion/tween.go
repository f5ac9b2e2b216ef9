// Package motion tweens card meshes through the staging choreography.
package motion

import (
	"errors"
	"sync"

	"duo-cards/internal/engine3D"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// ErrStopped is returned by steps whose animator was closed underneath them.
var ErrStopped = errors.New("animator stopped")

// Animatable exposes the fields a tween may drive. *engine3D.CardMesh implements it.
type Animatable interface {
	Animated() (position, rotation *engine3D.Vec3, opacity *float32)
}

type Channel int

const (
	PosX Channel = iota
	PosY
	PosZ
	RotX
	RotY
	RotZ
	Opacity
)

// Value is an absolute or relative tween target.
type Value struct {
	v   float32
	rel bool
}

// To tweens a channel to v.
func To(v float32) Value { return Value{v: v} }

// By tweens a channel by d from wherever it is when the tween starts.
func By(d float32) Value { return Value{v: d, rel: true} }

// Props maps channels to their targets.
type Props map[Channel]Value

// Tween configures one animation. Times are in seconds.
type Tween struct {
	Duration float32
	Delay    float32
	Ease     ease.TweenFunc
	// OnComplete runs on the frame thread right before completion is signalled.
	OnComplete func()
}

type channelTween struct {
	field    *float32
	from, to float32
}

type job struct {
	target   Animatable
	props    Props
	opts     Tween
	delay    float32
	progress *gween.Tween
	channels []channelTween
	done     chan struct{}
	once     sync.Once
}

func (j *job) finish() { j.once.Do(func() { close(j.done) }) }

// Animator advances every pending tween on each Update. Animate may be called
// from any goroutine; Update and the target fields belong to the frame thread.
type Animator struct {
	mu     sync.Mutex
	jobs   []*job
	closed bool
}

func NewAnimator() *Animator { return &Animator{} }

// Animate schedules a tween of target and returns a channel closed when it
// completes or the animator is closed.
func (a *Animator) Animate(target Animatable, props Props, opts Tween) <-chan struct{} {
	j := &job{target: target, props: props, opts: opts, delay: opts.Delay, done: make(chan struct{})}
	if j.opts.Ease == nil {
		j.opts.Ease = ease.Linear
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		j.finish()
		return j.done
	}
	a.jobs = append(a.jobs, j)
	return j.done
}

// Update advances all tweens by dt seconds.
func (a *Animator) Update(dt float32) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	jobs := append([]*job(nil), a.jobs...)
	a.mu.Unlock()

	var finished []*job
	for _, j := range jobs {
		if j.step(dt) {
			finished = append(finished, j)
		}
	}
	if len(finished) == 0 {
		return
	}

	a.mu.Lock()
	kept := a.jobs[:0]
	for _, j := range a.jobs {
		if !contains(finished, j) {
			kept = append(kept, j)
		}
	}
	a.jobs = kept
	a.mu.Unlock()

	for _, j := range finished {
		if j.opts.OnComplete != nil {
			j.opts.OnComplete()
		}
		j.finish()
	}
}

func contains(jobs []*job, j *job) bool {
	for _, other := range jobs {
		if other == j {
			return true
		}
	}
	return false
}

// step advances j and reports whether it finished.
func (j *job) step(dt float32) bool {
	if j.delay > 0 {
		j.delay -= dt
		if j.delay > 0 {
			return false
		}
		dt = -j.delay
		j.delay = 0
	}

	if j.progress == nil {
		j.start()
		if j.opts.Duration <= 0 {
			j.apply(1, true)
			return true
		}
	}

	p, done := j.progress.Update(dt)
	j.apply(p, done)
	return done
}

// start captures the from values. Relative targets resolve against them.
func (j *job) start() {
	pos, rot, opacity := j.target.Animated()
	fields := map[Channel]*float32{
		PosX: &pos.X, PosY: &pos.Y, PosZ: &pos.Z,
		RotX: &rot.X, RotY: &rot.Y, RotZ: &rot.Z,
		Opacity: opacity,
	}
	for ch := PosX; ch <= Opacity; ch++ {
		v, ok := j.props[ch]
		if !ok {
			continue
		}
		field := fields[ch]
		to := v.v
		if v.rel {
			to += *field
		}
		j.channels = append(j.channels, channelTween{field: field, from: *field, to: to})
	}
	j.progress = gween.New(0, 1, j.opts.Duration, j.opts.Ease)
}

func (j *job) apply(p float32, done bool) {
	for _, c := range j.channels {
		if done {
			*c.field = c.to
			continue
		}
		*c.field = c.from + (c.to-c.from)*p
	}
}

// Pending reports the number of tweens not yet complete.
func (a *Animator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

// Close drops every pending tween and releases its waiters. Later Animate
// calls return an already closed channel.
func (a *Animator) Close() {
	a.mu.Lock()
	jobs := a.jobs
	a.jobs = nil
	a.closed = true
	a.mu.Unlock()

	for _, j := range jobs {
		j.finish()
	}
}

// Stopped reports whether Close was called.
func (a *Animator) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}
