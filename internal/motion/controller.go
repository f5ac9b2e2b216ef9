package motion

import (
	"context"
	"errors"
	"fmt"

	"duo-cards/internal/engine3D"
	"duo-cards/internal/utils"

	"github.com/chewxy/math32"
	"github.com/tanema/gween/ease"
	"golang.org/x/sync/errgroup"
)

var ErrBadIndex = errors.New("card index out of range")

// Feedback receives the tactile cues of the choreography. Implementations
// must not block; failures stay inside the implementation.
type Feedback interface {
	Draw()
	Fan(n int)
}

// Timing holds the step durations in seconds.
type Timing struct {
	Overlap float32
	Fan     float32
	Grid    float32
	Focus   float32
	Flip    float32

	Lift   float32
	LiftBy float32
	// HideAt is the fraction of the lift after which the other cards start fading.
	HideAt float32
	Hide   float32
	Centre float32
	Reveal float32
}

var DefaultTiming = Timing{
	Overlap: 0.6,
	Fan:     1.2,
	Grid:    0.9,
	Focus:   0.8,
	Flip:    0.8,
	Lift:    0.4,
	LiftBy:  0.5,
	HideAt:  0.5,
	Hide:    0.5,
	Centre:  0.5,
	Reveal:  0.6,
}

// Controller runs choreography steps over the meshes of one group. Each step
// returns once every tween it started has completed. The group's mesh set
// must not change while a step runs.
type Controller struct {
	anim     *Animator
	group    *engine3D.Group
	feedback Feedback
	Timing   Timing
}

func NewController(anim *Animator, group *engine3D.Group, feedback Feedback) *Controller {
	return &Controller{anim: anim, group: group, feedback: feedback, Timing: DefaultTiming}
}

func (c *Controller) Group() *engine3D.Group { return c.group }

// join waits for every channel, then reports ErrStopped if the animator was
// closed rather than the tweens finishing.
func (c *Controller) join(ctx context.Context, chans ...<-chan struct{}) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chans {
		g.Go(func() error {
			select {
			case <-ch:
				if c.anim.Stopped() {
					return ErrStopped
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

// Overlap gathers every card on the origin, face down and fully opaque.
func (c *Controller) Overlap(ctx context.Context) error {
	var chans []<-chan struct{}
	for i, m := range c.group.Meshes {
		p := OverlapPose(i)
		chans = append(chans, c.anim.Animate(m, Props{
			PosX: To(p.X), PosY: To(p.Y), PosZ: To(p.Z),
			RotX: To(0), RotY: To(0), RotZ: To(0),
			Opacity: To(1),
		}, Tween{Duration: c.Timing.Overlap, Ease: ease.OutQuad}))
	}
	utils.Debug("Motion: overlap %d cards", len(chans))
	return c.join(ctx, chans...)
}

// FanOut spreads the cards over an arc of the given radius and angular spread.
func (c *Controller) FanOut(ctx context.Context, radius, spread float32) error {
	if radius <= 0 {
		radius = DefaultFanRadius
	}
	if spread <= 0 {
		spread = DefaultFanSpread
	}

	n := len(c.group.Meshes)
	if c.feedback != nil {
		c.feedback.Fan(n)
	}

	var chans []<-chan struct{}
	for i, m := range c.group.Meshes {
		p, rotZ := FanPose(i, n, radius, spread)
		chans = append(chans, c.anim.Animate(m, Props{
			PosX: To(p.X), PosY: To(p.Y), PosZ: To(p.Z),
			RotZ: To(rotZ),
		}, Tween{Duration: c.Timing.Fan, Ease: ease.OutQuad}))
	}
	utils.Debug("Motion: fan out %d cards (r=%.2f, spread=%.2f)", n, radius, spread)
	return c.join(ctx, chans...)
}

// GridSpread lays the cards out on a centred grid.
func (c *Controller) GridSpread(ctx context.Context) error {
	n := len(c.group.Meshes)
	var chans []<-chan struct{}
	for i, m := range c.group.Meshes {
		p := GridPose(i, n, GridGap)
		chans = append(chans, c.anim.Animate(m, Props{
			PosX: To(p.X), PosY: To(p.Y), PosZ: To(p.Z),
			RotX: To(0), RotY: To(0), RotZ: To(0),
		}, Tween{Duration: c.Timing.Grid, Ease: ease.OutQuad}))
	}
	utils.Debug("Motion: grid spread %d cards", n)
	return c.join(ctx, chans...)
}

// FocusAndFlip centres every card, then turns the top one over.
func (c *Controller) FocusAndFlip(ctx context.Context) error {
	meshes := c.group.Meshes
	if len(meshes) == 0 {
		return nil
	}

	var chans []<-chan struct{}
	for _, m := range meshes {
		chans = append(chans, c.anim.Animate(m, Props{
			PosX: To(0), PosY: To(0), PosZ: To(0),
			RotZ: To(0),
		}, Tween{Duration: c.Timing.Focus, Ease: ease.OutQuad}))
	}
	if err := c.join(ctx, chans...); err != nil {
		return err
	}

	last := meshes[len(meshes)-1]
	return c.join(ctx, c.anim.Animate(last, Props{RotY: By(math32.Pi)}, Tween{Duration: c.Timing.Flip, Ease: ease.InOutQuad}))
}

// FocusSelected resolves a pick: the chosen card lifts, the others fade out
// and hide once the lift is half done, the chosen card centres after the
// lift, and when both are done it flips to show its front.
func (c *Controller) FocusSelected(ctx context.Context, index int) error {
	meshes := c.group.Meshes
	if index < 0 || index >= len(meshes) {
		return fmt.Errorf("%w: %d of %d", ErrBadIndex, index, len(meshes))
	}
	target := meshes[index]

	if c.feedback != nil {
		c.feedback.Draw()
	}

	lift := c.anim.Animate(target, Props{PosY: By(c.Timing.LiftBy)}, Tween{Duration: c.Timing.Lift, Ease: ease.OutQuad})

	var hides []<-chan struct{}
	for i, m := range meshes {
		if i == index {
			continue
		}
		hidden := m
		hides = append(hides, c.anim.Animate(m, Props{Opacity: To(0)}, Tween{
			Delay:      c.Timing.Lift * c.Timing.HideAt,
			Duration:   c.Timing.Hide,
			Ease:       ease.InQuad,
			OnComplete: func() { hidden.Visible = false },
		}))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.join(gctx, hides...) })
	g.Go(func() error {
		if err := c.join(gctx, lift); err != nil {
			return err
		}
		return c.join(gctx, c.anim.Animate(target, Props{
			PosX: To(0), PosY: To(0), PosZ: To(0),
			RotX: To(0), RotY: To(0), RotZ: To(0),
			Opacity: To(1),
		}, Tween{Duration: c.Timing.Centre, Ease: ease.InOutQuad}))
	})
	if err := g.Wait(); err != nil {
		return err
	}

	utils.Debug("Motion: revealing card %d", index)
	return c.join(ctx, c.anim.Animate(target, Props{RotY: To(math32.Pi)}, Tween{Duration: c.Timing.Reveal, Ease: ease.InOutQuad}))
}
