// Package enginetest provides an in-memory GPU for testing code built on engine3D.
package enginetest

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"duo-cards/internal/deck"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/faces"
)

// Device records every context it creates. Set Fail to refuse new contexts.
type Device struct {
	mu       sync.Mutex
	Contexts []*Context
	Fail     error
}

func (d *Device) NewContext(size image.Point) (engine3D.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return nil, d.Fail
	}
	c := &Context{size: size}
	d.Contexts = append(d.Contexts, c)
	return c, nil
}

// Live counts contexts that were created and not released.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.Contexts {
		if !c.Released() {
			n++
		}
	}
	return n
}

// Last returns the most recently created context.
func (d *Device) Last() *Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Contexts) == 0 {
		return nil
	}
	return d.Contexts[len(d.Contexts)-1]
}

// Context logs allocations ("upload texN", "material", "quad WxH") and
// releases ("release <name>") in call order.
type Context struct {
	mu        sync.Mutex
	size      image.Point
	log       []string
	textures  int
	live      int
	draws     int
	presented []image.Rectangle
	lost      bool
	released  bool

	// Failure injection.
	DrawErr    error
	FailUpload int
	FailQuad   bool
	PanicOn    string
}

func (c *Context) record(s string) {
	c.mu.Lock()
	c.log = append(c.log, s)
	c.mu.Unlock()
}

func (c *Context) UploadTexture(img *image.RGBA) (engine3D.Texture, error) {
	c.mu.Lock()
	c.textures++
	n := c.textures
	fail := c.FailUpload == n
	c.mu.Unlock()
	if fail {
		return nil, errors.New("upload failed")
	}
	name := fmt.Sprintf("tex%d", n)
	c.record("upload " + name)
	c.adjustLive(1)
	return &Resource{ctx: c, Name: name, size: img.Rect.Size()}, nil
}

func (c *Context) NewMaterial(front, back engine3D.Texture) (engine3D.Material, error) {
	c.record("material")
	c.adjustLive(1)
	m := &Material{Resource: Resource{ctx: c, Name: "material"}}
	m.Bind(front, back)
	return m, nil
}

func (c *Context) NewQuad(width, height float32) (engine3D.Geometry, error) {
	c.mu.Lock()
	fail := c.FailQuad
	c.mu.Unlock()
	if fail {
		return nil, errors.New("quad failed")
	}
	c.record(fmt.Sprintf("quad %.1fx%.1f", width, height))
	c.adjustLive(1)
	return &Resource{ctx: c, Name: "geometry"}, nil
}

func (c *Context) adjustLive(d int) {
	c.mu.Lock()
	c.live += d
	c.mu.Unlock()
}

func (c *Context) Resize(size image.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
	return nil
}

func (c *Context) Draw(scene *engine3D.Scene, camera *engine3D.Camera) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DrawErr != nil {
		return c.DrawErr
	}
	c.draws++
	return nil
}

func (c *Context) Present(dst image.Rectangle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presented = append(c.presented, dst)
}

func (c *Context) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// SetLost simulates the driver dropping (or restoring) the context.
func (c *Context) SetLost(lost bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lost = lost
}

func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	return nil
}

func (c *Context) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *Context) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Context) Draws() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draws
}

func (c *Context) Presented() []image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]image.Rectangle(nil), c.presented...)
}

// LiveResources counts textures, materials and geometries not yet released.
func (c *Context) LiveResources() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Context) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// Releases lists released resource names in order.
func (c *Context) Releases() []string {
	var out []string
	for _, s := range c.Log() {
		if name, ok := strings.CutPrefix(s, "release "); ok {
			out = append(out, name)
		}
	}
	return out
}

// Resource is a fake texture or geometry.
type Resource struct {
	ctx      *Context
	Name     string
	size     image.Point
	released int
}

func (r *Resource) Size() image.Point { return r.size }

// ReleaseCount reports how many times Release was called.
func (r *Resource) ReleaseCount() int { return r.released }

func (r *Resource) Release() error {
	r.released++
	r.ctx.record("release " + r.Name)
	if r.released == 1 {
		r.ctx.adjustLive(-1)
	}
	r.ctx.mu.Lock()
	panicOn := r.ctx.PanicOn
	r.ctx.mu.Unlock()
	if panicOn == r.Name {
		panic("release " + r.Name)
	}
	return nil
}

type Material struct {
	Resource
	Front, Back engine3D.Texture
}

func (m *Material) Bind(front, back engine3D.Texture) {
	m.Front, m.Back = front, back
}

// Pair returns a small blank face pair.
func Pair() faces.Pair {
	return faces.Pair{
		Front: image.NewRGBA(image.Rect(0, 0, 8, 12)),
		Back:  image.NewRGBA(image.Rect(0, 0, 8, 12)),
	}
}

// Source builds blank faces for any card.
type Source struct {
	mu    sync.Mutex
	Calls int
	Fail  error
}

func (s *Source) Build(card deck.Card, size image.Point) (faces.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Fail != nil {
		return faces.Pair{}, s.Fail
	}
	return Pair(), nil
}
