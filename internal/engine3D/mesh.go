package engine3D

import (
	"fmt"

	"duo-cards/internal/faces"
	"duo-cards/internal/utils"
)

// Card size in world units.
const (
	CardWidth  float32 = 3.2
	CardHeight float32 = 4.8
)

type MeshOptions struct {
	Name   string
	Width  float32
	Height float32
}

// CardMesh is one double-sided card: a planar quad whose material paints the
// back texture on the side facing +Z and the mirrored front texture on the
// other side. A new card therefore shows its back until rotated by pi about Y.
type CardMesh struct {
	Name     string
	Position Vec3
	Rotation Vec3
	Visible  bool
	Opacity  float32

	width    float32
	height   float32
	front    Texture
	back     Texture
	material Material
	geometry Geometry
	disposed bool
}

// NewCardMesh uploads pair and builds the card geometry on ctx. On failure
// everything created so far is released.
func NewCardMesh(ctx Context, pair faces.Pair, opts MeshOptions) (_ *CardMesh, err error) {
	if ctx == nil {
		return nil, ErrNotInitialized
	}
	if pair.Front == nil || pair.Back == nil {
		return nil, fmt.Errorf("card mesh %q: missing face image", opts.Name)
	}

	m := &CardMesh{
		Name:    opts.Name,
		Visible: true,
		Opacity: 1,
		width:   opts.Width,
		height:  opts.Height,
	}
	if m.width <= 0 {
		m.width = CardWidth
	}
	if m.height <= 0 {
		m.height = CardHeight
	}

	defer func() {
		if err != nil {
			m.Dispose()
		}
	}()

	if m.front, err = ctx.UploadTexture(pair.Front); err != nil {
		return nil, fmt.Errorf("card mesh %q: front texture: %w", opts.Name, err)
	}
	if m.back, err = ctx.UploadTexture(pair.Back); err != nil {
		return nil, fmt.Errorf("card mesh %q: back texture: %w", opts.Name, err)
	}
	if m.material, err = ctx.NewMaterial(m.front, m.back); err != nil {
		return nil, fmt.Errorf("card mesh %q: material: %w", opts.Name, err)
	}
	if m.geometry, err = ctx.NewQuad(m.width, m.height); err != nil {
		return nil, fmt.Errorf("card mesh %q: geometry: %w", opts.Name, err)
	}
	return m, nil
}

func (m *CardMesh) Size() (width, height float32) { return m.width, m.height }
func (m *CardMesh) Material() Material            { return m.material }
func (m *CardMesh) Geometry() Geometry            { return m.geometry }
func (m *CardMesh) Disposed() bool                { return m.disposed }

// Animated exposes the tweened fields.
func (m *CardMesh) Animated() (position, rotation *Vec3, opacity *float32) {
	return &m.Position, &m.Rotation, &m.Opacity
}

// UpdateTextures swaps in new faces without rebuilding the geometry. The old
// textures are released once the new ones are bound.
func (m *CardMesh) UpdateTextures(ctx Context, pair faces.Pair) error {
	if m.disposed {
		return fmt.Errorf("card mesh %q: disposed", m.Name)
	}
	if pair.Front == nil || pair.Back == nil {
		return fmt.Errorf("card mesh %q: missing face image", m.Name)
	}

	front, err := ctx.UploadTexture(pair.Front)
	if err != nil {
		return fmt.Errorf("card mesh %q: front texture: %w", m.Name, err)
	}
	back, err := ctx.UploadTexture(pair.Back)
	if err != nil {
		release("front texture", front)
		return fmt.Errorf("card mesh %q: back texture: %w", m.Name, err)
	}

	m.material.Bind(front, back)
	oldFront, oldBack := m.front, m.back
	m.front, m.back = front, back
	release(m.Name+" front texture", oldFront)
	release(m.Name+" back texture", oldBack)
	return nil
}

type releaser interface {
	Release() error
}

// Dispose releases the front texture, back texture, material and geometry in
// that order. Every step runs even if an earlier one fails. Calling Dispose
// again does nothing.
func (m *CardMesh) Dispose() {
	if m == nil || m.disposed {
		return
	}
	m.disposed = true
	m.Visible = false

	if m.front != nil {
		release(m.Name+" front texture", m.front)
	}
	if m.back != nil {
		release(m.Name+" back texture", m.back)
	}
	if m.material != nil {
		release(m.Name+" material", m.material)
	}
	if m.geometry != nil {
		release(m.Name+" geometry", m.geometry)
	}
	m.front, m.back, m.material, m.geometry = nil, nil, nil, nil
	utils.Debug("Engine3D: disposed card mesh %q", m.Name)
}

func release(what string, r releaser) {
	defer func() {
		if p := recover(); p != nil {
			utils.Warn("Engine3D: releasing %s panicked: %v", what, p)
		}
	}()
	if err := r.Release(); err != nil {
		utils.Warn("Engine3D: releasing %s: %v", what, err)
	}
}
