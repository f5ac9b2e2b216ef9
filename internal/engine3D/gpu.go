// Package engine3D stages card meshes in a perspective scene rendered by a
// pluggable GPU backend.
package engine3D

import (
	"errors"
	"image"
)

var (
	ErrContextCeiling = errors.New("gpu context ceiling reached")
	ErrNotInitialized = errors.New("scene manager not initialized")
	ErrContextLost    = errors.New("gpu context lost")
)

// Device creates GPU contexts. The raylib backend lives in engine3D/rlgpu.
type Device interface {
	NewContext(size image.Point) (Context, error)
}

// Context is one GPU rendering context with its own render target.
// All methods must be called from the thread that owns the context.
type Context interface {
	UploadTexture(img *image.RGBA) (Texture, error)
	NewMaterial(front, back Texture) (Material, error)
	NewQuad(width, height float32) (Geometry, error)

	// Resize reallocates the render target in device pixels.
	Resize(size image.Point) error
	// Draw renders the scene into the render target.
	Draw(scene *Scene, camera *Camera) error
	// Present blits the last rendered target into dst (window pixels).
	Present(dst image.Rectangle)
	// Lost reports whether the driver dropped the context.
	Lost() bool
	Release() error
}

type Texture interface {
	Size() image.Point
	Release() error
}

// Material is the face-selection shader instance bound to a front and a back texture.
type Material interface {
	Bind(front, back Texture)
	Release() error
}

type Geometry interface {
	Release() error
}

// Container is the window region a scene is attached to.
type Container interface {
	Bounds() image.Rectangle
}

// Region is a fixed Container.
type Region image.Rectangle

func (r Region) Bounds() image.Rectangle { return image.Rectangle(r) }
