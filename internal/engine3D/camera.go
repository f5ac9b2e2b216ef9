package engine3D

import (
	"image"

	"cogentcore.org/core/math32"
)

const (
	DefaultFOV  float32 = 60
	DefaultNear float32 = 0.1
	DefaultFar  float32 = 100
)

// Camera is a fixed perspective camera. FovY is in degrees.
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

// NewCamera places the camera at (0,0,10) looking down -Z.
func NewCamera(aspect float32) *Camera {
	if aspect <= 0 {
		aspect = 1
	}
	return &Camera{
		Position: V3(0, 0, 10),
		Target:   V3(0, 0, 0),
		Up:       V3(0, 1, 0),
		FovY:     DefaultFOV,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

func (c *Camera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.Aspect = aspect
	}
}

// View returns the world to camera transform.
func (c *Camera) View() *Mat4 {
	var look math32.Quat
	look.SetFromRotationMatrix(math32.NewLookAt(c.Position, c.Target, c.Up))
	view, err := Transform(c.Position, look).Inverse()
	if err != nil {
		return Transform(Vec3{}, math32.Quat{W: 1})
	}
	return view
}

func (c *Camera) Projection() *Mat4 {
	m := &Mat4{}
	m.SetPerspective(c.FovY, c.Aspect, c.Near, c.Far)
	return m
}

// Ray returns the world-space ray through the given normalized device
// coordinates (x right, y up, both in [-1, 1]).
func (c *Camera) Ray(ndcX, ndcY float32) Ray {
	forward := c.Target.Sub(c.Position).Normal()
	right := forward.Cross(c.Up).Normal()
	up := right.Cross(forward)

	t := math32.Tan(math32.DegToRad(c.FovY) / 2)
	dir := forward.
		Add(right.MulScalar(ndcX * t * c.Aspect)).
		Add(up.MulScalar(ndcY * t))
	return Ray{Origin: c.Position, Dir: dir.Normal()}
}

// Project maps a world point to normalized device coordinates.
func (c *Camera) Project(p Vec3) (ndcX, ndcY float32) {
	q := Apply(p, c.View(), c.Projection())
	return q.X, q.Y
}

// PixelToNDC maps a window pixel to normalized device coordinates of bounds.
func PixelToNDC(x, y int, bounds image.Rectangle) (ndcX, ndcY float32) {
	ndcX = 2*float32(x-bounds.Min.X)/float32(bounds.Dx()) - 1
	ndcY = -2*float32(y-bounds.Min.Y)/float32(bounds.Dy()) + 1
	return ndcX, ndcY
}

func NDCToPixel(ndcX, ndcY float32, bounds image.Rectangle) image.Point {
	return image.Pt(
		bounds.Min.X+int((ndcX+1)/2*float32(bounds.Dx())),
		bounds.Min.Y+int((1-ndcY)/2*float32(bounds.Dy())),
	)
}

// Corners projects the outline of m placed at world into bounds, clockwise
// from the top-left corner.
func (c *Camera) Corners(m *CardMesh, world Vec3, bounds image.Rectangle) [4]image.Point {
	var out [4]image.Point
	for i, p := range Outline(m, world) {
		x, y := c.Project(p)
		out[i] = NDCToPixel(x, y, bounds)
	}
	return out
}
