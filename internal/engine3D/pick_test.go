package engine3D_test

import (
	"image"
	"testing"

	"duo-cards/internal/engine3D"
	"duo-cards/internal/engine3D/enginetest"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(name string, pos, rot engine3D.Vec3) *engine3D.CardMesh {
	m, err := engine3D.NewCardMesh(&enginetest.Context{}, enginetest.Pair(), engine3D.MeshOptions{Name: name})
	if err != nil {
		panic(err)
	}
	m.Position, m.Rotation = pos, rot
	return m
}

func assertNear(t *testing.T, want, got engine3D.Vec3, eps float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x of %v", got)
	assert.InDelta(t, want.Y, got.Y, eps, "y of %v", got)
	assert.InDelta(t, want.Z, got.Z, eps, "z of %v", got)
}

func TestRotationOrder(t *testing.T) {
	// Z is applied first: a quarter turn about Z takes +X to +Y, then a
	// quarter turn about X takes +Y to +Z.
	q := engine3D.Rotation(engine3D.V3(math32.Pi/2, 0, math32.Pi/2))
	assertNear(t, engine3D.V3(0, 0, 1), engine3D.V3(1, 0, 0).MulQuat(q), 1e-5)

	flip := engine3D.Rotation(engine3D.V3(0, math32.Pi, 0))
	assertNear(t, engine3D.V3(-1, 2, -3), engine3D.V3(1, 2, 3).MulQuat(flip), 1e-5)
}

func TestTransformMatchesRotation(t *testing.T) {
	v := engine3D.V3(1, -2, 0.5)
	pos := engine3D.V3(1, 2, 3)
	q := engine3D.Rotation(engine3D.V3(0.3, -1.1, 2.2))

	got := engine3D.Apply(v, engine3D.Transform(pos, q))
	assertNear(t, v.MulQuat(q).Add(pos), got, 1e-5)
}

func TestCameraRayThroughCentre(t *testing.T) {
	cam := engine3D.NewCamera(16.0 / 9)
	r := cam.Ray(0, 0)
	assertNear(t, engine3D.V3(0, 0, 10), r.Origin, 1e-6)
	assertNear(t, engine3D.V3(0, 0, -1), r.Dir, 1e-6)

	x, y := cam.Project(engine3D.Vec3{})
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestCameraRayMatchesProjection(t *testing.T) {
	cam := engine3D.NewCamera(1.5)
	p := engine3D.V3(2, -1, -0.4)
	x, y := cam.Project(p)

	r := cam.Ray(x, y)
	assertNear(t, p.Sub(r.Origin).Normal(), r.Dir, 1e-4)
}

func TestPickNearestVisible(t *testing.T) {
	s := engine3D.NewScene()
	back := card("back", engine3D.V3(0, 0, -0.2), engine3D.Vec3{})
	front := card("front", engine3D.V3(0, 0, 0), engine3D.Vec3{})
	s.Add(engine3D.NewGroup("cards", back, front))

	cam := engine3D.NewCamera(1)
	hit, ok := s.Pick(cam.Ray(0, 0))
	require.True(t, ok)
	assert.Same(t, front, hit.Mesh)
	assert.Equal(t, 1, hit.Index)
	assert.InDelta(t, 10, hit.Distance, 1e-4)
	assertNear(t, engine3D.Vec3{}, hit.Point, 1e-4)

	front.Visible = false
	hit, ok = s.Pick(cam.Ray(0, 0))
	require.True(t, ok)
	assert.Same(t, back, hit.Mesh)

	back.Visible = false
	_, ok = s.Pick(cam.Ray(0, 0))
	assert.False(t, ok)
}

func TestPickBothSidesAndBounds(t *testing.T) {
	cam := engine3D.NewCamera(1)
	flipped := card("flipped", engine3D.Vec3{}, engine3D.V3(0, math32.Pi, 0))
	s := engine3D.NewScene()
	s.Add(engine3D.NewGroup("g", flipped))

	_, ok := s.Pick(cam.Ray(0, 0))
	assert.True(t, ok, "back side is pickable")

	x, y := cam.Project(engine3D.V3(engine3D.CardWidth/2+0.1, 0, 0))
	_, ok = s.Pick(cam.Ray(x, y))
	assert.False(t, ok, "outside the card")

	x, y = cam.Project(engine3D.V3(engine3D.CardWidth/2-0.1, engine3D.CardHeight/2-0.1, 0))
	_, ok = s.Pick(cam.Ray(x, y))
	assert.True(t, ok, "inside the corner")
}

func TestPickRespectsRotationAndGroupOffset(t *testing.T) {
	cam := engine3D.NewCamera(1)
	tilted := card("tilted", engine3D.V3(2, 0, 0), engine3D.V3(0, 0, math32.Pi/2))
	g := engine3D.NewGroup("g", tilted)
	g.Position = engine3D.V3(0, 1, 0)
	s := engine3D.NewScene()
	s.Add(g)

	// Rotated a quarter turn the card is 4.8 wide and 3.2 tall around (2,1,0).
	x, y := cam.Project(engine3D.V3(2+2.2, 1, 0))
	_, ok := s.Pick(cam.Ray(x, y))
	assert.True(t, ok)

	x, y = cam.Project(engine3D.V3(2, 1+2.2, 0))
	_, ok = s.Pick(cam.Ray(x, y))
	assert.False(t, ok)
}

func TestSceneAddRemoveClear(t *testing.T) {
	s := engine3D.NewScene()
	a := card("a", engine3D.Vec3{}, engine3D.Vec3{})
	g := engine3D.NewGroup("g", a)
	s.Add(g)
	s.Add(g)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains(a))

	assert.True(t, s.Remove(g))
	assert.False(t, s.Remove(g))
	assert.Zero(t, s.Len())

	s.Add(g)
	s.Clear()
	assert.False(t, s.Contains(a))
	assert.Equal(t, -1, g.IndexOf(card("b", engine3D.Vec3{}, engine3D.Vec3{})))
}

func TestPixelNDCRoundTrip(t *testing.T) {
	b := image.Rect(100, 50, 900, 650)
	x, y := engine3D.PixelToNDC(100, 50, b)
	assert.Equal(t, float32(-1), x)
	assert.Equal(t, float32(1), y)

	x, y = engine3D.PixelToNDC(500, 350, b)
	assert.Zero(t, x)
	assert.Zero(t, y)
	assert.Equal(t, image.Pt(500, 350), engine3D.NDCToPixel(x, y, b))
	assert.Equal(t, image.Pt(900, 650), engine3D.NDCToPixel(1, -1, b))
}

func TestCameraCorners(t *testing.T) {
	b := image.Rect(0, 0, 800, 800)
	cam := engine3D.NewCamera(1)
	m := card("c", engine3D.Vec3{}, engine3D.Vec3{})

	c := cam.Corners(m, engine3D.Vec3{}, b)
	centre := image.Pt(400, 400)
	assert.Less(t, c[0].X, centre.X)
	assert.Less(t, c[0].Y, centre.Y)
	assert.Greater(t, c[2].X, centre.X)
	assert.Greater(t, c[2].Y, centre.Y)
	assert.InDelta(t, centre.X-c[0].X, c[1].X-centre.X, 1)
	assert.InDelta(t, c[3].Y-c[0].Y, c[2].Y-c[1].Y, 1)
	assert.Greater(t, c[3].Y-c[0].Y, c[1].X-c[0].X, "portrait card")

	hit, ok := engine3D.NewScene().Pick(cam.Ray(engine3D.PixelToNDC(c[0].X+2, c[0].Y+2, b)))
	assert.False(t, ok, "empty scene")
	assert.Nil(t, hit.Mesh)
}
