package debug

import (
	"duo-cards/internal/engine3D"
	"duo-cards/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func (d *DebugOverlay) getBoundingBoxToggleRect() rl.Rectangle {
	return rl.NewRectangle(
		10,
		float32(d.tabHeight+5),
		float32(d.sidebarWidth-20),
		20,
	)
}

func (d *DebugOverlay) drawBoundingBoxToggle() {
	rect := d.getBoundingBoxToggleRect()

	boxSize := float32(d.fontHeight) * 1.2
	boxX := rect.X
	boxY := rect.Y + (rect.Height-boxSize)/2

	rl.DrawRectangleLines(int32(boxX), int32(boxY), int32(boxSize), int32(boxSize), rl.White)
	if d.ShowBoundingBoxes {
		rl.DrawRectangle(int32(boxX+2), int32(boxY+2), int32(boxSize-4), int32(boxSize-4), rl.White)
	}

	d.DrawText("Show Pick Boxes", int32(boxX+boxSize+10), int32(boxY), int32(d.fontHeight), rl.White)
}

// drawCardBoundingBoxes outlines every visible card as the picker sees it.
// The picked card is yellow, the rest green.
func (d *DebugOverlay) drawCardBoundingBoxes(s *stage.Stage) {
	m := s.Manager()
	if m == nil {
		return
	}
	camera, scene := m.Camera(), m.Scene()
	if camera == nil || scene == nil {
		return
	}

	bounds := s.Bounds()
	if bounds.Empty() {
		return
	}
	rl.DrawRectangleLines(int32(bounds.Min.X), int32(bounds.Min.Y), int32(bounds.Dx()), int32(bounds.Dy()), rl.NewColor(0, 255, 255, 100))

	selected := s.Selected()
	for _, p := range scene.Visible() {
		col := rl.NewColor(0, 255, 0, 255)
		if p.Index == selected {
			col = rl.NewColor(255, 255, 0, 255)
		}

		corners := camera.Corners(p.Mesh, p.World, bounds)
		for i := range corners {
			a, b := corners[i], corners[(i+1)%len(corners)]
			rl.DrawLineV(rl.NewVector2(float32(a.X), float32(a.Y)), rl.NewVector2(float32(b.X), float32(b.Y)), col)
		}

		// Draw origin point as a small red rectangle
		nx, ny := camera.Project(p.World)
		o := engine3D.NDCToPixel(nx, ny, bounds)
		rl.DrawRectangle(int32(o.X-2), int32(o.Y-2), 4, 4, rl.Red)
	}
}
