// Package debug draws the F8 overlay: card outlines, the stage state and
// timing figures.
package debug

import (
	"math"
	"runtime"
	"time"

	"duo-cards/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type DebugOverlay struct {
	ShowBoundingBoxes bool

	// UI State
	fontHeight   int
	lineHeight   int
	tabHeight    int
	sidebarWidth int

	prevLeftMouseButton bool
	monitorHeight       int

	// Performance Monitoring
	lastUpdateTime time.Time
	frameCount     int
	fps            float64
	memStats       runtime.MemStats
}

func NewDebugOverlay() *DebugOverlay {
	d := &DebugOverlay{
		ShowBoundingBoxes: true,
		monitorHeight:     rl.GetMonitorHeight(rl.GetCurrentMonitor()),
		lastUpdateTime:    time.Now(),
	}
	d.updateLayout()
	return d
}

func (d *DebugOverlay) updateLayout() {
	scale := math.Max(1.0, float64(d.monitorHeight)/1080.0)
	d.fontHeight = int(16 * scale)
	d.lineHeight = int(24 * scale)
	d.tabHeight = int(40 * scale)
	d.sidebarWidth = int(320 * scale)
}

func (d *DebugOverlay) Update() {
	d.updateLayout()

	d.frameCount++
	now := time.Now()
	if elapsed := now.Sub(d.lastUpdateTime).Seconds(); elapsed >= 0.5 {
		d.fps = float64(d.frameCount) / elapsed
		d.frameCount = 0
		d.lastUpdateTime = now
		runtime.ReadMemStats(&d.memStats)
	}

	down := rl.IsMouseButtonDown(rl.MouseButtonLeft)
	if down && !d.prevLeftMouseButton {
		m := rl.GetMousePosition()
		if rl.CheckCollisionPointRec(m, d.getBoundingBoxToggleRect()) {
			d.ShowBoundingBoxes = !d.ShowBoundingBoxes
		}
	}
	d.prevLeftMouseButton = down
}

// Captures reports whether the overlay owns the pointer at (x, y), so the
// host does not forward the press to the stage.
func (d *DebugOverlay) Captures(x, y int) bool {
	return x < d.sidebarWidth && y < d.tabHeight+d.lineHeight*10
}

func (d *DebugOverlay) Draw(s *stage.Stage, tier string) {
	if s == nil {
		return
	}
	if d.ShowBoundingBoxes {
		d.drawCardBoundingBoxes(s)
	}
	d.drawPanel(s, tier)
}

func (d *DebugOverlay) DrawText(text string, x, y, size int32, col rl.Color) {
	rl.DrawText(text, x, y, size, col)
}
