package debug

import (
	"fmt"
	"runtime"

	"duo-cards/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func (d *DebugOverlay) drawPanel(s *stage.Stage, tier string) {
	height := d.tabHeight + d.lineHeight*10
	rl.DrawRectangle(0, 0, int32(d.sidebarWidth), int32(height), rl.NewColor(0, 0, 0, 180))
	d.DrawText("duo-cards debug", 10, int32(d.tabHeight/4), int32(d.fontHeight), rl.White)
	d.drawBoundingBoxToggle()

	lines := []string{
		fmt.Sprintf("State: %s", s.State()),
		fmt.Sprintf("Selected: %d", s.Selected()),
		fmt.Sprintf("Tier: %s", tier),
		fmt.Sprintf("FPS: %.1f (raylib %d)", d.fps, rl.GetFPS()),
		fmt.Sprintf("Frame Time: %.2f ms", rl.GetFrameTime()*1000),
		fmt.Sprintf("Heap Alloc: %.2f MB", float64(d.memStats.HeapAlloc)/1024/1024),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
	}
	if m := s.Manager(); m != nil {
		lines = append(lines, fmt.Sprintf("Render loop: %v", m.Running()))
	}

	y := d.tabHeight + d.lineHeight + 10
	for _, line := range lines {
		d.DrawText(line, 10, int32(y), int32(d.fontHeight), rl.LightGray)
		y += d.lineHeight
	}
}
