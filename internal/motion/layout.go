package motion

import (
	"github.com/chewxy/math32"

	"duo-cards/internal/engine3D"
)

// Layout constants in world units.
const (
	OverlapDepth float32 = 0.05
	FanDepth     float32 = 0.2
	GridDepth    float32 = 0.1
	GridGap      float32 = 1.4

	DefaultFanRadius float32 = 3.5
	DefaultFanSpread float32 = math32.Pi / 3
)

// OverlapPose stacks every card on the origin, each a little further back.
func OverlapPose(i int) engine3D.Vec3 {
	return engine3D.V3(0, 0, -OverlapDepth*float32(i))
}

// FanAngle is the arc angle of card i of n. A single card sits at 0.
func FanAngle(i, n int, spread float32) float32 {
	mid := float32(n-1) / 2
	if mid == 0 {
		return 0
	}
	return (float32(i) - mid) / mid * (spread / 2)
}

// FanPose places card i of n on a downward-bowing arc and returns its
// position and the Z rotation that tilts it along the arc.
func FanPose(i, n int, radius, spread float32) (engine3D.Vec3, float32) {
	angle := FanAngle(i, n, spread)
	s, c := math32.Sincos(angle)
	pos := engine3D.V3(radius*s, -radius*(1-c), -FanDepth*float32(i))
	return pos, -angle
}

// GridShape returns the column and row counts for n cards.
func GridShape(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math32.Ceil(math32.Sqrt(float32(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// GridPose centres a ceil(sqrt(n)) column grid on the origin. Rows fill from the bottom.
func GridPose(i, n int, gap float32) engine3D.Vec3 {
	cols, rows := GridShape(n)
	if cols == 0 {
		return engine3D.Vec3{}
	}
	col, row := i%cols, i/cols
	x := (float32(col) - float32(cols-1)/2) * gap
	y := (float32(row) - float32(rows-1)/2) * gap
	return engine3D.V3(x, y, -GridDepth*float32(i))
}
