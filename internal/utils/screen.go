package utils

import (
	"errors"
	"math"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ScreenInfo describes the default X11 screen.
type ScreenInfo struct {
	WidthPx  int
	HeightPx int
	WidthMM  int
	HeightMM int
}

var (
	screenOnce sync.Once
	screenInfo ScreenInfo
	screenErr  error
)

// Portrait reports whether the screen is taller than wide.
func (s ScreenInfo) Portrait() bool {
	return s.HeightPx > s.WidthPx
}

// DiagonalInches returns the physical diagonal, or 0 when the server does not report it.
func (s ScreenInfo) DiagonalInches() float64 {
	if s.WidthMM <= 0 || s.HeightMM <= 0 {
		return 0
	}
	w := float64(s.WidthMM) / 25.4
	h := float64(s.HeightMM) / 25.4
	return math.Sqrt(w*w + h*h)
}

// QueryScreen asks the X server for the default screen geometry. The result is
// cached; a missing display is reported once and every later call gets the same error.
func QueryScreen() (ScreenInfo, error) {
	screenOnce.Do(func() {
		conn, err := xgb.NewConn()
		if err != nil {
			screenErr = err
			return
		}
		defer conn.Close()

		setup := xproto.Setup(conn)
		if setup == nil || len(setup.Roots) == 0 {
			screenErr = errors.New("x11: no screens")
			return
		}
		screen := setup.DefaultScreen(conn)
		screenInfo = ScreenInfo{
			WidthPx:  int(screen.WidthInPixels),
			HeightPx: int(screen.HeightInPixels),
			WidthMM:  int(screen.WidthInMillimeters),
			HeightMM: int(screen.HeightInMillimeters),
		}
		Debug("X11 screen: %dx%d px, %dx%d mm", screenInfo.WidthPx, screenInfo.HeightPx, screenInfo.WidthMM, screenInfo.HeightMM)
	})
	return screenInfo, screenErr
}
