// Package device picks rendering quality settings from the host's capabilities.
package device

import (
	"fmt"
	"image"
	"os"
	"runtime"
	"strings"

	"duo-cards/internal/utils"
)

// Tier is the quality/performance trade-off applied to a staging session.
type Tier struct {
	Name          string
	PixelRatioCap float32
	TargetFPS     int
	TextureSize   image.Point
	CompressCache bool
}

var (
	Low    = Tier{Name: "low", PixelRatioCap: 1, TargetFPS: 30, TextureSize: image.Pt(512, 768), CompressCache: true}
	Medium = Tier{Name: "medium", PixelRatioCap: 1.5, TargetFPS: 30, TextureSize: image.Pt(1024, 1536), CompressCache: true}
	High   = Tier{Name: "high", PixelRatioCap: 2, TargetFPS: 60, TextureSize: image.Pt(1536, 2304)}
)

// Caps is what the probe found out about the host.
type Caps struct {
	Mobile   bool
	MemoryGB float64
	Cores    int
}

const (
	defaultMemoryGB = 4
	defaultCores    = 4
)

// Select maps capabilities to a tier: weak mobile hardware gets Low, any
// mobile or small-memory host gets Medium, everything else High.
func Select(c Caps) Tier {
	mem := c.MemoryGB
	if mem <= 0 {
		mem = defaultMemoryGB
	}
	cores := c.Cores
	if cores <= 0 {
		cores = defaultCores
	}

	switch {
	case c.Mobile && (mem <= 2 || cores <= 2):
		return Low
	case c.Mobile || mem <= 4:
		return Medium
	default:
		return High
	}
}

// ByName resolves a configured tier; "auto" or "" probes the host.
func ByName(name string) (Tier, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return Select(Probe()), nil
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return Tier{}, fmt.Errorf("unknown device tier %q", name)
}

// Probe inspects the running host. A failed memory or screen probe only leaves
// the corresponding field at its zero value.
func Probe() Caps {
	caps := Caps{Cores: runtime.NumCPU()}

	if mem, err := totalMemoryGB(); err == nil {
		caps.MemoryGB = mem
	} else {
		utils.Debug("Device: memory probe failed: %v", err)
	}

	if screen, err := utils.QueryScreen(); err == nil {
		caps.Mobile = looksMobile(screen)
	} else {
		utils.Debug("Device: screen probe failed: %v", err)
	}

	if os.Getenv("DUOCARDS_MOBILE") == "1" {
		caps.Mobile = true
	}

	utils.Info("Device: mobile=%v memory=%.1fGB cores=%d", caps.Mobile, caps.MemoryGB, caps.Cores)
	return caps
}

// looksMobile treats portrait screens and physically small panels as handheld.
func looksMobile(s utils.ScreenInfo) bool {
	if s.Portrait() {
		return true
	}
	d := s.DiagonalInches()
	return d > 0 && d < 11
}

func bytesToGB(n uint64) float64 { return float64(n) / (1 << 30) }
