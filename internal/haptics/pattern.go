// Package haptics describes the tactile cues of the game as on/off patterns
// and renders them as short audio clips for hosts without a vibration motor.
package haptics

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/chewxy/math32"
)

// Pattern alternates on and off durations in milliseconds, starting with on.
type Pattern []int

var (
	// Draw is played when a card is picked.
	Draw    = Pattern{20, 10, 25, 15, 35}
	Success = Pattern{30, 80, 30}
)

// Staircase gives each fanned card a pulse. Pulses grow by 5ms up to 60ms
// and the gaps shrink by 10ms down to 80ms.
func Staircase(cards, base int) Pattern {
	if base <= 0 {
		base = 30
	}
	p := make(Pattern, 0, 2*cards)
	for i := 0; i < cards; i++ {
		p = append(p, min(base+5*i, 60), max(120-10*i, 80))
	}
	return p
}

func (p Pattern) Duration() time.Duration {
	var total int
	for _, ms := range p {
		total += ms
	}
	return time.Duration(total) * time.Millisecond
}

const (
	SampleRate = 22050
	ToneHz     = 180
	rampMs     = 2
	amplitude  = 0.6 * math.MaxInt16
)

// Samples renders p as 16-bit mono PCM: a sine tone while on, silence while off.
// Each pulse fades in and out over a couple of milliseconds.
func (p Pattern) Samples(sampleRate int, freq float32) []int16 {
	perMs := sampleRate / 1000
	ramp := rampMs * perMs

	var out []int16
	for i, ms := range p {
		n := ms * perMs
		if i%2 == 1 {
			out = append(out, make([]int16, n)...)
			continue
		}
		for j := 0; j < n; j++ {
			gain := float32(1)
			if j < ramp {
				gain = float32(j) / float32(ramp)
			} else if n-j < ramp {
				gain = float32(n-j) / float32(ramp)
			}
			phase := 2 * math32.Pi * freq * float32(j) / float32(sampleRate)
			out = append(out, int16(gain * amplitude * math32.Sin(phase)))
		}
	}
	return out
}

// PCM16LE is Samples encoded little-endian, ready for an audio buffer.
func (p Pattern) PCM16LE(sampleRate int, freq float32) []byte {
	samples := p.Samples(sampleRate, freq)
	buf := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}
