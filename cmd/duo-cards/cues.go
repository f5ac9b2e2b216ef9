package main

import (
	"fmt"

	"duo-cards/internal/haptics"
	"duo-cards/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Cues plays the haptic patterns as short tones. Draw and Fan are called from
// choreography goroutines, so they only queue; Update plays on the window thread.
type Cues struct {
	pending chan haptics.Pattern
	sounds  map[string]rl.Sound
	ready   bool
}

func NewCues() *Cues {
	c := &Cues{
		pending: make(chan haptics.Pattern, 8),
		sounds:  make(map[string]rl.Sound),
	}
	if utils.SilentMode {
		return c
	}
	if !rl.IsAudioDeviceReady() {
		rl.InitAudioDevice()
	}
	c.ready = rl.IsAudioDeviceReady()
	if !c.ready {
		utils.Debug("Cues: no audio device, cues disabled")
	}
	return c
}

func (c *Cues) Draw()     { c.push(haptics.Draw) }
func (c *Cues) Fan(n int) { c.push(haptics.Staircase(n, 30)) }
func (c *Cues) Success()  { c.push(haptics.Success) }

// push never blocks. A cue that does not fit is dropped.
func (c *Cues) push(p haptics.Pattern) {
	if !c.ready {
		return
	}
	select {
	case c.pending <- p:
	default:
		utils.Debug("Cues: queue full, dropping %v", p)
	}
}

func (c *Cues) Update() {
	for {
		select {
		case p := <-c.pending:
			c.play(p)
		default:
			return
		}
	}
}

func (c *Cues) play(p haptics.Pattern) {
	key := fmt.Sprint([]int(p))
	sound, ok := c.sounds[key]
	if !ok {
		data := p.PCM16LE(haptics.SampleRate, haptics.ToneHz)
		if len(data) == 0 {
			return
		}
		wave := rl.NewWave(uint32(len(data)/2), haptics.SampleRate, 16, 1, data)
		sound = rl.LoadSoundFromWave(wave)
		c.sounds[key] = sound
		utils.Debug("Cues: synthesized %v (%s)", p, p.Duration())
	}
	rl.PlaySound(sound)
}

func (c *Cues) Close() {
	for _, s := range c.sounds {
		rl.UnloadSound(s)
	}
	c.sounds = nil
	if c.ready && rl.IsAudioDeviceReady() {
		rl.CloseAudioDevice()
	}
}
