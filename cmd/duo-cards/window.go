package main

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"time"

	"duo-cards/internal/debug"
	"duo-cards/internal/deck"
	"duo-cards/internal/device"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/faces"
	"duo-cards/internal/stage"
	"duo-cards/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// windowContainer follows the window size, so picking and presenting stay
// aligned after a resize. The stage narrows it unless running fullscreen.
type windowContainer struct{}

func (windowContainer) Bounds() image.Rectangle {
	return image.Rect(0, 0, rl.GetScreenWidth(), rl.GetScreenHeight())
}

type Window struct {
	cfg          *Config
	tier         device.Tier
	provider     engine3D.Provider
	source       faces.Source
	deck         *deck.Deck
	rng          *rand.Rand
	cues         *Cues
	container    windowContainer
	debugOverlay *debug.DebugOverlay

	stage     *stage.Stage
	round     int
	hand      []deck.Card
	picked    chan int
	chosen    *deck.Card
	nextRound bool
	lastSize  image.Point
	bgColor   rl.Color
}

func NewWindow(cfg *Config, tier device.Tier, provider engine3D.Provider, source faces.Source, d *deck.Deck, rng *rand.Rand) *Window {
	return &Window{
		cfg:          cfg,
		tier:         tier,
		provider:     provider,
		source:       source,
		deck:         d,
		rng:          rng,
		cues:         NewCues(),
		container:    windowContainer{},
		debugOverlay: debug.NewDebugOverlay(),
		bgColor:      rl.NewColor(0x03, 0x07, 0x12, 0xff),
	}
}

func (window *Window) Run(ctx context.Context) {
	rl.SetTargetFPS(60)
	window.newRound(ctx)

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		window.Update(ctx)

		rl.BeginDrawing()
		window.Draw()
		rl.EndDrawing()
	}
}

func (window *Window) newRound(ctx context.Context) {
	window.nextRound = false
	if window.stage != nil {
		window.stage.Unmount()
	}

	window.round++
	window.hand = window.deck.Deal(window.cfg.cards, window.rng)
	window.chosen = nil

	picked := make(chan int, 1)
	window.picked = picked

	strategy, _ := stage.ParseStrategy(window.cfg.strategy)
	opts := stage.DefaultOptions()
	opts.Strategy = strategy
	opts.EnableClickSelect = !window.cfg.noClickSelect
	opts.Fullscreen = window.cfg.fullscreen
	opts.Feedback = window.cues
	opts.OnCardSelected = func(i int) { picked <- i }
	opts.OnNext = func() { window.nextRound = true }

	window.stage = stage.New(window.provider, window.source, window.tier.TextureSize, opts)
	if err := window.stage.Mount(ctx, window.container, window.hand); err != nil {
		utils.Error("Round %d: %v", window.round, err)
	}
	rl.SetWindowTitle(fmt.Sprintf("duo-cards - round %d", window.round))
	utils.Info("Round %d: dealt %d cards", window.round, len(window.hand))
}

func (window *Window) Update(ctx context.Context) {
	if rl.IsKeyPressed(rl.KeyF8) {
		utils.ShowDebugUI = !utils.ShowDebugUI
	}
	if utils.ShowDebugUI {
		window.debugOverlay.Update()
	}

	if size := image.Pt(rl.GetScreenWidth(), rl.GetScreenHeight()); size != window.lastSize {
		window.lastSize = size
		if m := window.stage.Manager(); m != nil {
			b := window.stage.Bounds()
			if err := m.Resize(b.Dx(), b.Dy()); err != nil {
				utils.Warn("Resize to %v failed: %v", b, err)
			}
		}
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		p := rl.GetMousePosition()
		x, y := int(p.X), int(p.Y)
		switch {
		case utils.ShowDebugUI && window.debugOverlay.Captures(x, y):
		case window.stage.State() == stage.Resolved:
			window.stage.Next()
		default:
			window.stage.Click(x, y)
		}
	}
	if rl.IsKeyPressed(rl.KeySpace) || rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeyN) {
		if window.stage.State() == stage.Failed {
			window.nextRound = true
		} else {
			window.stage.Next()
		}
	}

	select {
	case i := <-window.picked:
		window.chosen = &window.hand[i]
		window.cues.Success()
		utils.Info("Round %d: picked %q", window.round, window.chosen.Title)
	default:
	}

	if window.nextRound {
		window.newRound(ctx)
	}

	window.cues.Update()
	window.provider.Frame(time.Now())
}

func (window *Window) Draw() {
	rl.ClearBackground(window.bgColor)
	window.provider.Present()

	b := window.stage.Bounds()
	if b.Empty() {
		b = window.container.Bounds()
	}
	fontSize := int32(20)
	hint := ""
	switch window.stage.State() {
	case stage.AwaitingPick:
		hint = "Pick a card"
	case stage.Resolved:
		hint = "Click or press space for the next card"
	case stage.Failed:
		hint = "Could not stage the cards, press space to retry"
	}
	if hint != "" {
		w := rl.MeasureText(hint, fontSize)
		rl.DrawText(hint, int32(b.Min.X+b.Dx()/2)-w/2, int32(b.Max.Y)-fontSize-10, fontSize, rl.LightGray)
	}

	if utils.ShowDebugUI {
		window.debugOverlay.Draw(window.stage, window.tier.Name)
	}
}

// Close ends the last round and releases the GPU context and audio.
func (window *Window) Close() {
	if window.stage != nil {
		window.stage.Unmount()
	}
	window.provider.Destroy()
	window.cues.Close()
}
