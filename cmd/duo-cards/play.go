package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"duo-cards/internal/deck"
	"duo-cards/internal/device"
	"duo-cards/internal/engine3D"
	"duo-cards/internal/engine3D/rlgpu"
	"duo-cards/internal/faces"
	"duo-cards/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Play opens the window and deals rounds until it is closed.
func Play(ctx context.Context, cfg *Config) error {
	closeLog, err := configureLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	utils.AssetsDir = cfg.assets

	if cfg.exportDeck != "" {
		return exportDeck(cfg)
	}

	tier, err := device.ByName(cfg.tier)
	if err != nil {
		return err
	}
	if cfg.fps > 0 {
		tier.TargetFPS = cfg.fps
	}
	utils.Info("Using %s tier (%d fps, %v faces)", tier.Name, tier.TargetFPS, tier.TextureSize)

	d, err := loadDeck(cfg.deck)
	if err != nil {
		return err
	}

	source, err := newFaceSource(cfg, tier)
	if err != nil {
		return err
	}

	rl.SetTraceLogCallback(utils.RaylibLogCallback)
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint | rl.FlagVsyncHint)
	rl.InitWindow(int32(cfg.width), int32(cfg.height), "duo-cards")
	defer rl.CloseWindow()

	limiter := engine3D.NewLimiter(cfg.maxContexts)
	var provider engine3D.Provider
	if cfg.dedicated {
		provider = engine3D.NewDedicated(rlgpu.NewDevice(), tier, limiter)
	} else {
		provider = engine3D.NewShared(engine3D.NewManager(rlgpu.NewDevice(), tier, limiter))
	}

	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	utils.Debug("Deal seed: %d", seed)

	window := NewWindow(cfg, tier, provider, source, d, rand.New(rand.NewSource(seed)))
	defer window.Close()
	window.Run(ctx)
	return nil
}

// configureLogging applies the verbosity flags. An explicit --log-level wins
// over --debug and --verbose. The returned func closes the log file.
func configureLogging(cfg *Config) (func(), error) {
	switch {
	case cfg.debug:
		utils.CurrentLevel = utils.LevelDebug
		utils.DebugMode = true
	case cfg.verbose:
		utils.CurrentLevel = utils.LevelInfo
		utils.ShowRaylibInfo = true
	}
	if cfg.logLevel != "" {
		level, err := utils.ParseLevel(cfg.logLevel)
		if err != nil {
			return nil, err
		}
		utils.CurrentLevel = level
	}
	utils.SilentMode = cfg.silent

	if cfg.logFile == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	utils.SetOutput(f)
	return func() {
		utils.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// exportDeck writes the configured deck to --export-deck, e.g. to pack a JSON
// deck into .json.lz4, and returns without opening a window.
func exportDeck(cfg *Config) error {
	d, err := loadDeck(cfg.deck)
	if err != nil {
		return err
	}
	if err := d.Save(cfg.exportDeck); err != nil {
		return fmt.Errorf("export deck: %w", err)
	}
	utils.Info("Exported %d cards to %s", len(d.Cards), cfg.exportDeck)
	return nil
}

func loadDeck(path string) (*deck.Deck, error) {
	if path == "" {
		return deck.Default()
	}
	return deck.Load(utils.ResolveAssetPath(path))
}

func newFaceSource(cfg *Config, tier device.Tier) (faces.Source, error) {
	var opts faces.Options

	if cfg.font != "" {
		path := utils.FindFontFile(cfg.font)
		if path == "" {
			return nil, fmt.Errorf("font %q not found", cfg.font)
		}
		opts.FontPath = path
	}

	if cfg.back != "" {
		if path := utils.FindPatternFile(cfg.back); path == "" {
			utils.Warn("Back artwork %q not found, using the plain back", cfg.back)
		} else if img, err := faces.LoadBackPattern(path); err != nil {
			utils.Warn("Back artwork %s: %v", path, err)
		} else {
			opts.Pattern = img
		}
	}

	builder, err := faces.NewBuilder(opts)
	if err != nil {
		return nil, err
	}
	return faces.NewCache(builder, tier.CompressCache), nil
}
