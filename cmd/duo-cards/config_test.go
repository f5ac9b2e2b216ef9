package main

import (
	"os"
	"path/filepath"
	"testing"

	"duo-cards/internal/deck"
	"duo-cards/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{cards: 5, width: 1280, height: 900, maxContexts: 8, strategy: "fan", tier: "high"}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().validate())

	for name, mutate := range map[string]func(*Config){
		"no cards":      func(c *Config) { c.cards = 0 },
		"too many":      func(c *Config) { c.cards = maxCards + 1 },
		"tiny window":   func(c *Config) { c.width = 100 },
		"negative fps":  func(c *Config) { c.fps = -1 },
		"no contexts":   func(c *Config) { c.maxContexts = 0 },
		"bad strategy":  func(c *Config) { c.strategy = "spiral" },
		"bad tier":      func(c *Config) { c.tier = "ultra" },
		"bad log level": func(c *Config) { c.logLevel = "loud" },
	} {
		cfg := validConfig()
		mutate(cfg)
		assert.Error(t, cfg.validate(), name)
	}
}

func TestConfigureLoggingLevelAndFile(t *testing.T) {
	prev := utils.CurrentLevel
	defer func() { utils.CurrentLevel = prev }()

	path := filepath.Join(t.TempDir(), "duo.log")
	cfg := validConfig()
	cfg.verbose = true
	cfg.logLevel = "error"
	cfg.logFile = path

	closeLog, err := configureLogging(cfg)
	require.NoError(t, err)
	assert.Equal(t, utils.LevelError, utils.CurrentLevel)

	utils.Error("written to %s", "file")
	utils.Warn("filtered out")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "filtered out")
}

func TestExportDeck(t *testing.T) {
	cfg := validConfig()
	cfg.exportDeck = filepath.Join(t.TempDir(), "deck.json.lz4")
	require.NoError(t, exportDeck(cfg))

	want, err := deck.Default()
	require.NoError(t, err)
	got, err := deck.Load(cfg.exportDeck)
	require.NoError(t, err)
	assert.Equal(t, want.Cards, got.Cards)
}
