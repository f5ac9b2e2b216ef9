package main

import (
	"errors"
	"fmt"
	"strings"

	"duo-cards/internal/device"
	"duo-cards/internal/stage"
	"duo-cards/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const maxCards = 12

type Config struct {
	assets        string
	back          string
	cards         int
	debug         bool
	deck          string
	dedicated     bool
	exportDeck    string
	font          string
	fps           int
	fullscreen    bool
	height        int
	logFile       string
	logLevel      string
	maxContexts   int
	noClickSelect bool
	seed          int64
	silent        bool
	strategy      string
	tier          string
	verbose       bool
	version       bool
	width         int
}

func (c *Config) validate() error {
	if c.cards < 1 || c.cards > maxCards {
		return fmt.Errorf("invalid card count (must be between 1-%d inclusive): %d", maxCards, c.cards)
	}
	if c.width < 320 || c.height < 240 {
		return fmt.Errorf("window too small: %dx%d", c.width, c.height)
	}
	if c.fps < 0 {
		return errors.New("--fps must not be negative")
	}
	if c.maxContexts < 1 {
		return fmt.Errorf("invalid context ceiling: %d", c.maxContexts)
	}
	if _, err := stage.ParseStrategy(c.strategy); err != nil {
		return err
	}
	if _, err := tierByName(c.tier); err != nil {
		return err
	}
	if c.logLevel != "" {
		if _, err := utils.ParseLevel(c.logLevel); err != nil {
			return err
		}
	}
	return nil
}

// tierByName checks explicit names without probing the host.
func tierByName(name string) (device.Tier, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return device.Tier{}, nil
	}
	return device.ByName(name)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUOCARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duo-cards",
		Short:         "Deal a hand of question cards for two and let one be picked.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return Play(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.assets, "assets", "", "extra directory searched for fonts, backs and decks (env: DUOCARDS_ASSETS)")
	fs.StringVar(&cfg.back, "back", "", "card back artwork: png, jpeg or .tex (env: DUOCARDS_BACK)")
	fs.IntVarP(&cfg.cards, "cards", "n", 5, "cards dealt per round (env: DUOCARDS_CARDS)")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging and the F8 overlay (env: DUOCARDS_DEBUG)")
	fs.StringVarP(&cfg.deck, "deck", "d", "", "deck file, .json or .json.lz4; the built-in deck when empty (env: DUOCARDS_DECK)")
	fs.BoolVar(&cfg.dedicated, "dedicated", false, "give every round its own GPU context (env: DUOCARDS_DEDICATED)")
	fs.StringVar(&cfg.exportDeck, "export-deck", "", "write the deck to this .json or .json.lz4 file and exit (env: DUOCARDS_EXPORT_DECK)")
	fs.StringVar(&cfg.font, "font", "", "TTF/OTF font name or path, e.g. for CJK decks (env: DUOCARDS_FONT)")
	fs.IntVar(&cfg.fps, "fps", 0, "override the device tier's frame rate (env: DUOCARDS_FPS)")
	fs.BoolVarP(&cfg.fullscreen, "fullscreen", "f", false, "cover the whole window with the stage (env: DUOCARDS_FULLSCREEN)")
	fs.IntVar(&cfg.height, "height", 900, "window height (env: DUOCARDS_HEIGHT)")
	fs.StringVar(&cfg.logFile, "log-file", "", "append log output to this file instead of stderr (env: DUOCARDS_LOG_FILE)")
	fs.StringVar(&cfg.logLevel, "log-level", "", "debug, info, warn or error; overrides --debug and --verbose (env: DUOCARDS_LOG_LEVEL)")
	fs.IntVar(&cfg.maxContexts, "max-contexts", 8, "ceiling on concurrent GPU contexts (env: DUOCARDS_MAX_CONTEXTS)")
	fs.BoolVar(&cfg.noClickSelect, "no-click-select", false, "ignore clicks on cards (env: DUOCARDS_NO_CLICK_SELECT)")
	fs.Int64Var(&cfg.seed, "seed", 0, "deal seed; random when 0 (env: DUOCARDS_SEED)")
	fs.BoolVarP(&cfg.silent, "silent", "s", false, "disable audio cues (env: DUOCARDS_SILENT)")
	fs.StringVar(&cfg.strategy, "strategy", "fan", "intro layout: fan, grid or focus (env: DUOCARDS_STRATEGY)")
	fs.StringVar(&cfg.tier, "tier", "auto", "quality tier: auto, low, medium or high (env: DUOCARDS_TIER)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DUOCARDS_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DUOCARDS_VERSION)")
	fs.IntVar(&cfg.width, "width", 1280, "window width (env: DUOCARDS_WIDTH)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duo-cards v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
