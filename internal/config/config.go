// Package config loads the host settings of the watch face: surface
// geometry, colors, text sizes, where preferences live and how the
// companion server listens.
package config

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teradata/watchface/internal/render"
	"github.com/teradata/watchface/internal/render/layout"
)

const (
	EnvConfigFile = "WATCHFACE_CONFIG"
	EnvListenAddr = "WATCHFACE_LISTEN"
	EnvDevMode    = "WATCHFACE_DEV"
	EnvPrefsPath  = "WATCHFACE_PREFS"
	EnvLocale     = "WATCHFACE_LOCALE"
	EnvStdioLog   = "WATCHFACE_STDIO_LOG"
)

// Colors are hex strings (#rgb, #rrggbb or #rrggbbaa). Empty keeps the
// default.
type Colors struct {
	Background string `yaml:"background"`
	Primary    string `yaml:"primary"`
	Secondary  string `yaml:"secondary"`
	Ambient    string `yaml:"ambient"`
}

type TextSizes struct {
	Round     float64 `yaml:"round"`
	Square    float64 `yaml:"square"`
	Secondary float64 `yaml:"secondary"`
}

// Canvas describes the panel. LowBitAmbient and BurnInProtection are the
// display properties passed to the face.
type Canvas struct {
	Width            int  `yaml:"width"`
	Height           int  `yaml:"height"`
	Round            bool `yaml:"round"`
	LowBitAmbient    bool `yaml:"low_bit_ambient"`
	BurnInProtection bool `yaml:"burn_in_protection"`
}

type Config struct {
	Canvas       Canvas    `yaml:"canvas"`
	Colors       Colors    `yaml:"colors"`
	TextSizes    TextSizes `yaml:"text_sizes"`
	Locale       string    `yaml:"locale"`
	PrefsPath    string    `yaml:"prefs_path"`
	ListenAddr   string    `yaml:"listen"`
	DevMode      bool      `yaml:"dev"`
	Framebuffer  string    `yaml:"framebuffer"`
	InputDevices string    `yaml:"input_devices"`
	CompanionURL string    `yaml:"companion_url"`
	StdioLog     string    `yaml:"stdio_log"`
}

// Default returns the settings for a 390px round panel. listenAddr differs
// per binary: :80 on the device, :8080 for the simulator.
func Default(listenAddr string) Config {
	opts := layout.DefaultOptions()
	return Config{
		Canvas: Canvas{Width: 390, Height: 390, Round: true},
		TextSizes: TextSizes{
			Round:     opts.PrimaryTextSizeRound,
			Square:    opts.PrimaryTextSizeSquare,
			Secondary: opts.SecondaryTextSize,
		},
		Locale:       "en",
		PrefsPath:    "./watchface-prefs.yaml",
		ListenAddr:   listenAddr,
		Framebuffer:  "/dev/fb0",
		InputDevices: "/dev/input/event*",
	}
}

// LoadFile merges the YAML file at path over cfg. A missing file is not an
// error.
func LoadFile(cfg Config, path string) (Config, error) {
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from WATCHFACE_* variables.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv(EnvPrefsPath); v != "" {
		cfg.PrefsPath = v
	}
	if v := getenv(EnvLocale); v != "" {
		cfg.Locale = v
	}
	if v := getenv(EnvStdioLog); v != "" {
		cfg.StdioLog = v
	}
	if raw := getenv(EnvDevMode); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, raw, err)
		}
		cfg.DevMode = parsed
	}
	return cfg, nil
}

// RegisterFlags binds the command line flags that override cfg. Call
// fs.Parse afterwards.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&cfg.Canvas.Width, "width", cfg.Canvas.Width, "surface width in pixels")
	fs.IntVar(&cfg.Canvas.Height, "height", cfg.Canvas.Height, "surface height in pixels")
	fs.BoolVar(&cfg.Canvas.Round, "round", cfg.Canvas.Round, "round display")
	fs.BoolVar(&cfg.Canvas.LowBitAmbient, "low-bit", cfg.Canvas.LowBitAmbient, "display has low-bit ambient mode")
	fs.BoolVar(&cfg.Canvas.BurnInProtection, "burn-in", cfg.Canvas.BurnInProtection, "display needs burn-in protection")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "BCP 47 locale for digits ("+EnvLocale+")")
	fs.StringVar(&cfg.PrefsPath, "prefs", cfg.PrefsPath, "preference file ("+EnvPrefsPath+")")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "companion API listen address ("+EnvListenAddr+")")
	fs.BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "allow cross-origin requests ("+EnvDevMode+")")
	fs.StringVar(&cfg.Framebuffer, "fb", cfg.Framebuffer, "framebuffer device")
	fs.StringVar(&cfg.InputDevices, "input", cfg.InputDevices, "glob of evdev input devices")
	fs.StringVar(&cfg.CompanionURL, "companion-url", cfg.CompanionURL, "URL encoded into the pairing code")
	fs.StringVar(&cfg.StdioLog, "stdio-log", cfg.StdioLog, "redirect stdout+stderr (including panics) to this file ("+EnvStdioLog+")")
}

// Load reads defaults, then the file named by WATCHFACE_CONFIG, then the
// environment. Flags are applied by the caller.
func Load(listenAddr string) (Config, error) {
	cfg, err := LoadFile(Default(listenAddr), os.Getenv(EnvConfigFile))
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg, os.Getenv)
}

func (cfg Config) Validate() error {
	if cfg.Canvas.Width < 0 || cfg.Canvas.Height < 0 {
		return fmt.Errorf("canvas size must not be negative (got %dx%d)", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.TextSizes.Round <= 0 || cfg.TextSizes.Square <= 0 || cfg.TextSizes.Secondary <= 0 {
		return errors.New("text sizes must be positive")
	}
	_, err := cfg.Palette()
	return err
}

// Palette applies the configured colors over the default palette.
func (cfg Config) Palette() (render.Palette, error) {
	p := render.DefaultPalette()
	for _, c := range []struct {
		name string
		hex  string
		dst  *color.NRGBA
	}{
		{"background", cfg.Colors.Background, &p.Background},
		{"primary", cfg.Colors.Primary, &p.Primary},
		{"secondary", cfg.Colors.Secondary, &p.Secondary},
		{"ambient", cfg.Colors.Ambient, &p.Ambient},
	} {
		if c.hex == "" {
			continue
		}
		parsed, err := render.ParseHexColor(c.hex)
		if err != nil {
			return render.DefaultPalette(), fmt.Errorf("colors.%s: %w", c.name, err)
		}
		*c.dst = parsed
	}
	return p, nil
}

// LayoutOptions returns the text sizes for the layout engine. logo is the
// size of the decoded logo bitmap.
func (cfg Config) LayoutOptions(logo image.Point) layout.Options {
	opts := layout.DefaultOptions()
	opts.PrimaryTextSizeRound = cfg.TextSizes.Round
	opts.PrimaryTextSizeSquare = cfg.TextSizes.Square
	opts.SecondaryTextSize = cfg.TextSizes.Secondary
	if logo != (image.Point{}) {
		opts.LogoSize = logo
	}
	return opts
}
