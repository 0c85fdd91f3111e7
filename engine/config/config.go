package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/Carmen-Shannon/spinquad/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPINQUAD_"

// ForceFallbackAdapterEnv is the wgpu-native convention for requesting a software adapter.
// It is honored alongside SPINQUAD_FORCE_FALLBACK_ADAPTER.
const ForceFallbackAdapterEnv = "WGPU_FORCE_FALLBACK_ADAPTER"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Animation AnimationConfig `yaml:"animation"`
	Assets    AssetsConfig    `yaml:"assets"`
	LogLevel  string          `yaml:"log_level"`
}

// WindowConfig describes the window. Zero min/max sizes leave the limit unset.
type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
}

// RendererConfig holds surface and presentation settings.
type RendererConfig struct {
	PresentMode          string     `yaml:"present_mode"`
	MaxFramesInFlight    uint32     `yaml:"max_frames_in_flight"`
	ForceFallbackAdapter bool       `yaml:"force_fallback_adapter"`
	ClearColor           [4]float64 `yaml:"clear_color,flow"`
	FrameLimit           float64    `yaml:"frame_limit"`
}

// AnimationConfig holds the per-frame rotation increments in radians.
type AnimationConfig struct {
	RateX float64 `yaml:"rate_x"`
	RateY float64 `yaml:"rate_y"`
}

// AssetsConfig names texture and shader files replacing the embedded ones. Empty paths use the embedded assets.
type AssetsConfig struct {
	Texture string `yaml:"texture"`
	Shader  string `yaml:"shader"`
}

// Default returns the configuration used when nothing overrides it.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "spinquad",
			Width:     800,
			Height:    600,
			MinWidth:  1,
			MinHeight: 1,
		},
		Renderer: RendererConfig{
			PresentMode:       renderer.PresentModeVSync.String(),
			MaxFramesInFlight: 2,
			ClearColor:        [4]float64{0.02, 0.02, 0.05, 1},
		},
		Animation: AnimationConfig{
			RateX: transform.DefaultRates.X,
			RateY: transform.DefaultRates.Y,
		},
		LogLevel: logrus.InfoLevel.String(),
	}
}

// loader collects Load options.
type loader struct {
	file     string
	envFiles []string
	lookup   func(string) (string, bool)
}

// LoadOption is a functional option for Load.
type LoadOption func(l *loader)

// WithFile reads a YAML file over the defaults. The file must exist.
//
// Parameters:
//   - path: the YAML file, ignored when empty
//
// Returns:
//   - LoadOption: option function to apply
func WithFile(path string) LoadOption {
	return func(l *loader) {
		l.file = path
	}
}

// WithEnvFile reads KEY=value pairs from a dotenv file. Missing files are skipped.
// Values already present in the environment win over the file.
//
// Parameters:
//   - path: the dotenv file
//
// Returns:
//   - LoadOption: option function to apply
func WithEnvFile(path string) LoadOption {
	return func(l *loader) {
		l.envFiles = append(l.envFiles, path)
	}
}

// WithLookupEnv replaces os.LookupEnv as the environment source.
//
// Parameters:
//   - lookup: the lookup function
//
// Returns:
//   - LoadOption: option function to apply
func WithLookupEnv(lookup func(string) (string, bool)) LoadOption {
	return func(l *loader) {
		l.lookup = lookup
	}
}

// Load builds a Config from the defaults, an optional YAML file, optional dotenv files and
// SPINQUAD_* environment overrides, in that order, then validates it.
//
// Parameters:
//   - options: variadic list of LoadOption functions
//
// Returns:
//   - Config: the loaded configuration
//   - error: a read, parse, or ErrInvalidConfig validation error
func Load(options ...LoadOption) (Config, error) {
	l := &loader{lookup: os.LookupEnv}
	for _, opt := range options {
		opt(l)
	}

	cfg := Default()
	if l.file != "" {
		data, err := os.ReadFile(l.file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", l.file, err)
		}
	}

	dotenv := map[string]string{}
	for _, path := range l.envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read env file %s: %w", path, err)
		}
		for k, v := range values {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays SPINQUAD_* variables onto c.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}

	str("WINDOW_TITLE", &c.Window.Title)
	num("WINDOW_WIDTH", &c.Window.Width)
	num("WINDOW_HEIGHT", &c.Window.Height)
	str("PRESENT_MODE", &c.Renderer.PresentMode)
	float("FRAME_LIMIT", &c.Renderer.FrameLimit)
	float("RATE_X", &c.Animation.RateX)
	float("RATE_Y", &c.Animation.RateY)
	str("TEXTURE", &c.Assets.Texture)
	str("SHADER", &c.Assets.Shader)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "MAX_FRAMES_IN_FLIGHT"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_FRAMES_IN_FLIGHT: %w", EnvPrefix, err))
		} else {
			c.Renderer.MaxFramesInFlight = uint32(n)
		}
	}

	for _, key := range []string{ForceFallbackAdapterEnv, EnvPrefix + "FORCE_FALLBACK_ADAPTER"} {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			c.Renderer.ForceFallbackAdapter = b
		}
	}

	if v, ok := lookup(EnvPrefix + "CLEAR_COLOR"); ok {
		color, err := parseColor(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCLEAR_COLOR: %w", EnvPrefix, err))
		} else {
			c.Renderer.ClearColor = color
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// parseColor parses "r,g,b,a" with components in [0,1].
func parseColor(s string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("want 4 comma-separated components, got %d", len(parts))
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

// Validate reports every problem with c.
//
// Returns:
//   - error: ErrInvalidConfig joined with each problem, or nil
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.MinWidth < 0 || c.Window.MinHeight < 0 || c.Window.MaxWidth < 0 || c.Window.MaxHeight < 0 {
		errs = append(errs, errors.New("window size limits must not be negative"))
	}
	if c.Window.MaxWidth > 0 && c.Window.MaxWidth < c.Window.MinWidth ||
		c.Window.MaxHeight > 0 && c.Window.MaxHeight < c.Window.MinHeight {
		errs = append(errs, errors.New("window max size is below min size"))
	}
	if _, err := renderer.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if c.Renderer.MaxFramesInFlight == 0 {
		errs = append(errs, errors.New("max frames in flight must be at least 1"))
	}
	if c.Renderer.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame limit %v must not be negative", c.Renderer.FrameLimit))
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("clear color component %d is %v, want [0,1]", i, v))
		}
	}
	if c.Animation.RateX < 0 || c.Animation.RateY < 0 {
		errs = append(errs, fmt.Errorf("rotation rates (%v, %v) must not be negative", c.Animation.RateX, c.Animation.RateY))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Size returns the initial window size.
func (c Config) Size() common.Size {
	return common.Size{Width: uint32(max(c.Window.Width, 0)), Height: uint32(max(c.Window.Height, 0))}
}

// PresentMode returns the parsed present mode preference, PresentModeAuto if it does not parse.
func (c Config) PresentMode() renderer.PresentMode {
	mode, _ := renderer.ParsePresentMode(c.Renderer.PresentMode)
	return mode
}

// Rates returns the animation rates.
func (c Config) Rates() transform.Rates {
	return transform.Rates{X: c.Animation.RateX, Y: c.Animation.RateY}
}

// ClearColor returns the clear color as a wgpu.Color.
func (c Config) ClearColor() wgpu.Color {
	cc := c.Renderer.ClearColor
	return wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// Level returns the parsed log level, logrus.InfoLevel if it does not parse.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
