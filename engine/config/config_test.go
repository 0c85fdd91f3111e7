package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/Carmen-Shannon/spinquad/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
)

func env(values map[string]string) LoadOption {
	return WithLookupEnv(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

func writeFile(c *qt.C, name, content string) string {
	c.Helper()
	path := filepath.Join(c.TempDir(), name)
	c.Assert(os.WriteFile(path, []byte(content), 0o600), qt.IsNil)
	return path
}

func TestDefaults(t *testing.T) {
	c := qt.New(t)

	cfg, err := Load(env(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, Default())
	c.Assert(cfg.Size(), qt.Equals, common.Size{Width: 800, Height: 600})
	c.Assert(cfg.PresentMode(), qt.Equals, renderer.PresentModeVSync)
	c.Assert(cfg.Rates(), qt.Equals, transform.DefaultRates)
	c.Assert(cfg.ClearColor(), qt.Equals, wgpu.Color{R: 0.02, G: 0.02, B: 0.05, A: 1})
	c.Assert(cfg.Level(), qt.Equals, logrus.InfoLevel)
	c.Assert(cfg.Renderer.MaxFramesInFlight, qt.Equals, uint32(2))
}

func TestLoadYAML(t *testing.T) {
	c := qt.New(t)

	path := writeFile(c, "spinquad.yaml", `
window:
  title: demo
  width: 1280
  height: 720
renderer:
  present_mode: mailbox
  clear_color: [0, 0, 0, 1]
animation:
  rate_x: 0.01
assets:
  texture: crate.webp
log_level: debug
`)
	cfg, err := Load(WithFile(path), env(nil))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Window.Title, qt.Equals, "demo")
	c.Assert(cfg.Size(), qt.Equals, common.Size{Width: 1280, Height: 720})
	c.Assert(cfg.PresentMode(), qt.Equals, renderer.PresentModeMailbox)
	c.Assert(cfg.ClearColor(), qt.Equals, wgpu.Color{A: 1})
	c.Assert(cfg.Rates(), qt.Equals, transform.Rates{X: 0.01, Y: transform.DefaultRates.Y})
	c.Assert(cfg.Assets.Texture, qt.Equals, "crate.webp")
	c.Assert(cfg.Level(), qt.Equals, logrus.DebugLevel)
	// untouched keys keep their defaults
	c.Assert(cfg.Renderer.MaxFramesInFlight, qt.Equals, uint32(2))
}

func TestLoadMissingYAML(t *testing.T) {
	c := qt.New(t)

	_, err := Load(WithFile(filepath.Join(c.TempDir(), "nope.yaml")), env(nil))
	c.Assert(err, qt.ErrorMatches, "read config: .*")
}

func TestLoadMalformedYAML(t *testing.T) {
	c := qt.New(t)

	path := writeFile(c, "bad.yaml", "window: [1, 2")
	_, err := Load(WithFile(path), env(nil))
	c.Assert(err, qt.ErrorMatches, "parse config .*")
}

func TestPrecedence(t *testing.T) {
	c := qt.New(t)

	yamlPath := writeFile(c, "spinquad.yaml", "window:\n  width: 1000\n  height: 500\n")
	envPath := writeFile(c, ".env", "SPINQUAD_WINDOW_WIDTH=640\nSPINQUAD_RATE_Y=0.5\n")

	cfg, err := Load(
		WithFile(yamlPath),
		WithEnvFile(envPath),
		env(map[string]string{"SPINQUAD_RATE_Y": "0.25"}),
	)
	c.Assert(err, qt.IsNil)
	// .env beats YAML
	c.Assert(cfg.Window.Width, qt.Equals, 640)
	c.Assert(cfg.Window.Height, qt.Equals, 500)
	// the environment beats .env
	c.Assert(cfg.Animation.RateY, qt.Equals, 0.25)
}

func TestMissingEnvFileIsSkipped(t *testing.T) {
	c := qt.New(t)

	_, err := Load(WithEnvFile(filepath.Join(c.TempDir(), ".env")), env(nil))
	c.Assert(err, qt.IsNil)
}

func TestEnvOverrides(t *testing.T) {
	c := qt.New(t)

	cfg, err := Load(env(map[string]string{
		"SPINQUAD_WINDOW_TITLE":         "env",
		"SPINQUAD_PRESENT_MODE":         "uncapped",
		"SPINQUAD_MAX_FRAMES_IN_FLIGHT": "3",
		"WGPU_FORCE_FALLBACK_ADAPTER":   "1",
		"SPINQUAD_CLEAR_COLOR":          "1, 0.5, 0, 1",
		"SPINQUAD_FRAME_LIMIT":          "30",
		"SPINQUAD_SHADER":               "custom.wgsl",
		"SPINQUAD_LOG_LEVEL":            "warn",
	}))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Window.Title, qt.Equals, "env")
	c.Assert(cfg.PresentMode(), qt.Equals, renderer.PresentModeUncapped)
	c.Assert(cfg.Renderer.MaxFramesInFlight, qt.Equals, uint32(3))
	c.Assert(cfg.Renderer.ForceFallbackAdapter, qt.IsTrue)
	c.Assert(cfg.ClearColor(), qt.Equals, wgpu.Color{R: 1, G: 0.5, B: 0, A: 1})
	c.Assert(cfg.Renderer.FrameLimit, qt.Equals, 30.0)
	c.Assert(cfg.Assets.Shader, qt.Equals, "custom.wgsl")
	c.Assert(cfg.Level(), qt.Equals, logrus.WarnLevel)
}

func TestEnvParseErrors(t *testing.T) {
	c := qt.New(t)

	_, err := Load(env(map[string]string{
		"SPINQUAD_WINDOW_WIDTH": "wide",
		"SPINQUAD_CLEAR_COLOR":  "1,2",
	}))
	c.Assert(err, qt.ErrorIs, ErrInvalidConfig)
	c.Assert(err, qt.ErrorMatches, `(?s).*SPINQUAD_WINDOW_WIDTH.*SPINQUAD_CLEAR_COLOR: want 4 comma-separated components, got 2`)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(cfg *Config) { cfg.Window.Width = 0 }, ".*window size 0x600 must be positive"},
		{"zero height", func(cfg *Config) { cfg.Window.Height = 0 }, ".*window size 800x0 must be positive"},
		{"max below min", func(cfg *Config) { cfg.Window.MinWidth, cfg.Window.MaxWidth = 500, 400 }, ".*max size is below min size"},
		{"negative rate", func(cfg *Config) { cfg.Animation.RateY = -1 }, ".*rotation rates .* must not be negative"},
		{"unknown present mode", func(cfg *Config) { cfg.Renderer.PresentMode = "triple" }, `.*unknown present mode "triple"`},
		{"zero frames in flight", func(cfg *Config) { cfg.Renderer.MaxFramesInFlight = 0 }, ".*max frames in flight must be at least 1"},
		{"clear color range", func(cfg *Config) { cfg.Renderer.ClearColor[3] = 2 }, ".*clear color component 3 is 2, want \\[0,1\\]"},
		{"bad log level", func(cfg *Config) { cfg.LogLevel = "loud" }, ".*not a valid logrus Level.*"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			c.Assert(err, qt.ErrorIs, ErrInvalidConfig)
			c.Assert(err, qt.ErrorMatches, tt.want)
		})
	}

	c.Assert(Default().Validate(), qt.IsNil)
}
