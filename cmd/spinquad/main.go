// Command spinquad opens a window and draws a single textured quad spinning about two axes.
package main

import (
	"flag"
	"fmt"

	"github.com/Carmen-Shannon/spinquad/assets"
	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine"
	"github.com/Carmen-Shannon/spinquad/engine/asset"
	"github.com/Carmen-Shannon/spinquad/engine/config"
	"github.com/Carmen-Shannon/spinquad/engine/controller"
	"github.com/Carmen-Shannon/spinquad/engine/graphics"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/Carmen-Shannon/spinquad/engine/resources"
	"github.com/Carmen-Shannon/spinquad/engine/window"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
)

var (
	configPath  = flag.String("config", "", "YAML configuration file")
	envPath     = flag.String("env", ".env", "dotenv file with SPINQUAD_* overrides, skipped if missing")
	profileMode = flag.String("profile", "", "write a cpu or mem profile")
	profileDir  = flag.String("profile-dir", ".", "directory for profile output")
	stats       = flag.Bool("stats", false, "log frame statistics once per second")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("spinquad exited")
	}
}

func run() error {
	cfg, err := config.Load(config.WithFile(*configPath), config.WithEnvFile(*envPath))
	if err != nil {
		return err
	}

	logger := log.StandardLogger()
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	renderer.ApplyWGPULogLevelFromEnv(logger)

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*profileDir), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(*profileDir), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", *profileMode)
	}

	loader, err := asset.NewLoader(asset.WithLogger(logger))
	if err != nil {
		return err
	}
	img, err := loadTexture(loader, cfg)
	if err != nil {
		return err
	}
	program := common.NewShaderProgram(assets.QuadShaderLabel, assets.QuadShader)
	if cfg.Assets.Shader != "" {
		if program, err = loader.Shader(cfg.Assets.Shader); err != nil {
			return err
		}
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithMinSize(cfg.Window.MinWidth, cfg.Window.MinHeight),
		window.WithMaxSize(cfg.Window.MaxWidth, cfg.Window.MaxHeight),
		window.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	ctx, err := graphics.Initialize(
		win,
		common.Size{Width: uint32(max(win.Width(), 0)), Height: uint32(max(win.Height(), 0))},
		graphics.WithPresentMode(cfg.PresentMode()),
		graphics.WithForceFallbackAdapter(cfg.Renderer.ForceFallbackAdapter),
		graphics.WithMaxFramesInFlight(cfg.Renderer.MaxFramesInFlight),
		graphics.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer ctx.Release()

	res, err := resources.Build(ctx, img, program, resources.WithLogger(logger))
	if err != nil {
		return err
	}
	fc := controller.NewFrameController(ctx, res,
		controller.WithRates(cfg.Rates()),
		controller.WithClearColor(cfg.ClearColor()),
		controller.WithLogger(logger),
	)
	defer fc.Release()

	eng := engine.NewEngine(win, fc,
		engine.WithProfiling(*stats),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
		engine.WithLogger(logger),
	)
	return eng.Run()
}

// loadTexture reads the configured texture, or decodes the embedded one when none is set.
func loadTexture(loader asset.Loader, cfg config.Config) (common.Image, error) {
	if cfg.Assets.Texture == "" {
		return loader.DecodeImage(assets.DefaultTextureName, assets.DefaultTexture)
	}
	return loader.Image(cfg.Assets.Texture)
}
