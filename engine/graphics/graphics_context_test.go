package graphics

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestContext(c *qt.C, size common.Size, options ...GraphicsContextBuilderOption) (GraphicsContext, *renderer.CaptureBackend) {
	c.Helper()
	backend := renderer.NewCaptureBackend()
	logger, _ := test.NewNullLogger()
	ctx, err := Initialize(nil, size, append([]GraphicsContextBuilderOption{WithBackend(backend), WithLogger(logger)}, options...)...)
	c.Assert(err, qt.IsNil)
	c.Cleanup(ctx.Release)
	return ctx, backend
}

func TestInitializeSelectsSurfaceDefaults(t *testing.T) {
	c := qt.New(t)

	backend := renderer.NewCaptureBackend(renderer.WithCaptureCapabilities(renderer.SurfaceCapabilities{
		Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb},
		PresentModes: []wgpu.PresentMode{wgpu.PresentModeMailbox, wgpu.PresentModeFifo},
		AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
	}))
	logger, _ := test.NewNullLogger()

	ctx, err := Initialize(nil, common.Size{Width: 800, Height: 600}, WithBackend(backend), WithLogger(logger))
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	c.Assert(ctx.Config(), qt.Equals, renderer.SurfaceConfiguration{
		Format:            wgpu.TextureFormatRGBA8UnormSrgb,
		Width:             800,
		Height:            600,
		PresentMode:       wgpu.PresentModeMailbox,
		AlphaMode:         wgpu.CompositeAlphaModeOpaque,
		MaxFramesInFlight: DefaultMaxFramesInFlight,
	})
	c.Assert(ctx.Format(), qt.Equals, wgpu.TextureFormatRGBA8UnormSrgb)
	c.Assert(backend.Configurations(), qt.HasLen, 1)
}

func TestInitializeFallsBackToFirstFormat(t *testing.T) {
	c := qt.New(t)

	backend := renderer.NewCaptureBackend(renderer.WithCaptureCapabilities(renderer.SurfaceCapabilities{
		Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm},
		PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo},
	}))

	ctx, err := Initialize(nil, common.Size{Width: 1, Height: 1}, WithBackend(backend))
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	c.Assert(ctx.Format(), qt.Equals, wgpu.TextureFormatBGRA8Unorm)
	c.Assert(ctx.Config().AlphaMode, qt.Equals, wgpu.CompositeAlphaModeAuto)
}

func TestInitializePresentModePreference(t *testing.T) {
	c := qt.New(t)

	c.Run("supported", func(c *qt.C) {
		ctx, _ := newTestContext(c, common.Size{Width: 4, Height: 4}, WithPresentMode(renderer.PresentModeUncapped))
		c.Assert(ctx.Config().PresentMode, qt.Equals, wgpu.PresentModeImmediate)
	})

	c.Run("unsupported", func(c *qt.C) {
		backend := renderer.NewCaptureBackend()
		logger, hook := test.NewNullLogger()

		ctx, err := Initialize(nil, common.Size{Width: 4, Height: 4},
			WithBackend(backend), WithLogger(logger), WithPresentMode(renderer.PresentModeMailbox))
		c.Assert(err, qt.IsNil)
		defer ctx.Release()

		c.Assert(ctx.Config().PresentMode, qt.Equals, wgpu.PresentModeFifo)

		var warned bool
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel && entry.Data["present_mode"] == "mailbox" {
				warned = true
			}
		}
		c.Assert(warned, qt.IsTrue)
	})
}

func TestInitializeRaisesZeroSize(t *testing.T) {
	c := qt.New(t)

	ctx, _ := newTestContext(c, common.Size{Width: 0, Height: 300})
	c.Assert(ctx.Size(), qt.Equals, common.Size{Width: 1, Height: 300})
}

func TestInitializeFailures(t *testing.T) {
	c := qt.New(t)

	c.Run("no formats", func(c *qt.C) {
		backend := renderer.NewCaptureBackend(renderer.WithCaptureCapabilities(renderer.SurfaceCapabilities{}))
		_, err := Initialize(nil, common.Size{Width: 1, Height: 1}, WithBackend(backend))
		c.Assert(err, qt.ErrorIs, renderer.ErrNoCompatibleAdapter)
	})

	c.Run("device", func(c *qt.C) {
		backend := renderer.NewCaptureBackend()
		backend.FailNext(renderer.OpInit, renderer.ErrDeviceCreationFailed)
		_, err := Initialize(nil, common.Size{Width: 1, Height: 1}, WithBackend(backend))
		c.Assert(err, qt.ErrorIs, renderer.ErrDeviceCreationFailed)
	})

	c.Run("configure", func(c *qt.C) {
		backend := renderer.NewCaptureBackend()
		backend.FailNext(renderer.OpConfigureSurface, errors.New("rejected"))
		_, err := Initialize(nil, common.Size{Width: 1, Height: 1}, WithBackend(backend))
		c.Assert(err, qt.ErrorMatches, "configure surface: rejected")
		c.Assert(backend.Events()[len(backend.Events())-1], qt.Equals, renderer.OpReleaseBackend)
	})
}

func TestReconfigureThenAcquireMatchesSize(t *testing.T) {
	c := qt.New(t)

	ctx, backend := newTestContext(c, common.Size{Width: 800, Height: 600})

	c.Assert(ctx.Reconfigure(common.Size{Width: 1024, Height: 768}), qt.IsNil)

	frame, err := ctx.AcquireFrame()
	c.Assert(err, qt.IsNil)
	c.Assert(frame.Width, qt.Equals, uint32(1024))
	c.Assert(frame.Height, qt.Equals, uint32(768))
	c.Assert(backend.Configurations(), qt.HasLen, 2)
	c.Assert(backend.Configurations()[1].Size(), qt.Equals, common.Size{Width: 1024, Height: 768})
	backend.DiscardFrame()
}

func TestReconfigureZeroIsNoop(t *testing.T) {
	c := qt.New(t)

	ctx, backend := newTestContext(c, common.Size{Width: 800, Height: 600})
	before := ctx.Config()

	for _, size := range []common.Size{{Width: 0, Height: 0}, {Width: 0, Height: 600}, {Width: 800, Height: 0}} {
		c.Assert(ctx.Reconfigure(size), qt.IsNil)
	}

	c.Assert(ctx.Config(), qt.Equals, before)
	c.Assert(backend.Configurations(), qt.HasLen, 1)
}

func TestReconfigureFailureKeepsPreviousConfig(t *testing.T) {
	c := qt.New(t)

	ctx, backend := newTestContext(c, common.Size{Width: 800, Height: 600})
	backend.FailNext(renderer.OpConfigureSurface, errors.New("surface gone"))

	err := ctx.Reconfigure(common.Size{Width: 10, Height: 10})
	c.Assert(err, qt.ErrorMatches, "reconfigure surface to 10x10: surface gone")
	c.Assert(ctx.Size(), qt.Equals, common.Size{Width: 800, Height: 600})
}

func TestAcquireFramePropagatesSurfaceError(t *testing.T) {
	c := qt.New(t)

	ctx, backend := newTestContext(c, common.Size{Width: 8, Height: 8})
	backend.QueueAcquireError(renderer.NewSurfaceError(renderer.SurfaceErrorOutdated, nil))

	_, err := ctx.AcquireFrame()
	kind, ok := renderer.SurfaceErrorKindOf(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(kind, qt.Equals, renderer.SurfaceErrorOutdated)
}
