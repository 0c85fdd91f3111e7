package graphics

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// DefaultMaxFramesInFlight is the number of frames the context allows to be queued ahead of presentation.
const DefaultMaxFramesInFlight = 2

// graphicsContext is the implementation of the GraphicsContext interface.
type graphicsContext struct {
	mu *sync.Mutex

	backend renderer.RendererBackend
	config  renderer.SurfaceConfiguration
	logger  logrus.FieldLogger

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          renderer.PresentMode
	maxFramesInFlight    uint32
}

// GraphicsContext owns the GPU device, its queue, and the presentation surface of a single window.
//
// The surface configuration always holds the last non-zero size the context was given. Reconfigure applies a new
// size synchronously so the next acquired frame matches it.
type GraphicsContext interface {
	// Backend returns the GPU backend the context was initialized on.
	// Frame resources and the frame controller issue their GPU work through it.
	//
	// Returns:
	//   - renderer.RendererBackend: the initialized backend
	Backend() renderer.RendererBackend

	// Config returns the surface configuration currently applied.
	//
	// Returns:
	//   - renderer.SurfaceConfiguration: the active configuration
	Config() renderer.SurfaceConfiguration

	// Format returns the color format of the surface. Render pipelines must target this format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	Format() wgpu.TextureFormat

	// Size returns the configured surface size.
	//
	// Returns:
	//   - common.Size: the surface size in pixels
	Size() common.Size

	// Reconfigure stores size and reapplies the surface configuration before returning.
	// A size with a zero dimension is ignored and leaves the configuration unchanged.
	//
	// Parameters:
	//   - size: the new surface size in pixels
	//
	// Returns:
	//   - error: an error if the backend rejects the configuration
	Reconfigure(size common.Size) error

	// AcquireFrame obtains the next presentable frame of the surface.
	// Acquisition failures are returned as *renderer.SurfaceError so the caller can decide how to recover.
	//
	// Returns:
	//   - renderer.Frame: the acquired frame, sized to the current configuration
	//   - error: a *renderer.SurfaceError on failure
	AcquireFrame() (renderer.Frame, error)

	// Release frees the device, surface, and every backend object. Frame resources must be released first.
	Release()
}

var _ GraphicsContext = &graphicsContext{}

// Initialize creates a GraphicsContext presenting to target.
//
// It selects a high-performance adapter that can present to the surface and requests a device with default limits.
// The surface format is the first sRGB format the surface supports, falling back to its first format. Present mode
// and alpha mode are the first the surface reports unless a supported present mode is requested via WithPresentMode.
//
// Parameters:
//   - target: the window providing the platform surface, which must outlive the context
//   - size: the initial surface size in pixels, zero dimensions are raised to 1
//   - options: variadic list of GraphicsContextBuilderOption functions
//
// Returns:
//   - GraphicsContext: the initialized context
//   - error: renderer.ErrNoCompatibleAdapter or renderer.ErrDeviceCreationFailed (wrapped) on failure
func Initialize(target renderer.SurfaceTarget, size common.Size, options ...GraphicsContextBuilderOption) (GraphicsContext, error) {
	g := &graphicsContext{
		mu:                &sync.Mutex{},
		logger:            logrus.StandardLogger(),
		maxFramesInFlight: DefaultMaxFramesInFlight,
	}

	for _, opt := range options {
		opt(g)
	}
	g.logger = g.logger.WithField("component", "graphics")

	if g.backend == nil {
		g.backend = renderer.NewWGPURendererBackend()
	}

	if err := g.backend.Init(target, renderer.AdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: g.forceFallbackAdapter,
	}); err != nil {
		return nil, err
	}

	caps, err := g.backend.SurfaceCapabilities()
	if err != nil {
		g.backend.Release()
		return nil, fmt.Errorf("%w: %v", renderer.ErrNoCompatibleAdapter, err)
	}
	if len(caps.Formats) == 0 {
		g.backend.Release()
		return nil, fmt.Errorf("%w: surface reports no formats", renderer.ErrNoCompatibleAdapter)
	}

	if size.Width == 0 || size.Height == 0 {
		g.logger.WithFields(logrus.Fields{"width": size.Width, "height": size.Height}).Warn("initial surface size has a zero dimension, raising to 1")
		size.Width = max(size.Width, 1)
		size.Height = max(size.Height, 1)
	}

	g.config = renderer.SurfaceConfiguration{
		Format:            selectFormat(caps.Formats),
		Width:             size.Width,
		Height:            size.Height,
		PresentMode:       g.selectPresentMode(caps.PresentModes),
		AlphaMode:         selectAlphaMode(caps.AlphaModes),
		MaxFramesInFlight: g.maxFramesInFlight,
	}

	if err := g.backend.ConfigureSurface(g.config); err != nil {
		g.backend.Release()
		return nil, fmt.Errorf("configure surface: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"width":        g.config.Width,
		"height":       g.config.Height,
		"format":       g.config.Format,
		"present_mode": g.config.PresentMode,
	}).Info("graphics context initialized")
	return g, nil
}

func (g *graphicsContext) Backend() renderer.RendererBackend {
	return g.backend
}

func (g *graphicsContext) Config() renderer.SurfaceConfiguration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

func (g *graphicsContext) Format() wgpu.TextureFormat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config.Format
}

func (g *graphicsContext) Size() common.Size {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config.Size()
}

func (g *graphicsContext) Reconfigure(size common.Size) error {
	if size.Width == 0 || size.Height == 0 {
		g.logger.WithFields(logrus.Fields{"width": size.Width, "height": size.Height}).Debug("ignoring zero-sized reconfigure")
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.config
	next.Width = size.Width
	next.Height = size.Height
	if err := g.backend.ConfigureSurface(next); err != nil {
		return fmt.Errorf("reconfigure surface to %dx%d: %w", size.Width, size.Height, err)
	}
	g.config = next

	g.logger.WithFields(logrus.Fields{"width": size.Width, "height": size.Height}).Debug("surface reconfigured")
	return nil
}

func (g *graphicsContext) AcquireFrame() (renderer.Frame, error) {
	return g.backend.AcquireFrame()
}

func (g *graphicsContext) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.backend.Release()
}

// selectPresentMode returns the requested present mode if the surface lists it, else the surface's first mode.
func (g *graphicsContext) selectPresentMode(supported []wgpu.PresentMode) wgpu.PresentMode {
	fallback := wgpu.PresentModeFifo
	if len(supported) > 0 {
		fallback = supported[0]
	}

	want, ok := g.presentMode.WGPU()
	if !ok {
		return fallback
	}
	for _, mode := range supported {
		if mode == want {
			return mode
		}
	}
	g.logger.WithField("present_mode", g.presentMode.String()).Warn("requested present mode not supported by surface, using surface default")
	return fallback
}

// selectFormat returns the first sRGB format in formats, or formats[0] if none is sRGB.
func selectFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if isSRGB(f) {
			return f
		}
	}
	return formats[0]
}

func isSRGB(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb:
		return true
	}
	return false
}

func selectAlphaMode(modes []wgpu.CompositeAlphaMode) wgpu.CompositeAlphaMode {
	if len(modes) == 0 {
		return wgpu.CompositeAlphaModeAuto
	}
	return modes[0]
}
