package graphics

import (
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/sirupsen/logrus"
)

// GraphicsContextBuilderOption is a functional option applied to a graphics context during Initialize.
type GraphicsContextBuilderOption func(*graphicsContext)

// WithBackend sets the GPU backend the context initializes. Defaults to the WGPU backend.
//
// Parameters:
//   - backend: an uninitialized RendererBackend
//
// Returns:
//   - GraphicsContextBuilderOption: a function that applies the backend option to a graphics context
func WithBackend(backend renderer.RendererBackend) GraphicsContextBuilderOption {
	return func(g *graphicsContext) {
		g.backend = backend
	}
}

// WithPresentMode requests a surface present mode. The request is honored only if the surface supports it.
//
// Parameters:
//   - mode: the PresentMode to use (Auto, VSync, Uncapped, or Mailbox)
//
// Returns:
//   - GraphicsContextBuilderOption: a function that applies the present mode option to a graphics context
func WithPresentMode(mode renderer.PresentMode) GraphicsContextBuilderOption {
	return func(g *graphicsContext) {
		g.presentMode = mode
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - GraphicsContextBuilderOption: a function that applies the fallback adapter option to a graphics context
func WithForceFallbackAdapter(force bool) GraphicsContextBuilderOption {
	return func(g *graphicsContext) {
		g.forceFallbackAdapter = force
	}
}

// WithMaxFramesInFlight sets the frame latency recorded in the surface configuration. Zero keeps the default.
//
// Parameters:
//   - n: the maximum number of frames queued ahead of presentation
//
// Returns:
//   - GraphicsContextBuilderOption: a function that applies the frame latency option to a graphics context
func WithMaxFramesInFlight(n uint32) GraphicsContextBuilderOption {
	return func(g *graphicsContext) {
		if n > 0 {
			g.maxFramesInFlight = n
		}
	}
}

// WithLogger sets the logger used by the context.
//
// Parameters:
//   - logger: the logger, nil keeps the standard logger
//
// Returns:
//   - GraphicsContextBuilderOption: a function that applies the logger option to a graphics context
func WithLogger(logger logrus.FieldLogger) GraphicsContextBuilderOption {
	return func(g *graphicsContext) {
		if logger != nil {
			g.logger = logger
		}
	}
}
