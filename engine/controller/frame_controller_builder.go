package controller

import (
	"github.com/Carmen-Shannon/spinquad/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// FrameControllerBuilderOption is a functional option applied to a frame controller during construction.
type FrameControllerBuilderOption func(*frameController)

// WithRates sets the rotation applied per Update. Defaults to transform.DefaultRates.
//
// Parameters:
//   - rates: the per-step rotation in radians
//
// Returns:
//   - FrameControllerBuilderOption: a function that applies the rates option
func WithRates(rates transform.Rates) FrameControllerBuilderOption {
	return func(fc *frameController) {
		fc.rates = rates
	}
}

// WithClearColor sets the color the surface is cleared to. Defaults to DefaultClearColor.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - FrameControllerBuilderOption: a function that applies the clear color option
func WithClearColor(color wgpu.Color) FrameControllerBuilderOption {
	return func(fc *frameController) {
		fc.clear = color
	}
}

// WithStateObserver registers a function called on every state transition, on the caller's thread.
//
// Parameters:
//   - observer: the function to call
//
// Returns:
//   - FrameControllerBuilderOption: a function that applies the observer option
func WithStateObserver(observer StateObserver) FrameControllerBuilderOption {
	return func(fc *frameController) {
		fc.observer = observer
	}
}

// WithLogger sets the logger used by the controller.
//
// Parameters:
//   - logger: the logger, nil keeps the standard logger
//
// Returns:
//   - FrameControllerBuilderOption: a function that applies the logger option
func WithLogger(logger logrus.FieldLogger) FrameControllerBuilderOption {
	return func(fc *frameController) {
		if logger != nil {
			fc.logger = logger
		}
	}
}
