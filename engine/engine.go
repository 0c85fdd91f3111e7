package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/controller"
	"github.com/Carmen-Shannon/spinquad/engine/profiler"
	"github.com/Carmen-Shannon/spinquad/engine/window"
	"github.com/sirupsen/logrus"
)

// engine implements the Engine interface.
// Drives the frame controller from the window's message loop on a single thread.
type engine struct {
	window     window.Window
	controller controller.FrameController

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	err    error
	logger logrus.FieldLogger
}

// Engine is the main entry point for the application.
// It forwards window resizes to the controller and runs one Update and Render per loop iteration.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Controller returns the frame controller being driven.
	//
	// Returns:
	//   - controller.FrameController: the controller
	Controller() controller.FrameController

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run runs the message loop on the calling goroutine until the window closes or a frame fails fatally.
	// Must be called from the goroutine that created the window.
	//
	// Returns:
	//   - error: nil on a normal close, otherwise the fatal error (wrapping controller.ErrTerminateRunLoop
	//     for render failures)
	Run() error

	// Quit asks the message loop to stop after the current iteration.
	Quit()
}

// NewEngine creates a new Engine driving fc from w.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - w: the window providing the message loop
//   - fc: the frame controller to drive
//   - options: functional options for engine configuration (profiling, frame limit, logger)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(w window.Window, fc controller.FrameController, options ...EngineBuilderOption) Engine {
	e := &engine{
		window:     w,
		controller: fc,
		logger:     logrus.StandardLogger(),
	}

	for _, opt := range options {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "engine")
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Controller() controller.FrameController {
	return e.controller
}

func (e *engine) Run() error {
	e.err = nil
	e.window.SetResizeCallback(e.handleResize)
	e.window.SetUpdateCallback(e.handleFrame)
	defer func() {
		e.window.SetResizeCallback(nil)
		e.window.SetUpdateCallback(nil)
	}()

	e.logger.Info("run loop started")
	e.window.ProcessMessages()

	if e.err != nil {
		return e.err
	}
	e.logger.WithField("presented", e.controller.Stats().Presented).Info("run loop finished")
	return nil
}

func (e *engine) Quit() {
	e.window.RequestClose()
}

// handleResize forwards a framebuffer resize. Negative sizes from the platform are clamped to zero,
// which the controller treats as minimized.
func (e *engine) handleResize(width, height int) {
	size := common.Size{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
	if err := e.controller.OnResize(size); err != nil {
		e.fail(fmt.Errorf("resize to %dx%d: %w", size.Width, size.Height, err))
	}
}

// handleFrame runs one Update and Render.
func (e *engine) handleFrame() {
	start := time.Now()

	if err := e.controller.Update(); err != nil {
		e.fail(err)
		return
	}
	if _, err := e.controller.Render(); err != nil {
		e.fail(err)
		return
	}

	if e.profilingEnabled {
		e.profiler.Tick(e.controller.Stats())
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// fail records the first fatal error and stops the loop.
func (e *engine) fail(err error) {
	if e.err == nil {
		e.err = err
		log := e.logger.WithError(err)
		if errors.Is(err, controller.ErrTerminateRunLoop) {
			log.Error("render loop terminated")
		} else {
			log.Error("frame failed")
		}
	}
	e.window.RequestClose()
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
