// Package controller drives the per-frame update and render of the quad and decides how to recover from
// surface errors.
package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/graphics"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/Carmen-Shannon/spinquad/engine/resources"
	"github.com/Carmen-Shannon/spinquad/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// ErrTerminateRunLoop is wrapped by every Render error. The driver must stop its loop when it sees one.
var ErrTerminateRunLoop = errors.New("terminate run loop")

// DefaultClearColor is the dark blue the surface is cleared to before the quad is drawn.
var DefaultClearColor = wgpu.Color{R: 0.02, G: 0.02, B: 0.05, A: 1.0}

// State is the position of the controller in its frame cycle.
type State int

const (
	// StateIdle waits for the next update or resize.
	StateIdle State = iota

	// StateUpdating advances the animation and writes the uniform. The controller stays here until Render.
	StateUpdating

	// StateRendering acquires the frame and records the pass.
	StateRendering

	// StatePresented has submitted and presented the frame.
	StatePresented

	// StateResizing reapplies the surface configuration.
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUpdating:
		return "updating"
	case StateRendering:
		return "rendering"
	case StatePresented:
		return "presented"
	case StateResizing:
		return "resizing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FrameOutcome reports what Render did with the frame.
type FrameOutcome int

const (
	// FramePresented means the quad was drawn and presented.
	FramePresented FrameOutcome = iota

	// FrameReconfigured means the surface was lost or outdated and was reconfigured instead of drawing.
	FrameReconfigured

	// FrameDropped means no surface texture was available in time. Nothing was drawn.
	FrameDropped

	// FrameFailed accompanies a Render error.
	FrameFailed
)

func (o FrameOutcome) String() string {
	switch o {
	case FramePresented:
		return "presented"
	case FrameReconfigured:
		return "reconfigured"
	case FrameDropped:
		return "dropped"
	case FrameFailed:
		return "failed"
	default:
		return fmt.Sprintf("FrameOutcome(%d)", int(o))
	}
}

// FrameStats counts Render outcomes since the controller was created.
type FrameStats struct {
	Presented    uint64
	Reconfigured uint64
	Dropped      uint64
}

// StateObserver is called on every state transition.
type StateObserver func(from, to State)

// frameController is the implementation of the FrameController interface.
type frameController struct {
	mu *sync.Mutex

	ctx       graphics.GraphicsContext
	resources resources.FrameResources

	state     State
	animation transform.AnimationState
	rates     transform.Rates
	clear     wgpu.Color
	stats     FrameStats

	observer StateObserver
	logger   logrus.FieldLogger
}

// FrameController runs the frame cycle Idle, Updating, Rendering, Presented, and back to Idle. A resize moves
// it through Resizing and always completes before the next Render begins.
//
// All methods must be called from the thread that owns the window.
type FrameController interface {
	// State returns the current state.
	//
	// Returns:
	//   - State: the state
	State() State

	// Animation returns the current animation state.
	//
	// Returns:
	//   - transform.AnimationState: the accumulated rotation
	Animation() transform.AnimationState

	// Stats returns the outcome counters.
	//
	// Returns:
	//   - FrameStats: the counters
	Stats() FrameStats

	// OnResize reconfigures the surface to size. Sizes with a zero dimension, such as a minimized window,
	// leave the surface as it is. Between Update and Render the pending MVP is rewritten for the new
	// aspect ratio without advancing the animation.
	//
	// Parameters:
	//   - size: the new framebuffer size in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured or the uniform rewritten
	OnResize(size common.Size) error

	// Update advances the animation one step and writes the resulting MVP matrix to the uniform buffer.
	//
	// Returns:
	//   - error: an error if the uniform write fails
	Update() error

	// Render draws the quad into the next surface frame and presents it.
	//
	// A lost or outdated surface is reconfigured at the current size and reported as FrameReconfigured.
	// A timeout is logged and reported as FrameDropped with nothing else touched. Any other acquisition
	// failure, including out of memory, is returned wrapping ErrTerminateRunLoop.
	//
	// Returns:
	//   - FrameOutcome: what happened to the frame
	//   - error: a fatal error wrapping ErrTerminateRunLoop
	Render() (FrameOutcome, error)

	// Release frees the frame resources. The graphics context is released by its owner.
	Release()
}

var _ FrameController = &frameController{}

// NewFrameController creates a controller in StateIdle with a zero animation state.
//
// Parameters:
//   - ctx: the graphics context presenting the frames
//   - res: the frame resources built on ctx
//   - options: variadic list of FrameControllerBuilderOption functions
//
// Returns:
//   - FrameController: the controller
func NewFrameController(ctx graphics.GraphicsContext, res resources.FrameResources, options ...FrameControllerBuilderOption) FrameController {
	fc := &frameController{
		mu:        &sync.Mutex{},
		ctx:       ctx,
		resources: res,
		state:     StateIdle,
		rates:     transform.DefaultRates,
		clear:     DefaultClearColor,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(fc)
	}
	fc.logger = fc.logger.WithField("component", "controller")
	return fc
}

func (fc *frameController) State() State {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.state
}

func (fc *frameController) Animation() transform.AnimationState {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.animation
}

func (fc *frameController) Stats() FrameStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.stats
}

func (fc *frameController) OnResize(size common.Size) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	prev := fc.state
	fc.transition(StateResizing)
	err := fc.ctx.Reconfigure(size)
	if prev != StateUpdating {
		fc.transition(StateIdle)
		return err
	}

	// the pending render draws this step again at the new aspect ratio
	if err == nil {
		err = fc.writeMVP(fc.animation)
	}
	fc.transition(StateUpdating)
	return err
}

func (fc *frameController) Update() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.transition(StateUpdating)

	next := fc.animation.Advance(fc.rates)
	if err := fc.writeMVP(next); err != nil {
		fc.transition(StateIdle)
		return err
	}
	fc.animation = next
	return nil
}

// writeMVP uploads the matrix for state at the surface's current aspect ratio.
func (fc *frameController) writeMVP(state transform.AnimationState) error {
	size := fc.ctx.Size()
	mvp := transform.Compute(state, transform.AspectRatio(size.Width, size.Height))
	if err := fc.resources.WriteUniform(mvp.Bytes()); err != nil {
		return fmt.Errorf("write mvp uniform: %w", err)
	}
	return nil
}

func (fc *frameController) Render() (FrameOutcome, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.transition(StateRendering)

	frame, err := fc.ctx.AcquireFrame()
	if err != nil {
		return fc.recover(err)
	}

	backend := fc.ctx.Backend()
	if err := fc.record(backend, frame); err != nil {
		backend.DiscardFrame()
		fc.transition(StateIdle)
		fc.logger.WithError(err).Error("frame recording failed")
		return FrameFailed, fmt.Errorf("%w: %w", ErrTerminateRunLoop, err)
	}
	backend.Present()
	fc.stats.Presented++

	fc.transition(StatePresented)
	fc.transition(StateIdle)
	return FramePresented, nil
}

// record encodes the single clear-and-draw pass and submits it.
func (fc *frameController) record(backend renderer.RendererBackend, frame renderer.Frame) error {
	if err := backend.BeginFrame(frame, fc.clear); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if err := backend.DrawCall(fc.resources.Pipeline(), resources.VertexCount, resources.InstanceCount, fc.resources.BindGroups()); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := backend.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

// recover applies the surface error policy to a failed acquisition.
func (fc *frameController) recover(err error) (FrameOutcome, error) {
	kind, _ := renderer.SurfaceErrorKindOf(err)
	log := fc.logger.WithField("kind", kind.String())

	switch kind {
	case renderer.SurfaceErrorTimeout:
		log.WithError(err).Warn("surface texture acquisition timed out, dropping frame")
		fc.stats.Dropped++
		fc.transition(StateIdle)
		return FrameDropped, nil

	case renderer.SurfaceErrorLost, renderer.SurfaceErrorOutdated:
		size := fc.ctx.Size()
		fc.transition(StateResizing)
		if rerr := fc.ctx.Reconfigure(size); rerr != nil {
			fc.transition(StateIdle)
			log.WithError(rerr).Error("surface reconfiguration failed")
			return FrameFailed, fmt.Errorf("%w: %w", ErrTerminateRunLoop, rerr)
		}
		log.WithFields(logrus.Fields{"width": size.Width, "height": size.Height}).Debug("surface reconfigured after acquisition failure")
		fc.stats.Reconfigured++
		fc.transition(StateIdle)
		return FrameReconfigured, nil

	default:
		log.WithError(err).Error("fatal surface error")
		fc.transition(StateIdle)
		return FrameFailed, fmt.Errorf("%w: %w", ErrTerminateRunLoop, err)
	}
}

func (fc *frameController) Release() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.resources != nil {
		fc.resources.Release()
		fc.resources = nil
	}
}

// transition moves to next and notifies the observer. Must be called with mu held.
func (fc *frameController) transition(next State) {
	if fc.state == next {
		return
	}
	prev := fc.state
	fc.state = next
	if fc.observer != nil {
		fc.observer(prev, next)
	}
}
