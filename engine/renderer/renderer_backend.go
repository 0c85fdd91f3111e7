package renderer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the graphics context.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeCapture selects the recording backend, which performs no GPU work.
	BackendTypeCapture
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeAuto uses the first present mode the surface reports.
	PresentModeAuto PresentMode = iota

	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped

	// PresentModeMailbox replaces the queued frame with the newest one without tearing.
	PresentModeMailbox
)

// String returns the configuration name of the mode.
func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	case PresentModeMailbox:
		return "mailbox"
	default:
		return "auto"
	}
}

// WGPU maps the mode to the WebGPU present mode.
//
// Returns:
//   - wgpu.PresentMode: the matching WebGPU mode
//   - bool: false for PresentModeAuto, which has no fixed WebGPU value
func (m PresentMode) WGPU() (wgpu.PresentMode, bool) {
	switch m {
	case PresentModeVSync:
		return wgpu.PresentModeFifo, true
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate, true
	case PresentModeMailbox:
		return wgpu.PresentModeMailbox, true
	default:
		return 0, false
	}
}

// ParsePresentMode parses a configuration name into a PresentMode. The empty string is PresentModeAuto.
//
// Parameters:
//   - s: one of "", "auto", "vsync", "uncapped", "mailbox" (case-insensitive)
//
// Returns:
//   - PresentMode: the parsed mode
//   - error: an error if the name is unknown
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PresentModeAuto, nil
	case "vsync", "fifo":
		return PresentModeVSync, nil
	case "uncapped", "immediate":
		return PresentModeUncapped, nil
	case "mailbox":
		return PresentModeMailbox, nil
	default:
		return PresentModeAuto, fmt.Errorf("unknown present mode %q", s)
	}
}

// SurfaceTarget supplies the platform surface descriptor of a window.
// The window must outlive every backend created from it.
type SurfaceTarget interface {
	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// AdapterOptions steers adapter selection during Init.
type AdapterOptions struct {
	PowerPreference      wgpu.PowerPreference
	ForceFallbackAdapter bool
}

// SurfaceCapabilities lists what the surface supports on the selected adapter, in the adapter's order of preference.
type SurfaceCapabilities struct {
	Formats      []wgpu.TextureFormat
	PresentModes []wgpu.PresentMode
	AlphaModes   []wgpu.CompositeAlphaMode
}

// SurfaceConfiguration is the full state applied to the presentation surface.
type SurfaceConfiguration struct {
	Format            wgpu.TextureFormat
	Width             uint32
	Height            uint32
	PresentMode       wgpu.PresentMode
	AlphaMode         wgpu.CompositeAlphaMode
	MaxFramesInFlight uint32
}

// Size returns the configured surface extent.
func (c SurfaceConfiguration) Size() common.Size {
	return common.Size{Width: c.Width, Height: c.Height}
}

// Frame is an acquired presentable surface texture.
type Frame struct {
	Texture common.Handle
	View    common.Handle
	Width   uint32
	Height  uint32
}

// RendererBackend is the GPU abstraction used by the graphics context, frame resources, and frame controller.
// Every GPU object is referenced through a common.Handle owned by the backend.
type RendererBackend interface {
	common.Releaser

	// Type reports which implementation this is.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Type() RendererBackendType

	// Init creates the instance and surface, selects an adapter compatible with the surface, and requests a device.
	//
	// Parameters:
	//   - target: the window providing the platform surface
	//   - opts: adapter selection preferences
	//
	// Returns:
	//   - error: ErrNoCompatibleAdapter or ErrDeviceCreationFailed (wrapped) on failure
	Init(target SurfaceTarget, opts AdapterOptions) error

	// SurfaceCapabilities queries the formats, present modes, and alpha modes of the surface on the selected adapter.
	//
	// Returns:
	//   - SurfaceCapabilities: the supported values
	//   - error: an error if the backend is not initialized
	SurfaceCapabilities() (SurfaceCapabilities, error)

	// ConfigureSurface applies cfg to the surface. It completes before returning.
	//
	// Parameters:
	//   - cfg: the configuration to apply
	//
	// Returns:
	//   - error: an error if the backend is not initialized
	ConfigureSurface(cfg SurfaceConfiguration) error

	// AcquireFrame obtains the next presentable surface texture.
	//
	// Returns:
	//   - Frame: the acquired frame
	//   - error: a *SurfaceError describing why no frame is available
	AcquireFrame() (Frame, error)

	// InitTextureView creates a texture sized to img, uploads its pixels with a 4*width row stride,
	// and stores the texture and its view on the provider at bindingKey.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture and view on
	//   - bindingKey: the binding index the view will occupy
	//   - img: tightly packed RGBA8 pixels
	//
	// Returns:
	//   - error: an error if the texture or view could not be created
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, img common.Image) error

	// InitSampler creates a sampler and stores it on the provider at bindingKey.
	// Zero fields of samplerStagingData use linear filtering and clamp-to-edge addressing.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index the sampler will occupy
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if the sampler could not be created
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// InitBindGroup creates the layout described by descriptor, allocates buffers for buffer bindings the
	// provider does not already hold, and creates the bind group. Texture and sampler bindings must already be
	// populated on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing and receiving the resources
	//   - descriptor: the layout of the bind group
	//   - bufferSizeOverrides: buffer sizes keyed by binding, used when the layout's MinBindingSize is zero
	//
	// Returns:
	//   - error: an error if any resource could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// RegisterRenderPipeline compiles the pipeline's program and creates the render pipeline whose layout is the
	// ordered list of bind group layouts held by providers. The handles are stored on p.
	//
	// Parameters:
	//   - p: the pipeline holding program and fixed-function state
	//   - format: the color target format
	//   - providers: bind group providers in group index order
	//
	// Returns:
	//   - error: an error if the pipeline could not be created
	RegisterRenderPipeline(p pipeline.Pipeline, format wgpu.TextureFormat, providers []bind_group_provider.BindGroupProvider) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: the data to write
	//
	// Returns:
	//   - error: the first write failure
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame creates a command encoder and begins a single render pass that clears frame to clear.
	// Must be paired with EndFrame.
	//
	// Parameters:
	//   - frame: the acquired frame to render into
	//   - clear: the clear color
	//
	// Returns:
	//   - error: an error if the encoder or pass could not be created
	BeginFrame(frame Frame, clear wgpu.Color) error

	// DrawCall binds p and the providers' bind groups (group i = providers[i]) and draws non-indexed vertices.
	//
	// Parameters:
	//   - p: the registered pipeline
	//   - vertexCount: vertices per instance
	//   - instanceCount: number of instances
	//   - bindGroups: providers whose bind groups are set in order
	//
	// Returns:
	//   - error: an error if no pass is open or the pipeline is not registered
	DrawCall(p pipeline.Pipeline, vertexCount, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the render pass, finishes the encoder, and submits the command buffer.
	//
	// Returns:
	//   - error: an error if the commands could not be finished
	EndFrame() error

	// Present presents the acquired frame and releases it.
	Present()

	// DiscardFrame releases an acquired frame without presenting it.
	DiscardFrame()

	// Release frees the device, adapter, surface, and instance. Handles must be released first.
	Release()
}
