package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Capture operation names, used for failure injection and in the event log.
const (
	OpInit              = "Init"
	OpConfigureSurface  = "ConfigureSurface"
	OpAcquireFrame      = "AcquireFrame"
	OpCreateTexture     = "CreateTexture"
	OpCreateSampler     = "CreateSampler"
	OpCreateBuffer      = "CreateBuffer"
	OpCreateLayout      = "CreateBindGroupLayout"
	OpCreateBindGroup   = "CreateBindGroup"
	OpCreatePipeline    = "CreateRenderPipeline"
	OpWriteBuffer       = "WriteBuffer"
	OpBeginFrame        = "BeginFrame"
	OpDraw              = "Draw"
	OpEndFrame          = "EndFrame"
	OpPresent           = "Present"
	OpDiscardFrame      = "DiscardFrame"
	OpReleaseHandle     = "ReleaseHandle"
	OpReleaseBackend    = "Release"
	captureSurfaceLabel = "Capture Surface"
)

// CapturedTexture is a texture created through the capture backend.
type CapturedTexture struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	BytesPerRow uint32
	Pixels      []byte
}

// CapturedBuffer is a buffer created through the capture backend. Data reflects every write.
type CapturedBuffer struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
	Data  []byte
}

// CapturedBindGroupEntry is one resolved entry of a captured bind group.
type CapturedBindGroupEntry struct {
	Binding     uint32
	Buffer      common.Handle
	TextureView common.Handle
	Sampler     common.Handle
}

// CapturedBindGroup is a bind group created through the capture backend.
type CapturedBindGroup struct {
	Label   string
	Layout  common.Handle
	Entries []CapturedBindGroupEntry
}

// CapturedPipeline is the full state a render pipeline was created with.
type CapturedPipeline struct {
	Key              string
	Program          common.ShaderProgram
	Format           wgpu.TextureFormat
	Blend            *wgpu.BlendState
	WriteMask        wgpu.ColorWriteMask
	Topology         wgpu.PrimitiveTopology
	FrontFace        wgpu.FrontFace
	CullMode         wgpu.CullMode
	SampleCount      uint32
	BindGroupLayouts []common.Handle
	VertexBuffers    int
	DepthStencil     bool
}

// CapturedDraw is a draw recorded inside a render pass.
type CapturedDraw struct {
	Pipeline      common.Handle
	BindGroups    []common.Handle
	VertexCount   uint32
	InstanceCount uint32
}

// CapturedPass is one render pass and the draws recorded into it.
type CapturedPass struct {
	Frame     Frame
	Clear     wgpu.Color
	Draws     []CapturedDraw
	Submitted bool
}

// CaptureBackend is a RendererBackend that performs no GPU work. It records every call so tests and
// diagnostics can inspect exactly what would have been sent to the GPU, and it can inject failures.
type CaptureBackend struct {
	mu *sync.Mutex

	initialized  bool
	capabilities SurfaceCapabilities
	config       SurfaceConfiguration

	nextHandle common.Handle
	live       map[common.Handle]string

	textures   map[common.Handle]*CapturedTexture
	views      map[common.Handle]common.Handle
	samplers   map[common.Handle]wgpu.SamplerDescriptor
	buffers    map[common.Handle]*CapturedBuffer
	layouts    map[common.Handle]wgpu.BindGroupLayoutDescriptor
	bindGroups map[common.Handle]CapturedBindGroup
	pipelines  map[common.Handle]CapturedPipeline

	configurations []SurfaceConfiguration
	passes         []CapturedPass
	events         []string
	released       []common.Handle

	acquireErrors []error
	failures      map[string]error

	frame     *Frame
	open      *CapturedPass
	presented int
}

var _ RendererBackend = &CaptureBackend{}

// CaptureBackendOption configures a CaptureBackend.
type CaptureBackendOption func(*CaptureBackend)

// WithCaptureCapabilities sets the surface capabilities the backend reports.
//
// Parameters:
//   - caps: the capabilities to report
//
// Returns:
//   - CaptureBackendOption: option function to apply
func WithCaptureCapabilities(caps SurfaceCapabilities) CaptureBackendOption {
	return func(c *CaptureBackend) {
		c.capabilities = caps
	}
}

// NewCaptureBackend creates a capture backend reporting a BGRA sRGB surface with FIFO presentation.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *CaptureBackend: the backend
func NewCaptureBackend(options ...CaptureBackendOption) *CaptureBackend {
	c := &CaptureBackend{
		mu: &sync.Mutex{},
		capabilities: SurfaceCapabilities{
			Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm},
			PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate},
			AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
		},
		live:       make(map[common.Handle]string),
		textures:   make(map[common.Handle]*CapturedTexture),
		views:      make(map[common.Handle]common.Handle),
		samplers:   make(map[common.Handle]wgpu.SamplerDescriptor),
		buffers:    make(map[common.Handle]*CapturedBuffer),
		layouts:    make(map[common.Handle]wgpu.BindGroupLayoutDescriptor),
		bindGroups: make(map[common.Handle]CapturedBindGroup),
		pipelines:  make(map[common.Handle]CapturedPipeline),
		failures:   make(map[string]error),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// QueueAcquireError makes a future AcquireFrame fail with err. Queued errors are returned in order,
// one per call, before acquisition succeeds again. Errors that are not *SurfaceError are classified by
// their text the way the WebGPU backend classifies wgpu-native acquisition errors.
//
// Parameters:
//   - err: the error to return
func (c *CaptureBackend) QueueAcquireError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireErrors = append(c.acquireErrors, err)
}

// FailNext makes the next call of op fail with err.
//
// Parameters:
//   - op: one of the Op* names
//   - err: the error to return
func (c *CaptureBackend) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

func (c *CaptureBackend) Type() RendererBackendType {
	return BackendTypeCapture
}

func (c *CaptureBackend) Init(target SurfaceTarget, opts AdapterOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpInit)
	if err := c.failLocked(OpInit); err != nil {
		return err
	}
	if c.initialized {
		return errors.New("renderer backend already initialized")
	}
	if len(c.capabilities.Formats) == 0 {
		return fmt.Errorf("%w: surface reports no formats", ErrNoCompatibleAdapter)
	}
	c.initialized = true
	return nil
}

func (c *CaptureBackend) SurfaceCapabilities() (SurfaceCapabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return SurfaceCapabilities{}, ErrNotInitialized
	}
	return c.capabilities, nil
}

func (c *CaptureBackend) ConfigureSurface(cfg SurfaceConfiguration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpConfigureSurface)
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.failLocked(OpConfigureSurface); err != nil {
		return err
	}
	c.config = cfg
	c.configurations = append(c.configurations, cfg)
	return nil
}

func (c *CaptureBackend) AcquireFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpAcquireFrame)
	if !c.initialized {
		return Frame{}, NewSurfaceError(SurfaceErrorUnknown, ErrNotInitialized)
	}
	if len(c.acquireErrors) > 0 {
		err := c.acquireErrors[0]
		c.acquireErrors = c.acquireErrors[1:]
		if _, ok := SurfaceErrorKindOf(err); !ok {
			err = NewSurfaceError(classifySurfaceError(err), err)
		}
		return Frame{}, err
	}
	if c.frame != nil {
		return Frame{}, NewSurfaceError(SurfaceErrorUnknown, errors.New("previous frame surface not yet presented"))
	}

	tex := c.storeLocked(captureSurfaceLabel)
	view := c.storeLocked(captureSurfaceLabel + " View")
	c.views[view] = tex
	c.frame = &Frame{Texture: tex, View: view, Width: c.config.Width, Height: c.config.Height}
	return *c.frame, nil
}

func (c *CaptureBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, img common.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpCreateTexture)
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.failLocked(OpCreateTexture); err != nil {
		return err
	}

	label := provider.Label() + " Texture"
	tex := c.storeLocked(label)
	c.textures[tex] = &CapturedTexture{
		Label:       label,
		Width:       img.Width,
		Height:      img.Height,
		Format:      wgpu.TextureFormatRGBA8UnormSrgb,
		BytesPerRow: img.BytesPerRow(),
		Pixels:      append([]byte(nil), img.Pixels...),
	}
	view := c.storeLocked(label + " View")
	c.views[view] = tex

	provider.SetTexture(bindingKey, tex)
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (c *CaptureBackend) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpCreateSampler)
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.failLocked(OpCreateSampler); err != nil {
		return err
	}

	label := provider.Label() + " Sampler"
	samp := c.storeLocked(label)
	c.samplers[samp] = wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
	}
	provider.SetSampler(bindingKey, samp)
	return nil
}

func (c *CaptureBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}
	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if _, ok := c.layouts[layout]; !ok {
		c.events = append(c.events, OpCreateLayout)
		if err := c.failLocked(OpCreateLayout); err != nil {
			return err
		}
		layout = c.storeLocked(descriptor.Label)
		c.layouts[layout] = descriptor
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]CapturedBindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		entries[i].Binding = entry.Binding

		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			tv := provider.TextureView(binding)
			if _, ok := c.views[tv]; !ok {
				return fmt.Errorf("texture binding %d has no texture view, call InitTextureView first", binding)
			}
			entries[i].TextureView = tv
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			samp := provider.Sampler(binding)
			if _, ok := c.samplers[samp]; !ok {
				return fmt.Errorf("sampler binding %d has no sampler, call InitSampler first", binding)
			}
			entries[i].Sampler = samp
		default:
			buf := provider.Buffer(binding)
			if _, ok := c.buffers[buf]; !ok {
				c.events = append(c.events, OpCreateBuffer)
				if err := c.failLocked(OpCreateBuffer); err != nil {
					return err
				}
				size := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					size = overrideSize
				}
				label := provider.Label() + " Buffer"
				buf = c.storeLocked(label)
				c.buffers[buf] = &CapturedBuffer{
					Label: label,
					Size:  size,
					Usage: uniformBufferUsage,
					Data:  make([]byte, size),
				}
				provider.SetBuffer(binding, buf)
			}
			entries[i].Buffer = buf
		}
	}

	c.events = append(c.events, OpCreateBindGroup)
	if err := c.failLocked(OpCreateBindGroup); err != nil {
		return err
	}
	label := provider.Label() + " Bind Group"
	bg := c.storeLocked(label)
	c.bindGroups[bg] = CapturedBindGroup{Label: label, Layout: layout, Entries: entries}
	provider.SetBindGroup(bg)
	return nil
}

func (c *CaptureBackend) RegisterRenderPipeline(p pipeline.Pipeline, format wgpu.TextureFormat, providers []bind_group_provider.BindGroupProvider) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpCreatePipeline)
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := c.failLocked(OpCreatePipeline); err != nil {
		return err
	}
	if p.Program().Source == "" {
		return errors.New("shader program has no source")
	}

	layouts := make([]common.Handle, len(providers))
	for g, provider := range providers {
		if _, ok := c.layouts[provider.BindGroupLayout()]; !ok {
			return fmt.Errorf("bind group %d (%s) has no layout, call InitBindGroup first", g, provider.Label())
		}
		layouts[g] = provider.BindGroupLayout()
	}

	module := c.storeLocked(p.Program().Label)
	layout := c.storeLocked(p.PipelineKey())
	rp := c.storeLocked(p.PipelineKey() + " Render Pipeline")
	c.pipelines[rp] = CapturedPipeline{
		Key:              p.PipelineKey(),
		Program:          p.Program(),
		Format:           format,
		Blend:            p.BlendState(),
		WriteMask:        p.WriteMask(),
		Topology:         p.Topology(),
		FrontFace:        p.FrontFace(),
		CullMode:         p.CullMode(),
		SampleCount:      p.SampleCount(),
		BindGroupLayouts: layouts,
	}
	p.SetRenderPipeline(rp, layout, module)
	return nil
}

func (c *CaptureBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return ErrNotInitialized
	}
	for _, w := range writes {
		c.events = append(c.events, OpWriteBuffer)
		if err := c.failLocked(OpWriteBuffer); err != nil {
			return err
		}
		buf, ok := c.buffers[w.Provider.Buffer(w.Binding)]
		if !ok {
			return fmt.Errorf("%s has no buffer at binding %d", w.Provider.Label(), w.Binding)
		}
		end := w.Offset + uint64(len(w.Data))
		if end > buf.Size {
			return fmt.Errorf("write of %d bytes at offset %d overflows %d byte buffer %s", len(w.Data), w.Offset, buf.Size, buf.Label)
		}
		copy(buf.Data[w.Offset:end], w.Data)
	}
	return nil
}

func (c *CaptureBackend) BeginFrame(frame Frame, clear wgpu.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpBeginFrame)
	if c.open != nil {
		return errors.New("frame already begun")
	}
	if c.frame == nil || c.frame.View != frame.View {
		return ErrNoActiveFrame
	}
	if err := c.failLocked(OpBeginFrame); err != nil {
		return err
	}
	c.open = &CapturedPass{Frame: frame, Clear: clear}
	return nil
}

func (c *CaptureBackend) DrawCall(p pipeline.Pipeline, vertexCount, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpDraw)
	if c.open == nil {
		return ErrNoActiveFrame
	}
	if _, ok := c.pipelines[p.RenderPipeline()]; !ok {
		return fmt.Errorf("pipeline %s is not registered", p.PipelineKey())
	}
	groups := make([]common.Handle, len(bindGroups))
	for i, provider := range bindGroups {
		if _, ok := c.bindGroups[provider.BindGroup()]; !ok {
			return fmt.Errorf("bind group %d (%s) is not initialized", i, provider.Label())
		}
		groups[i] = provider.BindGroup()
	}
	c.open.Draws = append(c.open.Draws, CapturedDraw{
		Pipeline:      p.RenderPipeline(),
		BindGroups:    groups,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})
	return nil
}

func (c *CaptureBackend) EndFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpEndFrame)
	if c.open == nil {
		return ErrNoActiveFrame
	}
	pass := *c.open
	c.open = nil
	if err := c.failLocked(OpEndFrame); err != nil {
		return err
	}
	pass.Submitted = true
	c.passes = append(c.passes, pass)
	return nil
}

func (c *CaptureBackend) Present() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil {
		return
	}
	c.events = append(c.events, OpPresent)
	c.presented++
	c.dropFrameLocked()
}

func (c *CaptureBackend) DiscardFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame == nil && c.open == nil {
		return
	}
	c.events = append(c.events, OpDiscardFrame)
	c.open = nil
	c.dropFrameLocked()
}

func (c *CaptureBackend) ReleaseHandle(h common.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.live[h]; !ok {
		return
	}
	c.events = append(c.events, OpReleaseHandle)
	delete(c.live, h)
	c.released = append(c.released, h)
}

func (c *CaptureBackend) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, OpReleaseBackend)
	c.dropFrameLocked()
	c.initialized = false
}

// Configurations returns every surface configuration applied, oldest first.
func (c *CaptureBackend) Configurations() []SurfaceConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SurfaceConfiguration(nil), c.configurations...)
}

// Passes returns every submitted render pass, oldest first.
func (c *CaptureBackend) Passes() []CapturedPass {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedPass(nil), c.passes...)
}

// Draws returns every draw across all submitted passes, oldest first.
func (c *CaptureBackend) Draws() []CapturedDraw {
	c.mu.Lock()
	defer c.mu.Unlock()
	var draws []CapturedDraw
	for _, pass := range c.passes {
		draws = append(draws, pass.Draws...)
	}
	return draws
}

// PresentCount returns how many frames were presented.
func (c *CaptureBackend) PresentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presented
}

// Events returns the ordered log of operations.
func (c *CaptureBackend) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

// Released returns the handles released through ReleaseHandle, in order.
func (c *CaptureBackend) Released() []common.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Handle(nil), c.released...)
}

// LiveHandles returns how many resource handles have not been released.
func (c *CaptureBackend) LiveHandles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, label := range c.live {
		if label != captureSurfaceLabel && label != captureSurfaceLabel+" View" {
			n++
		}
	}
	return n
}

// Buffer returns a copy of the captured buffer behind h.
func (c *CaptureBackend) Buffer(h common.Handle) (CapturedBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.buffers[h]
	if !ok {
		return CapturedBuffer{}, false
	}
	cp := *buf
	cp.Data = append([]byte(nil), buf.Data...)
	return cp, true
}

// Texture returns a copy of the captured texture behind h.
func (c *CaptureBackend) Texture(h common.Handle) (CapturedTexture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.textures[h]
	if !ok {
		return CapturedTexture{}, false
	}
	return *tex, true
}

// TextureOfView returns the texture a view was created from.
func (c *CaptureBackend) TextureOfView(view common.Handle) (common.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.views[view]
	return tex, ok
}

// Sampler returns the descriptor the sampler behind h was created with.
func (c *CaptureBackend) Sampler(h common.Handle) (wgpu.SamplerDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.samplers[h]
	return s, ok
}

// BindGroupLayout returns the descriptor of the layout behind h.
func (c *CaptureBackend) BindGroupLayout(h common.Handle) (wgpu.BindGroupLayoutDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.layouts[h]
	return l, ok
}

// BindGroup returns the captured bind group behind h.
func (c *CaptureBackend) BindGroup(h common.Handle) (CapturedBindGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bg, ok := c.bindGroups[h]
	return bg, ok
}

// Pipeline returns the captured pipeline behind h.
func (c *CaptureBackend) Pipeline(h common.Handle) (CapturedPipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[h]
	return p, ok
}

// storeLocked allocates a live handle with a debug label.
func (c *CaptureBackend) storeLocked(label string) common.Handle {
	c.nextHandle++
	c.live[c.nextHandle] = label
	return c.nextHandle
}

// failLocked consumes and returns an injected failure for op.
func (c *CaptureBackend) failLocked(op string) error {
	err, ok := c.failures[op]
	if !ok {
		return nil
	}
	delete(c.failures, op)
	return err
}

// dropFrameLocked forgets the acquired frame.
func (c *CaptureBackend) dropFrameLocked() {
	if c.frame == nil {
		return
	}
	delete(c.live, c.frame.Texture)
	delete(c.live, c.frame.View)
	delete(c.views, c.frame.View)
	c.frame = nil
}
