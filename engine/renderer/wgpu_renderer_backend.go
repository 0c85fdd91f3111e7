package renderer

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	config SurfaceConfiguration

	// objects maps every live handle to its wgpu object.
	objects    map[common.Handle]any
	nextHandle common.Handle

	// Frame state between AcquireFrame and Present
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frame        Frame

	// missedAcquires counts consecutive acquisitions that returned no surface texture.
	missedAcquires int
}

// maxMissedAcquires is how many empty acquisitions in a row are treated as a stale surface
// before the failure is reported as unrecoverable.
const maxMissedAcquires = 3

var _ RendererBackend = &wgpuRendererBackendImpl{}

// NewWGPURendererBackend creates an uninitialized WebGPU backend. Init must be called before use.
// The calling goroutine is locked to its OS thread because wgpu-native surfaces are thread-affine.
//
// Returns:
//   - RendererBackend: the backend
func NewWGPURendererBackend() RendererBackend {
	runtime.LockOSThread()
	return &wgpuRendererBackendImpl{
		mu:      &sync.Mutex{},
		objects: make(map[common.Handle]any),
	}
}

func (b *wgpuRendererBackendImpl) Type() RendererBackendType {
	return BackendTypeWGPU
}

func (b *wgpuRendererBackendImpl) Init(target SurfaceTarget, opts AdapterOptions) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return errors.New("renderer backend already initialized")
	}
	surfaceDescriptor := target.SurfaceDescriptor()
	if surfaceDescriptor == nil {
		return fmt.Errorf("%w: window provides no surface descriptor", ErrNoCompatibleAdapter)
	}

	defer func() {
		if err != nil {
			b.releaseLocked()
		}
	}()

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      opts.PowerPreference,
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCompatibleAdapter, err)
	}
	if a == nil {
		return ErrNoCompatibleAdapter
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceCreationFailed, err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return nil
}

func (b *wgpuRendererBackendImpl) SurfaceCapabilities() (SurfaceCapabilities, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.adapter == nil {
		return SurfaceCapabilities{}, ErrNotInitialized
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	return SurfaceCapabilities{
		Formats:      capabilities.Formats,
		PresentModes: capabilities.PresentModes,
		AlphaModes:   capabilities.AlphaModes,
	}, nil
}

// ConfigureSurface applies the configuration. MaxFramesInFlight is recorded but not forwarded,
// the binding leaves frame latency at the wgpu-native default of 2.
func (b *wgpuRendererBackendImpl) ConfigureSurface(cfg SurfaceConfiguration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotInitialized
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: cfg.PresentMode,
		AlphaMode:   cfg.AlphaMode,
	})
	b.config = cfg
	return nil
}

func (b *wgpuRendererBackendImpl) AcquireFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return Frame{}, NewSurfaceError(SurfaceErrorUnknown, ErrNotInitialized)
	}
	// Acquiring twice without presenting makes wgpu-native abort with "Surface image is already acquired".
	if b.frameSurface != nil {
		return Frame{}, NewSurfaceError(SurfaceErrorUnknown, errors.New("previous frame surface not yet presented"))
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return Frame{}, NewSurfaceError(classifySurfaceError(err), err)
	}
	if surfaceTextureMissing(surfaceTexture) {
		b.missedAcquires++
		return Frame{}, NewSurfaceError(missingTextureKind(b.missedAcquires), ErrNoSurfaceTexture)
	}
	b.missedAcquires = 0

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return Frame{}, NewSurfaceError(SurfaceErrorUnknown, err)
	}

	b.frameSurface = surfaceTexture
	b.frameView = view
	b.frame = Frame{
		Texture: b.store(surfaceTexture),
		View:    b.store(view),
		Width:   b.config.Width,
		Height:  b.config.Height,
	}
	return b.frame, nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, img common.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotInitialized
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              img.Width,
			Height:             img.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		img.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  img.BytesPerRow(),
			RowsPerImage: img.Height,
		},
		&wgpu.Extent3D{
			Width:              img.Width,
			Height:             img.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTexture(bindingKey, b.store(tex))
	provider.SetTextureView(bindingKey, b.store(view))

	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotInitialized
	}

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, b.store(samp))

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotInitialized
	}
	if len(descriptor.Entries) == 0 {
		return nil
	}

	layoutHandle := provider.BindGroupLayout()
	layout, ok := lookup[*wgpu.BindGroupLayout](b, layoutHandle)
	if !ok {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(b.store(layout))
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
		isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

		if isTexture {
			tv, ok := lookup[*wgpu.TextureView](b, provider.TextureView(binding))
			if !ok {
				return fmt.Errorf("texture binding %d has no texture view, call InitTextureView first", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
		} else if isSampler {
			samp, ok := lookup[*wgpu.Sampler](b, provider.Sampler(binding))
			if !ok {
				return fmt.Errorf("sampler binding %d has no sampler, call InitSampler first", binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Sampler: samp,
			}
		} else {
			buf, ok := lookup[*wgpu.Buffer](b, provider.Buffer(binding))
			if !ok {
				bufSize := entry.Buffer.MinBindingSize
				if overrideSize, ok := bufferSizeOverrides[binding]; ok {
					bufSize = overrideSize
				}
				var bufErr error
				buf, bufErr = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: provider.Label() + " Buffer",
					Size:  bufSize,
					Usage: uniformBufferUsage,
				})
				if bufErr != nil {
					return bufErr
				}
				provider.SetBuffer(binding, b.store(buf))
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: entry.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(b.store(bindGroup))

	return nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline, format wgpu.TextureFormat, providers []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotInitialized
	}
	program := p.Program()
	if program.Source == "" {
		return errors.New("shader program has no source")
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: program.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: program.Source,
		},
	})
	if err != nil {
		return err
	}

	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(providers))
	for g, provider := range providers {
		layout, ok := lookup[*wgpu.BindGroupLayout](b, provider.BindGroupLayout())
		if !ok {
			module.Release()
			return fmt.Errorf("bind group %d (%s) has no layout, call InitBindGroup first", g, provider.Label())
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		module.Release()
		return err
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: program.VertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: program.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     p.BlendState(),
					WriteMask: p.WriteMask(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: p.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		pipelineLayout.Release()
		module.Release()
		return err
	}

	p.SetRenderPipeline(b.store(created), b.store(pipelineLayout), b.store(module))

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue == nil {
		return ErrNotInitialized
	}

	for _, w := range writes {
		buf, ok := lookup[*wgpu.Buffer](b, w.Provider.Buffer(w.Binding))
		if !ok {
			return fmt.Errorf("%s has no buffer at binding %d", w.Provider.Label(), w.Binding)
		}
		if err := b.queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return fmt.Errorf("write %s binding %d: %w", w.Provider.Label(), w.Binding, err)
		}
	}
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(frame Frame, clear wgpu.Color) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return errors.New("frame already begun")
	}
	view, ok := lookup[*wgpu.TextureView](b, frame.View)
	if !ok {
		return ErrNoActiveFrame
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clear,
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	vertexCount, instanceCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoActiveFrame
	}

	renderPipeline, ok := lookup[*wgpu.RenderPipeline](b, p.RenderPipeline())
	if !ok {
		return fmt.Errorf("pipeline %s is not registered", p.PipelineKey())
	}
	b.framePass.SetPipeline(renderPipeline)

	for i, provider := range bindGroups {
		bg, ok := lookup[*wgpu.BindGroup](b, provider.BindGroup())
		if !ok {
			return fmt.Errorf("bind group %d (%s) is not initialized", i, provider.Label())
		}
		b.framePass.SetBindGroup(uint32(i), bg, nil)
	}

	b.framePass.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoActiveFrame
	}

	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		return err
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()
	b.dropFrameLocked()
}

func (b *wgpuRendererBackendImpl) DiscardFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		if b.framePass != nil {
			b.framePass.End()
			b.framePass = nil
		}
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	b.dropFrameLocked()
}

// dropFrameLocked releases the acquired surface texture and its view and forgets their handles.
func (b *wgpuRendererBackendImpl) dropFrameLocked() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	delete(b.objects, b.frame.View)
	delete(b.objects, b.frame.Texture)
	b.frame = Frame{}
}

func (b *wgpuRendererBackendImpl) ReleaseHandle(h common.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.objects[h]
	if !ok {
		return
	}
	delete(b.objects, h)
	if r, ok := obj.(interface{ Release() }); ok {
		r.Release()
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()
}

// releaseLocked frees any handles still alive, then the device chain in reverse creation order.
func (b *wgpuRendererBackendImpl) releaseLocked() {
	b.dropFrameLocked()
	for h, obj := range b.objects {
		if r, ok := obj.(interface{ Release() }); ok {
			r.Release()
		}
		delete(b.objects, h)
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// store registers obj under a fresh handle.
func (b *wgpuRendererBackendImpl) store(obj any) common.Handle {
	b.nextHandle++
	b.objects[b.nextHandle] = obj
	return b.nextHandle
}

// lookup resolves h to a wgpu object of type T.
func lookup[T any](b *wgpuRendererBackendImpl, h common.Handle) (T, bool) {
	var zero T
	obj, ok := b.objects[h]
	if !ok {
		return zero, false
	}
	t, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// surfaceTextureMissing reports whether the binding returned a texture without a native handle.
// Surface.GetCurrentTexture discards the acquisition status, so a timed out, outdated or lost
// surface comes back as an empty texture and no error.
func surfaceTextureMissing(t *wgpu.Texture) bool {
	if t == nil {
		return true
	}
	ref := reflect.ValueOf(t).Elem().FieldByName("ref")
	return ref.IsValid() && ref.Kind() == reflect.Pointer && ref.IsNil()
}

// missingTextureKind classifies the n-th consecutive empty acquisition. The first few reconfigure
// the surface, after that the failure is fatal.
func missingTextureKind(n int) SurfaceErrorKind {
	if n < maxMissedAcquires {
		return SurfaceErrorOutdated
	}
	return SurfaceErrorUnknown
}

// uniformBufferUsage is the usage of every buffer a bind group owns. Only uniform bindings carry buffers.
const uniformBufferUsage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
