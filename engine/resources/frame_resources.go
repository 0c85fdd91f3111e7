// Package resources builds the GPU objects the quad needs for every frame: its texture and sampler, the MVP
// uniform buffer, the bind group tying them together, and the render pipeline.
package resources

import (
	"fmt"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/Carmen-Shannon/spinquad/engine/graphics"
	"github.com/Carmen-Shannon/spinquad/engine/renderer"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/spinquad/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Bindings of group 0.
const (
	BindingUniform = 0
	BindingTexture = 1
	BindingSampler = 2
)

const (
	// UniformSize is the byte size of the MVP uniform, one column-major 4x4 float32 matrix.
	UniformSize = 64

	// VertexCount is the number of vertices the quad shader generates from the vertex index.
	VertexCount = 6

	// InstanceCount is the number of quads drawn.
	InstanceCount = 1

	// DefaultLabel prefixes the debug labels of every created object.
	DefaultLabel = "Quad"
)

// frameResources is the implementation of the FrameResources interface.
type frameResources struct {
	backend     renderer.RendererBackend
	provider    bind_group_provider.BindGroupProvider
	pipeline    pipeline.Pipeline
	shader      shader.Shader
	textureSize common.Size

	label  string
	logger logrus.FieldLogger
}

// FrameResources owns the GPU objects that stay alive for the lifetime of the window: the texture, sampler,
// uniform buffer, bind group, and render pipeline.
type FrameResources interface {
	// Provider returns the bind group provider holding group 0.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider
	Provider() bind_group_provider.BindGroupProvider

	// BindGroups returns the providers to bind for the draw, in group index order.
	//
	// Returns:
	//   - []bind_group_provider.BindGroupProvider: the providers
	BindGroups() []bind_group_provider.BindGroupProvider

	// Pipeline returns the registered render pipeline.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	Pipeline() pipeline.Pipeline

	// Shader returns the reflection of the program the pipeline was built from.
	//
	// Returns:
	//   - shader.Shader: the reflection
	Shader() shader.Shader

	// TextureSize returns the pixel size of the quad texture.
	//
	// Returns:
	//   - common.Size: the texture size
	TextureSize() common.Size

	// WriteUniform queues a write of the 64-byte MVP uniform.
	//
	// Parameters:
	//   - data: exactly UniformSize bytes
	//
	// Returns:
	//   - error: an error if data has the wrong length or the write fails
	WriteUniform(data []byte) error

	// Release frees the pipeline and bind group resources.
	Release()
}

var _ FrameResources = &frameResources{}

// Build creates the frame resources on ctx.
//
// The texture is sized to image and uploaded with a 4*width row stride. The sampler filters linearly and clamps
// to edge. The uniform buffer is zeroed. The pipeline draws a triangle list with counter-clockwise front faces,
// no culling, alpha blending into the surface format, and no depth or stencil.
//
// Parameters:
//   - ctx: an initialized graphics context
//   - image: the decoded texture
//   - program: the WGSL program, which must declare the group 0 bindings used here
//   - options: variadic list of FrameResourcesBuilderOption functions
//
// Returns:
//   - FrameResources: the resources
//   - error: common.ErrInvalidImageData or renderer.ErrResourceCreationFailed (wrapped) on failure
func Build(ctx graphics.GraphicsContext, image common.Image, program common.ShaderProgram, options ...FrameResourcesBuilderOption) (FrameResources, error) {
	fr := &frameResources{
		backend:     ctx.Backend(),
		label:       DefaultLabel,
		logger:      logrus.StandardLogger(),
		textureSize: common.Size{Width: image.Width, Height: image.Height},
	}
	for _, opt := range options {
		opt(fr)
	}
	fr.logger = fr.logger.WithField("component", "resources")

	if err := image.Validate(); err != nil {
		return nil, fmt.Errorf("build frame resources: %w", err)
	}

	layout := BindGroupLayoutDescriptor(fr.label)

	s, err := shader.NewShader(program)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", renderer.ErrResourceCreationFailed, err)
	}
	if err := s.CheckBindGroup(0, layout); err != nil {
		return nil, fmt.Errorf("%w: %w", renderer.ErrResourceCreationFailed, err)
	}
	if s.VertexInputCount() > 0 {
		return nil, fmt.Errorf("%w: %s declares vertex inputs but no vertex buffers are bound", renderer.ErrResourceCreationFailed, program.Label)
	}
	fr.shader = s

	fr.provider = bind_group_provider.NewBindGroupProvider(fr.label)
	if err := fr.create(ctx, image, program, layout); err != nil {
		fr.Release()
		return nil, fmt.Errorf("%w: %v", renderer.ErrResourceCreationFailed, err)
	}

	fr.logger.WithFields(logrus.Fields{
		"width":  image.Width,
		"height": image.Height,
		"format": ctx.Format(),
	}).Info("frame resources built")
	return fr, nil
}

// create issues every GPU creation in dependency order.
func (fr *frameResources) create(ctx graphics.GraphicsContext, image common.Image, program common.ShaderProgram, layout wgpu.BindGroupLayoutDescriptor) error {
	if err := fr.backend.InitTextureView(fr.provider, BindingTexture, image); err != nil {
		return fmt.Errorf("texture: %w", err)
	}

	if err := fr.backend.InitSampler(fr.provider, BindingSampler, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	}); err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	if err := fr.backend.InitBindGroup(fr.provider, layout, map[int]uint64{BindingUniform: UniformSize}); err != nil {
		return fmt.Errorf("bind group: %w", err)
	}

	if err := fr.WriteUniform(make([]byte, UniformSize)); err != nil {
		return fmt.Errorf("uniform: %w", err)
	}

	fr.pipeline = pipeline.NewPipeline(fr.label+" Pipeline", program,
		pipeline.WithBlendEnabled(true),
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleList),
		pipeline.WithFrontFace(wgpu.FrontFaceCCW),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithSampleCount(1),
	)
	if err := fr.backend.RegisterRenderPipeline(fr.pipeline, ctx.Format(), fr.BindGroups()); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// BindGroupLayoutDescriptor describes group 0: the uniform buffer for the vertex stage, then the texture and
// sampler for the fragment stage.
//
// Parameters:
//   - label: prefix of the layout's debug label
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: the layout
func BindGroupLayoutDescriptor(label string) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: label + " Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    BindingUniform,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: UniformSize,
				},
			},
			{
				Binding:    BindingTexture,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    BindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

func (fr *frameResources) Provider() bind_group_provider.BindGroupProvider {
	return fr.provider
}

func (fr *frameResources) BindGroups() []bind_group_provider.BindGroupProvider {
	return []bind_group_provider.BindGroupProvider{fr.provider}
}

func (fr *frameResources) Pipeline() pipeline.Pipeline {
	return fr.pipeline
}

func (fr *frameResources) Shader() shader.Shader {
	return fr.shader
}

func (fr *frameResources) TextureSize() common.Size {
	return fr.textureSize
}

func (fr *frameResources) WriteUniform(data []byte) error {
	if len(data) != UniformSize {
		return fmt.Errorf("uniform write of %d bytes, want %d", len(data), UniformSize)
	}
	return fr.backend.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: fr.provider,
		Binding:  BindingUniform,
		Data:     data,
	}})
}

func (fr *frameResources) Release() {
	if fr.pipeline != nil {
		fr.pipeline.Release(fr.backend)
	}
	if fr.provider != nil {
		fr.provider.Release(fr.backend)
	}
}
