package pipeline

import (
	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the render pipeline handle and the fixed-function state used to create it.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used as the GPU debug label
	pipelineKey string

	// program is the shader module and entry points, required before the pipeline is registered with a backend
	program common.ShaderProgram

	// renderPipeline is the backend handle for the created pipeline, NilHandle until registered
	renderPipeline common.Handle
	// pipelineLayout is the backend handle for the pipeline layout, NilHandle until registered
	pipelineLayout common.Handle
	// shaderModule is the backend handle for the compiled shader module, NilHandle until registered
	shaderModule common.Handle

	// The following properties configure the pipeline during creation and can be set with the builder options.

	blendEnabled bool
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
	sampleCount  uint32
}

// Pipeline defines the interface for a GPU render pipeline built from a vertex and fragment
// shader program. It holds all configuration state required for pipeline creation including
// blend, cull, winding, and topology settings. Pipelines never carry a depth/stencil state.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Program returns the shader program this pipeline is compiled from.
	//
	// Returns:
	//   - common.ShaderProgram: the program with its entry points
	Program() common.ShaderProgram

	// RenderPipeline returns the backend handle of the created pipeline.
	//
	// Returns:
	//   - common.Handle: the render pipeline handle, or NilHandle if the pipeline has not been registered
	RenderPipeline() common.Handle

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil if blending is not enabled
	BlendState() *wgpu.BlendState

	// SampleCount returns the multisample count of the color target.
	//
	// Returns:
	//   - uint32: the sample count, 1 when multisampling is off
	SampleCount() uint32

	// SetRenderPipeline stores the backend handles produced when the pipeline is registered.
	//
	// Parameters:
	//   - rp: the render pipeline handle
	//   - layout: the pipeline layout handle
	//   - module: the shader module handle
	SetRenderPipeline(rp, layout, module common.Handle)

	// Release frees the pipeline, its layout, and its shader module through the given releaser.
	//
	// Parameters:
	//   - r: the backend that owns the handles
	Release(r common.Releaser)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new render Pipeline.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - program: the shader program providing the vertex and fragment entry points
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, program common.ShaderProgram, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		program:      program,
		blendEnabled: false,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		sampleCount:  1,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.program.VertexEntry == "" {
		p.program.VertexEntry = common.DefaultVertexEntry
	}
	if p.program.FragmentEntry == "" {
		p.program.FragmentEntry = common.DefaultFragmentEntry
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Program() common.ShaderProgram {
	return p.program
}

func (p *pipeline) RenderPipeline() common.Handle {
	return p.renderPipeline
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) SetRenderPipeline(rp, layout, module common.Handle) {
	p.renderPipeline = rp
	p.pipelineLayout = layout
	p.shaderModule = module
}

func (p *pipeline) Release(r common.Releaser) {
	for _, h := range []*common.Handle{&p.renderPipeline, &p.pipelineLayout, &p.shaderModule} {
		if h.Valid() {
			r.ReleaseHandle(*h)
			*h = common.NilHandle
		}
	}
}
