package shader

import (
	"testing"

	"github.com/Carmen-Shannon/spinquad/assets"
	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
)

var quadLayout = wgpu.BindGroupLayoutDescriptor{
	Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 64}},
		{Binding: 1, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
		{Binding: 2, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
	},
}

func TestNewShaderReflectsQuadProgram(t *testing.T) {
	c := qt.New(t)

	s, err := NewShader(common.NewShaderProgram(assets.QuadShaderLabel, assets.QuadShader))
	c.Assert(err, qt.IsNil)

	c.Assert(s.EntryPoints(ShaderTypeVertex), qt.DeepEquals, []string{"vertex_main"})
	c.Assert(s.EntryPoints(ShaderTypeFragment), qt.DeepEquals, []string{"fragment_main"})
	c.Assert(s.VertexInputCount(), qt.Equals, 0)
	c.Assert(s.BindGroupVarName(0, 0), qt.Equals, "uniforms")
	c.Assert(s.BindGroupVarName(0, 1), qt.Equals, "quad_texture")
	c.Assert(s.BindGroupVarName(0, 2), qt.Equals, "quad_sampler")
	c.Assert(s.BindGroupVarName(1, 0), qt.Equals, "")

	entries := s.BindGroupLayoutDescriptor(0).Entries
	c.Assert(entries, qt.HasLen, 3)
	c.Assert(entries[0].Buffer.MinBindingSize, qt.Equals, uint64(64))

	c.Assert(s.CheckBindGroup(0, quadLayout), qt.IsNil)
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	c := qt.New(t)

	program := common.NewShaderProgram("broken", assets.QuadShader)
	program.FragmentEntry = "fs_main"

	_, err := NewShader(program)
	c.Assert(err, qt.ErrorIs, ErrShaderMismatch)
	c.Assert(err, qt.ErrorMatches, `.*no @fragment fn fs_main.*`)

	_, err = NewShader(common.NewShaderProgram("empty", ""))
	c.Assert(err, qt.ErrorIs, ErrShaderMismatch)
}

func TestCheckBindGroupMismatch(t *testing.T) {
	c := qt.New(t)

	const source = `
struct Small { a: vec4<f32>, }
@group(0) @binding(0) var<uniform> small: Small;
@group(0) @binding(1) var tex: texture_2d<u32>;
@group(0) @binding(2) var samp: sampler_comparison;
/* @vertex fn commented_out() {} */
@vertex fn vertex_main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }
@fragment fn fragment_main() -> @location(0) vec4<f32> { return vec4<f32>(); }
`
	s, err := NewShader(common.NewShaderProgram("mismatch", source))
	c.Assert(err, qt.IsNil)
	c.Assert(s.EntryPoints(ShaderTypeVertex), qt.DeepEquals, []string{"vertex_main"})

	err = s.CheckBindGroup(0, quadLayout)
	c.Assert(err, qt.ErrorIs, ErrShaderMismatch)
	c.Assert(err, qt.ErrorMatches, `.*small is 16 bytes, want at least 64`)

	err = s.CheckBindGroup(1, quadLayout)
	c.Assert(err, qt.ErrorMatches, `.*group 1 declares 0 bindings, want 3`)
}

func TestVertexInputsAreCounted(t *testing.T) {
	c := qt.New(t)

	const source = `
struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) uv: vec2<f32>,
}
@vertex fn vertex_main(in: VertexIn) -> @builtin(position) vec4<f32> { return vec4<f32>(in.position, 1.0); }
@fragment fn fragment_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	s, err := NewShader(common.NewShaderProgram("inputs", source))
	c.Assert(err, qt.IsNil)
	c.Assert(s.VertexInputCount(), qt.Equals, 1)
}
