package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
)

func TestPrimitiveLayout(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		typeName string
		want     wgslTypeLayout
		ok       bool
	}{
		{"f32", wgslTypeLayout{4, 4}, true},
		{"u32", wgslTypeLayout{4, 4}, true},
		{"vec2<f32>", wgslTypeLayout{8, 8}, true},
		{"vec3f", wgslTypeLayout{12, 16}, true},
		{"vec4<i32>", wgslTypeLayout{16, 16}, true},
		{"mat2x2<f32>", wgslTypeLayout{16, 8}, true},
		{"mat3x3f", wgslTypeLayout{48, 16}, true},
		{"mat4x4<f32>", wgslTypeLayout{64, 16}, true},
		{"mat4x2<f32>", wgslTypeLayout{32, 8}, true},
		{"f16", wgslTypeLayout{}, false},
		{"vec4<bool>", wgslTypeLayout{}, false},
		{"mat4x4<i32>", wgslTypeLayout{}, false},
		{"vec5f", wgslTypeLayout{}, false},
		{"array<f32, 4>", wgslTypeLayout{}, false},
		{"atomic<u32>", wgslTypeLayout{}, false},
	}
	for _, tt := range tests {
		c.Run(tt.typeName, func(c *qt.C) {
			got, ok := primitiveLayout(tt.typeName)
			c.Assert(ok, qt.Equals, tt.ok)
			c.Assert(got, qt.Equals, tt.want)
		})
	}
}

func TestStructLayoutNested(t *testing.T) {
	c := qt.New(t)

	source := stripComments(`
struct Outer {
    transform: mat4x4<f32>,
    tint: Inner,
    scale: f32,
}
struct Inner {
    color: vec3<f32>, // rgb
    alpha: f32,
}
struct Loop { next: Loop, }
struct Unknown { values: array<f32>, }
`)
	r := newLayoutResolver(parseStructBlocks(source))

	inner, ok := r.resolve("Inner")
	c.Assert(ok, qt.IsTrue)
	c.Assert(inner, qt.Equals, wgslTypeLayout{16, 16})

	// 64 for the matrix, 16 for Inner, 4 for scale, rounded up to 16
	outer, ok := r.resolve("Outer")
	c.Assert(ok, qt.IsTrue)
	c.Assert(outer, qt.Equals, wgslTypeLayout{96, 16})

	_, ok = r.resolve("Loop")
	c.Assert(ok, qt.IsFalse)
	_, ok = r.resolve("Unknown")
	c.Assert(ok, qt.IsFalse)
	_, ok = r.resolve("Missing")
	c.Assert(ok, qt.IsFalse)
}

func TestStructLayoutSkipsBuiltins(t *testing.T) {
	c := qt.New(t)

	r := newLayoutResolver(parseStructBlocks(`struct Out { @builtin(position) pos: vec4<f32>, @location(0) uv: vec2<f32>, }`))
	layout, ok := r.resolve("Out")
	c.Assert(ok, qt.IsTrue)
	c.Assert(layout, qt.Equals, wgslTypeLayout{8, 8})
}

func TestClassifyResource(t *testing.T) {
	c := qt.New(t)

	vis := wgpu.ShaderStageFragment
	uniform := classifyResource(0, vis, "uniform", "Uniforms")
	c.Assert(uniform.Buffer.Type, qt.Equals, wgpu.BufferBindingTypeUniform)
	c.Assert(uniform.Visibility, qt.Equals, vis)

	tex := classifyResource(1, vis, "", "texture_2d<f32>")
	c.Assert(tex.Texture.SampleType, qt.Equals, wgpu.TextureSampleTypeFloat)
	c.Assert(tex.Texture.ViewDimension, qt.Equals, wgpu.TextureViewDimension2D)

	c.Assert(classifyResource(2, vis, "", "sampler").Sampler.Type, qt.Equals, wgpu.SamplerBindingTypeFiltering)

	for _, unsupported := range []struct{ space, typeName string }{
		{"storage, read_write", "Particles"},
		{"storage", "array<f32>"},
		{"", "texture_depth_2d"},
		{"", "texture_cube<f32>"},
		{"", "sampler_comparison"},
	} {
		e := classifyResource(3, vis, unsupported.space, unsupported.typeName)
		c.Assert(e.Buffer.Type, qt.Equals, wgpu.BufferBindingTypeUndefined, qt.Commentf("%v", unsupported))
		c.Assert(e.Texture.SampleType, qt.Equals, wgpu.TextureSampleTypeUndefined, qt.Commentf("%v", unsupported))
		c.Assert(e.Sampler.Type, qt.Equals, wgpu.SamplerBindingTypeUndefined, qt.Commentf("%v", unsupported))
	}
}

func TestStripComments(t *testing.T) {
	c := qt.New(t)

	c.Assert(stripComments("a // b /* c\nd"), qt.Equals, "a \nd")
	c.Assert(stripComments("a /* b /* nested */ // still comment */ c"), qt.Equals, "a  c")
	c.Assert(stripComments("x: f32, // trailing"), qt.Equals, "x: f32, ")
	c.Assert(stripComments("line1\n/* multi\nline */line2\n"), qt.Equals, "line1\nline2\n")
}
