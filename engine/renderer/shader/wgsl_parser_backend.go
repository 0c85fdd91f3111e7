package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// scalarSuffixes expands the shorthand vector and matrix suffixes (vec4f, mat4x4f) to their component type.
var scalarSuffixes = map[byte]string{
	'f': "f32",
	'i': "i32",
	'u': "u32",
}

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// expandShorthand rewrites vecNs and matCxRs aliases into their parameterized spelling.
// Any other name is returned unchanged.
func expandShorthand(typeName string) string {
	n := len(typeName)
	if n < 5 || strings.Contains(typeName, "<") {
		return typeName
	}
	scalar, ok := scalarSuffixes[typeName[n-1]]
	if !ok {
		return typeName
	}
	if strings.HasPrefix(typeName, "vec") || strings.HasPrefix(typeName, "mat") {
		return typeName[:n-1] + "<" + scalar + ">"
	}
	return typeName
}

// primitiveLayout returns the uniform-buffer size and alignment of a scalar, vector or float matrix type.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "f32", "vec3<f32>", "mat4x4f"
//
// Returns:
//   - wgslTypeLayout: the size and alignment in bytes
//   - bool: false if the type is not a 32-bit scalar, vector or f32 matrix
func primitiveLayout(typeName string) (wgslTypeLayout, bool) {
	typeName = expandShorthand(typeName)
	switch typeName {
	case "f32", "i32", "u32":
		return wgslTypeLayout{size: 4, align: 4}, true
	}

	base, param := splitTypeParams(typeName)
	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		if param != "f32" && param != "i32" && param != "u32" {
			return wgslTypeLayout{}, false
		}
		return vectorLayout(base[3])
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		if param != "f32" {
			return wgslTypeLayout{}, false
		}
		cols, okCols := dimension(base[3])
		column, okRows := vectorLayout(base[5])
		if !okCols || !okRows {
			return wgslTypeLayout{}, false
		}
		stride := roundUpAlign(column.align, column.size)
		return wgslTypeLayout{size: cols * stride, align: column.align}, true
	}
	return wgslTypeLayout{}, false
}

// vectorLayout returns the layout of a vector of 32-bit components with the given digit as its width.
func vectorLayout(width byte) (wgslTypeLayout, bool) {
	n, ok := dimension(width)
	if !ok {
		return wgslTypeLayout{}, false
	}
	if n == 2 {
		return wgslTypeLayout{size: 8, align: 8}, true
	}
	return wgslTypeLayout{size: 4 * n, align: 16}, true
}

func dimension(digit byte) (uint64, bool) {
	if digit < '2' || digit > '4' {
		return 0, false
	}
	return uint64(digit - '0'), true
}

// layoutResolver computes struct layouts on demand, resolving nested struct fields recursively.
type layoutResolver struct {
	structs  map[string]parsedStruct
	resolved map[string]wgslTypeLayout
	visiting map[string]bool
}

func newLayoutResolver(structs []parsedStruct) *layoutResolver {
	r := &layoutResolver{
		structs:  make(map[string]parsedStruct, len(structs)),
		resolved: make(map[string]wgslTypeLayout, len(structs)),
		visiting: make(map[string]bool),
	}
	for _, ps := range structs {
		r.structs[ps.name] = ps
	}
	return r
}

// resolve returns the size and alignment of typeName. Each field sits at the next offset aligned
// to it, and the struct size rounds up to its largest field alignment. Builtin fields take no space.
//
// Parameters:
//   - typeName: a primitive or a struct declared in the same source
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types, arrays and self-referencing structs
func (r *layoutResolver) resolve(typeName string) (wgslTypeLayout, bool) {
	if layout, ok := primitiveLayout(typeName); ok {
		return layout, true
	}
	if layout, ok := r.resolved[typeName]; ok {
		return layout, true
	}
	ps, ok := r.structs[typeName]
	if !ok || r.visiting[typeName] {
		return wgslTypeLayout{}, false
	}
	r.visiting[typeName] = true
	defer delete(r.visiting, typeName)

	offset, align := uint64(0), uint64(1)
	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fl, ok := r.resolve(field.typeName)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		align = max(align, fl.align)
	}

	layout := wgslTypeLayout{size: roundUpAlign(align, offset), align: align}
	r.resolved[typeName] = layout
	return layout, true
}

// classifyResource builds the layout entry for one @group/@binding declaration. Uniform buffers,
// filtering samplers and 2D sampled textures are recognised. Anything else keeps an undefined
// binding type, which CheckBindGroup reports as a mismatch.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the stages the entry is visible to
//   - addressSpace: the var<...> qualifier, empty for handle types
//   - typeName: the declared WGSL type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case addressSpace != "":
		// storage and workgroup variables stay undefined
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	default:
		base, param := splitTypeParams(typeName)
		if st, ok := wgslSampleTypeMap[param]; ok && base == "texture_2d" {
			entry.Texture.SampleType = st
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		}
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Unparameterized names
// come back with an empty parameter.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments from WGSL source. The newline ending a
// line comment is kept.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	for i := 0; i < len(source); i++ {
		rest := source[i:]
		switch {
		case depth == 0 && strings.HasPrefix(rest, "//"):
			nl := strings.IndexByte(rest, '\n')
			if nl < 0 {
				return sb.String()
			}
			i += nl - 1
		case strings.HasPrefix(rest, "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(rest, "*/"):
			depth--
			i++
		case depth == 0:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
