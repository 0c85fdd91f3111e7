package shader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/spinquad/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies a render pipeline stage.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage.
	ShaderTypeFragment
)

// ErrShaderMismatch is returned when a program's declarations do not match what the caller expects of it.
var ErrShaderMismatch = errors.New("shader does not match expected interface")

// shader is the implementation of the Shader interface.
type shader struct {
	program                    common.ShaderProgram
	vertexEntries              []string
	fragmentEntries            []string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexInputs               int
}

// Shader is the reflected interface of a WGSL program: its entry points, the resources it declares
// per bind group, and whether it reads vertex buffers.
type Shader interface {
	// Program returns the program the reflection was built from.
	//
	// Returns:
	//   - common.ShaderProgram: the program
	Program() common.ShaderProgram

	// EntryPoints returns every entry point function of the given stage in declaration order.
	//
	// Parameters:
	//   - stage: ShaderTypeVertex or ShaderTypeFragment
	//
	// Returns:
	//   - []string: the function names
	EntryPoints(stage ShaderType) []string

	// BindGroupLayoutDescriptor retrieves the reflected layout of a bind group.
	// Entry visibility is always vertex|fragment since reflection does not trace which stage reads a binding.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not declared
	BindGroupVarName(group, binding int) string

	// VertexInputCount returns the number of vertex input structs, which is zero for programs that generate
	// their vertices from the vertex index.
	//
	// Returns:
	//   - int: the number of structs made only of @location fields
	VertexInputCount() int

	// CheckBindGroup verifies that the program declares exactly the bindings of want in group, with matching
	// resource kinds. Buffer bindings must be declared at least want's MinBindingSize. Visibility is not compared.
	//
	// Parameters:
	//   - group: the bind group index
	//   - want: the layout the caller will create
	//
	// Returns:
	//   - error: ErrShaderMismatch (wrapped) describing the first difference
	CheckBindGroup(group int, want wgpu.BindGroupLayoutDescriptor) error
}

var _ Shader = &shader{}

// NewShader reflects program and checks that its configured vertex and fragment entry points exist.
//
// Parameters:
//   - program: the WGSL program to reflect
//
// Returns:
//   - Shader: the reflection
//   - error: ErrShaderMismatch (wrapped) if the source is empty or an entry point is missing
func NewShader(program common.ShaderProgram) (Shader, error) {
	if program.Source == "" {
		return nil, fmt.Errorf("%w: %s has no source", ErrShaderMismatch, program.Label)
	}

	s := &shader{
		program:         program,
		vertexEntries:   parseEntryPoints(program.Source, ShaderTypeVertex),
		fragmentEntries: parseEntryPoints(program.Source, ShaderTypeFragment),
		vertexInputs:    countVertexInputs(program.Source),
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(program.Source, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)

	if !slices.Contains(s.vertexEntries, program.VertexEntry) {
		return nil, fmt.Errorf("%w: %s has no @vertex fn %s (found %v)", ErrShaderMismatch, program.Label, program.VertexEntry, s.vertexEntries)
	}
	if !slices.Contains(s.fragmentEntries, program.FragmentEntry) {
		return nil, fmt.Errorf("%w: %s has no @fragment fn %s (found %v)", ErrShaderMismatch, program.Label, program.FragmentEntry, s.fragmentEntries)
	}
	return s, nil
}

func (s *shader) Program() common.ShaderProgram {
	return s.program
}

func (s *shader) EntryPoints(stage ShaderType) []string {
	switch stage {
	case ShaderTypeVertex:
		return s.vertexEntries
	case ShaderTypeFragment:
		return s.fragmentEntries
	default:
		return nil
	}
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) VertexInputCount() int {
	return s.vertexInputs
}

func (s *shader) CheckBindGroup(group int, want wgpu.BindGroupLayoutDescriptor) error {
	got := s.bindGroupLayoutDescriptors[group].Entries
	if len(got) != len(want.Entries) {
		return fmt.Errorf("%w: group %d declares %d bindings, want %d", ErrShaderMismatch, group, len(got), len(want.Entries))
	}

	for _, w := range want.Entries {
		idx := slices.IndexFunc(got, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == w.Binding })
		if idx < 0 {
			return fmt.Errorf("%w: group %d has no binding %d", ErrShaderMismatch, group, w.Binding)
		}
		g := got[idx]
		name := s.BindGroupVarName(group, int(w.Binding))

		switch {
		case w.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			if g.Buffer.Type != w.Buffer.Type {
				return fmt.Errorf("%w: @group(%d) @binding(%d) %s is not the expected buffer type", ErrShaderMismatch, group, w.Binding, name)
			}
			if g.Buffer.MinBindingSize < w.Buffer.MinBindingSize {
				return fmt.Errorf("%w: @group(%d) @binding(%d) %s is %d bytes, want at least %d", ErrShaderMismatch, group, w.Binding, name, g.Buffer.MinBindingSize, w.Buffer.MinBindingSize)
			}
		case w.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			if g.Texture.SampleType != w.Texture.SampleType || g.Texture.ViewDimension != w.Texture.ViewDimension || g.Texture.Multisampled != w.Texture.Multisampled {
				return fmt.Errorf("%w: @group(%d) @binding(%d) %s is not the expected texture type", ErrShaderMismatch, group, w.Binding, name)
			}
		case w.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			if g.Sampler.Type != w.Sampler.Type {
				return fmt.Errorf("%w: @group(%d) @binding(%d) %s is not the expected sampler type", ErrShaderMismatch, group, w.Binding, name)
			}
		}
	}
	return nil
}
