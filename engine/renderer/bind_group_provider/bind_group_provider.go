package bind_group_provider

import (
	"sort"

	"github.com/Carmen-Shannon/spinquad/common"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU resource handles populated by the renderer backend during initialization.

	// bindGroup is the GPU bind group created for this provider, or NilHandle if not initialized.
	bindGroup common.Handle
	// bindGroupLayout is the GPU bind group layout created for this provider, or NilHandle if not initialized.
	bindGroupLayout common.Handle
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]common.Handle
	// textures holds the GPU textures backing the texture views, keyed by binding index.
	textures map[int]common.Handle
	// textureViews holds the GPU texture views created for this provider, keyed by binding index.
	textureViews map[int]common.Handle
	// samplers holds the GPU samplers created for this provider, keyed by binding index.
	samplers map[int]common.Handle
}

// BindGroupProvider describes the GPU resources bound together into a single bind group.
// The renderer backend fills it in during initialization; callers read handles back out of it
// when recording draws and writing uniforms.
//
// Usage pattern:
//  1. Create a BindGroupProvider with a label
//  2. Call the backend's InitTextureView and InitSampler for texture and sampler bindings
//  3. Call the backend's InitBindGroup to create buffers, the layout, and the bind group
//  4. Pass the provider to WriteBuffers for uniform updates and to DrawCall when drawing
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider through the given releaser.
	//
	// Parameters:
	//   - r: the backend that owns the handles
	Release(r common.Releaser)

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or NilHandle if GPU resources have not been initialized.
	//
	// Returns:
	//   - common.Handle: the bind group handle
	BindGroup() common.Handle

	// BindGroupLayout returns the created bind group layout, or NilHandle if GPU resources have not been initialized.
	//
	// Returns:
	//   - common.Handle: the bind group layout handle
	BindGroupLayout() common.Handle

	// Buffer returns the buffer for a specific binding, or NilHandle if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - common.Handle: the buffer handle
	Buffer(binding int) common.Handle

	// Texture returns the texture backing the view at a specific binding, or NilHandle if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - common.Handle: the texture handle
	Texture(binding int) common.Handle

	// TextureView returns the texture view for a specific binding, or NilHandle if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - common.Handle: the texture view handle
	TextureView(binding int) common.Handle

	// Sampler returns the sampler for a specific binding, or NilHandle if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - common.Handle: the sampler handle
	Sampler(binding int) common.Handle

	// SetBindGroup sets the bind group after GPU initialization.
	SetBindGroup(bg common.Handle)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	SetBindGroupLayout(bgl common.Handle)

	// SetBuffer stores a buffer for a specific binding.
	SetBuffer(binding int, buf common.Handle)

	// SetTexture stores the texture backing a texture view binding.
	SetTexture(binding int, tex common.Handle)

	// SetTextureView stores a texture view for a specific binding.
	SetTextureView(binding int, tv common.Handle)

	// SetSampler stores a sampler for a specific binding.
	SetSampler(binding int, s common.Handle)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: debug label used to name the GPU resources created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]common.Handle),
		textures:     make(map[int]common.Handle),
		textureViews: make(map[int]common.Handle),
		samplers:     make(map[int]common.Handle),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() common.Handle {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() common.Handle {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) common.Handle {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Texture(binding int) common.Handle {
	return p.textures[binding]
}

func (p *bindGroupProvider) TextureView(binding int) common.Handle {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) common.Handle {
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg common.Handle) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl common.Handle) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf common.Handle) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex common.Handle) {
	p.textures[binding] = tex
}

func (p *bindGroupProvider) SetTextureView(binding int, tv common.Handle) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s common.Handle) {
	p.samplers[binding] = s
}

// Release frees the bind group before the resources it references, then the layout.
func (p *bindGroupProvider) Release(r common.Releaser) {
	if p.bindGroup.Valid() {
		r.ReleaseHandle(p.bindGroup)
		p.bindGroup = common.NilHandle
	}
	for _, m := range []map[int]common.Handle{p.samplers, p.textureViews, p.textures, p.buffers} {
		for _, binding := range sortedBindings(m) {
			r.ReleaseHandle(m[binding])
			delete(m, binding)
		}
	}
	if p.bindGroupLayout.Valid() {
		r.ReleaseHandle(p.bindGroupLayout)
		p.bindGroupLayout = common.NilHandle
	}
}

// sortedBindings returns the binding indices of m in ascending order so releases are deterministic.
func sortedBindings(m map[int]common.Handle) []int {
	keys := make([]int, 0, len(m))
	for k, h := range m {
		if h.Valid() {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}
