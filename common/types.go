// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Handle is an opaque reference to a GPU resource owned by a renderer backend.
// The zero value never refers to a live resource.
type Handle uint64

// NilHandle is the zero Handle, returned alongside errors and used to mark unset bindings.
const NilHandle Handle = 0

// Valid reports whether the handle refers to a resource.
//
// Returns:
//   - bool: true if the handle is non-zero
func (h Handle) Valid() bool {
	return h != NilHandle
}

// Size is a pixel extent, used for window, surface and frame dimensions.
type Size struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero, as happens while a window is minimized.
//
// Returns:
//   - bool: true if Width or Height is zero
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// Image holds tightly packed RGBA8 pixel data produced by an image decoder, pending GPU upload.
// Rows are stored top to bottom with no padding, 4 bytes per pixel.
type Image struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It must be exactly Width*Height*4 bytes long.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Validate checks that the pixel buffer length matches the image dimensions.
//
// Returns:
//   - error: ErrInvalidImageData (wrapped) if the dimensions are zero or the byte count is wrong
func (img Image) Validate() error {
	if img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("%w: zero dimension %dx%d", ErrInvalidImageData, img.Width, img.Height)
	}
	want := uint64(img.Width) * uint64(img.Height) * 4
	if uint64(len(img.Pixels)) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d RGBA8", ErrInvalidImageData, len(img.Pixels), want, img.Width, img.Height)
	}
	return nil
}

// BytesPerRow returns the row stride of the image in bytes.
//
// Returns:
//   - uint32: 4 * Width
func (img Image) BytesPerRow() uint32 {
	return img.Width * 4
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero fields fall back to the backend defaults (linear filtering, clamp-to-edge addressing).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// Default shader entry point names.
const (
	DefaultVertexEntry   = "vertex_main"
	DefaultFragmentEntry = "fragment_main"
)

// ShaderProgram is a WGSL module exposing one vertex and one fragment entry point.
// The source is handed to the GPU unmodified.
type ShaderProgram struct {
	// Label is a debug label for the compiled module.
	Label string
	// Source is the WGSL source text.
	Source string
	// VertexEntry is the vertex stage entry point, defaults to DefaultVertexEntry.
	VertexEntry string
	// FragmentEntry is the fragment stage entry point, defaults to DefaultFragmentEntry.
	FragmentEntry string
}

// NewShaderProgram creates a ShaderProgram with the default entry points.
//
// Parameters:
//   - label: debug label for the module
//   - source: WGSL source text
//
// Returns:
//   - ShaderProgram: the program description
func NewShaderProgram(label, source string) ShaderProgram {
	return ShaderProgram{
		Label:         label,
		Source:        source,
		VertexEntry:   DefaultVertexEntry,
		FragmentEntry: DefaultFragmentEntry,
	}
}

// Releaser frees GPU resources referenced by handle. Renderer backends implement it.
type Releaser interface {
	// ReleaseHandle frees the resource behind h. Unknown or nil handles are ignored.
	//
	// Parameters:
	//   - h: the handle to release
	ReleaseHandle(h Handle)
}
