// Package transform builds the model-view-projection matrix of the spinning quad from its animation state.
package transform

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/spinquad/common"
)

// Camera and projection constants of the scene.
const (
	FovYDegrees = 45.0
	Near        = 0.1
	Far         = 100.0
	EyeZ        = 2.0
)

// MatrixSize is the byte size of a serialized Matrix4.
const MatrixSize = 16 * 4

// Matrix4 is a 4x4 float32 matrix in column-major order, laid out exactly as the uniform buffer expects it.
type Matrix4 [16]float32

// Bytes encodes the matrix as 64 little-endian bytes, the byte order of WGSL host-shareable buffers.
func (m Matrix4) Bytes() []byte {
	out := make([]byte, 0, MatrixSize)
	for _, v := range m {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// Rates is the rotation applied per update step, in radians.
type Rates struct {
	X float64
	Y float64
}

// DefaultRates turns the quad three times faster around Y than around X.
var DefaultRates = Rates{X: 0.005, Y: 0.015}

// AnimationState holds the accumulated rotation of the quad.
// Rotations are derived from the step count so repeated updates never accumulate rounding error.
type AnimationState struct {
	RotationX float64
	RotationY float64
	Steps     uint64
}

// Advance returns the state one update step later.
//
// Parameters:
//   - rates: the per-step rotation
//
// Returns:
//   - AnimationState: the advanced state
func (s AnimationState) Advance(rates Rates) AnimationState {
	s.Steps++
	s.RotationX = float64(s.Steps) * rates.X
	s.RotationY = float64(s.Steps) * rates.Y
	return s
}

// AspectRatio returns width/height, treating a zero height as 1.
//
// Parameters:
//   - width: viewport width in pixels
//   - height: viewport height in pixels
//
// Returns:
//   - float32: the aspect ratio
func AspectRatio(width, height uint32) float32 {
	if height == 0 {
		height = 1
	}
	return float32(width) / float32(height)
}

// Compute returns projection * view * model for state, with the camera at (0, 0, 2) looking at the origin.
// The model rotates around X first and Y second. The projection is a right-handed 45 degree perspective with
// depth in [0, 1].
//
// Parameters:
//   - state: the animation state supplying the model rotation
//   - aspect: the viewport aspect ratio
//
// Returns:
//   - Matrix4: the MVP matrix in column-major order
func Compute(state AnimationState, aspect float32) Matrix4 {
	var model, view, proj, vm Matrix4

	common.RotationYX(model[:], state.RotationX, state.RotationY)
	common.LookAt(view[:], 0, 0, EyeZ, 0, 0, 0, 0, 1, 0)
	common.Perspective(proj[:], float32(FovYDegrees*math.Pi/180), aspect, Near, Far)

	var mvp Matrix4
	common.Mul4(vm[:], view[:], model[:])
	common.Mul4(mvp[:], proj[:], vm[:])
	return mvp
}
