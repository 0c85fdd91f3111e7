package renderer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCompatibleAdapter is returned by Init when no adapter can present to the surface.
	ErrNoCompatibleAdapter = errors.New("no compatible GPU adapter")

	// ErrDeviceCreationFailed is returned by Init when the adapter cannot provide a device with the default limits.
	ErrDeviceCreationFailed = errors.New("GPU device creation failed")

	// ErrResourceCreationFailed wraps any failure to create a texture, sampler, buffer, bind group, or pipeline.
	ErrResourceCreationFailed = errors.New("GPU resource creation failed")

	// ErrNotInitialized is returned by backend calls made before Init or after Release.
	ErrNotInitialized = errors.New("renderer backend not initialized")

	// ErrNoActiveFrame is returned by frame recording calls made outside BeginFrame/EndFrame.
	ErrNoActiveFrame = errors.New("no active frame")

	// ErrNoSurfaceTexture is the cause of a SurfaceError raised when acquisition yields no texture.
	ErrNoSurfaceTexture = errors.New("surface returned no texture")
)

// SurfaceErrorKind classifies why a surface texture could not be acquired.
type SurfaceErrorKind int

const (
	// SurfaceErrorUnknown is any acquisition failure the backend could not classify.
	SurfaceErrorUnknown SurfaceErrorKind = iota

	// SurfaceErrorTimeout means no texture became available in time. The frame can be skipped.
	SurfaceErrorTimeout

	// SurfaceErrorOutdated means the surface no longer matches its configuration and must be reconfigured.
	SurfaceErrorOutdated

	// SurfaceErrorLost means the surface was lost and must be reconfigured.
	SurfaceErrorLost

	// SurfaceErrorOutOfMemory means the GPU ran out of memory.
	SurfaceErrorOutOfMemory

	// SurfaceErrorDeviceLost means the device backing the surface is gone.
	SurfaceErrorDeviceLost
)

func (k SurfaceErrorKind) String() string {
	switch k {
	case SurfaceErrorTimeout:
		return "timeout"
	case SurfaceErrorOutdated:
		return "outdated"
	case SurfaceErrorLost:
		return "lost"
	case SurfaceErrorOutOfMemory:
		return "out of memory"
	case SurfaceErrorDeviceLost:
		return "device lost"
	default:
		return "unknown"
	}
}

// SurfaceError is the error returned by AcquireFrame.
type SurfaceError struct {
	Kind SurfaceErrorKind
	Err  error
}

// NewSurfaceError builds a SurfaceError of the given kind around err.
//
// Parameters:
//   - kind: the classification
//   - err: the underlying error, may be nil
//
// Returns:
//   - *SurfaceError: the error value
func NewSurfaceError(kind SurfaceErrorKind, err error) *SurfaceError {
	return &SurfaceError{Kind: kind, Err: err}
}

func (e *SurfaceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("surface error: %s", e.Kind)
	}
	return fmt.Sprintf("surface error: %s: %v", e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// SurfaceErrorKindOf returns the kind of the first *SurfaceError in err's chain.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - SurfaceErrorKind: the kind, SurfaceErrorUnknown if err carries no SurfaceError
//   - bool: true if err carries a SurfaceError
func SurfaceErrorKindOf(err error) (SurfaceErrorKind, bool) {
	var se *SurfaceError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return SurfaceErrorUnknown, false
}

// classifySurfaceError maps an acquisition error from wgpu-native to a SurfaceErrorKind.
// The binding reports acquisition status only through the error text, spelled the way
// wgpu.SurfaceGetCurrentTextureStatus prints it ("device-lost", "out-of-memory").
func classifySurfaceError(err error) SurfaceErrorKind {
	msg := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(err.Error()))
	switch {
	case strings.Contains(msg, "timeout"):
		return SurfaceErrorTimeout
	case strings.Contains(msg, "outdated"):
		return SurfaceErrorOutdated
	case strings.Contains(msg, "device lost"), strings.Contains(msg, "devicelost"):
		return SurfaceErrorDeviceLost
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "outofmemory"):
		return SurfaceErrorOutOfMemory
	case strings.Contains(msg, "lost"):
		return SurfaceErrorLost
	default:
		return SurfaceErrorUnknown
	}
}
