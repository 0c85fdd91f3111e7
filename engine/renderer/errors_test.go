package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
)

func TestClassifySurfaceError(t *testing.T) {
	c := qt.New(t)

	statuses := []struct {
		status wgpu.SurfaceGetCurrentTextureStatus
		want   SurfaceErrorKind
	}{
		{wgpu.SurfaceGetCurrentTextureStatusTimeout, SurfaceErrorTimeout},
		{wgpu.SurfaceGetCurrentTextureStatusOutdated, SurfaceErrorOutdated},
		{wgpu.SurfaceGetCurrentTextureStatusLost, SurfaceErrorLost},
		{wgpu.SurfaceGetCurrentTextureStatusOutOfMemory, SurfaceErrorOutOfMemory},
		{wgpu.SurfaceGetCurrentTextureStatusDeviceLost, SurfaceErrorDeviceLost},
	}
	for _, tt := range statuses {
		c.Run(tt.status.String(), func(c *qt.C) {
			err := errors.New("wgpu.(*Surface).GetCurrentTexture(): " + tt.status.String())
			c.Assert(classifySurfaceError(err), qt.Equals, tt.want)
		})
	}

	c.Run("unrecognised", func(c *qt.C) {
		c.Assert(classifySurfaceError(errors.New("wgpu.(*Surface).GetCurrentTexture(): validation failed")), qt.Equals, SurfaceErrorUnknown)
	})
}

func TestSurfaceErrorKindOf(t *testing.T) {
	c := qt.New(t)

	cause := errors.New("status 3")
	err := fmt.Errorf("render: %w", NewSurfaceError(SurfaceErrorLost, cause))

	kind, ok := SurfaceErrorKindOf(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(kind, qt.Equals, SurfaceErrorLost)
	c.Assert(err, qt.ErrorIs, cause)
	c.Assert(err, qt.ErrorMatches, "render: surface error: lost: status 3")

	kind, ok = SurfaceErrorKindOf(errors.New("plain"))
	c.Assert(ok, qt.IsFalse)
	c.Assert(kind, qt.Equals, SurfaceErrorUnknown)
}

func TestSurfaceErrorWithoutCause(t *testing.T) {
	c := qt.New(t)
	c.Assert(NewSurfaceError(SurfaceErrorTimeout, nil), qt.ErrorMatches, "surface error: timeout")
}
