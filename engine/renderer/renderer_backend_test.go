package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
)

func TestParsePresentMode(t *testing.T) {
	c := qt.New(t)

	tests := map[string]PresentMode{
		"":          PresentModeAuto,
		"auto":      PresentModeAuto,
		"VSync":     PresentModeVSync,
		"fifo":      PresentModeVSync,
		" uncapped": PresentModeUncapped,
		"immediate": PresentModeUncapped,
		"MAILBOX":   PresentModeMailbox,
	}
	for in, want := range tests {
		got, err := ParsePresentMode(in)
		c.Assert(err, qt.IsNil, qt.Commentf("input %q", in))
		c.Assert(got, qt.Equals, want, qt.Commentf("input %q", in))
	}

	_, err := ParsePresentMode("triple")
	c.Assert(err, qt.ErrorMatches, `unknown present mode "triple"`)
}

func TestPresentModeWGPU(t *testing.T) {
	c := qt.New(t)

	_, ok := PresentModeAuto.WGPU()
	c.Assert(ok, qt.IsFalse)

	mode, ok := PresentModeVSync.WGPU()
	c.Assert(ok, qt.IsTrue)
	c.Assert(mode, qt.Equals, wgpu.PresentModeFifo)

	mode, _ = PresentModeUncapped.WGPU()
	c.Assert(mode, qt.Equals, wgpu.PresentModeImmediate)

	mode, _ = PresentModeMailbox.WGPU()
	c.Assert(mode, qt.Equals, wgpu.PresentModeMailbox)

	for _, m := range []PresentMode{PresentModeAuto, PresentModeVSync, PresentModeUncapped, PresentModeMailbox} {
		parsed, err := ParsePresentMode(m.String())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed, qt.Equals, m)
	}
}
