package common

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestImageValidate(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name string
		img  Image
		want string
	}{
		{"valid", Image{Pixels: make([]byte, 2*3*4), Width: 2, Height: 3}, ""},
		{"zero width", Image{Width: 0, Height: 3}, "invalid image data: zero dimension 0x3"},
		{"zero height", Image{Pixels: make([]byte, 8), Width: 2, Height: 0}, "invalid image data: zero dimension 2x0"},
		{"short", Image{Pixels: make([]byte, 15), Width: 2, Height: 2}, "invalid image data: got 15 bytes, want 16 for 2x2 RGBA8"},
		{"long", Image{Pixels: make([]byte, 17), Width: 2, Height: 2}, "invalid image data: got 17 bytes, want 16 for 2x2 RGBA8"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			err := tt.img.Validate()
			if tt.want == "" {
				c.Assert(err, qt.IsNil)
				return
			}
			c.Assert(err, qt.ErrorIs, ErrInvalidImageData)
			c.Assert(err, qt.ErrorMatches, tt.want)
		})
	}
}

func TestImageBytesPerRow(t *testing.T) {
	c := qt.New(t)
	c.Assert(Image{Width: 5}.BytesPerRow(), qt.Equals, uint32(20))
}

func TestSizeIsZero(t *testing.T) {
	c := qt.New(t)

	c.Assert(Size{}.IsZero(), qt.IsTrue)
	c.Assert(Size{Width: 10}.IsZero(), qt.IsTrue)
	c.Assert(Size{Height: 10}.IsZero(), qt.IsTrue)
	c.Assert(Size{Width: 1, Height: 1}.IsZero(), qt.IsFalse)
}

func TestNewShaderProgram(t *testing.T) {
	c := qt.New(t)

	p := NewShaderProgram("label", "src")
	c.Assert(p, qt.Equals, ShaderProgram{Label: "label", Source: "src", VertexEntry: DefaultVertexEntry, FragmentEntry: DefaultFragmentEntry})
}

func TestCoalesce(t *testing.T) {
	c := qt.New(t)

	c.Assert(Coalesce(0, 0, 3, 4), qt.Equals, 3)
	c.Assert(Coalesce("", ""), qt.Equals, "")
	c.Assert(Coalesce[float32](0, 32), qt.Equals, float32(32))
}
