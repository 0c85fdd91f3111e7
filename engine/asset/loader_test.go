package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/spinquad/assets"
	"github.com/Carmen-Shannon/spinquad/common"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func newTestLoader(c *qt.C, options ...LoaderBuilderOption) (Loader, *test.Hook) {
	c.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l, err := NewLoader(append([]LoaderBuilderOption{WithLogger(logger)}, options...)...)
	c.Assert(err, qt.IsNil)
	return l, hook
}

// quadrants returns a 2x2 image with red, green, blue and white pixels.
func quadrants() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

var quadrantPixels = []byte{
	255, 0, 0, 255, 0, 255, 0, 255,
	0, 0, 255, 255, 255, 255, 255, 255,
}

func TestDecodeFormats(t *testing.T) {
	c := qt.New(t)

	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"png":  func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) },
		"bmp":  func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) },
		"tiff": func(b *bytes.Buffer, m image.Image) error { return tiff.Encode(b, m, nil) },
	}
	for name, encode := range encoders {
		c.Run(name, func(c *qt.C) {
			var buf bytes.Buffer
			c.Assert(encode(&buf, quadrants()), qt.IsNil)

			l, _ := newTestLoader(c)
			img, err := l.DecodeImage("quadrants."+name, buf.Bytes())
			c.Assert(err, qt.IsNil)
			c.Assert(img.Width, qt.Equals, uint32(2))
			c.Assert(img.Height, qt.Equals, uint32(2))
			c.Assert(img.Pixels, qt.DeepEquals, quadrantPixels)
			c.Assert(img.Validate(), qt.IsNil)
		})
	}
}

func TestDecodeEmbeddedTexture(t *testing.T) {
	c := qt.New(t)

	l, _ := newTestLoader(c)
	img, err := l.DecodeImage(assets.DefaultTextureName, assets.DefaultTexture)
	c.Assert(err, qt.IsNil)
	c.Assert(img.Validate(), qt.IsNil)
	c.Assert(img.Width > 0, qt.IsTrue)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	c := qt.New(t)

	l, _ := newTestLoader(c)
	_, err := l.DecodeImage("junk", []byte("definitely not an image"))
	c.Assert(err, qt.ErrorIs, ErrUnsupportedFormat)
	c.Assert(err, qt.ErrorIs, image.ErrFormat)
}

func TestImageFromDiskIsCached(t *testing.T) {
	c := qt.New(t)

	dir := c.TempDir()
	path := filepath.Join(dir, "quad.png")
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, quadrants()), qt.IsNil)
	c.Assert(os.WriteFile(path, buf.Bytes(), 0o600), qt.IsNil)

	l, _ := newTestLoader(c)
	first, err := l.Image(path)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Pixels, qt.DeepEquals, quadrantPixels)

	// the file is gone, the cached copy is served
	c.Assert(os.Remove(path), qt.IsNil)
	second, err := l.Image(filepath.Join(dir, ".", "quad.png"))
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.DeepEquals, first)

	l.Purge()
	_, err = l.Image(path)
	c.Assert(err, qt.ErrorMatches, "read texture: .*")
}

func TestOversizedImageIsDownscaled(t *testing.T) {
	c := qt.New(t)

	src := image.NewNRGBA(image.Rect(0, 0, 8, 2))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, src), qt.IsNil)

	l, hook := newTestLoader(c, WithMaxDimension(4))
	img, err := l.DecodeImage("wide", buf.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(img.Width, qt.Equals, uint32(4))
	c.Assert(img.Height, qt.Equals, uint32(1))
	c.Assert(img.Validate(), qt.IsNil)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	c.Assert(warned, qt.IsTrue)
}

func TestToNRGBAHandlesOffsetBounds(t *testing.T) {
	c := qt.New(t)

	sub := quadrants().SubImage(image.Rect(1, 0, 2, 2))
	out := toNRGBA(sub, 0)
	c.Assert(out.Bounds(), qt.Equals, image.Rect(0, 0, 1, 2))
	c.Assert(out.Pix, qt.DeepEquals, []byte{0, 255, 0, 255, 255, 255, 255, 255})
}

func TestShader(t *testing.T) {
	c := qt.New(t)

	dir := c.TempDir()
	path := filepath.Join(dir, "custom.wgsl")
	c.Assert(os.WriteFile(path, []byte(assets.QuadShader), 0o600), qt.IsNil)

	l, _ := newTestLoader(c)
	program, err := l.Shader(path)
	c.Assert(err, qt.IsNil)
	c.Assert(program, qt.DeepEquals, common.NewShaderProgram("custom.wgsl", assets.QuadShader))

	empty := filepath.Join(dir, "empty.wgsl")
	c.Assert(os.WriteFile(empty, []byte("  \n"), 0o600), qt.IsNil)
	_, err = l.Shader(empty)
	c.Assert(err, qt.ErrorMatches, "shader .* is empty")

	_, err = l.Shader(filepath.Join(dir, "missing.wgsl"))
	c.Assert(err, qt.ErrorMatches, "read shader: .*")
}

func TestNewLoaderRejectsZeroCache(t *testing.T) {
	c := qt.New(t)

	_, err := NewLoader(WithCacheSize(0))
	c.Assert(err, qt.ErrorMatches, "image cache: .*")
}
