package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/spinquad/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultCacheSize is the number of decoded images and shader programs kept per cache.
	DefaultCacheSize = 16

	// DefaultMaxDimension matches the WebGPU default maxTextureDimension2D limit.
	DefaultMaxDimension = 8192
)

// ErrUnsupportedFormat is returned when no registered decoder recognizes an image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// loader is the implementation of the Loader interface.
type loader struct {
	images  *lru.Cache[string, common.Image]
	shaders *lru.Cache[string, common.ShaderProgram]

	cacheSize    int
	maxDimension int
	logger       logrus.FieldLogger
}

// Loader reads textures and shader programs from disk and keeps recently used ones decoded in memory.
// Images are converted to tightly packed RGBA8 and downscaled to fit the GPU texture size limit.
type Loader interface {
	// Image loads and decodes the image file at path. PNG, JPEG, BMP, TIFF and WebP are supported.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - common.Image: the RGBA8 pixels
	//   - error: a read error, or ErrUnsupportedFormat (wrapped) if the file cannot be decoded
	Image(path string) (common.Image, error)

	// DecodeImage decodes an in-memory encoded image, caching the result under name.
	//
	// Parameters:
	//   - name: the cache key and log name
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - common.Image: the RGBA8 pixels
	//   - error: ErrUnsupportedFormat (wrapped) if the data cannot be decoded
	DecodeImage(name string, data []byte) (common.Image, error)

	// Shader loads the WGSL file at path as a program with the default entry points, labeled by file name.
	//
	// Parameters:
	//   - path: the WGSL file
	//
	// Returns:
	//   - common.ShaderProgram: the program
	//   - error: a read error, or an error if the file is empty
	Shader(path string) (common.ShaderProgram, error)

	// Purge drops every cached entry.
	Purge()
}

var _ Loader = &loader{}

// NewLoader creates a Loader with the specified options.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
//   - error: an error if the cache size is not positive
func NewLoader(options ...LoaderBuilderOption) (Loader, error) {
	l := &loader{
		cacheSize:    DefaultCacheSize,
		maxDimension: DefaultMaxDimension,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(l)
	}
	l.logger = l.logger.WithField("component", "asset")

	var err error
	if l.images, err = lru.New[string, common.Image](l.cacheSize); err != nil {
		return nil, fmt.Errorf("image cache: %w", err)
	}
	if l.shaders, err = lru.New[string, common.ShaderProgram](l.cacheSize); err != nil {
		return nil, fmt.Errorf("shader cache: %w", err)
	}
	return l, nil
}

func (l *loader) Image(path string) (common.Image, error) {
	key := cacheKey(path)
	if img, ok := l.images.Get(key); ok {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return common.Image{}, fmt.Errorf("read texture: %w", err)
	}
	img, err := l.decode(path, data)
	if err != nil {
		return common.Image{}, err
	}
	l.images.Add(key, img)
	return img, nil
}

func (l *loader) DecodeImage(name string, data []byte) (common.Image, error) {
	if img, ok := l.images.Get(name); ok {
		return img, nil
	}
	img, err := l.decode(name, data)
	if err != nil {
		return common.Image{}, err
	}
	l.images.Add(name, img)
	return img, nil
}

func (l *loader) Shader(path string) (common.ShaderProgram, error) {
	key := cacheKey(path)
	if program, ok := l.shaders.Get(key); ok {
		return program, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return common.ShaderProgram{}, fmt.Errorf("read shader: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return common.ShaderProgram{}, fmt.Errorf("shader %s is empty", path)
	}

	program := common.NewShaderProgram(filepath.Base(path), string(data))
	l.shaders.Add(key, program)
	l.logger.WithField("path", path).Debug("shader loaded")
	return program, nil
}

func (l *loader) Purge() {
	l.images.Purge()
	l.shaders.Purge()
}

// decode decodes data with any registered decoder and converts it to RGBA8.
func (l *loader) decode(name string, data []byte) (common.Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.Image{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, name, err)
	}

	rgba := toNRGBA(src, l.maxDimension)
	b := rgba.Bounds()
	if b.Dx() != src.Bounds().Dx() || b.Dy() != src.Bounds().Dy() {
		l.logger.WithFields(logrus.Fields{
			"name":   name,
			"from":   fmt.Sprintf("%dx%d", src.Bounds().Dx(), src.Bounds().Dy()),
			"width":  b.Dx(),
			"height": b.Dy(),
		}).Warn("texture exceeds maximum dimension, downscaled")
	}

	img := common.Image{Pixels: rgba.Pix, Width: uint32(b.Dx()), Height: uint32(b.Dy())}
	if err := img.Validate(); err != nil {
		return common.Image{}, fmt.Errorf("%s: %w", name, err)
	}
	l.logger.WithFields(logrus.Fields{"name": name, "format": format, "width": img.Width, "height": img.Height}).Debug("texture decoded")
	return img, nil
}

// toNRGBA converts src to a zero-origin, tightly packed non-premultiplied RGBA image no larger than
// maxDimension on either side, preserving aspect ratio.
func toNRGBA(src image.Image, maxDimension int) *image.NRGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		if w >= h {
			h = max(1, h*maxDimension/w)
			w = maxDimension
		} else {
			w = max(1, w*maxDimension/h)
			h = maxDimension
		}
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Src, nil)
		return dst
	}

	if n, ok := src.(*image.NRGBA); ok && sb.Min == (image.Point{}) && n.Stride == 4*w {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
	return dst
}

// cacheKey normalizes path so equivalent spellings share a cache entry.
func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
