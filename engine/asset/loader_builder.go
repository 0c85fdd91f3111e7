package asset

import "github.com/sirupsen/logrus"

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(l *loader)

// WithCacheSize sets how many images and shader programs each cache holds.
//
// Parameters:
//   - size: the entry count, must be positive
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithCacheSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		l.cacheSize = size
	}
}

// WithMaxDimension sets the largest texture side. Larger images are downscaled. Zero disables the limit.
//
// Parameters:
//   - pixels: the maximum width or height
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithMaxDimension(pixels int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxDimension = pixels
	}
}

// WithLogger sets the logger for decode messages.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLogger(logger logrus.FieldLogger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}
