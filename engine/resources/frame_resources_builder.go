package resources

import "github.com/sirupsen/logrus"

// FrameResourcesBuilderOption is a functional option applied to frame resources during Build.
type FrameResourcesBuilderOption func(*frameResources)

// WithLabel sets the prefix of every GPU debug label. Defaults to DefaultLabel.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - FrameResourcesBuilderOption: a function that applies the label option
func WithLabel(label string) FrameResourcesBuilderOption {
	return func(fr *frameResources) {
		if label != "" {
			fr.label = label
		}
	}
}

// WithLogger sets the logger used while building.
//
// Parameters:
//   - logger: the logger, nil keeps the standard logger
//
// Returns:
//   - FrameResourcesBuilderOption: a function that applies the logger option
func WithLogger(logger logrus.FieldLogger) FrameResourcesBuilderOption {
	return func(fr *frameResources) {
		if logger != nil {
			fr.logger = logger
		}
	}
}
