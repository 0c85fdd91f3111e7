package common

import "errors"

// ErrInvalidImageData is returned when a decoded image's byte count does not equal width*height*4.
var ErrInvalidImageData = errors.New("invalid image data")
