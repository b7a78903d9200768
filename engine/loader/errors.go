package loader

import "errors"

var (
	// ErrMalformedImage is returned for image data that does not match its declared format.
	ErrMalformedImage = errors.New("loader: malformed image")

	// ErrUnsupportedFormat is returned when no backend can decode a file.
	ErrUnsupportedFormat = errors.New("loader: unsupported image format")
)
