package loader

import (
	"image"
	"io"
)

// loaderBackend decodes one family of image formats. Concrete implementations (ppmLoaderBackend,
// imageLoaderBackend) handle format-specific details; packing is shared by the loader.
type loaderBackend interface {
	// Decode reads a whole image from a stream.
	//
	// Parameters:
	//   - r: the reader providing image data
	//
	// Returns:
	//   - image.Image: the decoded image
	//   - error: error if decoding fails
	Decode(r io.Reader) (image.Image, error)
}

// ppmLoaderBackend decodes P3 and P6 PPM files.
type ppmLoaderBackend struct{}

var _ loaderBackend = ppmLoaderBackend{}

func (ppmLoaderBackend) Decode(r io.Reader) (image.Image, error) {
	return DecodePPM(r)
}
