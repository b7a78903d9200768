package loader

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageLoaderBackend decodes every format registered with the image package: png, jpeg, gif,
// bmp, tiff, webp and, through this package's registration, ppm.
type imageLoaderBackend struct{}

var _ loaderBackend = imageLoaderBackend{}

func (imageLoaderBackend) Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return img, nil
}
