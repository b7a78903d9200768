package loader

import "github.com/Carmen-Shannon/oxy-luv/common"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithMaxPixels is an option builder that sets the pixel budget images are downscaled to.
// Zero, the default, keeps every image at full size.
//
// Parameters:
//   - n: the largest number of pixels a loaded image keeps
//
// Returns:
//   - LoaderBuilderOption: a function that applies the budget to a loader
func WithMaxPixels(n uint32) LoaderBuilderOption {
	return func(l *loader) {
		l.maxPixels = n
	}
}

// WithImage is an option builder that pre-populates the image cache.
//
// Parameters:
//   - key: the cache key for the image
//   - img: the image to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the image option to a loader
func WithImage(key string, img *common.ImageBuffer) LoaderBuilderOption {
	return func(l *loader) {
		l.imageCache[key] = img
	}
}
