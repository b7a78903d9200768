// Package loader turns image files into the packed RGBA buffers the image-driven generators
// consume. PPM (P3 and P6) has its own strict parser; every other format goes through
// image.Decode with the standard and golang.org/x/image decoders registered.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"go.uber.org/zap"
)

// LoaderBackendType identifies the decoder family used for a stream.
type LoaderBackendType int

const (
	// BackendTypeImage decodes any format registered with the image package.
	BackendTypeImage LoaderBackendType = iota

	// BackendTypePPM decodes P3 and P6 PPM only.
	BackendTypePPM
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	maxPixels  uint32
	imageCache map[string]*common.ImageBuffer
	backends   map[LoaderBackendType]loaderBackend
}

// Loader loads and caches packed images.
type Loader interface {
	// Load decodes an image file and caches the result by path. The backend is selected by the
	// file extension: .ppm and .pnm use the PPM parser, anything else image.Decode.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - *common.ImageBuffer: the packed image
	//   - error: ErrMalformedImage, ErrUnsupportedFormat or an I/O error
	Load(path string) (*common.ImageBuffer, error)

	// LoadReader decodes an image from a stream with the given backend and caches it by name.
	//
	// Parameters:
	//   - name: the cache key
	//   - r: the reader providing image data
	//   - backendType: the decoder family
	//
	// Returns:
	//   - *common.ImageBuffer: the packed image
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) (*common.ImageBuffer, error)

	// Get retrieves a cached image by name. Returns nil if not found.
	Get(name string) *common.ImageBuffer

	// Images returns a copy of the image cache.
	Images() map[string]*common.ImageBuffer

	// Evict drops a cached image.
	Evict(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with both backends and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		imageCache: make(map[string]*common.ImageBuffer),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeImage: imageLoaderBackend{},
			BackendTypePPM:   ppmLoaderBackend{},
		},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*common.ImageBuffer, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := l.decode(f, resolveBackend(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.store(path, img)
	return img, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) (*common.ImageBuffer, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	img, err := l.decode(r, backendType)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	l.store(name, img)
	return img, nil
}

func (l *loader) Get(name string) *common.ImageBuffer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.imageCache[name]
}

func (l *loader) Images() map[string]*common.ImageBuffer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*common.ImageBuffer, len(l.imageCache))
	for k, v := range l.imageCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.imageCache, name)
}

func (l *loader) decode(r io.Reader, backendType LoaderBackendType) (*common.ImageBuffer, error) {
	backend, ok := l.backends[backendType]
	if !ok {
		return nil, fmt.Errorf("%w: backend %d", ErrUnsupportedFormat, backendType)
	}
	img, err := backend.Decode(r)
	if err != nil {
		return nil, err
	}

	packed := Pack(img, l.maxPixels)
	if b := img.Bounds(); uint32(b.Dx()) != packed.Width || uint32(b.Dy()) != packed.Height {
		logger.Info("image downscaled",
			zap.Int("width", b.Dx()), zap.Int("height", b.Dy()),
			zap.Uint32("packed_width", packed.Width), zap.Uint32("packed_height", packed.Height),
		)
	}
	return packed, nil
}

func (l *loader) store(name string, img *common.ImageBuffer) {
	l.mu.Lock()
	l.imageCache[name] = img
	l.mu.Unlock()
}

// resolveBackend picks the backend for a path by its extension.
func resolveBackend(path string) LoaderBackendType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm", ".pnm":
		return BackendTypePPM
	default:
		return BackendTypeImage
	}
}

// ParsePPM decodes PPM text or bytes into a packed image at full size.
//
// Parameters:
//   - data: a complete P3 or P6 file
//
// Returns:
//   - *common.ImageBuffer: the packed image
//   - error: ErrMalformedImage if the data is not a valid PPM
func ParsePPM(data []byte) (*common.ImageBuffer, error) {
	img, err := DecodePPM(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return Pack(img, 0), nil
}
