// package common contains plain data types and math helpers shared across the engine packages.
package common

import (
	"encoding/binary"
	"fmt"
)

// ImageBuffer is a decoded image packed as one uint32 per pixel: R in bits 0-7, G in 8-15, B in 16-23, A in 24-31.
// Pixels are stored row-major starting at the top-left corner.
type ImageBuffer struct {
	Width  uint32
	Height uint32
	Pixels []uint32
}

// PackRGBA packs 8-bit channels into the ImageBuffer pixel layout.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// UnpackRGB returns the normalized [0, 1] red, green and blue channels of a packed pixel.
func UnpackRGB(p uint32) (float32, float32, float32) {
	return float32(p&0xFF) / 255, float32((p>>8)&0xFF) / 255, float32((p>>16)&0xFF) / 255
}

// PixelCount returns Width * Height.
func (b *ImageBuffer) PixelCount() uint32 {
	return b.Width * b.Height
}

// Validate reports whether the pixel slice matches the declared dimensions.
func (b *ImageBuffer) Validate() error {
	if b.Width == 0 || b.Height == 0 {
		return fmt.Errorf("image has zero dimension %dx%d", b.Width, b.Height)
	}
	if uint64(len(b.Pixels)) != uint64(b.Width)*uint64(b.Height) {
		return fmt.Errorf("image declares %dx%d pixels but holds %d", b.Width, b.Height, len(b.Pixels))
	}
	return nil
}

// Marshal serializes the pixels as little-endian uint32 values for upload into a storage buffer.
func (b *ImageBuffer) Marshal() []byte {
	buf := make([]byte, len(b.Pixels)*4)
	for i, p := range b.Pixels {
		binary.LittleEndian.PutUint32(buf[i*4:], p)
	}
	return buf
}
