package common

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUp(0, 4))
	assert.Equal(t, uint64(4), AlignUp(1, 4))
	assert.Equal(t, uint64(4), AlignUp(4, 4))
	assert.Equal(t, uint64(8), AlignUp(5, 4))
	assert.Equal(t, uint64(256), AlignUp(145, 256))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestImageBufferPacking(t *testing.T) {
	p := PackRGBA(255, 128, 0, 255)
	assert.Equal(t, uint32(0xFF0080FF), p)

	r, g, b := UnpackRGB(p)
	assert.Equal(t, float32(1), r)
	assert.InDelta(t, 128.0/255.0, g, 1e-7)
	assert.Equal(t, float32(0), b)

	img := &ImageBuffer{Width: 2, Height: 1, Pixels: []uint32{p, 7}}
	require.NoError(t, img.Validate())
	raw := img.Marshal()
	require.Len(t, raw, 8)
	assert.Equal(t, p, binary.LittleEndian.Uint32(raw))
	assert.Equal(t, byte(0xFF), raw[0], "red lives in the lowest byte")
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(raw[4:]))
}

func TestImageBufferValidate(t *testing.T) {
	assert.Error(t, (&ImageBuffer{Width: 0, Height: 1}).Validate())
	assert.Error(t, (&ImageBuffer{Width: 2, Height: 2, Pixels: make([]uint32, 3)}).Validate())
}
