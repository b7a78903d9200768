package loader

import (
	"image"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"
)

// Pack converts img into the packed RGBA layout the image generators upload. Images with more
// than maxPixels pixels are first downscaled with Catmull-Rom filtering, keeping the aspect
// ratio; a maxPixels of zero disables the limit.
//
// Parameters:
//   - img: the decoded image
//   - maxPixels: the pixel budget, or 0 for none
//
// Returns:
//   - *common.ImageBuffer: the packed image, row-major from the top-left corner
func Pack(img image.Image, maxPixels uint32) *common.ImageBuffer {
	b := img.Bounds()
	w, h := fitPixels(b.Dx(), b.Dy(), maxPixels)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	out := &common.ImageBuffer{Width: uint32(w), Height: uint32(h), Pixels: make([]uint32, w*h)}
	for i := range out.Pixels {
		p := dst.Pix[i*4 : i*4+4]
		out.Pixels[i] = common.PackRGBA(p[0], p[1], p[2], p[3])
	}
	return out
}

// fitPixels scales w x h down uniformly until it holds at most maxPixels pixels.
func fitPixels(w, h int, maxPixels uint32) (int, int) {
	if maxPixels == 0 || uint64(w)*uint64(h) <= uint64(maxPixels) {
		return w, h
	}
	s := math32.Sqrt(float32(maxPixels) / (float32(w) * float32(h)))
	nw := max(1, int(float32(w)*s))
	nh := max(1, int(float32(h)*s))
	for uint64(nw)*uint64(nh) > uint64(maxPixels) {
		if nw >= nh {
			nw--
		} else {
			nh--
		}
	}
	return max(1, nw), max(1, nh)
}
