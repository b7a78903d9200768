package color

import "github.com/chewxy/math32"

// HSLToRGB converts hue, saturation and lightness, all in [0, 1], to sRGB using the chroma and hue sector decomposition.
// Hue wraps, so 1 is the same as 0.
func HSLToRGB(h, s, l float32) (r, g, b float32) {
	c := (1 - math32.Abs(2*l-1)) * s
	hp := math32.Mod(h, 1)
	if hp < 0 {
		hp++
	}
	hp *= 6
	x := c * (1 - math32.Abs(math32.Mod(hp, 2)-1))

	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	m := l - c/2
	return r + m, g + m, b + m
}

// RGBToHSL converts sRGB in [0, 1] to hue, saturation and lightness in [0, 1]. Grays report a hue of 0.
func RGBToHSL(r, g, b float32) (h, s, l float32) {
	maxc := math32.Max(r, math32.Max(g, b))
	minc := math32.Min(r, math32.Min(g, b))
	l = (maxc + minc) / 2

	d := maxc - minc
	if d == 0 {
		return 0, 0, l
	}

	if l > 0.5 {
		s = d / (2 - maxc - minc)
	} else {
		s = d / (maxc + minc)
	}

	switch maxc {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}
