// Package color holds the sRGB, CIE XYZ and CIELUV conversions shared by the point cloud generators.
// Every function has a float32 Go form, used by the software backend and tests, and a WGSL twin in
// assets/color.wgsl that generator kernels include with //@oxy:include color.
package color

import (
	_ "embed"

	"github.com/chewxy/math32"
)

// WGSL is the shader library mirroring this package. Function names are the snake_case forms of the Go names.
//
//go:embed assets/color.wgsl
var WGSL string

// SnippetName is the include name the shader pre-processor registers WGSL under.
const SnippetName = "color"

// D65 reference white.
const (
	WhiteX float32 = 0.95047
	WhiteY float32 = 1.0
	WhiteZ float32 = 1.08883
)

// CIE 1976 lightness constants. Epsilon is (6/29)^3 and Kappa the slope of the linear segment below it.
const (
	Epsilon float32 = 216.0 / 24389.0
	Kappa   float32 = 903.3
)

var (
	whiteU = 4 * WhiteX / (WhiteX + 15*WhiteY + 3*WhiteZ)
	whiteV = 9 * WhiteY / (WhiteX + 15*WhiteY + 3*WhiteZ)
)

// SRGBToLinear removes the sRGB transfer curve from one channel.
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}

// LinearToSRGB applies the sRGB transfer curve to one linear channel.
func LinearToSRGB(c float32) float32 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math32.Pow(c, 1/2.4) - 0.055
}

// LinearToXYZ converts linear sRGB to CIE XYZ under D65.
func LinearToXYZ(r, g, b float32) (x, y, z float32) {
	x = 0.4124564*r + 0.3575761*g + 0.1804375*b
	y = 0.2126729*r + 0.7151522*g + 0.0721750*b
	z = 0.0193339*r + 0.1191920*g + 0.9503041*b
	return x, y, z
}

// XYZToLinear converts CIE XYZ back to linear sRGB. The result is not clamped.
func XYZToLinear(x, y, z float32) (r, g, b float32) {
	r = 3.2404542*x - 1.5371385*y - 0.4985314*z
	g = -0.9692660*x + 1.8760108*y + 0.0415560*z
	b = 0.0556434*x - 0.2040259*y + 1.0572252*z
	return r, g, b
}

// RGBToXYZ converts gamma encoded sRGB to CIE XYZ.
func RGBToXYZ(r, g, b float32) (x, y, z float32) {
	return LinearToXYZ(SRGBToLinear(r), SRGBToLinear(g), SRGBToLinear(b))
}

// XYZToRGB converts CIE XYZ to gamma encoded sRGB.
func XYZToRGB(x, y, z float32) (r, g, b float32) {
	lr, lg, lb := XYZToLinear(x, y, z)
	return LinearToSRGB(lr), LinearToSRGB(lg), LinearToSRGB(lb)
}

// XYZToLUV converts CIE XYZ to CIELUV with L in [0, 100].
// Black maps to (0, 0, 0): the chromaticity falls back to the reference white when x+15y+3z is zero.
func XYZToLUV(x, y, z float32) (l, u, v float32) {
	up, vp := whiteU, whiteV
	if denom := x + 15*y + 3*z; denom > 0 {
		up = 4 * x / denom
		vp = 9 * y / denom
	}

	yn := y / WhiteY
	if yn > Epsilon {
		l = 116*math32.Cbrt(yn) - 16
	} else {
		l = Kappa * yn
	}

	u = 13 * l * (up - whiteU)
	v = 13 * l * (vp - whiteV)
	return l, u, v
}

// LUVToXYZ inverts XYZToLUV. L == 0, or a recovered v' of zero, yields black.
func LUVToXYZ(l, u, v float32) (x, y, z float32) {
	if l == 0 {
		return 0, 0, 0
	}

	up := u/(13*l) + whiteU
	vp := v/(13*l) + whiteV

	if l > 8 {
		t := (l + 16) / 116
		y = WhiteY * t * t * t
	} else {
		y = WhiteY * l / Kappa
	}

	if vp == 0 {
		return 0, 0, 0
	}
	x = y * 9 * up / (4 * vp)
	z = y * (12 - 3*up - 20*vp) / (4 * vp)
	return x, y, z
}

// RGBToLUV converts gamma encoded sRGB to CIELUV.
func RGBToLUV(r, g, b float32) (l, u, v float32) {
	return XYZToLUV(RGBToXYZ(r, g, b))
}

// LUVToRGB converts CIELUV to gamma encoded sRGB.
func LUVToRGB(l, u, v float32) (r, g, b float32) {
	return XYZToRGB(LUVToXYZ(l, u, v))
}
