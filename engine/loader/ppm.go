package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

// ppmMaxDimension bounds a declared width or height before any pixel storage is allocated.
const ppmMaxDimension = 1 << 13

func init() {
	image.RegisterFormat("ppm", "P3", DecodePPM, DecodePPMConfig)
	image.RegisterFormat("ppm", "P6", DecodePPM, DecodePPMConfig)
}

// ppmHeader is the magic, dimensions and maxval of a PPM file.
type ppmHeader struct {
	binary bool
	width  int
	height int
	maxval int
}

// ppmScanner tokenizes the whitespace and comment separated fields of a PPM header and the
// sample list of a plain P3 body.
type ppmScanner struct {
	r *bufio.Reader
}

// token returns the next field, skipping whitespace and '#' comments.
func (s *ppmScanner) token() (string, error) {
	var tok []byte
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := s.r.ReadString('\n'); err != nil && err != io.EOF {
				return "", err
			}
		case isPPMSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}

// int reads the next field as a non-negative integer no larger than limit.
func (s *ppmScanner) int(field string, limit int) (int, error) {
	tok, err := s.token()
	if err != nil {
		return 0, fmt.Errorf("%w: reading %s: %v", ErrMalformedImage, field, err)
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 || v > limit {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedImage, field, tok)
	}
	return v, nil
}

func isPPMSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func readPPMHeader(s *ppmScanner) (ppmHeader, error) {
	var h ppmHeader
	magic, err := s.token()
	if err != nil {
		return h, fmt.Errorf("%w: missing magic: %v", ErrMalformedImage, err)
	}
	switch magic {
	case "P3":
	case "P6":
		h.binary = true
	default:
		return h, fmt.Errorf("%w: magic %q is not P3 or P6", ErrMalformedImage, magic)
	}

	if h.width, err = s.int("width", ppmMaxDimension); err != nil {
		return h, err
	}
	if h.height, err = s.int("height", ppmMaxDimension); err != nil {
		return h, err
	}
	if h.width == 0 || h.height == 0 {
		return h, fmt.Errorf("%w: zero dimension %dx%d", ErrMalformedImage, h.width, h.height)
	}
	if h.maxval, err = s.int("maxval", 65535); err != nil {
		return h, err
	}
	if h.maxval == 0 {
		return h, fmt.Errorf("%w: maxval 0", ErrMalformedImage)
	}
	return h, nil
}

// DecodePPMConfig reads the dimensions of a P3 or P6 image without decoding pixels.
func DecodePPMConfig(r io.Reader) (image.Config, error) {
	h, err := readPPMHeader(&ppmScanner{r: bufio.NewReader(r)})
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: h.width, Height: h.height}, nil
}

// DecodePPM decodes a plain (P3) or raw (P6) PPM image. Samples are rescaled from maxval to
// 8 bits and every pixel is opaque.
//
// Parameters:
//   - r: the PPM stream
//
// Returns:
//   - image.Image: an *image.NRGBA
//   - error: ErrMalformedImage for a bad header, a sample above maxval or a short body
func DecodePPM(r io.Reader) (image.Image, error) {
	s := &ppmScanner{r: bufio.NewReader(r)}
	h, err := readPPMHeader(s)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	samples := h.width * h.height * 3
	next := s.plainSample(h)
	if h.binary {
		next = s.rawSample(h)
	}

	for i := range samples {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("%w: sample %d of %d: %v", ErrMalformedImage, i, samples, err)
		}
		px := i / 3
		img.Pix[px*4+i%3] = scaleSample(v, h.maxval)
		if i%3 == 2 {
			img.Pix[px*4+3] = 0xFF
		}
	}
	return img, nil
}

// plainSample reads ASCII samples of a P3 body.
func (s *ppmScanner) plainSample(h ppmHeader) func() (int, error) {
	return func() (int, error) {
		tok, err := s.token()
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 || v > h.maxval {
			return 0, fmt.Errorf("sample %q outside 0..%d", tok, h.maxval)
		}
		return v, nil
	}
}

// rawSample reads binary samples of a P6 body: one byte each, or two big-endian bytes when maxval
// exceeds 255. The header's final whitespace byte has already been consumed by the scanner.
func (s *ppmScanner) rawSample(h ppmHeader) func() (int, error) {
	wide := h.maxval > 0xFF
	var buf [2]byte
	return func() (int, error) {
		var v int
		if wide {
			if _, err := io.ReadFull(s.r, buf[:]); err != nil {
				return 0, err
			}
			v = int(binary.BigEndian.Uint16(buf[:]))
		} else {
			c, err := s.r.ReadByte()
			if err != nil {
				return 0, err
			}
			v = int(c)
		}
		if v > h.maxval {
			return 0, fmt.Errorf("sample %d above maxval %d", v, h.maxval)
		}
		return v, nil
	}
}

// scaleSample maps v in [0, maxval] to [0, 255] with rounding.
func scaleSample(v, maxval int) uint8 {
	if maxval == 0xFF {
		return uint8(v)
	}
	return uint8((v*0xFF + maxval/2) / maxval)
}
