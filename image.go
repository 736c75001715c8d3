package volren

import (
	"image"
	"image/color"
)

// Image is a CPU-side RGBA8 pixel buffer, the displayable output of a render.
//
// Pixels are stored row by row, 4 bytes per pixel, non-premultiplied. Image is
// not safe for concurrent mutation; renders produce a fresh Image per call.
type Image struct {
	// Pix holds the pixel data, laid out row by row with Stride bytes per row.
	Pix []byte

	// Width and Height are the image dimensions in pixels.
	Width, Height int

	// Stride is the number of bytes between vertically adjacent pixels.
	Stride int
}

// NewImage creates a zeroed (transparent black) image of the given size.
// Returns nil if either dimension is not positive.
func NewImage(width, height int) *Image {
	if width <= 0 || height <= 0 {
		return nil
	}
	return &Image{
		Pix:    make([]byte, width*height*4),
		Width:  width,
		Height: height,
		Stride: width * 4,
	}
}

// At returns the pixel at (x, y). Out-of-bounds coordinates return zero.
func (m *Image) At(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := y*m.Stride + x*4
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: m.Pix[i+3]}
}

// Set writes the pixel at (x, y). Out-of-bounds coordinates are ignored.
func (m *Image) Set(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	i := y*m.Stride + x*4
	m.Pix[i] = c.R
	m.Pix[i+1] = c.G
	m.Pix[i+2] = c.B
	m.Pix[i+3] = c.A
}

// SetGray writes an opaque gray pixel at (x, y).
func (m *Image) SetGray(x, y int, v uint8) {
	m.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
}

// Fill sets every pixel to the given color.
func (m *Image) Fill(c color.RGBA) {
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Width*4]
		for x := 0; x < m.Width; x++ {
			row[x*4] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
}

// RGBA returns the image as a standard library *image.RGBA sharing the same
// pixel buffer. Useful for PNG encoding and interop with image/draw.
func (m *Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    m.Pix,
		Stride: m.Stride,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// FromRGBA wraps a standard library RGBA image without copying when the
// bounds start at the origin; otherwise the pixels are copied.
func FromRGBA(src *image.RGBA) *Image {
	b := src.Bounds()
	if b.Min.X == 0 && b.Min.Y == 0 {
		return &Image{Pix: src.Pix, Width: b.Dx(), Height: b.Dy(), Stride: src.Stride}
	}
	dst := NewImage(b.Dx(), b.Dy())
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			c := src.RGBAAt(b.Min.X+x, b.Min.Y+y)
			dst.Set(x, y, c)
		}
	}
	return dst
}
