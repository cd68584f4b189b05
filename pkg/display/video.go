package display

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

var (
	// DefaultOn is the colour of a lit pixel.
	DefaultOn = color.RGBA{R: 0xFF, G: 0xF1, B: 0xE8, A: 0xFF}
	// DefaultOff is the colour of an unlit pixel.
	DefaultOff = color.RGBA{R: 0x1D, G: 0x2B, B: 0x53, A: 0xFF}
)

// RGBA decodes the grid into a Width×Height RGBA8888 byte slice
// (length Width*Height*4) suitable for uploading to a texture.
func (d *Display) RGBA(on, off color.RGBA) []byte {
	pixels := make([]byte, Width*Height*4)
	for i, lit := range d.pixels {
		c := off
		if lit {
			c = on
		}
		pixels[i*4+0] = c.R
		pixels[i*4+1] = c.G
		pixels[i*4+2] = c.B
		pixels[i*4+3] = c.A
	}
	return pixels
}

// Image returns the grid as an *image.RGBA at native resolution.
func (d *Display) Image(on, off color.RGBA) *image.RGBA {
	return &image.RGBA{
		Pix:    d.RGBA(on, off),
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}
}

// Scaled returns the grid upscaled by an integer factor with nearest-neighbour
// sampling so pixels stay square. A scale below 1 is treated as 1.
func (d *Display) Scaled(scale int, on, off color.RGBA) *image.RGBA {
	src := d.Image(on, off)
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width*scale, Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SaveScreenshot encodes the current frame as a PNG and writes it to filename.
func (d *Display) SaveScreenshot(filename string, scale int) error {
	img := d.Scaled(scale, DefaultOn, DefaultOff)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
