// Package display holds the monochrome pixel grid driven by the sprite
// instructions.
//
// All coordinates wrap: x is taken modulo Width and y modulo Height for
// reads, writes and sprite draws alike.
package display

import (
	"strings"

	"github.com/cespare/xxhash"

	"gochip8/pkg/grid"
)

const (
	Width  = 64
	Height = 32

	// MaxSpriteRows is the tallest sprite a single draw accepts; extra rows are ignored.
	MaxSpriteRows = 15
)

// Display is a Width×Height grid of lit/unlit pixels stored row-major.
type Display struct {
	pixels [Width * Height]bool
}

// New returns a blank display.
func New() *Display {
	return &Display{}
}

// Clear sets every pixel unlit.
func (d *Display) Clear() {
	d.pixels = [Width * Height]bool{}
}

// Pixel reports whether the pixel at (x, y) is lit.
func (d *Display) Pixel(x, y int) bool {
	return d.pixels[grid.GetGridIndex(x, y, Width, Height)]
}

// SetPixel lights or clears the pixel at (x, y).
func (d *Display) SetPixel(x, y int, on bool) {
	d.pixels[grid.GetGridIndex(x, y, Width, Height)] = on
}

// DrawSprite XORs rows into the grid with the top-left corner at (x, y).
// Each row is 8 pixels wide, most significant bit leftmost. It returns true
// if any lit pixel was turned off.
func (d *Display) DrawSprite(x, y int, rows []byte) bool {
	if len(rows) > MaxSpriteRows {
		rows = rows[:MaxSpriteRows]
	}

	collision := false
	for row, bits := range rows {
		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			idx := grid.GetGridIndex(x+col, y+row, Width, Height)
			if d.pixels[idx] {
				collision = true
			}
			d.pixels[idx] = !d.pixels[idx]
		}
	}
	return collision
}

// Pixels returns a row-major copy of the grid.
func (d *Display) Pixels() []bool {
	out := make([]bool, len(d.pixels))
	copy(out, d.pixels[:])
	return out
}

// packed returns the grid with 8 pixels per byte, used for hashing.
func (d *Display) packed() []byte {
	out := make([]byte, len(d.pixels)/8)
	for i, on := range d.pixels {
		if on {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// Checksum returns a hash of the current frame. Renderers compare it with the
// previous value to skip uploading unchanged frames.
func (d *Display) Checksum() uint64 {
	return xxhash.Sum64(d.packed())
}

// String renders the grid as text: '#' for lit, '.' for unlit, one line per row.
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow((Width + 1) * Height)
	for i, on := range d.pixels {
		if on {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
		if x, _ := grid.GetGridCoords(i, Width); x == Width-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
