// Package grid converts between row-major cell indices and (x, y) coordinates.
package grid

// GetGridCoords returns the column and row of a row-major index.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// GetGridIndex returns the row-major index of (x, y) after wrapping both
// coordinates into a cols×rows grid. Negative coordinates wrap from the far edge.
func GetGridIndex(x, y, cols, rows int) int {
	x %= cols
	if x < 0 {
		x += cols
	}
	y %= rows
	if y < 0 {
		y += rows
	}
	return y*cols + x
}
