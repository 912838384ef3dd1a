// Package spatial provides cache-efficient cell structures for the snake grid.
//
// All structures use preallocated slices indexed in row-major order
// (cells[y*cols+x]) instead of maps keyed by coordinates.
package spatial

// Occupancy tracks which integer cells of a fixed grid are taken.
// Out-of-bounds coordinates are never occupied and cannot be marked.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col])
type Occupancy struct {
	cols, rows int
	cells      []bool
	count      int
}

// NewOccupancy creates an empty occupancy grid of cols x rows cells.
func NewOccupancy(cols, rows int) *Occupancy {
	// Ensure at least 1x1 grid
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Occupancy{
		cols:  cols,
		rows:  rows,
		cells: make([]bool, cols*rows),
	}
}

// Contains reports whether (x, y) lies inside the grid.
func (o *Occupancy) Contains(x, y int) bool {
	return x >= 0 && x < o.cols && y >= 0 && y < o.rows
}

// Mark occupies (x, y). Returns false if the cell is outside the grid or
// already taken. O(1) time complexity.
func (o *Occupancy) Mark(x, y int) bool {
	if !o.Contains(x, y) {
		return false
	}
	idx := y*o.cols + x
	if o.cells[idx] {
		return false
	}
	o.cells[idx] = true
	o.count++
	return true
}

// Occupied reports whether (x, y) is taken.
func (o *Occupancy) Occupied(x, y int) bool {
	if !o.Contains(x, y) {
		return false
	}
	return o.cells[y*o.cols+x]
}

// Free reports whether (x, y) is inside the grid and not taken.
func (o *Occupancy) Free(x, y int) bool {
	return o.Contains(x, y) && !o.cells[y*o.cols+x]
}

// Count returns the number of occupied cells.
func (o *Occupancy) Count() int {
	return o.count
}

// Full reports whether every cell is taken.
func (o *Occupancy) Full() bool {
	return o.count == len(o.cells)
}

// Clear resets all cells without deallocating underlying memory.
func (o *Occupancy) Clear() {
	for i := range o.cells {
		o.cells[i] = false
	}
	o.count = 0
}

// Dimensions returns the grid dimensions.
func (o *Occupancy) Dimensions() (cols, rows int) {
	return o.cols, o.rows
}
