// Package layout enumerates pattern cell positions in a face's local frame.
//
// Layouts deliberately over-cover: every grid is sized from the face's
// bounding diagonal so that any in-plane rotation or phase shift still
// covers the whole face. The boundary clipper trims the excess afterwards.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is one candidate position in frame coordinates. X runs along the
// frame's u axis (rows), Y along v (columns).
type Cell struct {
	Pos    r2.Vec
	Row    int
	Col    int
	Height float64 // discretized extrusion height, zero when unused
}

// Diagonal returns the coverage bound for a face with the given bounds.
// All three extents are used so faces that are not parallel to XY are
// covered as well: an XZ face has no Y extent, and sqrt(xlen² + ylen²)
// would measure only its width. For an XY face this is sqrt(xlen² + ylen²).
func Diagonal(b r3.Box) float64 {
	s := r3.Sub(b.Max, b.Min)
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// GridCount returns the number of cells needed to cover twice the diagonal
// at the given pitch, with one spare cell on each side.
func GridCount(diag, pitch float64) int {
	return int(math.Ceil(2*diag/pitch)) + 2
}

// EvenCount rounds n up to an even number.
func EvenCount(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// Centered returns count positions spaced by pitch and centred on zero.
func Centered(count int, pitch float64) []float64 {
	out := make([]float64, count)
	mid := float64(count-1) / 2
	for i := range out {
		out[i] = (float64(i) - mid) * pitch
	}
	return out
}

// StaggerParams describes a two-pass staggered rectangular array.
type StaggerParams struct {
	RowPitch  float64
	ColPitch  float64
	Rows      int     // total rows, rounded up to even
	Cols      int     // cells per row
	Phase     float64 // shift of every row along the column axis
	RowOffset float64 // extra column shift of odd rows
}

// Staggered lays out even rows at phase 0 and odd rows shifted by
// RowOffset along the column axis and one row pitch along the row axis.
// Even-row cells come first, then odd-row cells.
func Staggered(p StaggerParams) []Cell {
	rows := EvenCount(p.Rows)
	half := rows / 2
	rowPos := Centered(half, 2*p.RowPitch)
	colPos := Centered(p.Cols, p.ColPitch)

	cells := make([]Cell, 0, rows*p.Cols)
	for pass := 0; pass < 2; pass++ {
		du := float64(pass) * p.RowPitch
		dv := p.Phase
		if pass == 1 {
			dv += p.RowOffset
		}
		for j, u := range rowPos {
			for c, v := range colPos {
				cells = append(cells, Cell{
					Pos: r2.Vec{X: u + du, Y: v + dv},
					Row: 2*j + pass,
					Col: c,
				})
			}
		}
	}
	return cells
}

// Joints returns the inter-cell joint positions of a staggered array: the
// same rows, with every cell moved half a column pitch along the columns.
func Joints(p StaggerParams) []Cell {
	p.Phase += p.ColPitch / 2
	return Staggered(p)
}

// Strips returns one row-axis position per boundary between adjacent rows
// of a staggered array with the same parameters.
func Strips(p StaggerParams) []float64 {
	return Centered(EvenCount(p.Rows), p.RowPitch)
}
