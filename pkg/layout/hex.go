package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// HexParams sizes a honeycomb grid over a face extent.
type HexParams struct {
	Side        float64 // hexagon side length
	Coefficient float64 // spacing multiplier, 1 when zero
	Extent      r2.Box  // face bounds in frame coordinates
}

// Spacing returns the column and row spacing of the honeycomb grid.
func (p HexParams) Spacing() (xs, ys float64) {
	coef := p.Coefficient
	if coef == 0 {
		coef = 1
	}
	return p.Side * math.Sqrt(3) * coef, p.Side * 0.5 * coef
}

// HexGrid enumerates honeycomb candidates in row-major order. Odd rows are
// shifted by half the column spacing. The grid starts at the minimum corner
// of the extent and has ceil(extent/spacing)+1 cells along each axis.
func HexGrid(p HexParams) []Cell {
	xs, ys := p.Spacing()
	w := p.Extent.Max.X - p.Extent.Min.X
	h := p.Extent.Max.Y - p.Extent.Min.Y
	cols := int(math.Ceil(w/xs)) + 1
	rows := int(math.Ceil(h/ys)) + 1

	cells := make([]Cell, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := p.Extent.Min.X + float64(col)*xs
			if row%2 == 1 {
				x += xs / 2
			}
			cells = append(cells, Cell{
				Pos: r2.Vec{X: x, Y: p.Extent.Min.Y + float64(row)*ys},
				Row: row,
				Col: col,
			})
		}
	}
	return cells
}

// Hexagon returns the vertices of a regular hexagon with the given
// circumradius, the first vertex at angle 0.
func Hexagon(center r2.Vec, radius float64) []r2.Vec {
	out := make([]r2.Vec, 6)
	for i := range out {
		a := float64(i) * math.Pi / 3
		out[i] = r2.Vec{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return out
}

// PointInPolygon reports whether p lies inside the closed polygon, by ray
// casting towards +X.
func PointInPolygon(p r2.Vec, poly []r2.Vec) bool {
	n := len(poly)
	if n < 3 {
		return false
	}
	inside := false
	p1 := poly[0]
	for i := 1; i <= n; i++ {
		p2 := poly[i%n]
		if p.Y > math.Min(p1.Y, p2.Y) && p.Y <= math.Max(p1.Y, p2.Y) && p.X <= math.Max(p1.X, p2.X) {
			xinters := p1.X
			if p1.Y != p2.Y {
				xinters = (p.Y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
			}
			if p1.X == p2.X || p.X <= xinters {
				inside = !inside
			}
		}
		p1 = p2
	}
	return inside
}

// SegmentsIntersect reports whether segments p1-p2 and p3-p4 cross.
// Parallel segments never intersect.
func SegmentsIntersect(p1, p2, p3, p4 r2.Vec) bool {
	denom := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(denom) < 1e-10 {
		return false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / denom
	u := -((p1.X-p2.X)*(p1.Y-p3.Y) - (p1.Y-p2.Y)*(p1.X-p3.X)) / denom
	return t >= 0 && t <= 1 && u >= 0 && u <= 1
}

// HexIntersectsPolygon reports whether a hexagon touches the polygon: a
// hexagon vertex inside the polygon, a polygon vertex inside the hexagon,
// or any pair of edges crossing.
func HexIntersectsPolygon(center r2.Vec, radius float64, poly []r2.Vec) bool {
	hex := Hexagon(center, radius)
	for _, v := range hex {
		if PointInPolygon(v, poly) {
			return true
		}
	}
	for _, v := range poly {
		if PointInPolygon(v, hex) {
			return true
		}
	}
	for i := range hex {
		a, b := hex[i], hex[(i+1)%len(hex)]
		for j := range poly {
			if SegmentsIntersect(a, b, poly[j], poly[(j+1)%len(poly)]) {
				return true
			}
		}
	}
	return false
}

// Area returns the unsigned shoelace area of a closed polygon.
func Area(poly []r2.Vec) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(a) / 2
}
