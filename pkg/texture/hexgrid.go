package texture

import (
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
	"gonum.org/v1/gonum/spatial/r2"
)

// HexGrid covers a face with a lattice of hexagonal rings of diameter
// Diameter and wall thickness SideThickness. A non-zero EdgeWidth adds a
// wall of that width following the face boundary.
type HexGrid struct {
	Diameter      float64 `codec:"d"`
	Height        float64 `codec:"h"`
	SideThickness float64 `codec:"t"`
	EdgeWidth     float64 `codec:"ew,omitempty"`
}

func (g HexGrid) Kind() string { return "hex_grid" }

func (g HexGrid) Validate() error {
	if err := positive(
		namedValue{"diameter", g.Diameter},
		namedValue{"height", g.Height},
		namedValue{"side_thickness", g.SideThickness},
	); err != nil {
		return err
	}
	if g.SideThickness >= g.Diameter {
		return invalid("side_thickness", "%g must be less than diameter %g", g.SideThickness, g.Diameter)
	}
	if g.EdgeWidth < 0 {
		return invalid("edge_width", "must be >= 0, got %g", g.EdgeWidth)
	}
	return nil
}

func (g HexGrid) ColumnPitch() float64 { return 0 }

// period returns the lattice spacing of one of the two interleaved grids.
func (g HexGrid) period() (xs, ys float64) {
	return 1.5 * g.Diameter, g.Diameter * math.Sqrt(3) / 2
}

func (g HexGrid) generate(j *faceJob) (*Stamp, error) {
	xs, ys := g.period()
	cols := layout.Centered(layout.GridCount(j.diag, xs), xs)
	rows := layout.Centered(layout.GridCount(j.diag, ys), ys)
	h := j.mode.sign() * g.Height

	for _, shift := range []r2.Vec{{}, {X: xs / 2, Y: ys / 2}} {
		for _, y := range rows {
			for _, x := range cols {
				c := r2.Vec{X: x + shift.X, Y: y + shift.Y}
				if err := g.ring(j, c, h); err != nil {
					return nil, err
				}
			}
		}
	}
	j.stamp.Span = j.span(0, 2*g.Height)

	if g.EdgeWidth > 0 {
		outer := j.boundary()
		inner := outer
		inner.Offset = -g.EdgeWidth
		wall, err := j.cut("edge wall", outer, inner, h)
		if err != nil {
			return nil, err
		}
		j.stamp.Extras = append(j.stamp.Extras, wall)
	}
	return &j.stamp, nil
}

func (g HexGrid) ring(j *faceJob, c r2.Vec, h float64) error {
	outer := kernel.Profile{Plane: j.frame, Points: layout.Hexagon(c, g.Diameter/2)}
	inner := kernel.Profile{Plane: j.frame, Points: layout.Hexagon(c, (g.Diameter-g.SideThickness)/2)}
	s, err := j.cut("hex ring", outer, inner, h)
	if err != nil {
		return err
	}
	j.stamp.Primitives = append(j.stamp.Primitives, s)
	return nil
}

// cut extrudes both profiles by h and subtracts the inner prism.
func (j *faceJob) cut(stage string, outer, inner kernel.Profile, h float64) (kernel.Solid, error) {
	a, err := j.extrude(stage, outer, h)
	if err != nil {
		return nil, err
	}
	b, err := j.extrude(stage, inner, h)
	if err != nil {
		return nil, err
	}
	s, err := j.k.Difference(a, b)
	if err != nil {
		return nil, &GeometryError{Face: j.face.Index, Stage: stage, Err: err}
	}
	return s, nil
}
