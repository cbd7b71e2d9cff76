// Package preview draws texture layouts as flat DXF plans.
//
// Each face is drawn in its own frame coordinates: the face outline on one
// layer and every generated cell outline on another. Faces are laid out
// left to right so a multi-face texture can be checked in any CAD viewer
// before the expensive boolean work runs.
package preview

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/relief/pkg/logging"
	"github.com/chazu/relief/pkg/texture"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"gonum.org/v1/gonum/spatial/r2"
)

// Layer names used in the drawing.
const (
	BoundaryLayer = "BOUNDARY"
	CellLayer     = "CELLS"
)

// ErrNoLayouts is returned when there is nothing to draw.
var ErrNoLayouts = errors.New("preview: no layouts")

// Gap is the horizontal distance between neighbouring faces.
const Gap = 10.0

// WriteDXF draws layouts into a DXF file at path. Cells are drawn in full,
// including the parts the boundary clip will remove.
func WriteDXF(path string, layouts []*texture.FaceLayout) error {
	if len(layouts) == 0 {
		return ErrNoLayouts
	}
	d := dxf.NewDrawing()
	if _, err := d.AddLayer(BoundaryLayer, dxf.DefaultColor, dxf.DefaultLineType, false); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if _, err := d.AddLayer(CellLayer, color.Red, dxf.DefaultLineType, false); err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	var x float64
	lines := 0
	for _, l := range layouts {
		min, max := bounds(l.Boundary)
		shift := r2.Vec{X: x - min.X}

		if err := d.ChangeLayer(BoundaryLayer); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		n, err := ring(d, l.Boundary, shift)
		if err != nil {
			return fmt.Errorf("preview: face %d: %w", l.Face, err)
		}
		lines += n

		if err := d.ChangeLayer(CellLayer); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		for _, c := range l.Cells {
			n, err := ring(d, c, shift)
			if err != nil {
				return fmt.Errorf("preview: face %d: %w", l.Face, err)
			}
			lines += n
		}
		x += max.X - min.X + Gap
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("preview: saving %s: %w", path, err)
	}
	logging.Logger().Debug("layout preview written", "path", path, "faces", len(layouts), "lines", lines)
	return nil
}

// ring draws a closed polyline as individual lines.
func ring(d *drawing.Drawing, pts []r2.Vec, shift r2.Vec) (int, error) {
	for i := range pts {
		a := r2.Add(pts[i], shift)
		b := r2.Add(pts[(i+1)%len(pts)], shift)
		if _, err := d.Line(a.X, a.Y, 0, b.X, b.Y, 0); err != nil {
			return i, err
		}
	}
	return len(pts), nil
}

func bounds(pts []r2.Vec) (min, max r2.Vec) {
	if len(pts) == 0 {
		return r2.Vec{}, r2.Vec{}
	}
	min, max = pts[0], pts[0]
	for _, p := range pts[1:] {
		min = r2.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y)}
		max = r2.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y)}
	}
	return min, max
}
