package texture

import (
	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
)

// Brick lays running-bond brick courses. Rows run along the frame's u
// axis, columns along v.
//
// Additive bricks stand proud of the face by Depth. Subtractive bricks
// cut the mortar instead: one strip per course boundary and one joint
// between neighbouring bricks, each Spacing wide and Depth deep.
type Brick struct {
	BrickWidth  float64 `codec:"w"`
	BrickHeight float64 `codec:"h"`
	Spacing     float64 `codec:"s"`
	RowOffset   float64 `codec:"ro"` // odd-row shift along v, BrickWidth/2 when zero
	Depth       float64 `codec:"d"`
}

func (b Brick) Kind() string { return "brick" }

func (b Brick) Validate() error {
	return positive(
		namedValue{"brick_width", b.BrickWidth},
		namedValue{"brick_height", b.BrickHeight},
		namedValue{"spacing", b.Spacing},
		namedValue{"depth", b.Depth},
	)
}

func (b Brick) ColumnPitch() float64 { return b.BrickWidth + b.Spacing }

func (b Brick) rowOffset() float64 {
	if b.RowOffset == 0 {
		return b.BrickWidth / 2
	}
	return b.RowOffset
}

func (b Brick) params(j *faceJob) layout.StaggerParams {
	colPitch := b.ColumnPitch()
	rowPitch := b.BrickHeight + b.Spacing
	return layout.StaggerParams{
		RowPitch:  rowPitch,
		ColPitch:  colPitch,
		Rows:      layout.EvenCount(layout.GridCount(j.diag, rowPitch)),
		Cols:      layout.GridCount(j.diag, colPitch),
		Phase:     j.phase,
		RowOffset: b.rowOffset(),
	}
}

func (b Brick) generate(j *faceJob) (*Stamp, error) {
	p := b.params(j)
	if j.mode == Subtractive {
		return b.mortar(j, p)
	}
	for _, c := range layout.Staggered(p) {
		r := kernel.Rect(j.frame, c.Pos.X, c.Pos.Y, b.BrickHeight, b.BrickWidth)
		if err := j.prism("brick", r, b.Depth); err != nil {
			return nil, err
		}
	}
	j.stamp.Span = Span{Min: 0, Max: 2 * b.Depth}
	return &j.stamp, nil
}

func (b Brick) mortar(j *faceJob, p layout.StaggerParams) (*Stamp, error) {
	length := 2 * j.diag
	for _, u := range layout.Strips(p) {
		r := kernel.Rect(j.frame, u, p.Phase, b.Spacing, length)
		if err := j.prism("mortar strip", r, -b.Depth); err != nil {
			return nil, err
		}
	}
	for _, c := range layout.Joints(p) {
		r := kernel.Rect(j.frame, c.Pos.X, c.Pos.Y, b.BrickHeight, b.Spacing)
		if err := j.prism("mortar joint", r, -b.Depth); err != nil {
			return nil, err
		}
	}
	j.stamp.Span = Span{Min: -2 * b.Depth, Max: 0}
	return &j.stamp, nil
}
