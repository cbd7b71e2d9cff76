package texture

import (
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
)

// RooftopTile lays overlapping tile courses. Each course is stepped along
// the face normal so courses further down the slope sit lower, and every
// tile is tilted about its course axis so its lower edge lifts off the
// face. Downhill is the direction of gravity (0, 0, -1) projected onto the
// frame's u axis.
type RooftopTile struct {
	TileWidth  float64 `codec:"w"`
	TileHeight float64 `codec:"h"`
	Spacing    float64 `codec:"s"`
	Overlap    float64 `codec:"o"`
	Step       float64 `codec:"st"`
	TiltDeg    float64 `codec:"tilt"`
	RowOffset  float64 `codec:"ro"` // odd-row shift along v, TileWidth/2 when zero
	Depth      float64 `codec:"d"`
}

func (r RooftopTile) Kind() string { return "rooftop_tile" }

func (r RooftopTile) Validate() error {
	if err := positive(
		namedValue{"tile_width", r.TileWidth},
		namedValue{"tile_height", r.TileHeight},
		namedValue{"spacing", r.Spacing},
		namedValue{"depth", r.Depth},
	); err != nil {
		return err
	}
	switch {
	case r.Overlap < 0:
		return invalid("overlap", "must be >= 0, got %g", r.Overlap)
	case r.TileHeight-r.Overlap <= 0:
		return invalid("overlap", "%g leaves no row pitch for tile_height %g", r.Overlap, r.TileHeight)
	case r.Step < 0:
		return invalid("step", "must be >= 0, got %g", r.Step)
	}
	return nil
}

func (r RooftopTile) ColumnPitch() float64 { return r.TileWidth + r.Spacing }

func (r RooftopTile) rowOffset() float64 {
	if r.RowOffset == 0 {
		return r.TileWidth / 2
	}
	return r.RowOffset
}

func (r RooftopTile) generate(j *faceJob) (*Stamp, error) {
	rowPitch := r.TileHeight - r.Overlap
	rowCount := layout.GridCount(j.diag, rowPitch)
	half := rowCount / 2
	cols := layout.Centered(layout.GridCount(j.diag, r.ColumnPitch()), r.ColumnPitch())

	stepSign := -1.0
	if -j.frame.XDir.Z > 0 {
		stepSign = 1
	}
	tiltOffset := math.Sin(r.TiltDeg*math.Pi/180) * r.TileHeight / 2

	// Subtractive tiles are the additive course mirrored through the face.
	m := j.mode.sign()
	for i := 0; i < rowCount; i++ {
		rowU := float64(i-half) * rowPitch
		stagger := 0.0
		if i%2 == 1 {
			stagger = r.rowOffset()
		}
		lift := stepSign*float64(half-i)*r.Step - tiltOffset*(1+0.07*float64(i))
		pl := j.frame.
			Translated(rowU, j.phase+stagger, m*lift).
			RotatedAboutY(-m * stepSign * r.TiltDeg)
		for _, v := range cols {
			if err := j.prism("tile", kernel.Rect(pl, 0, v, r.TileHeight, r.TileWidth), m*r.Depth); err != nil {
				return nil, err
			}
		}
	}

	maxLift := float64(half) * r.Step
	j.stamp.Span = j.span(-maxLift, r.Depth+maxLift)
	return &j.stamp, nil
}
