package texture

import (
	"math"

	"github.com/chazu/relief/pkg/frame"
	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
	"github.com/chazu/relief/pkg/logging"
	"github.com/samber/lo"
)

// Honeycomb defaults.
const (
	DefaultHeightSteps = 10
	DefaultSeed        = 42
)

// Honeycomb fills a face with hexagonal cells of random, bucketed height.
// Heights are drawn from a generator seeded by RandomSeed, so the same
// face and values always give the same relief. Cells that land at height
// zero are left out, so a zero height range produces no geometry.
type Honeycomb struct {
	SideLength         float64 `codec:"side"`
	HeightMin          float64 `codec:"hmin"`
	HeightMax          float64 `codec:"hmax"`
	HeightSteps        int     `codec:"steps"` // DefaultHeightSteps when zero
	RotationDeg        float64 `codec:"rot"`
	SpacingCoefficient float64 `codec:"coef"` // 1 when zero
	RandomSeed         uint64  `codec:"seed"` // DefaultSeed when zero
}

func (h Honeycomb) Kind() string { return "honeycomb" }

func (h Honeycomb) Validate() error {
	if err := positive(namedValue{"side_length", h.SideLength}); err != nil {
		return err
	}
	switch {
	case h.HeightMin < 0:
		return invalid("height_min", "must be >= 0, got %g", h.HeightMin)
	case h.HeightMin > h.HeightMax:
		return invalid("height_min", "%g exceeds height_max %g", h.HeightMin, h.HeightMax)
	case h.HeightSteps < 0:
		return invalid("height_steps", "must be >= 0, got %d", h.HeightSteps)
	case h.SpacingCoefficient < 0:
		return invalid("spacing_coefficient", "must be >= 0, got %g", h.SpacingCoefficient)
	}
	return nil
}

// ColumnPitch is zero: honeycomb cells are laid out from each face's own
// extent and take no cross-face phase.
func (h Honeycomb) ColumnPitch() float64 { return 0 }

func (h Honeycomb) withDefaults() Honeycomb {
	if h.HeightSteps == 0 {
		h.HeightSteps = DefaultHeightSteps
	}
	if h.SpacingCoefficient == 0 {
		h.SpacingCoefficient = 1
	}
	if h.RandomSeed == 0 {
		h.RandomSeed = DefaultSeed
	}
	return h
}

func (h Honeycomb) generate(j *faceJob) (*Stamp, error) {
	h = h.withDefaults()
	log := logging.Logger()

	fr := j.frame
	if math.Abs(h.RotationDeg) > 0 {
		var err error
		fr, err = frame.Build(j.frame.Origin, j.frame.Normal, h.RotationDeg)
		if err != nil {
			return nil, &GeometryError{Face: j.face.Index, Stage: "frame", Err: err}
		}
	}
	ring := frame.Project(j.face, fr)
	candidates := layout.HexGrid(layout.HexParams{
		Side:        h.SideLength,
		Coefficient: h.SpacingCoefficient,
		Extent:      frame.Extent(j.face, fr),
	})
	included := lo.Filter(candidates, func(c layout.Cell, _ int) bool {
		return layout.HexIntersectsPolygon(c.Pos, h.SideLength, ring)
	})
	log.Debug("honeycomb layout", "face", j.face.Index, "candidates", len(candidates), "included", len(included))

	j.stamp.Span = j.span(0, 2*h.HeightMax)
	if len(included) == 0 {
		return &j.stamp, nil
	}

	sign := j.mode.sign()
	for _, g := range layout.AssignHeights(included, h.HeightMin, h.HeightMax, h.HeightSteps, h.RandomSeed) {
		if g.Height <= 0 {
			log.Debug("skipping flat honeycomb group", "face", j.face.Index, "cells", len(g.Cells))
			continue
		}
		for _, c := range g.Cells {
			// SideLength is the cell's circumscribed diameter; the wider
			// inclusion radius above only decides which cells are kept.
			p := kernel.Profile{Plane: fr, Points: layout.Hexagon(c.Pos, h.SideLength/2)}
			if err := j.prism("honeycomb cell", p, sign*g.Height); err != nil {
				return nil, err
			}
		}
	}
	return &j.stamp, nil
}
