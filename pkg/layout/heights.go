package layout

import (
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
)

// HeightGroup is a set of cells sharing one discretized height.
type HeightGroup struct {
	Height float64
	Cells  []Cell
}

// Discretize snaps h into one of steps equal buckets spanning [min, max].
// The bucket index is floor((h-min)/step) clamped to steps-1. With one step
// or an empty range the raw height is kept.
func Discretize(h, min, max float64, steps int) float64 {
	if steps <= 1 || max <= min {
		return h
	}
	step := (max - min) / float64(steps)
	idx := int((h - min) / step)
	if idx > steps-1 {
		idx = steps - 1
	}
	if idx < 0 {
		idx = 0
	}
	return min + float64(idx)*step
}

// AssignHeights draws one uniform height in [min, max] per cell from a
// PCG stream seeded with seed, in cell order, snaps it with Discretize and
// groups the cells by height. Groups come back in ascending height order
// and keep the input order of their cells.
func AssignHeights(cells []Cell, min, max float64, steps int, seed uint64) []HeightGroup {
	rng := rand.New(rand.NewPCG(seed, seed))
	withHeights := lo.Map(cells, func(c Cell, _ int) Cell {
		c.Height = Discretize(min+rng.Float64()*(max-min), min, max, steps)
		return c
	})

	byHeight := lo.GroupBy(withHeights, func(c Cell) float64 { return c.Height })
	heights := lo.Keys(byHeight)
	slices.Sort(heights)
	return lo.Map(heights, func(h float64, _ int) HeightGroup {
		return HeightGroup{Height: h, Cells: byHeight[h]}
	})
}
