package sdfx

import (
	"math"
	"runtime"

	"github.com/chazu/relief/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/sync/errgroup"
)

// Volume estimates the enclosed volume by sampling the distance field at
// cell centres over the bounding box. Slices along Z are sampled in parallel.
func (k *SdfxKernel) Volume(s kernel.Solid) float64 {
	src, err := unwrap(s)
	if err != nil {
		return 0
	}
	bb := src.s.BoundingBox()
	size := v3.Vec{X: bb.Max.X - bb.Min.X, Y: bb.Max.Y - bb.Min.Y, Z: bb.Max.Z - bb.Min.Z}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return 0
	}

	step := k.volumeStep
	if step <= 0 {
		step = math.Max(size.X, math.Max(size.Y, size.Z)) / defaultVolumeCells
	}
	nx := int(math.Ceil(size.X/step - 1e-9))
	ny := int(math.Ceil(size.Y/step - 1e-9))
	nz := int(math.Ceil(size.Z/step - 1e-9))

	counts := make([]int, nz)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for iz := 0; iz < nz; iz++ {
		g.Go(func() error {
			z := bb.Min.Z + (float64(iz)+0.5)*step
			n := 0
			for iy := 0; iy < ny; iy++ {
				y := bb.Min.Y + (float64(iy)+0.5)*step
				for ix := 0; ix < nx; ix++ {
					x := bb.Min.X + (float64(ix)+0.5)*step
					if src.s.Evaluate(v3.Vec{X: x, Y: y, Z: z}) < 0 {
						n++
					}
				}
			}
			counts[iz] = n
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return float64(total) * step * step * step
}
