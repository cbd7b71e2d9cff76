package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a planar bounded portion of a solid's boundary. Faces are
// produced by Kernel.Faces and identified by Index, which is dense within
// the solid they came from.
type Face struct {
	Index  int      // position in the owning solid's face list
	Outer  []r3.Vec // outer boundary ring, counter-clockwise seen from outside
	Normal r3.Vec   // unit outward normal
}

// Area returns the area enclosed by the outer ring.
func (f Face) Area() float64 {
	a, _ := f.areaCentroid()
	return math.Abs(a)
}

// Center returns the area-weighted centroid of the outer ring. Degenerate
// faces fall back to the vertex average.
func (f Face) Center() r3.Vec {
	_, c := f.areaCentroid()
	return c
}

func (f Face) areaCentroid() (float64, r3.Vec) {
	n := len(f.Outer)
	if n == 0 {
		return 0, r3.Vec{}
	}
	var avg r3.Vec
	for _, p := range f.Outer {
		avg = r3.Add(avg, p)
	}
	avg = r3.Scale(1/float64(n), avg)
	if n < 3 {
		return 0, avg
	}

	// Triangle fan from the first vertex; signed areas measured along the
	// normal so concave rings come out right.
	var area float64
	var acc r3.Vec
	p0 := f.Outer[0]
	for i := 1; i+1 < n; i++ {
		p1, p2 := f.Outer[i], f.Outer[i+1]
		a := r3.Dot(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)), f.Normal) / 2
		c := r3.Scale(1.0/3, r3.Add(p0, r3.Add(p1, p2)))
		area += a
		acc = r3.Add(acc, r3.Scale(a, c))
	}
	if math.Abs(area) < 1e-12 {
		return 0, avg
	}
	return area, r3.Scale(1/area, acc)
}

// BoundingBox returns the axis-aligned bounds of the outer ring.
func (f Face) BoundingBox() r3.Box {
	if len(f.Outer) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: f.Outer[0], Max: f.Outer[0]}
	for _, p := range f.Outer[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// BoxOf converts the [3]float64 bounds returned by Solid.BoundingBox.
func BoxOf(min, max [3]float64) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: min[0], Y: min[1], Z: min[2]},
		Max: r3.Vec{X: max[0], Y: max[1], Z: max[2]},
	}
}
