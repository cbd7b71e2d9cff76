// Package frame derives per-face local coordinate frames.
//
// A frame is a kernel.Plane whose origin sits on the face, whose normal is
// the face's outward normal and whose in-plane axes (u, v) are chosen by a
// fixed rule so the same face always yields the same frame.
package frame

import (
	"errors"
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateNormal is returned when no reference axis gives a usable
// cross product with the normal, which only happens for a zero normal.
var ErrDegenerateNormal = errors.New("frame: normal is parallel to every reference axis")

const (
	parallelTol = 1e-6 // cross product magnitude at or below which axes are parallel
	rotationTol = 1e-6 // degrees
)

var referenceAxes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// Build returns the frame anchored at origin with the given normal.
//
// u is the normalized cross product of the normal with the first of X, Y, Z
// that is not parallel to it, and v = n x u. A non-zero rotation turns u
// and v about the normal: u' = u cos + v sin, v' = -u sin + v cos.
func Build(origin, normal r3.Vec, rotationDeg float64) (kernel.Plane, error) {
	if r3.Norm(normal) == 0 {
		return kernel.Plane{}, ErrDegenerateNormal
	}
	n := r3.Unit(normal)

	var u r3.Vec
	found := false
	for _, a := range referenceAxes {
		c := r3.Cross(n, a)
		if r3.Norm(c) > parallelTol {
			u = r3.Unit(c)
			found = true
			break
		}
	}
	if !found {
		return kernel.Plane{}, ErrDegenerateNormal
	}
	v := r3.Unit(r3.Cross(n, u))

	if math.Abs(rotationDeg) > rotationTol {
		th := rotationDeg * math.Pi / 180
		c, s := math.Cos(th), math.Sin(th)
		ru := r3.Add(r3.Scale(c, u), r3.Scale(s, v))
		rv := r3.Add(r3.Scale(-s, u), r3.Scale(c, v))
		u, v = r3.Unit(ru), r3.Unit(rv)
	}

	return kernel.Plane{Origin: origin, XDir: u, YDir: v, Normal: n}, nil
}

// ForFace returns the frame anchored at the face centre.
func ForFace(f kernel.Face, rotationDeg float64) (kernel.Plane, error) {
	return Build(f.Center(), f.Normal, rotationDeg)
}

// Project returns the face's outer ring in the frame's 2-D coordinates.
func Project(f kernel.Face, pl kernel.Plane) []r2.Vec {
	out := make([]r2.Vec, len(f.Outer))
	for i, p := range f.Outer {
		out[i] = pl.Project(p)
	}
	return out
}

// Extent returns the bounding rectangle of the face in frame coordinates.
func Extent(f kernel.Face, pl kernel.Plane) r2.Box {
	pts := Project(f, pl)
	if len(pts) == 0 {
		return r2.Box{}
	}
	b := r2.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r2.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)}
		b.Max = r2.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)}
	}
	return b
}
