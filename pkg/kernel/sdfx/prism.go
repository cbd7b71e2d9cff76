package sdfx

import (
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// planeSDF3 places an SDF built in local coordinates into a plane. The
// wrapped SDF is centred on local z = 0 and shifted by zc along the normal.
// The plane axes are orthonormal, so distances carry over unchanged.
type planeSDF3 struct {
	inner sdf.SDF3
	plane kernel.Plane
	zc    float64
	bb    sdf.Box3
}

func newPlaneSDF3(inner sdf.SDF3, pl kernel.Plane, zc float64) *planeSDF3 {
	s := &planeSDF3{inner: inner, plane: pl, zc: zc}
	lb := inner.BoundingBox()
	first := true
	for _, x := range [2]float64{lb.Min.X, lb.Max.X} {
		for _, y := range [2]float64{lb.Min.Y, lb.Max.Y} {
			for _, z := range [2]float64{lb.Min.Z, lb.Max.Z} {
				w := pl.ToWorld(x, y, z+zc)
				p := v3.Vec{X: w.X, Y: w.Y, Z: w.Z}
				if first {
					s.bb = sdf.Box3{Min: p, Max: p}
					first = false
					continue
				}
				s.bb.Min = v3.Vec{X: math.Min(s.bb.Min.X, p.X), Y: math.Min(s.bb.Min.Y, p.Y), Z: math.Min(s.bb.Min.Z, p.Z)}
				s.bb.Max = v3.Vec{X: math.Max(s.bb.Max.X, p.X), Y: math.Max(s.bb.Max.Y, p.Y), Z: math.Max(s.bb.Max.Z, p.Z)}
			}
		}
	}
	return s
}

func (s *planeSDF3) Evaluate(p v3.Vec) float64 {
	l := s.plane.ToLocal(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	return s.inner.Evaluate(v3.Vec{X: l.X, Y: l.Y, Z: l.Z - s.zc})
}

func (s *planeSDF3) BoundingBox() sdf.Box3 {
	return s.bb
}

// signedArea is the shoelace area, positive for counter-clockwise rings.
func signedArea(pts []r2.Vec) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// prismFaces returns the boundary of a straight extrusion: the side walls
// in ring order, then the bottom and top caps.
func prismFaces(p kernel.Profile, height float64) []kernel.Face {
	pts := append([]r2.Vec(nil), p.Points...)
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	lo, hi := math.Min(0, height), math.Max(0, height)
	pl := p.Plane

	var faces []kernel.Face
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		d := r2.Sub(b, a)
		l := r2.Norm(d)
		if l < 1e-12 {
			continue
		}
		n := r3.Add(r3.Scale(d.Y/l, pl.XDir), r3.Scale(-d.X/l, pl.YDir))
		faces = append(faces, kernel.Face{
			Outer: []r3.Vec{
				pl.ToWorld(a.X, a.Y, lo),
				pl.ToWorld(b.X, b.Y, lo),
				pl.ToWorld(b.X, b.Y, hi),
				pl.ToWorld(a.X, a.Y, hi),
			},
			Normal: n,
		})
	}

	bottom := make([]r3.Vec, len(pts))
	top := make([]r3.Vec, len(pts))
	for i, q := range pts {
		bottom[len(pts)-1-i] = pl.ToWorld(q.X, q.Y, lo)
		top[i] = pl.ToWorld(q.X, q.Y, hi)
	}
	faces = append(faces,
		kernel.Face{Outer: bottom, Normal: r3.Scale(-1, pl.Normal)},
		kernel.Face{Outer: top, Normal: pl.Normal},
	)
	for i := range faces {
		faces[i].Index = i
	}
	return faces
}

func translateFaces(faces []kernel.Face, x, y, z float64) []kernel.Face {
	shift := r3.Vec{X: x, Y: y, Z: z}
	out := make([]kernel.Face, len(faces))
	for i, f := range faces {
		ring := make([]r3.Vec, len(f.Outer))
		for j, p := range f.Outer {
			ring[j] = r3.Add(p, shift)
		}
		out[i] = kernel.Face{Index: f.Index, Outer: ring, Normal: f.Normal}
	}
	return out
}
