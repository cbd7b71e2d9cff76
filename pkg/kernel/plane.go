package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is a right-handed local coordinate frame: an origin, two in-plane
// axes and the normal. XDir, YDir and Normal are expected to be orthonormal.
type Plane struct {
	Origin r3.Vec `codec:"o"`
	XDir   r3.Vec `codec:"x"`
	YDir   r3.Vec `codec:"y"`
	Normal r3.Vec `codec:"n"`
}

// XYPlane returns the world XY plane at the origin.
func XYPlane() Plane {
	return Plane{
		XDir:   r3.Vec{X: 1},
		YDir:   r3.Vec{Y: 1},
		Normal: r3.Vec{Z: 1},
	}
}

// ToWorld maps local coordinates to a world point.
func (p Plane) ToWorld(x, y, z float64) r3.Vec {
	w := p.Origin
	w = r3.Add(w, r3.Scale(x, p.XDir))
	w = r3.Add(w, r3.Scale(y, p.YDir))
	return r3.Add(w, r3.Scale(z, p.Normal))
}

// ToLocal maps a world point to local coordinates.
func (p Plane) ToLocal(w r3.Vec) r3.Vec {
	d := r3.Sub(w, p.Origin)
	return r3.Vec{X: r3.Dot(d, p.XDir), Y: r3.Dot(d, p.YDir), Z: r3.Dot(d, p.Normal)}
}

// Project drops a world point onto the plane's 2-D coordinates.
func (p Plane) Project(w r3.Vec) r2.Vec {
	l := p.ToLocal(w)
	return r2.Vec{X: l.X, Y: l.Y}
}

// Translated returns the plane moved by a local offset.
func (p Plane) Translated(dx, dy, dz float64) Plane {
	p.Origin = p.ToWorld(dx, dy, dz)
	return p
}

// Offset returns the plane moved along its normal.
func (p Plane) Offset(dz float64) Plane {
	return p.Translated(0, 0, dz)
}

// RotatedAboutY rotates the frame about its own Y axis (right-hand rule).
func (p Plane) RotatedAboutY(deg float64) Plane {
	return p.rotated(p.YDir, deg)
}

// RotatedAboutNormal rotates the in-plane axes about the normal.
func (p Plane) RotatedAboutNormal(deg float64) Plane {
	return p.rotated(p.Normal, deg)
}

func (p Plane) rotated(axis r3.Vec, deg float64) Plane {
	if deg == 0 {
		return p
	}
	k := r3.Unit(axis)
	theta := deg * math.Pi / 180
	p.XDir = rotate(p.XDir, k, theta)
	p.YDir = rotate(p.YDir, k, theta)
	p.Normal = rotate(p.Normal, k, theta)
	return p
}

// rotate applies Rodrigues' rotation of v about the unit axis k.
func rotate(v, k r3.Vec, theta float64) r3.Vec {
	c, s := math.Cos(theta), math.Sin(theta)
	out := r3.Scale(c, v)
	out = r3.Add(out, r3.Scale(s, r3.Cross(k, v)))
	return r3.Add(out, r3.Scale(r3.Dot(k, v)*(1-c), k))
}

// Profile is a closed planar polygon placed in a Plane. The polygon is
// closed implicitly. A non-zero Offset grows (positive) or shrinks
// (negative) the outline by that distance before extrusion.
type Profile struct {
	Plane  Plane    `codec:"plane"`
	Points []r2.Vec `codec:"pts"`
	Offset float64  `codec:"off,omitempty"`
}

// Rect returns a w x h rectangle profile centered at (cx, cy).
func Rect(pl Plane, cx, cy, w, h float64) Profile {
	hw, hh := w/2, h/2
	return Profile{
		Plane: pl,
		Points: []r2.Vec{
			{X: cx - hw, Y: cy - hh},
			{X: cx + hw, Y: cy - hh},
			{X: cx + hw, Y: cy + hh},
			{X: cx - hw, Y: cy + hh},
		},
	}
}
