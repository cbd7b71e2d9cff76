// Package kernel defines the abstract geometry kernel interface.
// The texture engine reaches solid modeling only through Kernel, so the
// backend (sdfx today) can be swapped without touching the rest of the system.
package kernel

import (
	"errors"
	"io"
)

var (
	// ErrNoFaces is returned by Faces for solids whose boundary is not
	// known analytically, such as the result of a boolean operation.
	ErrNoFaces = errors.New("kernel: face query unsupported for this solid")

	// ErrDegenerateProfile is returned by Extrude for profiles with fewer
	// than three points, zero area, or a zero extrusion height.
	ErrDegenerateProfile = errors.New("kernel: degenerate profile")
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
//
// Solids are immutable values: every operation returns a new Solid and never
// modifies its operands, so distinct solids may be combined from different
// goroutines at the same time.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid // centered at the origin
	Extrude(p Profile, height float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid

	// Queries
	Faces(s Solid) ([]Face, error)
	Volume(s Solid) float64

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)

	// Interchange format used for cache persistence.
	Encode(w io.Writer, s Solid) error
	Decode(r io.Reader) (Solid, error)
}
