// Package texture stamps procedural surface patterns onto faces of a solid.
//
// A Pattern lays out cells in a per-face frame, extrudes them into raw
// primitives, and the Texturer clips those to the face boundary, merges
// them and fuses the result into (additive) or cuts it out of
// (subtractive) the target solid.
package texture

import (
	"fmt"

	"github.com/chazu/relief/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects how a texture is combined with its solid.
type Mode int

const (
	Additive Mode = iota
	Subtractive
)

func (m Mode) String() string {
	switch m {
	case Additive:
		return "additive"
	case Subtractive:
		return "subtractive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// sign is +1 for additive and -1 for subtractive textures.
func (m Mode) sign() float64 {
	if m == Subtractive {
		return -1
	}
	return 1
}

// Pattern is one of the texture variants defined in this package:
// Brick, Honeycomb, HexGrid, Linear and RooftopTile.
type Pattern interface {
	// Kind names the variant.
	Kind() string
	// Validate reports the first invalid field as a *ConfigurationError.
	Validate() error
	// ColumnPitch is the repeat distance along the frame's v axis used for
	// cross-face continuity, or zero when the pattern has no column phase.
	ColumnPitch() float64

	generate(j *faceJob) (*Stamp, error)
}

// Span is an interval along a face normal, measured from the face plane.
type Span struct {
	Min, Max float64
}

// mirrored returns the span reflected through the face plane.
func (s Span) mirrored() Span {
	return Span{Min: -s.Max, Max: -s.Min}
}

// Stamp is the raw output of a pattern on one face.
type Stamp struct {
	Primitives []kernel.Solid
	Span       Span
	// Extras are fused in after clipping, such as edge walls that already
	// follow the face boundary.
	Extras []kernel.Solid
	// Footprints holds the outline of every extruded profile, projected
	// into the face frame.
	Footprints [][]r2.Vec
}

// Empty reports whether the stamp produced no geometry.
func (s *Stamp) Empty() bool {
	return len(s.Primitives) == 0 && len(s.Extras) == 0
}

// FaceLayout is the 2-D plan of a pattern on one face, in frame
// coordinates.
type FaceLayout struct {
	Face     int
	Frame    kernel.Plane
	Boundary []r2.Vec
	Cells    [][]r2.Vec
	Span     Span
}

// faceJob carries everything a pattern needs to texture one face.
type faceJob struct {
	k     kernel.Kernel
	face  kernel.Face
	frame kernel.Plane
	mode  Mode
	phase float64 // continuity shift along v
	diag  float64 // coverage bound from layout.Diagonal

	stamp Stamp
}

// span returns the clip span for a pattern reaching from the face plane
// out to height, mirrored for subtractive textures.
func (j *faceJob) span(lo, hi float64) Span {
	s := Span{Min: lo, Max: hi}
	if j.mode == Subtractive {
		return s.mirrored()
	}
	return s
}

// prism extrudes p by height along its plane normal, records its footprint
// and appends it to the stamp's primitives.
func (j *faceJob) prism(stage string, p kernel.Profile, height float64) error {
	s, err := j.extrude(stage, p, height)
	if err != nil {
		return err
	}
	j.stamp.Primitives = append(j.stamp.Primitives, s)
	return nil
}

func (j *faceJob) extrude(stage string, p kernel.Profile, height float64) (kernel.Solid, error) {
	s, err := j.k.Extrude(p, height)
	if err != nil {
		return nil, &GeometryError{Face: j.face.Index, Stage: stage, Err: err}
	}
	j.footprint(p)
	return s, nil
}

func (j *faceJob) footprint(p kernel.Profile) {
	ring := make([]r2.Vec, len(p.Points))
	for i, pt := range p.Points {
		ring[i] = j.frame.Project(p.Plane.ToWorld(pt.X, pt.Y, 0))
	}
	j.stamp.Footprints = append(j.stamp.Footprints, ring)
}

// boundary returns the face's outer ring as a profile in the job frame.
func (j *faceJob) boundary() kernel.Profile {
	pts := make([]r2.Vec, len(j.face.Outer))
	for i, p := range j.face.Outer {
		pts[i] = j.frame.Project(p)
	}
	return kernel.Profile{Plane: j.frame, Points: pts}
}

// fingerprint identifies a face's geometry in cache keys.
type fingerprint struct {
	Normal r3.Vec
	Center r3.Vec
	Area   float64
}

func fingerprintOf(f kernel.Face) fingerprint {
	return fingerprint{Normal: f.Normal, Center: f.Center(), Area: f.Area()}
}
