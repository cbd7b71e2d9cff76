package texture

import (
	"github.com/chazu/relief/pkg/frame"
	"github.com/chazu/relief/pkg/kernel"
)

// Clip trims s to the prism over the face's outer ring spanning span along
// the frame normal. Clipping a clipped solid again changes nothing.
func Clip(k kernel.Kernel, face kernel.Face, fr kernel.Plane, s kernel.Solid, span Span) (kernel.Solid, error) {
	if span.Max <= span.Min {
		return nil, &GeometryError{Face: face.Index, Stage: "clip", Err: kernel.ErrDegenerateProfile}
	}
	ring := kernel.Profile{Plane: fr.Offset(span.Min), Points: frame.Project(face, fr)}
	prism, err := k.Extrude(ring, span.Max-span.Min)
	if err != nil {
		return nil, &GeometryError{Face: face.Index, Stage: "clip prism", Err: err}
	}
	out, err := k.Intersection(s, prism)
	if err != nil {
		return nil, &GeometryError{Face: face.Index, Stage: "clip", Err: err}
	}
	return out, nil
}
