package texture

import (
	"math"
	"slices"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/logging"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	perpendicularTol = 0.01 // |n·axis| below which a face wraps around the axis
	minBandSize      = 3
	angleSeamTol     = 1e-9
)

var worldAxes = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// ResolveContinuity assigns each face a phase shift along its frame's v
// axis so that a pattern with the given column pitch runs continuously
// around a band of faces.
//
// For each world axis in X, Y, Z order, the faces not yet assigned whose
// normals are perpendicular to the axis form a band. Bands of fewer than
// three faces are left alone. A band is walked in angular order around the
// axis and each face gets the running width of the faces before it, modulo
// pitch. Faces missing from the result get no shift.
func ResolveContinuity(faces []kernel.Face, pitch float64) map[int]float64 {
	offsets := make(map[int]float64)
	if pitch <= 0 || len(faces) < minBandSize {
		return offsets
	}
	remaining := slices.Clone(faces)
	for _, axis := range worldAxes {
		band, rest := lo.FilterReject(remaining, func(f kernel.Face, _ int) bool {
			return math.Abs(r3.Dot(f.Normal, axis)) < perpendicularTol
		})
		if len(band) < minBandSize {
			continue
		}
		walkBand(band, axis, pitch, offsets)
		remaining = rest
	}
	logging.Logger().Debug("continuity resolved", "faces", len(faces), "assigned", len(offsets))
	return offsets
}

func walkBand(band []kernel.Face, axis r3.Vec, pitch float64, offsets map[int]float64) {
	ref1, ok := bandReference(axis)
	if !ok {
		return
	}
	ref2 := r3.Unit(r3.Cross(axis, ref1))

	type entry struct {
		face  kernel.Face
		angle float64
	}
	entries := lo.Map(band, func(f kernel.Face, _ int) entry {
		c := f.Center()
		a := math.Atan2(r3.Dot(c, ref2), r3.Dot(c, ref1))
		// Keep the seam at +pi regardless of the sign of a zero.
		if a < -math.Pi+angleSeamTol {
			a += 2 * math.Pi
		}
		return entry{face: f, angle: a}
	})
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.angle < b.angle:
			return -1
		case a.angle > b.angle:
			return 1
		}
		return 0
	})

	var cum float64
	for _, e := range entries {
		offsets[e.face.Index] = math.Mod(cum, pitch)
		cum += tangentWidth(e.face, axis)
	}
}

// bandReference returns unit(axis x c) for the first world axis c not
// parallel to axis.
func bandReference(axis r3.Vec) (r3.Vec, bool) {
	for _, a := range worldAxes {
		c := r3.Cross(axis, a)
		if r3.Norm(c) > 1e-6 {
			return r3.Unit(c), true
		}
	}
	return r3.Vec{}, false
}

// tangentWidth is the extent of the face's ring along the band direction
// axis x n. Faces with no usable tangent contribute nothing.
func tangentWidth(f kernel.Face, axis r3.Vec) float64 {
	t := r3.Cross(axis, f.Normal)
	if r3.Norm(t) < 1e-9 || len(f.Outer) == 0 {
		return 0
	}
	t = r3.Unit(t)
	proj := lo.Map(f.Outer, func(p r3.Vec, _ int) float64 { return r3.Dot(p, t) })
	return lo.Max(proj) - lo.Min(proj)
}
