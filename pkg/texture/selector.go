package texture

import (
	"math"
	"strconv"
	"strings"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	selectorTol        = 1e-4
	DefaultAngleTolDeg = 5.0
)

// Select filters faces with a selector string:
//
//	"" or "*"      every face
//	">X" "<Z"      faces whose centre is furthest along / against an axis
//	"|Y"           faces whose normal is parallel to an axis
//	"#Z"           faces whose normal is perpendicular to an axis
//	"+X" "-Y"      faces whose normal points along a signed axis
//	"@45" "@30~2"  faces at an angle from the XY plane, see FacesAtAngle
//	"not <sel>"    every face the inner selector rejects
//
// Malformed selectors return a *ConfigurationError.
func Select(faces []kernel.Face, sel string) ([]kernel.Face, error) {
	sel = strings.TrimSpace(sel)
	if rest, ok := strings.CutPrefix(sel, "not "); ok {
		picked, err := Select(faces, rest)
		if err != nil {
			return nil, err
		}
		keep := lo.SliceToMap(picked, func(f kernel.Face) (int, bool) { return f.Index, true })
		return lo.Reject(faces, func(f kernel.Face, _ int) bool { return keep[f.Index] }), nil
	}
	if sel == "" || sel == "*" {
		return faces, nil
	}

	if rest, ok := strings.CutPrefix(sel, "@"); ok {
		deg, tol, err := parseAngle(rest)
		if err != nil {
			return nil, err
		}
		return FacesAtAngle(faces, deg, tol), nil
	}

	if len(sel) != 2 {
		return nil, invalid("selector", "%q is not a recognised selector", sel)
	}
	axis, ok := axisOf(sel[1])
	if !ok {
		return nil, invalid("selector", "unknown axis %q in %q", sel[1:], sel)
	}

	switch sel[0] {
	case '>':
		return extreme(faces, axis), nil
	case '<':
		return extreme(faces, r3.Scale(-1, axis)), nil
	case '|':
		return lo.Filter(faces, func(f kernel.Face, _ int) bool {
			return math.Abs(r3.Dot(f.Normal, axis)) > 1-selectorTol
		}), nil
	case '#':
		return lo.Filter(faces, func(f kernel.Face, _ int) bool {
			return math.Abs(r3.Dot(f.Normal, axis)) < selectorTol
		}), nil
	case '+':
		return lo.Filter(faces, func(f kernel.Face, _ int) bool {
			return r3.Dot(f.Normal, axis) > 1-selectorTol
		}), nil
	case '-':
		return lo.Filter(faces, func(f kernel.Face, _ int) bool {
			return r3.Dot(f.Normal, axis) < -1+selectorTol
		}), nil
	}
	return nil, invalid("selector", "unknown operator %q in %q", sel[:1], sel)
}

func axisOf(b byte) (r3.Vec, bool) {
	switch b {
	case 'X', 'x':
		return r3.Vec{X: 1}, true
	case 'Y', 'y':
		return r3.Vec{Y: 1}, true
	case 'Z', 'z':
		return r3.Vec{Z: 1}, true
	}
	return r3.Vec{}, false
}

// extreme returns the faces whose centre lies furthest along dir.
func extreme(faces []kernel.Face, dir r3.Vec) []kernel.Face {
	if len(faces) == 0 {
		return nil
	}
	along := lo.Map(faces, func(f kernel.Face, _ int) float64 { return r3.Dot(f.Center(), dir) })
	best := lo.Max(along)
	return lo.Filter(faces, func(_ kernel.Face, i int) bool { return along[i] >= best-selectorTol })
}

func parseAngle(s string) (deg, tol float64, err error) {
	degStr, tolStr, hasTol := strings.Cut(s, "~")
	deg, err = strconv.ParseFloat(degStr, 64)
	if err != nil {
		return 0, 0, invalid("selector", "bad angle %q", degStr)
	}
	tol = DefaultAngleTolDeg
	if hasTol {
		tol, err = strconv.ParseFloat(tolStr, 64)
		if err != nil || tol < 0 {
			return 0, 0, invalid("selector", "bad angle tolerance %q", tolStr)
		}
	}
	return deg, tol, nil
}

// FacesAtAngle selects faces whose angle from the XY plane, computed as
// 90 - acos(|n.z|) in degrees, is within tolDeg of deg. Faces with a
// vertical normal measure 90, faces with a horizontal normal measure 0.
func FacesAtAngle(faces []kernel.Face, deg, tolDeg float64) []kernel.Face {
	return lo.Filter(faces, func(f kernel.Face, _ int) bool {
		nz := math.Min(math.Abs(r3.Unit(f.Normal).Z), 1)
		angle := 90 - math.Acos(nz)*180/math.Pi
		return math.Abs(angle-deg) <= tolDeg
	})
}
