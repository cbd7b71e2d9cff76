package texture

import (
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
)

// DefaultLinearAngle is the ridge angle used by the configuration language
// when none is given.
const DefaultLinearAngle = 45.0

// Linear lays parallel ridges of width Thickness every Spacing, turned
// AngleDeg about the face normal.
type Linear struct {
	Thickness float64 `codec:"t"`
	Spacing   float64 `codec:"s"`
	AngleDeg  float64 `codec:"a"`
	Height    float64 `codec:"h"`
}

func (l Linear) Kind() string { return "linear" }

func (l Linear) Validate() error {
	return positive(
		namedValue{"thickness", l.Thickness},
		namedValue{"spacing", l.Spacing},
		namedValue{"height", l.Height},
	)
}

func (l Linear) ColumnPitch() float64 { return 0 }

func (l Linear) generate(j *faceJob) (*Stamp, error) {
	fr := j.frame.RotatedAboutNormal(l.AngleDeg)
	length := 2 * j.diag
	count := 2 * (int(math.Ceil(j.diag/l.Spacing)) + 1)
	h := j.mode.sign() * l.Height
	for _, y := range layout.Centered(count, l.Spacing) {
		if err := j.prism("ridge", kernel.Rect(fr, 0, y, length, l.Thickness), h); err != nil {
			return nil, err
		}
	}
	j.stamp.Span = j.span(0, 2*l.Height)
	return &j.stamp, nil
}
