package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/relief/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < eps
}

func TestBuildAxes(t *testing.T) {
	tests := []struct {
		name   string
		normal r3.Vec
		wantU  r3.Vec
	}{
		// n x X is zero for n = X, so Y is used.
		{"+X", r3.Vec{X: 1}, r3.Vec{Z: 1}},
		{"+Y", r3.Vec{Y: 1}, r3.Vec{Z: -1}},
		{"+Z", r3.Vec{Z: 1}, r3.Vec{Y: 1}},
		{"-Z", r3.Vec{Z: -1}, r3.Vec{Y: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, err := Build(r3.Vec{}, tt.normal, 0)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !near(pl.XDir, tt.wantU) {
				t.Errorf("u = %v, want %v", pl.XDir, tt.wantU)
			}
			if !near(pl.YDir, r3.Cross(pl.Normal, pl.XDir)) {
				t.Errorf("v = %v, want n x u", pl.YDir)
			}
		})
	}
}

func TestBuildOrthonormal(t *testing.T) {
	normals := []r3.Vec{
		{X: 1, Y: 1, Z: 1},
		{X: 0.3, Y: -0.2, Z: 0.9},
		{X: -1, Y: 0, Z: 0.001},
	}
	for _, n := range normals {
		for _, deg := range []float64{0, 30, -45, 90} {
			pl, err := Build(r3.Vec{X: 1}, n, deg)
			if err != nil {
				t.Fatalf("Build(%v): %v", n, err)
			}
			for _, d := range []float64{
				r3.Dot(pl.XDir, pl.YDir),
				r3.Dot(pl.XDir, pl.Normal),
				r3.Dot(pl.YDir, pl.Normal),
			} {
				if math.Abs(d) > eps {
					t.Errorf("n=%v deg=%v: axes not orthogonal (%g)", n, deg, d)
				}
			}
			for _, l := range []float64{r3.Norm(pl.XDir), r3.Norm(pl.YDir), r3.Norm(pl.Normal)} {
				if math.Abs(l-1) > eps {
					t.Errorf("n=%v deg=%v: axis length %g", n, deg, l)
				}
			}
		}
	}
}

func TestBuildRotation(t *testing.T) {
	pl, err := Build(r3.Vec{}, r3.Vec{Z: 1}, 90)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Unrotated u = +Y, v = -X; a quarter turn moves u onto v.
	if !near(pl.XDir, r3.Vec{X: -1}) || !near(pl.YDir, r3.Vec{Y: -1}) {
		t.Errorf("rotated axes u=%v v=%v", pl.XDir, pl.YDir)
	}
}

func TestBuildDegenerate(t *testing.T) {
	if _, err := Build(r3.Vec{}, r3.Vec{}, 0); !errors.Is(err, ErrDegenerateNormal) {
		t.Errorf("got %v, want ErrDegenerateNormal", err)
	}
}

func TestForFaceAndProject(t *testing.T) {
	f := kernel.Face{
		Outer: []r3.Vec{
			{X: -20, Y: -10, Z: 5},
			{X: 20, Y: -10, Z: 5},
			{X: 20, Y: 10, Z: 5},
			{X: -20, Y: 10, Z: 5},
		},
		Normal: r3.Vec{Z: 1},
	}
	pl, err := ForFace(f, 0)
	if err != nil {
		t.Fatalf("ForFace: %v", err)
	}
	if !near(pl.Origin, r3.Vec{Z: 5}) {
		t.Errorf("origin = %v, want face centre", pl.Origin)
	}
	ext := Extent(f, pl)
	// u = +Y, v = -X
	if math.Abs(ext.Max.X-10) > eps || math.Abs(ext.Max.Y-20) > eps || math.Abs(ext.Min.Y+20) > eps {
		t.Errorf("extent = %+v", ext)
	}
	for _, p := range Project(f, pl) {
		if math.Abs(math.Abs(p.X)-10) > eps || math.Abs(math.Abs(p.Y)-20) > eps {
			t.Errorf("projected point %v", p)
		}
	}
}
