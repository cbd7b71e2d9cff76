package sdfx

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/ugorji/go/codec"
)

// ErrBadRecipe is returned by Decode for data that does not describe a solid.
var ErrBadRecipe = errors.New("sdfx: malformed solid recipe")

// recipeVersion is bumped whenever the encoded layout changes, so stale
// cache entries decode as errors instead of wrong geometry.
const recipeVersion = 1

const (
	opBox          = "box"
	opPrism        = "prism"
	opUnion        = "union"
	opDifference   = "difference"
	opIntersection = "intersection"
	opTranslate    = "translate"
)

// recipe is the serializable construction history of a solid. Distance
// fields are closures over their operands, so solids are persisted as the
// operations that rebuild them.
type recipe struct {
	Op       string          `codec:"op"`
	Size     [3]float64      `codec:"size,omitempty"`
	Profile  *kernel.Profile `codec:"profile,omitempty"`
	Height   float64         `codec:"h,omitempty"`
	Shift    [3]float64      `codec:"shift,omitempty"`
	Children []*recipe       `codec:"children,omitempty"`
}

type envelope struct {
	Version int     `codec:"v"`
	Root    *recipe `codec:"root"`
}

var cborHandle = func() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.Canonical = true
	return h
}()

// Encode writes the solid's recipe as CBOR.
func (k *SdfxKernel) Encode(w io.Writer, s kernel.Solid) error {
	src, err := unwrap(s)
	if err != nil {
		return err
	}
	if err := codec.NewEncoder(w, cborHandle).Encode(envelope{Version: recipeVersion, Root: src.r}); err != nil {
		return fmt.Errorf("sdfx: encoding solid: %w", err)
	}
	return nil
}

// Decode reads a CBOR recipe and rebuilds the solid.
func (k *SdfxKernel) Decode(r io.Reader) (kernel.Solid, error) {
	var env envelope
	if err := codec.NewDecoder(r, cborHandle).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecipe, err)
	}
	if env.Version != recipeVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrBadRecipe, env.Version, recipeVersion)
	}
	if env.Root == nil {
		return nil, fmt.Errorf("%w: empty", ErrBadRecipe)
	}
	return k.build(env.Root)
}

func (k *SdfxKernel) build(r *recipe) (kernel.Solid, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil node", ErrBadRecipe)
	}
	switch r.Op {
	case opBox:
		if r.Size[0] <= 0 || r.Size[1] <= 0 || r.Size[2] <= 0 {
			return nil, fmt.Errorf("%w: box size %v", ErrBadRecipe, r.Size)
		}
		return k.Box(r.Size[0], r.Size[1], r.Size[2]), nil
	case opPrism:
		if r.Profile == nil {
			return nil, fmt.Errorf("%w: prism without profile", ErrBadRecipe)
		}
		return k.Extrude(*r.Profile, r.Height)
	case opTranslate:
		if len(r.Children) != 1 {
			return nil, fmt.Errorf("%w: translate needs one operand", ErrBadRecipe)
		}
		s, err := k.build(r.Children[0])
		if err != nil {
			return nil, err
		}
		return k.Translate(s, r.Shift[0], r.Shift[1], r.Shift[2]), nil
	case opUnion:
		if len(r.Children) == 0 {
			return nil, fmt.Errorf("%w: empty union", ErrBadRecipe)
		}
		parts := make([]*sdfxSolid, 0, len(r.Children))
		for _, c := range r.Children {
			s, err := k.build(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s.(*sdfxSolid).operands()...)
		}
		return k.union(parts), nil
	case opDifference, opIntersection:
		if len(r.Children) != 2 {
			return nil, fmt.Errorf("%w: %s needs two operands", ErrBadRecipe, r.Op)
		}
		a, err := k.build(r.Children[0])
		if err != nil {
			return nil, err
		}
		b, err := k.build(r.Children[1])
		if err != nil {
			return nil, err
		}
		if r.Op == opDifference {
			return k.Difference(a, b)
		}
		return k.Intersection(a, b)
	}
	return nil, fmt.Errorf("%w: unknown op %q", ErrBadRecipe, r.Op)
}
