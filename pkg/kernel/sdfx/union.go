package sdfx

import (
	"math"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

// indexedUnion evaluates the union of many solids through an R-tree over
// their bounding boxes. Texture stamps are unions of hundreds of small,
// mostly disjoint cells, so a point only ever needs the few nearby ones.
type indexedUnion struct {
	parts []*sdfxSolid
	bb    sdf.Box3

	once sync.Once
	tree *rtreego.Rtree
}

// unionEntry adapts a union operand to rtreego.Spatial.
type unionEntry struct {
	s    sdf.SDF3
	rect rtreego.Rect
}

func (e *unionEntry) Bounds() rtreego.Rect {
	return e.rect
}

func newIndexedUnion(parts []*sdfxSolid) *indexedUnion {
	u := &indexedUnion{parts: parts}
	for i, p := range parts {
		bb := p.s.BoundingBox()
		if i == 0 {
			u.bb = bb
			continue
		}
		u.bb = sdf.Box3{
			Min: v3.Vec{X: math.Min(u.bb.Min.X, bb.Min.X), Y: math.Min(u.bb.Min.Y, bb.Min.Y), Z: math.Min(u.bb.Min.Z, bb.Min.Z)},
			Max: v3.Vec{X: math.Max(u.bb.Max.X, bb.Max.X), Y: math.Max(u.bb.Max.Y, bb.Max.Y), Z: math.Max(u.bb.Max.Z, bb.Max.Z)},
		}
	}
	return u
}

// index builds the tree on first use. Intermediate unions produced while
// merging are never evaluated, so they never pay for one.
func (u *indexedUnion) index() *rtreego.Rtree {
	u.once.Do(func() {
		objs := make([]rtreego.Spatial, 0, len(u.parts))
		for _, p := range u.parts {
			bb := p.s.BoundingBox()
			rect, err := rtreego.NewRectFromPoints(
				rtreego.Point{bb.Min.X, bb.Min.Y, bb.Min.Z},
				rtreego.Point{bb.Max.X, bb.Max.Y, bb.Max.Z},
			)
			if err != nil {
				continue
			}
			objs = append(objs, &unionEntry{s: p.s, rect: rect})
		}
		u.tree = rtreego.NewTree(3, 4, 16, objs...)
	})
	return u.tree
}

// Evaluate returns the exact union distance. The nearest box gives an upper
// bound d; any operand closer than d has a box within d of the point, so
// only those need evaluating.
func (u *indexedUnion) Evaluate(p v3.Vec) float64 {
	tree := u.index()
	pt := rtreego.Point{p.X, p.Y, p.Z}
	nn := tree.NearestNeighbor(pt)
	if nn == nil {
		return math.Inf(1)
	}
	best := nn.(*unionEntry).s.Evaluate(p)
	for _, obj := range tree.SearchIntersect(pt.ToRect(math.Max(best, 1e-9))) {
		if d := obj.(*unionEntry).s.Evaluate(p); d < best {
			best = d
		}
	}
	return best
}

func (u *indexedUnion) BoundingBox() sdf.Box3 {
	return u.bb
}
