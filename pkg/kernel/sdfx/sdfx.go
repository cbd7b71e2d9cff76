// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// ErrForeignSolid is returned when a solid built by another kernel is passed in.
var ErrForeignSolid = errors.New("sdfx: solid was not created by this kernel")

const (
	// defaultMeshCells controls marching cubes tessellation resolution.
	defaultMeshCells = 200

	// defaultVolumeCells is the number of samples along the longest
	// bounding box edge when no explicit volume step is configured.
	defaultVolumeCells = 128
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. The recipe records
// how the solid was built so it can be serialized; faces are kept for
// primitives whose boundary is known.
type sdfxSolid struct {
	s     sdf.SDF3
	r     *recipe
	faces []kernel.Face
	parts []*sdfxSolid // flattened operands of a union
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells  int
	volumeStep float64
	indexAbove int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution used by ToMesh.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// WithVolumeStep sets the sampling step used by Volume. Sample cells start
// at the bounding box minimum, so faces lying on multiples of the step are
// measured exactly.
func WithVolumeStep(step float64) Option {
	return func(k *SdfxKernel) {
		if step > 0 {
			k.volumeStep = step
		}
	}
}

// WithIndexThreshold sets the operand count above which unions are
// evaluated through an R-tree instead of a linear scan.
func WithIndexThreshold(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.indexAbove = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{
		meshCells:  defaultMeshCells,
		indexAbove: 8,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the sdfx solid from a kernel.Solid.
func unwrap(s kernel.Solid) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignSolid, s)
	}
	return ss, nil
}

func mustUnwrap(s kernel.Solid) *sdfxSolid {
	ss, err := unwrap(s)
	if err != nil {
		panic(err)
	}
	return ss
}

// Box creates a box with the given dimensions, centred at the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	base := kernel.XYPlane().Offset(-z / 2)
	return &sdfxSolid{
		s:     s,
		r:     &recipe{Op: opBox, Size: [3]float64{x, y, z}},
		faces: prismFaces(kernel.Rect(base, 0, 0, x, y), z),
	}
}

// Extrude sweeps a planar profile along its plane normal by a signed height.
// The solid spans local z in [0, height] (or [height, 0] when negative).
func (k *SdfxKernel) Extrude(p kernel.Profile, height float64) (kernel.Solid, error) {
	if len(p.Points) < 3 || math.Abs(height) < 1e-12 || math.Abs(signedArea(p.Points)) < 1e-12 {
		return nil, kernel.ErrDegenerateProfile
	}
	pts := make([]v2.Vec, len(p.Points))
	for i, q := range p.Points {
		pts[i] = v2.Vec{X: q.X, Y: q.Y}
	}
	s2, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kernel.ErrDegenerateProfile, err)
	}
	if p.Offset != 0 {
		s2 = sdf.Offset2D(s2, p.Offset)
	}
	s3 := newPlaneSDF3(sdf.Extrude3D(s2, math.Abs(height)), p.Plane, height/2)

	out := &sdfxSolid{
		s: s3,
		r: &recipe{Op: opPrism, Profile: &p, Height: height},
	}
	if p.Offset == 0 {
		out.faces = prismFaces(p, height)
	}
	return out, nil
}

// Union returns the union of two solids. Nested unions are flattened so the
// result can be indexed as one set of operands.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	parts := append(append([]*sdfxSolid(nil), sa.operands()...), sb.operands()...)
	return k.union(parts), nil
}

func (s *sdfxSolid) operands() []*sdfxSolid {
	if s.parts != nil {
		return s.parts
	}
	return []*sdfxSolid{s}
}

func (k *SdfxKernel) union(parts []*sdfxSolid) *sdfxSolid {
	children := make([]*recipe, len(parts))
	for i, p := range parts {
		children[i] = p.r
	}
	var s sdf.SDF3
	if len(parts) > k.indexAbove {
		s = newIndexedUnion(parts)
	} else {
		sdfs := make([]sdf.SDF3, len(parts))
		for i, p := range parts {
			sdfs[i] = p.s
		}
		s = sdf.Union3D(sdfs...)
	}
	return &sdfxSolid{
		s:     s,
		r:     &recipe{Op: opUnion, Children: children},
		parts: parts,
	}
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return &sdfxSolid{
		s: bounded(sdf.Difference3D(sa.s, sb.s), sa.s.BoundingBox()),
		r: &recipe{Op: opDifference, Children: []*recipe{sa.r, sb.r}},
	}, nil
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, err
	}
	return &sdfxSolid{
		s: bounded(sdf.Intersect3D(sa.s, sb.s), overlap(sa.s.BoundingBox(), sb.s.BoundingBox())),
		r: &recipe{Op: opIntersection, Children: []*recipe{sa.r, sb.r}},
	}, nil
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	src := mustUnwrap(s)
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	out := &sdfxSolid{
		s: sdf.Transform3D(src.s, m),
		r: &recipe{Op: opTranslate, Shift: [3]float64{x, y, z}, Children: []*recipe{src.r}},
	}
	if src.faces != nil {
		out.faces = translateFaces(src.faces, x, y, z)
	}
	return out
}

// Faces returns the planar faces of primitive solids. Boolean results
// report kernel.ErrNoFaces.
func (k *SdfxKernel) Faces(s kernel.Solid) ([]kernel.Face, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if ss.faces == nil {
		return nil, kernel.ErrNoFaces
	}
	out := make([]kernel.Face, len(ss.faces))
	copy(out, ss.faces)
	return out, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	src, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(src.s, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// boundedSDF3 overrides the bounding box of a wrapped SDF.
type boundedSDF3 struct {
	sdf.SDF3
	bb sdf.Box3
}

func bounded(s sdf.SDF3, bb sdf.Box3) sdf.SDF3 {
	return &boundedSDF3{SDF3: s, bb: bb}
}

func (b *boundedSDF3) BoundingBox() sdf.Box3 {
	return b.bb
}

// overlap returns the intersection of two boxes. Disjoint boxes collapse to
// an empty box at the first box's minimum corner.
func overlap(a, b sdf.Box3) sdf.Box3 {
	out := sdf.Box3{
		Min: v3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
	if out.Min.X > out.Max.X || out.Min.Y > out.Max.Y || out.Min.Z > out.Max.Z {
		return sdf.Box3{Min: a.Min, Max: a.Min}
	}
	return out
}
