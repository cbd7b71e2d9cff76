// Package tessellate walks a program graph and produces triangle meshes
// using a geometry kernel. Textures are applied on the way, so each
// top-level solid, textured or not, becomes one mesh.
package tessellate

import (
	"fmt"

	"github.com/chazu/relief/pkg/graph"
	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/logging"
	"github.com/chazu/relief/pkg/texture"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"
)

// transformStack accumulates translations during graph traversal.
type transformStack struct {
	translations []graph.Vec3
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(v graph.Vec3) {
	ts.translations = append(ts.translations, v)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
}

// accumulated returns the sum of all translations on the stack.
func (ts *transformStack) accumulated() graph.Vec3 {
	var sum graph.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// Option configures a tessellation run.
type Option func(*runner)

// WithTexturer applies textures through tx instead of a fresh Texturer,
// so its cache and merge settings are used.
func WithTexturer(tx *texture.Texturer) Option {
	return func(r *runner) {
		r.tx = tx
	}
}

type runner struct {
	g  *graph.DesignGraph
	k  kernel.Kernel
	tx *texture.Texturer
}

func newRunner(g *graph.DesignGraph, k kernel.Kernel, opts []Option) *runner {
	r := &runner{g: g, k: k}
	for _, o := range opts {
		o(r)
	}
	if r.tx == nil {
		r.tx = texture.New(k)
	}
	return r
}

// Tessellate walks the program graph and produces one triangle mesh per
// top-level solid using the provided geometry kernel. Groups and
// translations are walked through; a texture and everything beneath it
// becomes a single mesh. The tessellator is read-only and never mutates
// the graph.
func Tessellate(g *graph.DesignGraph, k kernel.Kernel, opts ...Option) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	r := newRunner(g, k, opts)
	var meshes []*kernel.Mesh
	ts := newTransformStack()

	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := r.walkNode(root, ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		meshes = append(meshes, collected...)
	}

	return meshes, nil
}

// Build returns the finished solid for n with every texture beneath it
// applied, without meshing it.
func Build(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node, opts ...Option) (kernel.Solid, error) {
	return newRunner(g, k, opts).build(n, graph.Vec3{})
}

// walkNode recursively traverses a node and its children, collecting meshes.
func (r *runner) walkNode(n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	switch n.Kind {
	case graph.NodePrimitive, graph.NodeTexture:
		return r.handleSolid(n, ts)

	case graph.NodeTransform:
		return r.handleTransform(n, ts)

	case graph.NodeGroup:
		return r.handleGroup(n, ts)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// handleSolid builds and meshes a primitive or textured solid.
func (r *runner) handleSolid(n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	solid, err := r.build(n, ts.accumulated())
	if err != nil {
		return nil, err
	}

	mesh, err := r.k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for node %s: %w", n.ID.Short(), err)
	}

	// Set the part name: prefer the node's Name, fall back to short ID.
	if n.Name != "" {
		mesh.PartName = n.Name
	} else {
		mesh.PartName = n.ID.Short()
	}

	return []*kernel.Mesh{mesh}, nil
}

// handleTransform pushes the translation, recurses into children, then pops.
func (r *runner) handleTransform(n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	ts.push(td.Translation)
	defer ts.pop()

	var meshes []*kernel.Mesh
	for _, child := range r.g.Children(n) {
		collected, err := r.walkNode(child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// handleGroup recurses into children transparently.
func (r *runner) handleGroup(n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, child := range r.g.Children(n) {
		collected, err := r.walkNode(child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// build creates the solid for n moved by offset.
func (r *runner) build(n *graph.Node, offset graph.Vec3) (kernel.Solid, error) {
	switch n.Kind {
	case graph.NodePrimitive:
		return r.primitive(n, offset)

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		return r.union(n, offset.Add(td.Translation))

	case graph.NodeGroup:
		return r.union(n, offset)

	case graph.NodeTexture:
		return r.texture(n, offset)
	}
	return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
}

// union builds every child and joins them into one solid.
func (r *runner) union(n *graph.Node, offset graph.Vec3) (kernel.Solid, error) {
	children := r.g.Children(n)
	if len(children) == 0 {
		return nil, fmt.Errorf("%s node %s has no children", n.Kind, n.ID.Short())
	}
	var out kernel.Solid
	for _, c := range children {
		s, err := r.build(c, offset)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = s
			continue
		}
		if out, err = r.k.Union(out, s); err != nil {
			return nil, fmt.Errorf("tessellate: union in node %s: %w", n.ID.Short(), err)
		}
	}
	return out, nil
}

// primitive creates geometry for a primitive node.
func (r *runner) primitive(n *graph.Node, offset graph.Vec3) (kernel.Solid, error) {
	var solid kernel.Solid

	switch data := n.Data.(type) {
	case graph.BoxData:
		solid = r.k.Box(data.Size.X, data.Size.Y, data.Size.Z)
	case graph.PrismData:
		p := kernel.Profile{
			Plane:  kernel.XYPlane(),
			Points: lo.Map(data.Points, func(v graph.Vec2, _ int) r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }),
		}
		var err error
		if solid, err = r.k.Extrude(p, data.Height); err != nil {
			return nil, fmt.Errorf("tessellate: prism %s: %w", n.ID.Short(), err)
		}
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}

	if !offset.IsZero() {
		solid = r.k.Translate(solid, offset.X, offset.Y, offset.Z)
	}
	return solid, nil
}

// faceSource builds the primitive that supplies faces to texture node n.
func (r *runner) faceSource(n *graph.Node, offset graph.Vec3) (kernel.Solid, error) {
	prim, local, ok := r.g.FaceSource(n)
	if !ok {
		return nil, fmt.Errorf("texture node %s does not resolve to a primitive", n.ID.Short())
	}
	return r.primitive(prim, offset.Add(local))
}

// texture builds the target solid and stamps the pattern onto it.
func (r *runner) texture(n *graph.Node, offset graph.Vec3) (kernel.Solid, error) {
	td, ok := n.Data.(graph.TextureData)
	if !ok {
		return nil, fmt.Errorf("texture node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	children := r.g.Children(n)
	if len(children) != 1 {
		return nil, fmt.Errorf("texture node %s has %d children, want 1", n.ID.Short(), len(children))
	}

	base, err := r.build(children[0], offset)
	if err != nil {
		return nil, err
	}
	src, err := r.faceSource(n, offset)
	if err != nil {
		return nil, err
	}

	out, err := r.tx.Apply(base, td.Selector, td.Pattern,
		texture.WithMode(td.Mode),
		texture.WithCacheKey(td.CacheKey),
		texture.WithFaceSource(src),
	)
	if err != nil {
		return nil, fmt.Errorf("texture node %s: %w", n.ID.Short(), err)
	}
	logging.Logger().Debug("texture node built", "node", n.ID.Short(), "name", n.Name, "pattern", td.Pattern.Kind())
	return out, nil
}

// Layouts returns the flat layout of every face each texture node in g
// would touch, in root order. It runs no boolean operations, so it is a
// cheap way to check a program before tessellating it.
func Layouts(g *graph.DesignGraph, k kernel.Kernel, opts ...Option) ([]*texture.FaceLayout, error) {
	if g == nil {
		return nil, nil
	}
	r := newRunner(g, k, opts)

	var out []*texture.FaceLayout
	seen := make(map[graph.NodeID]bool)
	var visit func(n *graph.Node, offset graph.Vec3) error
	visit = func(n *graph.Node, offset graph.Vec3) error {
		if n == nil || seen[n.ID] {
			return nil
		}
		seen[n.ID] = true
		if td, ok := n.Data.(graph.TransformData); ok {
			offset = offset.Add(td.Translation)
		}
		for _, c := range r.g.Children(n) {
			if err := visit(c, offset); err != nil {
				return err
			}
		}
		td, ok := n.Data.(graph.TextureData)
		if !ok {
			return nil
		}
		src, err := r.faceSource(n, offset)
		if err != nil {
			return err
		}
		all, err := k.Faces(src)
		if err != nil {
			return fmt.Errorf("texture node %s: %w", n.ID.Short(), err)
		}
		faces, err := texture.Select(all, td.Selector)
		if err != nil {
			return fmt.Errorf("texture node %s: %w", n.ID.Short(), err)
		}
		for _, f := range faces {
			l, err := r.tx.Layout(f, td.Pattern, td.Mode)
			if err != nil {
				return fmt.Errorf("texture node %s: %w", n.ID.Short(), err)
			}
			out = append(out, l)
		}
		return nil
	}

	for _, id := range g.Roots {
		if err := visit(g.Get(id), graph.Vec3{}); err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
	}
	return out, nil
}
