package graph

import (
	"fmt"

	"github.com/chazu/relief/pkg/texture"
)

// DefaultUnits is the only supported unit system.
const DefaultUnits = "mm"

// GlobalDefaults contains graph-wide settings.
type GlobalDefaults struct {
	Units    string       `json:"units"`
	Mode     texture.Mode `json:"mode"`     // default for texture forms without :cut
	Selector string       `json:"selector"` // default for texture forms without :faces
}

// DesignGraph is the immutable program produced by Lisp evaluation.
// Each evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  GlobalDefaults    `json:"defaults"`
	Version   uint64            `json:"version"`
}

// New creates an empty DesignGraph with default settings.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: GlobalDefaults{
			Units:    DefaultUnits,
			Mode:     texture.Additive,
			Selector: "*",
		},
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *DesignGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Primitives returns all primitive nodes in the graph.
func (g *DesignGraph) Primitives() []*Node {
	return g.ofKind(NodePrimitive)
}

// Textures returns all texture nodes in the graph.
func (g *DesignGraph) Textures() []*Node {
	return g.ofKind(NodeTexture)
}

func (g *DesignGraph) ofKind(k NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// FaceSource follows n through texture and transform nodes down to the
// primitive that supplies its faces. It returns the primitive and the
// translation accumulated on the way. ok is false when the chain meets a
// group, a missing child, or a transform with several children.
func (g *DesignGraph) FaceSource(n *Node) (prim *Node, offset Vec3, ok bool) {
	seen := make(map[NodeID]bool)
	for n != nil && !seen[n.ID] {
		seen[n.ID] = true
		switch n.Kind {
		case NodePrimitive:
			return n, offset, true
		case NodeTexture, NodeTransform:
			if len(n.Children) != 1 {
				return nil, Vec3{}, false
			}
			if td, isT := n.Data.(TransformData); isT {
				offset = offset.Add(td.Translation)
			}
			n = g.Nodes[n.Children[0]]
		default:
			return nil, Vec3{}, false
		}
	}
	return nil, Vec3{}, false
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}
