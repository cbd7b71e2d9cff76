package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeID identifies a node. IDs are derived from the node's path in the
// source program so re-evaluating the same script yields the same IDs.
type NodeID [sha256.Size]byte

// ZeroID is the unset node ID.
var ZeroID NodeID

// NewNodeID hashes path into a NodeID.
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

func (id NodeID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first six bytes as hex, for messages.
func (id NodeID) Short() string { return hex.EncodeToString(id[:6]) }

// ContentHash fingerprints a node's kind-specific data.
type ContentHash [sha256.Size]byte

// HashData fingerprints a payload from its printed form.
func HashData(d NodeData) ContentHash {
	return ContentHash(sha256.Sum256([]byte(fmt.Sprintf("%T%+v", d, d))))
}

// SourceRef points at the form that created a node.
type SourceRef struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Vec3 is a 3-vector in millimetres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

func (v Vec3) String() string { return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z) }

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }

// Vec2 is a point in a profile plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
