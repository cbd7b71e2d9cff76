package graph

import "github.com/chazu/relief/pkg/texture"

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is an axis-aligned box centred at the origin.
type BoxData struct {
	Size Vec3 `json:"size"`
}

func (BoxData) nodeData() {}

// PrismData is a polygon in the XY plane extruded along +Z from Z=0.
type PrismData struct {
	Points []Vec2  `json:"points"`
	Height float64 `json:"height"`
}

func (PrismData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData translates every child. Created by the (translate ...) form.
type TransformData struct {
	Translation Vec3 `json:"translation"`
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Texture
// ---------------------------------------------------------------------------

// TextureData applies Pattern to the faces of its only child picked by
// Selector. The child must resolve to a primitive, possibly translated or
// already textured, which supplies the faces.
type TextureData struct {
	Pattern  texture.Pattern `json:"pattern"`
	Selector string          `json:"selector,omitempty"`
	Mode     texture.Mode    `json:"mode"`
	CacheKey string          `json:"cache_key,omitempty"`
}

func (TextureData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is a named collection of solids.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
