package graph

import (
	"fmt"

	"github.com/chazu/relief/pkg/layout"
	"github.com/chazu/relief/pkg/texture"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"
)

// ---------------------------------------------------------------------------
// Tier 2: Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// minProfileArea is the smallest prism cross-section accepted, in mm².
const minProfileArea = 1e-9

// validateGeometry runs all Tier 2 geometric checks.
// Returns errors (blocking) and warnings (advisory) separately.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	errs = append(errs, validateNonZeroDimensions(g)...)
	errs = append(errs, validatePrismProfiles(g)...)
	errs = append(errs, validateTextures(g)...)

	warnings = append(warnings, validateRepeatedTextures(g)...)
	warnings = append(warnings, validateIdentityTransforms(g)...)

	return errs, warnings
}

// validateNonZeroDimensions checks that every BoxData has positive X, Y, Z.
func validateNonZeroDimensions(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.Nodes {
		bd, ok := node.Data.(BoxData)
		if !ok {
			continue
		}
		for _, d := range []struct {
			axis string
			v    float64
		}{{"X", bd.Size.X}, {"Y", bd.Size.Y}, {"Z", bd.Size.Z}} {
			if d.v <= 0 {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("box dimension %s is %.4f, must be positive", d.axis, d.v),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validatePrismProfiles checks that every prism has a non-degenerate
// profile and a non-zero height.
func validatePrismProfiles(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.Nodes {
		pd, ok := node.Data.(PrismData)
		if !ok {
			continue
		}
		fail := func(format string, args ...any) {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf(format, args...),
				Severity: SeverityError,
			})
		}
		if len(pd.Points) < 3 {
			fail("prism profile has %d points, need at least 3", len(pd.Points))
			continue
		}
		pts := lo.Map(pd.Points, func(p Vec2, _ int) r2.Vec { return r2.Vec{X: p.X, Y: p.Y} })
		if layout.Area(pts) < minProfileArea {
			fail("prism profile has zero area")
		}
		if pd.Height == 0 {
			fail("prism height is zero")
		}
	}

	return errs
}

// validateTextures checks every texture's pattern values and selector
// syntax without touching any geometry.
func validateTextures(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, node := range g.Nodes {
		td, ok := node.Data.(TextureData)
		if !ok {
			continue
		}
		if td.Pattern == nil {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "texture has no pattern",
				Severity: SeverityError,
			})
			continue
		}
		if err := td.Pattern.Validate(); err != nil {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("%s pattern: %v", td.Pattern.Kind(), err),
				Severity: SeverityError,
			})
		}
		if _, err := texture.Select(nil, td.Selector); err != nil {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateRepeatedTextures warns when the same texture is stacked directly
// on itself, which doubles the relief.
func validateRepeatedTextures(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, node := range g.Nodes {
		if node.Kind != NodeTexture || len(node.Children) != 1 {
			continue
		}
		child := g.Nodes[node.Children[0]]
		if child == nil || child.Kind != NodeTexture {
			continue
		}
		if child.ContentHash == node.ContentHash {
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: "identical texture applied twice in a row",
			})
		}
	}

	return warnings
}

// validateIdentityTransforms warns about translations by the zero vector.
func validateIdentityTransforms(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, node := range g.Nodes {
		td, ok := node.Data.(TransformData)
		if ok && td.Translation.IsZero() {
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: "translation by zero has no effect",
			})
		}
	}

	return warnings
}
