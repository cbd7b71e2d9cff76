package engine

import (
	"strings"
	"testing"

	"github.com/chazu/relief/pkg/graph"
	"github.com/chazu/relief/pkg/texture"
)

// mustEval evaluates source and fails the test on any error.
func mustEval(t *testing.T, source string) *graph.DesignGraph {
	t.Helper()
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
	return g
}

// onlyTexture returns the single texture node in g.
func onlyTexture(t *testing.T, g *graph.DesignGraph) (*graph.Node, graph.TextureData) {
	t.Helper()
	tex := g.Textures()
	if len(tex) != 1 {
		t.Fatalf("expected 1 texture node, got %d", len(tex))
	}
	td, ok := tex[0].Data.(graph.TextureData)
	if !ok {
		t.Fatalf("expected TextureData, got %T", tex[0].Data)
	}
	return tex[0], td
}

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(texture "base" p :faces ">Z")`,
			expect: `(texture "base" p "__kw_faces" ">Z")`,
		},
		{
			name:   "multiple keywords",
			input:  `(box :x 40 :y 30)`,
			expect: `(box "__kw_x" 40 "__kw_y" 30)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "selector string preserved",
			input:  `"not #Z"`,
			expect: `"not #Z"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(hex-grid :side-thickness 1)`,
			expect: `(hex_grid "__kw_side-thickness" 1)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 0 -5)`,
			expect: `(vec3 0 0 -5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:cache-key`,
			expect: `"__kw_cache-key"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Solids
// ---------------------------------------------------------------------------

func TestDefsolidBox(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"positional", `(defsolid "base" (box 40 30 10))`},
		{"keywords", `(defsolid "base" (box :x 40 :y 30 :z 10))`},
		{"variable", "(def h 10)\n(defsolid \"base\" (box 40 30 h))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustEval(t, tt.source)
			if g.NodeCount() != 1 {
				t.Fatalf("expected 1 node, got %d", g.NodeCount())
			}
			base := g.Lookup("base")
			if base == nil {
				t.Fatal("expected node named 'base'")
			}
			if base.Kind != graph.NodePrimitive {
				t.Errorf("expected NodePrimitive, got %s", base.Kind)
			}
			bd, ok := base.Data.(graph.BoxData)
			if !ok {
				t.Fatalf("expected BoxData, got %T", base.Data)
			}
			if bd.Size != (graph.Vec3{X: 40, Y: 30, Z: 10}) {
				t.Errorf("size = %v", bd.Size)
			}
			if len(g.Roots) != 1 || g.Roots[0] != base.ID {
				t.Errorf("roots = %v", g.Roots)
			}
		})
	}
}

func TestDefsolidPrism(t *testing.T) {
	g := mustEval(t, `
(defsolid "wedge"
  (prism :points (list (vec2 0 0) (vec2 20 0) (vec2 0 10)) :height 5))
`)
	wedge := g.MustLookup("wedge")
	pd, ok := wedge.Data.(graph.PrismData)
	if !ok {
		t.Fatalf("expected PrismData, got %T", wedge.Data)
	}
	want := []graph.Vec2{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 0, Y: 10}}
	if len(pd.Points) != len(want) {
		t.Fatalf("points = %v", pd.Points)
	}
	for i := range want {
		if pd.Points[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, pd.Points[i], want[i])
		}
	}
	if pd.Height != 5 {
		t.Errorf("height = %g, want 5", pd.Height)
	}
}

func TestTranslateAndGroup(t *testing.T) {
	g := mustEval(t, `
(defsolid "a" (box 10 10 10))
(defsolid "b" (box 5 5 5))
(group "pair"
  (solid "a")
  (translate (solid "b") :by (vec3 20 0 0) :name "moved"))
`)
	if g.NodeCount() != 4 {
		t.Fatalf("expected 4 nodes, got %d", g.NodeCount())
	}
	pair := g.MustLookup("pair")
	if len(g.Roots) != 1 || g.Roots[0] != pair.ID {
		t.Errorf("only the group should be a root, roots = %d", len(g.Roots))
	}
	if len(pair.Children) != 2 {
		t.Fatalf("group children = %d, want 2", len(pair.Children))
	}
	moved := g.MustLookup("moved")
	td, ok := moved.Data.(graph.TransformData)
	if !ok {
		t.Fatalf("expected TransformData, got %T", moved.Data)
	}
	if td.Translation != (graph.Vec3{X: 20}) {
		t.Errorf("translation = %v", td.Translation)
	}
	if moved.Children[0] != g.MustLookup("b").ID {
		t.Error("translate should wrap b")
	}
}

// ---------------------------------------------------------------------------
// Patterns
// ---------------------------------------------------------------------------

func TestPatternBuiltins(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    texture.Pattern
	}{
		{
			name:    "brick",
			pattern: `(brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1.5)`,
			want:    texture.Brick{BrickWidth: 8, BrickHeight: 4, Spacing: 1, Depth: 1.5},
		},
		{
			name:    "brick with row offset",
			pattern: `(brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1 :row-offset 2)`,
			want:    texture.Brick{BrickWidth: 8, BrickHeight: 4, Spacing: 1, RowOffset: 2, Depth: 1},
		},
		{
			name:    "honeycomb",
			pattern: `(honeycomb :side-length 3 :height-min 0.5 :height-max 2 :height-steps 4 :rotation 30 :spacing-coefficient 1.2 :seed 7)`,
			want: texture.Honeycomb{
				SideLength: 3, HeightMin: 0.5, HeightMax: 2, HeightSteps: 4,
				RotationDeg: 30, SpacingCoefficient: 1.2, RandomSeed: 7,
			},
		},
		{
			name:    "hex grid",
			pattern: `(hex-grid :diameter 6 :height 1 :side-thickness 1 :edge-width 0.5)`,
			want:    texture.HexGrid{Diameter: 6, Height: 1, SideThickness: 1, EdgeWidth: 0.5},
		},
		{
			name:    "linear default angle",
			pattern: `(linear :thickness 1 :spacing 3 :height 1)`,
			want:    texture.Linear{Thickness: 1, Spacing: 3, AngleDeg: texture.DefaultLinearAngle, Height: 1},
		},
		{
			name:    "linear explicit angle",
			pattern: `(linear :thickness 1 :spacing 3 :angle 0 :height 1)`,
			want:    texture.Linear{Thickness: 1, Spacing: 3, AngleDeg: 0, Height: 1},
		},
		{
			name:    "rooftop tile",
			pattern: `(rooftop-tile :tile-width 10 :tile-height 6 :spacing 0.5 :overlap 1 :step 0.5 :tilt 5 :depth 1)`,
			want: texture.RooftopTile{
				TileWidth: 10, TileHeight: 6, Spacing: 0.5, Overlap: 1,
				Step: 0.5, TiltDeg: 5, Depth: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustEval(t, `(texture (box 40 40 10) `+tt.pattern+`)`)
			_, td := onlyTexture(t, g)
			if td.Pattern != tt.want {
				t.Errorf("pattern = %#v, want %#v", td.Pattern, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Texture
// ---------------------------------------------------------------------------

func TestTextureDefaults(t *testing.T) {
	g := mustEval(t, `
(defsolid "base" (box 40 40 10))
(texture "base" (brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1.5))
`)
	node, td := onlyTexture(t, g)
	if td.Selector != "*" {
		t.Errorf("selector = %q, want *", td.Selector)
	}
	if td.Mode != texture.Additive {
		t.Errorf("mode = %s, want additive", td.Mode)
	}
	if td.CacheKey != "" {
		t.Errorf("cache key = %q, want empty", td.CacheKey)
	}
	if len(g.Roots) != 1 || g.Roots[0] != node.ID {
		t.Error("the texture should replace the solid as the only root")
	}
	prim, _, ok := g.FaceSource(node)
	if !ok || prim.Name != "base" {
		t.Errorf("FaceSource = %v, %v", prim, ok)
	}
}

func TestTextureOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     string
		selector string
		mode     texture.Mode
		key      string
	}{
		{"faces", `:faces ">Z"`, ">Z", texture.Additive, ""},
		{"cut", `:faces "#Z" :cut true`, "#Z", texture.Subtractive, ""},
		{"cut false", `:cut false`, "*", texture.Additive, ""},
		{"mode keyword", `:mode :subtractive`, "*", texture.Subtractive, ""},
		{"cache key", `:cache-key "walls-v1"`, "*", texture.Additive, "walls-v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustEval(t, `(texture (box 40 40 10) (linear :thickness 1 :spacing 3 :height 1) `+tt.opts+`)`)
			_, td := onlyTexture(t, g)
			if td.Selector != tt.selector {
				t.Errorf("selector = %q, want %q", td.Selector, tt.selector)
			}
			if td.Mode != tt.mode {
				t.Errorf("mode = %s, want %s", td.Mode, tt.mode)
			}
			if td.CacheKey != tt.key {
				t.Errorf("cache key = %q, want %q", td.CacheKey, tt.key)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	g := mustEval(t, `
(set-defaults :faces "<Z" :mode :cut)
(texture (box 40 40 10) (linear :thickness 1 :spacing 3 :height 1) :name "under")
`)
	td := g.MustLookup("under").Data.(graph.TextureData)
	if td.Selector != "<Z" || td.Mode != texture.Subtractive {
		t.Errorf("texture = %+v, want defaults applied", td)
	}
}

func TestChainedTextures(t *testing.T) {
	g := mustEval(t, `
(defsolid "base" (box 40 40 10))
(def walls (texture "base" (brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1) :faces "#Z"))
(texture walls (honeycomb :side-length 3 :height-max 1) :faces ">Z" :name "top")
`)
	top := g.MustLookup("top")
	if len(g.Roots) != 1 || g.Roots[0] != top.ID {
		t.Fatalf("roots = %d, want only the outer texture", len(g.Roots))
	}
	prim, _, ok := g.FaceSource(top)
	if !ok || prim.Name != "base" {
		t.Errorf("chained texture should take faces from base, got %v", prim)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	source := `(texture (box 40 40 10) (brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1))`
	a := mustEval(t, source)
	b := mustEval(t, source)
	if len(a.Roots) != 1 || len(b.Roots) != 1 || a.Roots[0] != b.Roots[0] {
		t.Error("re-evaluating the same source should give the same root IDs")
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unknown solid", `(solid "nonexistent")`},
		{"unknown keyword", `(box :x 1 :y 1 :z 1 :w 2)`},
		{"box arity", `(box 1 2)`},
		{"prism without points", `(prism :height 2)`},
		{"defsolid needs solid", `(defsolid "x" 5)`},
		{"duplicate name", `(defsolid "x" (box 1 1 1)) (defsolid "x" (box 2 2 2))`},
		{"invalid brick", `(brick :brick-width 0 :brick-height 4 :spacing 1 :depth 1)`},
		{"invalid honeycomb range", `(honeycomb :side-length 1 :height-min 3 :height-max 1)`},
		{"negative seed", `(honeycomb :side-length 1 :height-max 1 :seed -1)`},
		{"pattern positional", `(linear 1 2 3)`},
		{"bad selector", `(texture (box 1 1 1) (linear :thickness 1 :spacing 3 :height 1) :faces ">Q")`},
		{"bad mode", `(texture (box 1 1 1) (linear :thickness 1 :spacing 3 :height 1) :mode :sideways)`},
		{"missing pattern", `(texture (box 1 1 1))`},
		{"target by unknown name", `(texture "ghost" (linear :thickness 1 :spacing 3 :height 1))`},
		{"pattern as target", `(texture (linear :thickness 1 :spacing 3 :height 1) (linear :thickness 1 :spacing 3 :height 1))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if g != nil {
				t.Error("expected nil graph")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error should have a non-empty message")
			}
		})
	}
}

func TestTextureOverGroupRejected(t *testing.T) {
	source := `(texture (group "g" (box 1 1 1)) (linear :thickness 1 :spacing 3 :height 1))`
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if g != nil {
		t.Error("expected nil graph")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "does not resolve") {
		t.Errorf("eval errors = %v", evalErrs)
	}
}

// ---------------------------------------------------------------------------
// Plain arithmetic still works (regression)
// ---------------------------------------------------------------------------

func TestArithmeticStillWorks(t *testing.T) {
	g := mustEval(t, "(+ 1 2)")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}
