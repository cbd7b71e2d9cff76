package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/chazu/relief/pkg/graph"
	"github.com/chazu/relief/pkg/texture"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms relief Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: hex-grid -> hex_grid
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps primitive data returned from `box` or `prism` before it
// is registered as a node.
type sexpSolid struct {
	data graph.NodeData
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	switch d := s.data.(type) {
	case graph.BoxData:
		return fmt.Sprintf("(box %gx%gx%g)", d.Size.X, d.Size.Y, d.Size.Z)
	case graph.PrismData:
		return fmt.Sprintf("(prism %d points h=%g)", len(d.Points), d.Height)
	}
	return "(solid)"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpPattern wraps a texture.Pattern built by one of the pattern forms.
type sexpPattern struct {
	pattern texture.Pattern
}

func (p *sexpPattern) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %+v)", p.pattern.Kind(), p.pattern)
}
func (p *sexpPattern) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a graph.Vec2 profile point.
type sexpVec2 struct {
	vec graph.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %.1f %.1f)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// check rejects keywords the form does not know, so typos surface as
// errors instead of silently falling back to defaults.
func (a kwArgs) check(form string, allowed ...string) error {
	unknown := lo.Without(lo.Keys(a.kw), allowed...)
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("%s: unknown keyword :%s", form, unknown[0])
}

// floatArg binds a keyword to the field it fills.
type floatArg struct {
	kw  string
	dst *float64
}

// floats fills every bound field whose keyword is present.
func (a kwArgs) floats(form string, args ...floatArg) error {
	for _, f := range args {
		v, ok := a.kw[f.kw]
		if !ok {
			continue
		}
		x, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", form, f.kw, err)
		}
		*f.dst = x
	}
	return nil
}

// known returns the keyword names of args, for check.
func known(args []floatArg, extra ...string) []string {
	return append(lo.Map(args, func(f floatArg, _ int) string { return f.kw }), extra...)
}

// toBool accepts true/false, or a bare trailing flag keyword.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toCount extracts a non-negative whole number.
func toCount(s zygo.Sexp) (uint64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected a non-negative whole number, got %g", f)
	}
	return uint64(f), nil
}

// toMode converts :additive/:subtractive (or :add/:cut) to a texture.Mode.
func toMode(s zygo.Sexp) (texture.Mode, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected mode keyword (:additive, :subtractive): %w", err)
	}
	switch name {
	case "additive", "add":
		return texture.Additive, nil
	case "subtractive", "cut":
		return texture.Subtractive, nil
	}
	return 0, fmt.Errorf("invalid mode %q, expected additive or subtractive", name)
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts a Vec2 from a sexpVec2 or a two-number list.
func toVec2(s zygo.Sexp) (graph.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 2 {
		return graph.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
	}
	x, err := toFloat64(items[0])
	if err != nil {
		return graph.Vec2{}, err
	}
	y, err := toFloat64(items[1])
	if err != nil {
		return graph.Vec2{}, err
	}
	return graph.Vec2{X: x, Y: y}, nil
}

// toPattern extracts a texture.Pattern from a sexpPattern.
func toPattern(s zygo.Sexp) (texture.Pattern, error) {
	if p, ok := s.(*sexpPattern); ok {
		return p.pattern, nil
	}
	return nil, fmt.Errorf("expected pattern, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}


// ---------------------------------------------------------------------------
// Scene bookkeeping
// ---------------------------------------------------------------------------

// scene tracks the graph under construction. Every new node starts as a
// root and stops being one once another form consumes it, so the roots
// left at the end are the program's top-level results.
type scene struct {
	g     *graph.DesignGraph
	count map[string]int
}

func newScene(g *graph.DesignGraph) *scene {
	return &scene{g: g, count: make(map[string]int)}
}

// nextID numbers anonymous nodes per kind so re-evaluating a program
// yields the same IDs.
func (s *scene) nextID(kind string) graph.NodeID {
	s.count[kind]++
	return graph.NewNodeID(fmt.Sprintf("%s/%d", kind, s.count[kind]))
}

// idFor returns a name-derived ID for named nodes and a numbered one
// otherwise.
func (s *scene) idFor(kind, name string) graph.NodeID {
	if name != "" {
		return graph.NewNodeID(kind + "/" + name)
	}
	return s.nextID(kind)
}

func (s *scene) add(n *graph.Node) (*sexpNodeRef, error) {
	if n.Name != "" && s.g.Lookup(n.Name) != nil {
		return nil, fmt.Errorf("%q is already defined", n.Name)
	}
	n.ContentHash = graph.HashData(n.Data)
	s.g.AddNode(n)
	s.g.AddRoot(n.ID)
	return &sexpNodeRef{id: n.ID, name: n.Name}, nil
}

func (s *scene) adopt(id graph.NodeID) {
	s.g.Roots = lo.Without(s.g.Roots, id)
}

// child resolves a form argument to a node and takes it off the root list.
// It accepts node references, solid names, and unregistered solids.
func (s *scene) child(v zygo.Sexp) (graph.NodeID, error) {
	switch c := v.(type) {
	case *sexpNodeRef:
		s.adopt(c.id)
		return c.id, nil
	case *sexpSolid:
		ref, err := s.add(&graph.Node{ID: s.nextID("solid"), Kind: graph.NodePrimitive, Data: c.data})
		if err != nil {
			return graph.ZeroID, err
		}
		s.adopt(ref.id)
		return ref.id, nil
	case *zygo.SexpStr:
		if _, isKW := isKW(c); !isKW {
			n := s.g.Lookup(c.S)
			if n == nil {
				return graph.ZeroID, fmt.Errorf("no solid named %q", c.S)
			}
			s.adopt(n.ID)
			return n.ID, nil
		}
	}
	return graph.ZeroID, fmt.Errorf("expected solid, name or node reference, got %T (%s)", v, v.SexpString(nil))
}

// optionalName reads the :name keyword.
func optionalName(form string, pa kwArgs) (string, error) {
	v, ok := pa.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", form, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all relief DSL builtins into a zygomys environment.
// The builtins operate on the provided DesignGraph, populating it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
//
// Every builtin runs behind wd and fails once the evaluation has timed out.
func registerBuiltins(env *zygo.Zlisp, g *graph.DesignGraph, wd *watchdog) {
	sc := newScene(g)
	r := registrar{env: env, wd: wd}
	registerSolids(r, sc)
	registerPatterns(r)
	registerTexture(r, sc)
}

func registerSolids(env registrar, sc *scene) {
	g := sc.g

	// -----------------------------------------------------------------------
	// (vec3 1 2 3) / (vec2 1 2)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: graph.Vec3{X: x, Y: y, Z: z}}, nil
	})

	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}

		return &sexpVec2{vec: graph.Vec2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (box 40 40 10) or (box :x 40 :y 40 :z 10)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var bd graph.BoxData

		if len(pa.positional) != 0 {
			if len(pa.positional) != 3 {
				return zygo.SexpNull, fmt.Errorf("box takes 3 sizes, got %d", len(pa.positional))
			}
			dst := []*float64{&bd.Size.X, &bd.Size.Y, &bd.Size.Z}
			for i, v := range pa.positional {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: size %d: %w", i+1, err)
				}
				*dst[i] = f
			}
		}
		fields := []floatArg{{"x", &bd.Size.X}, {"y", &bd.Size.Y}, {"z", &bd.Size.Z}}
		if err := pa.check("box", known(fields)...); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.floats("box", fields...); err != nil {
			return zygo.SexpNull, err
		}

		return &sexpSolid{data: bd}, nil
	})

	// -----------------------------------------------------------------------
	// (prism :points (list (vec2 0 0) (vec2 10 0) (vec2 0 10)) :height 5)
	// -----------------------------------------------------------------------
	env.AddFunction("prism", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var pd graph.PrismData

		if err := pa.check("prism", "points", "height"); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.floats("prism", floatArg{"height", &pd.Height}); err != nil {
			return zygo.SexpNull, err
		}
		v, ok := pa.kw["points"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("prism requires :points")
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("prism: points: %w", err)
		}
		for i, item := range items {
			p, err := toVec2(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("prism: point %d: %w", i+1, err)
			}
			pd.Points = append(pd.Points, p)
		}

		return &sexpSolid{data: pd}, nil
	})

	// -----------------------------------------------------------------------
	// (defsolid "name" (box ...))
	// -----------------------------------------------------------------------
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a body expression")
		}

		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		body, ok := args[1].(*sexpSolid)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("defsolid: expected box or prism expression, got %T", args[1])
		}

		ref, err := sc.add(&graph.Node{
			ID:   sc.idFor("solid", solidName),
			Kind: graph.NodePrimitive,
			Name: solidName,
			Data: body.data,
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (solid "name")
	// -----------------------------------------------------------------------
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}

		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}

		n := g.Lookup(solidName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", solidName)
		}

		return &sexpNodeRef{id: n.ID, name: solidName}, nil
	})

	// -----------------------------------------------------------------------
	// (translate (solid "base") :by (vec3 0 0 19))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if err := pa.check("translate", "by", "name"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("translate requires a solid as first argument")
		}
		td := graph.TransformData{}
		if v, ok := pa.kw["by"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("translate: by: %w", err)
			}
			td.Translation = vec
		}
		nodeName, err := optionalName("translate", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		childID, err := sc.child(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}

		ref, err := sc.add(&graph.Node{
			ID:       sc.idFor("translate", nodeName),
			Kind:     graph.NodeTransform,
			Name:     nodeName,
			Children: []graph.NodeID{childID},
			Data:     td,
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (group "name" child child ...)
	// -----------------------------------------------------------------------
	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("group requires a name argument")
		}

		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}

		var children []graph.NodeID
		for i := 1; i < len(args); i++ {
			id, err := sc.child(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("group: child %d: %w", i, err)
			}
			children = append(children, id)
		}

		ref, err := sc.add(&graph.Node{
			ID:       sc.idFor("group", groupName),
			Kind:     graph.NodeGroup,
			Name:     groupName,
			Children: children,
			Data:     graph.GroupData{},
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: %w", err)
		}
		return ref, nil
	})
}

// patternSpec describes one pattern form: its numeric keywords, any other
// keywords it accepts, and how to produce the pattern once they are read.
type patternSpec struct {
	nums  []floatArg
	extra []string
	build func(kwArgs) (texture.Pattern, error)
}

// patternForm registers a pattern builtin. spec is called once per use so
// every call fills a fresh value.
func patternForm(env registrar, form string, spec func() patternSpec) {
	env.AddFunction(form, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 0 {
			return zygo.SexpNull, fmt.Errorf("%s takes keyword arguments only", form)
		}
		ps := spec()
		if err := pa.check(form, known(ps.nums, ps.extra...)...); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.floats(form, ps.nums...); err != nil {
			return zygo.SexpNull, err
		}
		p, err := ps.build(pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := p.Validate(); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
		}
		return &sexpPattern{pattern: p}, nil
	})
}

func registerPatterns(env registrar) {
	// (brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1.5 :row-offset 4)
	patternForm(env, "brick", func() patternSpec {
		var b texture.Brick
		return patternSpec{
			nums: []floatArg{
				{"brick-width", &b.BrickWidth},
				{"brick-height", &b.BrickHeight},
				{"spacing", &b.Spacing},
				{"row-offset", &b.RowOffset},
				{"depth", &b.Depth},
			},
			build: func(kwArgs) (texture.Pattern, error) { return b, nil },
		}
	})

	// (honeycomb :side-length 3 :height-min 0.5 :height-max 2 :height-steps 10
	//            :rotation 30 :spacing-coefficient 1.1 :seed 42)
	patternForm(env, "honeycomb", func() patternSpec {
		var h texture.Honeycomb
		return patternSpec{
			nums: []floatArg{
				{"side-length", &h.SideLength},
				{"height-min", &h.HeightMin},
				{"height-max", &h.HeightMax},
				{"rotation", &h.RotationDeg},
				{"spacing-coefficient", &h.SpacingCoefficient},
			},
			extra: []string{"height-steps", "seed"},
			build: func(pa kwArgs) (texture.Pattern, error) {
				if v, ok := pa.kw["height-steps"]; ok {
					n, err := toCount(v)
					if err != nil {
						return nil, fmt.Errorf("honeycomb: height-steps: %w", err)
					}
					h.HeightSteps = int(n)
				}
				if v, ok := pa.kw["seed"]; ok {
					n, err := toCount(v)
					if err != nil {
						return nil, fmt.Errorf("honeycomb: seed: %w", err)
					}
					h.RandomSeed = n
				}
				return h, nil
			},
		}
	})

	// (hex-grid :diameter 6 :height 1 :side-thickness 1 :edge-width 0.5)
	patternForm(env, "hex_grid", func() patternSpec {
		var hg texture.HexGrid
		return patternSpec{
			nums: []floatArg{
				{"diameter", &hg.Diameter},
				{"height", &hg.Height},
				{"side-thickness", &hg.SideThickness},
				{"edge-width", &hg.EdgeWidth},
			},
			build: func(kwArgs) (texture.Pattern, error) { return hg, nil },
		}
	})

	// (linear :thickness 1 :spacing 3 :angle 30 :height 1)
	patternForm(env, "linear", func() patternSpec {
		l := texture.Linear{AngleDeg: texture.DefaultLinearAngle}
		return patternSpec{
			nums: []floatArg{
				{"thickness", &l.Thickness},
				{"spacing", &l.Spacing},
				{"angle", &l.AngleDeg},
				{"height", &l.Height},
			},
			build: func(kwArgs) (texture.Pattern, error) { return l, nil },
		}
	})

	// (rooftop-tile :tile-width 10 :tile-height 6 :spacing 0.5 :overlap 1
	//               :step 0.5 :tilt 5 :row-offset 5 :depth 1)
	patternForm(env, "rooftop_tile", func() patternSpec {
		var r texture.RooftopTile
		return patternSpec{
			nums: []floatArg{
				{"tile-width", &r.TileWidth},
				{"tile-height", &r.TileHeight},
				{"spacing", &r.Spacing},
				{"overlap", &r.Overlap},
				{"step", &r.Step},
				{"tilt", &r.TiltDeg},
				{"row-offset", &r.RowOffset},
				{"depth", &r.Depth},
			},
			build: func(kwArgs) (texture.Pattern, error) { return r, nil },
		}
	})
}

func registerTexture(env registrar, sc *scene) {
	g := sc.g

	// -----------------------------------------------------------------------
	// (texture target (brick ...) :faces ">Z" :cut true :cache-key "tag" :name "n")
	//
	// target is a solid name, a node reference, or a bare box/prism.
	// -----------------------------------------------------------------------
	env.AddFunction("texture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if err := pa.check("texture", "faces", "cut", "mode", "cache-key", "name"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("texture requires a target and a pattern, got %d arguments", len(pa.positional))
		}
		p, err := toPattern(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("texture: pattern: %w", err)
		}

		td := graph.TextureData{
			Pattern:  p,
			Selector: g.Defaults.Selector,
			Mode:     g.Defaults.Mode,
		}
		if v, ok := pa.kw["faces"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("texture: faces: %w", err)
			}
			if _, err := texture.Select(nil, s); err != nil {
				return zygo.SexpNull, fmt.Errorf("texture: faces: %w", err)
			}
			td.Selector = s
		}
		if v, ok := pa.kw["mode"]; ok {
			m, err := toMode(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("texture: mode: %w", err)
			}
			td.Mode = m
		}
		if v, ok := pa.kw["cut"]; ok {
			cut, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("texture: cut: %w", err)
			}
			td.Mode = texture.Additive
			if cut {
				td.Mode = texture.Subtractive
			}
		}
		if v, ok := pa.kw["cache-key"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("texture: cache-key: %w", err)
			}
			td.CacheKey = s
		}
		nodeName, err := optionalName("texture", pa)
		if err != nil {
			return zygo.SexpNull, err
		}

		childID, err := sc.child(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("texture: target: %w", err)
		}

		ref, err := sc.add(&graph.Node{
			ID:       sc.idFor("texture", nodeName),
			Kind:     graph.NodeTexture,
			Name:     nodeName,
			Children: []graph.NodeID{childID},
			Data:     td,
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("texture: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (set-defaults :faces "#Z" :mode :subtractive)
	//
	// Applies to texture forms evaluated afterwards.
	// -----------------------------------------------------------------------
	env.AddFunction("set_defaults", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if err := pa.check("set-defaults", "faces", "mode"); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["faces"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-defaults: faces: %w", err)
			}
			if _, err := texture.Select(nil, s); err != nil {
				return zygo.SexpNull, fmt.Errorf("set-defaults: faces: %w", err)
			}
			g.Defaults.Selector = s
		}
		if v, ok := pa.kw["mode"]; ok {
			m, err := toMode(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-defaults: mode: %w", err)
			}
			g.Defaults.Mode = m
		}
		return zygo.SexpNull, nil
	})
}
