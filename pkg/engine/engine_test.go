package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/relief/pkg/graph"
	"github.com/chazu/relief/pkg/texture"
	zygo "github.com/glycerine/zygomys/zygo"
)

func TestEvaluateEmptyPrograms(t *testing.T) {
	for _, source := range []string{"", "   \n\t  \n  ", ";; nothing but a comment\n"} {
		g, evalErrs, err := NewEngine().Evaluate(source)
		if err != nil {
			t.Fatalf("%q: unexpected fatal error: %v", source, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("%q: unexpected eval errors: %v", source, evalErrs)
		}
		if g == nil || g.NodeCount() != 0 {
			t.Errorf("%q: expected an empty graph", source)
		}
	}
}

func TestEvaluateTexturedProgram(t *testing.T) {
	source := `
(def course 4)
(defsolid "wall" (box 60 10 (* course 5)))
(texture "wall"
  (brick :brick-width 8 :brick-height course :spacing 1 :depth 1)
  :faces "<Y" :cut true :name "front")`

	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Evaluate: %v %v", err, evalErrs)
	}
	if len(g.Roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(g.Roots))
	}
	tex := g.Get(g.Roots[0])
	td, ok := tex.Data.(graph.TextureData)
	if !ok || tex.Name != "front" {
		t.Fatalf("root is %s %q, want texture front", tex.Kind, tex.Name)
	}
	if td.Mode != texture.Subtractive || td.Selector != "<Y" {
		t.Errorf("texture data = %+v", td)
	}
	if b, ok := td.Pattern.(texture.Brick); !ok || b.BrickHeight != 4 {
		t.Errorf("pattern = %#v", td.Pattern)
	}
}

func TestEvaluateTexturedProgramIsDeterministic(t *testing.T) {
	source := `
(defsolid "tile" (box 20 20 4))
(texture (texture "tile" (honeycomb :side-length 3 :height-min 0.5 :height-max 2 :seed 9) :faces ">Z")
  (linear :thickness 1 :spacing 3 :height 0.5) :faces "<Z")`

	eng := NewEngine()
	first, _, err := eng.Evaluate(source)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		g, evalErrs, err := eng.Evaluate(source)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("run %d: %v %v", i, err, evalErrs)
		}
		if len(g.Roots) != 1 || g.Roots[0] != first.Roots[0] {
			t.Fatalf("run %d: roots %v, want %v", i, g.Roots, first.Roots)
		}
		for id, n := range first.Nodes {
			if got := g.Get(id); got == nil || got.ContentHash != n.ContentHash {
				t.Errorf("run %d: node %s differs", i, id.Short())
			}
		}
	}
}

func TestEvaluateSyntaxErrorInTextureForm(t *testing.T) {
	source := "(defsolid \"s\" (box 10 10 2))\n(texture \"s\"\n  (brick :brick-width 8 :brick-height 4 :spacing 1 :depth 1)"

	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on syntax error")
	}
	if len(evalErrs) == 0 || evalErrs[0].Message == "" {
		t.Fatalf("expected a populated eval error, got %v", evalErrs)
	}
	t.Logf("line=%d message=%q", evalErrs[0].Line, evalErrs[0].Message)
}

func TestEvaluateErrorInsidePatternForm(t *testing.T) {
	source := `
(defsolid "s" (box 10 10 2))
(texture "s" (linear :thickness 1 :spacing 3 :height 1 :colour "red"))`

	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "colour") {
		t.Errorf("errors = %v, want one naming the unknown keyword", evalErrs)
	}
}

func TestEvaluateUndefinedSymbolInDimensions(t *testing.T) {
	g, evalErrs, err := NewEngine().Evaluate(`(defsolid "s" (box width 10 2))`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil || len(evalErrs) == 0 {
		t.Fatalf("expected eval errors, got graph=%v errs=%v", g != nil, evalErrs)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "texture: unknown keyword"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "unknown keyword") {
		t.Errorf("Error() = %q", s)
	}
	if s := (EvalError{Message: "no location"}).Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line = %q", s)
	}
}

func TestWithTimeout(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want time.Duration
	}{
		{"default", nil, DefaultTimeout},
		{"custom", []Option{WithTimeout(time.Second)}, time.Second},
		{"zero keeps default", []Option{WithTimeout(0)}, DefaultTimeout},
		{"negative keeps default", []Option{WithTimeout(-time.Second)}, DefaultTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewEngine(tt.opts...).Timeout(); got != tt.want {
				t.Errorf("Timeout() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluateRunawayPatternLoopTimesOut(t *testing.T) {
	eng := NewEngine(WithTimeout(100 * time.Millisecond))

	start := time.Now()
	_, _, err := eng.Evaluate(`(for [() true ()] (linear :thickness 1 :spacing 3 :height 1))`)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}

	// The abandoned program fails at its next builtin call; give it a
	// moment to exit before starting another sandbox.
	time.Sleep(50 * time.Millisecond)

	res := eng.Check(`(for [() true ()] (box 1 1 1))`)
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "timed out") {
		t.Errorf("Check errors = %v, want one timeout", res.Errors)
	}
}

func TestWatchdogStopsBuiltins(t *testing.T) {
	wd := newWatchdog(time.Second)
	calls := 0
	fn := wd.guard(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		calls++
		return zygo.SexpNull, nil
	})

	if _, err := fn(nil, "brick", nil); err != nil {
		t.Fatalf("before firing: %v", err)
	}
	wd.fired.Store(true)
	_, err := fn(nil, "brick", nil)
	if !errors.Is(err, ErrTimeout) || !strings.Contains(err.Error(), "brick") {
		t.Errorf("after firing: err = %v", err)
	}
	if calls != 1 {
		t.Errorf("builtin ran %d times, want 1", calls)
	}
}

func TestWaitTimesOut(t *testing.T) {
	e := &Engine{generation: 1}
	wd := newWatchdog(20 * time.Millisecond)

	_, _, err := e.wait(make(chan evalResult), 1, wd)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !wd.fired.Load() {
		t.Error("watchdog should fire on timeout")
	}
}

func TestWaitDiscardsStaleGeneration(t *testing.T) {
	e := &Engine{generation: 2}
	ch := make(chan evalResult, 1)
	ch <- evalResult{graph: graph.New()}

	if _, _, err := e.wait(ch, 1, newWatchdog(time.Second)); !errors.Is(err, ErrSuperseded) {
		t.Errorf("err = %v, want ErrSuperseded", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: texture: no solid named \"wall\"\n", 5, "no solid named"},
		{"no line info", "brick: brick_width must be positive", 0, "brick_width"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestCheckReportsWarnings(t *testing.T) {
	res := NewEngine().Check(`(translate (box 10 10 10) :by (vec3 0 0 0))`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Graph == nil {
		t.Fatal("expected graph")
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "no effect") {
		t.Errorf("warnings = %v, want one identity-translate warning", res.Warnings)
	}
}

func TestCheckReportsGeometryErrors(t *testing.T) {
	res := NewEngine().Check(`(defsolid "flat" (box 10 0 10))`)
	if res.Graph != nil {
		t.Error("graph should be withheld when validation fails")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Message, "dimension Y") {
		t.Errorf("errors = %v", res.Errors)
	}
}
