package main

import (
	"os"
	"strings"
	"testing"

	"github.com/chazu/relief/pkg/kernel/sdfx"
)

func testApp(opts ...AppOption) *App {
	opts = append([]AppOption{WithKernel(sdfx.New(sdfx.WithMeshCells(40), sdfx.WithVolumeStep(0.5)))}, opts...)
	return NewApp(opts...)
}

// TestE2ETexturedExample exercises the full pipeline: Lisp source → engine →
// graph → texturing → tessellate → meshes.
func TestE2ETexturedExample(t *testing.T) {
	app := testApp()

	source, err := os.ReadFile("examples/textured_block.relief")
	if err != nil {
		t.Fatalf("failed to read textured_block.relief: %v", err)
	}

	result := app.Evaluate(string(source))

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	// The honeycomb-topped block and the translated roof slab.
	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(result.Meshes))
	}

	expectedParts := map[string]bool{
		"block-top": false,
		"roof":      false,
	}
	for _, m := range result.Meshes {
		if _, ok := expectedParts[m.PartName]; !ok {
			t.Errorf("unexpected part name: %q", m.PartName)
			continue
		}
		expectedParts[m.PartName] = true

		if len(m.Vertices) == 0 {
			t.Errorf("part %q: no vertices", m.PartName)
		}
		if len(m.Normals) != len(m.Vertices) {
			t.Errorf("part %q: %d normals for %d vertex floats", m.PartName, len(m.Normals), len(m.Vertices))
		}
		if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
			t.Errorf("part %q: index count %d is not a positive multiple of 3", m.PartName, len(m.Indices))
		}
		if m.Color == "" {
			t.Errorf("part %q: no color assigned", m.PartName)
		}
	}
	for name, found := range expectedParts {
		if !found {
			t.Errorf("missing expected part: %q", name)
		}
	}
	if result.Cache != nil {
		t.Error("cache stats reported without a cache dir")
	}
}

func TestE2EEmptySource(t *testing.T) {
	app := testApp()
	result := app.Evaluate("")

	if len(result.Errors) != 0 {
		t.Errorf("expected no errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes for empty source, got %d", len(result.Meshes))
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := testApp()
	result := app.Evaluate("(defsolid \"broken\"")

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one error for unbalanced source")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes on syntax error, got %d", len(result.Meshes))
	}
}

func TestE2ESingleBox(t *testing.T) {
	app := testApp()
	result := app.Evaluate(`(defsolid "slab" (box 20 10 4))`)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(result.Meshes))
	}
	m := result.Meshes[0]
	if m.PartName != "slab" {
		t.Errorf("expected part name %q, got %q", "slab", m.PartName)
	}
	if m.Color != colorPalette[0] {
		t.Errorf("expected first palette color, got %q", m.Color)
	}
}

func TestE2ECacheStats(t *testing.T) {
	source := `
(defsolid "tile" (box 20 20 4))
(texture "tile" (linear :thickness 1 :spacing 4 :height 1) :faces ">Z" :cache-key "tile-lines")`

	dir := t.TempDir()

	first := testApp(WithCacheDir(dir)).Evaluate(source)
	if len(first.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", first.Errors)
	}
	if first.Cache == nil {
		t.Fatal("expected cache stats with a cache dir")
	}
	if first.Cache.Writes != 1 || first.Cache.Hits != 0 {
		t.Errorf("first run: got %+v, want one write and no hits", *first.Cache)
	}

	// A fresh app over the same directory reads the stored solid back.
	second := testApp(WithCacheDir(dir)).Evaluate(source)
	if len(second.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", second.Errors)
	}
	if second.Cache.Hits != 1 || second.Cache.Writes != 0 {
		t.Errorf("second run: got %+v, want one hit and no writes", *second.Cache)
	}
	if len(second.Meshes) != 1 || len(second.Meshes[0].Indices) == 0 {
		t.Error("cached run produced no geometry")
	}
}

func TestE2EPreviewWritesDXF(t *testing.T) {
	app := testApp()
	source := `
(defsolid "panel" (box 30 20 5))
(texture "panel" (brick :brick-width 6 :brick-height 3 :spacing 1 :depth 1) :faces ">Z")`

	path := t.TempDir() + "/panel.dxf"
	if err := app.Preview(source, path); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading preview: %v", err)
	}
	for _, want := range []string{"BOUNDARY", "CELLS", "LINE"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("preview is missing %q", want)
		}
	}
}

func TestE2EPreviewRejectsBadSource(t *testing.T) {
	app := testApp()
	if err := app.Preview(`(defsolid "flat" (box 1 0 1))`, t.TempDir()+"/bad.dxf"); err == nil {
		t.Fatal("expected an error for a zero dimension box")
	}
}
