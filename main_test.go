package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunReadsStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(`(defsolid "cube" (box 5 5 5))`)

	if err := run([]string{"-mesh-cells", "20", "-"}, stdin, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}

	var result EvalResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].PartName != "cube" {
		t.Errorf("expected one mesh named cube, got %d meshes", len(result.Meshes))
	}
}

func TestRunWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	prog := filepath.Join(dir, "slab.relief")
	if err := os.WriteFile(prog, []byte(`(defsolid "slab" (box 10 10 2))`), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "slab.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-mesh-cells", "20", "-o", out, prog}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Error("nothing should be written to stdout with -o")
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Contains(b, []byte(`"partName":"slab"`)) {
		t.Errorf("output does not name the slab: %.80s", b)
	}
}

func TestRunReportsProgramErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader(`(defsolid "bad" (box 0 1 1))`)

	err := run([]string{"-"}, stdin, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected an error for an invalid program")
	}

	// The JSON result is still written so callers can show every error.
	var result EvalResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(result.Errors) == 0 {
		t.Error("expected errors in the JSON result")
	}
}

func TestRunDXFPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.dxf")
	stdin := strings.NewReader(`
(defsolid "slab" (box 20 20 4))
(texture "slab" (hex-grid :diameter 6 :height 1 :side-thickness 1 :edge-width 0.5) :faces ">Z")`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-dxf", path, "-"}, stdin, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("preview not written: %v", err)
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(nil, nil, &stdout, &stderr); err == nil {
		t.Fatal("expected an error without a program path")
	}
	if !strings.Contains(stderr.String(), "-cache") {
		t.Error("usage should list the flags")
	}
}
