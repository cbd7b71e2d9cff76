// Command relief evaluates a relief program and writes the textured
// meshes as JSON.
//
// Usage:
//
//	relief [flags] program.relief
//
// The program is read from standard input when the path is "-".
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/relief/pkg/engine"
	"github.com/chazu/relief/pkg/kernel/sdfx"
	"github.com/chazu/relief/pkg/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "relief:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("relief", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "write mesh JSON to `file` instead of stdout")
	cacheDir := fs.String("cache", "", "texture cache `dir` (used by forms with :cache-key)")
	dxf := fs.String("dxf", "", "write a flat DXF layout preview to `file` and skip meshing")
	cells := fs.Int("mesh-cells", 200, "marching cubes resolution along the longest axis")
	timeout := fs.Duration("timeout", engine.DefaultTimeout, "abandon programs that run longer than this")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one program path, got %d", fs.NArg())
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	source, err := readSource(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	app := NewApp(
		WithKernel(sdfx.New(sdfx.WithMeshCells(*cells))),
		WithCacheDir(*cacheDir),
		WithEvalTimeout(*timeout),
	)
	if *dxf != "" {
		return app.Preview(source, *dxf)
	}

	result := app.Evaluate(source)
	for _, w := range result.Warnings {
		logging.Logger().Warn("program warning", "msg", w.Message)
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d error(s), first: %s", len(result.Errors), result.Errors[0].Message)
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading program: %w", err)
	}
	return string(b), nil
}
