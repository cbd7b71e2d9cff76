package main

import (
	"fmt"
	"time"

	"github.com/chazu/relief/pkg/cache"
	"github.com/chazu/relief/pkg/engine"
	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/kernel/sdfx"
	"github.com/chazu/relief/pkg/logging"
	"github.com/chazu/relief/pkg/preview"
	"github.com/chazu/relief/pkg/tessellate"
	"github.com/chazu/relief/pkg/texture"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs relief programs: Lisp source in, textured meshes out.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	cache    *cache.Cache
	texturer *texture.Texturer
}

// AppOption configures an App.
type AppOption func(*appConfig)

type appConfig struct {
	kernel   kernel.Kernel
	cacheDir string
	timeout  time.Duration
}

// WithKernel replaces the default sdfx kernel.
func WithKernel(k kernel.Kernel) AppOption {
	return func(c *appConfig) { c.kernel = k }
}

// WithCacheDir persists texture geometry under dir. Only texture forms
// with a :cache-key use it.
func WithCacheDir(dir string) AppOption {
	return func(c *appConfig) { c.cacheDir = dir }
}

// WithEvalTimeout limits how long a program may run before it is abandoned.
func WithEvalTimeout(d time.Duration) AppOption {
	return func(c *appConfig) { c.timeout = d }
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// CacheData reports texture cache traffic for one run.
type CacheData struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Writes   int64 `json:"writes"`
	Failures int64 `json:"failures"`
}

// EvalResult is the full result of running a program.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Cache    *CacheData      `json:"cache,omitempty"`
}

// NewApp creates a new App with an engine and, unless overridden, the
// sdfx kernel.
func NewApp(opts ...AppOption) *App {
	var cfg appConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.kernel == nil {
		cfg.kernel = sdfx.New()
	}

	a := &App{
		engine: engine.NewEngine(engine.WithTimeout(cfg.timeout)),
		kernel: cfg.kernel,
	}
	var txOpts []texture.Option
	if cfg.cacheDir != "" {
		a.cache = cache.New(cache.NewDirStore(cfg.cacheDir), cfg.kernel)
		txOpts = append(txOpts, texture.WithCache(a.cache))
	}
	a.texturer = texture.New(cfg.kernel, txOpts...)
	return a
}

// Evaluate takes Lisp source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	log := logging.Logger()

	// Step 1: Evaluate the Lisp source into a program graph.
	checked := a.engine.Check(source)
	for _, w := range checked.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	if len(checked.Errors) > 0 {
		for _, e := range checked.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Build, texture and tessellate the graph into triangle meshes.
	meshes, err := tessellate.Tessellate(checked.Graph, a.kernel, tessellate.WithTexturer(a.texturer))
	if err != nil {
		log.Error("tessellation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	// Step 3: Convert kernel meshes to the output format.
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}

	if a.cache != nil {
		st := a.cache.Stats()
		result.Cache = &CacheData{Hits: st.Hits, Misses: st.Misses, Writes: st.Writes, Failures: st.Failures}
	}
	return result
}

// Preview writes the flat layout of every textured face in source to a
// DXF file at path. No boolean geometry is built.
func (a *App) Preview(source, path string) error {
	checked := a.engine.Check(source)
	if len(checked.Errors) > 0 {
		return fmt.Errorf("preview: %w", checked.Errors[0])
	}
	layouts, err := tessellate.Layouts(checked.Graph, a.kernel, tessellate.WithTexturer(a.texturer))
	if err != nil {
		return err
	}
	return preview.WriteDXF(path, layouts)
}
