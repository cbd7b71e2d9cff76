package texture

import (
	"time"

	"github.com/chazu/relief/pkg/cache"
	"github.com/chazu/relief/pkg/frame"
	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/layout"
	"github.com/chazu/relief/pkg/logging"
	"github.com/chazu/relief/pkg/merge"
	"github.com/samber/lo"
)

// Texturer applies patterns to solids through a kernel.
type Texturer struct {
	k         kernel.Kernel
	cache     *cache.Cache
	mergeOpts []merge.Option
}

// Option configures a Texturer.
type Option func(*Texturer)

// WithCache memoizes textures applied with a cache key.
func WithCache(c *cache.Cache) Option {
	return func(t *Texturer) {
		t.cache = c
	}
}

// WithMergeOptions passes options to every merge the texturer runs.
func WithMergeOptions(opts ...merge.Option) Option {
	return func(t *Texturer) {
		t.mergeOpts = append(t.mergeOpts, opts...)
	}
}

// New returns a Texturer using k.
func New(k kernel.Kernel, opts ...Option) *Texturer {
	t := &Texturer{k: k}
	for _, o := range opts {
		o(t)
	}
	return t
}

type applyConfig struct {
	mode       Mode
	cacheTag   string
	faceSource kernel.Solid
}

// ApplyOption configures a single Apply call.
type ApplyOption func(*applyConfig)

// WithMode selects additive (default) or subtractive texturing.
func WithMode(m Mode) ApplyOption {
	return func(c *applyConfig) {
		c.mode = m
	}
}

// WithCacheKey enables the texture cache for the call. The tag is mixed
// into the key together with the pattern, mode and selected faces.
func WithCacheKey(tag string) ApplyOption {
	return func(c *applyConfig) {
		c.cacheTag = tag
	}
}

// WithFaceSource takes faces from s instead of the solid being textured.
// Booleans hide their faces, so a second texture on an already textured
// solid selects faces from the original primitive.
func WithFaceSource(s kernel.Solid) ApplyOption {
	return func(c *applyConfig) {
		c.faceSource = s
	}
}

// Apply stamps p onto the faces of solid picked by selector and returns
// the combined solid. A pattern that produces nothing returns solid
// unchanged.
func (t *Texturer) Apply(solid kernel.Solid, selector string, p Pattern, opts ...ApplyOption) (kernel.Solid, error) {
	var cfg applyConfig
	for _, o := range opts {
		o(&cfg)
	}
	if p == nil {
		return nil, invalid("pattern", "missing")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := logging.Logger().With("pattern", p.Kind(), "mode", cfg.mode.String())
	start := time.Now()

	source := solid
	if cfg.faceSource != nil {
		source = cfg.faceSource
	}
	all, err := t.k.Faces(source)
	if err != nil {
		return nil, &GeometryError{Face: -1, Stage: "faces", Err: err}
	}
	faces, err := Select(all, selector)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		log.Debug("selector matched no faces", "selector", selector)
		return solid, nil
	}

	var key cache.Key
	if t.cache != nil && cfg.cacheTag != "" {
		key, err = cache.NewKey(p.Kind(), p, int(cfg.mode), cfg.cacheTag, lo.Map(faces, func(f kernel.Face, _ int) fingerprint {
			return fingerprintOf(f)
		}))
		if err != nil {
			log.Warn("texture cache disabled for call", "err", err)
		} else if tex, ok := t.cache.Get(key); ok {
			return t.combine(solid, tex, cfg.mode)
		}
	}

	tex, err := t.Texture(faces, p, cfg.mode)
	if err != nil {
		return nil, err
	}
	if tex == nil {
		log.Debug("texture produced no geometry", "faces", len(faces))
		return solid, nil
	}
	if key != "" {
		t.cache.Put(key, tex)
	}
	out, err := t.combine(solid, tex, cfg.mode)
	if err != nil {
		return nil, err
	}
	log.Debug("texture applied", "faces", len(faces), "elapsed", time.Since(start))
	return out, nil
}

// Texture builds the merged texture geometry for faces without combining
// it with any solid. It returns nil when no face produced geometry.
func (t *Texturer) Texture(faces []kernel.Face, p Pattern, mode Mode) (kernel.Solid, error) {
	var offsets map[int]float64
	if len(faces) > 1 {
		offsets = ResolveContinuity(faces, p.ColumnPitch())
	}
	var parts []kernel.Solid
	for _, f := range faces {
		s, err := t.TextureFace(f, p, mode, offsets[f.Index])
		if err != nil {
			return nil, err
		}
		if s != nil {
			parts = append(parts, s)
		}
	}
	merged, err := merge.Merge(t.k, parts, t.mergeOpts...)
	if err != nil {
		return nil, &GeometryError{Face: -1, Stage: "merge faces", Err: err}
	}
	return merged, nil
}

// TextureFace generates, merges and clips p on a single face, shifted by
// phase along the frame's v axis.
func (t *Texturer) TextureFace(f kernel.Face, p Pattern, mode Mode, phase float64) (kernel.Solid, error) {
	st, j, err := t.stamp(f, p, mode, phase)
	if err != nil || st.Empty() {
		return nil, err
	}
	log := logging.Logger()

	var clipped kernel.Solid
	if len(st.Primitives) > 0 {
		raw, err := merge.Merge(t.k, st.Primitives, t.mergeOpts...)
		if err != nil {
			return nil, &GeometryError{Face: f.Index, Stage: "merge", Err: err}
		}
		clipped, err = Clip(t.k, f, j.frame, raw, st.Span)
		if err != nil {
			return nil, err
		}
	}
	parts := append(lo.Compact([]kernel.Solid{clipped}), st.Extras...)
	out, err := merge.Merge(t.k, parts, t.mergeOpts...)
	if err != nil {
		return nil, &GeometryError{Face: f.Index, Stage: "extras", Err: err}
	}
	log.Debug("face textured", "face", f.Index, "primitives", len(st.Primitives), "extras", len(st.Extras))
	return out, nil
}

// Layout runs p on a face and returns the frame-space outline of the face
// and of every generated cell, for previews.
func (t *Texturer) Layout(f kernel.Face, p Pattern, mode Mode) (*FaceLayout, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	st, j, err := t.stamp(f, p, mode, 0)
	if err != nil {
		return nil, err
	}
	return &FaceLayout{
		Face:     f.Index,
		Frame:    j.frame,
		Boundary: j.boundary().Points,
		Cells:    st.Footprints,
		Span:     st.Span,
	}, nil
}

func (t *Texturer) stamp(f kernel.Face, p Pattern, mode Mode, phase float64) (*Stamp, *faceJob, error) {
	fr, err := frame.ForFace(f, 0)
	if err != nil {
		return nil, nil, &GeometryError{Face: f.Index, Stage: "frame", Err: err}
	}
	j := &faceJob{
		k:     t.k,
		face:  f,
		frame: fr,
		mode:  mode,
		phase: phase,
		diag:  layout.Diagonal(f.BoundingBox()),
	}
	st, err := p.generate(j)
	if err != nil {
		return nil, nil, err
	}
	return st, j, nil
}

func (t *Texturer) combine(solid, tex kernel.Solid, mode Mode) (kernel.Solid, error) {
	var out kernel.Solid
	var err error
	if mode == Subtractive {
		out, err = t.k.Difference(solid, tex)
	} else {
		out, err = t.k.Union(solid, tex)
	}
	if err != nil {
		return nil, &GeometryError{Face: -1, Stage: "combine", Err: err}
	}
	return out, nil
}
