// Package merge reduces many solids into one by batched tree reduction.
//
// Each round splits the current list into consecutive batches, folds every
// batch into one solid with sequential unions, and runs the batches of the
// round concurrently on a bounded pool. The outputs, in batch order, form
// the next round's input until a single solid remains. A batch whose union
// fails passes its members through unmerged; a round in which nothing
// merges ends the reduction with ErrMergeStalled.
package merge

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/chazu/relief/pkg/kernel"
	"github.com/chazu/relief/pkg/logging"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of solids folded per batch.
const DefaultBatchSize = 10

// ErrMergeStalled is returned when a full round fails to reduce the list.
var ErrMergeStalled = errors.New("merge: no batch could be merged")

// BatchFailure describes a batch whose union failed or panicked.
type BatchFailure struct {
	Round int
	Batch int
	Size  int
	Err   error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("merge: round %d batch %d (%d solids): %v", e.Round, e.Batch, e.Size, e.Err)
}

func (e *BatchFailure) Unwrap() error {
	return e.Err
}

// Stats reports what a merge did.
type Stats struct {
	Inputs        int
	Rounds        int
	Unions        int64
	FailedBatches int
	Workers       int
	Elapsed       time.Duration
}

type config struct {
	batchSize  int
	maxWorkers int
	stats      *Stats
}

// Option configures Merge.
type Option func(*config)

// WithBatchSize sets the batch size. Values below 2 are raised to 2, since
// smaller batches can never reduce the list.
func WithBatchSize(n int) Option {
	return func(c *config) {
		c.batchSize = max(n, 2)
	}
}

// WithMaxWorkers bounds the number of batches folded at once. Zero keeps
// the default of min(NumCPU, max(1, N/(2*batch))).
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithStats records merge statistics into s.
func WithStats(s *Stats) Option {
	return func(c *config) {
		c.stats = s
	}
}

// DefaultWorkers returns the worker count used for n solids in batches of
// batchSize.
func DefaultWorkers(n, batchSize int) int {
	return min(runtime.NumCPU(), max(1, n/(2*batchSize)))
}

// Merge unions shapes into a single solid. An empty input yields a nil
// solid and no error; a single input is returned unchanged.
func Merge(k kernel.Kernel, shapes []kernel.Solid, opts ...Option) (kernel.Solid, error) {
	cfg := config{batchSize: DefaultBatchSize}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxWorkers == 0 {
		cfg.maxWorkers = DefaultWorkers(len(shapes), cfg.batchSize)
	}
	st := cfg.stats
	if st == nil {
		st = &Stats{}
	}
	*st = Stats{Inputs: len(shapes), Workers: cfg.maxWorkers}
	start := time.Now()
	defer func() { st.Elapsed = time.Since(start) }()

	if len(shapes) == 0 {
		return nil, nil
	}

	log := logging.Logger()
	var unions atomic.Int64
	current := append([]kernel.Solid(nil), shapes...)
	for len(current) > 1 {
		st.Rounds++
		batches := lo.Chunk(current, cfg.batchSize)
		outputs := make([][]kernel.Solid, len(batches))
		failures := make([]*BatchFailure, len(batches))

		var g errgroup.Group
		g.SetLimit(cfg.maxWorkers)
		for i, batch := range batches {
			g.Go(func() error {
				out, err := fold(k, batch, &unions)
				if err != nil {
					failures[i] = &BatchFailure{Round: st.Rounds, Batch: i, Size: len(batch), Err: err}
					outputs[i] = batch
					return nil
				}
				outputs[i] = []kernel.Solid{out}
				return nil
			})
		}
		_ = g.Wait()

		var last *BatchFailure
		for _, f := range failures {
			if f == nil {
				continue
			}
			st.FailedBatches++
			last = f
			log.Warn("merge batch failed, passing members through",
				"round", f.Round, "batch", f.Batch, "size", f.Size, "err", f.Err)
		}

		next := lo.Flatten(outputs)
		log.Debug("merge round complete",
			"round", st.Rounds, "in", len(current), "out", len(next), "batches", len(batches))
		if len(next) >= len(current) {
			st.Unions = unions.Load()
			if last != nil {
				return nil, fmt.Errorf("%w: %w", ErrMergeStalled, last)
			}
			return nil, ErrMergeStalled
		}
		current = next
	}
	st.Unions = unions.Load()
	return current[0], nil
}

// fold unions a batch left to right. Panics from the kernel are reported
// as errors so one bad batch cannot take down the pool.
func fold(k kernel.Kernel, batch []kernel.Solid, unions *atomic.Int64) (out kernel.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic during union: %v", r)
		}
	}()
	acc := batch[0]
	for _, s := range batch[1:] {
		acc, err = k.Union(acc, s)
		unions.Add(1)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
