// Package demux drives the engine end to end: iterative refinement of
// the error model over the observed corpus, then a stricter final pass
// that produces the assignment map and summary statistics.
package demux

import (
	"fmt"
	"math"
	"runtime"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/corpus"
	"github.com/demuxlab/barcodex/pkg/errmodel"
	"github.com/demuxlab/barcodex/pkg/match"
)

// Options collects the engine's thresholds. Refinement and assignment
// run the same matcher with different strictness: assignment thresholds
// are typically several orders of magnitude tighter.
type Options struct {
	RefinePasses  int
	RefineHamming int
	RefineRatio   float64
	RefineProb    float64

	AssignHamming int
	AssignRatio   float64
	AssignProb    float64

	// RelaxCount: refinement records below this read depth are matched
	// with relaxed thresholds (ratio/4, probability/8) so marginal
	// evidence still shapes the model.
	RelaxCount int64

	// MinCount: assignment skips records below this read depth.
	MinCount int64

	// SpoofReads is the pseudocount in the frequency update.
	SpoofReads int64

	// MaxThreads caps the worker pool; 0 means GOMAXPROCS. Workers are
	// only forked when |corpus|*|set| reaches WorkThreshold candidate
	// scorings.
	MaxThreads    int
	WorkThreshold int64

	// TileMode fits per-tile matrices from records that carry tile ids.
	TileMode bool

	// Match carries the stage-independent matcher knobs (scoring mode,
	// hybrid fast path, exact-match rescue).
	Match match.Options
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		RefinePasses:  5,
		RefineHamming: 6,
		RefineRatio:   20,
		RefineProb:    1e-12,
		AssignHamming: 6,
		AssignRatio:   1e6,
		AssignProb:    math.Pow(10, -5.6),
		RelaxCount:    2,
		MinCount:      1,
		SpoofReads:    4,
		MaxThreads:    0,
		WorkThreshold: 1 << 22,
		TileMode:      false,
		Match:         match.DefaultOptions(),
	}
}

// Engine owns the matchers for both stages. The model is refined in
// place by Refine and read-only during Assign.
type Engine struct {
	set    *barcode.Set
	model  *errmodel.Model
	opts   Options
	index  map[*barcode.Barcode]int
	refine *match.Matcher
	assign *match.Matcher
}

// New builds an engine. Construction fails on invalid options; the set
// must already contain any synthesized unexpected combinations, because
// the barcode index is frozen here.
func New(set *barcode.Set, model *errmodel.Model, opts Options) (*Engine, error) {
	if opts.RefinePasses < 0 {
		return nil, fmt.Errorf("negative refinement pass count %d", opts.RefinePasses)
	}
	if opts.SpoofReads < 0 {
		return nil, fmt.Errorf("negative pseudocount %d", opts.SpoofReads)
	}

	mo := opts.Match
	mo.MaxHamming, mo.MinRatio, mo.MinProb = opts.RefineHamming, opts.RefineRatio, opts.RefineProb
	refine, err := match.New(set, model, mo)
	if err != nil {
		return nil, err
	}
	mo.MaxHamming, mo.MinRatio, mo.MinProb = opts.AssignHamming, opts.AssignRatio, opts.AssignProb
	assign, err := match.New(set, model, mo)
	if err != nil {
		return nil, err
	}

	index := make(map[*barcode.Barcode]int, len(set.All()))
	for i, b := range set.All() {
		index[b] = i
	}

	return &Engine{
		set:    set,
		model:  model,
		opts:   opts,
		index:  index,
		refine: refine,
		assign: assign,
	}, nil
}

// prepared is a corpus record with its query validated and encoded once,
// so refinement passes do not redo the work.
type prepared struct {
	rec   corpus.Record
	query match.Query
	ok    bool
}

func (e *Engine) prepare(recs []corpus.Record) ([]prepared, error) {
	prep := make([]prepared, len(recs))
	for i, rec := range recs {
		if rec.Count < 0 {
			return nil, fmt.Errorf("record %d (%s): negative read count %d", i, rec.Seq, rec.Count)
		}
		if rec.Tile < 0 {
			return nil, fmt.Errorf("record %d (%s): negative tile %d", i, rec.Seq, rec.Tile)
		}
		prep[i].rec = rec
		q, err := e.refine.Prepare(rec.Seq)
		if err == nil {
			prep[i].query = q
			prep[i].ok = true
		}
	}
	return prep, nil
}

// threads picks the worker count for a pass: 1 below the work threshold,
// otherwise the parallelism cap. Worker partials are merged in worker
// order, so the categorical outcome does not depend on the choice.
func (e *Engine) threads(nrecs int) int {
	work := int64(nrecs) * int64(len(e.set.All()))
	if work < e.opts.WorkThreshold {
		return 1
	}
	n := runtime.GOMAXPROCS(0)
	if e.opts.MaxThreads > 0 && n > e.opts.MaxThreads {
		n = e.opts.MaxThreads
	}
	if n > nrecs {
		n = nrecs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// split partitions records into n contiguous slices.
func split(prep []prepared, n int) [][]prepared {
	parts := make([][]prepared, 0, n)
	chunk := (len(prep) + n - 1) / n
	for lo := 0; lo < len(prep); lo += chunk {
		hi := lo + chunk
		if hi > len(prep) {
			hi = len(prep)
		}
		parts = append(parts, prep[lo:hi])
	}
	return parts
}

func (e *Engine) tileOf(rec corpus.Record) int {
	if !e.opts.TileMode {
		return 0
	}
	return rec.Tile
}
