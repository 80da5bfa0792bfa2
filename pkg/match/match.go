// Package match finds the best reference barcode for an observed query
// under the learned error model, rejecting ambiguous and low-confidence
// calls. "No acceptable match" is a normal outcome, reported by the ok
// return, never an error.
package match

import (
	"fmt"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/errmodel"
	"github.com/demuxlab/barcodex/pkg/nuc"
)

// Options are the matcher's rejection thresholds and fast-path knobs.
type Options struct {
	// MaxHamming caps the distance between a query and the reference it
	// resolves to. In dual mode the cap applies to each segment.
	MaxHamming int

	// MinRatio rejects a call as ambiguous when
	// competing*MinRatio >= best.
	MinRatio float64

	// MinProb rejects a call whose mode-scaled best score is below it.
	MinProb float64

	// ScoringMode selects what MinProb is compared against:
	// 0 the raw model probability, 1 probability*frequency (the score
	// itself), 2 probability*frequency^2.
	ScoringMode int

	// HybridDist enables the fast near-match path for queries within
	// this Hamming distance of a reference; 0 disables it.
	HybridDist int

	// Clearzone is the margin the runner-up must trail the nearest
	// reference by for the fast path to take the call.
	Clearzone int

	// MinExpectedScore is averaged into the score of a query that is a
	// literal expected combination (dual mode), rescuing true positives
	// crowded by close competitors.
	MinExpectedScore float64

	// ExactRatioScale scales MinRatio for those literal matches.
	ExactRatioScale float64
}

// DefaultOptions returns the refinement-stage thresholds.
func DefaultOptions() Options {
	return Options{
		MaxHamming:       6,
		MinRatio:         20,
		MinProb:          1e-12,
		ScoringMode:      1,
		HybridDist:       1,
		Clearzone:        2,
		MinExpectedScore: 2.5e-6,
		ExactRatioScale:  0.01,
	}
}

// Result is an accepted call.
type Result struct {
	Barcode *barcode.Barcode
	Score   float64
	Hamming int
}

// Matcher resolves queries against one reference set and model.
type Matcher struct {
	set   *barcode.Set
	model *errmodel.Model
	opts  Options
}

// New validates the options and builds a matcher.
func New(set *barcode.Set, model *errmodel.Model, opts Options) (*Matcher, error) {
	if set == nil || model == nil {
		return nil, fmt.Errorf("matcher needs a reference set and a model")
	}
	if opts.ScoringMode < 0 || opts.ScoringMode > 2 {
		return nil, fmt.Errorf("scoring mode %d not in {0,1,2}", opts.ScoringMode)
	}
	if opts.MaxHamming < 0 || opts.HybridDist < 0 || opts.Clearzone < 0 {
		return nil, fmt.Errorf("negative distance threshold")
	}
	if opts.MinRatio < 0 || opts.MinProb < 0 {
		return nil, fmt.Errorf("negative probability threshold")
	}
	return &Matcher{set: set, model: model, opts: opts}, nil
}

// Options returns the matcher's thresholds.
func (m *Matcher) Options() Options {
	return m.opts
}

// Query is a validated, encoded observed sequence, prepared once so that
// repeated refinement passes do not re-encode the corpus.
type Query struct {
	Seq   string // delimiter stripped
	codes []byte
	left  []byte
	right []byte
}

// Codes returns the encoded bases, delimiter excluded.
func (q *Query) Codes() []byte {
	return q.codes
}

// Prepare validates a raw observed sequence against the layout and
// encodes it. Length disagreement, a wrong delimiter byte, or a
// non-nucleotide byte make the query unmatchable.
func (m *Matcher) Prepare(seq string) (Query, error) {
	lay := m.set.Layout()
	if len(seq) != lay.QueryLen() {
		return Query{}, fmt.Errorf("query length %d, layout wants %d", len(seq), lay.QueryLen())
	}

	bare := seq
	if lay.Dual() && lay.Delim != 0 {
		if seq[lay.Len1] != lay.Delim {
			return Query{}, fmt.Errorf("query delimiter %q, layout wants %q", seq[lay.Len1], lay.Delim)
		}
		bare = seq[:lay.Len1] + seq[lay.Len1+1:]
	}

	codes, err := nuc.Encode(bare)
	if err != nil {
		return Query{}, err
	}

	q := Query{Seq: bare, codes: codes}
	if lay.Dual() {
		q.left = codes[:lay.Len1]
		q.right = codes[lay.Len1:]
	}
	return q, nil
}

// Find resolves a prepared query, returning the accepted call and true,
// or a zero Result and false when no reference passes the thresholds.
// tile selects the tile-specific matrix when the model has one; 0 scores
// against the global matrix.
func (m *Matcher) Find(q *Query, tile int) (Result, bool) {
	return m.find(q, tile, m.opts.MaxHamming, m.opts.MinRatio, m.opts.MinProb)
}

// FindWith resolves with caller-supplied thresholds in place of the
// configured ones. The refinement loop uses it to relax thresholds for
// low-depth records; the hybrid fast-path and scoring-mode knobs still
// come from the matcher's options.
func (m *Matcher) FindWith(q *Query, tile, maxHamming int, minRatio, minProb float64) (Result, bool) {
	return m.find(q, tile, maxHamming, minRatio, minProb)
}

func (m *Matcher) find(q *Query, tile, maxHamming int, minRatio, minProb float64) (Result, bool) {
	if res, ok, done := m.hybrid(q, tile, maxHamming, minRatio, minProb); done {
		return res, ok
	}
	if m.set.Layout().Dual() {
		return m.findDual(q, tile, maxHamming, minRatio, minProb)
	}
	return m.findSingle(q, tile, maxHamming, minRatio, minProb)
}

func (m *Matcher) score(tile int, query, ref []byte, off int) float64 {
	if tile > 0 {
		return m.model.ScoreTile(tile, query, ref, off)
	}
	return m.model.Score(query, ref, off)
}

// findSingle scores every reference as model probability times the
// barcode's frequency prior. competing accumulates the previous best
// whenever a new best overtakes it, and every non-best score as it is
// seen: an order-dependent approximation of the competing probability
// mass, kept as-is because the rejection thresholds were tuned against
// it.
func (m *Matcher) findSingle(q *Query, tile, maxHamming int, minRatio, minProb float64) (Result, bool) {
	var best *barcode.Barcode
	bestScore, bestProb, competing := 0.0, 0.0, 0.0

	for _, b := range m.set.All() {
		p := m.score(tile, q.codes, b.Codes, 0)
		s := p * b.Freq()
		if s > bestScore {
			competing += bestScore
			bestScore, bestProb, best = s, p, b
		} else {
			competing += s
		}
	}

	if best == nil {
		return Result{}, false
	}
	if competing*minRatio >= bestScore {
		return Result{}, false
	}
	d := nuc.Hamming(q.codes, best.Codes)
	if d > maxHamming {
		return Result{}, false
	}
	if m.modeScore(bestProb, bestScore, best) < minProb {
		return Result{}, false
	}

	return Result{Barcode: best, Score: bestScore, Hamming: d}, true
}

func (m *Matcher) modeScore(prob, score float64, b *barcode.Barcode) float64 {
	switch m.opts.ScoringMode {
	case 0:
		return prob
	case 2:
		return score * b.Freq()
	default:
		return score
	}
}
