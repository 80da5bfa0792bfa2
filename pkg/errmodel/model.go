package errmodel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/nuc"
)

// Options are the model's fixed parameters. They are validated once by
// New; the engine never reads configuration from anywhere else.
type Options struct {
	// CorrectProb seeds the diagonal before any fitting.
	CorrectProb float64

	// ExpectedFreq and UnexpectedFreq seed barcode priors before the
	// first refinement pass recomputes them from counts.
	ExpectedFreq   float64
	UnexpectedFreq float64

	// ProbFloor bounds every fitted probability from below;
	// CorrectFloor bounds the diagonal. Zero cells would make scores
	// collapse to exactly zero and break the ambiguity ratio test.
	ProbFloor    float64
	CorrectFloor float64

	// TileWeight is the weight of a tile-specific matrix when blended
	// with the global one.
	TileWeight float64
}

// DefaultOptions returns the parameters the engine ships with.
func DefaultOptions() Options {
	return Options{
		CorrectProb:    0.99,
		ExpectedFreq:   0.5,
		UnexpectedFreq: 1e-3,
		ProbFloor:      1e-4,
		CorrectFloor:   0.5,
		TileWeight:     3,
	}
}

type probMatrix [][nuc.NumObserved][nuc.NumReference]float64

// Model is the position-specific substitution probability matrix, plus
// lazily allocated per-tile matrices. Scoring borrows the matrices under
// a read lock; Init, Fit and Reset take the write lock. The raw arrays
// never leave the struct.
type Model struct {
	mu    sync.RWMutex
	set   *barcode.Set
	opts  Options
	probs probMatrix
	tiles map[int]probMatrix
}

// New validates the options against the set and returns an initialized
// model. Validation failures are fatal: no partially initialized model is
// ever returned.
func New(set *barcode.Set, opts Options) (*Model, error) {
	if set == nil || len(set.All()) == 0 {
		return nil, errors.New("error model needs a non-empty reference set")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"correct-call probability", opts.CorrectProb},
		{"expected frequency", opts.ExpectedFreq},
		{"unexpected frequency", opts.UnexpectedFreq},
		{"probability floor", opts.ProbFloor},
		{"correct-call floor", opts.CorrectFloor},
	} {
		if p.v < 0 || p.v > 1 {
			return nil, fmt.Errorf("%s %v outside [0,1]", p.name, p.v)
		}
	}
	if opts.TileWeight < 0 {
		return nil, fmt.Errorf("tile weight %v negative", opts.TileWeight)
	}

	m := &Model{
		set:   set,
		opts:  opts,
		probs: make(probMatrix, set.Layout().SeqLen()),
		tiles: make(map[int]probMatrix),
	}
	m.Init()
	return m, nil
}

// Len returns the number of positions the model covers.
func (m *Model) Len() int {
	return len(m.probs)
}

// Options returns the model's parameters.
func (m *Model) Options() Options {
	return m.opts
}

// Init sets the uniform prior: CorrectProb on the diagonal,
// (1-CorrectProb)/3 elsewhere, and seeds every barcode's frequency from
// its expected flag. Rows for observed N get a flat 1/4: an uncalled
// cycle says nothing about the reference base.
func (m *Model) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initLocked(m.probs)
	m.tiles = make(map[int]probMatrix)

	for _, b := range m.set.All() {
		if b.Expected {
			b.SetFreq(m.opts.ExpectedFreq)
		} else {
			b.SetFreq(m.opts.UnexpectedFreq)
		}
	}
}

func (m *Model) initLocked(probs probMatrix) {
	mis := (1 - m.opts.CorrectProb) / 3
	for p := range probs {
		for o := 0; o < nuc.NumObserved; o++ {
			for r := 0; r < nuc.NumReference; r++ {
				switch {
				case o == nuc.N:
					probs[p][o][r] = 0.25
				case o == r:
					probs[p][o][r] = m.opts.CorrectProb
				default:
					probs[p][o][r] = mis
				}
			}
		}
	}
}

// Fit recomputes the global matrix from counts: per position and observed
// base, p(ref) = (count+1)/(rowSum+1) over the four real reference
// columns, clamped to the floors. The Unassigned column contributes
// nothing.
func (m *Model) Fit(counts *CountMatrix) error {
	if counts.Len() != m.Len() {
		return fmt.Errorf("count matrix covers %d positions, model %d", counts.Len(), m.Len())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fitInto(m.probs, counts, m.opts)
	return nil
}

// FitTile recomputes (allocating on first use) the matrix for one tile.
func (m *Model) FitTile(tile int, counts *CountMatrix) error {
	if tile <= 0 {
		return fmt.Errorf("invalid tile id %d", tile)
	}
	if counts.Len() != m.Len() {
		return fmt.Errorf("count matrix covers %d positions, model %d", counts.Len(), m.Len())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	probs, ok := m.tiles[tile]
	if !ok {
		probs = make(probMatrix, m.Len())
		m.tiles[tile] = probs
	}
	fitInto(probs, counts, m.opts)
	return nil
}

func fitInto(probs probMatrix, counts *CountMatrix, opts Options) {
	for p := range probs {
		for o := 0; o < nuc.NumObserved; o++ {
			var sum int64
			for r := 0; r < nuc.NumReference; r++ {
				sum += counts.Get(p, o, r)
			}
			for r := 0; r < nuc.NumReference; r++ {
				v := float64(counts.Get(p, o, r)+1) / float64(sum+1)
				if o == r && v < opts.CorrectFloor {
					v = opts.CorrectFloor
				}
				if v < opts.ProbFloor {
					v = opts.ProbFloor
				}
				probs[p][o][r] = v
			}
		}
	}
}

// Score returns the probability of observing query given the reference,
// as the product of per-position cell probabilities. off positions the
// query within the matrix. The slices must be equal length and in range;
// callers guarantee that.
func (m *Model) Score(query, ref []byte, off int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return score(m.probs, query, ref, off)
}

// ScoreTile scores against the tile matrix blended with the global one,
// weighted TileWeight:1. A tile with no fitted matrix falls back to the
// global matrix.
func (m *Model) ScoreTile(tile int, query, ref []byte, off int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tp, ok := m.tiles[tile]
	if !ok {
		return score(m.probs, query, ref, off)
	}

	w := m.opts.TileWeight
	s := 1.0
	for i := range query {
		g := m.probs[off+i][query[i]][ref[i]]
		t := tp[off+i][query[i]][ref[i]]
		s *= (w*t + g) / (w + 1)
	}
	return s
}

func score(probs probMatrix, query, ref []byte, off int) float64 {
	s := 1.0
	for i := range query {
		s *= probs[off+i][query[i]][ref[i]]
	}
	return s
}

// HasTile reports whether a tile has its own fitted matrix.
func (m *Model) HasTile(tile int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tiles[tile]
	return ok
}

// Prob returns one global cell. Exposed for dumps and tests.
func (m *Model) Prob(pos, obs, ref int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.probs[pos][obs][ref]
}
