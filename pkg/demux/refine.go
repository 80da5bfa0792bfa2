package demux

import (
	"fmt"
	"os"
	"sync"

	"github.com/demuxlab/barcodex/pkg/corpus"
	"github.com/demuxlab/barcodex/pkg/errmodel"
)

// refinePartial is one worker's owned slice of the E-step: a private
// count matrix, private per-tile matrices, and private per-barcode
// assigned-read counts. Nothing here is shared while workers run; a
// single merge folds the partials after the join.
type refinePartial struct {
	counts   *errmodel.CountMatrix
	tiles    map[int]*errmodel.CountMatrix
	assigned []int64
	matched  int64
	total    int64
	err      error
}

// Refine runs the configured number of expectation/maximization passes
// over the corpus, updating the model's probability matrix and the
// barcode frequency priors in place. There is no convergence check: the
// pass count is fixed, which is empirically sufficient and keeps the
// cost predictable.
func (e *Engine) Refine(recs []corpus.Record) error {
	prep, err := e.prepare(recs)
	if err != nil {
		return err
	}

	for pass := 1; pass <= e.opts.RefinePasses; pass++ {
		matched, total, err := e.refinePass(prep)
		if err != nil {
			return fmt.Errorf("refinement pass %d: %v", pass, err)
		}
		fmt.Fprintf(os.Stderr, "refinement pass %d/%d: assigned %d of %d reads\n",
			pass, e.opts.RefinePasses, matched, total)
	}

	return nil
}

func (e *Engine) refinePass(prep []prepared) (matched, total int64, err error) {
	n := e.threads(len(prep))
	parts := split(prep, n)
	partials := make([]*refinePartial, len(parts))

	var wg sync.WaitGroup
	wg.Add(len(parts))
	for i := range parts {
		go func(i int) {
			defer wg.Done()
			partials[i] = e.refineWorker(parts[i])
		}(i)
	}
	wg.Wait()

	// exclusive merge and M-step; the next pass's E-step reads what is
	// written here
	counts := errmodel.NewCountMatrix(e.model.Len())
	tiles := make(map[int]*errmodel.CountMatrix)
	e.set.ResetCounts()
	for _, p := range partials {
		if p.err != nil {
			return 0, 0, p.err
		}
		if err := counts.Merge(p.counts); err != nil {
			return 0, 0, err
		}
		for t, tc := range p.tiles {
			if tiles[t] == nil {
				tiles[t] = errmodel.NewCountMatrix(e.model.Len())
			}
			if err := tiles[t].Merge(tc); err != nil {
				return 0, 0, err
			}
		}
		for bi, c := range p.assigned {
			if c != 0 {
				e.set.All()[bi].AddCount(c)
			}
		}
		matched += p.matched
		total += p.total
	}

	if err := e.model.Fit(counts); err != nil {
		return 0, 0, err
	}
	for t, tc := range tiles {
		if err := e.model.FitTile(t, tc); err != nil {
			return 0, 0, err
		}
	}
	e.updateFrequencies()

	return matched, total, nil
}

// refineWorker is the E-step over one contiguous slice of the corpus.
// Low-depth records are matched with relaxed thresholds so their
// evidence is not discarded purely for depth; every record, matched or
// not, lands in the count matrix (unmatched ones in the unassigned
// column).
func (e *Engine) refineWorker(part []prepared) *refinePartial {
	p := &refinePartial{
		counts:   errmodel.NewCountMatrix(e.model.Len()),
		assigned: make([]int64, len(e.set.All())),
	}
	if e.opts.TileMode {
		p.tiles = make(map[int]*errmodel.CountMatrix)
	}

	for i := range part {
		rec := part[i].rec
		p.total += rec.Count
		if !part[i].ok {
			continue
		}

		tile := e.tileOf(rec)
		maxH, ratio, prob := e.opts.RefineHamming, e.opts.RefineRatio, e.opts.RefineProb
		if rec.Count < e.opts.RelaxCount {
			ratio /= 4
			prob /= 8
		}

		res, ok := e.refine.FindWith(&part[i].query, tile, maxH, ratio, prob)

		var refCodes []byte
		if ok {
			refCodes = res.Barcode.Codes
			p.assigned[e.index[res.Barcode]] += rec.Count
			p.matched += rec.Count
		}
		p.counts.AddSeq(part[i].query.Codes(), refCodes, 0, rec.Count)
		if e.opts.TileMode && tile > 0 {
			tc := p.tiles[tile]
			if tc == nil {
				tc = errmodel.NewCountMatrix(e.model.Len())
				p.tiles[tile] = tc
			}
			tc.AddSeq(part[i].query.Codes(), refCodes, 0, rec.Count)
		}
	}

	return p
}

// updateFrequencies is the frequency half of the M-step:
// (count+spoof)/(maxCount+spoof), clamped by SetFreq.
func (e *Engine) updateFrequencies() {
	spoof := e.opts.SpoofReads
	max := e.set.MaxCount()
	for _, b := range e.set.All() {
		b.SetFreq(float64(b.Count()+spoof) / float64(max+spoof))
	}
}
