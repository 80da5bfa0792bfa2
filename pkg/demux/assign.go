package demux

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/demuxlab/barcodex/pkg/corpus"
	"github.com/demuxlab/barcodex/pkg/errmodel"
)

// Assignment is one accepted call with the detail the audit listing
// needs.
type Assignment struct {
	Seq     string
	Tile    int
	Name    string
	Hamming int
	Score   float64
	Count   int64

	expected bool
}

// Key is the assignment-map key for an observed sequence: the sequence
// itself, or sequence/tile when the record carries a tile.
func (a Assignment) Key() string {
	if a.Tile > 0 {
		return a.Seq + "/" + strconv.Itoa(a.Tile)
	}
	return a.Seq
}

// Result is the output of the final pass.
type Result struct {
	// Assignments maps observed key to expected barcode name. Chimeric
	// resolutions never appear here; they are counted in Stats only.
	Assignments map[string]string

	// Detail holds every accepted call, expected or not.
	Detail []Assignment

	// Counts is the substitution evidence of this pass, unmatched
	// records included.
	Counts *errmodel.CountMatrix

	Stats Stats
}

type assignPartial struct {
	counts   *errmodel.CountMatrix
	detail   []Assignment
	assigned []int64
	stats    Stats
	err      error
}

// Assign runs the final, non-iterative pass with the strict thresholds
// and returns the assignment map and statistics. The model is only read;
// per-barcode counters are reset and re-accumulated so the output
// listing reflects this pass alone.
func (e *Engine) Assign(recs []corpus.Record) (*Result, error) {
	prep, err := e.prepare(recs)
	if err != nil {
		return nil, err
	}

	n := e.threads(len(prep))
	parts := split(prep, n)
	partials := make([]*assignPartial, len(parts))

	var wg sync.WaitGroup
	wg.Add(len(parts))
	for i := range parts {
		go func(i int) {
			defer wg.Done()
			partials[i] = e.assignWorker(parts[i])
		}(i)
	}
	wg.Wait()

	// exclusive merge, in worker order
	res := &Result{
		Assignments: make(map[string]string),
		Counts:      errmodel.NewCountMatrix(e.model.Len()),
	}
	e.set.ResetCounts()
	for _, p := range partials {
		if p.err != nil {
			return nil, p.err
		}
		if err := res.Counts.Merge(p.counts); err != nil {
			return nil, err
		}
		for bi, c := range p.assigned {
			if c != 0 {
				e.set.All()[bi].AddCount(c)
			}
		}
		res.Detail = append(res.Detail, p.detail...)
		res.Stats.add(p.stats)
	}
	for _, a := range res.Detail {
		if a.expected {
			res.Assignments[a.Key()] = a.Name
		}
	}

	return res, nil
}

func (e *Engine) assignWorker(part []prepared) *assignPartial {
	p := &assignPartial{
		counts:   errmodel.NewCountMatrix(e.model.Len()),
		assigned: make([]int64, len(e.set.All())),
	}

	for i := range part {
		rec := part[i].rec
		p.stats.TotalCounted += rec.Count
		if !part[i].ok || rec.Count < e.opts.MinCount {
			continue
		}

		tile := e.tileOf(rec)
		res, ok := e.assign.Find(&part[i].query, tile)

		var refCodes []byte
		if ok {
			refCodes = res.Barcode.Codes
			p.assigned[e.index[res.Barcode]] += rec.Count
			p.stats.TotalAssigned += rec.Count
			if res.Barcode.Expected {
				p.stats.TotalAssignedToExpected += rec.Count
			}
			p.detail = append(p.detail, Assignment{
				Seq:      rec.Seq,
				Tile:     tile,
				Name:     res.Barcode.Name,
				Hamming:  res.Hamming,
				Score:    res.Score,
				Count:    rec.Count,
				expected: res.Barcode.Expected,
			})
		}
		p.counts.AddSeq(part[i].query.Codes(), refCodes, 0, rec.Count)
	}

	return p
}

// WriteAssignments writes the audit listing, sorted by sequence then
// tile: sequence, assigned name, Hamming distance, score, read count.
func (r *Result) WriteAssignments(w io.Writer) error {
	detail := make([]Assignment, len(r.Detail))
	copy(detail, r.Detail)
	slices.SortFunc(detail, func(a, b Assignment) bool {
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.Tile < b.Tile
	})

	if _, err := fmt.Fprintln(w, "sequence,assigned,hamming,score,count"); err != nil {
		return err
	}
	for _, a := range detail {
		if _, err := fmt.Fprintf(w, "%s,%s,%d,%g,%d\n",
			a.Key(), a.Name, a.Hamming, a.Score, a.Count); err != nil {
			return err
		}
	}
	return nil
}
