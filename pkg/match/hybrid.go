package match

import (
	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/nuc"
)

// hybrid is the fast path tried before probabilistic scoring. A near hit
// within HybridDist whose runner-up trails by at least Clearzone is only
// qualified here; the decision itself still comes from full scoring, so
// the fast path never accepts a call the scoring path would reject as
// ambiguous or low-confidence. done reports whether the fast path made
// the decision.
func (m *Matcher) hybrid(q *Query, tile, maxHamming int, minRatio, minProb float64) (res Result, ok bool, done bool) {
	// An exact sequence hit on an expected barcode is taken whatever the
	// model currently believes, fast path enabled or not. findDual's
	// exact-combination boost keeps the full path aligned with this
	// branch; the branch itself is what makes the guarantee
	// unconditional.
	if b := m.set.Lookup(q.Seq); b != nil && b.Expected {
		s := m.score(tile, q.codes, b.Codes, 0) * b.Freq()
		return Result{Barcode: b, Score: s, Hamming: 0}, true, true
	}

	if m.opts.HybridDist <= 0 {
		return Result{}, false, false
	}

	var nearest *barcode.Barcode
	d1, d2 := q.lenPlusOne(), q.lenPlusOne()
	for _, b := range m.set.All() {
		d := nuc.Hamming(q.codes, b.Codes)
		if d < d1 {
			d1, d2, nearest = d, d1, b
		} else if d < d2 {
			d2 = d
		}
	}

	if nearest == nil || !nearest.Expected || d1 > m.opts.HybridDist || d1 > maxHamming {
		return Result{}, false, false
	}
	if m.set.Layout().Dual() && !m.segmentsWithin(q, nearest, maxHamming) {
		return Result{}, false, false
	}
	if d2 < d1+m.opts.Clearzone {
		return Result{}, false, false
	}

	// Geometry is necessary, not sufficient: the candidate still has to
	// clear the same ratio and probability tests as any other call.
	if m.set.Layout().Dual() {
		res, ok = m.findDual(q, tile, maxHamming, minRatio, minProb)
	} else {
		res, ok = m.findSingle(q, tile, maxHamming, minRatio, minProb)
	}
	return res, ok, true
}

func (q *Query) lenPlusOne() int {
	return len(q.codes) + 1
}

func (m *Matcher) segmentsWithin(q *Query, b *barcode.Barcode, maxHamming int) bool {
	return nuc.Hamming(q.left, m.set.LeftCodes(b.Left())) <= maxHamming &&
		nuc.Hamming(q.right, m.set.RightCodes(b.Right())) <= maxHamming
}
