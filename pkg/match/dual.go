package match

import (
	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/nuc"
)

// findDual scores split queries: left and right segments independently
// against the distinct segment alphabets, combined with the combination's
// frequency prior. A query that is a literal expected combination has its
// score averaged with MinExpectedScore and its ratio threshold scaled by
// ExactRatioScale, so a true positive is not drowned by a single close
// competitor.
func (m *Matcher) findDual(q *Query, tile, maxHamming int, minRatio, minProb float64) (Result, bool) {
	lay := m.set.Layout()
	nl, nr := m.set.NumLeft(), m.set.NumRight()

	lScores := make([]float64, nl)
	for i := 0; i < nl; i++ {
		lScores[i] = m.score(tile, q.left, m.set.LeftCodes(i), 0)
	}
	rScores := make([]float64, nr)
	for j := 0; j < nr; j++ {
		rScores[j] = m.score(tile, q.right, m.set.RightCodes(j), lay.Len1)
	}

	var best *barcode.Barcode
	bestScore, bestProb, competing := 0.0, 0.0, 0.0
	bestExact := false

	for l := 0; l < nl; l++ {
		for r := 0; r < nr; r++ {
			b := m.set.ByCombo(l, r)
			if b == nil {
				continue
			}
			p := lScores[l] * rScores[r]
			s := p * b.Freq()
			exact := b.Expected && q.Seq == b.Seq
			if exact {
				s = (s + m.opts.MinExpectedScore) / 2
			}
			if s > bestScore {
				competing += bestScore
				bestScore, bestProb, best = s, p, b
				bestExact = exact
			} else {
				competing += s
			}
		}
	}

	if best == nil {
		return Result{}, false
	}
	ratio := minRatio
	if bestExact {
		ratio *= m.opts.ExactRatioScale
	}
	if competing*ratio >= bestScore {
		return Result{}, false
	}
	dl := nuc.Hamming(q.left, m.set.LeftCodes(best.Left()))
	dr := nuc.Hamming(q.right, m.set.RightCodes(best.Right()))
	if dl > maxHamming || dr > maxHamming {
		return Result{}, false
	}
	if m.modeScore(bestProb, bestScore, best) < minProb {
		return Result{}, false
	}

	return Result{Barcode: best, Score: bestScore, Hamming: dl + dr}, true
}
