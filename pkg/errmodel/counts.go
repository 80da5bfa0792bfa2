// Package errmodel implements the position-specific substitution-error
// model: integer count accumulation during a refinement pass, maximum
// likelihood fitting with Laplace smoothing, and probability scoring of
// observed sequences against reference sequences.
package errmodel

import (
	"fmt"

	"github.com/demuxlab/barcodex/pkg/nuc"
)

// Unassigned is the extra reference column that collects reads the
// matcher could not resolve. It is accumulated like any other column but
// never fitted or scored.
const Unassigned = nuc.N

// CountMatrix accumulates observed-base vs assigned-reference-base counts
// per position. It is written during a refinement or assignment pass and
// read only by Model.Fit, never by scoring. Workers own private matrices
// and fold them with Merge after the join, so CountMatrix itself does no
// locking.
type CountMatrix struct {
	counts [][nuc.NumObserved][nuc.NumObserved]int64
}

// NewCountMatrix returns a zeroed matrix covering length positions.
func NewCountMatrix(length int) *CountMatrix {
	return &CountMatrix{
		counts: make([][nuc.NumObserved][nuc.NumObserved]int64, length),
	}
}

// Len returns the number of positions.
func (cm *CountMatrix) Len() int {
	return len(cm.counts)
}

// Reset zeroes every cell.
func (cm *CountMatrix) Reset() {
	for i := range cm.counts {
		cm.counts[i] = [nuc.NumObserved][nuc.NumObserved]int64{}
	}
}

// Add adds n to the cell for an observed base assigned to a reference
// base at a position. ref may be Unassigned.
func (cm *CountMatrix) Add(pos, obs, ref int, n int64) {
	cm.counts[pos][obs][ref] += n
}

// Get returns one cell.
func (cm *CountMatrix) Get(pos, obs, ref int) int64 {
	return cm.counts[pos][obs][ref]
}

// AddSeq accumulates a whole observed sequence assigned to ref, weighted
// by n reads. ref == nil records the sequence in the Unassigned column.
// off positions the sequence within the matrix (right segments of split
// barcodes start at the left segment's length).
func (cm *CountMatrix) AddSeq(query, ref []byte, off int, n int64) {
	for i, q := range query {
		r := Unassigned
		if ref != nil {
			r = int(ref[i])
		}
		cm.counts[off+i][q][r] += n
	}
}

// Merge folds other into cm. The matrices must cover the same length.
func (cm *CountMatrix) Merge(other *CountMatrix) error {
	if other.Len() != cm.Len() {
		return fmt.Errorf("count matrix length mismatch: %d vs %d", other.Len(), cm.Len())
	}
	for p := range cm.counts {
		for o := 0; o < nuc.NumObserved; o++ {
			for r := 0; r < nuc.NumObserved; r++ {
				cm.counts[p][o][r] += other.counts[p][o][r]
			}
		}
	}
	return nil
}
