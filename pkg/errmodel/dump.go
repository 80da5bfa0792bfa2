package errmodel

import (
	"fmt"
	"io"

	"github.com/demuxlab/barcodex/pkg/nuc"
)

// WriteMatrix writes the fitted global matrix in a human-readable layout,
// one line per position and observed base, for operator audit. Not meant
// to be parsed back.
func (m *Model) WriteMatrix(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := fmt.Fprintf(w, "pos\tobs\tA\tC\tG\tT\n"); err != nil {
		return err
	}
	for p := range m.probs {
		for o := 0; o < nuc.NumObserved; o++ {
			if _, err := fmt.Fprintf(w, "%d\t%c", p, nuc.Base(o)); err != nil {
				return err
			}
			for r := 0; r < nuc.NumReference; r++ {
				if _, err := fmt.Fprintf(w, "\t%.6g", m.probs[p][o][r]); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
