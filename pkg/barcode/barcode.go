// Package barcode defines the reference barcode set that the matching
// engine assigns observed reads to, including synthesized chimeric
// combinations for split barcodes.
package barcode

import (
	"fmt"
	"sync/atomic"

	"github.com/demuxlab/barcodex/pkg/nuc"
)

// FreqFloor is the lower clamp for barcode frequencies. Frequencies are
// prior weights multiplied into scores, so zero would veto a barcode
// outright regardless of evidence.
const FreqFloor = 1e-6

// BaseRecombinationRate is the default per-library rate of PCR
// recombination used to derive the prior of synthesized chimeric
// combinations.
const BaseRecombinationRate = 0.08

// Def is one line of the reference list.
type Def struct {
	Name     string
	Seq      string
	Expected bool
}

// Barcode is one reference sequence the matcher can resolve to. The read
// counter is updated concurrently by assignment workers.
type Barcode struct {
	Name     string
	Seq      string
	Codes    []byte
	Expected bool
	Tile     int

	freq  float64
	count int64

	// segment indices, dual mode only
	left  int
	right int
}

// Freq returns the barcode's prior weight.
func (b *Barcode) Freq() float64 {
	return b.freq
}

// SetFreq clamps f into [FreqFloor, 1] and stores it.
func (b *Barcode) SetFreq(f float64) {
	if f < FreqFloor {
		f = FreqFloor
	}
	if f > 1 {
		f = 1
	}
	b.freq = f
}

// Count returns the reads assigned to this barcode so far.
func (b *Barcode) Count() int64 {
	return atomic.LoadInt64(&b.count)
}

// AddCount adds n assigned reads.
func (b *Barcode) AddCount(n int64) {
	atomic.AddInt64(&b.count, n)
}

// ResetCount zeroes the assigned-read counter.
func (b *Barcode) ResetCount() {
	atomic.StoreInt64(&b.count, 0)
}

func (b *Barcode) String() string {
	return fmt.Sprintf("%s(%s)", b.Name, b.Seq)
}

// Left returns the index of the barcode's left segment in the set's
// distinct-segment table. Only meaningful in dual mode.
func (b *Barcode) Left() int {
	return b.left
}

// Right returns the index of the barcode's right segment.
func (b *Barcode) Right() int {
	return b.right
}

func newBarcode(name, seq string, expected bool) (*Barcode, error) {
	codes, err := nuc.Encode(seq)
	if err != nil {
		return nil, fmt.Errorf("barcode %s: %v", name, err)
	}
	// N is observable in queries but never a reference base; the model's
	// reference axis has no column for it
	for i, c := range codes {
		if c >= nuc.NumReference {
			return nil, fmt.Errorf("barcode %s: reference base %q at position %d", name, seq[i], i)
		}
	}
	return &Barcode{
		Name:     name,
		Seq:      seq,
		Codes:    codes,
		Expected: expected,
		freq:     FreqFloor,
		left:     -1,
		right:    -1,
	}, nil
}
