package barcode

import (
	"errors"
	"fmt"

	"github.com/demuxlab/barcodex/pkg/nuc"
)

// Layout describes how reference sequences and queries are shaped.
// Len2 == 0 means single-segment barcodes. In dual mode queries carry the
// left segment, then Delim (when non-zero), then the right segment;
// reference sequences are always stored without the delimiter.
type Layout struct {
	Len1  int
	Len2  int
	Delim byte
}

// Dual reports whether the layout is split into two segments.
func (l Layout) Dual() bool {
	return l.Len2 > 0
}

// SeqLen is the number of nucleotide positions in a reference sequence.
func (l Layout) SeqLen() int {
	return l.Len1 + l.Len2
}

// QueryLen is the expected length of an observed query, including the
// delimiter byte when one is configured.
func (l Layout) QueryLen() int {
	n := l.SeqLen()
	if l.Dual() && l.Delim != 0 {
		n++
	}
	return n
}

type segment struct {
	seq   string
	codes []byte
}

// Set is the reference barcode set. Expected barcodes come from the
// reference list; unexpected ones are synthesized by PopulateUnexpected.
type Set struct {
	layout   Layout
	all      []*Barcode
	expected []*Barcode
	bySeq    map[string]*Barcode

	// dual mode segment alphabets and the flat combination table,
	// indexed left*len(rights)+right
	lefts    []segment
	rights   []segment
	leftIdx  map[string]int
	rightIdx map[string]int
	byCombo  []*Barcode
}

// NewSet builds a reference set from the layout and definitions. All
// configuration errors are fatal here: an empty list, a sequence whose
// length disagrees with the layout, an invalid base, or a duplicate
// sequence.
func NewSet(layout Layout, defs []Def) (*Set, error) {
	if len(defs) == 0 {
		return nil, errors.New("empty reference barcode set")
	}
	if layout.Len1 <= 0 {
		return nil, fmt.Errorf("invalid layout: length1 %d", layout.Len1)
	}
	if layout.Len2 < 0 {
		return nil, fmt.Errorf("invalid layout: length2 %d", layout.Len2)
	}

	s := &Set{
		layout: layout,
		bySeq:  make(map[string]*Barcode),
	}
	if layout.Dual() {
		s.leftIdx = make(map[string]int)
		s.rightIdx = make(map[string]int)
	}

	for _, d := range defs {
		if len(d.Seq) != layout.SeqLen() {
			return nil, fmt.Errorf("barcode %s: sequence length %d, layout wants %d",
				d.Name, len(d.Seq), layout.SeqLen())
		}
		b, err := newBarcode(d.Name, d.Seq, d.Expected)
		if err != nil {
			return nil, err
		}
		if _, dup := s.bySeq[d.Seq]; dup {
			return nil, fmt.Errorf("duplicate barcode sequence %s", d.Seq)
		}
		s.add(b)
	}

	if layout.Dual() {
		s.byCombo = make([]*Barcode, len(s.lefts)*len(s.rights))
		for _, b := range s.all {
			s.byCombo[b.left*len(s.rights)+b.right] = b
		}
	}

	return s, nil
}

func (s *Set) add(b *Barcode) {
	if s.layout.Dual() {
		left := b.Seq[:s.layout.Len1]
		right := b.Seq[s.layout.Len1:]
		b.left = s.internLeft(left)
		b.right = s.internRight(right)
	}
	s.all = append(s.all, b)
	if b.Expected {
		s.expected = append(s.expected, b)
	}
	s.bySeq[b.Seq] = b
}

func (s *Set) internLeft(seq string) int {
	if i, ok := s.leftIdx[seq]; ok {
		return i
	}
	codes, _ := nuc.Encode(seq) // validated by newBarcode
	s.lefts = append(s.lefts, segment{seq, codes})
	s.leftIdx[seq] = len(s.lefts) - 1
	return len(s.lefts) - 1
}

func (s *Set) internRight(seq string) int {
	if i, ok := s.rightIdx[seq]; ok {
		return i
	}
	codes, _ := nuc.Encode(seq)
	s.rights = append(s.rights, segment{seq, codes})
	s.rightIdx[seq] = len(s.rights) - 1
	return len(s.rights) - 1
}

// Layout returns the set's layout.
func (s *Set) Layout() Layout {
	return s.layout
}

// All returns every barcode, expected and synthesized.
func (s *Set) All() []*Barcode {
	return s.all
}

// Expected returns the barcodes declared in the reference list.
func (s *Set) Expected() []*Barcode {
	return s.expected
}

// Lookup returns the barcode with the exact sequence, nil if absent. The
// sequence must not contain the delimiter.
func (s *Set) Lookup(seq string) *Barcode {
	return s.bySeq[seq]
}

// NumLeft returns the number of distinct left segments.
func (s *Set) NumLeft() int {
	return len(s.lefts)
}

// NumRight returns the number of distinct right segments.
func (s *Set) NumRight() int {
	return len(s.rights)
}

// LeftCodes returns the encoded left segment at index i.
func (s *Set) LeftCodes(i int) []byte {
	return s.lefts[i].codes
}

// RightCodes returns the encoded right segment at index i.
func (s *Set) RightCodes(i int) []byte {
	return s.rights[i].codes
}

// ByCombo returns the barcode for a left/right segment pair, nil if the
// combination has not been seen or synthesized.
func (s *Set) ByCombo(left, right int) *Barcode {
	return s.byCombo[left*len(s.rights)+right]
}

// MaxCount returns the largest assigned-read count over all barcodes.
func (s *Set) MaxCount() int64 {
	var max int64
	for _, b := range s.all {
		if c := b.Count(); c > max {
			max = c
		}
	}
	return max
}

// ResetCounts zeroes every barcode's assigned-read counter.
func (s *Set) ResetCounts() {
	for _, b := range s.all {
		b.ResetCount()
	}
}

// PopulateUnexpected synthesizes a barcode for every left×right segment
// combination absent from the set, so that PCR-recombination chimeras can
// be attributed to a modeled class instead of being forced onto one of the
// two contributing expected barcodes. When freq > 0 it is used as the
// prior of every synthesized barcode; otherwise the prior is derived from
// BaseRecombinationRate spread over the synthesized combinations.
// Returns the number of barcodes added. Dual mode only.
func (s *Set) PopulateUnexpected(freq float64) (int, error) {
	if !s.layout.Dual() {
		return 0, errors.New("unexpected combinations require a dual-segment layout")
	}

	nCombos := len(s.lefts) * len(s.rights)
	if freq <= 0 {
		freq = BaseRecombinationRate * float64(len(s.expected)) / float64(nCombos)
	}
	if freq < FreqFloor {
		freq = FreqFloor
	}
	if freq > 1 {
		freq = 1
	}

	added := 0
	for l := range s.lefts {
		for r := range s.rights {
			if s.byCombo[l*len(s.rights)+r] != nil {
				continue
			}
			seq := s.lefts[l].seq + s.rights[r].seq
			b, err := newBarcode(seq, seq, false)
			if err != nil {
				return added, err
			}
			b.SetFreq(freq)
			s.add(b)
			s.byCombo[l*len(s.rights)+r] = b
			added++
		}
	}

	return added, nil
}
