// Package nuc defines nucleotide codes and sequence encoding for the
// barcode engine. Sequences are encoded as dense code slices so that the
// error-model matrices can be indexed directly by base.
package nuc

import (
	"fmt"
)

// Base codes. The first four are valid reference bases; N is only ever
// observed, never a reference.
const (
	A = 0
	C = 1
	G = 2
	T = 3
	N = 4

	// NumObserved is the size of the observed-base axis (A,C,G,T,N).
	NumObserved = 5

	// NumReference is the size of the reference-base axis (A,C,G,T).
	NumReference = 4
)

var baseNames = "ACGTN"

var codes [256]int8

func init() {
	for i := range codes {
		codes[i] = -1
	}
	codes['A'], codes['a'] = A, A
	codes['C'], codes['c'] = C, C
	codes['G'], codes['g'] = G, G
	codes['T'], codes['t'] = T, T
	codes['N'], codes['n'] = N, N
}

// Code returns the code for a base byte, or -1 if the byte is not a base.
func Code(b byte) int8 {
	return codes[b]
}

// Base returns the base byte for a code, '?' if the code is out of range.
func Base(code int) byte {
	if code < 0 || code >= NumObserved {
		return '?'
	}
	return baseNames[code]
}

// Encode converts a sequence string to a code slice.
func Encode(seq string) ([]byte, error) {
	enc := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		c := codes[seq[i]]
		if c < 0 {
			return nil, fmt.Errorf("invalid nucleotide in sequence (%q at position %d)", seq[i], i)
		}
		enc[i] = byte(c)
	}
	return enc, nil
}

// Hamming counts mismatched positions between two equal-length code
// slices. N mismatches every base, including N, because an uncalled cycle
// carries no evidence of identity.
func Hamming(a, b []byte) int {
	d := 0
	for i := range a {
		if a[i] != b[i] || a[i] == N {
			d++
		}
	}
	return d
}

// HammingStrings counts mismatched bytes between two equal-length
// sequence strings, case-sensitively. Used by dumps and tests where the
// sequences were never encoded.
func HammingStrings(a, b string) int {
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}
