package match

import (
	"testing"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/errmodel"
)

func dualSet(t *testing.T, delim byte) *barcode.Set {
	t.Helper()
	set, err := barcode.NewSet(barcode.Layout{Len1: 4, Len2: 4, Delim: delim}, []barcode.Def{
		{Name: "A", Seq: "AAAACCCC", Expected: true},
		{Name: "B", Seq: "GGGGTTTT", Expected: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func dualMatcher(t *testing.T, set *barcode.Set, opts Options) *Matcher {
	t.Helper()
	model, err := errmodel.New(set, errmodel.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	m, err := New(set, model, opts)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDualExactMatch(t *testing.T) {
	set := dualSet(t, 0)
	m := dualMatcher(t, set, DefaultOptions())

	res, ok := find(t, m, "GGGGTTTT")
	if !ok || res.Barcode.Name != "B" {
		t.Fatalf("exact dual match: got %v ok=%v, want B", res.Barcode, ok)
	}
}

func TestDualDelimiter(t *testing.T) {
	set := dualSet(t, '-')
	m := dualMatcher(t, set, DefaultOptions())

	res, ok := find(t, m, "AAAA-CCCC")
	if !ok || res.Barcode.Name != "A" {
		t.Fatalf("delimited query: got %v ok=%v, want A", res.Barcode, ok)
	}

	// wrong delimiter byte is a malformed query, not a scoring event
	if _, err := m.Prepare("AAAA+CCCC"); err == nil {
		t.Error("wrong delimiter accepted")
	}
}

// A chimera formed from A's left segment and B's right segment must
// never be force-assigned to A or B: before synthesis it is ambiguous,
// after synthesis it resolves to the unexpected combination.
func TestChimeraNeverForceAssigned(t *testing.T) {
	set := dualSet(t, 0)
	m := dualMatcher(t, set, DefaultOptions())

	if res, ok := find(t, m, "AAAATTTT"); ok {
		if res.Barcode.Name == "A" || res.Barcode.Name == "B" {
			t.Fatalf("chimera force-assigned to %s", res.Barcode.Name)
		}
	}

	if _, err := set.PopulateUnexpected(0); err != nil {
		t.Fatal(err)
	}
	m = dualMatcher(t, set, DefaultOptions())

	res, ok := find(t, m, "AAAATTTT")
	if !ok {
		// rejection for low frequency is acceptable too
		return
	}
	if res.Barcode.Expected {
		t.Fatalf("chimera assigned to expected barcode %s", res.Barcode.Name)
	}
	if res.Barcode.Seq != "AAAATTTT" {
		t.Errorf("chimera resolved to %s", res.Barcode.Seq)
	}
}

// An exact expected combination clears full scoring even under the
// strict assignment-stage ratio: its score is averaged with
// MinExpectedScore and its ratio threshold is scaled down, keeping the
// full path aligned with the unconditional exact-hit branch.
func TestDualExactBoostFullScoring(t *testing.T) {
	set := dualSet(t, 0)
	m := dualMatcher(t, set, DefaultOptions())

	q, err := m.Prepare("AAAACCCC")
	if err != nil {
		t.Fatal(err)
	}
	res, ok := m.findDual(&q, 0, m.opts.MaxHamming, 1e6, m.opts.MinProb)
	if !ok || res.Barcode.Name != "A" {
		t.Fatalf("exact combination rejected by full scoring: %v ok=%v", res.Barcode, ok)
	}
	if res.Score < m.opts.MinExpectedScore/2 {
		t.Errorf("boosted score = %g, below %g", res.Score, m.opts.MinExpectedScore/2)
	}
}

// One segment noisy, the other exact: still resolves to the right
// combination.
func TestDualNoisySegment(t *testing.T) {
	set := dualSet(t, 0)
	m := dualMatcher(t, set, DefaultOptions())

	res, ok := find(t, m, "AAAACCCG")
	if !ok || res.Barcode.Name != "A" {
		t.Fatalf("noisy dual query: got %v ok=%v, want A", res.Barcode, ok)
	}
	if res.Hamming != 1 {
		t.Errorf("Hamming = %d, want 1", res.Hamming)
	}
}

// The per-segment Hamming cap rejects a query whose total distance would
// pass a combined cap.
func TestDualSegmentHammingCap(t *testing.T) {
	opts := DefaultOptions()
	opts.HybridDist = 0
	set := dualSet(t, 0)
	m := dualMatcher(t, set, opts)

	// right segment 4 mismatches against A's CCCC
	q, err := m.Prepare("AAAAGGGG")
	if err != nil {
		t.Fatal(err)
	}
	if res, ok := m.FindWith(&q, 0, 3, opts.MinRatio, opts.MinProb); ok {
		t.Errorf("segment over cap assigned to %s", res.Barcode.Name)
	}
}
