package match

import (
	"testing"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/errmodel"
)

func singleMatcher(t *testing.T, opts Options, defs ...barcode.Def) *Matcher {
	t.Helper()
	set, err := barcode.NewSet(barcode.Layout{Len1: len(defs[0].Seq)}, defs)
	if err != nil {
		t.Fatal(err)
	}
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

func find(t *testing.T, m *Matcher, seq string) (Result, bool) {
	t.Helper()
	q, err := m.Prepare(seq)
	if err != nil {
		t.Fatalf("Prepare(%s): %v", seq, err)
	}
	return m.Find(&q, 0)
}

func TestNewValidation(t *testing.T) {
	set, err := barcode.NewSet(barcode.Layout{Len1: 4}, []barcode.Def{{Name: "a", Seq: "ACGT", Expected: true}})
	if err != nil {
		t.Fatal(err)
	}
	model, err := errmodel.New(set, errmodel.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	bad := DefaultOptions()
	bad.ScoringMode = 3
	if _, err := New(set, model, bad); err == nil {
		t.Error("scoring mode 3 accepted")
	}
	bad = DefaultOptions()
	bad.MaxHamming = -1
	if _, err := New(set, model, bad); err == nil {
		t.Error("negative Hamming cap accepted")
	}
}

// A query byte-identical to an expected reference resolves to that
// reference, not to a 1-off neighbour, even on the untrained model.
func TestExactMatchGuarantee(t *testing.T) {
	m := singleMatcher(t, DefaultOptions(),
		barcode.Def{Name: "bc1", Seq: "AACCGG", Expected: true},
		barcode.Def{Name: "bc2", Seq: "AACCGT", Expected: true},
	)

	res, ok := find(t, m, "AACCGT")
	if !ok {
		t.Fatal("exact match rejected")
	}
	if res.Barcode.Name != "bc2" {
		t.Errorf("assigned to %s, want bc2", res.Barcode.Name)
	}
	if res.Hamming != 0 {
		t.Errorf("Hamming = %d, want 0", res.Hamming)
	}
}

// The exact-match guarantee holds with the fast path disabled too.
func TestExactMatchFullPath(t *testing.T) {
	opts := DefaultOptions()
	opts.HybridDist = 0
	m := singleMatcher(t, opts,
		barcode.Def{Name: "bc1", Seq: "AACCGG", Expected: true},
		barcode.Def{Name: "bc2", Seq: "AACCGT", Expected: true},
	)

	res, ok := find(t, m, "AACCGT")
	if !ok || res.Barcode.Name != "bc2" {
		t.Errorf("full path: got %v ok=%v, want bc2", res.Barcode, ok)
	}
}

// A query equidistant from two near-equal-frequency references is
// ambiguous and must be rejected.
func TestAmbiguousRejected(t *testing.T) {
	m := singleMatcher(t, DefaultOptions(),
		barcode.Def{Name: "bc1", Seq: "AAAAAA", Expected: true},
		barcode.Def{Name: "bc2", Seq: "AAAAAT", Expected: true},
	)

	// Hamming 1 from both references
	if res, ok := find(t, m, "AAAAAC"); ok {
		t.Errorf("ambiguous query assigned to %s", res.Barcode.Name)
	}
}

func TestHammingCap(t *testing.T) {
	opts := DefaultOptions()
	opts.HybridDist = 0
	m := singleMatcher(t, opts,
		barcode.Def{Name: "bc1", Seq: "AAAAAAAA", Expected: true},
		barcode.Def{Name: "bc2", Seq: "GGGGGGGG", Expected: true},
	)

	// 4 mismatches from bc1, 8 from bc2: unambiguous but over a cap of 3
	q, err := m.Prepare("AAAATTTT")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.FindWith(&q, 0, 3, opts.MinRatio, opts.MinProb); ok {
		t.Error("match over the Hamming cap accepted")
	}
	if _, ok := m.FindWith(&q, 0, 6, opts.MinRatio, opts.MinProb); !ok {
		t.Error("match within the Hamming cap rejected")
	}
}

// Tightening MinRatio or MinProb never accepts a query that the looser
// thresholds rejected.
func TestMonotoneTightening(t *testing.T) {
	opts := DefaultOptions()
	opts.HybridDist = 0
	m := singleMatcher(t, opts,
		barcode.Def{Name: "bc1", Seq: "AACCGGTT", Expected: true},
		barcode.Def{Name: "bc2", Seq: "AACCGGAA", Expected: true},
		barcode.Def{Name: "bc3", Seq: "TTGGCCAA", Expected: true},
	)

	queries := []string{
		"AACCGGTT", "AACCGGAT", "AACCGGTA", "AACCGATT", "TTGGCCAT",
		"AACCGGAC", "TAGCGGTT", "TTGGCCAA", "ATCCGGTT", "AACCGCAA",
	}

	accepted := func(ratio, prob float64) int {
		n := 0
		for _, seq := range queries {
			q, err := m.Prepare(seq)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := m.FindWith(&q, 0, opts.MaxHamming, ratio, prob); ok {
				n++
			}
		}
		return n
	}

	base := accepted(opts.MinRatio, opts.MinProb)
	for _, ratio := range []float64{100, 1e4, 1e6} {
		if n := accepted(ratio, opts.MinProb); n > base {
			t.Errorf("ratio %g accepted %d > %d", ratio, n, base)
		}
	}
	for _, prob := range []float64{1e-8, 1e-4, 1e-2} {
		if n := accepted(opts.MinRatio, prob); n > base {
			t.Errorf("prob %g accepted %d > %d", prob, n, base)
		}
	}
}

// Within the fast path's distance bound the hybrid and full paths agree
// on the categorical decision.
func TestHybridAgreesWithFullPath(t *testing.T) {
	defs := []barcode.Def{
		{Name: "bc1", Seq: "AACCGGTT", Expected: true},
		{Name: "bc2", Seq: "GGTTAACC", Expected: true},
	}

	fast := singleMatcher(t, DefaultOptions(), defs...)
	slowOpts := DefaultOptions()
	slowOpts.HybridDist = 0
	slow := singleMatcher(t, slowOpts, defs...)

	queries := []string{"AACCGGTT", "AACCGGTA", "TACCGGTT", "GGTTAACC", "GGTTAACA"}
	for _, seq := range queries {
		rf, okf := find(t, fast, seq)
		rs, oks := find(t, slow, seq)
		if okf != oks {
			t.Errorf("%s: fast ok=%v, full ok=%v", seq, okf, oks)
			continue
		}
		if okf && rf.Barcode.Name != rs.Barcode.Name {
			t.Errorf("%s: fast %s, full %s", seq, rf.Barcode.Name, rs.Barcode.Name)
		}
	}
}

// Under the strict assignment-stage ratio a near match that full scoring
// rejects as ambiguous must not be accepted on distance geometry alone.
func TestHybridStrictRatioAgreement(t *testing.T) {
	defs := []barcode.Def{
		{Name: "bc1", Seq: "AAAAAAAA", Expected: true},
		{Name: "bc2", Seq: "AAAATTTT", Expected: true},
	}

	strict := DefaultOptions()
	strict.MinRatio = 1e6
	fast := singleMatcher(t, strict, defs...)

	slowOpts := strict
	slowOpts.HybridDist = 0
	slow := singleMatcher(t, slowOpts, defs...)

	// bc1 at Hamming 1, bc2 at Hamming 3: clears HybridDist and the
	// clearzone, but the competing mass fails the strict ratio
	if res, ok := find(t, fast, "AAAAAAAT"); ok {
		t.Errorf("near match accepted under strict ratio: %s", res.Barcode.Name)
	}

	for _, seq := range []string{"AAAAAAAT", "AAAAAAAA", "AAAATTTA"} {
		rf, okf := find(t, fast, seq)
		rs, oks := find(t, slow, seq)
		if okf != oks {
			t.Errorf("%s: fast ok=%v, full ok=%v", seq, okf, oks)
			continue
		}
		if okf && rf.Barcode.Name != rs.Barcode.Name {
			t.Errorf("%s: fast %s, full %s", seq, rf.Barcode.Name, rs.Barcode.Name)
		}
	}
}

func TestScoringModes(t *testing.T) {
	for mode := 0; mode <= 2; mode++ {
		opts := DefaultOptions()
		opts.ScoringMode = mode
		m := singleMatcher(t, opts,
			barcode.Def{Name: "bc1", Seq: "AACCGG", Expected: true},
			barcode.Def{Name: "bc2", Seq: "TTGGCC", Expected: true},
		)
		if res, ok := find(t, m, "AACCGG"); !ok || res.Barcode.Name != "bc1" {
			t.Errorf("mode %d: exact match not assigned", mode)
		}
	}
}

func TestPrepareValidation(t *testing.T) {
	m := singleMatcher(t, DefaultOptions(),
		barcode.Def{Name: "bc1", Seq: "AACCGG", Expected: true},
	)

	if _, err := m.Prepare("AACC"); err == nil {
		t.Error("short query accepted")
	}
	if _, err := m.Prepare("AAXCGG"); err == nil {
		t.Error("invalid base accepted")
	}
}
