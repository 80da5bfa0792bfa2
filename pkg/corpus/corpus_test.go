package corpus

import (
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	in := strings.NewReader(`# observed corpus
AACCGG 1200
AACCGT,55
AACCTT	3	1101
`)
	recs, err := ReadTable(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("%d records, want 3", len(recs))
	}

	want := []Record{
		{Seq: "AACCGG", Count: 1200},
		{Seq: "AACCGT", Count: 55},
		{Seq: "AACCTT", Count: 3, Tile: 1101},
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], want[i])
		}
	}

	if Total(recs) != 1258 {
		t.Errorf("Total = %d, want 1258", Total(recs))
	}
}

func TestReadTableErrors(t *testing.T) {
	bad := []string{
		"AACCGG",              // missing count
		"AACCGG x",            // unparsable count
		"AACCGG -3",           // negative count
		"AACCGG 5 0",          // non-positive tile
		"AACCGG 5 12 extra",   // too many fields
	}
	for _, line := range bad {
		if _, err := ReadTable(strings.NewReader(line)); err == nil {
			t.Errorf("%q: no error", line)
		}
	}
}

func TestReadReference(t *testing.T) {
	in := strings.NewReader(`# sample sheet
bc1 AACCGG
bc2,aaccgt,true
spike TTTTTT false
`)
	defs, err := ReadReference(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 3 {
		t.Fatalf("%d defs, want 3", len(defs))
	}

	if defs[0].Name != "bc1" || defs[0].Seq != "AACCGG" || !defs[0].Expected {
		t.Errorf("def 0 = %+v", defs[0])
	}
	// sequences are upcased
	if defs[1].Seq != "AACCGT" {
		t.Errorf("def 1 seq = %q", defs[1].Seq)
	}
	if defs[2].Expected {
		t.Error("spike marked expected")
	}

	if _, err := ReadReference(strings.NewReader("bc1 AACCGG maybe")); err == nil {
		t.Error("bad expected flag accepted")
	}
}

func TestIlluminaTile(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"M00001:42:000000000-A1B2C:1:1101:15589:1339 1:N:0:ACGT", 1101},
		{"M00001:42:000000000-A1B2C:1:2214:1000:2000", 2214},
		{"read-7", 0},
		{"a:b:c:d:notanumber:x:y", 0},
	}
	for _, test := range tests {
		if got := illuminaTile(test.name); got != test.want {
			t.Errorf("illuminaTile(%q) = %d, want %d", test.name, got, test.want)
		}
	}
}
