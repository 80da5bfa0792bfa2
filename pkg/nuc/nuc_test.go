package nuc

import (
	"testing"
)

func TestEncode(t *testing.T) {
	enc, err := Encode("ACGTN")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{A, C, G, T, N}
	for i := range want {
		if enc[i] != want[i] {
			t.Errorf("Encode(\"ACGTN\")[%d] = %d, want %d", i, enc[i], want[i])
		}
	}

	if _, err := Encode("ACXT"); err == nil {
		t.Error("Encode(\"ACXT\") did not fail")
	}

	lower, err := Encode("acgtn")
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if lower[i] != want[i] {
			t.Errorf("lowercase encoding differs at %d", i)
		}
	}
}

func TestCodeBase(t *testing.T) {
	for _, b := range []byte("ACGTN") {
		c := Code(b)
		if c < 0 {
			t.Fatalf("Code(%q) = %d", b, c)
		}
		if Base(int(c)) != b {
			t.Errorf("Base(Code(%q)) = %q", b, Base(int(c)))
		}
	}
	if Code('X') != -1 {
		t.Errorf("Code('X') = %d, want -1", Code('X'))
	}
	if Base(7) != '?' {
		t.Errorf("Base(7) = %q, want '?'", Base(7))
	}
}

func TestHamming(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"AACCGG", "AACCGG", 0},
		{"AACCGG", "AACCGT", 1},
		{"AAAA", "TTTT", 4},
		{"ACGT", "ACGA", 1},
		{"AANA", "AAAA", 1}, // N never matches
		{"AANA", "AANA", 1},
	}

	for _, test := range tests {
		a, err := Encode(test.a)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Encode(test.b)
		if err != nil {
			t.Fatal(err)
		}
		if got := Hamming(a, b); got != test.want {
			t.Errorf("Hamming(%s, %s) = %d, want %d", test.a, test.b, got, test.want)
		}
	}

	if got := HammingStrings("AACCGG", "AACCTT"); got != 2 {
		t.Errorf("HammingStrings = %d, want 2", got)
	}
}
