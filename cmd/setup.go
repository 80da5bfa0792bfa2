package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/demuxlab/barcodex/pkg/barcode"
	"github.com/demuxlab/barcodex/pkg/corpus"
	"github.com/demuxlab/barcodex/pkg/errmodel"
)

// loadSet loads the reference list and assembles the barcode set.
// Chimeric combinations are synthesized separately, after the model has
// seeded the initial frequencies, so the synthesized priors survive.
func loadSet(refFile string, length1, length2 int, delim string) (*barcode.Set, error) {
	defs, err := corpus.LoadReference(refFile)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%s: no reference barcodes", refFile)
	}

	lay := barcode.Layout{Len1: length1, Len2: length2}
	if lay.Len1 == 0 {
		lay.Len1 = len(defs[0].Seq) - lay.Len2
	}
	if delim != "" {
		if len(delim) != 1 {
			return nil, fmt.Errorf("delimiter %q: want one byte", delim)
		}
		lay.Delim = delim[0]
	}

	return barcode.NewSet(lay, defs)
}

// populateChimeras synthesizes the unexpected combinations in dual mode.
func populateChimeras(set *barcode.Set, chimeraFreq float64, noChimeras bool) error {
	if !set.Layout().Dual() || noChimeras {
		return nil
	}
	n, err := set.PopulateUnexpected(chimeraFreq)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "synthesized %d unexpected combinations\n", n)
	return nil
}

// loadCorpus loads the observed records, choosing the loader from the
// file extension unless a format was forced.
func loadCorpus(path, format, tag string) ([]corpus.Record, error) {
	if format == "" {
		switch {
		case hasSuffix(path, ".fastq", ".fq", ".fastq.gz", ".fq.gz", ".fasta", ".fa"):
			format = "fastq"
		case hasSuffix(path, ".bam", ".sam"):
			format = "bam"
		default:
			format = "table"
		}
	}

	switch format {
	case "table":
		return corpus.LoadTable(path)
	case "fastq":
		return corpus.FromFastq(path)
	case "bam":
		return corpus.FromBAM(path, tag)
	}
	return nil, fmt.Errorf("unknown corpus format %q", format)
}

func hasSuffix(path string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func newModel(set *barcode.Set) (*errmodel.Model, error) {
	return errmodel.New(set, errmodel.DefaultOptions())
}
