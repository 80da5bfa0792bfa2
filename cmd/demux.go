package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/demuxlab/barcodex/pkg/demux"
)

var demuxReference string
var demuxCorpus string
var demuxFormat string
var demuxTag string
var demuxOutfile string
var demuxMatrix string
var demuxLength1 int
var demuxLength2 int
var demuxDelim string
var demuxChimeraFreq float64
var demuxNoChimeras bool
var demuxTiles bool
var demuxPasses int
var demuxMaxHamming int
var demuxRefineRatio float64
var demuxAssignRatio float64
var demuxRefineProb float64
var demuxAssignProb float64
var demuxSpoof int64
var demuxMinCount int64
var demuxScoringMode int
var demuxHybridDist int
var demuxClearzone int
var demuxThreads int

func init() {
	rootCmd.AddCommand(demuxCmd)

	demuxCmd.Flags().StringVarP(&demuxReference, "reference", "r", "", "Reference barcode list: name sequence [expected] per line")
	demuxCmd.Flags().StringVarP(&demuxCorpus, "corpus", "c", "", "Observed corpus: counted table, fastq, or bam/sam")
	demuxCmd.Flags().StringVarP(&demuxFormat, "format", "", "", "Force the corpus format: table, fastq or bam")
	demuxCmd.Flags().StringVarP(&demuxTag, "tag", "", "BC", "Aux tag holding the barcode in bam/sam input")
	demuxCmd.Flags().StringVarP(&demuxOutfile, "outfile", "o", "stdout", "Assignment listing to write")
	demuxCmd.Flags().StringVarP(&demuxMatrix, "matrix", "", "", "Also write the fitted probability matrix here")
	demuxCmd.Flags().IntVarP(&demuxLength1, "length1", "", 0, "Length of the (left) segment, 0 = from the reference list")
	demuxCmd.Flags().IntVarP(&demuxLength2, "length2", "", 0, "Length of the right segment, 0 = single-segment barcodes")
	demuxCmd.Flags().StringVarP(&demuxDelim, "delim", "", "", "Delimiter byte between segments in queries, empty = contiguous")
	demuxCmd.Flags().Float64VarP(&demuxChimeraFreq, "chimera-freq", "", 0, "Prior of synthesized combinations, 0 = derive from the recombination rate")
	demuxCmd.Flags().BoolVarP(&demuxNoChimeras, "no-chimeras", "", false, "Do not synthesize unexpected combinations in dual mode")
	demuxCmd.Flags().BoolVarP(&demuxTiles, "tiles", "", false, "Fit per-tile error matrices from tile ids in the corpus")
	demuxCmd.Flags().IntVarP(&demuxPasses, "passes", "p", 5, "Refinement passes")
	demuxCmd.Flags().IntVarP(&demuxMaxHamming, "max-hamming", "", 6, "Hamming cap per assigned segment")
	demuxCmd.Flags().Float64VarP(&demuxRefineRatio, "refine-ratio", "", 20, "Ambiguity ratio threshold during refinement")
	demuxCmd.Flags().Float64VarP(&demuxAssignRatio, "assign-ratio", "", 1e6, "Ambiguity ratio threshold during assignment")
	demuxCmd.Flags().Float64VarP(&demuxRefineProb, "refine-prob", "", 1e-12, "Probability threshold during refinement")
	demuxCmd.Flags().Float64VarP(&demuxAssignProb, "assign-prob", "", demux.DefaultOptions().AssignProb, "Probability threshold during assignment")
	demuxCmd.Flags().Int64VarP(&demuxSpoof, "spoof-reads", "", 4, "Pseudocount reads in the frequency update")
	demuxCmd.Flags().Int64VarP(&demuxMinCount, "min-count", "", 1, "Skip records below this read count in the final pass")
	demuxCmd.Flags().IntVarP(&demuxScoringMode, "scoring-mode", "", 1, "Probability-threshold scoring mode (0, 1 or 2)")
	demuxCmd.Flags().IntVarP(&demuxHybridDist, "hybrid-dist", "", 1, "Hamming bound of the fast near-match path, 0 = off")
	demuxCmd.Flags().IntVarP(&demuxClearzone, "clearzone", "", 2, "Margin the runner-up must trail by on the fast path")
	demuxCmd.Flags().IntVarP(&demuxThreads, "threads", "t", 0, "Max worker threads, 0 = all CPUs")

	demuxCmd.MarkFlagRequired("reference")
	demuxCmd.MarkFlagRequired("corpus")
}

var demuxCmd = &cobra.Command{
	Use:   "demux",
	Short: "Learn the error model from the corpus and assign every read",
	Long: `Learn a position-specific substitution-error model from the observed
corpus by iterative refinement, then assign each observed sequence to its
most likely reference barcode under strict thresholds`,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet(demuxReference, demuxLength1, demuxLength2, demuxDelim)
		if err != nil {
			return err
		}
		model, err := newModel(set)
		if err != nil {
			return err
		}
		if err = populateChimeras(set, demuxChimeraFreq, demuxNoChimeras); err != nil {
			return err
		}

		opts := demuxOptions()
		engine, err := demux.New(set, model, opts)
		if err != nil {
			return err
		}

		records, err := loadCorpus(demuxCorpus, demuxFormat, demuxTag)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "observed corpus: %d distinct records\n", len(records))

		if err = engine.Refine(records); err != nil {
			return err
		}
		result, err := engine.Assign(records)
		if err != nil {
			return err
		}

		out := os.Stdout
		if demuxOutfile != "stdout" {
			out, err = os.Create(demuxOutfile)
			if err != nil {
				return err
			}
			defer out.Close()
		}
		if err = result.WriteAssignments(out); err != nil {
			return err
		}

		if demuxMatrix != "" {
			mf, err := os.Create(demuxMatrix)
			if err != nil {
				return err
			}
			defer mf.Close()
			if err = model.WriteMatrix(mf); err != nil {
				return err
			}
		}

		return result.Stats.Write(os.Stderr)
	},
}

func demuxOptions() demux.Options {
	opts := demux.DefaultOptions()
	opts.RefinePasses = demuxPasses
	opts.RefineHamming = demuxMaxHamming
	opts.AssignHamming = demuxMaxHamming
	opts.RefineRatio = demuxRefineRatio
	opts.AssignRatio = demuxAssignRatio
	opts.RefineProb = demuxRefineProb
	opts.AssignProb = demuxAssignProb
	opts.SpoofReads = demuxSpoof
	opts.MinCount = demuxMinCount
	opts.MaxThreads = demuxThreads
	opts.TileMode = demuxTiles
	opts.Match.ScoringMode = demuxScoringMode
	opts.Match.HybridDist = demuxHybridDist
	opts.Match.Clearzone = demuxClearzone
	return opts
}
