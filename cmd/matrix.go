package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/demuxlab/barcodex/pkg/demux"
)

var matrixReference string
var matrixCorpus string
var matrixFormat string
var matrixTag string
var matrixOutfile string
var matrixLength1 int
var matrixLength2 int
var matrixDelim string
var matrixPasses int
var matrixTiles bool
var matrixThreads int

func init() {
	rootCmd.AddCommand(matrixCmd)

	matrixCmd.Flags().StringVarP(&matrixReference, "reference", "r", "", "Reference barcode list: name sequence [expected] per line")
	matrixCmd.Flags().StringVarP(&matrixCorpus, "corpus", "c", "", "Observed corpus: counted table, fastq, or bam/sam")
	matrixCmd.Flags().StringVarP(&matrixFormat, "format", "", "", "Force the corpus format: table, fastq or bam")
	matrixCmd.Flags().StringVarP(&matrixTag, "tag", "", "BC", "Aux tag holding the barcode in bam/sam input")
	matrixCmd.Flags().StringVarP(&matrixOutfile, "outfile", "o", "stdout", "Where to write the fitted probability matrix")
	matrixCmd.Flags().IntVarP(&matrixLength1, "length1", "", 0, "Length of the (left) segment, 0 = from the reference list")
	matrixCmd.Flags().IntVarP(&matrixLength2, "length2", "", 0, "Length of the right segment, 0 = single-segment barcodes")
	matrixCmd.Flags().StringVarP(&matrixDelim, "delim", "", "", "Delimiter byte between segments in queries, empty = contiguous")
	matrixCmd.Flags().IntVarP(&matrixPasses, "passes", "p", 5, "Refinement passes")
	matrixCmd.Flags().BoolVarP(&matrixTiles, "tiles", "", false, "Fit per-tile error matrices from tile ids in the corpus")
	matrixCmd.Flags().IntVarP(&matrixThreads, "threads", "t", 0, "Max worker threads, 0 = all CPUs")

	matrixCmd.MarkFlagRequired("reference")
	matrixCmd.MarkFlagRequired("corpus")
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Learn the error model and dump the probability matrix",
	Long: `Run the refinement passes only and write the learned position-specific
substitution probability matrix for operator audit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadSet(matrixReference, matrixLength1, matrixLength2, matrixDelim)
		if err != nil {
			return err
		}
		model, err := newModel(set)
		if err != nil {
			return err
		}
		if err = populateChimeras(set, 0, false); err != nil {
			return err
		}

		opts := demux.DefaultOptions()
		opts.RefinePasses = matrixPasses
		opts.MaxThreads = matrixThreads
		opts.TileMode = matrixTiles
		engine, err := demux.New(set, model, opts)
		if err != nil {
			return err
		}

		records, err := loadCorpus(matrixCorpus, matrixFormat, matrixTag)
		if err != nil {
			return err
		}
		if err = engine.Refine(records); err != nil {
			return err
		}

		out := os.Stdout
		if matrixOutfile != "stdout" {
			out, err = os.Create(matrixOutfile)
			if err != nil {
				return err
			}
			defer out.Close()
		}
		return model.WriteMatrix(out)
	},
}
