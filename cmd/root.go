package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:     "barcodex",
		Short:   "probabilistic barcode assignment for multiplexed sequencing",
		Long:    `probabilistic barcode assignment for multiplexed sequencing`,
		Version: "1.0.0",
	}
)

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
