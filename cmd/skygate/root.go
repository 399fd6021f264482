// skygate is the detection CLI: detect, batch, history, show.
//
// Usage:
//
//	skygate detect <image> [--breakdown] [--save] [--config=<path>]
//	skygate batch <dir> [--jobs=N] [--save]
//	skygate history [--db=<path>]
//	skygate show <result-id> [--document]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "skygate",
	Short: "Ensemble detection of AI-generated images",
	Long:  "Skygate runs an ensemble of forensic detectors against an image\nand fuses their evidence into a single verdict with confidence.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
