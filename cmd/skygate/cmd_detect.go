package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skygate/internal/config"
	"skygate/internal/logging"
	"skygate/internal/store"
)

var detectFlags struct {
	configPath string
	dbPath     string
	save       bool
	breakdown  bool
	markdown   bool
	jsonOut    bool
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run the detector ensemble against one image",
	Long: `Detect runs every registered detector against the image, fuses their
evidence into a verdict with confidence, and prints a human summary.
With --save, the upload, result, and full detector breakdown are
recorded in the local store.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.StringVar(&detectFlags.configPath, "config", "", "Path to config file (YAML/JSON)")
	f.StringVar(&detectFlags.dbPath, "db", "", "Store DB path (default from config)")
	f.BoolVar(&detectFlags.save, "save", false, "Record the upload and result in the store")
	f.BoolVar(&detectFlags.breakdown, "breakdown", false, "Print the per-detector breakdown table")
	f.BoolVar(&detectFlags.markdown, "markdown", false, "Render tables as Markdown instead of ASCII")
	f.BoolVar(&detectFlags.jsonOut, "json", false, "Print the full result as JSON instead of a summary")
}

func runDetect(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("image %s: %w", imagePath, err)
	}

	cfg, eng, err := setup(detectFlags.configPath)
	if err != nil {
		return err
	}
	log := logging.New("detect")

	result, summaryText := detectOne(cmd.Context(), eng, imagePath)
	log.Info("detection complete",
		"image", imagePath,
		"verdict", result.Verdict,
		"confidence", result.Confidence,
		"seconds", result.ProcessingTime)

	if detectFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		fmt.Println(summaryText)
		if detectFlags.breakdown {
			fmt.Println(breakdown(result, tableMode(detectFlags.markdown)))
		}
	}

	if detectFlags.save {
		dbPath := detectFlags.dbPath
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		if dbPath == "" {
			dbPath = config.DefaultDBPath
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		id, err := persist(st, imagePath, result, summaryText)
		if err != nil {
			return err
		}
		fmt.Printf("Saved: result=%d db=%s\n", id, dbPath)
	}
	return nil
}
