package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"skygate/internal/format"
	"skygate/internal/store"
)

var showFlags struct {
	configPath string
	dbPath     string
	markdown   bool
	document   bool
}

var showCmd = &cobra.Command{
	Use:   "show <result-id>",
	Short: "Show one stored detection result",
	Long: `Show prints the stored result row and, with --document, the full
detector-breakdown document recorded alongside it.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	f := showCmd.Flags()
	f.StringVar(&showFlags.configPath, "config", "", "Path to config file (YAML/JSON)")
	f.StringVar(&showFlags.dbPath, "db", "", "Store DB path (default from config)")
	f.BoolVar(&showFlags.markdown, "markdown", false, "Render the table as Markdown instead of ASCII")
	f.BoolVar(&showFlags.document, "document", false, "Print the full metadata document as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("result-id must be a positive integer, got %q", args[0])
	}

	dbPath, err := resolveDBPath(showFlags.configPath, showFlags.dbPath)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	r, err := st.GetResult(id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("result %d not found", id)
	}

	name := "?"
	if up, err := st.GetUpload(r.UploadID); err == nil && up != nil {
		name = up.OriginalFileName
	}

	tb := format.NewTable(tableMode(showFlags.markdown))
	tb.Header("Field", "Value")
	tb.Row("Result ID", r.ID)
	tb.Row("File", name)
	tb.Row("Verdict", format.Verdict(r.IsAIGenerated))
	tb.Row("Confidence", format.Percent(r.ConfidenceScore))
	tb.Row("Processing time", fmt.Sprintf("%.2fs", r.ProcessingTime))
	tb.Row("Detected at", r.DetectionDate)
	tb.Row("Algorithm", r.AlgorithmVersion)
	tb.Row("Summary", format.Truncate(r.ResultSummary, 80))
	fmt.Println(tb.String())

	if showFlags.document && r.MetadataID != "" {
		doc, err := st.GetMetadata(r.MetadataID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("metadata %s not found", r.MetadataID)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}
	return nil
}
