package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skygate/internal/config"
	"skygate/internal/format"
	"skygate/internal/store"
)

var historyFlags struct {
	configPath string
	dbPath     string
	markdown   bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored detection results",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.configPath, "config", "", "Path to config file (YAML/JSON)")
	f.StringVar(&historyFlags.dbPath, "db", "", "Store DB path (default from config)")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render the table as Markdown instead of ASCII")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dbPath, err := resolveDBPath(historyFlags.configPath, historyFlags.dbPath)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	results, err := st.ListResults()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No detection results recorded.")
		return nil
	}

	tb := format.NewTable(tableMode(historyFlags.markdown))
	tb.Header("ID", "File", "Verdict", "Confidence", "Date")
	for _, r := range results {
		name := "?"
		if up, err := st.GetUpload(r.UploadID); err == nil && up != nil {
			name = up.OriginalFileName
		}
		tb.Row(r.ID, format.Truncate(name, 40), format.Verdict(r.IsAIGenerated),
			format.Percent(r.ConfidenceScore), r.DetectionDate)
	}
	tb.Columns(format.ColumnConfig{Number: 4, Align: format.AlignRight})
	fmt.Println(tb.String())
	return nil
}

// resolveDBPath picks the store path: explicit flag, then config, then default.
func resolveDBPath(configPath, flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return "", err
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return config.DefaultDBPath, nil
}
