package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"skygate/internal/config"
	"skygate/internal/detect"
	"skygate/internal/format"
	"skygate/internal/logging"
	"skygate/internal/store"
)

var batchFlags struct {
	configPath string
	dbPath     string
	save       bool
	markdown   bool
	jobs       int
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Run detection over every image in a directory",
	Long: `Batch scans the directory for image files (by extension), runs the
full ensemble against each, and prints one table row per image.
Images are processed concurrently, bounded by --jobs.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.configPath, "config", "", "Path to config file (YAML/JSON)")
	f.StringVar(&batchFlags.dbPath, "db", "", "Store DB path (default from config)")
	f.BoolVar(&batchFlags.save, "save", false, "Record each upload and result in the store")
	f.BoolVar(&batchFlags.markdown, "markdown", false, "Render the table as Markdown instead of ASCII")
	f.IntVar(&batchFlags.jobs, "jobs", 4, "Number of images processed concurrently")
}

// imageExts are the extensions batch considers; content is still sniffed by
// the metadata loader before decoding.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

type batchRow struct {
	file    string
	result  *detect.Result
	summary string
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no image files in %s", dir)
	}

	cfg, eng, err := setup(batchFlags.configPath)
	if err != nil {
		return err
	}
	log := logging.New("batch")
	log.Info("batch started", "dir", dir, "images", len(files), "jobs", batchFlags.jobs)

	rows := make([]batchRow, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(batchFlags.jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			result, summaryText := detectOne(ctx, eng, file)
			rows[i] = batchRow{file: file, result: result, summary: summaryText}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tb := format.NewTable(tableMode(batchFlags.markdown))
	tb.Header("File", "Verdict", "Confidence", "Summary")
	aiCount := 0
	for _, row := range rows {
		if row.result.Verdict {
			aiCount++
		}
		tb.Row(filepath.Base(row.file),
			format.Verdict(row.result.Verdict),
			format.Percent(row.result.Confidence),
			format.Truncate(row.summary, 60))
	}
	tb.Footer(fmt.Sprintf("%d images", len(rows)), fmt.Sprintf("%d AI-generated", aiCount), "", "")
	tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight})
	fmt.Println(tb.String())

	if batchFlags.save {
		dbPath := batchFlags.dbPath
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
		for _, row := range rows {
			if _, err := persist(st, row.file, row.result, row.summary); err != nil {
				return fmt.Errorf("%s: %w", row.file, err)
			}
		}
		fmt.Printf("Saved: %d results db=%s\n", len(rows), dbPath)
	}
	return nil
}
