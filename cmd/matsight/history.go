package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/database"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
	"github.com/nao1215/matsight/internal/report"
)

// NewHistoryCmd creates the history command.
// This command shows analyses stored in the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [image-key]",
		Short: "Show stored analyses",
		Long: `History shows the analyses stored in the local database by 'matsight analyze'.

Without flags it lists the analyses of an image, newest first. With --id it
prints the summary of one analysis, and --export writes the analysis itself
so that 'matsight render' can draw it offline.

Examples:
  # List every image with stored analyses
  matsight history --list-images

  # List the analyses of an image
  matsight history users/alice/sample1.png

  # Print the latest summary of an image as Markdown
  matsight history users/alice/sample1.png --latest --markdown

  # Export an analysis and render label 2 from it
  matsight history --id 3f2c... --export result.json
  matsight render result.json --label 2 -o layer2.png

  # Forget every analysis of an image
  matsight history users/alice/sample1.png --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-images", "L", false,
		"List all images with stored analyses")
	cmd.Flags().String("id", "",
		"Show the analysis with this ID")
	cmd.Flags().Bool("latest", false,
		"Show the most recent analysis of the image")
	cmd.Flags().StringP("export", "e", "",
		"Write the selected analysis as JSON to this path")
	cmd.Flags().Bool("delete", false,
		"Delete every stored analysis of the image")

	cmd.Flags().BoolP("json", "j", false,
		"Output the summary in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the summary in Markdown format (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write the summary to this file (creates directories if needed)")

	return cmd
}

// historyOptions collects the flags of the history command.
type historyOptions struct {
	listImages bool
	id         string
	latest     bool
	export     string
	delete     bool
}

func readHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error
	if opts.listImages, err = cmd.Flags().GetBool("list-images"); err != nil {
		return opts, err
	}
	if opts.id, err = cmd.Flags().GetString("id"); err != nil {
		return opts, err
	}
	if opts.latest, err = cmd.Flags().GetBool("latest"); err != nil {
		return opts, err
	}
	if opts.export, err = cmd.Flags().GetString("export"); err != nil {
		return opts, err
	}
	if opts.delete, err = cmd.Flags().GetBool("delete"); err != nil {
		return opts, err
	}
	return opts, nil
}

// validate checks flag combinations before the database is opened.
func (o historyOptions) validate(args []string) error {
	if o.listImages {
		return nil
	}
	if o.id != "" && o.latest {
		return errors.New("--id and --latest cannot be used together")
	}
	if o.id != "" {
		return nil
	}
	if len(args) == 0 {
		return errors.New("image key is required (use --list-images to see available images)")
	}
	if o.delete && (o.latest || o.export != "") {
		return errors.New("--delete cannot be combined with --latest or --export")
	}
	if o.export != "" && !o.latest {
		return errors.New("--export needs --id or --latest")
	}
	return nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryOptions(cmd)
	if err != nil {
		return err
	}
	// Validate before opening the database to avoid holding its lock on
	// usage errors.
	if err := opts.validate(args); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	switch {
	case opts.listImages:
		return listAnalyzedImages(ctx, out, db)
	case opts.id != "":
		result, err := db.GetAnalysisByID(ctx, opts.id)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("no analysis with ID %s", opts.id)
		}
		return showAnalysis(ctx, out, cfg, db, result, opts.export)
	case opts.latest:
		result, err := db.GetLatestAnalysis(ctx, args[0])
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("no stored analysis for %s", args[0])
		}
		return showAnalysis(ctx, out, cfg, db, result, opts.export)
	case opts.delete:
		n, err := db.DeleteAnalyses(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d analysis record(s) of %s\n", n, args[0])
		return nil
	default:
		return listAnalysisHistory(ctx, out, db, args[0])
	}
}

// listAnalyzedImages lists all images that have stored analyses.
func listAnalyzedImages(ctx context.Context, out io.Writer, db *database.AnalysisDB) error {
	keys, err := db.ListAnalyzedImages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	if len(keys) == 0 {
		fmt.Fprintln(out, "No analyzed images found in the database.")
		fmt.Fprintln(out, "\nUse 'matsight analyze <image-key>' to analyze an image.")
		return nil
	}

	fmt.Fprintf(out, "Analyzed images (%d):\n\n", len(keys))
	for _, key := range keys {
		fmt.Fprintf(out, "  • %s\n", key)
	}
	fmt.Fprintln(out, "\nUse 'matsight history <image-key>' to see the analyses of an image.")
	return nil
}

// listAnalysisHistory lists all stored analyses of imageKey.
func listAnalysisHistory(ctx context.Context, out io.Writer, db *database.AnalysisDB, imageKey string) error {
	history, err := db.GetAnalysisHistory(ctx, imageKey)
	if err != nil {
		return fmt.Errorf("failed to get analysis history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No analyses found for %s\n", imageKey)
		fmt.Fprintln(out, "\nUse 'matsight analyze' to analyze this image.")
		return nil
	}

	fmt.Fprintf(out, "Analyses of %s (%d):\n\n", imageKey, len(history))
	fmt.Fprintf(out, "  %-36s  %-16s  %-12s  %-11s  %s\n", "ID", "When", "Kind", "Material", "Contents")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))

	for _, meta := range history {
		fmt.Fprintf(out, "  %-36s  %-16s  %-12s  %-11s  %s\n",
			meta.ID,
			humanize.Time(meta.CreatedAt),
			meta.Kind,
			valueOrNA(meta.Material),
			formatContents(meta),
		)
	}

	fmt.Fprintln(out, "\nUse 'matsight history --id <id>' to show an analysis.")
	return nil
}

// formatContents describes what an analysis found.
func formatContents(meta database.AnalysisMetadata) string {
	if meta.Kind == model.KindRegionList.String() {
		return fmt.Sprintf("%d flakes in %d thicknesses", meta.TotalFlakes, meta.LabelCount)
	}
	return fmt.Sprintf("%d labels", meta.LabelCount)
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// showAnalysis prints the summary of result and optionally exports it.
// Analyses stored without a summary get one recomputed from the analysis.
func showAnalysis(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	db *database.AnalysisDB,
	result *model.AnalysisResult,
	exportPath string,
) error {
	summary, err := db.GetSummary(ctx, result.ID)
	if err != nil {
		return err
	}
	if summary == nil {
		p, err := palette.Build(result.Analysis, palette.WithSampleLimit(cfg.SampleLimit))
		if err != nil {
			return err
		}
		summary = report.NewSummary(result, p, nil)
	}

	summaries, closeSummaries, err := openSummaryWriter(out, cfg, false)
	if err != nil {
		return err
	}
	defer closeSummaries() //nolint:errcheck // Best effort close of the report file

	if _, err := summaries.Write(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if exportPath == "" {
		return nil
	}
	return exportAnalysis(out, result, exportPath)
}

// exportAnalysis writes result in the form loadAnalysisFile reads back.
func exportAnalysis(out io.Writer, result *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Exported analysis %s to %s\n", result.ID, path)
	return nil
}
