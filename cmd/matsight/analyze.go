package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/matsight/internal/api"
	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/database"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/session"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image-key>",
		Short: "Analyze an image from the library",
		Long: `Analyze sends an image of the library to the analysis service and
renders the result.

The image is downloaded first. When an analysis of the same image bytes is
already stored locally it is reused instead of contacting the analysis
service; use --force to process the image again.

Every new analysis is stored in the local database (see 'matsight history')
unless --no-save is given.

Examples:
  # Analyze an image and print its legend
  matsight analyze users/alice/sample1.png

  # Highlight label 3 and save the view
  matsight analyze users/alice/sample1.png --label 3 -o layer3.png

  # Outline the second monolayer flake with a lower threshold
  matsight analyze users/alice/flakes.png --threshold 0.3 -t 1 --flake 1 -o flake.png

  # Write the full summary as JSON
  matsight analyze users/alice/sample1.png --json -r summary.json`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().String("material", config.DefaultMaterial,
		"Material name sent with the processing request")
	cmd.Flags().Float64("threshold", config.DefaultThreshold,
		"Detection threshold between 0 and 1")
	cmd.Flags().Bool("force", false,
		"Process the image even when a stored analysis exists")
	cmd.Flags().Bool("no-save", false,
		"Do not read from or write to the local analysis database")
	addViewFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	imageKey := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return err
	}
	if noSave {
		cfg.SaveToDB = false
	}

	highlight, err := highlightFromFlags(cmd)
	if err != nil {
		return err
	}
	mode, stroke, boxOnly, err := viewSettings(cfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	client, err := api.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	cache, err := newPaletteCache(cfg, logger)
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithImageSource(client),
		session.WithProcessor(client),
		session.WithPaletteCache(cache),
		session.WithLogger(logger),
		session.WithMaterial(cfg.Material),
		session.WithRenderOptions(mode, stroke, boxOnly),
		session.WithMaxTraceSteps(cfg.MaxTraceSteps),
	}

	var db *database.AnalysisDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.Warn("failed to close database", "error", cerr)
			}
		}()
		opts = append(opts, session.WithStore(db))
	}

	ctrl := session.New(opts...)

	fmt.Fprintf(cmd.ErrOrStderr(), "Loading %s...\n", imageKey)
	if err := ctrl.Select(ctx, imageKey); err != nil {
		return err
	}

	if err := obtainAnalysis(ctx, cmd, cfg, ctrl, db, logger); err != nil {
		return err
	}

	v, err := renderHighlight(ctx, ctrl, highlight)
	if err != nil {
		return err
	}
	if v.NoMask {
		fmt.Fprintf(cmd.OutOrStdout(), "No mask data for %s; showing its reported position.\n", highlight)
	}

	summaries, closeSummaries, err := openSummaryWriter(cmd.OutOrStdout(), cfg, false)
	if err != nil {
		return err
	}
	defer closeSummaries() //nolint:errcheck // Best effort close of the report file

	if _, err := summaries.Write(v.Summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	baseHref := ""
	if base := ctrl.Base(); base != nil && cfg.SVGPath != "" {
		baseHref, err = render.DataURL(base.Image)
		if err != nil {
			return err
		}
	}
	return writeView(cmd.OutOrStdout(), cfg, view{
		name:     imageKey,
		image:    v.Image,
		contour:  v.Contour,
		summary:  v.Summary,
		baseHref: baseHref,
	}, "")
}

// obtainAnalysis attaches an analysis to the selected image, reusing a
// stored one for identical image bytes unless --force is set.
func obtainAnalysis(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	ctrl *session.Controller,
	db *database.AnalysisDB,
	logger *slog.Logger,
) error {
	key := ctrl.Selection().Key

	if db != nil && !cfg.Force {
		if base := ctrl.Base(); base != nil && base.Hash != "" {
			stored, err := db.FindAnalysisByHash(ctx, base.Hash)
			if err != nil {
				logger.Warn("failed to look up stored analysis", "key", key, "error", err)
			}
			if stored != nil {
				if stored.ImageKey != key {
					// Same bytes uploaded under another name.
					copied := *stored
					copied.ImageKey = key
					stored = &copied
				}
				if err := ctrl.Adopt(ctx, stored); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Using stored analysis %s from %s (use --force to re-process)\n",
					stored.ID, stored.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				return nil
			}
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Processing %s (material: %s, threshold: %.2f)...\n",
		key, cfg.Material, cfg.Threshold)
	result, err := ctrl.Analyze(ctx)
	if err != nil {
		return err
	}
	logger.Debug("analysis received", "id", result.ID, "kind", result.Analysis.Kind())
	return nil
}

// renderHighlight renders the view for h, or the plain analysis when h is
// empty.
func renderHighlight(ctx context.Context, ctrl *session.Controller, h model.Highlight) (*session.View, error) {
	switch h.Kind {
	case model.HighlightLabel:
		return ctrl.HighlightLabel(ctx, h.Label)
	case model.HighlightRegion:
		return ctrl.HighlightRegion(ctx, h.Thickness, h.Index)
	default:
		return ctrl.Render(ctx)
	}
}
