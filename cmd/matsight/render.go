package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/pipeline"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/report"
	"github.com/nao1215/matsight/internal/sample"
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <analysis.json>...",
		Short: "Render saved analysis results",
		Long: `Render turns saved analysis results into images and summaries without
contacting the analysis service.

An analysis file is either the raw service response (with or without its
gateway envelope) or a result exported by matsight itself.

Label-grid analyses are drawn over their processed image:
- recolor keeps the pixels of --label and blacks out the rest
- palette paints every label with its legend colour

Flake-list analyses are drawn over --image (or a black canvas):
- outline traces the mask of the flake selected by --thickness and --flake
- box draws its bounding box instead

Examples:
  # Print the legend of an analysis
  matsight render result.json

  # Show only label 2 and save the view
  matsight render result.json --label 2 -o layer2.png

  # Outline the first bilayer flake over the original upload
  matsight render flakes.json --image sample.tif --thickness 2 -o flake.png --svg flake.svg

  # Render many analyses concurrently into a directory
  matsight render --mode palette -o out/ results/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRenderCmd,
	}

	cmd.Flags().StringP("image", "i", "",
		"Base image for flake-list analyses (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of analyses rendered concurrently")
	addViewFlags(cmd)

	return cmd
}

// runRenderCmd executes the render command.
func runRenderCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	highlight, err := highlightFromFlags(cmd)
	if err != nil {
		return err
	}

	imagePath, err := cmd.Flags().GetString("image")
	if err != nil {
		return err
	}

	if len(args) > 1 && cfg.SVGPath != "" {
		return errors.New("--svg can only be used with a single analysis file")
	}
	if len(args) > 1 && cfg.PrintDataURL {
		return errors.New("--data-url can only be used with a single analysis file")
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	var base *sample.Sample
	if imagePath != "" {
		base, err = sample.Load(imagePath)
		if err != nil {
			return err
		}
		logger.Debug("base image loaded",
			"path", imagePath,
			"format", base.Format,
			"bounds", base.Bounds(),
		)
	}

	mode, stroke, boxOnly, err := viewSettings(cfg)
	if err != nil {
		return err
	}

	jobs := make([]*pipeline.Job, 0, len(args))
	for _, path := range args {
		result, err := loadAnalysisFile(path)
		if err != nil {
			return err
		}
		job := pipeline.NewJob(path, result)
		job.Highlight = highlight
		job.Mode = mode
		job.Stroke = stroke
		job.BoxOnly = boxOnly
		job.MaxTraceSteps = cfg.MaxTraceSteps
		job.UseSample(base)
		jobs = append(jobs, job)
	}

	cache, err := newPaletteCache(cfg, logger)
	if err != nil {
		return err
	}
	factory := func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(cache, logger)
	}

	summaries, closeSummaries, err := openSummaryWriter(cmd.OutOrStdout(), cfg, len(jobs) > 1)
	if err != nil {
		return err
	}
	defer closeSummaries() //nolint:errcheck // Best effort close of the report file

	baseHref := ""
	if base != nil && cfg.SVGPath != "" {
		baseHref, err = render.DataURL(base.Image)
		if err != nil {
			return err
		}
	}

	emit := func(job *pipeline.Job, pngPath string) error {
		return emitJob(cmd.OutOrStdout(), cfg, summaries, job, pngPath, baseHref)
	}

	if len(jobs) == 1 {
		if err := factory().Execute(ctx, jobs[0]); err != nil {
			return fmt.Errorf("%s: %w", jobs[0].Name, err)
		}
		return emit(jobs[0], "")
	}

	err = renderBatch(ctx, cmd, cfg, logger, factory, jobs, emit)
	if cerr := closeSummaries(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to write summaries: %w", cerr)
	}
	return err
}

// renderBatch renders several analyses concurrently. With -o the output is
// a directory and each PNG is named after its analysis file.
func renderBatch(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	logger *slog.Logger,
	factory func() *pipeline.Pipeline,
	jobs []*pipeline.Job,
	emit func(*pipeline.Job, string) error,
) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rendering %d analyses (concurrency: %d)...\n\n", len(jobs), cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Output is serialized so that summaries do not interleave.
	var (
		mu     sync.Mutex
		failed int
	)
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(job *pipeline.Job, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(out, "[%d/%d] %s\n", index+1, len(jobs), job.Name)
		if job.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Render error for %s: %v\n", job.Name, job.Err)
			return
		}

		pngPath := ""
		if cfg.OutputPath != "" {
			pngPath = filepath.Join(cfg.OutputPath, outputName(job.Name))
		}
		if err := emit(job, pngPath); err != nil {
			failed++
			logger.Error("output failed", "job", job.Name, "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Output error for %s: %v\n", job.Name, err)
		}
	})

	fmt.Fprintf(out, "\nBatch render completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(jobs))
	}
	return nil
}

// emitJob writes the summary and the requested image outputs of a finished job.
func emitJob(out io.Writer, cfg *config.Config, summaries report.Writer, job *pipeline.Job, pngPath, baseHref string) error {
	if job.NoMask {
		fmt.Fprintf(out, "No mask data for %s; showing its reported position.\n", job.Highlight)
	}
	if _, err := summaries.Write(job.Summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return writeView(out, cfg, view{
		name:     job.Name,
		image:    job.Image,
		contour:  job.Contour,
		summary:  job.Summary,
		baseHref: baseHref,
	}, pngPath)
}

// outputName derives the PNG file name for an analysis file.
func outputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
}

// loadAnalysisFile reads an analysis from disk. Results exported by
// matsight are recognized by their "analysis" key; anything else is treated
// as a service response, enveloped or not.
func loadAnalysisFile(path string) (*model.AnalysisResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}

	var probe struct {
		Analysis json.RawMessage `json:"analysis"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && len(probe.Analysis) > 0 {
		var result model.AnalysisResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &result, nil
	}

	body, err := model.ParseEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	analysis, err := model.ParseAnalysis(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat analysis: %w", err)
	}
	// The content hash doubles as the ID so that rendering the same file
	// twice reuses its legend.
	return &model.AnalysisResult{
		ID:        sample.Hash(data),
		ImageKey:  filepath.Base(path),
		CreatedAt: info.ModTime().UTC(),
		Analysis:  analysis,
	}, nil
}
