package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/matsight/internal/config"
	"github.com/nao1215/matsight/internal/contour"
	mlog "github.com/nao1215/matsight/internal/log"
	"github.com/nao1215/matsight/internal/model"
	"github.com/nao1215/matsight/internal/palette"
	"github.com/nao1215/matsight/internal/render"
	"github.com/nao1215/matsight/internal/report"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// setupLogger creates a structured logger that redacts credentials.
// Logs go to stderr so that stdout stays usable for summaries and data URLs.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // defaults to text
	}
	if jsonLogs {
		return mlog.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return mlog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// loadConfig builds the configuration from defaults, the configuration file
// and the flags the user set, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If the user named a file it must exist. Otherwise a missing file
	// just means defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.Apply(f); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	overrides := []func() error{
		func() error { return overrideString(cmd, "mode", &cfg.Mode) },
		func() error { return overrideString(cmd, "color", &cfg.HighlightColor) },
		func() error { return overrideInt(cmd, "stroke-width", &cfg.StrokeWidth) },
		func() error { return overrideInt(cmd, "max-steps", &cfg.MaxTraceSteps) },
		func() error { return overrideInt(cmd, "batch", &cfg.BatchSize) },
		func() error { return overrideBool(cmd, "json", &cfg.JSONReport) },
		func() error { return overrideBool(cmd, "markdown", &cfg.MarkdownReport) },
		func() error { return overrideString(cmd, "report", &cfg.ReportFile) },
		func() error { return overrideString(cmd, "output", &cfg.OutputPath) },
		func() error { return overrideString(cmd, "svg", &cfg.SVGPath) },
		func() error { return overrideBool(cmd, "data-url", &cfg.PrintDataURL) },
		func() error { return overrideString(cmd, "material", &cfg.Material) },
		func() error { return overrideFloat(cmd, "threshold", &cfg.Threshold) },
		func() error { return overrideBool(cmd, "force", &cfg.Force) },
	}
	for _, apply := range overrides {
		if err := apply(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// changedFlag reports whether the command defines name and the user set it.
func changedFlag(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func overrideString(cmd *cobra.Command, name string, dst *string) error {
	if !changedFlag(cmd, name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideInt(cmd *cobra.Command, name string, dst *int) error {
	if !changedFlag(cmd, name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideFloat(cmd *cobra.Command, name string, dst *float64) error {
	if !changedFlag(cmd, name) {
		return nil
	}
	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) error {
	if !changedFlag(cmd, name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// addViewFlags registers the flags shared by every command that renders an
// analysis.
func addViewFlags(cmd *cobra.Command) {
	// Highlight flags
	cmd.Flags().Int("label", 0,
		"Highlight a label of a label-grid analysis")
	cmd.Flags().IntP("thickness", "t", 0,
		"Highlight a flake of this thickness in a flake-list analysis")
	cmd.Flags().Int("flake", 0,
		"Index of the flake among those of the selected thickness")

	// Render flags
	cmd.Flags().String("mode", config.DefaultMode,
		"View mode: recolor, palette, outline or box")
	cmd.Flags().String("color", config.DefaultHighlightColor,
		"Outline colour as #rrggbb")
	cmd.Flags().Int("stroke-width", config.DefaultStrokeWidth,
		"Outline width in pixels")
	cmd.Flags().Int("max-steps", config.DefaultMaxTraceSteps,
		"Maximum contour tracing steps")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Write the rendered view as PNG to this path")
	cmd.Flags().String("svg", "",
		"Write the highlighted flake outline as SVG to this path")
	cmd.Flags().Bool("data-url", false,
		"Print the rendered view as a PNG data URL")

	// Summary flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the summary in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the summary in Markdown format (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write the summary to this file (creates directories if needed)")
}

// highlightFromFlags reads --label, --thickness and --flake.
func highlightFromFlags(cmd *cobra.Command) (model.Highlight, error) {
	hasLabel := changedFlag(cmd, "label")
	hasThickness := changedFlag(cmd, "thickness")
	if hasLabel && hasThickness {
		return model.Highlight{}, errors.New("--label and --thickness cannot be used together")
	}

	switch {
	case hasLabel:
		label, err := cmd.Flags().GetInt("label")
		if err != nil {
			return model.Highlight{}, err
		}
		return model.LabelHighlight(label), nil
	case hasThickness:
		thickness, err := cmd.Flags().GetInt("thickness")
		if err != nil {
			return model.Highlight{}, err
		}
		index, err := cmd.Flags().GetInt("flake")
		if err != nil {
			return model.Highlight{}, err
		}
		if index < 0 {
			return model.Highlight{}, fmt.Errorf("invalid flake index %d: must not be negative", index)
		}
		return model.RegionHighlight(thickness, index), nil
	default:
		if changedFlag(cmd, "flake") {
			return model.Highlight{}, errors.New("--flake requires --thickness")
		}
		return model.Highlight{}, nil
	}
}

// viewSettings maps the configured mode to compositor settings. "outline"
// and "recolor" differ only for flake lists, where "box" draws the bounding
// box instead of the traced contour.
func viewSettings(cfg *config.Config) (render.Mode, render.Stroke, bool, error) {
	c, err := cfg.StrokeColor()
	if err != nil {
		return 0, render.Stroke{}, false, err
	}
	stroke := render.Stroke{Color: c, Width: cfg.StrokeWidth}

	switch cfg.Mode {
	case config.ModePalette:
		return render.ModePalette, stroke, false, nil
	case config.ModeBox:
		return render.ModeRecolor, stroke, true, nil
	default:
		return render.ModeRecolor, stroke, false, nil
	}
}

// newPaletteCache builds the legend cache shared by all renders of a command.
func newPaletteCache(cfg *config.Config, logger *slog.Logger) (*palette.Cache, error) {
	return palette.NewCache(cfg.PaletteCacheSize,
		palette.WithSampleLimit(cfg.SampleLimit),
		palette.WithLogger(logger),
	)
}

// summaryWriter returns the writer for the requested summary format. In a
// batch, JSON summaries are buffered and written as one document when the
// returned flush function runs.
func summaryWriter(w io.Writer, cfg *config.Config, batch bool) (report.Writer, func() error) {
	noFlush := func() error { return nil }
	switch {
	case cfg.JSONReport && batch:
		bw := report.NewBatchJSONWriter(w, getVersion(), report.WithPrettyPrint())
		return bw, func() error {
			_, err := bw.Flush()
			return err
		}
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint()), noFlush
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w), noFlush
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose)), noFlush
	}
}

// openSummaryWriter returns where summaries go. With --report the chosen
// format is written to the file and a plain summary still reaches stdout.
// batch selects the multi-analysis JSON document. The returned close function
// must be called once all summaries are written; later calls do nothing.
func openSummaryWriter(stdout io.Writer, cfg *config.Config, batch bool) (report.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		w, flush := summaryWriter(stdout, cfg, batch)
		return w, sync.OnceValue(flush), nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Summaries carry image keys and metadata, so only the owner can read them.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}

	fileWriter, flush := summaryWriter(f, cfg, batch)
	w := report.NewMultiWriter(
		fileWriter,
		report.NewSimpleWriter(stdout),
	)
	return w, sync.OnceValue(func() error {
		return errors.Join(flush(), f.Close())
	}), nil
}

// view is one rendered analysis ready to be written out.
type view struct {
	name     string
	image    *image.RGBA
	contour  *contour.Contour
	summary  *model.Summary
	baseHref string
}

// writeView writes the PNG, SVG and data URL outputs of v. pngPath overrides
// cfg.OutputPath, which lets batch rendering derive one path per input.
func writeView(stdout io.Writer, cfg *config.Config, v view, pngPath string) error {
	if pngPath == "" {
		pngPath = cfg.OutputPath
	}

	if (pngPath != "" || cfg.PrintDataURL) && v.image == nil {
		return fmt.Errorf("%s: nothing to render (no base image and no mask)", v.name)
	}

	if pngPath != "" {
		if err := ensureParentDir(pngPath); err != nil {
			return err
		}
		if err := render.WritePNGFile(pngPath, v.image); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", pngPath)
	}

	if cfg.SVGPath != "" {
		if err := writeSVG(cfg, v); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", cfg.SVGPath)
	}

	if cfg.PrintDataURL {
		dataURL, err := render.DataURL(v.image)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, dataURL)
	}
	return nil
}

func writeSVG(cfg *config.Config, v view) (err error) {
	if v.contour == nil {
		return fmt.Errorf("%s: SVG export needs a highlighted flake with mask data", v.name)
	}

	width, height := v.summary.Width, v.summary.Height
	if v.image != nil {
		width, height = v.image.Bounds().Dx(), v.image.Bounds().Dy()
	}
	_, stroke, _, err := viewSettings(cfg)
	if err != nil {
		return err
	}

	if err := ensureParentDir(cfg.SVGPath); err != nil {
		return err
	}
	f, err := os.Create(cfg.SVGPath) //nolint:gosec // path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.SVGPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return render.WriteOutlineSVG(f, width, height, *v.contour, stroke, v.baseHref)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
