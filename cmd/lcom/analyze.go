package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/panbanda/lcom/internal/output"
	"github.com/panbanda/lcom/internal/progress"
	"github.com/panbanda/lcom/internal/scanner"
	"github.com/panbanda/lcom/internal/service/analysis"
	"github.com/panbanda/lcom/pkg/config"
)

func analyzeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "public-only",
			Usage: "Only analyze public types",
		},
		&cli.BoolFlag{
			Name:  "include-generated",
			Usage: "Include compiler-generated and designer types",
		},
		&cli.BoolFlag{
			Name:  "include-interfaces",
			Usage: "Include interfaces",
		},
		&cli.StringFlag{
			Name:  "inherited",
			Usage: "Inherited method policy: strict, permissive (default from config)",
		},
		&cli.StringFlag{
			Name:  "backing-fields",
			Usage: "Backing field policy: attribute, ignore (default from config)",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Sort by: discovery, lcom, name, methods (default from config)",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Show only the first N types after sorting (0 = all)",
		},
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Compute LCOM for every type in the given files and directories",
		ArgsUsage: "[path...]",
		Description: `Scans the paths for C#, Java and type model files and prints one row per
type. CSV output is "TypeName,LCOM" in discovery order.

Examples:
  lcom analyze src/
  lcom analyze src/ --sort lcom --top 10
  lcom analyze -f csv -o lcom.csv .`,
		Flags:  analyzeFlags(),
		Action: runAnalyzeCmd,
	}
}

// analyzeRun is one resolved analyze invocation.
type analyzeRun struct {
	cfg     *config.Config
	service *analysis.Service
	logger  *zap.Logger
	opts    analysis.LCOMOptions
	format  output.Format
}

func newAnalyzeRun(c *cli.Context) (*analyzeRun, error) {
	loaded, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	logger := newLogger(c)
	if loaded.Source != "" {
		logger.Debug("loaded config", zap.String("path", loaded.Source))
	}

	format := getFormat(c, cfg)
	sort := getTrailingFlag(c, "sort", "", cfg.Output.Sort)
	top, err := getTrailingInt(c, "top", cfg.Output.Top)
	if err != nil {
		return nil, err
	}
	if top < 0 {
		return nil, fmt.Errorf("--top must not be negative (got %d)", top)
	}

	ch, err := openCache(c, cfg)
	if err != nil {
		logger.Warn("cache disabled", zap.Error(err))
	}
	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithCache(ch),
		analysis.WithLogger(logger),
	)

	return &analyzeRun{
		cfg:     cfg,
		service: svc,
		logger:  logger,
		format:  format,
		opts: analysis.LCOMOptions{
			InheritedMethods:  getTrailingFlag(c, "inherited", "", ""),
			BackingFields:     getTrailingFlag(c, "backing-fields", "", ""),
			PublicOnly:        getTrailingBool(c, "public-only"),
			IncludeGenerated:  getTrailingBool(c, "include-generated"),
			IncludeInterfaces: getTrailingBool(c, "include-interfaces"),
			Sort:              sort,
			Top:               top,
		},
	}, nil
}

// report scans paths, analyzes every file found and writes the report.
func (r *analyzeRun) report(ctx context.Context, c *cli.Context, paths []string) error {
	sc := scanner.NewScanner(r.cfg)
	files, err := sc.ScanPaths(paths)
	if err != nil {
		return err
	}
	for lang, group := range sc.GroupByLanguage(files) {
		r.logger.Debug("scanned", zap.Stringer("language", lang), zap.Int("files", len(group)))
	}
	if len(files) == 0 {
		color.New(color.FgYellow).Fprintln(c.App.ErrWriter, "No C#, Java or type model files found")
		return nil
	}

	opts := r.opts
	var tracker *progress.Tracker
	if r.format == output.FormatText {
		tracker = progress.New(c.App.ErrWriter, "Analyzing cohesion...", len(files))
		opts.OnProgress = tracker.Report
	}

	result, err := r.service.AnalyzeLCOM(ctx, files, opts)
	if tracker != nil {
		tracker.Finish(err)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := newFormatter(c, r.format, r.cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewLCOMReport(result, r.cfg.Thresholds.LCOMWarning, r.cfg.Thresholds.LCOMHigh))
}

func runAnalyzeCmd(c *cli.Context) error {
	run, err := newAnalyzeRun(c)
	if err != nil {
		return err
	}
	defer func() { _ = run.logger.Sync() }()

	return run.report(c.Context, c, getPaths(c))
}
