package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/panbanda/lcom/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Watch for file changes and re-analyze",
		ArgsUsage: "[path]",
		Description: `Analyzes the path once, then again whenever a C#, Java or type model
file below it is written. Unchanged files are served from the cache.`,
		Flags: append(analyzeFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must stay unchanged before re-analysis",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	run, err := newAnalyzeRun(c)
	if err != nil {
		return err
	}
	defer func() { _ = run.logger.Sync() }()

	root, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(root, run.cfg,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(run.logger),
		watch.WithOutput(c.App.ErrWriter),
	)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if err := run.report(c.Context, c, []string{root}); err != nil {
		return err
	}

	watcher.SetCallback(func(ctx context.Context, _ []string) {
		if err := run.report(ctx, c, []string{root}); err != nil && !errors.Is(err, context.Canceled) {
			color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Error: %v\n", err)
		}
	})

	err = watcher.Start(c.Context)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(c.App.ErrWriter, "Stopping watch...")
		return nil
	}
	if err != nil {
		run.logger.Error("watch failed", zap.Error(err))
	}
	return err
}
