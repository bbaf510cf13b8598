package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/lcom/internal/cache"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Result cache commands",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove every cached result",
				Action: runCacheClear,
			},
			{
				Name:   "prune",
				Usage:  "Remove expired and unreadable entries",
				Action: runCachePrune,
			},
			{
				Name:   "stats",
				Usage:  "Show cache size and age",
				Action: runCacheStats,
			},
		},
	}
}

func configuredCache(c *cli.Context) (*cache.Cache, error) {
	loaded, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
}

func runCacheClear(c *cli.Context) error {
	ch, err := configuredCache(c)
	if err != nil {
		return err
	}
	if err := ch.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Cache cleared: %s\n", ch.Dir())
	return nil
}

func runCachePrune(c *cli.Context) error {
	ch, err := configuredCache(c)
	if err != nil {
		return err
	}
	removed, err := ch.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Removed %d expired entries from %s\n", removed, ch.Dir())
	return nil
}

func runCacheStats(c *cli.Context) error {
	ch, err := configuredCache(c)
	if err != nil {
		return err
	}
	stats, err := ch.GetStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Directory: %s\n", ch.Dir())
	fmt.Fprintf(c.App.Writer, "Entries:   %d\n", stats.Entries)
	fmt.Fprintf(c.App.Writer, "Expired:   %d\n", stats.Expired)
	fmt.Fprintf(c.App.Writer, "Size:      %d bytes\n", stats.TotalSize)
	if stats.Entries > 0 {
		fmt.Fprintf(c.App.Writer, "Oldest:    %s\n", stats.OldestAge.Round(time.Second))
		fmt.Fprintf(c.App.Writer, "Newest:    %s\n", stats.NewestAge.Round(time.Second))
	}
	return nil
}
