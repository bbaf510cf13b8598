package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionString() string {
	return version + " (" + commit + ", " + date + ")"
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"LCOM_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon, csv (default from config, text)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Disable the result cache",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging on stderr",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "lcom",
		Usage:   "Lack of Cohesion of Methods for C#, Java and type model dumps",
		Version: versionString(),
		Description: `lcom measures how well the methods of each class hang together.
For every pair of methods it checks whether they touch a common field or
property: LCOM = max(P - Q, 0), where P counts pairs sharing nothing and Q
pairs sharing something. 0 is cohesive; larger values suggest the class does
several unrelated jobs.

Supports: C# (.cs), Java (.java), type model documents (.lcom.yaml, .lcom.json)`,
		Flags:     append(globalFlags(), analyzeFlags()...),
		ArgsUsage: "[path...]",
		Action:    runAnalyzeCmd,
		Commands: []*cli.Command{
			analyzeCmd(),
			explainCmd(),
			watchCmd(),
			configCmd(),
			cacheCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
