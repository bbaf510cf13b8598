package main

import (
	"errors"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/panbanda/lcom/internal/output"
	"github.com/panbanda/lcom/internal/service/analysis"
)

func explainCmd() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Aliases:   []string{"x"},
		Usage:     "Show the usage matrix behind one type's LCOM value",
		ArgsUsage: "<path> [part...]",
		Description: `Prints the members considered, each selected method's usage vector and
the cohesive and non-cohesive pair counts for one type. Further paths name
files declaring other parts of a C# partial type.

Examples:
  lcom explain src/Cart.cs --type Cart
  lcom explain dump.lcom.yaml --type Shop.Cart --inherited permissive
  lcom explain src/Form1.cs src/Form1.Designer.cs --type Form1`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Full or unqualified type name",
			},
			&cli.StringFlag{
				Name:  "inherited",
				Usage: "Inherited method policy: strict, permissive (default from config)",
			},
			&cli.StringFlag{
				Name:  "backing-fields",
				Usage: "Backing field policy: attribute, ignore (default from config)",
			},
		},
		Action: runExplainCmd,
	}
}

func runExplainCmd(c *cli.Context) error {
	typeName := getTrailingFlag(c, "type", "t", "")
	if typeName == "" {
		return errors.New("explain: --type is required")
	}
	paths := getPaths(c)
	if c.Args().Len() == 0 || len(paths) == 0 {
		return errors.New("explain: a file path is required")
	}

	loaded, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	logger := newLogger(c)
	defer func() { _ = logger.Sync() }()

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(logger))
	e, err := svc.Explain(c.Context, paths[0], typeName, analysis.ExplainOptions{
		InheritedMethods: getTrailingFlag(c, "inherited", "", ""),
		BackingFields:    getTrailingFlag(c, "backing-fields", "", ""),
		Parts:            paths[1:],
	})
	if err != nil {
		return err
	}
	logger.Debug("explain complete", zap.String("type", e.TypeName), zap.Int("lcom", e.Counts.LCOM))

	formatter, err := newFormatter(c, getFormat(c, cfg), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewExplainReport(e))
}
