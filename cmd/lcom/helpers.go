package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/panbanda/lcom/internal/cache"
	"github.com/panbanda/lcom/internal/output"
	"github.com/panbanda/lcom/pkg/config"
)

// valueFlags take a value when they trail positional arguments.
var valueFlags = map[string]bool{
	"config": true, "c": true,
	"format": true, "f": true,
	"output": true, "o": true,
	"type": true, "t": true,
	"inherited":      true,
	"backing-fields": true,
	"sort":           true,
	"top":            true,
	"debounce":       true,
}

// getPaths returns the positional arguments with any trailing flags
// removed, defaulting to ["."].
func getPaths(c *cli.Context) []string {
	args := c.Args().Slice()
	var paths []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			paths = append(paths, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if !strings.Contains(name, "=") && valueFlags[name] {
			i++
		}
	}
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// trailingValue finds a flag value given after the positional arguments,
// where urfave/cli stops parsing.
func trailingValue(c *cli.Context, name, short string) (string, bool) {
	args := c.Args().Slice()
	for i, arg := range args {
		for _, n := range []string{name, short} {
			if n == "" {
				continue
			}
			for _, flag := range []string{"--" + n, "-" + n} {
				if arg == flag && i+1 < len(args) {
					return args[i+1], true
				}
				if v, ok := strings.CutPrefix(arg, flag+"="); ok {
					return v, true
				}
			}
		}
	}
	return "", false
}

// getTrailingFlag returns a string flag from the trailing arguments, then
// from the parsed flags, then defaultValue.
func getTrailingFlag(c *cli.Context, name, short, defaultValue string) string {
	if v, ok := trailingValue(c, name, short); ok {
		return v
	}
	if v := c.String(name); v != "" {
		return v
	}
	return defaultValue
}

// getTrailingBool reports whether a boolean flag was given anywhere.
func getTrailingBool(c *cli.Context, name string) bool {
	if c.Bool(name) {
		return true
	}
	for _, arg := range c.Args().Slice() {
		if arg == "--"+name || arg == "-"+name || arg == "--"+name+"=true" {
			return true
		}
	}
	return false
}

// getTrailingInt returns an integer flag given anywhere, or defaultValue.
func getTrailingInt(c *cli.Context, name string, defaultValue int) (int, error) {
	if v, ok := trailingValue(c, name, ""); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid --%s %q", name, v)
		}
		return n, nil
	}
	if c.IsSet(name) {
		return c.Int(name), nil
	}
	return defaultValue, nil
}

// loadConfig loads the configuration named by --config or found in the
// standard locations. A config file that fails to parse or validate is an
// error.
func loadConfig(c *cli.Context) (*config.LoadResult, error) {
	var opts []config.LoadOption
	if path := getTrailingFlag(c, "config", "c", ""); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return config.LoadConfig(opts...)
}

// newLogger logs warnings to stderr, or everything with --verbose.
func newLogger(c *cli.Context) *zap.Logger {
	level := zapcore.WarnLevel
	if getTrailingBool(c, "verbose") {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(c.App.ErrWriter)),
		level,
	)
	return zap.New(core)
}

// openCache returns the result cache, or nil when caching is off.
func openCache(c *cli.Context, cfg *config.Config) (*cache.Cache, error) {
	if getTrailingBool(c, "no-cache") || !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
}

// getFormat resolves the output format from flags or configuration.
func getFormat(c *cli.Context, cfg *config.Config) output.Format {
	return output.ParseFormat(getTrailingFlag(c, "format", "f", cfg.Output.Format))
}

// newFormatter writes to --output when given, otherwise to the app writer.
func newFormatter(c *cli.Context, format output.Format, colored bool) (*output.Formatter, error) {
	if path := getTrailingFlag(c, "output", "o", ""); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, colored), nil
}
