// Package main provides the engage CLI, a client for the engagement API.
//
// Usage:
//
//	engage [global options] <command> [options] [args]
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "engage",
		Usage:   "Extract text from PDFs and images and analyze it for social media engagement",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to YAML config", EnvVars: []string{"CONFIG_FILE"}},
			&cli.StringFlag{Name: "api-url", Usage: "API base URL (overrides config)"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout (overrides config)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log HTTP calls to stderr"},
		},
		Commands: []*cli.Command{
			extractCommand(),
			analyzeCommand(),
			tipsCommand(),
			modelsCommand(),
			formatsCommand(),
			healthCommand(),
			batchCommand(),
		},
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler prints the user-facing message; validation problems exit 2.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		cli.HandleExitCoder(err)
		return
	}
	fmt.Fprintln(os.Stderr, "error:", common.PublicMessage(err))
	slog.Debug("command failed", "error", err)
	if errors.Is(err, common.ErrValidation) {
		os.Exit(2)
	}
	os.Exit(1)
}
