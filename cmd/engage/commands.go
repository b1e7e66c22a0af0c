package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/client"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	"github.com/joseph-ayodele/engagement-analyzer/internal/workflow"
)

func newClient(c *cli.Context) (*client.Client, error) {
	cfg, err := common.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if u := c.String("api-url"); u != "" {
		cfg.Client.APIURL = u
	}
	if d := c.Duration("timeout"); d > 0 {
		cfg.Client.Timeout = d
	}
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return client.NewFromConfig(cfg.Client, logger), nil
}

func render(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readFiles(paths []string) ([]client.File, error) {
	files, _, err := ingest.LoadPaths(paths, true)
	if err != nil {
		return nil, err
	}
	out := make([]client.File, 0, len(files))
	for _, a := range files {
		out = append(out, client.File{Name: a.DisplayName, MediaType: a.MediaType, Data: a.Data})
	}
	return out, nil
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract text from PDFs and images (directories are expanded)",
		ArgsUsage: "FILE...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("extract needs at least one file", 2)
			}
			api, err := newClient(c)
			if err != nil {
				return err
			}
			files, err := readFiles(c.Args().Slice())
			if err != nil {
				return err
			}
			ctrl := workflow.NewController(api, nil, slog.Default())
			statuses, err := ctrl.Upload(c.Context, files)
			if err != nil {
				return err
			}
			return render(c.App.Writer, map[string]any{
				"files":         statuses,
				"extractedText": ctrl.State().Snapshot().ExtractedText,
			})
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyze text, or the text extracted from files",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "file", Aliases: []string{"f"}, Usage: "PDF or image to extract first (repeatable)"},
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "text to analyze"},
			&cli.BoolFlag{Name: "quick", Aliases: []string{"q"}, Usage: "quick analysis"},
			&cli.StringFlag{Name: "platform", Aliases: []string{"p"}, Value: string(constants.PlatformGeneral), Usage: "general, twitter, linkedin, instagram, facebook"},
			&cli.StringFlag{Name: "content-type", Value: constants.DefaultContentType, Usage: "content type label"},
			&cli.StringFlag{Name: "xlsx", Usage: "also write the analysis workbook to this path"},
		},
		Action: analyzeAction,
	}
}

func analyzeAction(c *cli.Context) error {
	api, err := newClient(c)
	if err != nil {
		return err
	}
	ctrl := workflow.NewController(api, nil, slog.Default())

	if paths := c.StringSlice("file"); len(paths) > 0 {
		files, err := readFiles(paths)
		if err != nil {
			return err
		}
		statuses, err := ctrl.Upload(c.Context, files)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			if s.Status == constants.ArtifactError {
				fmt.Fprintf(c.App.ErrWriter, "warning: %s: %s\n", s.Name, s.Error)
			}
		}
	}
	if t := c.String("text"); t != "" {
		ctrl.State().SetText(t)
	}

	mode := constants.ModeFull
	if c.Bool("quick") {
		mode = constants.ModeQuick
	}
	res, err := ctrl.Analyze(c.Context, c.String("content-type"), c.String("platform"), mode)
	if err != nil {
		return err
	}
	if out := c.String("xlsx"); out != "" {
		if err := saveTo(out, func(w io.Writer) (int64, error) { return api.ExportAnalysis(c.Context, res.ID, w) }); err != nil {
			return err
		}
	}
	return render(c.App.Writer, res)
}

func tipsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tips",
		Usage: "Ask for general engagement tips",
		Action: func(c *cli.Context) error {
			api, err := newClient(c)
			if err != nil {
				return err
			}
			tips, err := api.Tips(c.Context)
			if err != nil {
				return err
			}
			return render(c.App.Writer, tips)
		},
	}
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the generative backend's models",
		Action: func(c *cli.Context) error {
			api, err := newClient(c)
			if err != nil {
				return err
			}
			models, err := api.Models(c.Context)
			if err != nil {
				return err
			}
			return render(c.App.Writer, models)
		},
	}
}

func formatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: "Show supported upload formats",
		Action: func(c *cli.Context) error {
			api, err := newClient(c)
			if err != nil {
				return err
			}
			pdf, image, err := api.Formats(c.Context)
			if err != nil {
				return err
			}
			return render(c.App.Writer, map[string]any{"pdf": pdf, "image": image})
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check whether the API is online",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "watch", Usage: "poll at this interval until interrupted (e.g. 30s)"},
		},
		Action: func(c *cli.Context) error {
			api, err := newClient(c)
			if err != nil {
				return err
			}
			check := func() {
				h, err := api.Health(c.Context)
				if err != nil {
					fmt.Fprintf(c.App.Writer, "%s offline (%s)\n", time.Now().Format(time.RFC3339), common.PublicMessage(err))
					return
				}
				fmt.Fprintf(c.App.Writer, "%s online status=%s version=%s\n", time.Now().Format(time.RFC3339), h.Status, h.Version)
			}
			check()
			every := c.Duration("watch")
			if every <= 0 {
				return nil
			}
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				select {
				case <-c.Context.Done():
					return nil
				case <-t.C:
					check()
				}
			}
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Submit and follow background extraction batches",
		Subcommands: []*cli.Command{
			{
				Name:      "submit",
				Usage:     "Queue files for background extraction",
				ArgsUsage: "FILE...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("batch submit needs at least one file", 2)
					}
					api, err := newClient(c)
					if err != nil {
						return err
					}
					files, err := readFiles(c.Args().Slice())
					if err != nil {
						return err
					}
					ticket, err := api.SubmitBatch(c.Context, files)
					if err != nil {
						return err
					}
					return render(c.App.Writer, ticket)
				},
			},
			{
				Name:      "status",
				Usage:     "Show a batch's per-file status",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Usage: "poll until the batch finishes"},
				},
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("batch status needs a batch id", 2)
					}
					api, err := newClient(c)
					if err != nil {
						return err
					}
					res, err := waitBatch(c.Context, api, id, c.Bool("wait"))
					if err != nil {
						return err
					}
					return render(c.App.Writer, res)
				},
			},
			{
				Name:      "export",
				Usage:     "Download a batch workbook",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default batch-<id>.xlsx)"},
				},
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("batch export needs a batch id", 2)
					}
					api, err := newClient(c)
					if err != nil {
						return err
					}
					out := c.String("out")
					if out == "" {
						out = "batch-" + id + ".xlsx"
					}
					if err := saveTo(out, func(w io.Writer) (int64, error) { return api.ExportBatch(c.Context, id, w) }); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "wrote", out)
					return nil
				},
			},
		},
	}
}

func waitBatch(ctx context.Context, api *client.Client, id string, wait bool) (*ingest.BatchResult, error) {
	for {
		res, err := api.BatchStatus(ctx, id)
		if err != nil || !wait || res.Aggregate != constants.BatchPending {
			return res, err
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// saveTo writes through a temp file so a failed download never leaves a partial workbook.
func saveTo(path string, fetch func(io.Writer) (int64, error)) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".engage-*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := fetch(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
