package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/export"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	_ "github.com/joseph-ayodele/engagement-analyzer/internal/ocr/gosseract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config (defaults to $CONFIG_FILE)")
	xlsxOut := flag.String("xlsx", "", "write the batch workbook to this path")
	record := flag.Bool("record", false, "record the batch in the configured database")
	printText := flag.Bool("text", false, "print the current extracted text")
	flag.Parse()

	if flag.NArg() == 0 {
		logger.Error("usage", "cmd", "runextract [-config F] [-xlsx OUT] [-record] [-text] <file-or-dir>...")
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	artifacts, stats, err := ingest.LoadPaths(flag.Args(), true)
	if err != nil {
		logger.Error("load files", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded files", "files", len(artifacts), "skipped", stats.Skipped)

	opts := []ingest.Option{
		ingest.WithMaxConcurrent(cfg.Ingest.MaxConcurrent),
		// local runs are not bound by the per-request upload limit
		ingest.WithMaxFiles(len(artifacts)),
	}
	if *record {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Error("migrate db", "error", err)
			os.Exit(1)
		}
		opts = append(opts, ingest.WithRecorder(ingest.NewRepositoryRecorder(repository.NewBatchRepository(db, logger))))
	}

	adapter := extract.NewAdapterFromConfig(cfg.OCR, logger)
	orchestrator := ingest.NewOrchestrator(adapter, logger, opts...)

	start := time.Now()
	res, err := orchestrator.Ingest(ctx, artifacts)
	if err != nil {
		logger.Error("text extraction failed", "error", common.PublicMessage(err), "cause", err)
		os.Exit(1)
	}

	for _, a := range res.Artifacts {
		if a.Result == nil {
			logger.Warn("artifact failed", "file", a.DisplayName, "code", a.ErrorCode, "error", a.Error)
			continue
		}
		logger.Info("artifact extracted",
			"file", a.DisplayName,
			"engine", a.Result.Engine,
			"method", a.Result.Method,
			"chars", len([]rune(a.Result.Text)),
			"duration_ms", a.Result.Duration.Milliseconds(),
		)
	}
	logger.Info("text extraction done",
		"batch_id", res.ID,
		"aggregate", res.Aggregate,
		"succeeded", res.Succeeded(),
		"failed", res.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if *printText && res.Current != nil {
		fmt.Println(res.Current.Text)
	}

	if *xlsxOut != "" {
		data, err := export.NewService(logger).BatchWorkbook(ctx, *res)
		if err != nil {
			logger.Error("build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, data, 0o644); err != nil {
			logger.Error("write workbook", "error", err)
			os.Exit(1)
		}
		logger.Info("wrote workbook", "path", *xlsxOut, "bytes", len(data))
	}
}
