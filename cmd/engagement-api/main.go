package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/async"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/export"
	"github.com/joseph-ayodele/engagement-analyzer/internal/extract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
	_ "github.com/joseph-ayodele/engagement-analyzer/internal/ocr/gosseract"
	"github.com/joseph-ayodele/engagement-analyzer/internal/repository"
	"github.com/joseph-ayodele/engagement-analyzer/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to YAML config (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	gen, err := analysis.NewGenerator(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to build generator", "error", err)
		os.Exit(2)
	}
	analysisSvc := analysis.NewService(gen, logger,
		analysis.WithRepository(repository.NewAnalysisRepository(db, logger)),
		analysis.WithTimeout(cfg.LLM.Timeout),
		analysis.WithValidation(cfg.LLM.ValidateJSON),
	)

	adapter := extract.NewAdapterFromConfig(cfg.OCR, logger)
	recorder := ingest.NewRepositoryRecorder(repository.NewBatchRepository(db, logger))
	orchestrator := ingest.NewOrchestrator(adapter, logger,
		ingest.WithRecorder(recorder),
		ingest.WithMaxConcurrent(cfg.Ingest.MaxConcurrent),
		ingest.WithMaxFiles(cfg.Ingest.MaxFiles),
	)
	registry := ingest.NewRegistry(0)
	queue := async.NewBatchQueue(&ingest.AsyncProcessor{Orchestrator: orchestrator, Registry: registry}, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.JobTimeout),
	)

	api := server.NewAPI(server.Deps{
		Extractor:    adapter,
		Orchestrator: orchestrator,
		Registry:     registry,
		Queue:        queue,
		Analysis:     analysisSvc,
		Exporter:     export.NewService(logger),
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	grpcServer, healthServer := server.NewGRPCServer(analysisSvc, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	logger.Info("engagement-api listening", "http_addr", cfg.Server.HTTPAddr, "grpc_addr", cfg.Server.GRPCAddr,
		"llm_provider", cfg.LLM.Provider, "llm_model", cfg.LLM.Model, "ocr_engine", cfg.OCR.Engine, "pdf_engine", cfg.OCR.PDFEngine)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP serve error", "error", err)
			stop()
		}
	}()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
