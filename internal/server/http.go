package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/async"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
	"github.com/joseph-ayodele/engagement-analyzer/internal/export"
	"github.com/joseph-ayodele/engagement-analyzer/internal/ingest"
)

// Version is reported by the health endpoint.
var Version = "dev"

// maxUploadBytes bounds a whole multipart request.
const maxUploadBytes = constants.MaxBatchFiles*constants.MaxArtifactBytes + 1<<20

// API is the HTTP surface under /api.
type API struct {
	extractor    ingest.Extractor
	orchestrator *ingest.Orchestrator
	registry     *ingest.Registry
	queue        async.Queue
	analysis     *analysis.Service
	exporter     *export.Service
	logger       *slog.Logger
	now          func() time.Time
}

// Deps are the services the API dispatches to. Queue may be nil, which
// disables asynchronous batch submission.
type Deps struct {
	Extractor    ingest.Extractor
	Orchestrator *ingest.Orchestrator
	Registry     *ingest.Registry
	Queue        async.Queue
	Analysis     *analysis.Service
	Exporter     *export.Service
}

func NewAPI(d Deps, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Registry == nil {
		d.Registry = ingest.NewRegistry(0)
	}
	if d.Exporter == nil {
		d.Exporter = export.NewService(logger)
	}
	return &API{
		extractor:    d.Extractor,
		orchestrator: d.Orchestrator,
		registry:     d.Registry,
		queue:        d.Queue,
		analysis:     d.Analysis,
		exporter:     d.Exporter,
		logger:       logger,
		now:          time.Now,
	}
}

// Handler returns the routed, instrumented handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", a.health)

	mux.HandleFunc("POST /api/pdf/extract", a.extractPDF)
	mux.HandleFunc("GET /api/pdf/supported-formats", a.pdfFormats)
	mux.HandleFunc("POST /api/ocr/extract", a.extractImage)
	mux.HandleFunc("POST /api/ocr/extract-multiple", a.extractImages)
	mux.HandleFunc("GET /api/ocr/supported-formats", a.imageFormats)

	mux.HandleFunc("POST /api/ingest/batches", a.submitBatch)
	mux.HandleFunc("GET /api/ingest/batches/{id}", a.batchStatus)
	mux.HandleFunc("GET /api/ingest/batches/{id}/export.xlsx", a.batchExport)

	mux.HandleFunc("POST /api/analysis/analyze", a.analyze)
	mux.HandleFunc("POST /api/analysis/quick-analyze", a.quickAnalyze)
	mux.HandleFunc("GET /api/analysis/records", a.listAnalyses)
	mux.HandleFunc("GET /api/analysis/records/{id}", a.getAnalysis)
	mux.HandleFunc("GET /api/analysis/records/{id}/export.xlsx", a.analysisExport)
	mux.HandleFunc("GET /api/analysis/tips", a.tips)
	mux.HandleFunc("GET /api/analysis/models", a.models)

	return a.instrument(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request id, recovers panics and logs every request.
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			_, reqID = common.EnsureRequestID(r.Context())
		}
		ctx := common.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				a.logger.Error("http.panic", "req_id", reqID, "panic", p, "stack", string(debug.Stack()))
				writeError(rec, "Internal server error", common.NewAppError(common.CodeInternal, "Internal server error", common.ErrInternal, nil))
			}
			a.logger.Info("http.request",
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}()
		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

// writeError reports err with its public message only. Validation errors use
// their own message as the title; other failures use the operation title.
func writeError(w http.ResponseWriter, title string, err error) {
	msg := common.PublicMessage(err)
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrConflict) {
		title = msg
	}
	writeJSON(w, common.HTTPStatus(err), errorBody{Error: title, Message: msg, Code: common.CodeOf(err)})
}

func (a *API) fail(ctx context.Context, w http.ResponseWriter, op, title string, err error) {
	level := slog.LevelError
	if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) {
		level = slog.LevelWarn
	}
	a.logger.Log(ctx, level, op+".failed", "req_id", common.RequestIDFromContext(ctx), "code", common.CodeOf(err), "error", err)
	writeError(w, title, err)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": a.now().UTC(),
		"version":   Version,
	})
}

func (a *API) pdfFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supportedFormats": []string{constants.MediaTypePDF},
		"maxFileSize":      "10MB",
		"features": []string{
			"Text extraction",
			"Page count detection",
			"Document metadata extraction",
			"Character, word and line count",
		},
	})
}

func (a *API) imageFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supportedFormats":   constants.SupportedImageTypes,
		"maxFileSize":        "10MB",
		"maxFilesPerRequest": constants.MaxBatchFiles,
		"features": []string{
			"Optical Character Recognition (OCR)",
			"Confidence scoring",
			"Word and line-level extraction",
			"Bounding box information",
			"Batch processing support",
		},
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
