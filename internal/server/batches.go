package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/internal/async"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

type batchTicket struct {
	BatchID   string `json:"batchId"`
	StatusURL string `json:"statusUrl"`
}

// submitBatch validates the upload, registers the batch and queues it for the workers.
func (a *API) submitBatch(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to submit batch"
	ctx := r.Context()
	if a.queue == nil {
		a.fail(ctx, w, "http.ingest.submit", title,
			common.NewAppError(common.CodeConfig, "Background ingestion is disabled", common.ErrInternal, nil))
		return
	}

	arts, err := readArtifacts(w, r, "files")
	if err == nil {
		err = checkCount(arts, "No files uploaded")
	}
	if err != nil {
		a.fail(ctx, w, "http.ingest.submit", title, err)
		return
	}
	b, _, err := a.orchestrator.Prepare(arts)
	if err != nil {
		a.fail(ctx, w, "http.ingest.submit", title, err)
		return
	}
	a.registry.Put(b)

	job := async.Job{BatchID: b.ID, SubmittedAt: time.Now().UTC(), TraceID: common.RequestIDFromContext(ctx)}
	if err := a.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, async.ErrQueueClosed) {
			err = common.NewAppError(common.CodeInternal, "Server is shutting down", common.ErrInternal, err)
		}
		// the id was never handed out
		b.Abort(common.CodeInternal, "Batch could not be queued")
		a.registry.Remove(b.ID)
		a.fail(ctx, w, "http.ingest.submit", title, err)
		return
	}
	a.logger.Info("http.ingest.queued", "req_id", job.TraceID, "batch_id", b.ID, "artifacts", len(b.Artifacts), "rejected", len(b.Rejected))
	writeData(w, http.StatusAccepted, batchTicket{BatchID: b.ID, StatusURL: "/api/ingest/batches/" + b.ID})
}

func (a *API) batchStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := a.registry.Snapshot(r.PathValue("id"))
	if err != nil {
		a.fail(r.Context(), w, "http.ingest.status", "Failed to load batch", err)
		return
	}
	writeData(w, http.StatusOK, snap)
}

func (a *API) batchExport(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to export batch"
	ctx := r.Context()
	snap, err := a.registry.Snapshot(r.PathValue("id"))
	if err != nil {
		a.fail(ctx, w, "http.ingest.export", title, err)
		return
	}
	xlsx, err := a.exporter.BatchWorkbook(ctx, snap)
	if err != nil {
		a.fail(ctx, w, "http.ingest.export", title, common.NewAppError(common.CodeInternal, title, common.ErrInternal, err))
		return
	}
	writeXLSX(w, "batch-"+snap.ID+".xlsx", xlsx)
}

func writeXLSX(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
