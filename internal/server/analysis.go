package server

import (
	"encoding/json"
	"net/http"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

type analyzeBody struct {
	Text        string `json:"text"`
	ContentType string `json:"contentType"`
	Platform    string `json:"platform"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.NewValidationError(common.CodeInvalidRequest, "Request body must be JSON")
	}
	return nil
}

func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	a.runAnalysis(w, r, constants.ModeFull, "Failed to analyze content")
}

func (a *API) quickAnalyze(w http.ResponseWriter, r *http.Request) {
	a.runAnalysis(w, r, constants.ModeQuick, "Failed to perform quick analysis")
}

func (a *API) runAnalysis(w http.ResponseWriter, r *http.Request, mode constants.AnalysisMode, title string) {
	ctx := r.Context()
	var body analyzeBody
	if err := decodeBody(w, r, &body); err != nil {
		a.fail(ctx, w, "http.analysis", title, err)
		return
	}
	in := analysis.Input{Text: body.Text, Mode: mode}
	if mode == constants.ModeFull {
		in.ContentType, in.Platform = body.ContentType, body.Platform
	}
	res, err := a.analysis.Analyze(ctx, in)
	if err != nil {
		a.fail(ctx, w, "http.analysis", title, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (a *API) getAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := a.analysis.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(r.Context(), w, "http.analysis.get", "Failed to load analysis", err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (a *API) listAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := a.analysis.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		a.fail(r.Context(), w, "http.analysis.list", "Failed to list analyses", err)
		return
	}
	if list == nil {
		list = []analysis.Result{}
	}
	writeData(w, http.StatusOK, list)
}

func (a *API) analysisExport(w http.ResponseWriter, r *http.Request) {
	const title = "Failed to export analysis"
	ctx := r.Context()
	res, err := a.analysis.Get(ctx, r.PathValue("id"))
	if err != nil {
		a.fail(ctx, w, "http.analysis.export", title, err)
		return
	}
	xlsx, err := a.exporter.AnalysisWorkbook(ctx, *res)
	if err != nil {
		a.fail(ctx, w, "http.analysis.export", title, common.NewAppError(common.CodeInternal, title, common.ErrInternal, err))
		return
	}
	writeXLSX(w, "analysis-"+res.ID+".xlsx", xlsx)
}

func (a *API) tips(w http.ResponseWriter, r *http.Request) {
	tips, err := a.analysis.Tips(r.Context())
	if err != nil {
		a.fail(r.Context(), w, "http.analysis.tips", "Failed to generate tips", err)
		return
	}
	writeData(w, http.StatusOK, tips)
}

func (a *API) models(w http.ResponseWriter, r *http.Request) {
	models, err := a.analysis.Models(r.Context())
	if err != nil {
		a.fail(r.Context(), w, "http.analysis.models", "Failed to list models", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": models, "models": models})
}
