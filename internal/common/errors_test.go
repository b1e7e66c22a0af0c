package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("tesseract exited 1: /tmp/x.png")
	tests := []struct {
		name   string
		err    error
		status int
		code   codes.Code
	}{
		{"validation", NewValidationError(CodeEmptyContent, "No content provided"), http.StatusBadRequest, codes.InvalidArgument},
		{"not found", NewNotFoundError("Batch not found"), http.StatusNotFound, codes.NotFound},
		{"conflict", NewConflictError(CodeAnalysisInFlight, "busy"), http.StatusConflict, codes.FailedPrecondition},
		{"timeout", NewTimeoutError(CodeAnalysisTimeout, "Analysis timed out", nil), http.StatusGatewayTimeout, codes.DeadlineExceeded},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, codes.DeadlineExceeded},
		{"engine", NewEngineError("Failed to process image", cause), http.StatusInternalServerError, codes.Internal},
		{"wrapped", WrapError(NewValidationError(CodeInvalidRequest, "bad"), "decode"), http.StatusBadRequest, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.status)
			}
			if got := status.Code(ToGRPC(tt.err)); got != tt.code {
				t.Errorf("ToGRPC code = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := NewEngineError("Failed to process image", errors.New("exec: tesseract: not found"))
	if got := PublicMessage(err); got != "Failed to process image" {
		t.Errorf("PublicMessage = %q", got)
	}
	if got := PublicMessage(errors.New("pq: password authentication failed")); got != "internal server error" {
		t.Errorf("PublicMessage of plain error = %q", got)
	}
	if !errors.Is(err, ErrEngine) {
		t.Error("engine error should match ErrEngine")
	}
	if CodeOf(err) != CodeEngineFailure {
		t.Errorf("CodeOf = %q", CodeOf(err))
	}
	if CodeOf(errors.New("x")) != "" {
		t.Error("CodeOf plain error should be empty")
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("request id not stored: %q", id)
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Error("existing request id should be kept")
	}
}
