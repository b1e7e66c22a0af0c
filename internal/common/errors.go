package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors.
// Kind is one of the taxonomy sentinels below; Message is safe to show to users.
type AppError struct {
	Code    string
	Message string
	Kind    error
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Error taxonomy
var (
	ErrValidation = errors.New("validation failed")
	ErrEngine     = errors.New("engine failure")
	ErrTimeout    = errors.New("timed out")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("resource not found")
	ErrInternal   = errors.New("internal error")
)

// Error codes
const (
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeArtifactTooLarge     = "ARTIFACT_TOO_LARGE"
	CodeDuplicateArtifact    = "DUPLICATE_ARTIFACT"
	CodeEmptyBatch           = "EMPTY_BATCH"
	CodeTooManyFiles         = "TOO_MANY_FILES"
	CodeEmptyContent         = "EMPTY_CONTENT"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeEngineFailure        = "ENGINE_FAILURE"
	CodeAnalysisTimeout      = "ANALYSIS_TIMEOUT"
	CodeAnalysisInFlight     = "ANALYSIS_IN_FLIGHT"
	CodeNotFound             = "NOT_FOUND"
	CodeConfig               = "CONFIG_ERROR"
	CodeInternal             = "INTERNAL"
)

// NewAppError builds an AppError of the given kind.
func NewAppError(code, message string, kind, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Cause:   cause,
	}
}

func NewValidationError(code, message string) *AppError {
	return NewAppError(code, message, ErrValidation, nil)
}

func NewEngineError(message string, cause error) *AppError {
	return NewAppError(CodeEngineFailure, message, ErrEngine, cause)
}

func NewTimeoutError(code, message string, cause error) *AppError {
	return NewAppError(code, message, ErrTimeout, cause)
}

func NewConflictError(code, message string) *AppError {
	return NewAppError(code, message, ErrConflict, nil)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound, nil)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code carried by err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsTimeout reports whether err is a taxonomy timeout or a context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// PublicMessage returns the human-readable part of err, never internal detail.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error onto the HTTP status reported to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ToGRPC converts an error into a gRPC status error.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	msg := PublicMessage(err)
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, ErrConflict):
		return status.Error(codes.FailedPrecondition, msg)
	case IsTimeout(err):
		return status.Error(codes.DeadlineExceeded, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
