package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrorType categorises an application error for HTTP mapping and logging.
type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeValidation      ErrorType = "VALIDATION"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeDatabaseError   ErrorType = "DATABASE_ERROR"
	ErrorTypeProcessFailure  ErrorType = "PROCESS_FAILURE"
	ErrorTypeUpstreamFailure ErrorType = "UPSTREAM_FAILURE"
	ErrorTypeInternal        ErrorType = "INTERNAL"
)

// Layer identifies where in the stack the error originated.
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerInfrastructure Layer = "infrastructure"
)

// AppError carries the error taxonomy alongside the wrapped cause.
type AppError struct {
	Type      ErrorType
	Layer     Layer
	Message   string
	Err       error
	RequestID string
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError, picking the request id out of the context when present.
func New(ctx context.Context, layer Layer, errorType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:      errorType,
		Layer:     layer,
		Message:   message,
		Err:       err,
		RequestID: requestIDFromContext(ctx),
		Timestamp: time.Now().UTC(),
	}
}

// AsError wraps err with layer context, preserving the taxonomy of an inner AppError.
func AsError(ctx context.Context, layer Layer, err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return New(ctx, layer, appErr.Type, fmt.Sprintf("%s: %s", message, appErr.Message), appErr)
	}
	return New(ctx, layer, ErrorTypeInternal, message, err)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Log emits a structured error event preserving the taxonomy fields.
func Log(logger zerolog.Logger, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Msg("unclassified error")
		return
	}
	event := logger.Error().
		Str("error_type", string(appErr.Type)).
		Str("layer", string(appErr.Layer)).
		Time("timestamp_utc", appErr.Timestamp)
	if appErr.RequestID != "" {
		event = event.Str("request_id", appErr.RequestID)
	}
	if appErr.Err != nil {
		event = event.Err(appErr.Err)
	}
	event.Msg(appErr.Message)
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id for error correlation.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}
