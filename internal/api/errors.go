package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying cause
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final APIError
func (eb *ErrorBuilder) Build() APIError {
	var ctx map[string]interface{}
	if len(eb.context) > 0 {
		ctx = eb.context
	}
	return APIError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler writes error responses and logs them.
type ErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError writes err with status. Errors that are not already an
// APIError are reported as internal errors.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, status int) {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		apiErr = NewError(ErrTypeInternal, err.Error()).
			WithContext("path", r.URL.Path).
			WithContext("method", r.Method).
			Build()
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = middleware.GetReqID(r.Context())
	}
	eh.logError(r, apiErr, status)
	eh.writeErrorResponse(w, status, apiErr)
}

// HandleValidationError reports a rejected request field.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	apiErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		Build()
	eh.logError(r, apiErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, apiErr)
}

// HandleNotFound reports a missing resource.
func (eh *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request, kind, id string) {
	apiErr := NewError(ErrTypeNotFound, fmt.Sprintf("%s not found", kind)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext(kind, id).
		Build()
	eh.logError(r, apiErr, http.StatusNotFound)
	eh.writeErrorResponse(w, http.StatusNotFound, apiErr)
}

func (eh *ErrorHandler) logError(r *http.Request, apiErr APIError, status int) {
	level := slog.LevelError
	if GetErrorCategory(apiErr.Type) != CategorySystem && status < 500 {
		level = slog.LevelWarn
	}
	eh.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("type", apiErr.Type),
		slog.String("category", string(GetErrorCategory(apiErr.Type))),
		slog.Int("status", status),
		slog.String("request_id", apiErr.RequestID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_ip", r.RemoteAddr),
		slog.String("error", apiErr.Message),
		slog.Any("context", apiErr.Context),
	)
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", apiErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(apiErr.Type)))
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		eh.logger.Error("encode error response", "error", err)
	}
}

// RecoveryHandler turns a handler panic into a 500 response.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			requestID := middleware.GetReqID(r.Context())
			eh.logger.Error("panic recovered",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(rvr),
			)
			apiErr := NewError(ErrTypeInternal, "Internal server error").
				WithRequestID(requestID).
				WithContext("panic", fmt.Sprint(rvr)).
				Build()
			eh.writeErrorResponse(w, http.StatusInternalServerError, apiErr)
		}()
		next.ServeHTTP(w, r)
	})
}
