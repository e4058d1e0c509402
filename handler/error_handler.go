package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/subkit/pkg/logger"
	"github.com/dmitrymomot/subkit/pkg/requestid"
)

// ErrorHandlerConfig configures the default error handler
type ErrorHandlerConfig struct {
	// MapError translates domain errors into HTTPError values before rendering.
	// Errors it returns unchanged keep their HTTPError status or become a 500.
	MapError func(error) error
}

// ErrorInfo contains classified error information
type ErrorInfo struct {
	StatusCode int
	LogLevel   slog.Level
}

func isClientError(statusCode int) bool {
	return statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError
}

// ClassifyError returns the status an error renders with and the level it is logged at.
func ClassifyError(err error) ErrorInfo {
	info := ErrorInfo{StatusCode: http.StatusInternalServerError, LogLevel: slog.LevelError}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.StatusCode = httpErr.Code
	}
	if isClientError(info.StatusCode) {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

// LogError logs a request failure with the request context.
func LogError(log *slog.Logger, r *http.Request, msg string, err error, info ErrorInfo) {
	log.LogAttrs(r.Context(), info.LogLevel, msg,
		slog.String("request_id", requestid.FromContext(r.Context())),
		logger.Error(err),
		slog.Int("status_code", info.StatusCode),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.Component("error_handler"),
	)
}

// NewErrorHandler creates the error handler for binding and rendering failures.
// It logs the error and renders it as a JSON error envelope.
// Configure this once in the service and pass it to every Wrap call.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		if cfg.MapError != nil {
			err = cfg.MapError(err)
		}
		info := ClassifyError(err)
		LogError(log, ctx.Request(), "request error", err, info)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), ctx.Request()); renderErr != nil {
			log.ErrorContext(ctx, "failed to render error response",
				logger.Error(renderErr),
				logger.Component("error_handler"),
			)
		}
	}
}
