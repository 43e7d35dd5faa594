package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/xnome/dashboard/internal/errors"
	obserrors "github.com/xnome/dashboard/internal/observability/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// statusFor maps an application error code to its HTTP status.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeUpstream:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error": message, ...details}. Errors that are not
// application errors are logged and reported as a generic 500.
func WriteError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logError(ctx, logger, err)
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal error"})
		return
	}

	status := statusFor(appErr.Code)
	if status == http.StatusInternalServerError {
		logError(ctx, logger, err)
	}

	body := make(map[string]any, len(appErr.Details)+2)
	for k, v := range appErr.Details {
		body[k] = v
	}
	body["error"] = appErr.Message
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if _, ok := body["details"]; !ok && appErr.Code == apperrors.ErrCodeUpstream && appErr.Cause != nil {
		body["details"] = appErr.Cause.Error()
	}
	WriteJSON(w, status, body)
}

func logError(ctx context.Context, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "request failed",
		slog.String("error_class", obserrors.Classify(err)),
		slog.Any("error", err))
}
