package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/ingest"
	"github.com/p-n-ai/pai-study/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, course.ErrValidation), errors.Is(err, store.ErrSchemaViolation):
		return http.StatusBadRequest
	case errors.Is(err, course.ErrCourseNotFound):
		return http.StatusNotFound
	case errors.Is(err, course.ErrDuplicateName), errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ingest.ErrNoQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ingest.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrStoreUnavailable), errors.Is(err, ingest.ErrNoGenerator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
