package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/flowgraph/creditflow/internal/app/store"
	"github.com/flowgraph/creditflow/internal/app/testrunner"
	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/core/workflow"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNodeNotFound),
		errors.Is(err, workflow.ErrEdgeNotFound),
		errors.Is(err, draft.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrMalformedImport),
		errors.Is(err, workflow.ErrInvalidNodeType),
		errors.Is(err, workflow.ErrDataTypeMismatch),
		errors.Is(err, workflow.ErrUnknownField),
		errors.Is(err, workflow.ErrInvalidFieldValue),
		errors.Is(err, workflow.ErrSelfLoop),
		errors.Is(err, workflow.ErrDuplicateEdge),
		errors.Is(err, draft.ErrInvalidName),
		errors.Is(err, draft.ErrInvalidLimit),
		errors.Is(err, draft.ErrInvalidOffset),
		errors.Is(err, draft.ErrInvalidTimeRange):
		return http.StatusBadRequest
	case errors.Is(err, testrunner.ErrWorkflowInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, draft.ErrMemoryLimit):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
