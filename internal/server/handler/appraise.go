package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gitworth/internal/service/appraise"
)

type processingBody struct {
	RequestID string `json:"request_id"`
	Msg       string `json:"msg"`
}

// HandleAppraise serves GET /api/projects/{owner}/{name}/appraisal.
// Query parameters: folder (default project root), request_id (correlation
// id, generated when absent).
func (h *Handler) HandleAppraise(w http.ResponseWriter, r *http.Request) {
	req := appraise.Request{
		Owner:      chi.URLParam(r, "owner"),
		Name:       chi.URLParam(r, "name"),
		FolderPath: r.URL.Query().Get("folder"),
		RequestID:  r.URL.Query().Get("request_id"),
	}

	result, fault := h.appraiser.Appraise(r.Context(), req)
	if fault == nil {
		writeRaw(w, http.StatusOK, result.JSON)
		return
	}

	switch fault.Status {
	case appraise.StatusProcessing:
		writeJSON(w, http.StatusAccepted, processingBody{RequestID: fault.RequestID, Msg: fault.Message})
	case appraise.StatusNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: fault.Message})
	case appraise.StatusForbidden:
		writeJSON(w, http.StatusForbidden, errorBody{Error: fault.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fault.Message})
	}
}
