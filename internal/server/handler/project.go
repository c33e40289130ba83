package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gitworth/internal/store"
)

type registerRequest struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// HandleRegisterProject serves POST /api/projects: fetch the repository from
// the GitHub API and persist it so appraisal requests can resolve it.
func (h *Handler) HandleRegisterProject(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	req.Owner = strings.TrimSpace(req.Owner)
	req.Name = strings.TrimSpace(req.Name)
	if req.Owner == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "owner and name are required"})
		return
	}

	project, err := h.lookup.Lookup(r.Context(), req.Owner, req.Name)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Repository not found on GitHub"})
		return
	}
	if err != nil {
		log.Printf("handler: github lookup %s/%s: %v", req.Owner, req.Name, err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "GitHub lookup failed"})
		return
	}

	if err := h.projects.Put(r.Context(), project); err != nil {
		log.Printf("handler: save project %s: %v", project.Slug(), err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to save project"})
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// HandleGetProject serves GET /api/projects/{owner}/{name}.
func (h *Handler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	project, err := h.projects.Get(r.Context(), owner, name)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Project not found"})
		return
	}
	if err != nil {
		log.Printf("handler: get project %s/%s: %v", owner, name, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Project lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleWipeCache serves POST /api/admin/cache/wipe and reports how many
// entries were dropped.
func (h *Handler) HandleWipeCache(w http.ResponseWriter, r *http.Request) {
	count, err := h.cache.Wipe(r.Context())
	if err != nil {
		log.Printf("handler: wipe cache: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Cache wipe failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"wiped": count})
}
