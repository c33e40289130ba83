// Package handler maps HTTP requests onto the appraisal services and typed
// faults onto status codes. Clients only ever see result JSON, a processing
// acknowledgement, or a structured error body.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"gitworth/internal/cache"
	"gitworth/internal/service/appraise"
	"gitworth/internal/store"
)

// Appraiser is the read-path service surface the appraisal handler needs.
type Appraiser interface {
	Appraise(ctx context.Context, req appraise.Request) (*appraise.Result, *appraise.Fault)
}

// ProgressHub hands out per-channel progress subscriptions.
type ProgressHub interface {
	Subscribe(channel string) (<-chan string, func())
}

// ProjectLookup fetches repository metadata for registration.
type ProjectLookup interface {
	Lookup(ctx context.Context, owner, name string) (store.Project, error)
}

type Handler struct {
	appraiser Appraiser
	hub       ProgressHub
	projects  store.Repository
	lookup    ProjectLookup
	cache     cache.Store
}

func New(appraiser Appraiser, hub ProgressHub, projects store.Repository, lookup ProjectLookup, cacheStore cache.Store) *Handler {
	return &Handler{
		appraiser: appraiser,
		hub:       hub,
		projects:  projects,
		lookup:    lookup,
		cache:     cacheStore,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("handler: write response: %v", err)
	}
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("handler: write response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}
