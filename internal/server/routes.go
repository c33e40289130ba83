package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gitworth/internal/server/handler"
	"gitworth/internal/server/middleware"
)

func NewMux(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/projects", h.HandleRegisterProject)
		r.Get("/projects/{owner}/{name}", h.HandleGetProject)
		r.Get("/projects/{owner}/{name}/appraisal", h.HandleAppraise)
		r.Get("/progress/{id}", h.HandleProgress)
		r.Post("/admin/cache/wipe", h.HandleWipeCache)
	})

	return middleware.CORS(r)
}
