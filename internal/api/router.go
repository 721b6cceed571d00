package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jobdeck/internal/boardservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *boardservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/board", h.GetBoard)
	r.Get("/board/status", h.GetStatus)
	r.Post("/board/reload", h.Reload)
	r.Put("/board/query", h.SetQuery)

	r.Post("/jobs", h.CreateJob)
	r.Get("/jobs/{id}", h.GetJob)
	r.Put("/jobs/{id}", h.UpdateJob)
	r.Delete("/jobs/{id}", h.DeleteJob)
	r.Patch("/jobs/{id}/fields", h.SaveFields)
	r.Post("/jobs/{id}/move", h.MoveJob)

	r.Post("/columns/{column}/reorder", h.Reorder)
	r.Post("/columns/{column}/sort", h.Sort)

	r.Get("/prefs", h.GetPrefs)
	r.Put("/prefs", h.PutPrefs)

	r.Get("/focus", h.GetFocus)
	r.Post("/focus/next", h.FocusNext)
	r.Post("/focus/prev", h.FocusPrev)
	r.Post("/focus/move", h.FocusMove)
	r.Put("/focus/column", h.SetFocusColumn)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
