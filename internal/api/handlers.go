package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/board"
	"github.com/starford/jobdeck/internal/boardservice"
	"github.com/starford/jobdeck/internal/ingest"
	"github.com/starford/jobdeck/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *boardservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *boardservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors onto status codes; anything unknown is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidColumn):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotLocal),
		errors.Is(err, apperr.ErrDragDisabled),
		errors.Is(err, apperr.ErrActionDisabled):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func columnParam(w http.ResponseWriter, r *http.Request) (models.Column, bool) {
	c, ok := models.ParseColumn(chi.URLParam(r, "column"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown column"))
	}
	return c, ok
}

// GetBoard handles GET /api/board.
//
//	@Summary		Get the filtered and sorted board
//	@Tags			board
//	@Produce		json
//	@Success		200	{object}	BoardView
//	@Security		BearerAuth
//	@Router			/board [get]
func (h *Handler) GetBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Board())
}

// GetStatus handles GET /api/board/status.
//
//	@Summary		Get the outcome of the last load
//	@Tags			board
//	@Produce		json
//	@Success		200	{object}	LoadStatus
//	@Security		BearerAuth
//	@Router			/board/status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Reload handles POST /api/board/reload.
//
//	@Summary		Reload the board from the store
//	@Tags			board
//	@Produce		json
//	@Success		200	{object}	LoadStatus
//	@Failure		502	{object}	LoadStatus
//	@Security		BearerAuth
//	@Router			/board/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Reload(r.Context())
	if err != nil {
		var le *ingest.LoadError
		if !errors.As(err, &le) {
			writeError(w, "reload", err)
			return
		}
		writeJSON(w, http.StatusBadGateway, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetQuery handles PUT /api/board/query.
//
//	@Summary		Filter the board
//	@Tags			board
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueryRequest	true	"Filter text"
//	@Success		200		{object}	BoardView
//	@Security		BearerAuth
//	@Router			/board/query [put]
func (h *Handler) SetQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SetQuery(req.Query))
}

// CreateJob handles POST /api/jobs.
//
//	@Summary		Create a job
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateJobRequest	true	"Job to create"
//	@Success		201		{object}	models.JobRecord
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.Create(req)
	if err != nil {
		writeError(w, "create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetJob handles GET /api/jobs/{id}.
//
//	@Summary		Get a job
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job id"
//	@Success		200	{object}	models.JobRecord
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateJob handles PUT /api/jobs/{id}.
//
//	@Summary		Edit a job's descriptive fields
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Job id"
//	@Param			body	body		UpdateJobRequest	true	"Fields to change"
//	@Success		200		{object}	models.JobRecord
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id} [put]
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.Update(chi.URLParam(r, "id"), board.Patch{
		Title:       req.Title,
		Description: req.Description,
		Company:     req.Company,
		Location:    req.Location,
		Link:        req.Link,
		Date:        req.Date,
		Extra:       req.Extra,
	})
	if err != nil {
		writeError(w, "update job", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteJob handles DELETE /api/jobs/{id}. Only jobs created locally can
// be deleted.
//
//	@Summary		Delete a locally created job
//	@Tags			jobs
//	@Param			id	path	string	true	"Job id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id} [delete]
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveFields handles PATCH /api/jobs/{id}/fields.
//
//	@Summary		Save notes, interview date, contacts and tag
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Job id"
//	@Param			body	body		models.Fields	true	"Quick-edit fields"
//	@Success		200		{object}	models.JobRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id}/fields [patch]
func (h *Handler) SaveFields(w http.ResponseWriter, r *http.Request) {
	var req models.Fields
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.SaveFields(chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "save fields", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// MoveJob handles POST /api/jobs/{id}/move.
//
//	@Summary		Move a job to another column
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Job id"
//	@Param			body	body		MoveJobRequest	true	"Target column and optional position"
//	@Success		200		{object}	models.JobRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id}/move [post]
func (h *Handler) MoveJob(w http.ResponseWriter, r *http.Request) {
	var req MoveJobRequest
	if !decode(w, r, &req) {
		return
	}
	target, ok := models.ParseColumn(string(req.Column))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown column"))
		return
	}
	rec, err := h.svc.Move(chi.URLParam(r, "id"), target, req.Index)
	if err != nil {
		writeError(w, "move job", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Reorder handles POST /api/columns/{column}/reorder.
//
//	@Summary		Reorder a card within a column
//	@Tags			columns
//	@Accept			json
//	@Produce		json
//	@Param			column	path		string			true	"Column"
//	@Param			body	body		ReorderRequest	true	"Positions"
//	@Success		200		{object}	ColumnResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/columns/{column}/reorder [post]
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	col, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req ReorderRequest
	if !decode(w, r, &req) {
		return
	}
	cards, err := h.svc.Reorder(col, req.From, req.To)
	if err != nil {
		writeError(w, "reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, ColumnResponse{Column: col, Cards: cards})
}

// Sort handles POST /api/columns/{column}/sort.
//
//	@Summary		Set or advance a column's date sort
//	@Tags			columns
//	@Accept			json
//	@Produce		json
//	@Param			column	path		string		true	"Column"
//	@Param			body	body		SortRequest	false	"Mode; empty advances"
//	@Success		200		{object}	SortResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/columns/{column}/sort [post]
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	col, ok := columnParam(w, r)
	if !ok {
		return
	}
	var req SortRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	mode := req.Mode
	var err error
	if mode == "" {
		mode, err = h.svc.ToggleSort(r.Context(), col)
	} else {
		err = h.svc.SetSort(r.Context(), col, mode)
	}
	if err != nil {
		writeError(w, "sort", err)
		return
	}
	writeJSON(w, http.StatusOK, SortResponse{Column: col, Mode: mode})
}

// GetPrefs handles GET /api/prefs.
//
//	@Summary		Get view preferences
//	@Tags			prefs
//	@Produce		json
//	@Success		200	{object}	models.ViewPreferences
//	@Security		BearerAuth
//	@Router			/prefs [get]
func (h *Handler) GetPrefs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Preferences())
}

// PutPrefs handles PUT /api/prefs.
//
//	@Summary		Replace view preferences
//	@Tags			prefs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.ViewPreferences	true	"Preferences"
//	@Success		200		{object}	models.ViewPreferences
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prefs [put]
func (h *Handler) PutPrefs(w http.ResponseWriter, r *http.Request) {
	var req models.ViewPreferences
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetPreferences(r.Context(), req); err != nil {
		writeError(w, "save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Preferences())
}

// GetFocus handles GET /api/focus.
//
//	@Summary		Get the focus screen
//	@Tags			focus
//	@Produce		json
//	@Success		200	{object}	FocusView
//	@Security		BearerAuth
//	@Router			/focus [get]
func (h *Handler) GetFocus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Focus())
}

// FocusNext handles POST /api/focus/next.
func (h *Handler) FocusNext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.FocusNext())
}

// FocusPrev handles POST /api/focus/prev.
func (h *Handler) FocusPrev(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.FocusPrev())
}

// FocusMove handles POST /api/focus/move.
//
//	@Summary		Move the focused card with a quick action
//	@Tags			focus
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FocusMoveRequest	true	"Target column"
//	@Success		200		{object}	FocusView
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/focus/move [post]
func (h *Handler) FocusMove(w http.ResponseWriter, r *http.Request) {
	var req FocusMoveRequest
	if !decode(w, r, &req) {
		return
	}
	target, ok := models.ParseColumn(string(req.Target))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown column"))
		return
	}
	v, err := h.svc.FocusMove(target)
	if err != nil {
		writeError(w, "focus move", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetFocusColumn handles PUT /api/focus/column.
//
//	@Summary		Switch the focus screen to a column
//	@Tags			focus
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FocusColumnRequest	true	"Column"
//	@Success		200		{object}	FocusView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/focus/column [put]
func (h *Handler) SetFocusColumn(w http.ResponseWriter, r *http.Request) {
	var req FocusColumnRequest
	if !decode(w, r, &req) {
		return
	}
	col, ok := models.ParseColumn(string(req.Column))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown column"))
		return
	}
	v, err := h.svc.SetFocusColumn(r.Context(), col)
	if err != nil {
		writeError(w, "set focus column", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
