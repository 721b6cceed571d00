package api

import (
	"github.com/starford/jobdeck/internal/boardservice"
	"github.com/starford/jobdeck/internal/models"
)

// CreateJobRequest is the request body for creating a job.
type CreateJobRequest = boardservice.CreateInput

// UpdateJobRequest edits descriptive fields; omitted fields are unchanged.
type UpdateJobRequest struct {
	Title       *string           `json:"title,omitempty" example:"Senior Go Engineer"`
	Description *string           `json:"description,omitempty"`
	Company     *string           `json:"company,omitempty" example:"Acme"`
	Location    *string           `json:"location,omitempty" example:"Berlin"`
	Link        *string           `json:"link,omitempty"`
	Date        *string           `json:"date,omitempty" example:"05.03.2024"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// MoveJobRequest moves a job to a column. Index, when set, drops the card at
// that position instead of the front of the column.
type MoveJobRequest struct {
	Column models.Column `json:"column" example:"CV_SENT" validate:"required"`
	Index  *int          `json:"index,omitempty" example:"0"`
}

// ReorderRequest moves a card within one column.
type ReorderRequest struct {
	From int `json:"from" example:"2"`
	To   int `json:"to" example:"0"`
}

// SortRequest sets a column's sort mode; an empty mode advances it.
type SortRequest struct {
	Mode models.SortMode `json:"mode,omitempty" example:"ascending"`
}

// SortResponse reports a column's sort mode.
type SortResponse struct {
	Column models.Column   `json:"column" validate:"required"`
	Mode   models.SortMode `json:"mode" validate:"required"`
}

// QueryRequest sets the board filter.
type QueryRequest struct {
	Query string `json:"query" example:"golang"`
}

// FocusColumnRequest switches the focus screen.
type FocusColumnRequest struct {
	Column models.Column `json:"column" example:"INTERVIEW" validate:"required"`
}

// FocusMoveRequest applies a quick action to the focused card.
type FocusMoveRequest struct {
	Target models.Column `json:"target" example:"OFFER" validate:"required"`
}

// ColumnResponse lists a column's cards in canonical order.
type ColumnResponse struct {
	Column models.Column      `json:"column" validate:"required"`
	Cards  []models.JobRecord `json:"cards" validate:"required"`
}

type (
	BoardView  = boardservice.BoardView
	FocusView  = boardservice.FocusView
	LoadStatus = boardservice.LoadStatus
)
