package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotLocal       = errors.New("record is not local-only")
	ErrInvalidColumn  = errors.New("invalid column")
	ErrDragDisabled   = errors.New("reordering disabled while a filter is active")
	ErrActionDisabled = errors.New("action disabled")
	ErrValidation     = errors.New("validation failed")
)
