// Package focus keeps a cursor over one projected column at a time.
package focus

import (
	"fmt"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/models"
)

// Mover moves a record to another column.
type Mover interface {
	MoveToColumn(id string, target models.Column) (bool, error)
}

// QuickAction is a one-step move offered for the focused card.
type QuickAction struct {
	Target  models.Column `json:"target"`
	Enabled bool          `json:"enabled"`
}

// Navigator tracks (column, index) over the projected list of its column.
// The index always satisfies 0 <= index < len, or index == 0 when the list
// is empty. A Navigator is not safe for concurrent use.
type Navigator struct {
	column models.Column
	index  int
	items  []models.JobRecord
}

// New returns a navigator on column with an empty list.
func New(column models.Column) *Navigator {
	if !column.Valid() {
		column = models.ColumnNew
	}
	return &Navigator{column: column}
}

// Column returns the focused column.
func (n *Navigator) Column() models.Column { return n.column }

// Index returns the cursor position within the projected column.
func (n *Navigator) Index() int { return n.index }

// Len returns the number of records in the projected column.
func (n *Navigator) Len() int { return len(n.items) }

// Current returns the focused record.
func (n *Navigator) Current() (models.JobRecord, bool) {
	if len(n.items) == 0 {
		return models.JobRecord{}, false
	}
	return n.items[n.index], true
}

// Refresh installs the latest projected list for the column and re-clamps
// the index.
func (n *Navigator) Refresh(projected []models.JobRecord) {
	n.items = projected
	n.clamp()
}

// Next advances the cursor, stopping at the last record.
func (n *Navigator) Next() {
	if len(n.items) == 0 {
		return
	}
	n.index = min(n.index+1, len(n.items)-1)
}

// Prev moves the cursor back, stopping at the first record.
func (n *Navigator) Prev() {
	n.index = max(n.index-1, 0)
}

// SetColumn switches to column and resets the index. The caller refreshes
// the list afterwards.
func (n *Navigator) SetColumn(column models.Column) error {
	if !column.Valid() {
		return fmt.Errorf("focus %q: %w", column, apperr.ErrInvalidColumn)
	}
	if column != n.column {
		n.column = column
		n.items = nil
	}
	n.index = 0
	return nil
}

// QuickActions lists every column as a move target; the current column is
// disabled.
func (n *Navigator) QuickActions() []QuickAction {
	out := make([]QuickAction, 0, len(models.Columns))
	for _, c := range models.Columns {
		out = append(out, QuickAction{Target: c, Enabled: c != n.column && len(n.items) > 0})
	}
	return out
}

// MoveTo moves the focused record to target. The list is not refreshed;
// the caller re-projects and calls Refresh.
func (n *Navigator) MoveTo(m Mover, target models.Column) (models.JobRecord, error) {
	if !target.Valid() {
		return models.JobRecord{}, fmt.Errorf("quick move to %q: %w", target, apperr.ErrInvalidColumn)
	}
	if target == n.column {
		return models.JobRecord{}, fmt.Errorf("quick move to current column %s: %w", target, apperr.ErrActionDisabled)
	}
	rec, ok := n.Current()
	if !ok {
		return models.JobRecord{}, fmt.Errorf("quick move: column %s is empty: %w", n.column, apperr.ErrActionDisabled)
	}
	if _, err := m.MoveToColumn(rec.ID, target); err != nil {
		return models.JobRecord{}, err
	}
	rec.Status = target
	return rec, nil
}

func (n *Navigator) clamp() {
	if len(n.items) == 0 {
		n.index = 0
		return
	}
	n.index = max(0, min(n.index, len(n.items)-1))
}
