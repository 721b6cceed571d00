// Package remote defines the write contract of the backing tabular store and
// the operations the board hands off for asynchronous delivery.
package remote

import (
	"context"

	"github.com/starford/jobdeck/internal/models"
)

// Syncer writes board changes to the backing store. Implementations must
// tolerate a repeated SetStatus for the same row and status.
type Syncer interface {
	SetStatus(ctx context.Context, rowIndex int, status models.Column) error
	SaveFields(ctx context.Context, rowIndex int, fields models.Fields) error
	// UpsertRecord creates a row when rowIndex is 0 and updates it otherwise.
	// It returns the row the record now occupies.
	UpsertRecord(ctx context.Context, rec models.JobRecord, rowIndex int) (int, error)
	DeleteRecord(ctx context.Context, id string, rowIndex int) error
}

// OpKind names a sync operation.
type OpKind string

const (
	OpSetStatus  OpKind = "set_status"
	OpSaveFields OpKind = "save_fields"
	OpUpsert     OpKind = "upsert"
	OpDelete     OpKind = "delete"
	// OpLocalUpsert re-places a record that has no backing row. It never
	// reaches the store on its own.
	OpLocalUpsert OpKind = "local_upsert"
)

// Op is one pending write for a record.
type Op struct {
	Kind     OpKind
	RecordID string
	RowIndex int
	Status   models.Column
	Fields   models.Fields
	Record   models.JobRecord

	// Supersedes names a previous id of the same record whose pending
	// writes are obsolete.
	Supersedes string
}

// Dispatcher accepts operations without blocking the caller.
type Dispatcher interface {
	Dispatch(op Op)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(op Op)

// Dispatch calls f(op).
func (f DispatcherFunc) Dispatch(op Op) { f(op) }

// Apply performs op against s and returns the row assigned by an upsert.
func Apply(ctx context.Context, s Syncer, op Op) (int, error) {
	switch op.Kind {
	case OpSetStatus:
		return op.RowIndex, s.SetStatus(ctx, op.RowIndex, op.Status)
	case OpSaveFields:
		return op.RowIndex, s.SaveFields(ctx, op.RowIndex, op.Fields)
	case OpUpsert:
		return s.UpsertRecord(ctx, op.Record, op.RowIndex)
	case OpDelete:
		return 0, s.DeleteRecord(ctx, op.RecordID, op.RowIndex)
	}
	return 0, nil
}
