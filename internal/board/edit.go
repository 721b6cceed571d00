package board

import (
	"fmt"
	"log/slog"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/identity"
	"github.com/starford/jobdeck/internal/models"
	"github.com/starford/jobdeck/internal/remote"
)

// Patch carries the descriptive fields of an edit; nil leaves a field as is.
type Patch struct {
	Title       *string
	Description *string
	Company     *string
	Location    *string
	Link        *string
	Date        *string
	Extra       map[string]string
}

func (p Patch) apply(r models.JobRecord) models.JobRecord {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&r.Title, p.Title)
	set(&r.Description, p.Description)
	set(&r.Company, p.Company)
	set(&r.Location, p.Location)
	set(&r.Link, p.Link)
	set(&r.Date, p.Date)
	if len(p.Extra) > 0 {
		extra := make(map[string]string, len(r.Extra)+len(p.Extra))
		for k, v := range r.Extra {
			extra[k] = v
		}
		for k, v := range p.Extra {
			extra[k] = v
		}
		r.Extra = extra
	}
	return r
}

// Create adds a new local-only record at the front of its column and asks
// the store to create its row. The id is derived from title, company and
// location.
func (m *Manager) Create(rec models.JobRecord) (models.JobRecord, error) {
	rec.ID = identity.DeriveID(rec.Title, rec.Company, rec.Location)
	rec.RemoteRowIndex = 0
	if _, ok := models.ParseColumn(string(rec.Status)); !ok {
		rec.Status = models.ColumnNew
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	if _, _, exists := cur.Find(rec.ID); exists {
		return models.JobRecord{}, fmt.Errorf("create %s: %w", rec.ID, apperr.ErrAlreadyExists)
	}
	next, placed := upsert(cur, rec, "")
	m.commit(next)
	m.dispatch.Dispatch(remote.Op{Kind: remote.OpUpsert, RecordID: placed.ID, Record: placed})
	return placed, nil
}

// Update edits the descriptive fields of a record. A local-only record that
// has never reached the store is re-identified from its new content; any
// other record keeps its id and has its row updated.
func (m *Manager) Update(id string, p Patch) (models.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	col, i, ok := cur.Find(id)
	if !ok {
		return models.JobRecord{}, fmt.Errorf("update %s: %w", id, apperr.ErrNotFound)
	}
	rec := p.apply(cur[col][i])

	oldID := ""
	if identity.IsLocal(id) && !rec.IsRemote() {
		if newID := identity.DeriveID(rec.Title, rec.Company, rec.Location); newID != id {
			if _, _, taken := cur.Find(newID); taken {
				return models.JobRecord{}, fmt.Errorf("update %s as %s: %w", id, newID, apperr.ErrAlreadyExists)
			}
			oldID = id
			rec.ID = newID
		}
	}

	next, placed := upsert(cur, rec, oldID)
	m.commit(next)
	m.dispatch.Dispatch(remote.Op{
		Kind:       remote.OpUpsert,
		RecordID:   placed.ID,
		RowIndex:   placed.RemoteRowIndex,
		Record:     placed,
		Supersedes: oldID,
	})
	return placed, nil
}

// SaveFields stores the quick-edit fields of a record.
func (m *Manager) SaveFields(id string, f models.Fields) (models.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	col, i, ok := cur.Find(id)
	if !ok {
		return models.JobRecord{}, fmt.Errorf("save fields %s: %w", id, apperr.ErrNotFound)
	}
	next, placed := upsert(cur, cur[col][i].WithFields(f), "")
	m.commit(next)

	if placed.IsRemote() {
		m.dispatch.Dispatch(remote.Op{
			Kind:     remote.OpSaveFields,
			RecordID: placed.ID,
			RowIndex: placed.RemoteRowIndex,
			Fields:   f,
		})
	} else {
		m.dispatch.Dispatch(remote.Op{Kind: remote.OpLocalUpsert, RecordID: placed.ID, Record: placed})
	}
	return placed, nil
}

// Delete removes a local-only record and its row, if one was created.
// Records that came from the store cannot be deleted here.
func (m *Manager) Delete(id string) error {
	if !identity.IsLocal(id) {
		return fmt.Errorf("delete %s: %w", id, apperr.ErrNotLocal)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	col, i, ok := cur.Find(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, apperr.ErrNotFound)
	}
	row := cur[col][i].RemoteRowIndex
	next, _ := removeID(cur, id)
	m.commit(next)
	m.dispatch.Dispatch(remote.Op{Kind: remote.OpDelete, RecordID: id, RowIndex: row})
	return nil
}

// AttachRowIndex records the row the store assigned to a created record.
func (m *Manager) AttachRowIndex(id string, row int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	col, i, ok := cur.Find(id)
	if !ok {
		m.logger.Debug("board: row assigned to unknown record", slog.String("id", id), slog.Int("row", row))
		return false
	}
	rec := cur[col][i]
	rec.RemoteRowIndex = row
	next, _ := upsert(cur, rec, "")
	m.commit(next)
	return true
}
