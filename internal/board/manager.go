// Package board owns the in-memory job board and every mutation applied to it.
//
// Each mutation builds a fresh BoardState from the current one and swaps it in
// whole, so readers never observe a half-applied change. Writes to the backing
// store are handed to a remote.Dispatcher after the local change is visible and
// are never awaited or rolled back.
package board

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/identity"
	"github.com/starford/jobdeck/internal/models"
	"github.com/starford/jobdeck/internal/remote"
)

// Manager holds the current board.
type Manager struct {
	state    atomic.Pointer[models.BoardState]
	mu       sync.Mutex // serializes writers
	dispatch remote.Dispatcher
	logger   *slog.Logger
}

// NewManager returns a manager with an empty board. A nil dispatcher drops
// every store write.
func NewManager(d remote.Dispatcher, logger *slog.Logger) *Manager {
	if d == nil {
		d = remote.DispatcherFunc(func(remote.Op) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{dispatch: d, logger: logger}
	empty := models.NewBoardState()
	m.state.Store(&empty)
	return m
}

// Snapshot returns the current board. It must be treated as read-only.
func (m *Manager) Snapshot() models.BoardState {
	return *m.state.Load()
}

// Get returns the record with the given id.
func (m *Manager) Get(id string) (models.JobRecord, bool) {
	b := m.Snapshot()
	col, i, ok := b.Find(id)
	if !ok {
		return models.JobRecord{}, false
	}
	return b[col][i], true
}

// Replace swaps in a whole new board, as after a full reload.
func (m *Manager) Replace(b models.BoardState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := b.Clone()
	m.state.Store(&next)
}

// CreateTracker is implemented by dispatchers that know whether a record's
// create has yet to reach the store.
type CreateTracker interface {
	HasPendingCreate(id string) bool
}

// Reload swaps in a freshly ingested board. Local records whose create is
// still pending in the dispatcher are carried over, unless b already holds
// them under their own id or under the content id of the row they were
// written to. Everything else is replaced. It returns how many records were
// carried over.
func (m *Manager) Reload(b models.BoardState) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := b.Clone()
	ct, ok := m.dispatch.(CreateTracker)
	if !ok {
		m.commit(next)
		return 0
	}

	var landed map[string]bool
	kept := 0
	prev := m.Snapshot()
	for _, c := range models.Columns {
		var carried []models.JobRecord
		for _, r := range prev[c] {
			if !IsLocalOnly(r) || r.IsRemote() || !ct.HasPendingCreate(r.ID) {
				continue
			}
			if _, _, ok := next.Find(r.ID); ok {
				continue
			}
			if landed == nil {
				landed = derivedIDs(next)
			}
			if landed[r.ID] {
				continue
			}
			carried = append(carried, r)
		}
		if len(carried) > 0 {
			next[c] = append(carried, next[c]...)
			kept += len(carried)
		}
	}
	m.commit(next)
	return kept
}

// derivedIDs returns the local ids the records of b would have been created
// under.
func derivedIDs(b models.BoardState) map[string]bool {
	out := make(map[string]bool, b.Len())
	for _, c := range models.Columns {
		for _, r := range b[c] {
			out[identity.DeriveID(r.Title, r.Company, r.Location)] = true
		}
	}
	return out
}

// commit must be called with mu held.
func (m *Manager) commit(next models.BoardState) {
	m.state.Store(&next)
}

// MoveToColumn puts the record at the front of target. It reports false when
// the record already sits in target, in which case nothing happens.
func (m *Manager) MoveToColumn(id string, target models.Column) (bool, error) {
	if !target.Valid() {
		return false, fmt.Errorf("move %s to %q: %w", id, target, apperr.ErrInvalidColumn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	col, i, ok := cur.Find(id)
	if !ok {
		return false, fmt.Errorf("move %s: %w", id, apperr.ErrNotFound)
	}
	if col == target {
		return false, nil
	}

	rec := cur[col][i]
	rec.Status = target
	next := cur.Clone()
	next[col] = removeAt(next[col], i)
	next[target] = insertAt(next[target], 0, rec)
	m.commit(next)
	m.syncStatus(rec)
	return true, nil
}

// ReorderWithinColumn moves the card at from to position to. Position is
// local-only and never written to the store.
func (m *Manager) ReorderWithinColumn(column models.Column, from, to int) error {
	if !column.Valid() {
		return fmt.Errorf("reorder %q: %w", column, apperr.ErrInvalidColumn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.Snapshot()
	cards := cur[column]
	if from < 0 || from >= len(cards) {
		return fmt.Errorf("reorder %s: index %d of %d: %w", column, from, len(cards), apperr.ErrNotFound)
	}
	to = clamp(to, 0, len(cards)-1)
	if from == to {
		return nil
	}

	next := cur.Clone()
	rec := next[column][from]
	next[column] = insertAt(removeAt(next[column], from), to, rec)
	m.commit(next)
	return nil
}

// MoveAcrossColumns moves a card from one column into another at an explicit
// position, clamped to the destination's bounds. Moving within one column is
// a reorder.
func (m *Manager) MoveAcrossColumns(from, to models.Column, targetIndex int, id string) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("move %s from %q to %q: %w", id, from, to, apperr.ErrInvalidColumn)
	}

	m.mu.Lock()
	cur := m.Snapshot()
	i := indexOf(cur[from], id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("move %s: not in %s: %w", id, from, apperr.ErrNotFound)
	}
	if from == to {
		m.mu.Unlock()
		return m.ReorderWithinColumn(from, i, targetIndex)
	}
	defer m.mu.Unlock()

	rec := cur[from][i]
	rec.Status = to
	next := cur.Clone()
	next[from] = removeAt(next[from], i)
	next[to] = insertAt(next[to], clamp(targetIndex, 0, len(next[to])), rec)
	m.commit(next)
	m.syncStatus(rec)
	return nil
}

// UpsertLocal places rec in the column named by its status (NEW when unset),
// first removing any record with the same id from every column. A record that
// stays in its column keeps its position; otherwise it goes to the front.
func (m *Manager) UpsertLocal(rec models.JobRecord) models.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, placed := upsert(m.Snapshot(), rec, "")
	m.commit(next)
	return placed
}

// RemoveLocal removes the record with id from every column. Callers restrict
// it to local-only records.
func (m *Manager) RemoveLocal(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, removed := removeID(m.Snapshot(), id)
	if removed {
		m.commit(next)
	}
	return removed
}

// syncStatus dispatches the store write for a status change: a status update
// for records with a backing row, a local upsert cycle otherwise.
func (m *Manager) syncStatus(rec models.JobRecord) {
	if rec.IsRemote() {
		m.dispatch.Dispatch(remote.Op{
			Kind:     remote.OpSetStatus,
			RecordID: rec.ID,
			RowIndex: rec.RemoteRowIndex,
			Status:   rec.Status,
		})
		return
	}
	m.dispatch.Dispatch(remote.Op{
		Kind:     remote.OpLocalUpsert,
		RecordID: rec.ID,
		Record:   rec,
	})
}

// upsert returns b with rec placed; oldID, when set, is removed as well.
func upsert(b models.BoardState, rec models.JobRecord, oldID string) (models.BoardState, models.JobRecord) {
	target, ok := models.ParseColumn(string(rec.Status))
	if !ok {
		target = models.ColumnNew
	}
	rec.Status = target

	pos := 0
	if col, i, found := b.Find(rec.ID); found && col == target {
		pos = i
	} else if oldID != "" {
		if col, i, found := b.Find(oldID); found && col == target {
			pos = i
		}
	}

	next := b.Clone()
	for _, c := range models.Columns {
		next[c] = withoutID(next[c], rec.ID)
		if oldID != "" {
			next[c] = withoutID(next[c], oldID)
		}
	}
	next[target] = insertAt(next[target], clamp(pos, 0, len(next[target])), rec)
	return next, rec
}

func removeID(b models.BoardState, id string) (models.BoardState, bool) {
	if _, _, ok := b.Find(id); !ok {
		return b, false
	}
	next := b.Clone()
	for _, c := range models.Columns {
		next[c] = withoutID(next[c], id)
	}
	return next, true
}

func withoutID(cards []models.JobRecord, id string) []models.JobRecord {
	out := cards[:0]
	for _, r := range cards {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func indexOf(cards []models.JobRecord, id string) int {
	for i, r := range cards {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(cards []models.JobRecord, i int) []models.JobRecord {
	return append(cards[:i:i], cards[i+1:]...)
}

func insertAt(cards []models.JobRecord, i int, rec models.JobRecord) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(cards)+1)
	out = append(out, cards[:i]...)
	out = append(out, rec)
	return append(out, cards[i:]...)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}

// IsLocalOnly reports whether rec may be edited or deleted without going
// through the store's update path.
func IsLocalOnly(rec models.JobRecord) bool {
	return identity.IsLocal(rec.ID)
}
