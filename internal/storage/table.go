// Package storage implements the board's tabular store as a CSV file on the
// local file system. It serves the same read and write contract as the HTTP
// store, so the board can run offline against a spreadsheet export.
package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/checksum"
	"github.com/starford/jobdeck/internal/ingest"
	"github.com/starford/jobdeck/internal/models"
)

// Table is a CSV file whose first row holds the headers. Row indexes are
// 1-based and count the header row, so the first record is row 2.
//
// Deleted rows are blanked rather than removed, keeping the indexes of the
// rows below them valid.
type Table struct {
	path    string
	mu      sync.Mutex
	written string // checksum of the last contents this process wrote
}

// NewTable opens the table at path, creating it with the default headers
// when it does not exist.
func NewTable(path string) (*Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	t := &Table{path: abs}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := t.write([][]string{ingest.DefaultHeaders}); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("storage: stat table: %w", err)
	case info.IsDir():
		return nil, fmt.Errorf("storage: table path is a directory: %s", abs)
	}
	return t, nil
}

// Path returns the absolute path of the table file.
func (t *Table) Path() string { return t.path }

// Fetch returns every row of the table, headers first.
func (t *Table) Fetch(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read()
}

// Checksum returns the digest of the table file's current contents.
func (t *Table) Checksum() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum, err := checksum.File(t.path)
	if err != nil {
		return "", fmt.Errorf("storage: read table: %w", err)
	}
	return sum, nil
}

// OwnWrite reports whether sum is the checksum of the last contents written
// through t, so watchers can ignore changes this process made itself.
func (t *Table) OwnWrite(sum string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sum != "" && sum == t.written
}

// SetStatus rewrites the status cell of a row.
func (t *Table) SetStatus(ctx context.Context, rowIndex int, status models.Column) error {
	return t.update(ctx, func(rows [][]string) ([][]string, error) {
		row, err := rowAt(rows, rowIndex)
		if err != nil {
			return nil, err
		}
		col := ingest.StatusColumn(rows[0])
		if col < 0 {
			rows[0] = append(rows[0], "Status")
			col = len(rows[0]) - 1
		}
		rows[rowIndex-1] = setCell(row, col, string(status))
		return rows, nil
	})
}

// SaveFields rewrites the notes, interview date, contacts and tag cells of a
// row. Fields without a header are left out.
func (t *Table) SaveFields(ctx context.Context, rowIndex int, fields models.Fields) error {
	return t.update(ctx, func(rows [][]string) ([][]string, error) {
		row, err := rowAt(rows, rowIndex)
		if err != nil {
			return nil, err
		}
		for col, v := range ingest.FieldsHeaderValues(rows[0], fields) {
			row = setCell(row, col, v)
		}
		rows[rowIndex-1] = row
		return rows, nil
	})
}

// UpsertRecord appends rec when rowIndex is 0 and overwrites the row
// otherwise.
func (t *Table) UpsertRecord(ctx context.Context, rec models.JobRecord, rowIndex int) (int, error) {
	assigned := rowIndex
	err := t.update(ctx, func(rows [][]string) ([][]string, error) {
		values := ingest.RowValues(rows[0], rec)
		if rowIndex == 0 {
			rows = append(rows, values)
			assigned = len(rows)
			return rows, nil
		}
		if _, err := rowAt(rows, rowIndex); err != nil {
			return nil, err
		}
		rows[rowIndex-1] = values
		return rows, nil
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

// DeleteRecord blanks a row. When the table has an id column, the row must
// carry id or be empty there.
func (t *Table) DeleteRecord(ctx context.Context, id string, rowIndex int) error {
	return t.update(ctx, func(rows [][]string) ([][]string, error) {
		row, err := rowAt(rows, rowIndex)
		if err != nil {
			return nil, err
		}
		if col := ingest.IDColumn(rows[0]); col >= 0 && col < len(row) && row[col] != "" && row[col] != id {
			return nil, fmt.Errorf("storage: row %d holds %q, not %q: %w", rowIndex, row[col], id, apperr.ErrConflict)
		}
		rows[rowIndex-1] = make([]string, len(rows[0]))
		return rows, nil
	})
}

func (t *Table) update(ctx context.Context, fn func([][]string) ([][]string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.read()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rows = [][]string{append([]string(nil), ingest.DefaultHeaders...)}
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	return t.write(rows)
}

func (t *Table) read() ([][]string, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: parse table: %w", err)
	}
	return rows, nil
}

// write replaces the table atomically: tmp file → fsync → rename.
func (t *Table) write(rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("storage: encode table: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".jobdeck-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	t.written = checksum.Sum(buf.Bytes())
	return nil
}

func rowAt(rows [][]string, rowIndex int) ([]string, error) {
	if rowIndex < 2 || rowIndex > len(rows) {
		return nil, fmt.Errorf("storage: row %d of %d: %w", rowIndex, len(rows), apperr.ErrNotFound)
	}
	return rows[rowIndex-1], nil
}

func setCell(row []string, col int, v string) []string {
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = v
	return row
}
