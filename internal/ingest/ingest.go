// Package ingest converts a raw tabular payload from the remote store into a
// board partitioned by stage.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/jobdeck/internal/checksum"
	"github.com/starford/jobdeck/internal/models"
)

// headerOffset converts a 0-based data row position into the store's 1-based
// row number, counting the header row.
const headerOffset = 2

// Unplaced reasons.
const (
	ReasonUnknownStatus = "unknown status"
	ReasonDuplicateID   = "duplicate id"
)

// Source fetches the full tabular payload: row 0 holds headers.
type Source interface {
	Fetch(ctx context.Context) ([][]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([][]string, error)

// Fetch calls f(ctx).
func (f SourceFunc) Fetch(ctx context.Context) ([][]string, error) { return f(ctx) }

// LoadError reports that no board could be built from the payload.
type LoadError struct {
	Cause string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return "load failed: " + e.Cause + ": " + e.Err.Error()
	}
	return "load failed: " + e.Cause
}

func (e *LoadError) Unwrap() error { return e.Err }

// Unplaced is a row that was read but not put on the board.
type Unplaced struct {
	RowIndex int    `json:"rowIndex"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Reason   string `json:"reason"`
}

// Result is a fully built board plus what was left off it.
type Result struct {
	Board    models.BoardState
	Unplaced []Unplaced
	Rows     int
}

// Load fetches the payload from src and parses it. A failing or panicking
// source yields a *LoadError, never a partial Result.
func Load(ctx context.Context, src Source) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &LoadError{Cause: fmt.Sprintf("unexpected failure: %v", r)}
		}
	}()

	rows, err := src.Fetch(ctx)
	if err != nil {
		return nil, &LoadError{Cause: "fetch payload", Err: err}
	}
	return Parse(rows)
}

// Parse builds a board from rows, where rows[0] are the headers.
func Parse(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, &LoadError{Cause: "payload has no header row"}
	}
	fields := mapHeaders(rows[0])
	if !hasField(fields, fieldTitle) && !hasField(fields, fieldStatus) {
		return nil, &LoadError{Cause: "payload headers carry neither title nor status"}
	}

	res := &Result{Board: models.NewBoardState()}
	seen := make(map[string]bool)

	for pos, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		res.Rows++
		rowIndex := pos + headerOffset
		rec, rawStatus, explicitID := buildRecord(fields, row)
		rec.RemoteRowIndex = rowIndex

		if rec.ID == "" {
			rec.ID = remoteID(rec)
		}
		if seen[rec.ID] {
			if explicitID {
				res.Unplaced = append(res.Unplaced, Unplaced{
					RowIndex: rowIndex, ID: rec.ID, Title: rec.Title, Status: rawStatus, Reason: ReasonDuplicateID,
				})
				continue
			}
			rec.ID = rec.ID + "-" + strconv.Itoa(rowIndex)
		}

		col, ok := models.ParseColumn(rawStatus)
		if !ok {
			res.Unplaced = append(res.Unplaced, Unplaced{
				RowIndex: rowIndex, ID: rec.ID, Title: rec.Title, Status: rawStatus, Reason: ReasonUnknownStatus,
			})
			continue
		}
		seen[rec.ID] = true
		rec.Status = col
		res.Board[col] = append(res.Board[col], rec)
	}

	return res, nil
}

// remoteID derives an id from row content so it survives reloads even when
// rows above it are inserted or deleted.
func remoteID(r models.JobRecord) string {
	key := strings.Join([]string{r.Title, r.Company, r.Location, r.Link, r.Date}, "\x00")
	return "row-" + checksum.Sum([]byte(key))[:16]
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
