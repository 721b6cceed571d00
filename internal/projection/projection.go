// Package projection derives the filtered and date-sorted view of a board.
// Projections are pure: the canonical board is never modified, so clearing
// the query and sort always restores the original card order.
package projection

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/jobdeck/internal/models"
)

var dateRe = regexp.MustCompile(`^\s*(\d{1,2})[./-](\d{1,2})[./-](\d{4})\s*$`)

// ParseDate reads a day-first date separated by '.', '-' or '/'. Impossible
// calendar dates such as 31.02.2024 are rejected.
func ParseDate(s string) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// Matches reports whether rec contains query, case-insensitively, in any of
// its searchable fields. The query is matched as typed, surrounding spaces
// included; a blank query matches everything.
func Matches(rec models.JobRecord, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range []string{rec.Title, rec.Company, rec.Location, rec.Description, rec.Link, rec.Tag} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Project returns a new board holding, per column, the records matching the
// view's query sorted by the column's mode. Records with unparsable dates sort
// last in either direction and keep their relative order.
func Project(state models.BoardState, view models.ViewState) models.BoardState {
	out := make(models.BoardState, len(models.Columns))
	for _, c := range models.Columns {
		cards := make([]models.JobRecord, 0, len(state[c]))
		for _, r := range state[c] {
			if Matches(r, view.Query) {
				cards = append(cards, r)
			}
		}
		sortByDate(cards, view.SortFor(c))
		out[c] = cards
	}
	return out
}

// Column projects a single column.
func Column(state models.BoardState, view models.ViewState, c models.Column) []models.JobRecord {
	return Project(models.BoardState{c: state[c]}, view)[c]
}

func sortByDate(cards []models.JobRecord, mode models.SortMode) {
	if mode != models.SortAscending && mode != models.SortDescending {
		return
	}
	type keyed struct {
		t  time.Time
		ok bool
	}
	keys := make(map[string]keyed, len(cards))
	for _, r := range cards {
		t, ok := ParseDate(r.Date)
		keys[r.ID] = keyed{t, ok}
	}
	slices.SortStableFunc(cards, func(a, b models.JobRecord) int {
		ka, kb := keys[a.ID], keys[b.ID]
		switch {
		case !ka.ok && !kb.ok:
			return 0
		case !ka.ok:
			return 1
		case !kb.ok:
			return -1
		}
		if mode == models.SortDescending {
			return kb.t.Compare(ka.t)
		}
		return ka.t.Compare(kb.t)
	})
}

// DragEnabled reports whether drag-and-drop may reorder or move cards. It is
// off while a query filters the board or a single record is focused, because
// visible positions then differ from canonical ones.
func DragEnabled(view models.ViewState, focusSingle bool) bool {
	return strings.TrimSpace(view.Query) == "" && !focusSingle
}
