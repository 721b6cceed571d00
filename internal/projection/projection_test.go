package projection

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/jobdeck/internal/models"
)

func TestParseDate_Tolerant(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"05.03.2024", "5-3-2024", "5/03/2024", " 05.3.2024 "} {
		got, ok := ParseDate(s)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", s, got, ok, want)
		}
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, s := range []string{"", "garbage", "2024-03-05", "31.02.2024", "00.01.2024", "10.13.2024", "1.1.24"} {
		if _, ok := ParseDate(s); ok {
			t.Errorf("ParseDate(%q) accepted", s)
		}
	}
	if _, ok := ParseDate("29.02.2024"); !ok {
		t.Error("leap day rejected")
	}
}

func rec(id, date string) models.JobRecord {
	return models.JobRecord{ID: id, Title: id, Date: date, Status: models.ColumnNew}
}

func board(cards ...models.JobRecord) models.BoardState {
	b := models.NewBoardState()
	b[models.ColumnNew] = cards
	return b
}

func ids(cards []models.JobRecord) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestProject_SortCycle(t *testing.T) {
	b := board(
		rec("b", "02.01.2024"),
		rec("x", "someday"),
		rec("a", "01/01/2024"),
		rec("y", ""),
		rec("c", "3-1-2024"),
	)
	view := models.ViewState{Sort: map[models.Column]models.SortMode{}}
	mode := models.SortNone
	want := map[models.SortMode][]string{
		models.SortAscending:  {"a", "b", "c", "x", "y"},
		models.SortDescending: {"c", "b", "a", "x", "y"},
		models.SortNone:       {"b", "x", "a", "y", "c"},
	}
	for i := 0; i < 3; i++ {
		mode = mode.Next()
		view.Sort[models.ColumnNew] = mode
		got := ids(Project(b, view)[models.ColumnNew])
		if diff := cmp.Diff(want[mode], got); diff != "" {
			t.Errorf("mode %s (-want +got):\n%s", mode, diff)
		}
	}
	if mode != models.SortNone {
		t.Errorf("three toggles ended at %s", mode)
	}
}

func TestProject_FilterRoundTrip(t *testing.T) {
	cards := []models.JobRecord{
		{ID: "1", Title: "Go Engineer", Company: "Acme", Status: models.ColumnNew},
		{ID: "2", Title: "Designer", Location: "Berlin", Status: models.ColumnNew},
		{ID: "3", Title: "SRE", Tag: "golang", Status: models.ColumnNew},
		{ID: "4", Title: "PM", Link: "https://jobs.example/GO", Status: models.ColumnNew},
	}
	b := board(cards...)
	before := b.Clone()

	filtered := Project(b, models.ViewState{Query: "go"})
	if got := ids(filtered[models.ColumnNew]); !cmp.Equal(got, []string{"1", "3", "4"}) {
		t.Errorf("filtered = %v", got)
	}
	cleared := Project(b, models.ViewState{})
	if diff := cmp.Diff(before, cleared); diff != "" {
		t.Errorf("cleared query differs from canonical (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, b); diff != "" {
		t.Errorf("projection mutated input:\n%s", diff)
	}
}

func TestProject_DoesNotMutateOnSort(t *testing.T) {
	b := board(rec("b", "02.01.2024"), rec("a", "01.01.2024"))
	_ = Project(b, models.ViewState{Sort: map[models.Column]models.SortMode{models.ColumnNew: models.SortAscending}})
	if got := ids(b[models.ColumnNew]); !cmp.Equal(got, []string{"b", "a"}) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestMatches(t *testing.T) {
	r := models.JobRecord{Title: "Backend", Description: "Kafka pipelines", Notes: "secret"}
	if !Matches(r, "KAFKA") {
		t.Error("description not searched")
	}
	if !Matches(r, "   ") {
		t.Error("blank query should match everything")
	}
	if Matches(r, "secret") {
		t.Error("notes should not be searched")
	}
}

func TestMatches_QueryTakenLiterally(t *testing.T) {
	r := models.JobRecord{Title: "DevOps Engineer"}
	if Matches(r, " dev") {
		t.Error(`" dev" should not match "DevOps Engineer"`)
	}
	if !Matches(r, "s eng") {
		t.Error("inner spaces should match")
	}
	if !Matches(models.JobRecord{Title: "Senior dev"}, " dev") {
		t.Error(`" dev" should match "Senior dev"`)
	}
}

func TestDragEnabled(t *testing.T) {
	if !DragEnabled(models.ViewState{Query: "  "}, false) {
		t.Error("blank query should not disable drag")
	}
	if !DragEnabled(models.ViewState{}, false) {
		t.Error("drag should be enabled without query")
	}
	if DragEnabled(models.ViewState{Query: "x"}, false) {
		t.Error("drag enabled with active query")
	}
	if DragEnabled(models.ViewState{}, true) {
		t.Error("drag enabled in single focus view")
	}
}
