package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putRaw(t *testing.T, s *Store, doc string) {
	t.Helper()
	if _, err := s.conn.Exec(`INSERT OR REPLACE INTO view_prefs (key, doc) VALUES (?, ?)`, docKey, doc); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_DefaultsWhenAbsent(t *testing.T) {
	s := testStore(t)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(models.DefaultPreferences(), got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if !got.FocusModeEnabled || got.FocusColumn != models.ColumnNew {
		t.Errorf("defaults = %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := models.DefaultPreferences()
	p.FocusModeEnabled = false
	p.FocusColumn = models.ColumnInterview
	p.SortMode[models.ColumnOffer] = models.SortDescending

	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.SortMode[models.ColumnOffer] = models.SortAscending
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoad_CorruptionFallsBack(t *testing.T) {
	cases := map[string]string{
		"not json":      `{{{`,
		"wrong version": `{"version":7,"focusModeEnabled":false,"focusColumn":"OFFER"}`,
		"no version":    `{"focusModeEnabled":false}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s := testStore(t)
			putRaw(t, s, doc)
			got, err := s.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(models.DefaultPreferences(), got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_SanitizesUnknownValues(t *testing.T) {
	s := testStore(t)
	putRaw(t, s, `{"version":1,"focusModeEnabled":false,"focusColumn":"LATER","sortMode":{"NEW":"sideways","OFFER":"ascending","BOGUS":"descending"}}`)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := models.DefaultPreferences()
	want.FocusModeEnabled = false
	want.SortMode[models.ColumnOffer] = models.SortAscending
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	s := testStore(t)
	p := models.DefaultPreferences()
	p.FocusColumn = "LATER"
	if err := s.Save(context.Background(), p); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad column err = %v", err)
	}
	p = models.DefaultPreferences()
	p.SortMode[models.ColumnNew] = "random"
	if err := s.Save(context.Background(), p); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad sort err = %v", err)
	}
}
