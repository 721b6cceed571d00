// Package testutil provides shared fixtures for board, store and service tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/jobdeck/internal/ingest"
	"github.com/starford/jobdeck/internal/prefs"
	"github.com/starford/jobdeck/internal/storage"
)

// SamplePayload is a small board: two placed rows and one with an unknown
// status.
func SamplePayload() [][]string {
	return [][]string{
		{"Title", "Company", "Location", "Date", "Status", "Tag"},
		{"Backend Dev", "Acme", "Berlin", "05.03.2024", "NEW", "go"},
		{"Data Eng", "Globex", "Remote", "1/2/2024", "INTERVIEW", ""},
		{"Platform Eng", "Initech", "Paris", "bad date", "NEW", "infra"},
		{"Ghost", "Nowhere", "", "", "LATER", ""},
	}
}

// Source serves a replaceable payload, or an error.
type Source struct {
	mu   sync.Mutex
	rows [][]string
	err  error
}

// NewSource returns a source serving rows.
func NewSource(rows [][]string) *Source {
	return &Source{rows: rows}
}

// Set replaces the payload and clears any error.
func (s *Source) Set(rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.err = rows, nil
}

// Fail makes every later fetch return err.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetch implements ingest.Source.
func (s *Source) Fetch(context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

var _ ingest.Source = (*Source)(nil)

// TestPrefs opens a preferences store in a temporary directory that is
// closed automatically.
func TestPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	s, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestTable creates an empty CSV table in a temporary directory.
func TestTable(t *testing.T) *storage.Table {
	t.Helper()
	tbl, err := storage.NewTable(filepath.Join(t.TempDir(), "board.csv"))
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

// Notifier records published board events as "kind:id".
type Notifier struct {
	mu     sync.Mutex
	events []string
}

// PublishBoardEvent implements boardservice.Notifier.
func (n *Notifier) PublishBoardEvent(kind, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+id)
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
