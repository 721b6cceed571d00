// Package prefs persists view preferences as one versioned JSON document in
// SQLite.
package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS view_prefs (
	key        TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const docKey = "view"

// Store reads and writes the preferences document.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("prefs: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prefs: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prefs: apply schema: %w", err)
	}
	return &Store{conn: conn, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load returns the stored preferences. A missing, unreadable or outdated
// document yields the defaults; only database failures are errors.
func (s *Store) Load(ctx context.Context) (models.ViewPreferences, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx, `SELECT doc FROM view_prefs WHERE key = ?`, docKey).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.DefaultPreferences(), fmt.Errorf("prefs: load: %w", err)
	}

	var p models.ViewPreferences
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		s.logger.Debug("prefs: stored document unreadable, using defaults", slog.String("error", err.Error()))
		return models.DefaultPreferences(), nil
	}
	if p.Version != models.PreferencesVersion {
		s.logger.Debug("prefs: stored version differs, using defaults", slog.Int("version", p.Version))
		return models.DefaultPreferences(), nil
	}
	return Sanitize(p), nil
}

// Save validates p and replaces the stored document.
func (s *Store) Save(ctx context.Context, p models.ViewPreferences) error {
	p.Version = models.PreferencesVersion
	if err := Validate(p); err != nil {
		return err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO view_prefs (key, doc, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		docKey, string(doc))
	if err != nil {
		return fmt.Errorf("prefs: save: %w", err)
	}
	return nil
}

// Validate rejects unknown columns and sort modes.
func Validate(p models.ViewPreferences) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Version, validation.In(models.PreferencesVersion)),
		validation.Field(&p.FocusColumn, validation.Required, validation.By(validColumn)),
		validation.Field(&p.SortMode, validation.By(validSortModes)),
	)
	if err != nil {
		return fmt.Errorf("prefs: %v: %w", err, apperr.ErrValidation)
	}
	return nil
}

// Sanitize replaces unknown values with their defaults and fills in missing
// columns.
func Sanitize(p models.ViewPreferences) models.ViewPreferences {
	out := models.DefaultPreferences()
	out.FocusModeEnabled = p.FocusModeEnabled
	if p.FocusColumn.Valid() {
		out.FocusColumn = p.FocusColumn
	}
	for c, m := range p.SortMode {
		if c.Valid() && m.Valid() {
			out.SortMode[c] = m
		}
	}
	return out
}

func validColumn(v interface{}) error {
	if c, _ := v.(models.Column); !c.Valid() {
		return fmt.Errorf("unknown column %q", c)
	}
	return nil
}

func validSortModes(v interface{}) error {
	modes, _ := v.(map[models.Column]models.SortMode)
	for c, m := range modes {
		if !c.Valid() {
			return fmt.Errorf("unknown column %q", c)
		}
		if !m.Valid() {
			return fmt.Errorf("unknown sort mode %q for %s", m, c)
		}
	}
	return nil
}
