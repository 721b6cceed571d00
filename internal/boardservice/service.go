// Package boardservice coordinates the board manager, its loader, the view
// preferences and the focus cursor for the API and MCP transports.
package boardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/board"
	"github.com/starford/jobdeck/internal/focus"
	"github.com/starford/jobdeck/internal/ingest"
	"github.com/starford/jobdeck/internal/models"
	"github.com/starford/jobdeck/internal/prefs"
	"github.com/starford/jobdeck/internal/projection"
	"github.com/starford/jobdeck/internal/sse"
)

// PrefsStore loads and saves view preferences.
type PrefsStore interface {
	Load(ctx context.Context) (models.ViewPreferences, error)
	Save(ctx context.Context, p models.ViewPreferences) error
}

// Notifier receives board change events.
type Notifier interface {
	PublishBoardEvent(kind, id string)
}

// LoadStatus describes the outcome of the last load from the store.
type LoadStatus struct {
	Loaded   bool              `json:"loaded"`
	OK       bool              `json:"ok"`
	Cause    string            `json:"cause,omitempty"`
	LoadedAt time.Time         `json:"loadedAt,omitzero"`
	Records  int               `json:"records"`
	Kept     int               `json:"keptLocal"`
	Unplaced []ingest.Unplaced `json:"unplaced"`
}

// ColumnView is one projected column.
type ColumnView struct {
	Name  models.Column      `json:"name"`
	Sort  models.SortMode    `json:"sort"`
	Total int                `json:"total"`
	Cards []models.JobRecord `json:"cards"`
}

// BoardView is the projected board as shown to the user.
type BoardView struct {
	Query       string       `json:"query"`
	DragEnabled bool         `json:"dragEnabled"`
	Columns     []ColumnView `json:"columns"`
}

// FocusView is the single-card focus screen.
type FocusView struct {
	Enabled      bool                `json:"enabled"`
	Column       models.Column       `json:"column"`
	Index        int                 `json:"index"`
	Len          int                 `json:"len"`
	Current      *models.JobRecord   `json:"current"`
	QuickActions []focus.QuickAction `json:"quickActions"`
	DragEnabled  bool                `json:"dragEnabled"`
}

// CreateInput is the payload for a new job.
type CreateInput struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Company       string            `json:"company"`
	Location      string            `json:"location"`
	Link          string            `json:"link"`
	Date          string            `json:"date"`
	Notes         string            `json:"notes"`
	InterviewDate string            `json:"interviewDate"`
	Contacts      string            `json:"contacts"`
	Tag           string            `json:"tag"`
	Status        string            `json:"status"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Validate requires a non-blank title and a known status when one is given.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
		validation.Field(&in.Status, validation.By(knownStatus)),
	)
}

// Service is safe for concurrent use.
type Service struct {
	board  *board.Manager
	source ingest.Source
	prefs  PrefsStore
	notify Notifier
	logger *slog.Logger

	reloadMu sync.Mutex

	mu     sync.Mutex
	view   models.ViewState
	pref   models.ViewPreferences
	nav    *focus.Navigator
	status LoadStatus
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where change events go.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a service over m loading from src. store may be nil, in which
// case preferences live only in memory.
func New(m *board.Manager, src ingest.Source, store PrefsStore, opts ...Option) *Service {
	s := &Service{
		board:  m,
		source: src,
		prefs:  store,
		logger: slog.Default(),
		pref:   models.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applyPrefsLocked(s.pref)
	return s
}

// Init restores the saved preferences and performs the first load. A failed
// load is recorded in the status and returned; the board stays empty.
func (s *Service) Init(ctx context.Context) error {
	if s.prefs != nil {
		p, err := s.prefs.Load(ctx)
		if err != nil {
			s.logger.Warn("boardservice: load preferences failed", slog.String("error", err.Error()))
			p = models.DefaultPreferences()
		}
		s.mu.Lock()
		s.applyPrefsLocked(p)
		s.mu.Unlock()
	}
	_, err := s.Reload(ctx)
	return err
}

// Reload fetches the whole board from the store and replaces the current
// one. On failure the current board is kept and the cause recorded.
func (s *Service) Reload(ctx context.Context) (LoadStatus, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	res, err := ingest.Load(ctx, s.source)
	if err != nil {
		st := LoadStatus{Loaded: true, Cause: err.Error(), Unplaced: []ingest.Unplaced{}}
		s.mu.Lock()
		prev := s.status
		st.Records = s.board.Snapshot().Len()
		st.LoadedAt = prev.LoadedAt
		s.status = st
		s.mu.Unlock()
		s.logger.Error("boardservice: load failed", slog.String("error", err.Error()))
		return st, err
	}

	kept := s.board.Reload(res.Board)
	unplaced := res.Unplaced
	if unplaced == nil {
		unplaced = []ingest.Unplaced{}
	}
	for _, u := range unplaced {
		s.logger.Warn("boardservice: row not placed",
			slog.Int("row", u.RowIndex),
			slog.String("status", u.Status),
			slog.String("reason", u.Reason))
	}
	st := LoadStatus{
		Loaded:   true,
		OK:       true,
		LoadedAt: time.Now().UTC(),
		Records:  s.board.Snapshot().Len(),
		Kept:     kept,
		Unplaced: unplaced,
	}
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	s.logger.Info("boardservice: board loaded",
		slog.Int("records", st.Records),
		slog.Int("unplaced", len(unplaced)),
		slog.Int("kept_local", kept))
	s.publish(sse.KindReloaded, "")
	return st, nil
}

// Ready reports whether a load has ever succeeded. A later failed reload
// keeps the service ready since the board it serves is still valid.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.status.LoadedAt.IsZero()
}

// Status returns the outcome of the last load.
func (s *Service) Status() LoadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Board returns the projected board under the current view.
func (s *Service) Board() BoardView {
	snap := s.board.Snapshot()
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()

	projected := projection.Project(snap, view)
	out := BoardView{
		Query:       view.Query,
		DragEnabled: projection.DragEnabled(view, false),
		Columns:     make([]ColumnView, 0, len(models.Columns)),
	}
	for _, c := range models.Columns {
		out.Columns = append(out.Columns, ColumnView{
			Name:  c,
			Sort:  view.SortFor(c),
			Total: len(snap[c]),
			Cards: projected[c],
		})
	}
	return out
}

// SetQuery changes the board filter. A blank query shows every card.
func (s *Service) SetQuery(q string) BoardView {
	s.mu.Lock()
	s.view.Query = q
	s.mu.Unlock()
	return s.Board()
}

// Get returns one record.
func (s *Service) Get(id string) (models.JobRecord, error) {
	rec, ok := s.board.Get(id)
	if !ok {
		return models.JobRecord{}, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return rec, nil
}

// Create validates in and adds it as a local record.
func (s *Service) Create(in CreateInput) (models.JobRecord, error) {
	if err := in.Validate(); err != nil {
		return models.JobRecord{}, validationErr(err)
	}
	status := models.ColumnNew
	if in.Status != "" {
		status, _ = models.ParseColumn(in.Status)
	}
	rec, err := s.board.Create(models.JobRecord{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Company:       in.Company,
		Location:      in.Location,
		Link:          in.Link,
		Date:          in.Date,
		Notes:         in.Notes,
		InterviewDate: in.InterviewDate,
		Contacts:      in.Contacts,
		Tag:           in.Tag,
		Status:        status,
		Extra:         in.Extra,
	})
	if err != nil {
		return models.JobRecord{}, err
	}
	s.publish(sse.KindCreated, rec.ID)
	return rec, nil
}

// Update edits the descriptive fields of a record.
func (s *Service) Update(id string, p board.Patch) (models.JobRecord, error) {
	if p.Title != nil {
		if err := notBlank(*p.Title); err != nil {
			return models.JobRecord{}, fmt.Errorf("title: %v: %w", err, apperr.ErrValidation)
		}
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	rec, err := s.board.Update(id, p)
	if err != nil {
		return models.JobRecord{}, err
	}
	if rec.ID != id {
		s.publish(sse.KindDeleted, id)
		s.publish(sse.KindCreated, rec.ID)
	} else {
		s.publish(sse.KindUpdated, rec.ID)
	}
	return rec, nil
}

// SaveFields stores the quick-edit fields of a record.
func (s *Service) SaveFields(id string, f models.Fields) (models.JobRecord, error) {
	rec, err := s.board.SaveFields(id, f)
	if err != nil {
		return models.JobRecord{}, err
	}
	s.publish(sse.KindUpdated, rec.ID)
	return rec, nil
}

// Delete removes a local record.
func (s *Service) Delete(id string) error {
	if err := s.board.Delete(id); err != nil {
		return err
	}
	s.publish(sse.KindDeleted, id)
	return nil
}

// Move sends a record to target. Without an index the record goes to the
// front of target; with one it is a drag to that position, refused while
// the board is filtered.
func (s *Service) Move(id string, target models.Column, index *int) (models.JobRecord, error) {
	if index == nil {
		moved, err := s.board.MoveToColumn(id, target)
		if err != nil {
			return models.JobRecord{}, err
		}
		if moved {
			s.publish(sse.KindMoved, id)
		}
		return s.Get(id)
	}

	if err := s.checkDrag(); err != nil {
		return models.JobRecord{}, err
	}
	from, _, ok := s.board.Snapshot().Find(id)
	if !ok {
		return models.JobRecord{}, fmt.Errorf("move %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.board.MoveAcrossColumns(from, target, *index, id); err != nil {
		return models.JobRecord{}, err
	}
	s.publish(sse.KindMoved, id)
	return s.Get(id)
}

// Reorder drags the card at from to position to within column.
func (s *Service) Reorder(column models.Column, from, to int) ([]models.JobRecord, error) {
	if err := s.checkDrag(); err != nil {
		return nil, err
	}
	if err := s.board.ReorderWithinColumn(column, from, to); err != nil {
		return nil, err
	}
	cards := s.board.Snapshot()[column]
	if n := len(cards); n > 0 {
		s.publish(sse.KindMoved, cards[max(0, min(to, n-1))].ID)
	}
	return cards, nil
}

// ToggleSort advances the column's sort mode and saves it.
func (s *Service) ToggleSort(ctx context.Context, column models.Column) (models.SortMode, error) {
	if !column.Valid() {
		return "", fmt.Errorf("sort %q: %w", column, apperr.ErrInvalidColumn)
	}
	s.mu.Lock()
	mode := s.view.SortFor(column).Next()
	s.mu.Unlock()
	return mode, s.SetSort(ctx, column, mode)
}

// SetSort sets the column's sort mode and saves it.
func (s *Service) SetSort(ctx context.Context, column models.Column, mode models.SortMode) error {
	if !column.Valid() {
		return fmt.Errorf("sort %q: %w", column, apperr.ErrInvalidColumn)
	}
	if !mode.Valid() {
		return fmt.Errorf("sort mode %q: %w", mode, apperr.ErrValidation)
	}
	s.mu.Lock()
	p := clonePrefs(s.pref)
	p.SortMode[column] = mode
	s.mu.Unlock()
	return s.SetPreferences(ctx, p)
}

// Preferences returns the current view preferences.
func (s *Service) Preferences() models.ViewPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePrefs(s.pref)
}

// SetPreferences saves p and applies it to the view and focus cursor.
func (s *Service) SetPreferences(ctx context.Context, p models.ViewPreferences) error {
	p.Version = models.PreferencesVersion
	if !p.FocusColumn.Valid() {
		return fmt.Errorf("focus column %q: %w", p.FocusColumn, apperr.ErrInvalidColumn)
	}
	if err := prefs.Validate(p); err != nil {
		return err
	}
	if s.prefs != nil {
		if err := s.prefs.Save(ctx, p); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.applyPrefsLocked(p)
	s.mu.Unlock()
	return nil
}

// Focus returns the focus screen for the current cursor.
func (s *Service) Focus() FocusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.focusViewLocked()
}

// FocusNext moves the cursor forward.
func (s *Service) FocusNext() FocusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	s.nav.Next()
	return s.focusViewLocked()
}

// FocusPrev moves the cursor back.
func (s *Service) FocusPrev() FocusView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	s.nav.Prev()
	return s.focusViewLocked()
}

// SetFocusColumn switches the focus screen to column and saves the choice.
func (s *Service) SetFocusColumn(ctx context.Context, column models.Column) (FocusView, error) {
	if !column.Valid() {
		return FocusView{}, fmt.Errorf("focus %q: %w", column, apperr.ErrInvalidColumn)
	}
	s.mu.Lock()
	p := clonePrefs(s.pref)
	s.mu.Unlock()
	p.FocusColumn = column
	if err := s.SetPreferences(ctx, p); err != nil {
		return FocusView{}, err
	}
	return s.Focus(), nil
}

// FocusMove applies a quick action: the focused card moves to target.
func (s *Service) FocusMove(target models.Column) (FocusView, error) {
	s.mu.Lock()
	s.refreshLocked()
	rec, err := s.nav.MoveTo(s.board, target)
	if err != nil {
		s.mu.Unlock()
		return FocusView{}, err
	}
	s.refreshLocked()
	v := s.focusViewLocked()
	s.mu.Unlock()

	s.publish(sse.KindMoved, rec.ID)
	return v, nil
}

func (s *Service) checkDrag() error {
	s.mu.Lock()
	view := s.view
	s.mu.Unlock()
	if !projection.DragEnabled(view, false) {
		return fmt.Errorf("board is filtered by %q: %w", view.Query, apperr.ErrDragDisabled)
	}
	return nil
}

// applyPrefsLocked must be called with mu held.
func (s *Service) applyPrefsLocked(p models.ViewPreferences) {
	s.pref = clonePrefs(p)
	sort := make(map[models.Column]models.SortMode, len(p.SortMode))
	for c, m := range p.SortMode {
		sort[c] = m
	}
	s.view.Sort = sort
	if s.nav == nil {
		s.nav = focus.New(p.FocusColumn)
	} else if s.nav.Column() != p.FocusColumn {
		_ = s.nav.SetColumn(p.FocusColumn)
	}
}

func (s *Service) refreshLocked() {
	s.nav.Refresh(projection.Column(s.board.Snapshot(), s.view, s.nav.Column()))
}

func (s *Service) focusViewLocked() FocusView {
	v := FocusView{
		Enabled:      s.pref.FocusModeEnabled,
		Column:       s.nav.Column(),
		Index:        s.nav.Index(),
		Len:          s.nav.Len(),
		QuickActions: s.nav.QuickActions(),
		DragEnabled:  projection.DragEnabled(s.view, true),
	}
	if rec, ok := s.nav.Current(); ok {
		v.Current = &rec
	}
	return v
}

func (s *Service) publish(kind, id string) {
	if s.notify != nil {
		s.notify.PublishBoardEvent(kind, id)
	}
}

func clonePrefs(p models.ViewPreferences) models.ViewPreferences {
	out := p
	out.SortMode = make(map[models.Column]models.SortMode, len(models.Columns))
	for _, c := range models.Columns {
		out.SortMode[c] = models.SortNone
	}
	for c, m := range p.SortMode {
		out.SortMode[c] = m
	}
	return out
}

func notBlank(v interface{}) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func knownStatus(v interface{}) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := models.ParseColumn(s); !ok {
		return fmt.Errorf("unknown status %q", s)
	}
	return nil
}

func validationErr(err error) error {
	return fmt.Errorf("%v: %w", err, apperr.ErrValidation)
}
