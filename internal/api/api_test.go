package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/jobdeck/internal/board"
	"github.com/starford/jobdeck/internal/boardservice"
	"github.com/starford/jobdeck/internal/models"
	"github.com/starford/jobdeck/internal/remote"
	"github.com/starford/jobdeck/internal/testutil"
)

type recorder struct {
	ops []remote.Op
}

func (r *recorder) Dispatch(op remote.Op) { r.ops = append(r.ops, op) }

type testEnv struct {
	router http.Handler
	src    *testutil.Source
	ops    *recorder
}

func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()
	rec := &recorder{}
	src := testutil.NewSource(testutil.SamplePayload())
	svc := boardservice.New(board.NewManager(rec, nil), src, testutil.TestPrefs(t))
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &testEnv{
		router: NewRouter(svc, authToken != "", authToken, nil),
		src:    src,
		ops:    rec,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func cards(v BoardView, c models.Column) []models.JobRecord {
	for _, col := range v.Columns {
		if col.Name == c {
			return col.Cards
		}
	}
	return nil
}

func TestGetBoard(t *testing.T) {
	e := newTestEnv(t, "")
	w := e.do(t, http.MethodGet, "/board", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	v := decodeBody[BoardView](t, w)
	if got := cards(v, models.ColumnInterview); len(got) != 1 || got[0].Title != "Data Eng" {
		t.Errorf("INTERVIEW = %+v", got)
	}
}

func TestMoveDispatchesStatusUpdate(t *testing.T) {
	e := newTestEnv(t, "")
	v := decodeBody[BoardView](t, e.do(t, http.MethodGet, "/board", nil))
	id := cards(v, models.ColumnNew)[0].ID

	w := e.do(t, http.MethodPost, "/jobs/"+id+"/move", MoveJobRequest{Column: "cv_sent"})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	if rec := decodeBody[models.JobRecord](t, w); rec.Status != models.ColumnCVSent {
		t.Errorf("status = %s", rec.Status)
	}
	last := e.ops.ops[len(e.ops.ops)-1]
	if last.Kind != remote.OpSetStatus || last.RowIndex != 2 || last.Status != models.ColumnCVSent {
		t.Errorf("op = %+v", last)
	}

	if w := e.do(t, http.MethodPost, "/jobs/"+id+"/move", MoveJobRequest{Column: "LATER"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad column status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/jobs/nope/move", MoveJobRequest{Column: "NEW"}); w.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", w.Code)
	}
}

func TestJobLifecycle(t *testing.T) {
	e := newTestEnv(t, "")

	w := e.do(t, http.MethodPost, "/jobs", CreateJobRequest{Title: "Go Dev", Company: "Acme"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeBody[models.JobRecord](t, w)
	if created.ID != "self-go-dev--acme" {
		t.Errorf("id = %q", created.ID)
	}
	if w := e.do(t, http.MethodPost, "/jobs", CreateJobRequest{Title: "Go Dev", Company: "Acme"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/jobs", CreateJobRequest{Title: " "}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank title status = %d", w.Code)
	}

	title := "Go Engineer"
	w = e.do(t, http.MethodPut, "/jobs/"+created.ID, UpdateJobRequest{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}
	updated := decodeBody[models.JobRecord](t, w)
	if updated.ID != "self-go-engineer--acme" || updated.Company != "Acme" {
		t.Errorf("updated = %+v", updated)
	}

	w = e.do(t, http.MethodPatch, "/jobs/"+updated.ID+"/fields", models.Fields{Notes: "ping", Tag: "go"})
	if w.Code != http.StatusOK || decodeBody[models.JobRecord](t, w).Notes != "ping" {
		t.Errorf("fields status = %d, body = %s", w.Code, w.Body.String())
	}

	if w := e.do(t, http.MethodGet, "/jobs/"+updated.ID, nil); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/jobs/"+updated.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/jobs/"+updated.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
}

func TestDeleteRemoteJobRefused(t *testing.T) {
	e := newTestEnv(t, "")
	v := decodeBody[BoardView](t, e.do(t, http.MethodGet, "/board", nil))
	id := cards(v, models.ColumnNew)[0].ID
	if w := e.do(t, http.MethodDelete, "/jobs/"+id, nil); w.Code != http.StatusConflict {
		t.Errorf("status = %d", w.Code)
	}
}

func TestQueryDisablesDrag(t *testing.T) {
	e := newTestEnv(t, "")
	w := e.do(t, http.MethodPut, "/board/query", QueryRequest{Query: "globex"})
	v := decodeBody[BoardView](t, w)
	if v.DragEnabled || len(cards(v, models.ColumnNew)) != 0 {
		t.Errorf("view = %+v", v)
	}
	if w := e.do(t, http.MethodPost, "/columns/NEW/reorder", ReorderRequest{From: 0, To: 1}); w.Code != http.StatusConflict {
		t.Errorf("reorder while filtered = %d", w.Code)
	}

	e.do(t, http.MethodPut, "/board/query", QueryRequest{})
	w = e.do(t, http.MethodPost, "/columns/NEW/reorder", ReorderRequest{From: 0, To: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body = %s", w.Code, w.Body.String())
	}
	col := decodeBody[ColumnResponse](t, w)
	if len(col.Cards) != 2 || col.Cards[1].Title != "Backend Dev" {
		t.Errorf("cards = %+v", col.Cards)
	}
	if w := e.do(t, http.MethodPost, "/columns/NEW/reorder", ReorderRequest{From: 7, To: 0}); w.Code != http.StatusNotFound {
		t.Errorf("out of range = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/columns/LATER/reorder", ReorderRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("bad column = %d", w.Code)
	}
}

func TestSortEndpoint(t *testing.T) {
	e := newTestEnv(t, "")
	for _, want := range []models.SortMode{models.SortAscending, models.SortDescending, models.SortNone} {
		w := e.do(t, http.MethodPost, "/columns/INTERVIEW/sort", nil)
		if got := decodeBody[SortResponse](t, w); got.Mode != want {
			t.Errorf("mode = %s, want %s", got.Mode, want)
		}
	}
	if w := e.do(t, http.MethodPost, "/columns/NEW/sort", SortRequest{Mode: "sideways"}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad mode = %d", w.Code)
	}
	w := e.do(t, http.MethodPost, "/columns/NEW/sort", SortRequest{Mode: models.SortDescending})
	if got := decodeBody[SortResponse](t, w); got.Mode != models.SortDescending {
		t.Errorf("explicit mode = %s", got.Mode)
	}
	p := decodeBody[models.ViewPreferences](t, e.do(t, http.MethodGet, "/prefs", nil))
	if p.SortMode[models.ColumnNew] != models.SortDescending {
		t.Errorf("prefs = %+v", p)
	}
}

func TestPrefsEndpoint(t *testing.T) {
	e := newTestEnv(t, "")
	p := models.DefaultPreferences()
	p.FocusModeEnabled = false
	p.FocusColumn = models.ColumnOffer
	w := e.do(t, http.MethodPut, "/prefs", p)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeBody[models.ViewPreferences](t, w); got.FocusColumn != models.ColumnOffer || got.FocusModeEnabled {
		t.Errorf("prefs = %+v", got)
	}
	if f := decodeBody[FocusView](t, e.do(t, http.MethodGet, "/focus", nil)); f.Column != models.ColumnOffer || f.Enabled {
		t.Errorf("focus = %+v", f)
	}

	p.FocusColumn = "LATER"
	if w := e.do(t, http.MethodPut, "/prefs", p); w.Code != http.StatusBadRequest {
		t.Errorf("bad prefs = %d", w.Code)
	}
}

func TestFocusEndpoints(t *testing.T) {
	e := newTestEnv(t, "")
	f := decodeBody[FocusView](t, e.do(t, http.MethodPost, "/focus/next", nil))
	if f.Index != 1 || f.Current == nil || f.Current.Title != "Platform Eng" {
		t.Fatalf("focus = %+v", f)
	}
	if w := e.do(t, http.MethodPost, "/focus/move", FocusMoveRequest{Target: "NEW"}); w.Code != http.StatusConflict {
		t.Errorf("move to current = %d", w.Code)
	}
	f = decodeBody[FocusView](t, e.do(t, http.MethodPost, "/focus/move", FocusMoveRequest{Target: "ARCHIVE"}))
	if f.Len != 1 || f.Index != 0 {
		t.Errorf("after move = %+v", f)
	}
	f = decodeBody[FocusView](t, e.do(t, http.MethodPut, "/focus/column", FocusColumnRequest{Column: "archive"}))
	if f.Column != models.ColumnArchive || f.Len != 1 {
		t.Errorf("archive focus = %+v", f)
	}
	f = decodeBody[FocusView](t, e.do(t, http.MethodPost, "/focus/prev", nil))
	if f.Index != 0 {
		t.Errorf("prev = %+v", f)
	}
}

func TestReloadEndpoint(t *testing.T) {
	e := newTestEnv(t, "")
	e.src.Set([][]string{{"Title", "Status"}, {"Only", "OFFER"}})
	w := e.do(t, http.MethodPost, "/board/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st := decodeBody[LoadStatus](t, w); !st.OK || st.Records != 1 {
		t.Errorf("status = %+v", st)
	}

	e.src.Fail(errors.New("timeout"))
	w = e.do(t, http.MethodPost, "/board/reload", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("failed reload = %d", w.Code)
	}
	st := decodeBody[LoadStatus](t, e.do(t, http.MethodGet, "/board/status", nil))
	if st.OK || st.Cause == "" || st.Records != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t, "s3cret")
	if w := e.do(t, http.MethodGet, "/board", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/board?access_token=s3cret", nil)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("query token on GET = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/board/reload?access_token=s3cret", nil)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on POST = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	e := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestOversizedBody(t *testing.T) {
	e := newTestEnv(t, "")
	body := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", w.Code)
	}
}
