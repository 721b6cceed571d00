package board

import (
	"errors"
	"testing"

	"github.com/starford/jobdeck/internal/apperr"
	"github.com/starford/jobdeck/internal/models"
	"github.com/starford/jobdeck/internal/remote"
)

func strp(s string) *string { return &s }

func TestCreate_DerivesLocalID(t *testing.T) {
	m, r := testManager(t, rec("row-1", models.ColumnNew, 2))
	got, err := m.Create(models.JobRecord{Title: "Senior Backend Engineer", Company: "Acme Co."})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != "self-senior-backend-engineer--acme-co" || got.Status != models.ColumnNew {
		t.Errorf("created = %+v", got)
	}
	if first := m.Snapshot()[models.ColumnNew][0]; first.ID != got.ID {
		t.Errorf("new card should lead the column, got %s", first.ID)
	}
	op := r.last(t)
	if op.Kind != remote.OpUpsert || op.RowIndex != 0 || op.Record.ID != got.ID {
		t.Errorf("op = %+v", op)
	}

	if _, err := m.Create(models.JobRecord{Title: "Senior Backend Engineer", Company: "ACME co"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}
}

func TestCreate_IgnoresCallerIDAndRow(t *testing.T) {
	m, _ := testManager(t)
	got, err := m.Create(models.JobRecord{ID: "row-spoof", Title: "T", Status: models.ColumnOffer, RemoteRowIndex: 7})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "self-t" || got.RemoteRowIndex != 0 || got.Status != models.ColumnOffer {
		t.Errorf("created = %+v", got)
	}
}

func TestUpdate_LocalRecordIsReidentified(t *testing.T) {
	m, r := testManager(t)
	created, _ := m.Create(models.JobRecord{Title: "Go Dev", Company: "Acme"})

	got, err := m.Update(created.ID, Patch{Title: strp("Go Engineer")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != "self-go-engineer--acme" {
		t.Errorf("id = %q", got.ID)
	}
	if _, ok := m.Get(created.ID); ok {
		t.Error("old id still on the board")
	}
	op := r.last(t)
	if op.Kind != remote.OpUpsert || op.Supersedes != created.ID || op.RecordID != got.ID {
		t.Errorf("op = %+v", op)
	}
	if err := CheckInvariants(m.Snapshot()); err != nil {
		t.Fatal(err)
	}
}

func TestUpdate_LocalCollisionRejected(t *testing.T) {
	m, _ := testManager(t)
	a, _ := m.Create(models.JobRecord{Title: "A"})
	_, _ = m.Create(models.JobRecord{Title: "B"})
	if _, err := m.Update(a.ID, Patch{Title: strp("B")}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdate_RemoteRecordKeepsIDAndRow(t *testing.T) {
	m, r := testManager(t, rec("row-1", models.ColumnInterview, 5))
	got, err := m.Update("row-1", Patch{Company: strp("Globex")})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "row-1" || got.Company != "Globex" || got.Status != models.ColumnInterview {
		t.Errorf("updated = %+v", got)
	}
	if op := r.last(t); op.Kind != remote.OpUpsert || op.RowIndex != 5 || op.Supersedes != "" {
		t.Errorf("op = %+v", op)
	}
}

func TestSaveFields_Branches(t *testing.T) {
	m, r := testManager(t, rec("row-1", models.ColumnNew, 4), rec("self-x", models.ColumnNew, 0))
	f := models.Fields{Notes: "ping recruiter", Tag: "remote"}

	got, err := m.SaveFields("row-1", f)
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "ping recruiter" {
		t.Errorf("notes = %q", got.Notes)
	}
	if op := r.last(t); op.Kind != remote.OpSaveFields || op.RowIndex != 4 || op.Fields != f {
		t.Errorf("remote op = %+v", op)
	}

	if _, err := m.SaveFields("self-x", f); err != nil {
		t.Fatal(err)
	}
	if op := r.last(t); op.Kind != remote.OpLocalUpsert || op.Record.Tag != "remote" {
		t.Errorf("local op = %+v", op)
	}
}

func TestDelete_OnlyLocal(t *testing.T) {
	m, r := testManager(t, rec("row-1", models.ColumnNew, 2), rec("self-x", models.ColumnOffer, 9))
	if err := m.Delete("row-1"); !errors.Is(err, apperr.ErrNotLocal) {
		t.Errorf("remote delete err = %v", err)
	}
	if err := m.Delete("self-x"); err != nil {
		t.Fatal(err)
	}
	if op := r.last(t); op.Kind != remote.OpDelete || op.RowIndex != 9 || op.RecordID != "self-x" {
		t.Errorf("op = %+v", op)
	}
	if err := m.Delete("self-x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestAttachRowIndex(t *testing.T) {
	m, _ := testManager(t)
	created, _ := m.Create(models.JobRecord{Title: "Go Dev"})
	if !m.AttachRowIndex(created.ID, 12) {
		t.Fatal("AttachRowIndex returned false")
	}
	got, _ := m.Get(created.ID)
	if got.RemoteRowIndex != 12 {
		t.Errorf("row = %d", got.RemoteRowIndex)
	}
	if m.AttachRowIndex("self-gone", 3) {
		t.Error("attach to unknown record should fail")
	}

	// Once backed by a row, a move goes to the store as a status update.
	r := &recorder{}
	m.dispatch = r
	_, _ = m.MoveToColumn(created.ID, models.ColumnCVSent)
	if op := r.last(t); op.Kind != remote.OpSetStatus || op.RowIndex != 12 {
		t.Errorf("op = %+v", op)
	}
}
