package ingest

import (
	"strings"

	"github.com/starford/jobdeck/internal/models"
)

type field int

const (
	fieldExtra field = iota
	fieldID
	fieldTitle
	fieldDescription
	fieldCompany
	fieldLocation
	fieldLink
	fieldDate
	fieldStatus
	fieldNotes
	fieldInterviewDate
	fieldContacts
	fieldTag
)

// canonical maps lowercased headers onto record fields. Anything else lands
// in JobRecord.Extra under its trimmed header.
var canonical = map[string]field{
	"id":             fieldID,
	"title":          fieldTitle,
	"description":    fieldDescription,
	"company":        fieldCompany,
	"location":       fieldLocation,
	"link":           fieldLink,
	"date":           fieldDate,
	"status":         fieldStatus,
	"notes":          fieldNotes,
	"interview date": fieldInterviewDate,
	"interviewdate":  fieldInterviewDate,
	"contacts":       fieldContacts,
	"tag":            fieldTag,
}

// DefaultHeaders is the header row written when a new table is created.
var DefaultHeaders = []string{
	"ID", "Title", "Company", "Location", "Description", "Link", "Date",
	"Status", "Notes", "Interview Date", "Contacts", "Tag",
}

type column struct {
	field field
	name  string
}

// NormalizeHeader trims h and strips a leading byte-order mark.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(h)
}

// RowValues lays rec out as a row matching headers. Headers that map to no
// record field take their value from rec.Extra.
func RowValues(headers []string, rec models.JobRecord) []string {
	out := make([]string, len(headers))
	for i, c := range mapHeaders(headers) {
		out[i] = cellValue(c, rec)
	}
	return out
}

// FieldsHeaderValues returns the quick-edit fields of f keyed by the field
// they map to, for in-place cell updates.
func FieldsHeaderValues(headers []string, f models.Fields) map[int]string {
	out := make(map[int]string)
	for i, c := range mapHeaders(headers) {
		switch c.field {
		case fieldNotes:
			out[i] = f.Notes
		case fieldInterviewDate:
			out[i] = f.InterviewDate
		case fieldContacts:
			out[i] = f.Contacts
		case fieldTag:
			out[i] = f.Tag
		}
	}
	return out
}

// StatusColumn returns the index of the status header, or -1.
func StatusColumn(headers []string) int {
	return indexOfField(headers, fieldStatus)
}

// IDColumn returns the index of the id header, or -1.
func IDColumn(headers []string) int {
	return indexOfField(headers, fieldID)
}

func indexOfField(headers []string, f field) int {
	for i, c := range mapHeaders(headers) {
		if c.field == f {
			return i
		}
	}
	return -1
}

func cellValue(c column, rec models.JobRecord) string {
	switch c.field {
	case fieldID:
		return rec.ID
	case fieldTitle:
		return rec.Title
	case fieldDescription:
		return rec.Description
	case fieldCompany:
		return rec.Company
	case fieldLocation:
		return rec.Location
	case fieldLink:
		return rec.Link
	case fieldDate:
		return rec.Date
	case fieldStatus:
		return string(rec.Status)
	case fieldNotes:
		return rec.Notes
	case fieldInterviewDate:
		return rec.InterviewDate
	case fieldContacts:
		return rec.Contacts
	case fieldTag:
		return rec.Tag
	}
	return rec.Extra[c.name]
}

func mapHeaders(headers []string) []column {
	out := make([]column, len(headers))
	for i, h := range headers {
		name := NormalizeHeader(h)
		f, ok := canonical[strings.ToLower(name)]
		if !ok {
			f = fieldExtra
		}
		out[i] = column{field: f, name: name}
	}
	return out
}

func hasField(cols []column, f field) bool {
	for _, c := range cols {
		if c.field == f {
			return true
		}
	}
	return false
}

// buildRecord reads one row. It returns the raw status text and whether the
// id came from an explicit id column.
func buildRecord(cols []column, row []string) (models.JobRecord, string, bool) {
	var rec models.JobRecord
	var status string
	for i, c := range cols {
		var v string
		if i < len(row) {
			v = row[i]
		}
		switch c.field {
		case fieldID:
			rec.ID = strings.TrimSpace(v)
		case fieldTitle:
			rec.Title = v
		case fieldDescription:
			rec.Description = v
		case fieldCompany:
			rec.Company = v
		case fieldLocation:
			rec.Location = v
		case fieldLink:
			rec.Link = v
		case fieldDate:
			rec.Date = v
		case fieldStatus:
			status = v
		case fieldNotes:
			rec.Notes = v
		case fieldInterviewDate:
			rec.InterviewDate = v
		case fieldContacts:
			rec.Contacts = v
		case fieldTag:
			rec.Tag = v
		default:
			if c.name == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[c.name] = v
		}
	}
	return rec, status, rec.ID != ""
}
