// Package models defines the domain types for jobdeck.
package models

import "strings"

// Column is one of the fixed pipeline stages a job application can occupy.
type Column string

// Pipeline stages, in board order.
const (
	ColumnNew        Column = "NEW"
	ColumnCVSent     Column = "CV_SENT"
	ColumnFollowedUp Column = "FOLLOWED_UP"
	ColumnInterview  Column = "INTERVIEW"
	ColumnRefusal    Column = "REFUSAL"
	ColumnOffer      Column = "OFFER"
	ColumnArchive    Column = "ARCHIVE"
)

// Columns lists every stage in display order.
var Columns = []Column{
	ColumnNew,
	ColumnCVSent,
	ColumnFollowedUp,
	ColumnInterview,
	ColumnRefusal,
	ColumnOffer,
	ColumnArchive,
}

// ParseColumn matches s against the stage names, ignoring case and
// surrounding whitespace.
func ParseColumn(s string) (Column, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Columns {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is one of the seven stages.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}

// JobRecord is a single job application card.
type JobRecord struct {
	ID            string            `json:"id"`
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
	Status        Column            `json:"status"`
	Extra         map[string]string `json:"extra,omitempty"`

	// RemoteRowIndex is the 1-based row in the backing store, header included.
	// Zero means the record has never been written remotely.
	RemoteRowIndex int `json:"remoteRowIndex,omitempty"`
}

// IsRemote reports whether the record has a backing row.
func (r JobRecord) IsRemote() bool {
	return r.RemoteRowIndex > 0
}

// Fields holds the quick-edit fields saved independently of the rest of a record.
type Fields struct {
	Notes         string `json:"notes"`
	InterviewDate string `json:"interviewDate"`
	Contacts      string `json:"contacts"`
	Tag           string `json:"tag"`
}

// Fields returns the quick-edit fields of r.
func (r JobRecord) Fields() Fields {
	return Fields{
		Notes:         r.Notes,
		InterviewDate: r.InterviewDate,
		Contacts:      r.Contacts,
		Tag:           r.Tag,
	}
}

// WithFields returns a copy of r carrying f.
func (r JobRecord) WithFields(f Fields) JobRecord {
	r.Notes = f.Notes
	r.InterviewDate = f.InterviewDate
	r.Contacts = f.Contacts
	r.Tag = f.Tag
	return r
}
