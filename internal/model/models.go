// Package model defines shared data structures for the form export.
package model

import "time"

const (
	// ContactObjectType is the CRM object type id for contacts.
	ContactObjectType = "0-1"
	// EmailProperty is the property name carrying a contact's email.
	EmailProperty = "email"
)

// Form mirrors a marketing form as returned by the forms API.
// Only ID and Name drive the export.
type Form struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FormType  string `json:"formType,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	Archived  bool   `json:"archived,omitempty"`
}

// PropertyValue is one submitted field value.
type PropertyValue struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	ObjectTypeID string `json:"objectTypeId"`
}

// Submission is one filled-in instance of a Form. The owning form is known
// only from the traversal that fetched it.
type Submission struct {
	ConversionID string          `json:"conversionId"`
	SubmittedAt  int64           `json:"submittedAt"` // epoch milliseconds
	PageURL      string          `json:"pageUrl"`
	Values       []PropertyValue `json:"values"`
}

// SubmittedTime returns SubmittedAt as a UTC time.
func (s Submission) SubmittedTime() time.Time {
	return time.UnixMilli(s.SubmittedAt).UTC()
}

// OutputRow is one flattened (form, submission) pair, ready for the workbook.
type OutputRow struct {
	FormID        string
	FormName      string
	SubmissionID  string
	SubmittedAt   string // ISO-8601, UTC, millisecond precision
	ContactEmail  string
	PageURL       string
	AllProperties string // JSON array of the raw property values
}
