package export

import (
	"encoding/json"

	"formexport/internal/model"
)

// isoMillis matches the ISO-8601 form used across the API: UTC with
// millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ContactEmail returns the first contact email among values, or "" when
// there is none. A missing email is never an error.
func ContactEmail(values []model.PropertyValue) string {
	for _, v := range values {
		if v.Name == model.EmailProperty && v.ObjectTypeID == model.ContactObjectType {
			return v.Value
		}
	}
	return ""
}

// MapRow flattens one submission of form into an output row.
func MapRow(form model.Form, s model.Submission) model.OutputRow {
	values := s.Values
	if values == nil {
		values = []model.PropertyValue{}
	}
	// PropertyValue holds only strings, so Marshal cannot fail.
	raw, _ := json.Marshal(values)

	return model.OutputRow{
		FormID:        form.ID,
		FormName:      form.Name,
		SubmissionID:  s.ConversionID,
		SubmittedAt:   s.SubmittedTime().Format(isoMillis),
		ContactEmail:  ContactEmail(s.Values),
		PageURL:       s.PageURL,
		AllProperties: string(raw),
	}
}
