// Package export runs one form-submission export: it selects forms by
// name, walks their submissions inside the look-back window, flattens
// them into rows and hands the rows to the workbook writer.
package export

import (
	"strings"
	"time"

	"formexport/internal/model"
)

// MatchesSearchTerm returns true if term appears (case-insensitive)
// anywhere in the form name. An empty term matches every form.
func MatchesSearchTerm(name, term string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(term))
}

// FilterForms keeps the forms whose name matches term, preserving order.
func FilterForms(forms []model.Form, term string) []model.Form {
	var out []model.Form
	for _, f := range forms {
		if MatchesSearchTerm(f.Name, term) {
			out = append(out, f)
		}
	}
	return out
}

// InWindow reports whether s was submitted at or after cutoff.
func InWindow(s model.Submission, cutoff time.Time) bool {
	return s.SubmittedAt >= cutoff.UnixMilli()
}
