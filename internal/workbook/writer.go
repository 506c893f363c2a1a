// Package workbook serialises export rows into a single-sheet xlsx file.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"formexport/internal/model"
)

// SheetName is the only sheet in the workbook.
const SheetName = "Submissions"

// Headers is the fixed column order of the sheet.
var Headers = []string{
	"Form GUID",
	"Form Name",
	"Form Submission ID",
	"Time Submitted",
	"Contact Email Address",
	"Page converted on",
	"All Properties",
}

// Writer writes rows to an xlsx file.
type Writer struct{}

// NewWriter returns a Writer.
func NewWriter() *Writer { return &Writer{} }

// Write builds the workbook in memory and saves it to path, replacing any
// file already there.
func (w *Writer) Write(path string, rows []model.OutputRow) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"; rename rather than add a second sheet.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Headers)); err != nil {
		return fmt.Errorf("header row: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowCells(r)); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func rowCells(r model.OutputRow) []any {
	return toCells([]string{
		r.FormID,
		r.FormName,
		r.SubmissionID,
		r.SubmittedAt,
		r.ContactEmail,
		r.PageURL,
		r.AllProperties,
	})
}

func toCells(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
