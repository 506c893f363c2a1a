package export_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"formexport/internal/config"
	"formexport/internal/export"
	"formexport/internal/hubspot"
	"formexport/internal/hubspot/hubspottest"
	"formexport/internal/model"
	"formexport/internal/workbook"
)

const token = "pat-test"

var runStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingSink struct {
	calls int
	path  string
	rows  []model.OutputRow
}

func (s *recordingSink) Write(path string, rows []model.OutputRow) error {
	s.calls++
	s.path = path
	s.rows = rows
	return nil
}

func daysAgo(d float64) int64 {
	return runStart.Add(-time.Duration(d * float64(24*time.Hour))).UnixMilli()
}

func sub(id string, ageDays float64) model.Submission {
	return model.Submission{
		ConversionID: id,
		SubmittedAt:  daysAgo(ageDays),
		PageURL:      "https://example.com/" + id,
		Values: []model.PropertyValue{
			{Name: "email", Value: id + "@example.com", ObjectTypeID: model.ContactObjectType},
		},
	}
}

func testConfig(t *testing.T, term string, daysBack float64) config.Config {
	return config.Config{
		Token:             token,
		SearchTerm:        strings.ToLower(term),
		DaysBack:          daysBack,
		Cutoff:            config.CutoffFrom(runStart, daysBack),
		OutputFile:        filepath.Join(t.TempDir(), "out.xlsx"),
		AssumeNewestFirst: true,
	}
}

func newExporter(srv *hubspottest.Server, sink export.Sink) *export.Exporter {
	return export.New(hubspot.NewClient(srv.URL, token), sink, zap.NewNop())
}

// ── Form selection ─────────────────────────────────────────────────────────

func TestRun_OnlyMatchingFormsAreProcessed(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "guid-contact", Name: "Contact Us"}, sub("a", 1), sub("b", 2))
	srv.AddForm(model.Form{ID: "guid-news", Name: "Newsletter"}, sub("c", 1))

	sink := &recordingSink{}
	res, err := newExporter(srv, sink).Run(context.Background(), testConfig(t, "Contact", 90))
	require.NoError(t, err)

	assert.Equal(t, export.StatusWritten, res.Status)
	assert.Equal(t, 2, res.FormsListed)
	assert.Equal(t, 1, res.FormsMatched)
	assert.Equal(t, 2, res.Rows)
	require.Len(t, sink.rows, 2)
	for _, r := range sink.rows {
		assert.Equal(t, "guid-contact", r.FormID)
		assert.Equal(t, "Contact Us", r.FormName)
	}
	for _, req := range srv.Requests() {
		assert.NotContains(t, req, "guid-news")
	}
}

func TestRun_NoMatchingForms(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "guid-news", Name: "Newsletter"}, sub("c", 1))

	sink := &recordingSink{}
	cfg := testConfig(t, "exprom", 30)
	res, err := newExporter(srv, sink).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, export.StatusNoForms, res.Status)
	assert.Equal(t, `No forms matched search term "exprom"`, res.Summary())
	assert.Zero(t, sink.calls)
	assert.Len(t, srv.Requests(), 1)
}

// ── Time window ────────────────────────────────────────────────────────────

func TestRun_OnlyInWindowSubmissions(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "f1", Name: "Exprom 2026"}, sub("d5", 5), sub("d40", 40), sub("d95", 95))

	sink := &recordingSink{}
	res, err := newExporter(srv, sink).Run(context.Background(), testConfig(t, "exprom", 30))
	require.NoError(t, err)

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "d5", sink.rows[0].SubmissionID)
	assert.Equal(t, "d5@example.com", sink.rows[0].ContactEmail)
	assert.Equal(t, 1, res.Rows)
}

func TestRun_NewestFirstStopsPagingAtFirstStale(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	var subs []model.Submission
	for i := range 120 {
		subs = append(subs, sub(fmt.Sprintf("s%03d", i), float64(i)))
	}
	srv.AddForm(model.Form{ID: "f1", Name: "exprom"}, subs...)

	sink := &recordingSink{}
	_, err := newExporter(srv, sink).Run(context.Background(), testConfig(t, "exprom", 10.5))
	require.NoError(t, err)

	assert.Len(t, sink.rows, 11)
	// forms listing + first submissions page only
	assert.Len(t, srv.Requests(), 2)
}

func TestRun_UnorderedScanFiltersEverything(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "f1", Name: "exprom"}, sub("old", 40), sub("new", 5), sub("older", 95))

	cfg := testConfig(t, "exprom", 30)

	sink := &recordingSink{}
	res, err := newExporter(srv, sink).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, export.StatusNoSubmissions, res.Status)

	cfg.AssumeNewestFirst = false
	res, err = newExporter(srv, sink).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, export.StatusWritten, res.Status)
	require.Len(t, sink.rows, 1)
	assert.Equal(t, "new", sink.rows[0].SubmissionID)
}

func TestRun_NoSubmissionsInWindow(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "f1", Name: "exprom"}, sub("old", 45))
	srv.AddForm(model.Form{ID: "f2", Name: "exprom 2"})

	sink := &recordingSink{}
	cfg := testConfig(t, "exprom", 30)
	res, err := newExporter(srv, sink).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, export.StatusNoSubmissions, res.Status)
	assert.Equal(t, "No submissions found in the last 30 days across 2 form(s)", res.Summary())
	assert.Zero(t, sink.calls)
	_, statErr := os.Stat(cfg.OutputFile)
	assert.True(t, os.IsNotExist(statErr))
}

// ── Failure ────────────────────────────────────────────────────────────────

func TestRun_RemoteErrorAbortsWithoutWriting(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "f1", Name: "exprom"}, sub("a", 1))
	srv.FailOn("/form-integrations/", http.StatusBadGateway)

	sink := &recordingSink{}
	_, err := newExporter(srv, sink).Run(context.Background(), testConfig(t, "exprom", 30))
	require.Error(t, err)

	var reqErr *hubspot.RemoteRequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusBadGateway, reqErr.StatusCode)
	assert.Zero(t, sink.calls)
}

func TestRun_FormListingErrorAborts(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.FailOn("/marketing/", http.StatusInternalServerError)

	sink := &recordingSink{}
	_, err := newExporter(srv, sink).Run(context.Background(), testConfig(t, "exprom", 30))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list forms")
	assert.Zero(t, sink.calls)
}

// ── Resource model ─────────────────────────────────────────────────────────

func TestRun_OneRequestInFlight(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	for _, id := range []string{"f1", "f2", "f3"} {
		srv.AddForm(model.Form{ID: id, Name: "exprom " + id}, sub(id+"-a", 1), sub(id+"-b", 2))
	}

	_, err := newExporter(srv, &recordingSink{}).Run(context.Background(), testConfig(t, "exprom", 30))
	require.NoError(t, err)
	assert.Equal(t, 1, srv.MaxInFlight())
	assert.Len(t, srv.Requests(), 4)
}

// ── End to end ─────────────────────────────────────────────────────────────

func TestRun_WritesWorkbook(t *testing.T) {
	srv := hubspottest.New(token)
	defer srv.Close()
	srv.AddForm(model.Form{ID: "f1", Name: "Exprom A"}, sub("a1", 1), sub("a2", 3))
	srv.AddForm(model.Form{ID: "f2", Name: "exprom B"}, sub("b1", 2))

	cfg := testConfig(t, "exprom", 30)
	res, err := newExporter(srv, workbook.NewWriter()).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.OutputFile, res.Path)

	f, err := excelize.OpenFile(cfg.OutputFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(workbook.SheetName)
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, workbook.Headers, rows[0])
	assert.Equal(t, []string{"a1", "a2", "b1"}, []string{rows[1][2], rows[2][2], rows[3][2]})
	assert.Equal(t, "Exprom A", rows[1][1])
	assert.Equal(t, "b1@example.com", rows[3][4])
}
