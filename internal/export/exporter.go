package export

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"formexport/internal/config"
	"formexport/internal/model"
)

// Source is the remote side of an export.
type Source interface {
	ListForms(ctx context.Context) ([]model.Form, error)
	Submissions(ctx context.Context, formID string) iter.Seq2[model.Submission, error]
}

// Sink persists the finished rows to path.
type Sink interface {
	Write(path string, rows []model.OutputRow) error
}

// Status tells how a run ended.
type Status int

const (
	StatusWritten Status = iota
	StatusNoForms
	StatusNoSubmissions
)

// Result summarises one run.
type Result struct {
	RunID        string
	Status       Status
	SearchTerm   string
	DaysBack     float64
	FormsListed  int
	FormsMatched int
	Rows         int
	Path         string // set only when Status is StatusWritten
}

// Summary is the one-line message printed at the end of a run.
func (r Result) Summary() string {
	switch r.Status {
	case StatusNoForms:
		return fmt.Sprintf("No forms matched search term %q", r.SearchTerm)
	case StatusNoSubmissions:
		return fmt.Sprintf("No submissions found in the last %s days across %d form(s)",
			strconv.FormatFloat(r.DaysBack, 'f', -1, 64), r.FormsMatched)
	default:
		return fmt.Sprintf("Wrote %d row(s) from %d form(s) to %s", r.Rows, r.FormsMatched, r.Path)
	}
}

// Exporter runs the full export sequentially: one request in flight, forms
// handled one after another in the order the API listed them.
type Exporter struct {
	source Source
	sink   Sink
	logger *zap.Logger
}

// New constructs an Exporter.
func New(source Source, sink Sink, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{source: source, sink: sink, logger: logger}
}

// Run executes one export with cfg. Remote failures abort the run before
// anything is written. Finding no forms or no submissions is not an error;
// the Result status says which case applied and no file is written.
func (e *Exporter) Run(ctx context.Context, cfg config.Config) (Result, error) {
	res := Result{
		RunID:      uuid.NewString(),
		SearchTerm: cfg.SearchTerm,
		DaysBack:   cfg.DaysBack,
	}
	log := e.logger.With(zap.String("run_id", res.RunID))
	log.Info("export started",
		zap.String("search_term", cfg.SearchTerm),
		zap.Float64("days_back", cfg.DaysBack),
		zap.Time("cutoff", cfg.Cutoff),
		zap.Bool("assume_newest_first", cfg.AssumeNewestFirst))

	forms, err := e.source.ListForms(ctx)
	if err != nil {
		return res, fmt.Errorf("list forms: %w", err)
	}
	res.FormsListed = len(forms)

	matched := FilterForms(forms, cfg.SearchTerm)
	res.FormsMatched = len(matched)
	if len(matched) == 0 {
		log.Info("no forms matched", zap.Int("forms_listed", len(forms)))
		res.Status = StatusNoForms
		return res, nil
	}
	log.Info("forms matched", zap.Int("forms_listed", len(forms)), zap.Int("forms_matched", len(matched)))

	var rows []model.OutputRow
	for _, form := range matched {
		formRows, err := e.collect(ctx, log, form, cfg)
		if err != nil {
			return res, fmt.Errorf("submissions for form %s (%q): %w", form.ID, form.Name, err)
		}
		rows = append(rows, formRows...)
	}

	if len(rows) == 0 {
		log.Info("no submissions in window")
		res.Status = StatusNoSubmissions
		return res, nil
	}

	if err := e.sink.Write(cfg.OutputFile, rows); err != nil {
		return res, fmt.Errorf("write workbook: %w", err)
	}
	res.Status = StatusWritten
	res.Rows = len(rows)
	res.Path = cfg.OutputFile

	log.Info("export done", zap.Int("rows", res.Rows), zap.String("path", res.Path))
	return res, nil
}

// collect walks one form's submissions and maps those inside the window.
// Every submission is checked against the cutoff. With AssumeNewestFirst
// the walk also stops at the first stale one; otherwise all pages are read.
func (e *Exporter) collect(ctx context.Context, log *zap.Logger, form model.Form, cfg config.Config) ([]model.OutputRow, error) {
	var (
		rows       []model.OutputRow
		stale      int
		outOfOrder int
	)

	for s, err := range e.source.Submissions(ctx, form.ID) {
		if err != nil {
			return nil, err
		}
		if !InWindow(s, cfg.Cutoff) {
			stale++
			if cfg.AssumeNewestFirst {
				break
			}
			continue
		}
		if stale > 0 {
			outOfOrder++
		}
		rows = append(rows, MapRow(form, s))
	}

	if outOfOrder > 0 {
		log.Warn("submissions not in newest-first order",
			zap.String("form_id", form.ID),
			zap.Int("in_window_after_stale", outOfOrder))
	}
	log.Debug("form done",
		zap.String("form_id", form.ID),
		zap.String("form_name", form.Name),
		zap.Int("rows", len(rows)),
		zap.Int("stale_seen", stale))
	return rows, nil
}
