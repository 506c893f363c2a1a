// Package scheduler wires up the cron job that periodically re-runs the
// export. Runs never overlap: a tick that fires while the previous export
// is still going is skipped.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job runs one export.
type Job func(ctx context.Context) error

// Scheduler wraps robfig/cron and manages the export loop.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	spec   string // cron spec, e.g. "@every 24h" or "0 6 * * 1"
	logger *zap.Logger
}

// New validates spec and creates a Scheduler for job.
func New(spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		job:    job,
		spec:   spec,
		logger: logger,
	}, nil
}

// Start runs the job once, synchronously, then registers it and starts the
// cron loop. ctx is handed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.run(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running export to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("cron stopped")
}

// run executes one export. A failed run is logged; the next tick still fires.
func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled export started")
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled export failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled export complete")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
