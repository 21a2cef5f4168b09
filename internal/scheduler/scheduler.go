// Package scheduler triggers pipeline runs on a cron expression that can be
// changed at runtime, and coalesces overlapping runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"news_briefing/internal/model"
)

// ErrInvalidSchedule is returned for a schedule expression that does not parse.
var ErrInvalidSchedule = errors.New("invalid schedule expression")

// SettingStore persists the schedule settings.
type SettingStore interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSchedule(ctx context.Context, expr string, enabled bool) error
}

// Runner executes one full pipeline run and writes its run log.
type Runner interface {
	RunAndLog(ctx context.Context) (*model.RunLog, error)
}

// Reporter is notified after every finished run.
type Reporter interface {
	Report(ctx context.Context, entry *model.RunLog, err error)
}

// Scheduler owns the single recurring trigger of the process. A new Runner is
// built for every run so configuration changes apply without a restart.
type Scheduler struct {
	settings  SettingStore
	newRunner func() Runner
	reporter  Reporter
	log       *slog.Logger
	parser    cron.Parser

	mu   sync.Mutex
	cron *cron.Cron
	expr string

	runs singleflight.Group
}

// New creates a stopped Scheduler.
func New(settings SettingStore, newRunner func() Runner, log *slog.Logger) *Scheduler {
	return &Scheduler{
		settings:  settings,
		newRunner: newRunner,
		log:       log,
		parser: cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// SetReporter sets the run reporter. It must be called before Init.
func (s *Scheduler) SetReporter(r Reporter) {
	s.reporter = r
}

// Init schedules runs from the persisted settings when they are enabled.
// It is a no-op when already scheduled. An invalid stored expression is
// logged and leaves the scheduler stopped.
func (s *Scheduler) Init(ctx context.Context) error {
	if s.Scheduled() {
		return nil
	}

	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load schedule settings: %w", err)
	}
	if !settings.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}

	if err := s.Start(settings.Schedule); err != nil {
		s.log.Error("start scheduler", "schedule", settings.Schedule, "error", err)
	}
	return nil
}

// Start replaces any active trigger with one firing on expr. An invalid
// expression stops the scheduler and returns ErrInvalidSchedule.
func (s *Scheduler) Start(expr string) error {
	sched, err := s.parser.Parse(expr)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}

	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithChain(cron.Recover(logger)),
		cron.WithLogger(logger),
	)
	c.Schedule(sched, cron.FuncJob(s.tick))
	c.Start()

	s.cron = c
	s.expr = expr
	s.log.Info("scheduler started", "schedule", expr)
	return nil
}

// Stop cancels the active trigger. A run in flight is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.log.Info("scheduler stopped", "schedule", s.expr)
	s.cron = nil
	s.expr = ""
}

// UpdateSchedule persists expr and enabled together, then starts or stops
// the trigger. The settings are saved even when expr is invalid.
func (s *Scheduler) UpdateSchedule(ctx context.Context, expr string, enabled bool) error {
	if err := s.settings.SaveSchedule(ctx, expr, enabled); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	if !enabled {
		s.Stop()
		return nil
	}
	return s.Start(expr)
}

// Scheduled reports whether a trigger is active.
func (s *Scheduler) Scheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Schedule returns the active expression, or "" when stopped.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

// RunNow executes a run and returns its log. A call made while another run
// is in flight waits for that run and shares its result. The run is not
// cancelled with ctx.
func (s *Scheduler) RunNow(ctx context.Context) (*model.RunLog, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, shared := s.runs.Do("run", func() (any, error) {
		entry, err := s.newRunner().RunAndLog(ctx)
		if s.reporter != nil {
			s.reporter.Report(ctx, entry, err)
		}
		return entry, err
	})
	if shared {
		s.log.Debug("joined run in flight")
	}
	entry, _ := v.(*model.RunLog)
	return entry, err
}

func (s *Scheduler) tick() {
	s.log.Info("scheduled run")
	if _, err := s.RunNow(context.Background()); err != nil {
		s.log.Error("scheduled run", "error", err)
	}
}

// Close stops the trigger and waits for a scheduled run in flight.
func (s *Scheduler) Close() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.expr = ""
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
