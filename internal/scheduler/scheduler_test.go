package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"news_briefing/internal/model"
	"news_briefing/internal/storage"
)

type fakeRunner struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeRunner) RunAndLog(_ context.Context) (*model.RunLog, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return &model.RunLog{Status: model.StatusError}, f.err
	}
	return &model.RunLog{Status: model.StatusSuccess, TotalSaved: 3}, nil
}

type fakeReporter struct {
	mu      sync.Mutex
	entries []*model.RunLog
	errs    []error
}

func (r *fakeReporter) Report(_ context.Context, entry *model.RunLog, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	r.errs = append(r.errs, err)
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestScheduler(t *testing.T, store SettingStore, r *fakeRunner) (*Scheduler, *atomic.Int32) {
	t.Helper()
	built := &atomic.Int32{}
	s := New(store, func() Runner {
		built.Add(1)
		return r
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(s.Close)
	return s, built
}

func TestUpdateScheduleInvalidExpression(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	s, _ := newTestScheduler(t, store, &fakeRunner{})

	err := s.UpdateSchedule(ctx, "invalid cron", true)
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("err = %v, want ErrInvalidSchedule", err)
	}
	if s.Scheduled() {
		t.Error("scheduler is scheduled after invalid expression")
	}

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if !settings.Enabled || settings.Schedule != "invalid cron" {
		t.Errorf("persisted settings = %+v, want enabled with invalid cron", settings)
	}
}

func TestUpdateScheduleInvalidStopsActiveTrigger(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t, newTestStore(t), &fakeRunner{})

	if err := s.UpdateSchedule(ctx, "0 */6 * * *", true); err != nil {
		t.Fatalf("update schedule: %v", err)
	}
	if err := s.UpdateSchedule(ctx, "not a schedule", true); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	if s.Scheduled() {
		t.Error("previous trigger still active")
	}
}

func TestUpdateSchedule(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	s, _ := newTestScheduler(t, store, &fakeRunner{})

	tests := []struct {
		name          string
		expr          string
		enabled       bool
		wantScheduled bool
		wantExpr      string
	}{
		{name: "enable five fields", expr: "0 */6 * * *", enabled: true, wantScheduled: true, wantExpr: "0 */6 * * *"},
		{name: "replace with seconds", expr: "30 0 9 * * *", enabled: true, wantScheduled: true, wantExpr: "30 0 9 * * *"},
		{name: "descriptor", expr: "@hourly", enabled: true, wantScheduled: true, wantExpr: "@hourly"},
		{name: "disable", expr: "@hourly", enabled: false, wantScheduled: false, wantExpr: ""},
		{name: "disable again", expr: "@daily", enabled: false, wantScheduled: false, wantExpr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.UpdateSchedule(ctx, tt.expr, tt.enabled); err != nil {
				t.Fatalf("update schedule: %v", err)
			}
			if got := s.Scheduled(); got != tt.wantScheduled {
				t.Errorf("Scheduled() = %v, want %v", got, tt.wantScheduled)
			}
			if got := s.Schedule(); got != tt.wantExpr {
				t.Errorf("Schedule() = %q, want %q", got, tt.wantExpr)
			}

			settings, err := store.LoadSettings(ctx)
			if err != nil {
				t.Fatalf("load settings: %v", err)
			}
			if settings.Schedule != tt.expr || settings.Enabled != tt.enabled {
				t.Errorf("persisted = (%q, %v), want (%q, %v)", settings.Schedule, settings.Enabled, tt.expr, tt.enabled)
			}
		})
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name          string
		expr          string
		enabled       bool
		wantScheduled bool
	}{
		{name: "nothing stored", wantScheduled: false},
		{name: "disabled", expr: "@daily", enabled: false, wantScheduled: false},
		{name: "enabled", expr: "@daily", enabled: true, wantScheduled: true},
		{name: "enabled invalid", expr: "every day", enabled: true, wantScheduled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			if tt.expr != "" {
				if err := store.SaveSchedule(ctx, tt.expr, tt.enabled); err != nil {
					t.Fatalf("save schedule: %v", err)
				}
			}
			s, _ := newTestScheduler(t, store, &fakeRunner{})

			if err := s.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			if got := s.Scheduled(); got != tt.wantScheduled {
				t.Errorf("Scheduled() = %v, want %v", got, tt.wantScheduled)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.SaveSchedule(ctx, "@daily", true); err != nil {
		t.Fatalf("save schedule: %v", err)
	}
	s, _ := newTestScheduler(t, store, &fakeRunner{})

	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveSchedule(ctx, "@hourly", true); err != nil {
		t.Fatalf("save schedule: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if got := s.Schedule(); got != "@daily" {
		t.Errorf("Schedule() = %q, want @daily", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, newTestStore(t), &fakeRunner{})
	s.Stop()
	if err := s.Start("@daily"); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
	if s.Scheduled() {
		t.Error("still scheduled after stop")
	}
}

func TestRunNowReports(t *testing.T) {
	s, built := newTestScheduler(t, newTestStore(t), &fakeRunner{})
	rep := &fakeReporter{}
	s.SetReporter(rep)

	got, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	want := &model.RunLog{Status: model.StatusSuccess, TotalSaved: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RunNow mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]*model.RunLog{want}, rep.entries); diff != "" {
		t.Errorf("reported mismatch (-want +got):\n%s", diff)
	}
	if n := built.Load(); n != 1 {
		t.Errorf("runners built = %d, want 1", n)
	}
}

func TestRunNowReturnsRunError(t *testing.T) {
	runErr := errors.New("not configured: search")
	s, _ := newTestScheduler(t, newTestStore(t), &fakeRunner{err: runErr})
	rep := &fakeReporter{}
	s.SetReporter(rep)

	got, err := s.RunNow(context.Background())
	if !errors.Is(err, runErr) {
		t.Fatalf("err = %v, want %v", err, runErr)
	}
	if got == nil || got.Status != model.StatusError {
		t.Errorf("run log = %+v, want error status", got)
	}
	if len(rep.errs) != 1 || !errors.Is(rep.errs[0], runErr) {
		t.Errorf("reported errors = %v", rep.errs)
	}
}

func TestRunNowCoalescesOverlappingRuns(t *testing.T) {
	r := &fakeRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	s, built := newTestScheduler(t, newTestStore(t), r)

	var wg sync.WaitGroup
	results := make([]*model.RunLog, 2)
	run := func(i int) {
		defer wg.Done()
		entry, err := s.RunNow(context.Background())
		if err != nil {
			t.Errorf("run %d: %v", i, err)
		}
		results[i] = entry
	}

	wg.Add(1)
	go run(0)
	<-r.started

	wg.Add(1)
	go run(1)
	time.Sleep(100 * time.Millisecond)
	close(r.release)
	wg.Wait()

	if n := built.Load(); n != 1 {
		t.Errorf("runners built = %d, want 1", n)
	}
	if results[0] != results[1] {
		t.Error("overlapping calls returned different run logs")
	}
}

func TestTickRunsPipeline(t *testing.T) {
	s, built := newTestScheduler(t, newTestStore(t), &fakeRunner{})
	rep := &fakeReporter{}
	s.SetReporter(rep)

	s.tick()

	if n := built.Load(); n != 1 {
		t.Errorf("runners built = %d, want 1", n)
	}
	if len(rep.entries) != 1 {
		t.Errorf("reports = %d, want 1", len(rep.entries))
	}
}

func TestTickSurvivesRunError(t *testing.T) {
	s, built := newTestScheduler(t, newTestStore(t), &fakeRunner{err: errors.New("boom")})
	s.tick()
	s.tick()
	if n := built.Load(); n != 2 {
		t.Errorf("runners built = %d, want 2", n)
	}
}
