package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the job daily at 02:00.
const DefaultSchedule = "0 2 * * *"

// ErrAlreadyRunning is returned when a run is requested while one is in
// progress.
var ErrAlreadyRunning = errors.New("sync job already running")

// LatestSyncer is what the job runs.
type LatestSyncer interface {
	SyncLatest(ctx context.Context) (Result, error)
}

// Job runs a sync of the latest financial year on a cron schedule. At most
// one run is in flight at a time.
type Job struct {
	syncer   LatestSyncer
	spec     string
	schedule cron.Schedule
	enabled  bool
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJob parses spec, a standard five-field cron expression.
func NewJob(s LatestSyncer, spec string, enabled bool, logger *slog.Logger) (*Job, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		syncer:   s,
		spec:     spec,
		schedule: schedule,
		enabled:  enabled,
		logger:   logger.With("component", "sync_job"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins scheduling. It does nothing when the job is disabled.
func (j *Job) Start() {
	if !j.enabled {
		j.logger.Info("sync job is disabled")
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return
	}

	j.cron = cron.New()
	j.cron.Schedule(j.schedule, cron.FuncJob(func() {
		if _, err := j.Execute(j.ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			j.logger.Error("scheduled sync failed", "error", err)
		}
	}))
	j.cron.Start()
	j.logger.Info("sync job scheduler started", "schedule", j.spec, "next_run", j.NextRun())
}

// Stop halts scheduling, cancels a run in progress and waits for it.
func (j *Job) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	j.cancel()
	if c != nil {
		<-c.Stop().Done()
		j.logger.Info("sync job scheduler stopped")
	}
	j.wg.Wait()
}

// Execute runs a sync now and waits for it.
func (j *Job) Execute(ctx context.Context) (Result, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("sync job already running, skipping this execution")
		return Result{}, ErrAlreadyRunning
	}
	defer j.running.Store(false)
	return j.run(ctx)
}

// RunManually is Execute under the job's own context.
func (j *Job) RunManually() (Result, error) {
	j.logger.Info("running sync job manually")
	return j.Execute(j.ctx)
}

// Trigger starts a run in the background.
func (j *Job) Trigger() error {
	if !j.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.running.Store(false)
		if _, err := j.run(j.ctx); err != nil {
			j.logger.Error("triggered sync failed", "error", err)
		}
	}()
	return nil
}

func (j *Job) run(ctx context.Context) (Result, error) {
	j.logger.Info("starting scheduled sync job")
	start := j.now()
	res, err := j.syncer.SyncLatest(ctx)
	duration := j.now().Sub(start)
	if err != nil {
		j.logger.Error("sync failed", "error", err, "duration", duration)
		return res, err
	}
	j.logger.Info("sync completed successfully",
		"duration", duration, "records_synced", res.Synced, "fin_year", res.FinYear)
	return res, nil
}

// Running reports whether a run is in progress.
func (j *Job) Running() bool { return j.running.Load() }

// NextRun is the next scheduled time after now.
func (j *Job) NextRun() time.Time {
	return j.schedule.Next(j.now())
}

// JobStatus describes the scheduler.
type JobStatus struct {
	Enabled   bool      `json:"enabled"`
	IsRunning bool      `json:"isRunning"`
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"nextRun"`
}

// Status reports the current scheduler state.
func (j *Job) Status() JobStatus {
	return JobStatus{
		Enabled:   j.enabled,
		IsRunning: j.Running(),
		Schedule:  j.spec,
		NextRun:   j.NextRun(),
	}
}
