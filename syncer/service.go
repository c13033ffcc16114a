// Package syncer pulls records from data.gov.in into the store on demand
// and on a schedule.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

// StaleAfter is how old a financial year's last sync may be before an
// incremental sync refreshes it.
const StaleAfter = 24 * time.Hour

// DefaultYearPause separates consecutive years in SyncMultipleYears.
const DefaultYearPause = 2 * time.Second

// Fetcher retrieves raw upstream records.
type Fetcher interface {
	FetchAll(ctx context.Context, finYear string) ([]calc.RawRecord, error)
	FetchDistrict(ctx context.Context, districtCode, finYear string) ([]calc.RawRecord, error)
	FetchAvailableYears(ctx context.Context) ([]string, error)
}

// Repository is the storage the syncer writes to.
type Repository interface {
	Upsert(ctx context.Context, records []models.MonthlyRecord) (int, error)
	CountYear(ctx context.Context, finYear string) (int64, error)
	LatestSyncedAt(ctx context.Context, finYear string) (time.Time, bool, error)
	SyncStatus(ctx context.Context) (store.SyncStatus, error)
}

// Invalidator drops cached responses after new data lands.
type Invalidator interface {
	InvalidateAll(ctx context.Context) int
	InvalidateType(ctx context.Context, typ string) int
}

// Result reports one sync.
type Result struct {
	Success      bool   `json:"success"`
	Synced       int    `json:"synced"`
	FinYear      string `json:"finYear,omitempty"`
	DistrictCode string `json:"district_code,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// MultiResult reports a sync over several years.
type MultiResult struct {
	Success      bool     `json:"success"`
	YearsSynced  int      `json:"years_synced"`
	TotalRecords int      `json:"total_records"`
	Details      []Result `json:"details"`
}

// Service runs syncs. It is safe for concurrent use when its
// collaborators are.
type Service struct {
	fetcher  Fetcher
	repo     Repository
	cache    Invalidator
	recorder RunRecorder
	logger   *slog.Logger

	now       func() time.Time
	yearPause time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithYearPause sets the pause between years in SyncMultipleYears.
func WithYearPause(d time.Duration) Option {
	return func(s *Service) { s.yearPause = d }
}

// WithRecorder sets where runs are recorded. The default keeps the last
// 50 runs in memory.
func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService wires a sync service.
func NewService(fetcher Fetcher, repo Repository, inv Invalidator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetcher:   fetcher,
		repo:      repo,
		cache:     inv,
		recorder:  NewMemoryRecorder(50),
		logger:    logger.With("component", "syncer"),
		now:       time.Now,
		yearPause: DefaultYearPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) normalize(raw []calc.RawRecord) []models.MonthlyRecord {
	now := s.now()
	records := make([]models.MonthlyRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, calc.Normalize(r, now))
	}
	return records
}

func (s *Service) record(ctx context.Context, run Run, started time.Time) {
	run.ID = uuid.NewString()
	run.StartedAt = started
	run.FinishedAt = s.now()
	run.DurationMS = run.FinishedAt.Sub(started).Milliseconds()
	if err := s.recorder.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record sync run", "kind", run.Kind, "error", err)
	}
}

// SyncFinancialYear fetches every record of finYear, stores it and clears
// the response cache.
func (s *Service) SyncFinancialYear(ctx context.Context, finYear string) (Result, error) {
	return s.syncYear(ctx, KindFinancialYear, finYear)
}

func (s *Service) syncYear(ctx context.Context, kind, finYear string) (Result, error) {
	started := s.now()
	run := Run{Kind: kind, FinYear: finYear}
	s.logger.Info("starting sync", "fin_year", finYear)

	raw, err := s.fetcher.FetchAll(ctx, finYear)
	if err != nil {
		s.logger.Error("failed to fetch data from API", "fin_year", finYear, "error", err)
		run.Error = err.Error()
		s.record(ctx, run, started)
		return Result{Error: err.Error(), FinYear: finYear}, err
	}
	run.Fetched = len(raw)

	if len(raw) == 0 {
		s.logger.Warn("no data available", "fin_year", finYear)
		run.Success = true
		s.record(ctx, run, started)
		return Result{Success: true, FinYear: finYear, Message: "No new data available"}, nil
	}

	n, err := s.repo.Upsert(ctx, s.normalize(raw))
	if err != nil {
		s.logger.Error("sync failed", "fin_year", finYear, "error", err)
		run.Error = err.Error()
		s.record(ctx, run, started)
		return Result{Error: err.Error(), FinYear: finYear}, err
	}

	removed := s.cache.InvalidateAll(ctx)
	s.logger.Info("sync complete", "fin_year", finYear, "synced", n, "cache_entries_removed", removed)

	run.Synced, run.Success = n, true
	s.record(ctx, run, started)
	return Result{Success: true, Synced: n, FinYear: finYear}, nil
}

// SyncLatest syncs the newest financial year the API publishes.
func (s *Service) SyncLatest(ctx context.Context) (Result, error) {
	years, err := s.fetcher.FetchAvailableYears(ctx)
	if err != nil {
		s.logger.Warn("no financial years available from API", "error", err)
		s.record(ctx, Run{Kind: KindLatest, Error: err.Error()}, s.now())
		return Result{Error: "No financial years available"}, err
	}
	return s.syncYear(ctx, KindLatest, years[0])
}

// SyncMultipleYears syncs each year in turn, pausing between them. A failed
// year does not stop the rest; cancellation does.
func (s *Service) SyncMultipleYears(ctx context.Context, years []string) (MultiResult, error) {
	s.logger.Info("starting multi-year sync", "years", strings.Join(years, ", "))

	out := MultiResult{Success: true, Details: make([]Result, 0, len(years))}
	for i, year := range years {
		if i > 0 && s.yearPause > 0 {
			select {
			case <-ctx.Done():
				out.Success = false
				return out, ctx.Err()
			case <-time.After(s.yearPause):
			}
		}
		res, err := s.SyncFinancialYear(ctx, year)
		out.Details = append(out.Details, res)
		out.TotalRecords += res.Synced
		if err != nil {
			out.Success = false
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			continue
		}
		out.YearsSynced++
	}
	return out, nil
}

// SyncDistrict refreshes one district for finYear and clears only the
// district cache entries.
func (s *Service) SyncDistrict(ctx context.Context, districtCode, finYear string) (Result, error) {
	started := s.now()
	run := Run{Kind: KindDistrict, FinYear: finYear, DistrictCode: districtCode}
	s.logger.Info("starting district sync", "district_code", districtCode, "fin_year", finYear)

	raw, err := s.fetcher.FetchDistrict(ctx, districtCode, finYear)
	if err != nil {
		s.logger.Error("failed to fetch district data", "district_code", districtCode, "error", err)
		run.Error = err.Error()
		s.record(ctx, run, started)
		return Result{Error: err.Error(), DistrictCode: districtCode, FinYear: finYear}, err
	}
	run.Fetched = len(raw)

	if len(raw) == 0 {
		run.Success = true
		s.record(ctx, run, started)
		return Result{Success: true, DistrictCode: districtCode, FinYear: finYear, Message: "No data available"}, nil
	}

	n, err := s.repo.Upsert(ctx, s.normalize(raw))
	if err != nil {
		run.Error = err.Error()
		s.record(ctx, run, started)
		return Result{Error: err.Error(), DistrictCode: districtCode, FinYear: finYear}, err
	}
	s.cache.InvalidateType(ctx, cache.TypeDistrict)
	s.logger.Info("district sync complete", "district_code", districtCode, "synced", n)

	run.Synced, run.Success = n, true
	s.record(ctx, run, started)
	return Result{Success: true, Synced: n, DistrictCode: districtCode, FinYear: finYear}, nil
}

// NeedsSync reports whether finYear has no data or was last synced more
// than StaleAfter ago. Lookup failures count as needing a sync.
func (s *Service) NeedsSync(ctx context.Context, finYear string) bool {
	count, err := s.repo.CountYear(ctx, finYear)
	if err != nil {
		s.logger.Error("failed to check sync status", "fin_year", finYear, "error", err)
		return true
	}
	if count == 0 {
		return true
	}
	last, ok, err := s.repo.LatestSyncedAt(ctx, finYear)
	if err != nil {
		s.logger.Error("failed to check sync status", "fin_year", finYear, "error", err)
		return true
	}
	if !ok {
		return true
	}
	return s.now().Sub(last) > StaleAfter
}

// IncrementalSync syncs finYear only when NeedsSync says so.
func (s *Service) IncrementalSync(ctx context.Context, finYear string) (Result, error) {
	if !s.NeedsSync(ctx, finYear) {
		s.logger.Info("data is up to date, skipping sync", "fin_year", finYear)
		s.record(ctx, Run{Kind: KindIncremental, FinYear: finYear, Skipped: true, Success: true}, s.now())
		return Result{Success: true, FinYear: finYear, Message: "Data is up to date", Skipped: true}, nil
	}
	return s.syncYear(ctx, KindIncremental, finYear)
}

// Status describes the stored data and the latest runs.
type Status struct {
	store.SyncStatus
	RecentRuns []Run `json:"recent_runs"`
}

// Status reports table totals and up to runLimit recent runs.
func (s *Service) Status(ctx context.Context, runLimit int) (Status, error) {
	st, err := s.repo.SyncStatus(ctx)
	if err != nil {
		return Status{}, err
	}
	runs, err := s.recorder.Recent(ctx, runLimit)
	if err != nil {
		s.logger.Warn("failed to list sync runs", "error", err)
		runs = []Run{}
	}
	return Status{SyncStatus: st, RecentRuns: runs}, nil
}
