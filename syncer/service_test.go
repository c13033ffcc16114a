package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu       sync.Mutex
	byYear   map[string][]calc.RawRecord
	err      error
	years    []string
	yearsErr error
	fetched  []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, finYear string) ([]calc.RawRecord, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, finYear)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byYear[finYear], nil
}

func (f *fakeFetcher) fetchedSnapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *fakeFetcher) FetchDistrict(ctx context.Context, code, finYear string) ([]calc.RawRecord, error) {
	all, err := f.FetchAll(ctx, finYear)
	if err != nil {
		return nil, err
	}
	var out []calc.RawRecord
	for _, r := range all {
		if r.Get("district_code") == code {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFetcher) FetchAvailableYears(context.Context) ([]string, error) {
	return f.years, f.yearsErr
}

type fakeRepo struct {
	upserted  []models.MonthlyRecord
	upsertErr error
	count     int64
	countErr  error
	lastSync  time.Time
	hasSync   bool
}

func (r *fakeRepo) Upsert(_ context.Context, recs []models.MonthlyRecord) (int, error) {
	if r.upsertErr != nil {
		return 0, r.upsertErr
	}
	r.upserted = append(r.upserted, recs...)
	return len(recs), nil
}

func (r *fakeRepo) CountYear(context.Context, string) (int64, error) { return r.count, r.countErr }

func (r *fakeRepo) LatestSyncedAt(context.Context, string) (time.Time, bool, error) {
	return r.lastSync, r.hasSync, nil
}

func (r *fakeRepo) SyncStatus(context.Context) (store.SyncStatus, error) {
	return store.SyncStatus{TotalRecords: int64(len(r.upserted))}, nil
}

type fakeInvalidator struct {
	all   int
	types []string
}

func (f *fakeInvalidator) InvalidateAll(context.Context) int { f.all++; return 0 }

func (f *fakeInvalidator) InvalidateType(_ context.Context, typ string) int {
	f.types = append(f.types, typ)
	return 0
}

func raw(code, year, month, households string) calc.RawRecord {
	return calc.RawRecord{
		"fin_year":                year,
		"month":                   month,
		"district_code":           code,
		"district_name":           "D" + code,
		"state_name":              "UTTAR PRADESH",
		"Total_Households_Worked": households,
	}
}

func newTestService(f *fakeFetcher, r *fakeRepo, inv *fakeInvalidator, rec RunRecorder) *Service {
	return NewService(f, r, inv, nil, WithClock(func() time.Time { return fixedNow }), WithYearPause(0), WithRecorder(rec))
}

func TestSyncFinancialYear(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{byYear: map[string][]calc.RawRecord{
		"2024-2025": {raw("3126", "2024-2025", "Apr", "1,200"), raw("3101", "2024-2025", "Apr", "300")},
	}}
	repo := &fakeRepo{}
	inv := &fakeInvalidator{}
	rec := NewMemoryRecorder(10)
	s := newTestService(f, repo, inv, rec)

	res, err := s.SyncFinancialYear(ctx, "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Synced: 2, FinYear: "2024-2025"}, res)
	require.Len(t, repo.upserted, 2)
	assert.Equal(t, int64(1200), repo.upserted[0].HouseholdsWorked)
	assert.Equal(t, fixedNow, repo.upserted[0].LastSyncedAt)
	assert.Equal(t, "NA", repo.upserted[0].Remarks)
	assert.Equal(t, 1, inv.all)

	runs, err := rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, KindFinancialYear, runs[0].Kind)
	assert.True(t, runs[0].Success)
	assert.Equal(t, 2, runs[0].Fetched)
	assert.NotEmpty(t, runs[0].ID)
}

func TestSyncFinancialYearEmptyAndFailing(t *testing.T) {
	ctx := context.Background()

	t.Run("no data", func(t *testing.T) {
		inv := &fakeInvalidator{}
		s := newTestService(&fakeFetcher{}, &fakeRepo{}, inv, NewMemoryRecorder(10))
		res, err := s.SyncFinancialYear(ctx, "2030-2031")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Zero(t, res.Synced)
		assert.Equal(t, "No new data available", res.Message)
		assert.Zero(t, inv.all)
	})

	t.Run("fetch error", func(t *testing.T) {
		boom := errors.New("upstream down")
		rec := NewMemoryRecorder(10)
		s := newTestService(&fakeFetcher{err: boom}, &fakeRepo{}, &fakeInvalidator{}, rec)
		res, err := s.SyncFinancialYear(ctx, "2024-2025")
		assert.ErrorIs(t, err, boom)
		assert.False(t, res.Success)
		assert.Equal(t, "upstream down", res.Error)

		runs, _ := rec.Recent(ctx, 1)
		require.Len(t, runs, 1)
		assert.False(t, runs[0].Success)
	})

	t.Run("store error leaves cache alone", func(t *testing.T) {
		f := &fakeFetcher{byYear: map[string][]calc.RawRecord{"2024-2025": {raw("1", "2024-2025", "Apr", "1")}}}
		inv := &fakeInvalidator{}
		s := newTestService(f, &fakeRepo{upsertErr: errors.New("disk full")}, inv, NewMemoryRecorder(10))
		_, err := s.SyncFinancialYear(ctx, "2024-2025")
		assert.Error(t, err)
		assert.Zero(t, inv.all)
	})
}

func TestSyncLatestPicksNewestYear(t *testing.T) {
	f := &fakeFetcher{
		years:  []string{"2024-2025", "2023-2024"},
		byYear: map[string][]calc.RawRecord{"2024-2025": {raw("1", "2024-2025", "May", "5")}},
	}
	s := newTestService(f, &fakeRepo{}, &fakeInvalidator{}, NewMemoryRecorder(10))

	res, err := s.SyncLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", res.FinYear)
	assert.Equal(t, []string{"2024-2025"}, f.fetched)
}

func TestSyncLatestWithoutYears(t *testing.T) {
	s := newTestService(&fakeFetcher{yearsErr: errors.New("no years")}, &fakeRepo{}, &fakeInvalidator{}, NewMemoryRecorder(10))
	res, err := s.SyncLatest(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "No financial years available", res.Error)
}

func TestSyncMultipleYears(t *testing.T) {
	f := &fakeFetcher{byYear: map[string][]calc.RawRecord{
		"2023-2024": {raw("1", "2023-2024", "Apr", "1"), raw("2", "2023-2024", "Apr", "1")},
		"2024-2025": {raw("1", "2024-2025", "Apr", "1")},
	}}
	s := newTestService(f, &fakeRepo{}, &fakeInvalidator{}, NewMemoryRecorder(10))

	out, err := s.SyncMultipleYears(context.Background(), []string{"2023-2024", "2024-2025"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.YearsSynced)
	assert.Equal(t, 3, out.TotalRecords)
	assert.Len(t, out.Details, 2)
}

func TestSyncMultipleYearsStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{byYear: map[string][]calc.RawRecord{"2023-2024": {raw("1", "2023-2024", "Apr", "1")}}}
	s := NewService(f, &fakeRepo{}, &fakeInvalidator{}, nil, WithYearPause(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for len(f.fetchedSnapshot()) == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	out, err := s.SyncMultipleYears(ctx, []string{"2023-2024", "2024-2025"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Success)
	assert.Len(t, out.Details, 1)
}

func TestSyncDistrictInvalidatesDistrictCache(t *testing.T) {
	f := &fakeFetcher{byYear: map[string][]calc.RawRecord{
		"2024-2025": {raw("3126", "2024-2025", "Apr", "1"), raw("3101", "2024-2025", "Apr", "1")},
	}}
	inv := &fakeInvalidator{}
	s := newTestService(f, &fakeRepo{}, inv, NewMemoryRecorder(10))

	res, err := s.SyncDistrict(context.Background(), "3126", "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, "3126", res.DistrictCode)
	assert.Equal(t, []string{cache.TypeDistrict}, inv.types)
	assert.Zero(t, inv.all)

	res, err = s.SyncDistrict(context.Background(), "9999", "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, "No data available", res.Message)
}

func TestNeedsSync(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		repo *fakeRepo
		want bool
	}{
		{"no rows", &fakeRepo{count: 0}, true},
		{"lookup error", &fakeRepo{countErr: errors.New("db down")}, true},
		{"no timestamp", &fakeRepo{count: 5}, true},
		{"fresh", &fakeRepo{count: 5, hasSync: true, lastSync: fixedNow.Add(-23 * time.Hour)}, false},
		{"exactly a day", &fakeRepo{count: 5, hasSync: true, lastSync: fixedNow.Add(-24 * time.Hour)}, false},
		{"stale", &fakeRepo{count: 5, hasSync: true, lastSync: fixedNow.Add(-25 * time.Hour)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(&fakeFetcher{}, tc.repo, &fakeInvalidator{}, NewMemoryRecorder(10))
			assert.Equal(t, tc.want, s.NeedsSync(ctx, "2024-2025"))
		})
	}
}

func TestIncrementalSync(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{byYear: map[string][]calc.RawRecord{"2024-2025": {raw("1", "2024-2025", "Apr", "1")}}}

	fresh := &fakeRepo{count: 1, hasSync: true, lastSync: fixedNow.Add(-time.Hour)}
	res, err := newTestService(f, fresh, &fakeInvalidator{}, NewMemoryRecorder(10)).IncrementalSync(ctx, "2024-2025")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "Data is up to date", res.Message)
	assert.Empty(t, f.fetched)

	stale := &fakeRepo{count: 1, hasSync: true, lastSync: fixedNow.Add(-48 * time.Hour)}
	res, err = newTestService(f, stale, &fakeInvalidator{}, NewMemoryRecorder(10)).IncrementalSync(ctx, "2024-2025")
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Synced)
}

func TestStatusIncludesRecentRuns(t *testing.T) {
	ctx := context.Background()
	rec := NewMemoryRecorder(2)
	for _, kind := range []string{KindLatest, KindDistrict, KindIncremental} {
		require.NoError(t, rec.Record(ctx, Run{Kind: kind}))
	}
	s := newTestService(&fakeFetcher{}, &fakeRepo{}, &fakeInvalidator{}, rec)

	st, err := s.Status(ctx, 10)
	require.NoError(t, err)
	require.Len(t, st.RecentRuns, 2)
	assert.Equal(t, KindIncremental, st.RecentRuns[0].Kind)
	assert.Equal(t, KindDistrict, st.RecentRuns[1].Kind)
}
