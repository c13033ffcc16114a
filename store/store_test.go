package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(db, nil)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func record(code, name, year, month string, households int64, synced time.Time) models.MonthlyRecord {
	return models.MonthlyRecord{
		FinYear:                     year,
		Month:                       month,
		StateCode:                   "31",
		StateName:                   "UTTAR PRADESH",
		DistrictCode:                code,
		DistrictName:                name,
		HouseholdsWorked:            households,
		CentralLiabilityPersondays:  households * 40,
		AverageWageRate:             231.5,
		TotalExp:                    1234.56,
		Wages:                       900.1,
		PercentPaymentsWithin15Days: 92.25,
		Remarks:                     "NA",
		LastSyncedAt:                synced,
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestUpsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	synced := time.Date(2025, 1, 10, 2, 0, 0, 0, time.UTC)

	n, err := s.Upsert(ctx, []models.MonthlyRecord{
		record("3126", "LUCKNOW", "2024-2025", "Jan", 900, synced),
		record("3126", "LUCKNOW", "2024-2025", "Apr", 100, synced),
		record("3101", "SAHARANPUR", "2024-2025", "Apr", 300, synced),
		record("3126", "LUCKNOW", "2023-2024", "Mar", 50, synced),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.Find(ctx, store.Filter{DistrictCodes: []string{"3126"}, FinYears: []string{"2024-2025"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Apr", got[0].Month)
	assert.Equal(t, "Jan", got[1].Month)
	assert.Equal(t, int64(900), got[1].HouseholdsWorked)
	assert.Equal(t, 1234.56, got[1].TotalExp)
	assert.Equal(t, 92.25, got[1].PercentPaymentsWithin15Days)
	assert.True(t, synced.Equal(got[1].LastSyncedAt))

	all, err := s.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "2023-2024", all[0].FinYear)

	state, err := s.Find(ctx, store.Filter{StateName: "UTTAR PRADESH", DistrictCodes: []string{"3101", "3126"}, FinYears: []string{"2024-2025"}})
	require.NoError(t, err)
	assert.Len(t, state, 3)
}

func TestUpsertOverwritesOnNaturalKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	_, err := s.Upsert(ctx, []models.MonthlyRecord{record("3126", "LUCKNOW", "2024-2025", "May", 100, first)})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []models.MonthlyRecord{record("3126", "LUCKNOW", "2024-2025", "May", 250, second)})
	require.NoError(t, err)

	got, err := s.Find(ctx, store.Filter{DistrictCodes: []string{"3126"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(250), got[0].HouseholdsWorked)
	assert.True(t, second.Equal(got[0].LastSyncedAt))
}

func TestFindYearRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	_, err := s.Upsert(ctx, []models.MonthlyRecord{
		record("3126", "LUCKNOW", "2022-2023", "Apr", 1, now),
		record("3126", "LUCKNOW", "2023-2024", "Apr", 2, now),
		record("3126", "LUCKNOW", "2024-2025", "Apr", 3, now),
	})
	require.NoError(t, err)

	got, err := s.Find(ctx, store.Filter{DistrictCodes: []string{"3126"}, YearFrom: "2023-2024", YearTo: "2024-2025"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2023-2024", got[0].FinYear)
	assert.Equal(t, "2024-2025", got[1].FinYear)
}

func TestLatestUsesFiscalOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	_, err := s.Upsert(ctx, []models.MonthlyRecord{
		record("3126", "LUCKNOW", "2023-2024", "Mar", 1, now),
		record("3126", "LUCKNOW", "2024-2025", "Dec", 2, now),
		record("3126", "LUCKNOW", "2024-2025", "Feb", 3, now),
		record("3126", "LUCKNOW", "2024-2025", "Sep", 4, now),
	})
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "3126")
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", latest.FinYear)
	assert.Equal(t, "Feb", latest.Month)

	_, err = s.Latest(ctx, "9999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDistrictListAndYears(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	_, err := s.Upsert(ctx, []models.MonthlyRecord{
		record("3126", "LUCKNOW", "2024-2025", "Apr", 1, now),
		record("3126", "LUCKNOW", "2024-2025", "May", 1, now),
		record("3115", "AGRA", "2024-2025", "Apr", 1, now),
		record("3166", "VARANASI", "2023-2024", "Apr", 1, now),
	})
	require.NoError(t, err)

	list, err := s.DistrictList(ctx, "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, []models.DistrictRef{
		{Code: "3115", Name: "AGRA", State: "UTTAR PRADESH"},
		{Code: "3126", Name: "LUCKNOW", State: "UTTAR PRADESH"},
	}, list)

	everything, err := s.DistrictList(ctx, "")
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	years, err := s.AvailableYears(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-2025", "2023-2024"}, years)

	count, err := s.CountYear(ctx, "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSyncStatusAndLatestSyncedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.SyncStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty.LastSync)
	assert.False(t, empty.DatabaseHealthy)

	_, ok, err := s.LatestSyncedAt(ctx, "2024-2025")
	require.NoError(t, err)
	assert.False(t, ok)

	older := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(6 * time.Hour)
	_, err = s.Upsert(ctx, []models.MonthlyRecord{
		record("3126", "LUCKNOW", "2023-2024", "Apr", 1, older),
		record("3126", "LUCKNOW", "2024-2025", "Apr", 1, newer),
		record("3115", "AGRA", "2024-2025", "Apr", 1, older),
	})
	require.NoError(t, err)

	status, err := s.SyncStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastSync)
	assert.True(t, newer.Equal(*status.LastSync))
	assert.Equal(t, "2024-2025", *status.LastSyncedYear)
	assert.Equal(t, int64(3), status.TotalRecords)
	assert.Equal(t, int64(2), status.TotalDistricts)
	assert.Equal(t, int64(2), status.TotalYears)
	assert.True(t, status.DatabaseHealthy)

	at, ok, err := s.LatestSyncedAt(ctx, "2023-2024")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, older.Equal(at))
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Upsert(ctx, []models.MonthlyRecord{record("3126", "LUCKNOW", "2024-2025", "Apr", 1, time.Now())})
	require.NoError(t, err)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.Find(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpsertEmpty(t *testing.T) {
	n, err := newTestStore(t).Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
