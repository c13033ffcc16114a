// Package store persists monthly district records in the districts table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("record not found")

// Store reads and writes district records through sqlx. It works against
// PostgreSQL and SQLite.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New wraps an open database handle.
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "store")}
}

// Filter narrows Find. Empty fields do not constrain the query.
type Filter struct {
	DistrictCodes []string
	FinYears      []string
	// YearFrom and YearTo bound fin_year inclusively when both are set.
	YearFrom  string
	YearTo    string
	StateName string
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back otherwise.
func (s *Store) WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertSQL() string {
	names := make([]string, len(recordColumns))
	updates := make([]string, 0, len(recordColumns))
	isKey := map[string]bool{}
	for _, k := range keyColumns {
		isKey[k] = true
	}
	for i, c := range recordColumns {
		names[i] = ":" + c
		if !isKey[c] {
			updates = append(updates, c+" = excluded."+c)
		}
	}
	updates = append(updates, "updated_at = CURRENT_TIMESTAMP")
	return fmt.Sprintf(
		"INSERT INTO districts (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(recordColumns, ", "),
		strings.Join(names, ", "),
		strings.Join(keyColumns, ", "),
		strings.Join(updates, ", "),
	)
}

// Upsert writes records in one transaction. A record whose
// (district_code, fin_year, month) already exists replaces the stored row.
func (s *Store) Upsert(ctx context.Context, records []models.MonthlyRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	query := upsertSQL()
	written := 0
	err := s.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, rec); err != nil {
				return fmt.Errorf("upsert %s/%s/%s: %w", rec.DistrictCode, rec.FinYear, rec.Month, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("records upserted", "count", written)
	return written, nil
}

// Find returns the records matching f in chronological order.
func (s *Store) Find(ctx context.Context, f Filter) ([]models.MonthlyRecord, error) {
	var where []string
	var args []any

	if len(f.DistrictCodes) > 0 {
		where = append(where, "district_code IN (?)")
		args = append(args, f.DistrictCodes)
	}
	if len(f.FinYears) > 0 {
		where = append(where, "fin_year IN (?)")
		args = append(args, f.FinYears)
	}
	if f.YearFrom != "" && f.YearTo != "" {
		where = append(where, "fin_year BETWEEN ? AND ?")
		args = append(args, f.YearFrom, f.YearTo)
	}
	if f.StateName != "" {
		where = append(where, "state_name = ?")
		args = append(args, f.StateName)
	}

	query := "SELECT " + strings.Join(recordColumns, ", ") + " FROM districts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fin_year, district_code"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	records := []models.MonthlyRecord{}
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	models.SortChronological(records)
	return records, nil
}

// Latest returns the most recent month on record for a district.
func (s *Store) Latest(ctx context.Context, districtCode string) (models.MonthlyRecord, error) {
	var year sql.NullString
	err := s.db.GetContext(ctx, &year,
		s.db.Rebind("SELECT MAX(fin_year) FROM districts WHERE district_code = ?"), districtCode)
	if err != nil {
		return models.MonthlyRecord{}, fmt.Errorf("latest year: %w", err)
	}
	if !year.Valid {
		return models.MonthlyRecord{}, ErrNotFound
	}

	records, err := s.Find(ctx, Filter{DistrictCodes: []string{districtCode}, FinYears: []string{year.String}})
	if err != nil {
		return models.MonthlyRecord{}, err
	}
	if len(records) == 0 {
		return models.MonthlyRecord{}, ErrNotFound
	}
	return records[len(records)-1], nil
}

// DistrictList returns each district once, ordered by name. An empty
// finYear lists districts across all years.
func (s *Store) DistrictList(ctx context.Context, finYear string) ([]models.DistrictRef, error) {
	query := `SELECT district_code, MIN(district_name) AS district_name, MIN(state_name) AS state_name
		FROM districts`
	var args []any
	if finYear != "" {
		query += " WHERE fin_year = ?"
		args = append(args, finYear)
	}
	query += " GROUP BY district_code ORDER BY district_name, district_code"

	refs := []models.DistrictRef{}
	if err := s.db.SelectContext(ctx, &refs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("district list: %w", err)
	}
	return refs, nil
}

// AvailableYears lists the financial years on record, newest first.
func (s *Store) AvailableYears(ctx context.Context) ([]string, error) {
	years := []string{}
	if err := s.db.SelectContext(ctx, &years,
		"SELECT DISTINCT fin_year FROM districts ORDER BY fin_year DESC"); err != nil {
		return nil, fmt.Errorf("available years: %w", err)
	}
	return years, nil
}

// CountYear counts the records held for a financial year.
func (s *Store) CountYear(ctx context.Context, finYear string) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM districts WHERE fin_year = ?"), finYear)
	if err != nil {
		return 0, fmt.Errorf("count year: %w", err)
	}
	return n, nil
}

type syncMark struct {
	LastSyncedAt time.Time `db:"last_synced_at"`
	FinYear      string    `db:"fin_year"`
}

// LatestSyncedAt reports when a financial year was last written by a sync.
// The boolean is false when the year has no records.
func (s *Store) LatestSyncedAt(ctx context.Context, finYear string) (time.Time, bool, error) {
	var mark syncMark
	err := s.db.GetContext(ctx, &mark, s.db.Rebind(
		`SELECT last_synced_at, fin_year FROM districts
		WHERE fin_year = ? AND last_synced_at IS NOT NULL
		ORDER BY last_synced_at DESC LIMIT 1`), finYear)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest sync: %w", err)
	}
	return mark.LastSyncedAt, true, nil
}

// SyncStatus summarizes what the table currently holds.
type SyncStatus struct {
	LastSync        *time.Time `json:"last_sync"`
	LastSyncedYear  *string    `json:"last_synced_year"`
	TotalRecords    int64      `json:"total_records"`
	TotalDistricts  int64      `json:"total_districts"`
	TotalYears      int64      `json:"total_years"`
	DatabaseHealthy bool       `json:"database_healthy"`
}

// SyncStatus reports the latest sync and table totals.
func (s *Store) SyncStatus(ctx context.Context) (SyncStatus, error) {
	var status SyncStatus

	var mark syncMark
	err := s.db.GetContext(ctx, &mark,
		`SELECT last_synced_at, fin_year FROM districts
		WHERE last_synced_at IS NOT NULL
		ORDER BY last_synced_at DESC LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return status, fmt.Errorf("sync status: %w", err)
	default:
		status.LastSync = &mark.LastSyncedAt
		status.LastSyncedYear = &mark.FinYear
	}

	var totals struct {
		Records   int64 `db:"records"`
		Districts int64 `db:"districts"`
		Years     int64 `db:"years"`
	}
	err = s.db.GetContext(ctx, &totals,
		`SELECT COUNT(*) AS records, COUNT(DISTINCT district_code) AS districts,
		COUNT(DISTINCT fin_year) AS years FROM districts`)
	if err != nil {
		return status, fmt.Errorf("sync totals: %w", err)
	}
	status.TotalRecords = totals.Records
	status.TotalDistricts = totals.Districts
	status.TotalYears = totals.Years
	status.DatabaseHealthy = totals.Records > 0
	return status, nil
}

// DeleteAll removes every record and returns how many were deleted.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM districts")
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Warn("all district records deleted", "count", n)
	return n, nil
}
