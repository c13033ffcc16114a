package store

import (
	"context"
	"fmt"
	"strings"
)

// recordColumns lists the columns written and read for a MonthlyRecord.
var recordColumns = []string{
	"fin_year", "month", "state_code", "state_name", "district_code", "district_name",
	"approved_labour_budget", "average_wage_rate_per_day_per_person",
	"average_days_of_employment_provided_per_household", "differently_abled_persons_worked",
	"sc_persondays", "sc_workers_against_active_workers", "st_persondays",
	"st_workers_against_active_workers", "women_persondays", "persondays_of_central_liability_so_far",
	"number_of_completed_works", "number_of_ongoing_works", "number_of_gps_with_nil_exp",
	"total_no_of_works_takenup", "total_exp", "total_adm_expenditure", "wages",
	"material_and_skilled_wages", "total_households_worked", "total_individuals_worked",
	"total_no_of_active_job_cards", "total_no_of_active_workers",
	"total_no_of_hhs_completed_100_days_of_wage_employment", "total_no_of_jobcards_issued",
	"total_no_of_workers", "percent_of_category_b_works",
	"percent_of_expenditure_on_agriculture_allied_works", "percent_of_nrm_expenditure",
	"percentage_payments_gererated_within_15_days", "remarks", "last_synced_at",
}

// keyColumns form the natural key of a record.
var keyColumns = []string{"district_code", "fin_year", "month"}

var columnTypes = map[string]string{
	"fin_year":      "VARCHAR(20) NOT NULL",
	"month":         "VARCHAR(10) NOT NULL",
	"state_code":    "VARCHAR(10)",
	"state_name":    "VARCHAR(100)",
	"district_code": "VARCHAR(20) NOT NULL",
	"district_name": "VARCHAR(100) NOT NULL",
	"remarks":       "VARCHAR(255) DEFAULT 'NA'",
}

var decimalColumns = map[string]bool{
	"average_wage_rate_per_day_per_person":               true,
	"average_days_of_employment_provided_per_household":  true,
	"total_exp":                                          true,
	"total_adm_expenditure":                              true,
	"wages":                                              true,
	"material_and_skilled_wages":                         true,
	"percent_of_category_b_works":                        true,
	"percent_of_expenditure_on_agriculture_allied_works": true,
	"percent_of_nrm_expenditure":                         true,
	"percentage_payments_gererated_within_15_days":       true,
}

type dialect struct {
	idColumn  string
	timestamp string
}

var dialects = map[string]dialect{
	"postgres": {idColumn: "id BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"},
	"sqlite3":  {idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "TIMESTAMP"},
}

func createTableSQL(d dialect) string {
	cols := []string{d.idColumn}
	for _, c := range recordColumns {
		switch {
		case columnTypes[c] != "":
			cols = append(cols, c+" "+columnTypes[c])
		case decimalColumns[c]:
			cols = append(cols, c+" NUMERIC(15,2) DEFAULT 0")
		case c == "last_synced_at":
			cols = append(cols, c+" "+d.timestamp)
		default:
			cols = append(cols, c+" BIGINT DEFAULT 0")
		}
	}
	cols = append(cols,
		"created_at "+d.timestamp+" NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"updated_at "+d.timestamp+" NOT NULL DEFAULT CURRENT_TIMESTAMP",
	)
	return "CREATE TABLE IF NOT EXISTS districts (\n\t" + strings.Join(cols, ",\n\t") + "\n)"
}

var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_district_month_year ON districts (district_code, fin_year, month)`,
	`CREATE INDEX IF NOT EXISTS idx_districts_state_name ON districts (state_name)`,
	`CREATE INDEX IF NOT EXISTS idx_districts_district_name ON districts (district_name)`,
	`CREATE INDEX IF NOT EXISTS idx_districts_fin_year ON districts (fin_year)`,
	`CREATE INDEX IF NOT EXISTS idx_districts_last_synced_at ON districts (last_synced_at)`,
}

// Migrate creates the districts table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	d, ok := dialects[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported driver %q", s.db.DriverName())
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(d)); err != nil {
		return fmt.Errorf("failed to create districts table: %w", err)
	}
	for _, stmt := range indexStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	s.logger.Info("schema ready", "driver", s.db.DriverName())
	return nil
}
