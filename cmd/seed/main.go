// Command seed fills the districts table with synthetic Uttar Pradesh data
// for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/doshiMiraj/MGNREGA-Dashboard/config"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

const batchSize = 500

func main() {
	var (
		reset   = flag.Bool("reset", true, "delete existing records before seeding")
		csvPath = flag.String("csv", "", "also write the generated records to this CSV file")
		years   = flag.String("years", strings.Join(defaultYears, ","), "comma separated financial years")
		seed    = flag.Uint64("seed", 0, "random seed; 0 picks one from the clock")
	)
	flag.Parse()

	logger := config.NewLogger(os.Stdout, "info", "text").With("component", "seed")
	if err := run(logger, *reset, *csvPath, strings.Split(*years, ","), *seed); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database seeding completed")
}

func run(logger *slog.Logger, reset bool, csvPath string, years []string, seed uint64) error {
	if _, err := config.LoadEnv(logger); err != nil {
		logger.Warn("error loading .env file", "error", err)
	}
	dbCfg, err := config.LoadDB()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := config.InitDBWithRetry(ctx, dbCfg, 3, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := store.New(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	records := newGenerator(seed, time.Now().UTC()).generate(years)
	logger.Info("generated seed data",
		"districts", len(upDistricts), "years", len(years), "records", len(records), "seed", seed)

	if csvPath != "" {
		if err := writeCSV(csvPath, records); err != nil {
			return err
		}
		logger.Info("wrote CSV", "path", csvPath)
	}

	if reset {
		if _, err := repo.DeleteAll(ctx); err != nil {
			return err
		}
	}

	inserted, err := insert(ctx, repo, records, logger)
	if err != nil {
		return err
	}
	logger.Info("all records inserted", "count", inserted)

	return verify(ctx, repo, len(records), logger)
}

func writeCSV(path string, records []models.MonthlyRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// insert upserts records in batches of batchSize.
func insert(ctx context.Context, repo *store.Store, records []models.MonthlyRecord, logger *slog.Logger) (int, error) {
	inserted := 0
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		n, err := repo.Upsert(ctx, records[start:end])
		if err != nil {
			return inserted, fmt.Errorf("insert batch at %d: %w", start, err)
		}
		inserted += n
		logger.Debug("batch inserted", "progress", fmt.Sprintf("%d/%d", inserted, len(records)))
	}
	return inserted, nil
}

// verify checks the table totals and prints a sample record.
func verify(ctx context.Context, repo *store.Store, want int, logger *slog.Logger) error {
	st, err := repo.SyncStatus(ctx)
	if err != nil {
		return err
	}
	logger.Info("verified data",
		"total_records", st.TotalRecords, "districts", st.TotalDistricts, "financial_years", st.TotalYears)
	if st.TotalRecords < int64(want) {
		return errors.New("fewer records stored than generated")
	}

	sample, err := repo.Find(ctx, store.Filter{DistrictCodes: []string{"3126"}, FinYears: []string{"2024-2025"}})
	if err != nil || len(sample) == 0 {
		return err
	}
	p := message.NewPrinter(language.English)
	for _, r := range sample {
		if r.Month != "Feb" {
			continue
		}
		logger.Info("sample",
			"district", r.DistrictName,
			"year", r.FinYear,
			"month", r.Month,
			"households_worked", p.Sprintf("%d", r.HouseholdsWorked),
			"total_expenditure_lakhs", p.Sprintf("%.2f", r.TotalExp),
			"average_wage", p.Sprintf("%.2f/day", r.AverageWageRate))
	}
	return nil
}
