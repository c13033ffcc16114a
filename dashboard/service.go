// Package dashboard turns stored monthly records into the report payloads
// served by the API: district and state statistics, comparisons, rankings
// and historical trends.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

var (
	// ErrNotFound means the requested scope holds no records.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the request parameters cannot be served.
	ErrInvalidInput = errors.New("invalid input")
)

// Error carries a client-facing message and one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func notFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }
func invalidInput(msg string) error { return &Error{Kind: ErrInvalidInput, Message: msg} }

// Repository is the read side of the record store.
type Repository interface {
	Find(ctx context.Context, f store.Filter) ([]models.MonthlyRecord, error)
	Latest(ctx context.Context, districtCode string) (models.MonthlyRecord, error)
	DistrictList(ctx context.Context, finYear string) ([]models.DistrictRef, error)
	AvailableYears(ctx context.Context) ([]string, error)
}

// Service builds report payloads for one state.
type Service struct {
	repo    Repository
	scoring calc.Config
	state   string
	logger  *slog.Logger
}

// New returns a Service scoring with scoring and scoped to state.
func New(repo Repository, scoring calc.Config, state string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, scoring: scoring, state: state, logger: logger.With("component", "dashboard")}
}

// State is the state the service reports on.
func (s *Service) State() string { return s.state }

// Records returns every record of finYear ordered by district name.
func (s *Service) Records(ctx context.Context, finYear string) ([]models.MonthlyRecord, error) {
	records, err := s.repo.Find(ctx, store.Filter{FinYears: []string{finYear}})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DistrictName < records[j].DistrictName
	})
	return records, nil
}

// DistrictRecords returns one district's records for finYear in
// chronological order.
func (s *Service) DistrictRecords(ctx context.Context, districtCode, finYear string) ([]models.MonthlyRecord, error) {
	return s.repo.Find(ctx, store.Filter{DistrictCodes: []string{districtCode}, FinYears: []string{finYear}})
}

// Latest returns the most recent record of a district.
func (s *Service) Latest(ctx context.Context, districtCode string) (models.MonthlyRecord, error) {
	rec, err := s.repo.Latest(ctx, districtCode)
	if errors.Is(err, store.ErrNotFound) {
		return rec, notFound("District not found")
	}
	return rec, err
}

// DistrictList lists the districts on record, optionally for one year,
// with their display names filled in.
func (s *Service) DistrictList(ctx context.Context, finYear string) ([]models.DistrictRef, error) {
	refs, err := s.repo.DistrictList(ctx, finYear)
	if err != nil {
		return nil, err
	}
	title := cases.Title(language.English)
	for i := range refs {
		refs[i].DisplayName = title.String(strings.ToLower(refs[i].Name))
	}
	return refs, nil
}

// AvailableYears lists financial years on record, newest first.
func (s *Service) AvailableYears(ctx context.Context) ([]string, error) {
	return s.repo.AvailableYears(ctx)
}

// districtGroup is one district's records in chronological order.
type districtGroup struct {
	code    string
	name    string
	records []models.MonthlyRecord
}

func (g districtGroup) latest() models.MonthlyRecord { return g.records[len(g.records)-1] }

// groupByDistrict splits chronologically ordered records per district,
// returning groups ordered by district code.
func groupByDistrict(records []models.MonthlyRecord) []districtGroup {
	idx := map[string]int{}
	var groups []districtGroup
	for _, r := range records {
		i, ok := idx[r.DistrictCode]
		if !ok {
			i = len(groups)
			idx[r.DistrictCode] = i
			groups = append(groups, districtGroup{code: r.DistrictCode, name: r.DistrictName})
		}
		groups[i].records = append(groups[i].records, r)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].code < groups[j].code })
	return groups
}

// yearGroups splits chronologically ordered records per financial year.
func yearGroups(records []models.MonthlyRecord) ([]string, map[string][]models.MonthlyRecord) {
	byYear := map[string][]models.MonthlyRecord{}
	var years []string
	for _, r := range records {
		if _, ok := byYear[r.FinYear]; !ok {
			years = append(years, r.FinYear)
		}
		byYear[r.FinYear] = append(byYear[r.FinYear], r)
	}
	sort.Strings(years)
	return years, byYear
}

func (s *Service) rangeFilter(f store.Filter, finYear, startYear, endYear string) store.Filter {
	switch {
	case finYear != "":
		f.FinYears = []string{finYear}
	case startYear != "" && endYear != "":
		f.YearFrom, f.YearTo = startYear, endYear
	}
	return f
}

func r1(v float64) float64 { return utils.Round(v, 1) }
func r2(v float64) float64 { return utils.Round(v, 2) }

func r2p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := r2(*v)
	return &x
}

func roundScore(p calc.PerformanceScore) calc.PerformanceScore {
	p.Employment = r2(p.Employment)
	p.WageRate = r2(p.WageRate)
	p.PaymentTimeliness = r2(p.PaymentTimeliness)
	p.WorkCompletion = r2(p.WorkCompletion)
	p.WomenParticipation = r2(p.WomenParticipation)
	p.Overall = r2(p.Overall)
	return p
}

func (s *Service) score(r models.MonthlyRecord) calc.PerformanceScore {
	return roundScore(s.scoring.Score(r))
}
