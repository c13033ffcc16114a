package dashboard

import (
	"context"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

type TrendPoint struct {
	Month             string  `json:"month"`
	HouseholdsWorked  int64   `json:"households_worked"`
	IndividualsWorked int64   `json:"individuals_worked"`
	Expenditure       float64 `json:"expenditure"`
	CompletedWorks    int64   `json:"completed_works"`
	AvgWageRate       float64 `json:"avg_wage_rate"`
	WomenPersondays   int64   `json:"women_persondays"`
}

type YearOverYear struct {
	Year         string            `json:"year"`
	PreviousYear string            `json:"previous_year"`
	Changes      calc.YearlyChange `json:"changes"`
}

// DistrictTrends is a district's history, month by month and year by year.
type DistrictTrends struct {
	DistrictName  string                    `json:"district_name"`
	DistrictCode  string                    `json:"district_code"`
	Years         []string                  `json:"years"`
	MonthlyTrends map[string][]TrendPoint   `json:"monthly_trends"`
	YearlySummary map[string]calc.Aggregate `json:"yearly_summary"`
	YoYComparison []YearOverYear            `json:"yoy_comparison,omitempty"`
}

// DistrictTrends covers finYear, the inclusive range startYear..endYear, or
// every year on record when neither is given.
func (s *Service) DistrictTrends(ctx context.Context, districtCode, finYear, startYear, endYear string) (DistrictTrends, error) {
	f := s.rangeFilter(store.Filter{DistrictCodes: []string{districtCode}}, finYear, startYear, endYear)
	records, err := s.repo.Find(ctx, f)
	if err != nil {
		return DistrictTrends{}, err
	}
	if len(records) == 0 {
		return DistrictTrends{}, notFound("No historical data found")
	}

	years, byYear := yearGroups(records)
	out := DistrictTrends{
		DistrictName:  records[0].DistrictName,
		DistrictCode:  districtCode,
		Years:         years,
		MonthlyTrends: make(map[string][]TrendPoint, len(years)),
		YearlySummary: make(map[string]calc.Aggregate, len(years)),
	}
	for _, y := range years {
		points := make([]TrendPoint, 0, len(byYear[y]))
		for _, r := range byYear[y] {
			points = append(points, TrendPoint{
				Month:             r.Month,
				HouseholdsWorked:  r.HouseholdsWorked,
				IndividualsWorked: r.IndividualsWorked,
				Expenditure:       r.TotalExp,
				CompletedWorks:    r.CompletedWorks,
				AvgWageRate:       r.AverageWageRate,
				WomenPersondays:   r.WomenPersondays,
			})
		}
		out.MonthlyTrends[y] = points
		out.YearlySummary[y] = calc.AggregateRecords(byYear[y])
	}

	for i := 1; i < len(years); i++ {
		ch := calc.YearlyComparison(out.YearlySummary[years[i]], out.YearlySummary[years[i-1]])
		out.YoYComparison = append(out.YoYComparison, YearOverYear{
			Year:         years[i],
			PreviousYear: years[i-1],
			Changes: calc.YearlyChange{
				HouseholdsChange:  r2p(ch.HouseholdsChange),
				IndividualsChange: r2p(ch.IndividualsChange),
				ExpenditureChange: r2p(ch.ExpenditureChange),
				WorksChange:       r2p(ch.WorksChange),
				WageChange:        r2p(ch.WageChange),
			},
		})
	}
	return out, nil
}

type MonthValues struct {
	HouseholdsWorked int64   `json:"households_worked"`
	Expenditure      float64 `json:"expenditure"`
	CompletedWorks   int64   `json:"completed_works"`
	AvgWageRate      float64 `json:"avg_wage_rate"`
}

// MonthlyComparison sets the same month of several years side by side.
type MonthlyComparison struct {
	DistrictName      string                            `json:"district_name"`
	DistrictCode      string                            `json:"district_code"`
	Years             []string                          `json:"years"`
	MonthlyComparison map[string]map[string]MonthValues `json:"monthly_comparison"`
}

// MonthlyComparison keys every calendar month; a month holds an entry per
// requested year that has data for it.
func (s *Service) MonthlyComparison(ctx context.Context, districtCode string, years []string) (MonthlyComparison, error) {
	years = CleanCodes(years)
	if len(years) == 0 {
		return MonthlyComparison{}, invalidInput("Years parameter is required (e.g., years=2023-2024,2024-2025)")
	}
	records, err := s.repo.Find(ctx, store.Filter{DistrictCodes: []string{districtCode}, FinYears: years})
	if err != nil {
		return MonthlyComparison{}, err
	}
	if len(records) == 0 {
		return MonthlyComparison{}, notFound("No data found for specified years")
	}

	cmp := make(map[string]map[string]MonthValues, len(models.Months))
	for _, m := range models.Months {
		cmp[m] = map[string]MonthValues{}
	}
	for _, r := range records {
		if _, ok := cmp[r.Month]; !ok {
			continue
		}
		cmp[r.Month][r.FinYear] = MonthValues{
			HouseholdsWorked: r.HouseholdsWorked,
			Expenditure:      r.TotalExp,
			CompletedWorks:   r.CompletedWorks,
			AvgWageRate:      r.AverageWageRate,
		}
	}

	return MonthlyComparison{
		DistrictName:      records[0].DistrictName,
		DistrictCode:      districtCode,
		Years:             years,
		MonthlyComparison: cmp,
	}, nil
}

// PeriodAggregate is the state aggregate of one month.
type PeriodAggregate struct {
	FinYear string `json:"fin_year"`
	Month   string `json:"month"`
	calc.Aggregate
}

// StateTrends is the state's month-by-month history.
type StateTrends struct {
	State  string            `json:"state"`
	Trends []PeriodAggregate `json:"trends"`
}

// StateTrends aggregates every district per month, chronologically.
func (s *Service) StateTrends(ctx context.Context, finYear, startYear, endYear string) (StateTrends, error) {
	f := s.rangeFilter(store.Filter{StateName: s.state}, finYear, startYear, endYear)
	records, err := s.repo.Find(ctx, f)
	if err != nil {
		return StateTrends{}, err
	}
	if len(records) == 0 {
		return StateTrends{}, notFound("No historical data found")
	}

	out := StateTrends{State: s.state, Trends: []PeriodAggregate{}}
	start := 0
	for i := 1; i <= len(records); i++ {
		if i < len(records) && records[i].FinYear == records[start].FinYear && records[i].Month == records[start].Month {
			continue
		}
		out.Trends = append(out.Trends, PeriodAggregate{
			FinYear:   records[start].FinYear,
			Month:     records[start].Month,
			Aggregate: calc.AggregateRecords(records[start:i]),
		})
		start = i
	}
	return out, nil
}

type EvolutionMetrics struct {
	HouseholdsWorked   int64   `json:"households_worked"`
	AvgEmploymentDays  float64 `json:"avg_employment_days"`
	AvgWageRate        float64 `json:"avg_wage_rate"`
	WorkCompletionRate float64 `json:"work_completion_rate"`
}

type EvolutionPoint struct {
	FinYear    string                `json:"fin_year"`
	Month      string                `json:"month"`
	Scores     calc.PerformanceScore `json:"scores"`
	KeyMetrics EvolutionMetrics      `json:"key_metrics"`
}

// PerformanceEvolution is a district's score month by month.
type PerformanceEvolution struct {
	DistrictName string           `json:"district_name"`
	DistrictCode string           `json:"district_code"`
	Evolution    []EvolutionPoint `json:"evolution"`
}

// PerformanceEvolution scores every month of a district, optionally within
// one financial year.
func (s *Service) PerformanceEvolution(ctx context.Context, districtCode, finYear string) (PerformanceEvolution, error) {
	f := store.Filter{DistrictCodes: []string{districtCode}}
	if finYear != "" {
		f.FinYears = []string{finYear}
	}
	records, err := s.repo.Find(ctx, f)
	if err != nil {
		return PerformanceEvolution{}, err
	}
	if len(records) == 0 {
		return PerformanceEvolution{}, notFound("No data found")
	}

	out := PerformanceEvolution{
		DistrictName: records[0].DistrictName,
		DistrictCode: districtCode,
		Evolution:    make([]EvolutionPoint, 0, len(records)),
	}
	for _, r := range records {
		out.Evolution = append(out.Evolution, EvolutionPoint{
			FinYear: r.FinYear,
			Month:   r.Month,
			Scores:  s.score(r),
			KeyMetrics: EvolutionMetrics{
				HouseholdsWorked:   r.HouseholdsWorked,
				AvgEmploymentDays:  r.AverageDaysOfEmployment,
				AvgWageRate:        r.AverageWageRate,
				WorkCompletionRate: r2(calc.CompletionRatio(r)),
			},
		})
	}
	return out, nil
}
