package dashboard

import (
	"context"
	"sort"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// lakhsPerCrore converts lakh amounts to crores.
const lakhsPerCrore = 100

// performersShown is how many districts each dashboard list holds.
const performersShown = 5

type StateEmployment struct {
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalIndividualsWorked int64   `json:"total_individuals_worked"`
	AvgEmploymentDays      float64 `json:"avg_employment_days"`
}

type StateFinancial struct {
	TotalExpenditureLakhs  float64 `json:"total_expenditure_lakhs"`
	TotalExpenditureCrores float64 `json:"total_expenditure_crores"`
	TotalWagesLakhs        float64 `json:"total_wages_lakhs"`
	AvgWageRate            float64 `json:"avg_wage_rate"`
}

type StateWorks struct {
	TotalCompleted int64   `json:"total_completed"`
	TotalOngoing   int64   `json:"total_ongoing"`
	CompletionRate float64 `json:"completion_rate"`
}

type StateDemographics struct {
	TotalPersondays        int64   `json:"total_persondays"`
	WomenPersondays        int64   `json:"women_persondays"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
	SCPersondays           int64   `json:"sc_persondays"`
	SCParticipationRate    float64 `json:"sc_participation_rate"`
	STPersondays           int64   `json:"st_persondays"`
	STParticipationRate    float64 `json:"st_participation_rate"`
}

type PerDistrictAverage struct {
	AvgHouseholds     int64   `json:"avg_households"`
	AvgExpenditure    float64 `json:"avg_expenditure"`
	AvgCompletedWorks int64   `json:"avg_completed_works"`
}

// StateStats is the state-level statistics page.
type StateStats struct {
	FinYear            string             `json:"fin_year"`
	State              string             `json:"state"`
	TotalDistricts     int                `json:"total_districts"`
	Employment         StateEmployment    `json:"employment"`
	Financial          StateFinancial     `json:"financial"`
	Works              StateWorks         `json:"works"`
	Demographics       StateDemographics  `json:"demographics"`
	PerDistrictAverage PerDistrictAverage `json:"per_district_average"`
}

func (s *Service) stateRecords(ctx context.Context, finYear string) ([]models.MonthlyRecord, error) {
	return s.repo.Find(ctx, store.Filter{FinYears: []string{finYear}, StateName: s.state})
}

func roundedDiv(a, b float64) int64 {
	return int64(utils.Round(utils.SafeDiv(a, b), 0))
}

// StateStats aggregates every district of the state for finYear.
func (s *Service) StateStats(ctx context.Context, finYear string) (StateStats, error) {
	records, err := s.stateRecords(ctx, finYear)
	if err != nil {
		return StateStats{}, err
	}
	if len(records) == 0 {
		return StateStats{}, notFound("No data found")
	}

	agg := calc.AggregateRecords(records)
	districts := float64(len(groupByDistrict(records)))

	return StateStats{
		FinYear:        finYear,
		State:          s.state,
		TotalDistricts: int(districts),
		Employment: StateEmployment{
			TotalHouseholdsWorked:  agg.TotalHouseholdsWorked,
			TotalIndividualsWorked: agg.TotalIndividualsWorked,
			AvgEmploymentDays:      r1(agg.AvgEmploymentDays),
		},
		Financial: StateFinancial{
			TotalExpenditureLakhs:  r2(agg.TotalExpenditure),
			TotalExpenditureCrores: r2(agg.TotalExpenditure / lakhsPerCrore),
			TotalWagesLakhs:        r2(agg.TotalWages),
			AvgWageRate:            r2(agg.AvgWageRate),
		},
		Works: StateWorks{
			TotalCompleted: agg.TotalCompletedWorks,
			TotalOngoing:   agg.TotalOngoingWorks,
			CompletionRate: r2(agg.WorkCompletionRate),
		},
		Demographics: StateDemographics{
			TotalPersondays:        agg.TotalPersondays,
			WomenPersondays:        agg.WomenPersondays,
			WomenParticipationRate: r2(agg.WomenParticipationRate),
			SCPersondays:           agg.SCPersondays,
			SCParticipationRate:    r2(agg.SCParticipationRate()),
			STPersondays:           agg.STPersondays,
			STParticipationRate:    r2(agg.STParticipationRate()),
		},
		PerDistrictAverage: PerDistrictAverage{
			AvgHouseholds:     roundedDiv(float64(agg.TotalHouseholdsWorked), districts),
			AvgExpenditure:    r2(utils.SafeDiv(agg.TotalExpenditure, districts)),
			AvgCompletedWorks: roundedDiv(float64(agg.TotalCompletedWorks), districts),
		},
	}, nil
}

type Overview struct {
	TotalDistricts         int     `json:"total_districts"`
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalExpenditureCrores float64 `json:"total_expenditure_crores"`
	TotalWorksCompleted    int64   `json:"total_works_completed"`
	AvgWageRate            float64 `json:"avg_wage_rate"`
}

type KeyMetrics struct {
	EmploymentDaysPerHousehold float64 `json:"employment_days_per_household"`
	WorkCompletionRate         float64 `json:"work_completion_rate"`
	WomenParticipationRate     float64 `json:"women_participation_rate"`
	// PaymentEfficiency is the mean share of payments generated within 15 days.
	PaymentEfficiency float64 `json:"payment_efficiency"`
}

// Performer is one district in a dashboard list.
type Performer struct {
	DistrictCode     string  `json:"district_code"`
	DistrictName     string  `json:"district_name"`
	HouseholdsWorked int64   `json:"households_worked"`
	PerformanceScore float64 `json:"performance_score"`
}

type TopPerformers struct {
	ByHouseholds  []Performer `json:"by_households"`
	ByPerformance []Performer `json:"by_performance"`
}

type BottomPerformers struct {
	ByPerformance []Performer `json:"by_performance"`
}

// Dashboard is the landing page overview.
type Dashboard struct {
	FinYear          string           `json:"fin_year"`
	State            string           `json:"state"`
	Overview         Overview         `json:"overview"`
	KeyMetrics       KeyMetrics       `json:"key_metrics"`
	TopPerformers    TopPerformers    `json:"top_performers"`
	BottomPerformers BottomPerformers `json:"bottom_performers"`
}

func firstN(p []Performer, n int) []Performer {
	if len(p) > n {
		p = p[:n]
	}
	return append([]Performer(nil), p...)
}

// Dashboard builds the overview of finYear with top and bottom districts.
// A district's score is that of its latest month.
func (s *Service) Dashboard(ctx context.Context, finYear string) (Dashboard, error) {
	records, err := s.repo.Find(ctx, store.Filter{FinYears: []string{finYear}})
	if err != nil {
		return Dashboard{}, err
	}
	if len(records) == 0 {
		return Dashboard{}, notFound("No data found")
	}

	agg := calc.AggregateRecords(records)
	groups := groupByDistrict(records)

	performers := make([]Performer, 0, len(groups))
	for _, g := range groups {
		performers = append(performers, Performer{
			DistrictCode:     g.code,
			DistrictName:     g.name,
			HouseholdsWorked: calc.AggregateRecords(g.records).TotalHouseholdsWorked,
			PerformanceScore: s.score(g.latest()).Overall,
		})
	}

	var payment float64
	for _, r := range records {
		payment += r.PercentPaymentsWithin15Days
	}

	byHouseholds := append([]Performer(nil), performers...)
	sort.SliceStable(byHouseholds, func(i, j int) bool {
		return byHouseholds[i].HouseholdsWorked > byHouseholds[j].HouseholdsWorked
	})
	byScore := append([]Performer(nil), performers...)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].PerformanceScore > byScore[j].PerformanceScore
	})
	worst := append([]Performer(nil), performers...)
	sort.SliceStable(worst, func(i, j int) bool {
		return worst[i].PerformanceScore < worst[j].PerformanceScore
	})

	return Dashboard{
		FinYear: finYear,
		State:   s.state,
		Overview: Overview{
			TotalDistricts:         len(groups),
			TotalHouseholdsWorked:  agg.TotalHouseholdsWorked,
			TotalExpenditureCrores: r2(agg.TotalExpenditure / lakhsPerCrore),
			TotalWorksCompleted:    agg.TotalCompletedWorks,
			AvgWageRate:            r2(agg.AvgWageRate),
		},
		KeyMetrics: KeyMetrics{
			EmploymentDaysPerHousehold: r1(agg.AvgEmploymentDays),
			WorkCompletionRate:         r2(agg.WorkCompletionRate),
			WomenParticipationRate:     r2(agg.WomenParticipationRate),
			PaymentEfficiency:          r2(payment / float64(len(records))),
		},
		TopPerformers: TopPerformers{
			ByHouseholds:  firstN(byHouseholds, performersShown),
			ByPerformance: firstN(byScore, performersShown),
		},
		BottomPerformers: BottomPerformers{
			ByPerformance: firstN(worst, performersShown),
		},
	}, nil
}

// Share is a group's persondays and its percentage of the total.
type Share struct {
	Persondays int64   `json:"persondays"`
	Percentage float64 `json:"percentage"`
}

type Breakdown struct {
	Women   Share `json:"women"`
	SC      Share `json:"sc"`
	ST      Share `json:"st"`
	General Share `json:"general"`
}

// Demographics splits persondays by social group.
type Demographics struct {
	FinYear         string    `json:"fin_year"`
	Scope           string    `json:"scope"`
	DistrictName    string    `json:"district_name,omitempty"`
	DistrictCode    string    `json:"district_code,omitempty"`
	TotalPersondays int64     `json:"total_persondays"`
	Breakdown       Breakdown `json:"breakdown"`
}

// Demographics reports for the whole year, or for one district when
// districtCode is set.
func (s *Service) Demographics(ctx context.Context, finYear, districtCode string) (Demographics, error) {
	f := store.Filter{FinYears: []string{finYear}}
	scope := "state"
	if districtCode != "" {
		f.DistrictCodes = []string{districtCode}
		scope = "district"
	}
	records, err := s.repo.Find(ctx, f)
	if err != nil {
		return Demographics{}, err
	}
	if len(records) == 0 {
		return Demographics{}, notFound("No data found")
	}

	agg := calc.AggregateRecords(records)
	d := Demographics{
		FinYear:         finYear,
		Scope:           scope,
		TotalPersondays: agg.TotalPersondays,
		Breakdown: Breakdown{
			Women:   Share{agg.WomenPersondays, r2(agg.WomenParticipationRate)},
			SC:      Share{agg.SCPersondays, r2(agg.SCParticipationRate())},
			ST:      Share{agg.STPersondays, r2(agg.STParticipationRate())},
			General: Share{agg.GeneralPersondays(), r2(agg.GeneralParticipationRate())},
		},
	}
	if districtCode != "" {
		d.DistrictCode = districtCode
		d.DistrictName = records[0].DistrictName
	}
	return d, nil
}
