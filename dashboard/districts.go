package dashboard

import (
	"context"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
)

// Summary condenses a district year whose counters are cumulative: the
// largest reported value stands for the year.
type Summary struct {
	DistrictName           string  `json:"district_name"`
	DistrictCode           string  `json:"district_code"`
	FinYear                string  `json:"fin_year"`
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalIndividualsWorked int64   `json:"total_individuals_worked"`
	TotalExpenditure       float64 `json:"total_expenditure"`
	TotalPersondays        int64   `json:"total_persondays"`
	CompletedWorks         int64   `json:"completed_works"`
	OngoingWorks           int64   `json:"ongoing_works"`
	AverageWageRate        float64 `json:"average_wage_rate"`
	MonthsData             int     `json:"months_data"`
}

// Summary reports a district year using cumulative-maximum semantics.
// Expenditure is summed, ongoing works are taken from the latest month and
// the wage rate is the mean of the monthly rates.
func (s *Service) Summary(ctx context.Context, districtCode, finYear string) (Summary, error) {
	records, err := s.DistrictRecords(ctx, districtCode, finYear)
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		return Summary{}, notFound("District not found")
	}

	sum := Summary{
		DistrictName: records[0].DistrictName,
		DistrictCode: districtCode,
		FinYear:      finYear,
		MonthsData:   len(records),
	}
	var wageRates float64
	for _, r := range records {
		sum.TotalHouseholdsWorked = max(sum.TotalHouseholdsWorked, r.HouseholdsWorked)
		sum.TotalIndividualsWorked = max(sum.TotalIndividualsWorked, r.IndividualsWorked)
		sum.TotalPersondays = max(sum.TotalPersondays, r.CentralLiabilityPersondays)
		sum.CompletedWorks = max(sum.CompletedWorks, r.CompletedWorks)
		sum.TotalExpenditure += r.TotalExp
		wageRates += r.AverageWageRate
	}
	sum.OngoingWorks = records[len(records)-1].OngoingWorks
	sum.TotalExpenditure = r2(sum.TotalExpenditure)
	sum.AverageWageRate = r2(wageRates / float64(len(records)))
	return sum, nil
}

// DistrictTotals are a district year's summed counters.
type DistrictTotals struct {
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalIndividualsWorked int64   `json:"total_individuals_worked"`
	TotalExpenditure       float64 `json:"total_expenditure"`
	TotalWages             float64 `json:"total_wages"`
	CompletedWorks         int64   `json:"completed_works"`
	OngoingWorks           int64   `json:"ongoing_works"`
}

// DistrictAverages are a district year's derived rates.
type DistrictAverages struct {
	AvgEmploymentDays      float64 `json:"avg_employment_days"`
	AvgWageRate            float64 `json:"avg_wage_rate"`
	WorkCompletionRate     float64 `json:"work_completion_rate"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
}

// MonthPoint is one month of a district's breakdown.
type MonthPoint struct {
	Month            string  `json:"month"`
	HouseholdsWorked int64   `json:"households_worked"`
	Expenditure      float64 `json:"expenditure"`
	CompletedWorks   int64   `json:"completed_works"`
	AvgWageRate      float64 `json:"avg_wage_rate"`
}

// DistrictStats is the statistics page of one district year.
type DistrictStats struct {
	DistrictName     string                `json:"district_name"`
	DistrictCode     string                `json:"district_code"`
	FinYear          string                `json:"fin_year"`
	Summary          DistrictTotals        `json:"summary"`
	Averages         DistrictAverages      `json:"averages"`
	Performance      calc.PerformanceScore `json:"performance"`
	Efficiency       calc.Efficiency       `json:"efficiency"`
	MonthlyBreakdown []MonthPoint          `json:"monthly_breakdown"`
}

func totalsOf(a calc.Aggregate) DistrictTotals {
	return DistrictTotals{
		TotalHouseholdsWorked:  a.TotalHouseholdsWorked,
		TotalIndividualsWorked: a.TotalIndividualsWorked,
		TotalExpenditure:       r2(a.TotalExpenditure),
		TotalWages:             r2(a.TotalWages),
		CompletedWorks:         a.TotalCompletedWorks,
		OngoingWorks:           a.TotalOngoingWorks,
	}
}

func averagesOf(a calc.Aggregate) DistrictAverages {
	return DistrictAverages{
		AvgEmploymentDays:      r1(a.AvgEmploymentDays),
		AvgWageRate:            r2(a.AvgWageRate),
		WorkCompletionRate:     r2(a.WorkCompletionRate),
		WomenParticipationRate: r2(a.WomenParticipationRate),
	}
}

func monthPoint(r models.MonthlyRecord) MonthPoint {
	return MonthPoint{
		Month:            r.Month,
		HouseholdsWorked: r.HouseholdsWorked,
		Expenditure:      r.TotalExp,
		CompletedWorks:   r.CompletedWorks,
		AvgWageRate:      r.AverageWageRate,
	}
}

// DistrictStats aggregates a district year and scores its latest month.
func (s *Service) DistrictStats(ctx context.Context, districtCode, finYear string) (DistrictStats, error) {
	records, err := s.DistrictRecords(ctx, districtCode, finYear)
	if err != nil {
		return DistrictStats{}, err
	}
	if len(records) == 0 {
		return DistrictStats{}, notFound("District not found")
	}

	agg := calc.AggregateRecords(records)
	latest := records[len(records)-1]
	eff := calc.EfficiencyOf(latest)

	stats := DistrictStats{
		DistrictName: records[0].DistrictName,
		DistrictCode: districtCode,
		FinYear:      finYear,
		Summary:      totalsOf(agg),
		Averages:     averagesOf(agg),
		Performance:  s.score(latest),
		Efficiency: calc.Efficiency{
			CostPerHousehold:    r2(eff.CostPerHousehold),
			CostPerPersonday:    r2(eff.CostPerPersonday),
			CostPerWork:         r2(eff.CostPerWork),
			WageToMaterialRatio: r2(eff.WageToMaterialRatio),
		},
		MonthlyBreakdown: make([]MonthPoint, 0, len(records)),
	}
	for _, r := range records {
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, monthPoint(r))
	}
	return stats, nil
}
