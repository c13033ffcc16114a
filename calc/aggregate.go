package calc

import (
	"github.com/shopspring/decimal"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// LakhToRupees converts lakh-denominated amounts to rupees.
const LakhToRupees = 100000

// Aggregate summarizes a set of monthly records for one scope (a district
// year, a state year, a single period across districts).
type Aggregate struct {
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalIndividualsWorked int64   `json:"total_individuals_worked"`
	TotalExpenditure       float64 `json:"total_expenditure"`
	TotalWages             float64 `json:"total_wages"`
	TotalCompletedWorks    int64   `json:"total_completed_works"`
	TotalOngoingWorks      int64   `json:"total_ongoing_works"`
	TotalPersondays        int64   `json:"total_persondays"`
	WomenPersondays        int64   `json:"women_persondays"`
	SCPersondays           int64   `json:"sc_persondays"`
	STPersondays           int64   `json:"st_persondays"`
	Count                  int     `json:"count"`

	// AvgWageRate is total wages over total persondays, in rupees.
	AvgWageRate       float64 `json:"avg_wage_rate"`
	AvgEmploymentDays float64 `json:"avg_employment_days"`
	// WorkCompletionRate is completed / (completed + ongoing). It is not the
	// ratio used by the work-completion score; see CompletionRatio.
	WorkCompletionRate     float64 `json:"work_completion_rate"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
}

// AggregateRecords folds records into an Aggregate. The result does not
// depend on record order. An empty input yields the zero Aggregate, whose
// Count of 0 lets callers tell it apart from real data.
func AggregateRecords(records []models.MonthlyRecord) Aggregate {
	var agg Aggregate
	expenditure, wages := decimal.Zero, decimal.Zero

	for _, r := range records {
		agg.TotalHouseholdsWorked += r.HouseholdsWorked
		agg.TotalIndividualsWorked += r.IndividualsWorked
		agg.TotalCompletedWorks += r.CompletedWorks
		agg.TotalOngoingWorks += r.OngoingWorks
		agg.TotalPersondays += r.CentralLiabilityPersondays
		agg.WomenPersondays += r.WomenPersondays
		agg.SCPersondays += r.SCPersondays
		agg.STPersondays += r.STPersondays
		expenditure = expenditure.Add(amount(r.TotalExp))
		wages = wages.Add(amount(r.Wages))
	}
	agg.Count = len(records)
	agg.TotalExpenditure = expenditure.InexactFloat64()
	agg.TotalWages = wages.InexactFloat64()

	persondays := float64(agg.TotalPersondays)
	agg.AvgWageRate = utils.SafeDiv(agg.TotalWages*LakhToRupees, persondays)
	agg.AvgEmploymentDays = utils.SafeDiv(persondays, float64(agg.TotalHouseholdsWorked))
	agg.WorkCompletionRate = utils.SafeDiv(
		float64(agg.TotalCompletedWorks)*100,
		float64(agg.TotalCompletedWorks+agg.TotalOngoingWorks),
	)
	agg.WomenParticipationRate = utils.SafeDiv(float64(agg.WomenPersondays)*100, persondays)
	return agg
}

// amount converts a stored amount, counting non-finite values as 0.
func amount(v float64) decimal.Decimal {
	if !utils.Finite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Empty reports whether the aggregate was built from no records.
func (a Aggregate) Empty() bool { return a.Count == 0 }

// SCParticipationRate is the SC share of total persondays, in percent.
func (a Aggregate) SCParticipationRate() float64 {
	return utils.SafeDiv(float64(a.SCPersondays)*100, float64(a.TotalPersondays))
}

// STParticipationRate is the ST share of total persondays, in percent.
func (a Aggregate) STParticipationRate() float64 {
	return utils.SafeDiv(float64(a.STPersondays)*100, float64(a.TotalPersondays))
}

// GeneralPersondays are persondays not attributed to SC or ST workers.
func (a Aggregate) GeneralPersondays() int64 {
	return a.TotalPersondays - a.SCPersondays - a.STPersondays
}

// GeneralParticipationRate is the non-SC/ST share of persondays, in percent.
func (a Aggregate) GeneralParticipationRate() float64 {
	return utils.SafeDiv(float64(a.GeneralPersondays())*100, float64(a.TotalPersondays))
}
