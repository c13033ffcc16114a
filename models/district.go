package models

import (
	"sort"
	"time"
)

// MonthlyRecord is one district's reported figures for one month of a
// financial year. Money fields are in lakhs.
type MonthlyRecord struct {
	FinYear      string `db:"fin_year" json:"fin_year" csv:"fin_year"`
	Month        string `db:"month" json:"month" csv:"month"`
	StateCode    string `db:"state_code" json:"state_code" csv:"state_code"`
	StateName    string `db:"state_name" json:"state_name" csv:"state_name"`
	DistrictCode string `db:"district_code" json:"district_code" csv:"district_code"`
	DistrictName string `db:"district_name" json:"district_name" csv:"district_name"`

	ApprovedLabourBudget          int64   `db:"approved_labour_budget" json:"approved_labour_budget" csv:"approved_labour_budget"`
	AverageWageRate               float64 `db:"average_wage_rate_per_day_per_person" json:"average_wage_rate_per_day_per_person" csv:"average_wage_rate_per_day_per_person"`
	AverageDaysOfEmployment       float64 `db:"average_days_of_employment_provided_per_household" json:"average_days_of_employment_provided_per_household" csv:"average_days_of_employment_provided_per_household"`
	DifferentlyAbledPersonsWorked int64   `db:"differently_abled_persons_worked" json:"differently_abled_persons_worked" csv:"differently_abled_persons_worked"`

	SCPersondays               int64 `db:"sc_persondays" json:"sc_persondays" csv:"sc_persondays"`
	SCWorkersAgainstActive     int64 `db:"sc_workers_against_active_workers" json:"sc_workers_against_active_workers" csv:"sc_workers_against_active_workers"`
	STPersondays               int64 `db:"st_persondays" json:"st_persondays" csv:"st_persondays"`
	STWorkersAgainstActive     int64 `db:"st_workers_against_active_workers" json:"st_workers_against_active_workers" csv:"st_workers_against_active_workers"`
	WomenPersondays            int64 `db:"women_persondays" json:"women_persondays" csv:"women_persondays"`
	CentralLiabilityPersondays int64 `db:"persondays_of_central_liability_so_far" json:"persondays_of_central_liability_so_far" csv:"persondays_of_central_liability_so_far"`

	CompletedWorks int64 `db:"number_of_completed_works" json:"number_of_completed_works" csv:"number_of_completed_works"`
	OngoingWorks   int64 `db:"number_of_ongoing_works" json:"number_of_ongoing_works" csv:"number_of_ongoing_works"`
	GPsWithNilExp  int64 `db:"number_of_gps_with_nil_exp" json:"number_of_gps_with_nil_exp" csv:"number_of_gps_with_nil_exp"`
	WorksTakenUp   int64 `db:"total_no_of_works_takenup" json:"total_no_of_works_takenup" csv:"total_no_of_works_takenup"`

	TotalExp            float64 `db:"total_exp" json:"total_exp" csv:"total_exp"`
	TotalAdmExpenditure float64 `db:"total_adm_expenditure" json:"total_adm_expenditure" csv:"total_adm_expenditure"`
	Wages               float64 `db:"wages" json:"wages" csv:"wages"`
	MaterialWages       float64 `db:"material_and_skilled_wages" json:"material_and_skilled_wages" csv:"material_and_skilled_wages"`

	HouseholdsWorked       int64 `db:"total_households_worked" json:"total_households_worked" csv:"total_households_worked"`
	IndividualsWorked      int64 `db:"total_individuals_worked" json:"total_individuals_worked" csv:"total_individuals_worked"`
	ActiveJobCards         int64 `db:"total_no_of_active_job_cards" json:"total_no_of_active_job_cards" csv:"total_no_of_active_job_cards"`
	ActiveWorkers          int64 `db:"total_no_of_active_workers" json:"total_no_of_active_workers" csv:"total_no_of_active_workers"`
	HouseholdsCompleted100 int64 `db:"total_no_of_hhs_completed_100_days_of_wage_employment" json:"total_no_of_hhs_completed_100_days_of_wage_employment" csv:"total_no_of_hhs_completed_100_days_of_wage_employment"`
	JobCardsIssued         int64 `db:"total_no_of_jobcards_issued" json:"total_no_of_jobcards_issued" csv:"total_no_of_jobcards_issued"`
	Workers                int64 `db:"total_no_of_workers" json:"total_no_of_workers" csv:"total_no_of_workers"`

	PercentCategoryBWorks       float64 `db:"percent_of_category_b_works" json:"percent_of_category_b_works" csv:"percent_of_category_b_works"`
	PercentAgricultureExp       float64 `db:"percent_of_expenditure_on_agriculture_allied_works" json:"percent_of_expenditure_on_agriculture_allied_works" csv:"percent_of_expenditure_on_agriculture_allied_works"`
	PercentNRMExpenditure       float64 `db:"percent_of_nrm_expenditure" json:"percent_of_nrm_expenditure" csv:"percent_of_nrm_expenditure"`
	PercentPaymentsWithin15Days float64 `db:"percentage_payments_gererated_within_15_days" json:"percentage_payments_gererated_within_15_days" csv:"percentage_payments_gererated_within_15_days"`

	Remarks      string    `db:"remarks" json:"remarks" csv:"remarks"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at" csv:"-"`
}

// DistrictRef identifies a district without its figures.
type DistrictRef struct {
	Code        string `db:"district_code" json:"code"`
	Name        string `db:"district_name" json:"name"`
	State       string `db:"state_name" json:"state"`
	// DisplayName is Name in title case, e.g. "Sant Kabir Nagar".
	DisplayName string `db:"-" json:"display_name"`
}

// Months lists calendar months in the three-letter form used by the source data.
var Months = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// FiscalMonths lists months in financial-year order, April first.
var FiscalMonths = []string{"Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}

var fiscalIndex = func() map[string]int {
	m := make(map[string]int, len(FiscalMonths))
	for i, name := range FiscalMonths {
		m[name] = i
	}
	return m
}()

// FiscalMonthIndex returns the position of month within the financial year
// (Apr = 0, Mar = 11). Unknown names sort after every real month.
func FiscalMonthIndex(month string) int {
	if i, ok := fiscalIndex[month]; ok {
		return i
	}
	return len(FiscalMonths)
}

// SortChronological orders records by financial year, then fiscal month,
// then district code. The slice is sorted in place.
func SortChronological(records []MonthlyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.FinYear != b.FinYear {
			return a.FinYear < b.FinYear
		}
		if ai, bi := FiscalMonthIndex(a.Month), FiscalMonthIndex(b.Month); ai != bi {
			return ai < bi
		}
		return a.DistrictCode < b.DistrictCode
	})
}
