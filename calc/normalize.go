package calc

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// RawRecord is a record as published by the upstream API: external field
// names mapped to their textual values. Key casing is not significant.
type RawRecord map[string]string

// Get looks up key ignoring case.
func (r RawRecord) Get(key string) string {
	if v, ok := r[key]; ok {
		return v
	}
	fold := cases.Fold()
	want := fold.String(key)
	for k, v := range r {
		if fold.String(k) == want {
			return v
		}
	}
	return ""
}

// DefaultRemarks is stored when the source leaves remarks empty.
const DefaultRemarks = "NA"

// decimalPlaces matches the storage precision of every decimal column.
const decimalPlaces = 2

type stringField struct {
	key string
	ptr func(*models.MonthlyRecord) *string
}

type intField struct {
	key string
	ptr func(*models.MonthlyRecord) *int64
}

type decimalField struct {
	key string
	ptr func(*models.MonthlyRecord) *float64
}

var stringFields = []stringField{
	{"fin_year", func(r *models.MonthlyRecord) *string { return &r.FinYear }},
	{"month", func(r *models.MonthlyRecord) *string { return &r.Month }},
	{"state_code", func(r *models.MonthlyRecord) *string { return &r.StateCode }},
	{"state_name", func(r *models.MonthlyRecord) *string { return &r.StateName }},
	{"district_code", func(r *models.MonthlyRecord) *string { return &r.DistrictCode }},
	{"district_name", func(r *models.MonthlyRecord) *string { return &r.DistrictName }},
}

var intFields = []intField{
	{"Approved_Labour_Budget", func(r *models.MonthlyRecord) *int64 { return &r.ApprovedLabourBudget }},
	{"Differently_abled_persons_worked", func(r *models.MonthlyRecord) *int64 { return &r.DifferentlyAbledPersonsWorked }},
	{"SC_persondays", func(r *models.MonthlyRecord) *int64 { return &r.SCPersondays }},
	{"SC_workers_against_active_workers", func(r *models.MonthlyRecord) *int64 { return &r.SCWorkersAgainstActive }},
	{"ST_persondays", func(r *models.MonthlyRecord) *int64 { return &r.STPersondays }},
	{"ST_workers_against_active_workers", func(r *models.MonthlyRecord) *int64 { return &r.STWorkersAgainstActive }},
	{"Women_Persondays", func(r *models.MonthlyRecord) *int64 { return &r.WomenPersondays }},
	{"Persondays_of_Central_Liability_so_far", func(r *models.MonthlyRecord) *int64 { return &r.CentralLiabilityPersondays }},
	{"Number_of_Completed_Works", func(r *models.MonthlyRecord) *int64 { return &r.CompletedWorks }},
	{"Number_of_Ongoing_Works", func(r *models.MonthlyRecord) *int64 { return &r.OngoingWorks }},
	{"Number_of_GPs_with_NIL_exp", func(r *models.MonthlyRecord) *int64 { return &r.GPsWithNilExp }},
	{"Total_No_of_Works_Takenup", func(r *models.MonthlyRecord) *int64 { return &r.WorksTakenUp }},
	{"Total_Households_Worked", func(r *models.MonthlyRecord) *int64 { return &r.HouseholdsWorked }},
	{"Total_Individuals_Worked", func(r *models.MonthlyRecord) *int64 { return &r.IndividualsWorked }},
	{"Total_No_of_Active_Job_Cards", func(r *models.MonthlyRecord) *int64 { return &r.ActiveJobCards }},
	{"Total_No_of_Active_Workers", func(r *models.MonthlyRecord) *int64 { return &r.ActiveWorkers }},
	{"Total_No_of_HHs_completed_100_Days_of_Wage_Employment", func(r *models.MonthlyRecord) *int64 { return &r.HouseholdsCompleted100 }},
	{"Total_No_of_JobCards_issued", func(r *models.MonthlyRecord) *int64 { return &r.JobCardsIssued }},
	{"Total_No_of_Workers", func(r *models.MonthlyRecord) *int64 { return &r.Workers }},
}

var decimalFields = []decimalField{
	{"Average_Wage_rate_per_day_per_person", func(r *models.MonthlyRecord) *float64 { return &r.AverageWageRate }},
	{"Average_days_of_employment_provided_per_Household", func(r *models.MonthlyRecord) *float64 { return &r.AverageDaysOfEmployment }},
	{"Total_Exp", func(r *models.MonthlyRecord) *float64 { return &r.TotalExp }},
	{"Total_Adm_Expenditure", func(r *models.MonthlyRecord) *float64 { return &r.TotalAdmExpenditure }},
	{"Wages", func(r *models.MonthlyRecord) *float64 { return &r.Wages }},
	{"Material_and_skilled_Wages", func(r *models.MonthlyRecord) *float64 { return &r.MaterialWages }},
	{"percent_of_Category_B_Works", func(r *models.MonthlyRecord) *float64 { return &r.PercentCategoryBWorks }},
	{"percent_of_Expenditure_on_Agriculture_Allied_Works", func(r *models.MonthlyRecord) *float64 { return &r.PercentAgricultureExp }},
	{"percent_of_NRM_Expenditure", func(r *models.MonthlyRecord) *float64 { return &r.PercentNRMExpenditure }},
	{"percentage_payments_gererated_within_15_days", func(r *models.MonthlyRecord) *float64 { return &r.PercentPaymentsWithin15Days }},
}

const remarksKey = "Remarks"

// Normalize converts a raw upstream record into a MonthlyRecord. It never
// fails: missing or malformed numbers become 0, remarks default to "NA" and
// LastSyncedAt is set to now.
func Normalize(raw RawRecord, now time.Time) models.MonthlyRecord {
	fold := cases.Fold()
	folded := make(map[string]string, len(raw))
	for k, v := range raw {
		folded[fold.String(strings.TrimSpace(k))] = v
	}
	get := func(key string) string { return folded[fold.String(key)] }

	var rec models.MonthlyRecord
	for _, f := range stringFields {
		*f.ptr(&rec) = strings.TrimSpace(get(f.key))
	}
	for _, f := range intFields {
		*f.ptr(&rec) = utils.ParseInt(get(f.key))
	}
	for _, f := range decimalFields {
		*f.ptr(&rec) = utils.ParseDecimal(get(f.key), decimalPlaces)
	}

	rec.Remarks = strings.TrimSpace(get(remarksKey))
	if rec.Remarks == "" {
		rec.Remarks = DefaultRemarks
	}
	rec.LastSyncedAt = now
	return rec
}

// RawFromRecord renders a record back into upstream field names, so that
// Normalize(RawFromRecord(r), r.LastSyncedAt) reproduces r.
func RawFromRecord(rec models.MonthlyRecord) RawRecord {
	raw := make(RawRecord, len(stringFields)+len(intFields)+len(decimalFields)+1)
	for _, f := range stringFields {
		raw[f.key] = *f.ptr(&rec)
	}
	for _, f := range intFields {
		raw[f.key] = strconv.FormatInt(*f.ptr(&rec), 10)
	}
	for _, f := range decimalFields {
		raw[f.key] = strconv.FormatFloat(*f.ptr(&rec), 'f', -1, 64)
	}
	raw[remarksKey] = rec.Remarks
	return raw
}
