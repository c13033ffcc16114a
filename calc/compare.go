package calc

import (
	"math"
	"slices"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// PeerBandPercent is the largest size difference, relative to the target
// district, at which another district still counts as a peer.
const PeerBandPercent = 20.0

// GrowthRate returns the percentage change from previous to current, or
// nil when previous is 0 and growth is undefined.
func GrowthRate(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	g := (current - previous) / previous * 100
	return &g
}

// YearlyChange is the growth of key totals between two aggregates.
type YearlyChange struct {
	HouseholdsChange  *float64 `json:"households_change"`
	IndividualsChange *float64 `json:"individuals_change"`
	ExpenditureChange *float64 `json:"expenditure_change"`
	WorksChange       *float64 `json:"works_change"`
	WageChange        *float64 `json:"wage_change"`
}

// YearlyComparison compares a year's aggregate against the previous year.
func YearlyComparison(current, previous Aggregate) YearlyChange {
	return YearlyChange{
		HouseholdsChange:  GrowthRate(float64(current.TotalHouseholdsWorked), float64(previous.TotalHouseholdsWorked)),
		IndividualsChange: GrowthRate(float64(current.TotalIndividualsWorked), float64(previous.TotalIndividualsWorked)),
		ExpenditureChange: GrowthRate(current.TotalExpenditure, previous.TotalExpenditure),
		WorksChange:       GrowthRate(float64(current.TotalCompletedWorks), float64(previous.TotalCompletedWorks)),
		WageChange:        GrowthRate(current.AvgWageRate, previous.AvgWageRate),
	}
}

// MonthGrowth is the change of one month against the month before it.
type MonthGrowth struct {
	FinYear           string   `json:"fin_year"`
	Month             string   `json:"month"`
	HouseholdsGrowth  *float64 `json:"households_growth"`
	ExpenditureGrowth *float64 `json:"expenditure_growth"`
	WorksGrowth       *float64 `json:"works_growth"`
}

// MonthlyGrowth orders records chronologically and reports the growth of
// each against its predecessor. The input slice is not modified.
func MonthlyGrowth(records []models.MonthlyRecord) []MonthGrowth {
	if len(records) < 2 {
		return []MonthGrowth{}
	}
	sorted := slices.Clone(records)
	models.SortChronological(sorted)

	growth := make([]MonthGrowth, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		cur, prev := sorted[i], sorted[i-1]
		growth = append(growth, MonthGrowth{
			FinYear:           cur.FinYear,
			Month:             cur.Month,
			HouseholdsGrowth:  GrowthRate(float64(cur.HouseholdsWorked), float64(prev.HouseholdsWorked)),
			ExpenditureGrowth: GrowthRate(cur.TotalExp, prev.TotalExp),
			WorksGrowth:       GrowthRate(float64(cur.CompletedWorks), float64(prev.CompletedWorks)),
		})
	}
	return growth
}

// Efficiency expresses a record's spending in rupees per unit of output.
type Efficiency struct {
	CostPerHousehold    float64 `json:"cost_per_household"`
	CostPerPersonday    float64 `json:"cost_per_personday"`
	CostPerWork         float64 `json:"cost_per_work"`
	WageToMaterialRatio float64 `json:"wage_to_material_ratio"`
}

// EfficiencyOf derives cost ratios from a single record.
func EfficiencyOf(r models.MonthlyRecord) Efficiency {
	spent := r.TotalExp * LakhToRupees
	return Efficiency{
		CostPerHousehold:    utils.SafeDiv(spent, float64(r.HouseholdsWorked)),
		CostPerPersonday:    utils.SafeDiv(spent, float64(r.CentralLiabilityPersondays)),
		CostPerWork:         utils.SafeDiv(spent, float64(r.CompletedWorks+r.OngoingWorks)),
		WageToMaterialRatio: utils.SafeDiv(r.Wages, r.MaterialWages),
	}
}

// PeerMatch reports how far candidateSize is from targetSize as a
// percentage of targetSize, and whether that is within the peer band.
// The measure is relative to the target, so it is not symmetric.
// A target of size 0 has no peers.
func PeerMatch(targetSize, candidateSize int64) (float64, bool) {
	if targetSize == 0 {
		return 0, false
	}
	diff := math.Abs(float64(candidateSize-targetSize)) * 100 / float64(targetSize)
	return diff, diff <= PeerBandPercent
}

// Percentile returns the rank of value among all values on a 0-100 scale,
// the lowest value at 0 and the highest at 100. It is 0 when fewer than two
// values are given or value is absent.
func Percentile(value float64, all []float64) float64 {
	if len(all) < 2 {
		return 0
	}
	sorted := slices.Clone(all)
	slices.Sort(sorted)
	idx := slices.Index(sorted, value)
	if idx < 0 {
		return 0
	}
	return float64(idx) / float64(len(sorted)-1) * 100
}
