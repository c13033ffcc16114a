package calc

import (
	"math"

	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// Rating labels, best first.
const (
	RatingExcellent    = "Excellent"
	RatingGood         = "Good"
	RatingAverage      = "Average"
	RatingBelowAverage = "Below Average"
	RatingPoor         = "Poor"
)

// PerformanceScore holds the 0-100 sub-scores of one record, their weighted
// overall score and the matching rating.
type PerformanceScore struct {
	Employment         float64 `json:"employment"`
	WageRate           float64 `json:"wageRate"`
	PaymentTimeliness  float64 `json:"paymentTimeliness"`
	WorkCompletion     float64 `json:"workCompletion"`
	WomenParticipation float64 `json:"womenParticipation"`
	Overall            float64 `json:"overall"`
	Rating             string  `json:"rating"`
}

// Score rates a single record, usually the latest month of a district.
func (c Config) Score(r models.MonthlyRecord) PerformanceScore {
	t := c.Thresholds
	s := PerformanceScore{
		Employment:         tierScore(r.AverageDaysOfEmployment, t.EmploymentDays),
		WageRate:           tierScore(r.AverageWageRate, t.WageRate),
		PaymentTimeliness:  tierScore(r.PercentPaymentsWithin15Days, t.PaymentTimeliness),
		WorkCompletion:     c.workCompletionScore(r),
		WomenParticipation: womenParticipationScore(r.WomenPersondays, r.CentralLiabilityPersondays),
	}

	w := c.Weights
	overall := s.Employment*w.Employment +
		s.WageRate*w.WageRate +
		s.PaymentTimeliness*w.PaymentTimeliness +
		s.WorkCompletion*w.WorkCompletion +
		s.WomenParticipation*w.WomenParticipation
	s.Overall = clamp(overall)
	s.Rating = Rating(s.Overall)
	return s
}

// CompletionRatio is the share of works taken up that were completed, in
// percent. It answers a different question than Aggregate.WorkCompletionRate.
func CompletionRatio(r models.MonthlyRecord) float64 {
	return utils.SafeDiv(float64(r.CompletedWorks)*100, float64(r.WorksTakenUp))
}

func (c Config) workCompletionScore(r models.MonthlyRecord) float64 {
	if r.WorksTakenUp == 0 {
		return 0
	}
	return tierScore(CompletionRatio(r), c.Thresholds.WorkCompletion)
}

func womenParticipationScore(women, total int64) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(women) / float64(total) * 100
	if rate >= WomenParticipationTarget {
		return 100
	}
	return clamp(rate / WomenParticipationTarget * 100)
}

// tierScore maps v onto 0-100: linear up to 50 below Average, linear from
// 50 to 100 between Average and Good, 100 from Good upwards.
func tierScore(v float64, b Band) float64 {
	switch {
	case v >= b.Good:
		return 100
	case v >= b.Average:
		return 50 + (v-b.Average)/(b.Good-b.Average)*50
	default:
		return clamp(utils.SafeDiv(v, b.Average) * 50)
	}
}

// Rating maps an overall score to its label. Lower bounds are inclusive.
func Rating(overall float64) string {
	switch {
	case overall >= 80:
		return RatingExcellent
	case overall >= 60:
		return RatingGood
	case overall >= 40:
		return RatingAverage
	case overall >= 20:
		return RatingBelowAverage
	default:
		return RatingPoor
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
