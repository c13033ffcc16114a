package dashboard

import (
	"context"
	"sort"
	"strings"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
	"github.com/doshiMiraj/MGNREGA-Dashboard/utils"
)

// ComparisonMetrics are the totals and rates compared side by side.
type ComparisonMetrics struct {
	TotalHouseholdsWorked  int64   `json:"total_households_worked"`
	TotalIndividualsWorked int64   `json:"total_individuals_worked"`
	TotalExpenditure       float64 `json:"total_expenditure"`
	TotalWages             float64 `json:"total_wages"`
	CompletedWorks         int64   `json:"completed_works"`
	OngoingWorks           int64   `json:"ongoing_works"`
	AvgWageRate            float64 `json:"avg_wage_rate"`
	AvgEmploymentDays      float64 `json:"avg_employment_days"`
	WorkCompletionRate     float64 `json:"work_completion_rate"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
}

type ComparedDistrict struct {
	DistrictCode string                `json:"district_code"`
	DistrictName string                `json:"district_name"`
	Metrics      ComparisonMetrics     `json:"metrics"`
	Performance  calc.PerformanceScore `json:"performance"`
}

type ComparisonRankings struct {
	BestPerformer  ComparedDistrict `json:"best_performer"`
	WorstPerformer ComparedDistrict `json:"worst_performer"`
}

// Comparison sets several districts side by side.
type Comparison struct {
	FinYear           string             `json:"fin_year"`
	DistrictsCompared int                `json:"districts_compared"`
	Comparison        []ComparedDistrict `json:"comparison"`
	Rankings          ComparisonRankings `json:"rankings"`
}

// MinCompared is the fewest districts a comparison accepts.
const MinCompared = 2

// CleanCodes trims district codes and drops empty and repeated ones.
func CleanCodes(codes []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// CompareDistricts compares districts over finYear, ranking them by the
// score of their latest month.
func (s *Service) CompareDistricts(ctx context.Context, codes []string, finYear string) (Comparison, error) {
	codes = CleanCodes(codes)
	if len(codes) < MinCompared {
		return Comparison{}, invalidInput("At least 2 districts are required for comparison")
	}

	records, err := s.repo.Find(ctx, store.Filter{DistrictCodes: codes, FinYears: []string{finYear}})
	if err != nil {
		return Comparison{}, err
	}
	if len(records) == 0 {
		return Comparison{}, notFound("No data found for specified districts")
	}

	groups := groupByDistrict(records)
	out := Comparison{
		FinYear:           finYear,
		DistrictsCompared: len(groups),
		Comparison:        make([]ComparedDistrict, 0, len(groups)),
	}
	for _, g := range groups {
		agg := calc.AggregateRecords(g.records)
		out.Comparison = append(out.Comparison, ComparedDistrict{
			DistrictCode: g.code,
			DistrictName: g.name,
			Metrics: ComparisonMetrics{
				TotalHouseholdsWorked:  agg.TotalHouseholdsWorked,
				TotalIndividualsWorked: agg.TotalIndividualsWorked,
				TotalExpenditure:       r2(agg.TotalExpenditure),
				TotalWages:             r2(agg.TotalWages),
				CompletedWorks:         agg.TotalCompletedWorks,
				OngoingWorks:           agg.TotalOngoingWorks,
				AvgWageRate:            r2(agg.AvgWageRate),
				AvgEmploymentDays:      r1(agg.AvgEmploymentDays),
				WorkCompletionRate:     r2(agg.WorkCompletionRate),
				WomenParticipationRate: r2(agg.WomenParticipationRate),
			},
			Performance: s.score(g.latest()),
		})
	}

	ranked := append([]ComparedDistrict(nil), out.Comparison...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Performance.Overall > ranked[j].Performance.Overall
	})
	out.Rankings = ComparisonRankings{BestPerformer: ranked[0], WorstPerformer: ranked[len(ranked)-1]}
	return out, nil
}

// Status values of a metric compared with the state average.
const (
	StatusAbove = "above"
	StatusBelow = "below"
)

// MetricComparison sets a district value against the state's per-district
// average. DifferencePercentage is nil when the state average is 0.
type MetricComparison struct {
	District             float64  `json:"district"`
	StateAvg             float64  `json:"state_avg"`
	DifferencePercentage *float64 `json:"difference_percentage"`
	Status               string   `json:"status"`
}

func compareMetric(district, stateAvg float64, shownAvg float64) MetricComparison {
	status := StatusBelow
	if district > stateAvg {
		status = StatusAbove
	}
	return MetricComparison{
		District:             r2(district),
		StateAvg:             shownAvg,
		DifferencePercentage: r2p(calc.GrowthRate(district, stateAvg)),
		Status:               status,
	}
}

type VsStateMetrics struct {
	HouseholdsWorked   MetricComparison `json:"households_worked"`
	Expenditure        MetricComparison `json:"expenditure"`
	WageRate           MetricComparison `json:"wage_rate"`
	WorkCompletionRate MetricComparison `json:"work_completion_rate"`
	WomenParticipation MetricComparison `json:"women_participation"`
}

func (m VsStateMetrics) all() []MetricComparison {
	return []MetricComparison{m.HouseholdsWorked, m.Expenditure, m.WageRate, m.WorkCompletionRate, m.WomenParticipation}
}

type VsStateSummary struct {
	MetricsAboveStateAvg int    `json:"metrics_above_state_avg"`
	MetricsBelowStateAvg int    `json:"metrics_below_state_avg"`
	OverallPerformance   string `json:"overall_performance"`
}

// VsState compares one district with the state average.
type VsState struct {
	DistrictName        string                `json:"district_name"`
	DistrictCode        string                `json:"district_code"`
	FinYear             string                `json:"fin_year"`
	Comparison          VsStateMetrics        `json:"comparison"`
	DistrictPerformance calc.PerformanceScore `json:"district_performance"`
	Summary             VsStateSummary        `json:"summary"`
}

// CompareWithState sets a district year against the state. Totals are
// compared with the per-district state average, rates with the state rate.
func (s *Service) CompareWithState(ctx context.Context, districtCode, finYear string) (VsState, error) {
	records, err := s.DistrictRecords(ctx, districtCode, finYear)
	if err != nil {
		return VsState{}, err
	}
	if len(records) == 0 {
		return VsState{}, notFound("District not found")
	}
	stateRecords, err := s.stateRecords(ctx, finYear)
	if err != nil {
		return VsState{}, err
	}

	district := calc.AggregateRecords(records)
	state := calc.AggregateRecords(stateRecords)
	districts := float64(len(groupByDistrict(stateRecords)))
	avgHouseholds := utils.SafeDiv(float64(state.TotalHouseholdsWorked), districts)
	avgExpenditure := utils.SafeDiv(state.TotalExpenditure, districts)

	metrics := VsStateMetrics{
		HouseholdsWorked: compareMetric(float64(district.TotalHouseholdsWorked), avgHouseholds,
			utils.Round(avgHouseholds, 0)),
		Expenditure:        compareMetric(district.TotalExpenditure, avgExpenditure, r2(avgExpenditure)),
		WageRate:           compareMetric(district.AvgWageRate, state.AvgWageRate, r2(state.AvgWageRate)),
		WorkCompletionRate: compareMetric(district.WorkCompletionRate, state.WorkCompletionRate, r2(state.WorkCompletionRate)),
		WomenParticipation: compareMetric(district.WomenParticipationRate, state.WomenParticipationRate,
			r2(state.WomenParticipationRate)),
	}

	perf := s.score(records[len(records)-1])
	summary := VsStateSummary{OverallPerformance: perf.Rating}
	for _, m := range metrics.all() {
		if m.Status == StatusAbove {
			summary.MetricsAboveStateAvg++
		} else {
			summary.MetricsBelowStateAvg++
		}
	}

	return VsState{
		DistrictName:        records[0].DistrictName,
		DistrictCode:        districtCode,
		FinYear:             finYear,
		Comparison:          metrics,
		DistrictPerformance: perf,
		Summary:             summary,
	}, nil
}

// RankingEntry is one district's position on the ranked metric.
type RankingEntry struct {
	Rank                   int     `json:"rank"`
	DistrictCode           string  `json:"district_code"`
	DistrictName           string  `json:"district_name"`
	HouseholdsWorked       int64   `json:"households_worked"`
	Expenditure            float64 `json:"expenditure"`
	WageRate               float64 `json:"wage_rate"`
	WorkCompletionRate     float64 `json:"work_completion_rate"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
	PerformanceScore       float64 `json:"performance_score"`
	PerformanceRating      string  `json:"performance_rating"`
	Percentile             float64 `json:"percentile"`
}

// Rankings lists the best and worst districts on a metric.
type Rankings struct {
	FinYear          string         `json:"fin_year"`
	Metric           string         `json:"metric"`
	TotalDistricts   int            `json:"total_districts"`
	TopPerformers    []RankingEntry `json:"top_performers"`
	BottomPerformers []RankingEntry `json:"bottom_performers"`
}

// DefaultRankingMetric and DefaultRankingLimit apply when the request
// leaves them out.
const (
	DefaultRankingMetric = "households_worked"
	DefaultRankingLimit  = 10
)

var rankingMetrics = map[string]func(RankingEntry) float64{
	"households_worked":   func(e RankingEntry) float64 { return float64(e.HouseholdsWorked) },
	"expenditure":         func(e RankingEntry) float64 { return e.Expenditure },
	"wage_rate":           func(e RankingEntry) float64 { return e.WageRate },
	"work_completion":     func(e RankingEntry) float64 { return e.WorkCompletionRate },
	"women_participation": func(e RankingEntry) float64 { return e.WomenParticipationRate },
	"performance":         func(e RankingEntry) float64 { return e.PerformanceScore },
}

// RankingMetrics lists the accepted metric names.
func RankingMetrics() []string {
	names := make([]string, 0, len(rankingMetrics))
	for k := range rankingMetrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Rankings ranks every district of finYear on metric, highest first.
// The bottom list holds the last limit districts, worst first.
func (s *Service) Rankings(ctx context.Context, finYear, metric string, limit int) (Rankings, error) {
	if metric == "" {
		metric = DefaultRankingMetric
	}
	value, ok := rankingMetrics[metric]
	if !ok {
		return Rankings{}, invalidInput("Unknown metric " + metric + "; expected one of " + strings.Join(RankingMetrics(), ", "))
	}
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	records, err := s.repo.Find(ctx, store.Filter{FinYears: []string{finYear}})
	if err != nil {
		return Rankings{}, err
	}

	groups := groupByDistrict(records)
	entries := make([]RankingEntry, 0, len(groups))
	for _, g := range groups {
		agg := calc.AggregateRecords(g.records)
		perf := s.score(g.latest())
		entries = append(entries, RankingEntry{
			DistrictCode:           g.code,
			DistrictName:           g.name,
			HouseholdsWorked:       agg.TotalHouseholdsWorked,
			Expenditure:            r2(agg.TotalExpenditure),
			WageRate:               r2(agg.AvgWageRate),
			WorkCompletionRate:     r2(agg.WorkCompletionRate),
			WomenParticipationRate: r2(agg.WomenParticipationRate),
			PerformanceScore:       perf.Overall,
			PerformanceRating:      perf.Rating,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return value(entries[i]) > value(entries[j]) })
	values := make([]float64, len(entries))
	for i := range entries {
		values[i] = value(entries[i])
	}
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Percentile = r2(calc.Percentile(values[i], values))
	}

	n := min(limit, len(entries))
	top := append([]RankingEntry{}, entries[:n]...)
	bottom := make([]RankingEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		bottom = append(bottom, entries[i])
	}

	return Rankings{
		FinYear:          finYear,
		Metric:           metric,
		TotalDistricts:   len(entries),
		TopPerformers:    top,
		BottomPerformers: bottom,
	}, nil
}

type TargetDistrict struct {
	DistrictCode     string `json:"district_code"`
	DistrictName     string `json:"district_name"`
	HouseholdsWorked int64  `json:"households_worked"`
}

type PeerMetrics struct {
	Expenditure            float64 `json:"expenditure"`
	AvgWageRate            float64 `json:"avg_wage_rate"`
	WorkCompletionRate     float64 `json:"work_completion_rate"`
	WomenParticipationRate float64 `json:"women_participation_rate"`
}

type Peer struct {
	DistrictCode             string      `json:"district_code"`
	DistrictName             string      `json:"district_name"`
	HouseholdsWorked         int64       `json:"households_worked"`
	SizeDifferencePercentage float64     `json:"size_difference_percentage"`
	Metrics                  PeerMetrics `json:"metrics"`
	PerformanceScore         float64     `json:"performance_score"`
	PerformanceRating        string      `json:"performance_rating"`
}

// Peers lists districts of similar size to a target district.
type Peers struct {
	TargetDistrict TargetDistrict `json:"target_district"`
	Peers          []Peer         `json:"peers"`
	PeerCount      int            `json:"peer_count"`
}

// Peers finds districts whose households worked are within the peer band
// of the target's, best scoring first.
func (s *Service) Peers(ctx context.Context, districtCode, finYear string) (Peers, error) {
	records, err := s.repo.Find(ctx, store.Filter{FinYears: []string{finYear}})
	if err != nil {
		return Peers{}, err
	}

	var target *districtGroup
	groups := groupByDistrict(records)
	for i := range groups {
		if groups[i].code == districtCode {
			target = &groups[i]
			break
		}
	}
	if target == nil {
		return Peers{}, notFound("District not found")
	}
	targetSize := calc.AggregateRecords(target.records).TotalHouseholdsWorked

	peers := []Peer{}
	for _, g := range groups {
		if g.code == districtCode {
			continue
		}
		agg := calc.AggregateRecords(g.records)
		diff, ok := calc.PeerMatch(targetSize, agg.TotalHouseholdsWorked)
		if !ok {
			continue
		}
		perf := s.score(g.latest())
		peers = append(peers, Peer{
			DistrictCode:             g.code,
			DistrictName:             g.name,
			HouseholdsWorked:         agg.TotalHouseholdsWorked,
			SizeDifferencePercentage: r2(diff),
			Metrics: PeerMetrics{
				Expenditure:            r2(agg.TotalExpenditure),
				AvgWageRate:            r2(agg.AvgWageRate),
				WorkCompletionRate:     r2(agg.WorkCompletionRate),
				WomenParticipationRate: r2(agg.WomenParticipationRate),
			},
			PerformanceScore:  perf.Overall,
			PerformanceRating: perf.Rating,
		})
	}
	sort.SliceStable(peers, func(i, j int) bool { return peers[i].PerformanceScore > peers[j].PerformanceScore })

	return Peers{
		TargetDistrict: TargetDistrict{
			DistrictCode:     districtCode,
			DistrictName:     target.name,
			HouseholdsWorked: targetSize,
		},
		Peers:     peers,
		PeerCount: len(peers),
	}, nil
}
