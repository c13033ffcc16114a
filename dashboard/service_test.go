package dashboard

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
	"github.com/doshiMiraj/MGNREGA-Dashboard/store"
)

const testState = "UTTAR PRADESH"

type memRepo struct {
	records []models.MonthlyRecord
	err     error
}

func (m *memRepo) Find(_ context.Context, f store.Filter) ([]models.MonthlyRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.MonthlyRecord{}
	for _, r := range m.records {
		if len(f.DistrictCodes) > 0 && !slices.Contains(f.DistrictCodes, r.DistrictCode) {
			continue
		}
		if len(f.FinYears) > 0 && !slices.Contains(f.FinYears, r.FinYear) {
			continue
		}
		if f.YearFrom != "" && f.YearTo != "" && (r.FinYear < f.YearFrom || r.FinYear > f.YearTo) {
			continue
		}
		if f.StateName != "" && r.StateName != f.StateName {
			continue
		}
		out = append(out, r)
	}
	models.SortChronological(out)
	return out, nil
}

func (m *memRepo) Latest(ctx context.Context, code string) (models.MonthlyRecord, error) {
	recs, _ := m.Find(ctx, store.Filter{DistrictCodes: []string{code}})
	if len(recs) == 0 {
		return models.MonthlyRecord{}, store.ErrNotFound
	}
	return recs[len(recs)-1], nil
}

func (m *memRepo) DistrictList(_ context.Context, finYear string) ([]models.DistrictRef, error) {
	seen := map[string]bool{}
	out := []models.DistrictRef{}
	for _, r := range m.records {
		if (finYear != "" && r.FinYear != finYear) || seen[r.DistrictCode] {
			continue
		}
		seen[r.DistrictCode] = true
		out = append(out, models.DistrictRef{Code: r.DistrictCode, Name: r.DistrictName, State: r.StateName})
	}
	return out, nil
}

func (m *memRepo) AvailableYears(context.Context) ([]string, error) { return nil, nil }

// rec builds a record whose derived rates are easy to compute by hand.
func rec(code, name, year, month string, households int64) models.MonthlyRecord {
	return models.MonthlyRecord{
		FinYear:                     year,
		Month:                       month,
		StateName:                   testState,
		DistrictCode:                code,
		DistrictName:                name,
		HouseholdsWorked:            households,
		IndividualsWorked:           households * 2,
		CentralLiabilityPersondays:  households * 40,
		WomenPersondays:             households * 20,
		SCPersondays:                households * 10,
		STPersondays:                households * 2,
		AverageDaysOfEmployment:     40,
		AverageWageRate:             230,
		PercentPaymentsWithin15Days: 90,
		CompletedWorks:              60,
		OngoingWorks:                40,
		WorksTakenUp:                100,
		TotalExp:                    float64(households) / 100,
		Wages:                       float64(households) * 0.092,
		MaterialWages:               float64(households) / 400,
	}
}

func newService(records ...models.MonthlyRecord) *Service {
	return New(&memRepo{records: records}, calc.DefaultConfig(), testState, nil)
}

func TestErrorKinds(t *testing.T) {
	_, err := newService().DistrictStats(context.Background(), "1", "2024-2025")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "District not found", err.Error())

	_, err = newService().CompareDistricts(context.Background(), []string{"1", " 1 ", ""}, "2024-2025")
	assert.ErrorIs(t, err, ErrInvalidInput)

	boom := errors.New("db down")
	s := New(&memRepo{err: boom}, calc.DefaultConfig(), testState, nil)
	_, err = s.StateStats(context.Background(), "2024-2025")
	assert.ErrorIs(t, err, boom)

	_, err = newService().Latest(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistrictListDisplayNames(t *testing.T) {
	repo := &memRepo{records: []models.MonthlyRecord{
		rec("3155", "SANT KABIR NAGAR", "2024-2025", "Apr", 10),
		rec("3101", "AGRA", "2023-2024", "Apr", 10),
	}}
	svc := New(repo, calc.DefaultConfig(), testState, nil)

	list, err := svc.DistrictList(context.Background(), "2024-2025")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Sant Kabir Nagar", list[0].DisplayName)
	assert.Equal(t, "SANT KABIR NAGAR", list[0].Name)
}

func TestSummaryUsesCumulativeMaximum(t *testing.T) {
	a := rec("3126", "LUCKNOW", "2024-2025", "Apr", 100)
	a.OngoingWorks = 5
	a.AverageWageRate = 200
	a.TotalExp = 1.25
	b := rec("3126", "LUCKNOW", "2024-2025", "May", 300)
	b.OngoingWorks = 9
	b.AverageWageRate = 250
	b.TotalExp = 2.5
	b.CompletedWorks = 10

	sum, err := newService(b, a).Summary(context.Background(), "3126", "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, Summary{
		DistrictName:           "LUCKNOW",
		DistrictCode:           "3126",
		FinYear:                "2024-2025",
		TotalHouseholdsWorked:  300,
		TotalIndividualsWorked: 600,
		TotalExpenditure:       3.75,
		TotalPersondays:        12000,
		CompletedWorks:         60,
		OngoingWorks:           9,
		AverageWageRate:        225,
		MonthsData:             2,
	}, sum)
}

func TestDistrictStats(t *testing.T) {
	s := newService(
		rec("3126", "LUCKNOW", "2024-2025", "Jan", 1000),
		rec("3126", "LUCKNOW", "2024-2025", "Apr", 1000),
	)
	st, err := s.DistrictStats(context.Background(), "3126", "2024-2025")
	require.NoError(t, err)

	assert.Equal(t, int64(2000), st.Summary.TotalHouseholdsWorked)
	assert.Equal(t, 20.0, st.Summary.TotalExpenditure)
	assert.Equal(t, 40.0, st.Averages.AvgEmploymentDays)
	assert.Equal(t, 230.0, st.Averages.AvgWageRate)
	assert.Equal(t, 60.0, st.Averages.WorkCompletionRate)
	assert.Equal(t, 50.0, st.Averages.WomenParticipationRate)

	require.Len(t, st.MonthlyBreakdown, 2)
	assert.Equal(t, "Apr", st.MonthlyBreakdown[0].Month)
	assert.Equal(t, "Jan", st.MonthlyBreakdown[1].Month)

	assert.Equal(t, 1000.0, st.Efficiency.CostPerHousehold)
	assert.Equal(t, 25.0, st.Efficiency.CostPerPersonday)
	assert.Equal(t, 36.8, st.Efficiency.WageToMaterialRatio)
	// 75*0.3 + 80*0.2 + 100*0.2 + 75*0.2 + 100*0.1
	assert.Equal(t, 83.5, st.Performance.Overall)
	assert.Equal(t, calc.RatingExcellent, st.Performance.Rating)
}

func TestStateStats(t *testing.T) {
	other := rec("9901", "ELSEWHERE", "2024-2025", "Apr", 5000)
	other.StateName = "BIHAR"
	s := newService(
		rec("3126", "LUCKNOW", "2024-2025", "Apr", 1000),
		rec("3101", "SAHARANPUR", "2024-2025", "Apr", 3001),
		other,
	)
	st, err := s.StateStats(context.Background(), "2024-2025")
	require.NoError(t, err)

	assert.Equal(t, testState, st.State)
	assert.Equal(t, 2, st.TotalDistricts)
	assert.Equal(t, int64(4001), st.Employment.TotalHouseholdsWorked)
	assert.Equal(t, 40.01, st.Financial.TotalExpenditureLakhs)
	assert.Equal(t, 0.4, st.Financial.TotalExpenditureCrores)
	assert.Equal(t, int64(2001), st.PerDistrictAverage.AvgHouseholds)
	assert.InDelta(t, 20.005, st.PerDistrictAverage.AvgExpenditure, 0.006)
	assert.Equal(t, 25.0, st.Demographics.SCParticipationRate)
	assert.Equal(t, 5.0, st.Demographics.STParticipationRate)
}

func TestDashboard(t *testing.T) {
	var records []models.MonthlyRecord
	for i, code := range []string{"01", "02", "03", "04", "05", "06", "07"} {
		r := rec(code, "D"+code, "2024-2025", "Apr", int64(100*(i+1)))
		r.AverageDaysOfEmployment = float64(10 * (i + 1))
		r.PercentPaymentsWithin15Days = float64(80 + i)
		records = append(records, r)
	}
	d, err := newService(records...).Dashboard(context.Background(), "2024-2025")
	require.NoError(t, err)

	assert.Equal(t, 7, d.Overview.TotalDistricts)
	assert.Equal(t, 83.0, d.KeyMetrics.PaymentEfficiency)
	require.Len(t, d.TopPerformers.ByHouseholds, 5)
	assert.Equal(t, "07", d.TopPerformers.ByHouseholds[0].DistrictCode)
	assert.Equal(t, "07", d.TopPerformers.ByPerformance[0].DistrictCode)
	require.Len(t, d.BottomPerformers.ByPerformance, 5)
	assert.Equal(t, "01", d.BottomPerformers.ByPerformance[0].DistrictCode)
	assert.LessOrEqual(t, d.BottomPerformers.ByPerformance[0].PerformanceScore, d.BottomPerformers.ByPerformance[1].PerformanceScore)
}

func TestDemographics(t *testing.T) {
	s := newService(rec("3126", "LUCKNOW", "2024-2025", "Apr", 100), rec("3101", "SAHARANPUR", "2024-2025", "Apr", 100))

	state, err := s.Demographics(context.Background(), "2024-2025", "")
	require.NoError(t, err)
	assert.Equal(t, "state", state.Scope)
	assert.Empty(t, state.DistrictName)
	assert.Equal(t, int64(8000), state.TotalPersondays)
	assert.Equal(t, Share{Persondays: 4000, Percentage: 50}, state.Breakdown.Women)
	assert.Equal(t, Share{Persondays: 5600, Percentage: 70}, state.Breakdown.General)

	district, err := s.Demographics(context.Background(), "2024-2025", "3126")
	require.NoError(t, err)
	assert.Equal(t, "district", district.Scope)
	assert.Equal(t, "LUCKNOW", district.DistrictName)
	assert.Equal(t, int64(4000), district.TotalPersondays)
}

func TestCompareDistricts(t *testing.T) {
	weak := rec("3101", "SAHARANPUR", "2024-2025", "Apr", 100)
	weak.AverageDaysOfEmployment = 5
	s := newService(rec("3126", "LUCKNOW", "2024-2025", "Apr", 100), weak)

	cmp, err := s.CompareDistricts(context.Background(), []string{"3126", "3101", "9999"}, "2024-2025")
	require.NoError(t, err)
	assert.Equal(t, 2, cmp.DistrictsCompared)
	assert.Equal(t, "3101", cmp.Comparison[0].DistrictCode)
	assert.Equal(t, "3126", cmp.Rankings.BestPerformer.DistrictCode)
	assert.Equal(t, "3101", cmp.Rankings.WorstPerformer.DistrictCode)

	_, err = s.CompareDistricts(context.Background(), []string{"7", "8"}, "2024-2025")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareWithState(t *testing.T) {
	s := newService(
		rec("3126", "LUCKNOW", "2024-2025", "Apr", 300),
		rec("3101", "SAHARANPUR", "2024-2025", "Apr", 100),
	)
	vs, err := s.CompareWithState(context.Background(), "3126", "2024-2025")
	require.NoError(t, err)

	hh := vs.Comparison.HouseholdsWorked
	assert.Equal(t, 300.0, hh.District)
	assert.Equal(t, 200.0, hh.StateAvg)
	require.NotNil(t, hh.DifferencePercentage)
	assert.Equal(t, 50.0, *hh.DifferencePercentage)
	assert.Equal(t, StatusAbove, hh.Status)

	// Equal rates are not above the state.
	assert.Equal(t, StatusBelow, vs.Comparison.WageRate.Status)
	assert.Equal(t, 2, vs.Summary.MetricsAboveStateAvg)
	assert.Equal(t, 3, vs.Summary.MetricsBelowStateAvg)
	assert.Equal(t, vs.DistrictPerformance.Rating, vs.Summary.OverallPerformance)
}

func TestRankings(t *testing.T) {
	s := newService(
		rec("01", "A", "2024-2025", "Apr", 100),
		rec("02", "B", "2024-2025", "Apr", 300),
		rec("03", "C", "2024-2025", "Apr", 200),
	)
	r, err := s.Rankings(context.Background(), "2024-2025", "", 2)
	require.NoError(t, err)

	assert.Equal(t, DefaultRankingMetric, r.Metric)
	assert.Equal(t, 3, r.TotalDistricts)
	require.Len(t, r.TopPerformers, 2)
	assert.Equal(t, "02", r.TopPerformers[0].DistrictCode)
	assert.Equal(t, 1, r.TopPerformers[0].Rank)
	assert.Equal(t, 100.0, r.TopPerformers[0].Percentile)
	assert.Equal(t, "03", r.TopPerformers[1].DistrictCode)
	assert.Equal(t, 50.0, r.TopPerformers[1].Percentile)

	require.Len(t, r.BottomPerformers, 2)
	assert.Equal(t, "01", r.BottomPerformers[0].DistrictCode)
	assert.Equal(t, 3, r.BottomPerformers[0].Rank)
	assert.Equal(t, 0.0, r.BottomPerformers[0].Percentile)

	_, err = s.Rankings(context.Background(), "2024-2025", "popularity", 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty, err := s.Rankings(context.Background(), "1999-2000", "performance", 0)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDistricts)
	assert.Empty(t, empty.TopPerformers)
	assert.Empty(t, empty.BottomPerformers)
}

func TestPeers(t *testing.T) {
	s := newService(
		rec("01", "TARGET", "2024-2025", "Apr", 1000),
		rec("02", "JUST_IN", "2024-2025", "Apr", 1200),
		rec("03", "JUST_OUT", "2024-2025", "Apr", 1201),
		rec("04", "SMALLER", "2024-2025", "Apr", 800),
		rec("05", "TINY", "2024-2025", "Apr", 10),
	)
	p, err := s.Peers(context.Background(), "01", "2024-2025")
	require.NoError(t, err)

	assert.Equal(t, TargetDistrict{DistrictCode: "01", DistrictName: "TARGET", HouseholdsWorked: 1000}, p.TargetDistrict)
	assert.Equal(t, 2, p.PeerCount)
	codes := []string{p.Peers[0].DistrictCode, p.Peers[1].DistrictCode}
	assert.ElementsMatch(t, []string{"02", "04"}, codes)
	assert.GreaterOrEqual(t, p.Peers[0].PerformanceScore, p.Peers[1].PerformanceScore)

	_, err = s.Peers(context.Background(), "99", "2024-2025")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeersOfEmptyDistrict(t *testing.T) {
	s := newService(rec("01", "ZERO", "2024-2025", "Apr", 0), rec("02", "ALSO_ZERO", "2024-2025", "Apr", 0))
	p, err := s.Peers(context.Background(), "01", "2024-2025")
	require.NoError(t, err)
	assert.Zero(t, p.PeerCount)
	assert.NotNil(t, p.Peers)
}

func TestDistrictTrends(t *testing.T) {
	s := newService(
		rec("3126", "LUCKNOW", "2022-2023", "Apr", 100),
		rec("3126", "LUCKNOW", "2023-2024", "May", 150),
		rec("3126", "LUCKNOW", "2023-2024", "Apr", 50),
		rec("3126", "LUCKNOW", "2024-2025", "Apr", 400),
	)

	all, err := s.DistrictTrends(context.Background(), "3126", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2022-2023", "2023-2024", "2024-2025"}, all.Years)
	assert.Equal(t, "Apr", all.MonthlyTrends["2023-2024"][0].Month)
	assert.Equal(t, int64(200), all.YearlySummary["2023-2024"].TotalHouseholdsWorked)
	require.Len(t, all.YoYComparison, 2)
	assert.Equal(t, "2023-2024", all.YoYComparison[0].Year)
	assert.Equal(t, 100.0, *all.YoYComparison[0].Changes.HouseholdsChange)
	assert.Equal(t, 100.0, *all.YoYComparison[1].Changes.HouseholdsChange)

	ranged, err := s.DistrictTrends(context.Background(), "3126", "", "2023-2024", "2024-2025")
	require.NoError(t, err)
	assert.Len(t, ranged.Years, 2)

	single, err := s.DistrictTrends(context.Background(), "3126", "2024-2025", "", "")
	require.NoError(t, err)
	assert.Nil(t, single.YoYComparison)

	_, err = s.DistrictTrends(context.Background(), "0000", "", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonthlyComparison(t *testing.T) {
	s := newService(
		rec("3126", "LUCKNOW", "2023-2024", "Apr", 100),
		rec("3126", "LUCKNOW", "2024-2025", "Apr", 200),
		rec("3126", "LUCKNOW", "2024-2025", "Jan", 300),
	)
	mc, err := s.MonthlyComparison(context.Background(), "3126", []string{"2023-2024", "2024-2025"})
	require.NoError(t, err)

	assert.Len(t, mc.MonthlyComparison, 12)
	assert.Equal(t, int64(100), mc.MonthlyComparison["Apr"]["2023-2024"].HouseholdsWorked)
	assert.Equal(t, int64(200), mc.MonthlyComparison["Apr"]["2024-2025"].HouseholdsWorked)
	assert.Len(t, mc.MonthlyComparison["Jan"], 1)
	assert.Empty(t, mc.MonthlyComparison["Dec"])

	_, err = s.MonthlyComparison(context.Background(), "3126", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStateTrends(t *testing.T) {
	s := newService(
		rec("01", "A", "2024-2025", "Jan", 10),
		rec("02", "B", "2024-2025", "Apr", 20),
		rec("01", "A", "2024-2025", "Apr", 30),
		rec("01", "A", "2023-2024", "Mar", 5),
	)
	st, err := s.StateTrends(context.Background(), "", "", "")
	require.NoError(t, err)
	require.Len(t, st.Trends, 3)
	assert.Equal(t, "2023-2024", st.Trends[0].FinYear)
	assert.Equal(t, "Apr", st.Trends[1].Month)
	assert.Equal(t, int64(50), st.Trends[1].TotalHouseholdsWorked)
	assert.Equal(t, 2, st.Trends[1].Count)
	assert.Equal(t, "Jan", st.Trends[2].Month)
}

func TestPerformanceEvolution(t *testing.T) {
	a := rec("3126", "LUCKNOW", "2024-2025", "Apr", 100)
	a.WorksTakenUp = 0
	s := newService(a, rec("3126", "LUCKNOW", "2024-2025", "May", 100))

	ev, err := s.PerformanceEvolution(context.Background(), "3126", "2024-2025")
	require.NoError(t, err)
	require.Len(t, ev.Evolution, 2)
	assert.Zero(t, ev.Evolution[0].KeyMetrics.WorkCompletionRate)
	assert.Zero(t, ev.Evolution[0].Scores.WorkCompletion)
	assert.Equal(t, 60.0, ev.Evolution[1].KeyMetrics.WorkCompletionRate)
	assert.Equal(t, 75.0, ev.Evolution[1].Scores.WorkCompletion)
}
