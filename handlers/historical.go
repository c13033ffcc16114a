package handlers

import (
	"context"
	"net/http"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
)

func readRange(r *http.Request, withDistrict bool) rangeQuery {
	q := rangeQuery{
		FinYear:   queryParam(r, "finYear"),
		StartYear: queryParam(r, "startYear"),
		EndYear:   queryParam(r, "endYear"),
	}
	if withDistrict {
		q.DistrictCode = pathCode(r)
	}
	return q
}

// GetDistrictTrends returns a district's monthly and yearly history.
func (h *Handler) GetDistrictTrends(w http.ResponseWriter, r *http.Request) {
	q := readRange(r, true)
	if q.DistrictCode == "" {
		h.badRequest(w, "District code is required")
		return
	}
	if err := q.check(); err != nil {
		h.fail(w, r, err, "")
		return
	}
	params := map[string]string{
		"districtCode": q.DistrictCode,
		"finYear":      q.FinYear,
		"startYear":    q.StartYear,
		"endYear":      q.EndYear,
	}
	cached(h, w, r, cache.TypeStatsDistrictTrends, params, cache.TTLTrends, "Failed to fetch historical trends",
		func(ctx context.Context) (dashboard.DistrictTrends, error) {
			return h.svc.DistrictTrends(ctx, q.DistrictCode, q.FinYear, q.StartYear, q.EndYear)
		})
}

// GetMonthlyComparison compares each month across several years.
func (h *Handler) GetMonthlyComparison(w http.ResponseWriter, r *http.Request) {
	q := monthlyComparisonQuery{DistrictCode: pathCode(r), Years: splitParam(queryParam(r, "years"))}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	cmp, err := h.svc.MonthlyComparison(r.Context(), q.DistrictCode, q.Years)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch monthly comparison")
		return
	}
	h.respond(w, SourceDatabase, cmp)
}

// GetStateTrends returns the state's month-by-month aggregates.
func (h *Handler) GetStateTrends(w http.ResponseWriter, r *http.Request) {
	q := readRange(r, false)
	if err := q.check(); err != nil {
		h.fail(w, r, err, "")
		return
	}
	params := map[string]string{"finYear": q.FinYear, "startYear": q.StartYear, "endYear": q.EndYear}
	cached(h, w, r, cache.TypeStatsStateTrends, params, cache.TTLTrends, "Failed to fetch state trends",
		func(ctx context.Context) (dashboard.StateTrends, error) {
			return h.svc.StateTrends(ctx, q.FinYear, q.StartYear, q.EndYear)
		})
}

// GetPerformanceEvolution scores a district month by month.
func (h *Handler) GetPerformanceEvolution(w http.ResponseWriter, r *http.Request) {
	q := readRange(r, true)
	if err := q.check(); err != nil {
		h.fail(w, r, err, "")
		return
	}
	evo, err := h.svc.PerformanceEvolution(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch performance evolution")
		return
	}
	h.respond(w, SourceDatabase, evo)
}
