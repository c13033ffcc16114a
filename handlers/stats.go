package handlers

import (
	"context"
	"net/http"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
)

// GetStateStats aggregates the state for a financial year.
func (h *Handler) GetStateStats(w http.ResponseWriter, r *http.Request) {
	q := yearQuery{FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	cached(h, w, r, cache.TypeStatsState, map[string]string{"finYear": q.FinYear}, cache.TTLStatistics,
		"Failed to fetch state statistics",
		func(ctx context.Context) (dashboard.StateStats, error) {
			return h.svc.StateStats(ctx, q.FinYear)
		})
}

// GetDistrictStats reports one district year with its performance score.
func (h *Handler) GetDistrictStats(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	stats, err := h.svc.DistrictStats(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch district statistics")
		return
	}
	h.respond(w, SourceDatabase, stats)
}

// GetDashboardStats builds the landing page overview.
func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	q := yearQuery{FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	cached(h, w, r, cache.TypeStatsDashboard, map[string]string{"finYear": q.FinYear}, cache.TTLStatistics,
		"Failed to fetch dashboard statistics",
		func(ctx context.Context) (dashboard.Dashboard, error) {
			return h.svc.Dashboard(ctx, q.FinYear)
		})
}

// GetDemographics splits persondays by social group.
func (h *Handler) GetDemographics(w http.ResponseWriter, r *http.Request) {
	q := demographicsQuery{FinYear: queryParam(r, "finYear"), DistrictCode: queryParam(r, "districtCode")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	d, err := h.svc.Demographics(r.Context(), q.FinYear, q.DistrictCode)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch demographic statistics")
		return
	}
	h.respond(w, SourceDatabase, d)
}
