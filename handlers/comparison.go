package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
)

// CompareDistricts sets several districts side by side.
func (h *Handler) CompareDistricts(w http.ResponseWriter, r *http.Request) {
	q := compareQuery{Codes: dashboard.CleanCodes(splitParam(queryParam(r, "codes"))), FinYear: queryParam(r, "finYear")}
	if len(q.Codes) == 0 || q.FinYear == "" {
		h.badRequest(w, "District codes and financial year are required")
		return
	}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if len(q.Codes) < dashboard.MinCompared {
		h.badRequest(w, "At least 2 districts are required for comparison")
		return
	}

	params := map[string]string{"codes": strings.Join(q.Codes, ","), "finYear": q.FinYear}
	cached(h, w, r, cache.TypeComparison, params, cache.TTLComparison, "Failed to compare districts",
		func(ctx context.Context) (dashboard.Comparison, error) {
			return h.svc.CompareDistricts(ctx, q.Codes, q.FinYear)
		})
}

// CompareWithState measures a district against the state average.
func (h *Handler) CompareWithState(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	vs, err := h.svc.CompareWithState(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to compare with state average")
		return
	}
	h.respond(w, SourceDatabase, vs)
}

// GetRankings ranks districts by one metric.
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", dashboard.DefaultRankingLimit)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	q := rankingsQuery{FinYear: queryParam(r, "finYear"), Metric: queryParam(r, "metric"), Limit: limit}
	if q.Metric == "" {
		q.Metric = dashboard.DefaultRankingMetric
	}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}

	params := map[string]string{"finYear": q.FinYear, "metric": q.Metric, "limit": strconv.Itoa(q.Limit)}
	cached(h, w, r, cache.TypeStatsRankings, params, cache.TTLRankings, "Failed to get rankings",
		func(ctx context.Context) (dashboard.Rankings, error) {
			return h.svc.Rankings(ctx, q.FinYear, q.Metric, q.Limit)
		})
}

// GetPeers lists districts of similar size.
func (h *Handler) GetPeers(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	peers, err := h.svc.Peers(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to compare with peers")
		return
	}
	h.respond(w, SourceDatabase, peers)
}
