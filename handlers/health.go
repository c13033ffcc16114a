package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HealthResponse is the liveness reply.
type HealthResponse struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// DependencyStatus is the outcome of one health check.
type DependencyStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// DetailedHealthResponse adds the state of every dependency.
type DetailedHealthResponse struct {
	HealthResponse
	Version      string                      `json:"version"`
	CacheBackend string                      `json:"cache_backend"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Health reports that the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.health("ok"))
}

func (h *Handler) health(status string) HealthResponse {
	now := h.now()
	return HealthResponse{
		Status:      status,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Uptime:      now.Sub(h.started).Seconds(),
		Environment: h.opts.Environment,
	}
}

// DetailedHealth runs every dependency check. Any failure makes the reply
// 503 with status "error".
func (h *Handler) DetailedHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.opts.Checks))
	for name := range h.opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]DependencyStatus, len(names))
	healthy := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		start := time.Now()
		err := h.opts.Checks[name](ctx)
		cancel()

		st := DependencyStatus{Status: "connected", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			healthy = false
			st.Status = "error"
			st.Error = err.Error()
		}
		deps[name] = st
	}

	resp := DetailedHealthResponse{
		HealthResponse: h.health("ok"),
		Version:        h.opts.Version,
		CacheBackend:   h.cache.Backend(),
		Dependencies:   deps,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "error"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

// Index lists the API's endpoints.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "MGNREGA Dashboard API",
		"version": h.opts.Version,
		"endpoints": map[string]string{
			"health":         "/health",
			"detailedHealth": "/api/v1/health/detailed",

			"districts":        "/api/v1/districts?finYear=YYYY-YYYY",
			"districtList":     "/api/v1/districts/list",
			"availableYears":   "/api/v1/districts/years/available",
			"specificDistrict": "/api/v1/districts/:districtCode?finYear=YYYY-YYYY",
			"latestDistrict":   "/api/v1/districts/:districtCode/latest",
			"districtSummary":  "/api/v1/districts/:districtCode/summary?finYear=YYYY-YYYY",
			"districtExport":   "/api/v1/districts/:districtCode/export?finYear=YYYY-YYYY",

			"districtTrends":       "/api/v1/historical/district/:districtCode/trends?finYear=YYYY-YYYY",
			"monthlyComparison":    "/api/v1/historical/district/:districtCode/monthly-comparison?years=YYYY-YYYY,YYYY-YYYY",
			"performanceEvolution": "/api/v1/historical/district/:districtCode/performance-evolution?finYear=YYYY-YYYY",
			"stateTrends":          "/api/v1/historical/state/trends?finYear=YYYY-YYYY",

			"compareDistricts": "/api/v1/comparison/districts?codes=XXXX,XXXX&finYear=YYYY-YYYY",
			"compareWithState": "/api/v1/comparison/district/:districtCode/vs-state?finYear=YYYY-YYYY",
			"rankings":         "/api/v1/comparison/rankings?finYear=YYYY-YYYY&metric=households_worked",
			"peers":            "/api/v1/comparison/district/:districtCode/peers?finYear=YYYY-YYYY",

			"stateStats":     "/api/v1/stats/state?finYear=YYYY-YYYY",
			"districtStats":  "/api/v1/stats/district/:districtCode?finYear=YYYY-YYYY",
			"dashboardStats": "/api/v1/stats/dashboard?finYear=YYYY-YYYY",
			"demographics":   "/api/v1/stats/demographics?finYear=YYYY-YYYY",

			"sitemap": "/api/v1/sitemaps/districts",
		},
	})
}
