package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/syncer"
)

// AdminTokenHeader authenticates admin requests.
const AdminTokenHeader = "X-Admin-Token"

var cacheTypes = []string{
	cache.TypeDistrict,
	cache.TypeAllDistricts,
	cache.TypeDistrictList,
	cache.TypeComparison,
	cache.TypeStatsState,
	cache.TypeStatsDashboard,
	cache.TypeStatsRankings,
	cache.TypeStatsDistrictTrends,
	cache.TypeStatsStateTrends,
	cache.TypeSitemap,
}

// recentRuns is how many sync runs the status endpoint lists.
const recentRuns = 10

// requireAdmin rejects requests without the admin token when one is
// configured.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.AdminToken != "" {
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.AdminToken)) != 1 {
				h.logger.Warn("rejected admin request", "path", r.URL.Path)
				h.writeJSON(w, http.StatusUnauthorized, Response{Message: "Unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) syncUnavailable(w http.ResponseWriter) bool {
	if h.sync == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, Response{Message: "Sync is not configured"})
		return true
	}
	return false
}

// syncFailed reports a failed upstream sync.
func (h *Handler) syncFailed(w http.ResponseWriter, r *http.Request, err error, data any) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.writeJSON(w, http.StatusGatewayTimeout, Response{Data: data, Message: "Sync did not finish"})
		return
	}
	h.logger.Error("sync failed", "path", r.URL.Path, "error", err)
	resp := Response{Data: data, Message: "Failed to sync data"}
	if h.opts.Environment == "development" {
		resp.Error = err.Error()
	}
	h.writeJSON(w, http.StatusBadGateway, resp)
}

// StartSync syncs one year (finYear), several years (years=a,b) or, with
// neither, starts the scheduled job in the background.
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	if h.syncUnavailable(w) {
		return
	}
	finYear := queryParam(r, "finYear")
	years := splitParam(queryParam(r, "years"))

	switch {
	case finYear != "":
		if err := check(yearQuery{FinYear: finYear}); err != nil {
			h.fail(w, r, err, "")
			return
		}
		res, err := h.sync.SyncFinancialYear(r.Context(), finYear)
		if err != nil {
			h.syncFailed(w, r, err, res)
			return
		}
		h.writeJSON(w, http.StatusOK, Response{Success: true, Data: res, Message: "Sync completed"})

	case len(years) > 0:
		q := yearsQuery{Years: years}
		if err := check(q); err != nil {
			h.fail(w, r, err, "")
			return
		}
		res, err := h.sync.SyncMultipleYears(r.Context(), q.Years)
		if err != nil {
			h.syncFailed(w, r, err, res)
			return
		}
		h.writeJSON(w, http.StatusOK, Response{Success: res.Success, Data: res, Message: "Sync completed"})

	default:
		if h.job == nil {
			h.writeJSON(w, http.StatusServiceUnavailable, Response{Message: "Sync job is not configured"})
			return
		}
		if err := h.job.Trigger(); err != nil {
			if errors.Is(err, syncer.ErrAlreadyRunning) {
				h.writeJSON(w, http.StatusConflict, Response{Message: "Sync already in progress"})
				return
			}
			h.fail(w, r, err, "Failed to start sync")
			return
		}
		h.writeJSON(w, http.StatusAccepted, Response{Success: true, Message: "Sync started"})
	}
}

// SyncDistrict refreshes one district for a financial year.
func (h *Handler) SyncDistrict(w http.ResponseWriter, r *http.Request) {
	if h.syncUnavailable(w) {
		return
	}
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	res, err := h.sync.SyncDistrict(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.syncFailed(w, r, err, res)
		return
	}
	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: res, Message: "District sync completed"})
}

// SyncStatusReport combines the scheduler and the stored data.
type SyncStatusReport struct {
	Job      *syncer.JobStatus `json:"job,omitempty"`
	Database syncer.Status     `json:"database"`
}

// GetSyncStatus reports the scheduler, table totals and recent runs.
func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.syncUnavailable(w) {
		return
	}
	st, err := h.sync.Status(r.Context(), recentRuns)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch sync status")
		return
	}
	report := SyncStatusReport{Database: st}
	if h.job != nil {
		js := h.job.Status()
		report.Job = &js
	}
	h.respond(w, SourceDatabase, report)
}

// CacheCleared reports a cache invalidation.
type CacheCleared struct {
	Type    string    `json:"type,omitempty"`
	Deleted int       `json:"deleted"`
	At      time.Time `json:"cleared_at"`
}

// ClearCache drops every cached response, or only those of ?type=.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	typ := queryParam(r, "type")
	if typ != "" && !slices.Contains(cacheTypes, typ) {
		h.badRequest(w, "Unknown cache type")
		return
	}
	var n int
	if typ == "" {
		n = h.cache.InvalidateAll(r.Context())
	} else {
		n = h.cache.InvalidateType(r.Context(), typ)
	}
	h.logger.Info("cache cleared", "type", typ, "deleted", n)
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    CacheCleared{Type: typ, Deleted: n, At: h.now().UTC()},
		Message: "Cache cleared",
	})
}

// GetCacheStats reports cache counters.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "", h.cache.Stats())
}
