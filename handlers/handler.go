// Package handlers serves the dashboard API over HTTP.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
	"github.com/doshiMiraj/MGNREGA-Dashboard/syncer"
)

// Syncer pulls fresh data from the upstream API.
type Syncer interface {
	SyncFinancialYear(ctx context.Context, finYear string) (syncer.Result, error)
	SyncMultipleYears(ctx context.Context, years []string) (syncer.MultiResult, error)
	SyncDistrict(ctx context.Context, districtCode, finYear string) (syncer.Result, error)
	Status(ctx context.Context, runLimit int) (syncer.Status, error)
}

// Job is the scheduled sync.
type Job interface {
	Status() syncer.JobStatus
	Trigger() error
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Options configure a Handler.
type Options struct {
	// AdminToken, when set, must be sent as X-Admin-Token on admin routes.
	AdminToken string
	// SiteURL is the public front end that sitemap entries point to.
	SiteURL     string
	Environment string
	Version     string
	// Checks are run by the detailed health endpoint, keyed by name.
	Checks map[string]Check
}

// Handler holds the collaborators of every route.
type Handler struct {
	svc    *dashboard.Service
	cache  *cache.Cache
	sync   Syncer
	job    Job
	opts   Options
	logger *slog.Logger

	started time.Time
	now     func() time.Time
}

// New returns a Handler. s and job may be nil, in which case empty
// results are not filled from the API and admin sync routes answer 503.
func New(svc *dashboard.Service, c *cache.Cache, s Syncer, job Job, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	return &Handler{
		svc:     svc,
		cache:   c,
		sync:    s,
		job:     job,
		opts:    opts,
		logger:  logger.With("component", "handlers"),
		started: time.Now(),
		now:     time.Now,
	}
}

// RegisterRoutes mounts the API on api, normally the /api/v1 subrouter.
func (h *Handler) RegisterRoutes(api *mux.Router) {
	// District routes
	api.HandleFunc("/districts", h.GetAllDistricts).Methods(http.MethodGet)
	api.HandleFunc("/districts/list", h.GetDistrictList).Methods(http.MethodGet)
	api.HandleFunc("/districts/years/available", h.GetAvailableYears).Methods(http.MethodGet)
	api.HandleFunc("/districts/{districtCode}", h.GetDistrict).Methods(http.MethodGet)
	api.HandleFunc("/districts/{districtCode}/latest", h.GetLatestDistrict).Methods(http.MethodGet)
	api.HandleFunc("/districts/{districtCode}/summary", h.GetDistrictSummary).Methods(http.MethodGet)
	api.HandleFunc("/districts/{districtCode}/export", h.ExportDistrict).Methods(http.MethodGet)

	// Statistics routes
	api.HandleFunc("/stats/state", h.GetStateStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/district/{districtCode}", h.GetDistrictStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/dashboard", h.GetDashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/demographics", h.GetDemographics).Methods(http.MethodGet)

	// Comparison routes
	api.HandleFunc("/comparison/districts", h.CompareDistricts).Methods(http.MethodGet)
	api.HandleFunc("/comparison/district/{districtCode}/vs-state", h.CompareWithState).Methods(http.MethodGet)
	api.HandleFunc("/comparison/rankings", h.GetRankings).Methods(http.MethodGet)
	api.HandleFunc("/comparison/district/{districtCode}/peers", h.GetPeers).Methods(http.MethodGet)

	// Historical routes
	api.HandleFunc("/historical/district/{districtCode}/trends", h.GetDistrictTrends).Methods(http.MethodGet)
	api.HandleFunc("/historical/district/{districtCode}/monthly-comparison", h.GetMonthlyComparison).Methods(http.MethodGet)
	api.HandleFunc("/historical/district/{districtCode}/performance-evolution", h.GetPerformanceEvolution).Methods(http.MethodGet)
	api.HandleFunc("/historical/state/trends", h.GetStateTrends).Methods(http.MethodGet)

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/sync", h.StartSync).Methods(http.MethodPost)
	admin.HandleFunc("/sync/district/{districtCode}", h.SyncDistrict).Methods(http.MethodPost)
	admin.HandleFunc("/sync/status", h.GetSyncStatus).Methods(http.MethodGet)
	admin.HandleFunc("/cache", h.ClearCache).Methods(http.MethodDelete)
	admin.HandleFunc("/cache/stats", h.GetCacheStats).Methods(http.MethodGet)

	// Sitemap routes
	api.HandleFunc("/sitemaps", h.GetSitemapIndex).Methods(http.MethodGet)
	api.HandleFunc("/sitemaps/districts", h.GetDistrictsSitemap).Methods(http.MethodGet)

	// Health check
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/health/detailed", h.DetailedHealth).Methods(http.MethodGet)
}

// RegisterRootRoutes mounts the endpoint index and the bare health check.
func (h *Handler) RegisterRootRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
}

// APIPrefixes are the mount points of the API routes. The unversioned
// prefix serves clients written against the earlier /api paths.
var APIPrefixes = []string{"/api/v1", "/api"}

// Mount registers the API under every prefix in APIPrefixes, wrapped in mw,
// followed by the root routes.
func (h *Handler) Mount(r *mux.Router, mw ...mux.MiddlewareFunc) {
	for _, prefix := range APIPrefixes {
		api := r.PathPrefix(prefix).Subrouter()
		api.Use(mw...)
		h.RegisterRoutes(api)
	}
	h.RegisterRootRoutes(r)
}
