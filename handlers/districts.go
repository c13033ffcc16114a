package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gocarina/gocsv"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
	"github.com/doshiMiraj/MGNREGA-Dashboard/models"
)

const apiFetchedMessage = "Data fetched from API and cached"

// GetAllDistricts lists every record of a financial year. An empty
// database is filled from the upstream API first.
func (h *Handler) GetAllDistricts(w http.ResponseWriter, r *http.Request) {
	q := yearQuery{FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	ctx := r.Context()
	params := map[string]string{"finYear": q.FinYear}

	var hit []models.MonthlyRecord
	if h.cache.Get(ctx, cache.TypeAllDistricts, params, &hit) {
		h.respond(w, SourceCache, hit)
		return
	}

	records, err := h.svc.Records(ctx, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch districts")
		return
	}
	source := SourceDatabase
	if len(records) == 0 {
		records, err = h.fillYear(ctx, q.FinYear)
		if err != nil {
			h.fail(w, r, err, "Failed to fetch districts")
			return
		}
		source = SourceAPI
	}
	if len(records) == 0 {
		h.writeJSON(w, http.StatusNotFound, Response{Message: "No data found for the specified financial year"})
		return
	}

	h.cache.Set(ctx, cache.TypeAllDistricts, params, records, cache.TTLAllDistricts)
	resp := Response{Success: true, Source: source, Data: records}
	if source == SourceAPI {
		resp.Message = apiFetchedMessage
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// fillYear syncs finYear from the API and reads it back. Upstream failures
// are logged and yield no records.
func (h *Handler) fillYear(ctx context.Context, finYear string) ([]models.MonthlyRecord, error) {
	if h.sync == nil {
		return nil, nil
	}
	h.logger.Info("no data in database, fetching from API", "fin_year", finYear)
	res, err := h.sync.SyncFinancialYear(ctx, finYear)
	if err != nil || res.Synced == 0 {
		if err != nil {
			h.logger.Warn("API fallback failed", "fin_year", finYear, "error", err)
		}
		return nil, nil
	}
	return h.svc.Records(ctx, finYear)
}

// fillDistrict is fillYear for a single district.
func (h *Handler) fillDistrict(ctx context.Context, code, finYear string) ([]models.MonthlyRecord, error) {
	if h.sync == nil {
		return nil, nil
	}
	h.logger.Info("no district data in database, fetching from API", "district_code", code, "fin_year", finYear)
	res, err := h.sync.SyncDistrict(ctx, code, finYear)
	if err != nil || res.Synced == 0 {
		if err != nil {
			h.logger.Warn("API fallback failed", "district_code", code, "error", err)
		}
		return nil, nil
	}
	return h.svc.DistrictRecords(ctx, code, finYear)
}

// GetDistrict returns one district's months for a financial year.
func (h *Handler) GetDistrict(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	ctx := r.Context()
	params := map[string]string{"districtCode": q.DistrictCode, "finYear": q.FinYear}

	var hit []models.MonthlyRecord
	if h.cache.Get(ctx, cache.TypeDistrict, params, &hit) {
		h.respond(w, SourceCache, hit)
		return
	}

	records, err := h.svc.DistrictRecords(ctx, q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch district data")
		return
	}
	source := SourceDatabase
	if len(records) == 0 {
		if records, err = h.fillDistrict(ctx, q.DistrictCode, q.FinYear); err != nil {
			h.fail(w, r, err, "Failed to fetch district data")
			return
		}
		source = SourceAPI
	}
	if len(records) == 0 {
		h.writeJSON(w, http.StatusNotFound, Response{Message: "District not found"})
		return
	}

	h.cache.Set(ctx, cache.TypeDistrict, params, records, cache.TTLDistrict)
	resp := Response{Success: true, Source: source, Data: records}
	if source == SourceAPI {
		resp.Message = apiFetchedMessage
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetDistrictList lists district codes and names, optionally for one year.
func (h *Handler) GetDistrictList(w http.ResponseWriter, r *http.Request) {
	finYear := queryParam(r, "finYear")
	if finYear != "" && !ValidFinYear(finYear) {
		h.badRequest(w, "Invalid financial year format (expected YYYY-YYYY)")
		return
	}
	ctx := r.Context()
	params := map[string]string{"finYear": finYear}

	var hit []models.DistrictRef
	if h.cache.Get(ctx, cache.TypeDistrictList, params, &hit) {
		respondList(h, w, SourceCache, hit)
		return
	}
	list, err := h.svc.DistrictList(ctx, finYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch district list")
		return
	}
	if list == nil {
		list = []models.DistrictRef{}
	}
	h.cache.Set(ctx, cache.TypeDistrictList, params, list, cache.TTLDistrictList)
	respondList(h, w, SourceDatabase, list)
}

// GetAvailableYears lists the financial years on record, newest first.
func (h *Handler) GetAvailableYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.svc.AvailableYears(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch available years")
		return
	}
	if years == nil {
		years = []string{}
	}
	h.respond(w, SourceDatabase, years)
}

// GetLatestDistrict returns a district's most recent month.
func (h *Handler) GetLatestDistrict(w http.ResponseWriter, r *http.Request) {
	q := districtQuery{DistrictCode: pathCode(r)}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	rec, err := h.svc.Latest(r.Context(), q.DistrictCode)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch latest district data")
		return
	}
	h.respond(w, SourceDatabase, rec)
}

// GetDistrictSummary condenses a district year.
func (h *Handler) GetDistrictSummary(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	sum, err := h.svc.Summary(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch district summary")
		return
	}
	h.respond(w, SourceDatabase, sum)
}

// ExportDistrict downloads a district year as CSV.
func (h *Handler) ExportDistrict(w http.ResponseWriter, r *http.Request) {
	q := districtYearQuery{DistrictCode: pathCode(r), FinYear: queryParam(r, "finYear")}
	if err := check(q); err != nil {
		h.fail(w, r, err, "")
		return
	}
	records, err := h.svc.DistrictRecords(r.Context(), q.DistrictCode, q.FinYear)
	if err != nil {
		h.fail(w, r, err, "Failed to export district data")
		return
	}
	if len(records) == 0 {
		h.writeJSON(w, http.StatusNotFound, Response{Message: "District not found"})
		return
	}

	body, err := gocsv.MarshalBytes(records)
	if err != nil {
		h.fail(w, r, err, "Failed to export district data")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="mgnrega_%s_%s.csv"`, q.DistrictCode, q.FinYear))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
