package datagov

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:     srv.URL + "/resource/",
		ResourceID:  "abc-123",
		APIKey:      "secret",
		TargetState: "UTTAR PRADESH",
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFetchPageSendsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/abc-123", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("api-key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "1000", q.Get("limit"))
		assert.Equal(t, "UTTAR PRADESH", q.Get("filters[state_name]"))
		assert.Equal(t, "2024-2025", q.Get("filters[fin_year]"))

		writeJSON(t, w, map[string]any{
			"status": "ok",
			"total":  "1",
			"count":  1,
			"title":  "MGNREGA",
			"records": []map[string]any{{
				"district_code":           "3126",
				"Total_Households_Worked": 1200,
				"Total_Exp":               "45.5",
				"Remarks":                 nil,
			}},
		})
	})

	page, err := c.FetchPage(context.Background(), Query{FinYear: "2024-2025"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "MGNREGA", page.Title)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "1200", page.Records[0].Get("total_households_worked"))
	assert.Equal(t, "45.5", page.Records[0].Get("Total_Exp"))
	assert.Equal(t, "", page.Records[0].Get("Remarks"))
}

func TestFetchPageErrors(t *testing.T) {
	t.Run("upstream status is kept", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden key", http.StatusForbidden)
		})
		_, err := c.FetchPage(context.Background(), Query{})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Contains(t, apiErr.Error(), "forbidden key")
	})

	t.Run("status not ok", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"status": "error", "message": "bad"})
		})
		_, err := c.FetchPage(context.Background(), Query{})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	})

	t.Run("no response", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := New(Options{BaseURL: url, ResourceID: "x", TargetState: "UTTAR PRADESH"})
		_, err := c.FetchPage(context.Background(), Query{})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})
}

// pagedServer serves total records as district codes "0".."total-1".
func pagedServer(t *testing.T, total int, calls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records := []map[string]any{}
		for i := offset; i < total && i < offset+limit; i++ {
			records = append(records, map[string]any{
				"district_code": strconv.Itoa(i % 3),
				"fin_year":      "2024-2025",
			})
		}
		writeJSON(t, w, map[string]any{"status": "ok", "total": total, "count": len(records), "records": records})
	}
}

func TestFetchAllPaginates(t *testing.T) {
	calls := 0
	c := newTestClient(t, pagedServer(t, 2500, &calls))

	all, err := c.FetchAll(context.Background(), "2024-2025")
	require.NoError(t, err)
	assert.Len(t, all, 2500)
	assert.Equal(t, 3, calls)
}

func TestFetchAllStopsAtExactTotal(t *testing.T) {
	calls := 0
	c := newTestClient(t, pagedServer(t, 2000, &calls))

	all, err := c.FetchAll(context.Background(), "2024-2025")
	require.NoError(t, err)
	assert.Len(t, all, 2000)
	assert.Equal(t, 2, calls)
}

func TestFetchAllFailsOnPageError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		pagedServer(t, 5000, new(int))(w, r)
	})

	_, err := c.FetchAll(context.Background(), "2024-2025")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestFetchDistrictFilters(t *testing.T) {
	calls := 0
	c := newTestClient(t, pagedServer(t, 1500, &calls))

	got, err := c.FetchDistrict(context.Background(), "1", "2024-2025")
	require.NoError(t, err)
	assert.Len(t, got, 500)
	for _, r := range got {
		assert.Equal(t, "1", r.Get("district_code"))
	}
}

func TestFetchAvailableYears(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("filters[fin_year]"))
		writeJSON(t, w, map[string]any{"status": "ok", "total": 3, "count": 3, "records": []map[string]any{
			{"fin_year": "2022-2023"}, {"fin_year": "2024-2025"}, {"fin_year": "2022-2023"},
		}})
	})

	years, err := c.FetchAvailableYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-2025", "2022-2023"}, years)
}

func TestFetchAvailableYearsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"status": "ok", "total": 0, "count": 0, "records": []any{}})
	})
	_, err := c.FetchAvailableYears(context.Background())
	assert.ErrorIs(t, err, ErrNoYears)
}
