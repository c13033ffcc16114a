// Package datagov fetches MGNREGA district records from the data.gov.in
// open data API.
package datagov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
)

// PageSize is the largest page the API serves.
const PageSize = 1000

const sampleSize = 10

// APIError is returned when the upstream call fails. StatusCode is the
// upstream status, 503 when nothing answered, or 500 otherwise.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data.gov.in: %s: %v", e.Message, e.Err)
	}
	return "data.gov.in: " + e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	BaseURL     string
	ResourceID  string
	APIKey      string
	TargetState string
	Timeout     time.Duration
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client talks to one data.gov.in resource for one state.
type Client struct {
	endpoint    string
	apiKey      string
	targetState string
	http        *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New builds a client from opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:    strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(opts.ResourceID, "/"),
		apiKey:      opts.APIKey,
		targetState: opts.TargetState,
		http:        httpClient,
		limiter:     limiter,
		logger:      logger.With("component", "datagov"),
	}
}

// TargetState is the state this client filters on.
func (c *Client) TargetState() string { return c.targetState }

// Query selects a page of records.
type Query struct {
	StateName string
	FinYear   string
	Offset    int
	Limit     int
}

// Page is one decoded API response.
type Page struct {
	Records     []calc.RawRecord
	Total       int
	Count       int
	Title       string
	UpdatedDate string
}

// flexInt accepts both 12 and "12"; the API has served both.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

type response struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Title       string           `json:"title"`
	UpdatedDate string           `json:"updated_date"`
	Total       flexInt          `json:"total"`
	Count       flexInt          `json:"count"`
	Records     []map[string]any `json:"records"`
}

// FetchPage requests a single page. An empty StateName uses the target
// state and a zero Limit uses PageSize.
func (c *Client) FetchPage(ctx context.Context, q Query) (Page, error) {
	if q.StateName == "" {
		q.StateName = c.targetState
	}
	if q.Limit <= 0 {
		q.Limit = PageSize
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("filters[state_name]", q.StateName)
	if q.FinYear != "" {
		params.Set("filters[fin_year]", q.FinYear)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "request not sent", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, &APIError{StatusCode: http.StatusInternalServerError, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching page", "fin_year", q.FinYear, "offset", q.Offset, "limit", q.Limit)
	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, &APIError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "API is not responding. Please try again later.",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Page{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page{}, &APIError{StatusCode: http.StatusInternalServerError, Message: "decode response", Err: err}
	}
	if decoded.Status != "ok" {
		return Page{}, &APIError{StatusCode: http.StatusInternalServerError, Message: "Invalid API response format"}
	}

	page := Page{
		Records:     make([]calc.RawRecord, 0, len(decoded.Records)),
		Total:       int(decoded.Total),
		Count:       int(decoded.Count),
		Title:       decoded.Title,
		UpdatedDate: decoded.UpdatedDate,
	}
	for _, r := range decoded.Records {
		page.Records = append(page.Records, toRaw(r))
	}
	c.logger.Debug("page fetched", "count", page.Count, "total", page.Total)
	return page, nil
}

func toRaw(m map[string]any) calc.RawRecord {
	raw := make(calc.RawRecord, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			raw[k] = ""
		case string:
			raw[k] = t
		case float64:
			raw[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			raw[k] = strconv.FormatBool(t)
		default:
			raw[k] = fmt.Sprint(t)
		}
	}
	return raw
}

// FetchAll pages through every record of the target state for finYear.
func (c *Client) FetchAll(ctx context.Context, finYear string) ([]calc.RawRecord, error) {
	var all []calc.RawRecord
	offset := 0
	for {
		page, err := c.FetchPage(ctx, Query{FinYear: finYear, Offset: offset, Limit: PageSize})
		if err != nil {
			return nil, fmt.Errorf("fetch %s offset %d: %w", finYear, offset, err)
		}
		if len(page.Records) == 0 {
			break
		}
		all = append(all, page.Records...)
		offset += PageSize
		if page.Count < PageSize || offset >= page.Total {
			break
		}
	}
	c.logger.Info("fetched financial year", "fin_year", finYear, "records", len(all))
	return all, nil
}

// FetchDistrict returns the records of one district for finYear.
func (c *Client) FetchDistrict(ctx context.Context, districtCode, finYear string) ([]calc.RawRecord, error) {
	all, err := c.FetchAll(ctx, finYear)
	if err != nil {
		return nil, err
	}
	matched := []calc.RawRecord{}
	for _, r := range all {
		if r.Get("district_code") == districtCode {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// ErrNoYears is returned when the sampled page has no records.
var ErrNoYears = errors.New("no financial years available")

// FetchAvailableYears samples a few records and returns the distinct
// financial years seen, newest first.
func (c *Client) FetchAvailableYears(ctx context.Context) ([]string, error) {
	page, err := c.FetchPage(ctx, Query{Limit: sampleSize})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var years []string
	for _, r := range page.Records {
		y := r.Get("fin_year")
		if y != "" && !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return nil, ErrNoYears
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years, nil
}
