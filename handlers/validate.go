package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var finYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// ValidFinYear reports whether s is a financial year such as "2024-2025".
func ValidFinYear(s string) bool {
	m := finYearPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("finyear", func(fl validator.FieldLevel) bool {
		return ValidFinYear(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		return name
	})
	return v
}

// validationError carries the message shown to the client.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// labels name query parameters in messages.
var labels = map[string]string{
	"finYear":      "Financial year",
	"districtCode": "District code",
	"codes":        "District codes",
	"years":        "Years parameter",
	"startYear":    "Start year",
	"endYear":      "End year",
	"limit":        "Limit",
	"metric":       "Metric",
}

func label(field string) string {
	field, _, _ = strings.Cut(field, "[")
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

// check validates q and turns the first failure into a validationError.
func check(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &validationError{msg: err.Error()}
	}
	fe := verrs[0]
	name := label(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required", "required_with":
		msg = name + " is required"
	case "finyear":
		msg = fmt.Sprintf("Invalid %s format (expected YYYY-YYYY)", strings.ToLower(name))
	case "min", "gte":
		msg = fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		msg = fmt.Sprintf("%s must be at most %s", name, fe.Param())
	default:
		msg = "Invalid " + strings.ToLower(name)
	}
	return &validationError{msg: msg}
}

type yearQuery struct {
	FinYear string `query:"finYear" validate:"required,finyear"`
}

type districtYearQuery struct {
	DistrictCode string `query:"districtCode" validate:"required,alphanum,max=16"`
	FinYear      string `query:"finYear" validate:"required,finyear"`
}

type districtQuery struct {
	DistrictCode string `query:"districtCode" validate:"required,alphanum,max=16"`
}

type rangeQuery struct {
	DistrictCode string `query:"districtCode" validate:"omitempty,alphanum,max=16"`
	FinYear      string `query:"finYear" validate:"omitempty,finyear"`
	StartYear    string `query:"startYear" validate:"required_with=EndYear,omitempty,finyear"`
	EndYear      string `query:"endYear" validate:"required_with=StartYear,omitempty,finyear"`
}

func (q rangeQuery) check() error {
	if err := check(q); err != nil {
		return err
	}
	if q.StartYear > q.EndYear {
		return &validationError{msg: "Start year must not be after end year"}
	}
	return nil
}

type demographicsQuery struct {
	FinYear      string `query:"finYear" validate:"required,finyear"`
	DistrictCode string `query:"districtCode" validate:"omitempty,alphanum,max=16"`
}

type compareQuery struct {
	Codes   []string `query:"codes" validate:"omitempty,max=20,dive,alphanum,max=16"`
	FinYear string   `query:"finYear" validate:"required,finyear"`
}

type rankingsQuery struct {
	FinYear string `query:"finYear" validate:"required,finyear"`
	Metric  string `query:"metric"`
	Limit   int    `query:"limit" validate:"gte=1,lte=100"`
}

type monthlyComparisonQuery struct {
	DistrictCode string   `query:"districtCode" validate:"required,alphanum,max=16"`
	Years        []string `query:"years" validate:"omitempty,max=10,dive,finyear"`
}

type yearsQuery struct {
	Years []string `query:"years" validate:"min=1,max=10,dive,finyear"`
}

// splitParam splits a comma separated parameter, dropping blanks.
func splitParam(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pathCode(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["districtCode"])
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// intParam parses key, returning def when absent and an error when
// malformed.
func intParam(r *http.Request, key string, def int) (int, error) {
	v := queryParam(r, key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &validationError{msg: fmt.Sprintf("%s must be a number", label(key))}
	}
	return n, nil
}
