// Package calc holds the pure arithmetic behind the dashboard: record
// normalization, aggregation, performance scoring and comparisons.
// Nothing here performs I/O or keeps state between calls.
package calc

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when scoring thresholds or weights are unusable.
var ErrInvalidConfig = errors.New("invalid scoring config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Band is the AVERAGE/GOOD threshold pair for one scored metric.
type Band struct {
	Average float64 `json:"average" validate:"gt=0"`
	Good    float64 `json:"good" validate:"gtfield=Average"`
}

// Thresholds groups the bands used by the tiered sub-scores.
type Thresholds struct {
	EmploymentDays    Band `json:"employment_days"`
	WageRate          Band `json:"wage_rate"`
	PaymentTimeliness Band `json:"payment_timeliness"`
	WorkCompletion    Band `json:"work_completion"`
}

// Weights are the contributions of each sub-score to the overall score.
type Weights struct {
	Employment         float64 `json:"employment" validate:"gte=0,lte=1"`
	WageRate           float64 `json:"wage_rate" validate:"gte=0,lte=1"`
	PaymentTimeliness  float64 `json:"payment_timeliness" validate:"gte=0,lte=1"`
	WorkCompletion     float64 `json:"work_completion" validate:"gte=0,lte=1"`
	WomenParticipation float64 `json:"women_participation" validate:"gte=0,lte=1"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Employment + w.WageRate + w.PaymentTimeliness + w.WorkCompletion + w.WomenParticipation
}

// Config is the tunable part of the scorer.
type Config struct {
	Thresholds Thresholds `json:"thresholds"`
	Weights    Weights    `json:"weights"`
}

const weightTolerance = 1e-9

// WomenParticipationTarget is the flat participation percentage that earns
// a full women-participation score.
const WomenParticipationTarget = 50.0

// DefaultConfig returns the standard programme thresholds and weights.
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			EmploymentDays:    Band{Average: 30, Good: 50},
			WageRate:          Band{Average: 200, Good: 250},
			PaymentTimeliness: Band{Average: 70, Good: 90},
			WorkCompletion:    Band{Average: 50, Good: 70},
		},
		Weights: Weights{
			Employment:         0.30,
			WageRate:           0.20,
			PaymentTimeliness:  0.20,
			WorkCompletion:     0.20,
			WomenParticipation: 0.10,
		},
	}
}

// Validate checks that every band is ordered and the weights sum to 1.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1", ErrInvalidConfig, sum)
	}
	return nil
}
