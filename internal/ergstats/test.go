package ergstats

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidMeasurement marks a test record with non-positive
	// distance, time or body metrics.
	ErrInvalidMeasurement = errors.New("invalid measurement")

	// ErrNoBenchmark means the athlete has no 2000m test on record yet,
	// so predictions and training zones cannot be derived. Expected to
	// happen for fresh athletes, callers treat it as "no data".
	ErrNoBenchmark = errors.New("no 2000m benchmark test")

	ErrTestNotFound = errors.New("test not found")
)

// Test is a single recorded ergometer test: the raw measurements plus
// the metrics derived from them at ingest time. Derived fields are
// computed once by Normalize and never recomputed afterwards.
type Test struct {
	ID          string    `json:"id"`
	AthleteID   string    `json:"athleteId"`
	AthleteName string    `json:"athleteName,omitempty"`
	TestDate    time.Time `json:"testDate"`
	DistanceM   float64   `json:"distanceMeters"`
	TimeS       float64   `json:"timeSeconds"`
	Strokes     *int      `json:"strokes,omitempty"`
	MassKg      *float64  `json:"massKg,omitempty"`
	HeightCm    *float64  `json:"heightCm,omitempty"`
	Notes       string    `json:"notes,omitempty"`

	// derived
	PacePer500S float64  `json:"pacePer500Seconds"`
	PowerW      float64  `json:"powerWatts"`
	PowerPerKg  *float64 `json:"powerPerKg,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Normalize validates the raw measurements and computes the derived
// metrics. Power per kilo stays unset when the mass is unknown.
func (t *Test) Normalize() error {
	if t.DistanceM <= 0 {
		return fmt.Errorf("%w: distance must be positive, got %v", ErrInvalidMeasurement, t.DistanceM)
	}
	if t.TimeS <= 0 {
		return fmt.Errorf("%w: time must be positive, got %v", ErrInvalidMeasurement, t.TimeS)
	}
	if t.MassKg != nil && *t.MassKg <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidMeasurement, *t.MassKg)
	}
	if t.HeightCm != nil && *t.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive, got %v", ErrInvalidMeasurement, *t.HeightCm)
	}

	t.PacePer500S = round2(t.TimeS * 500 / t.DistanceM)
	t.PowerW = round2(PowerFromPace(t.PacePer500S))

	if t.MassKg != nil {
		perKg := round2(t.PowerW / *t.MassKg)
		t.PowerPerKg = &perKg
	} else {
		t.PowerPerKg = nil
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
