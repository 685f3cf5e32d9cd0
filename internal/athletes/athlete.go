package athletes

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAthleteNotFound = errors.New("athlete not found")

	// ErrInvalidProfile marks an athlete profile with an empty name or
	// non-positive body metrics.
	ErrInvalidProfile = errors.New("invalid athlete profile")
)

// Athlete is a rower with an optional club membership and the body
// metrics used to derive relative power from their test results.
type Athlete struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ClubID   *string `json:"clubId,omitempty"`
	ClubName string  `json:"clubName,omitempty"`
	// Category is free-form: junior, U23, senior, masters ...
	Category string   `json:"category,omitempty"`
	MassKg   *float64 `json:"massKg,omitempty"`
	HeightCm *float64 `json:"heightCm,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (a *Athlete) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name empty", ErrInvalidProfile)
	}
	if a.MassKg != nil && *a.MassKg <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidProfile, *a.MassKg)
	}
	if a.HeightCm != nil && *a.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive, got %v", ErrInvalidProfile, *a.HeightCm)
	}
	return nil
}
