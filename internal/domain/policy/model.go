// Package policy holds the compliance policy that governs assessment
// generation: cadence, grace window, link expiration, and the required
// measure set.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("policy not found")

// Default day counts used when the named policy does not exist yet.
const (
	DefaultCadenceDays     = 14
	DefaultGraceWindowDays = 3
	DefaultExpirationDays  = 7
)

// Policy is a singleton-per-name compliance configuration.
type Policy struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	CadenceDays      int       `db:"cadence_days" json:"cadence_days"`
	GraceWindowDays  int       `db:"grace_window_days" json:"grace_window_days"`
	ExpirationDays   int       `db:"expiration_days" json:"expiration_days"`
	MeasuresRequired []string  `db:"measures_required" json:"measures_required"`
	RequireAtIntake  bool      `db:"require_at_intake" json:"require_at_intake"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Validate enforces the policy invariants: non-negative day counts and a
// non-empty required measure set.
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.CadenceDays < 0 {
		return fmt.Errorf("cadence_days must be non-negative, got %d", p.CadenceDays)
	}
	if p.GraceWindowDays < 0 {
		return fmt.Errorf("grace_window_days must be non-negative, got %d", p.GraceWindowDays)
	}
	if p.ExpirationDays < 0 {
		return fmt.Errorf("expiration_days must be non-negative, got %d", p.ExpirationDays)
	}
	if len(p.MeasuresRequired) == 0 {
		return fmt.Errorf("measures_required must not be empty")
	}
	return nil
}

// Expiration returns the link validity window as a duration.
func (p *Policy) Expiration() time.Duration {
	return time.Duration(p.ExpirationDays) * 24 * time.Hour
}

// GraceWindow returns the grace window as a duration.
func (p *Policy) GraceWindow() time.Duration {
	return time.Duration(p.GraceWindowDays) * 24 * time.Hour
}
