// Package assessment implements the scheduling and lifecycle engine for
// patient-reported assessment instances: idempotent generation from the
// active policy, the per-instance state machine, token-based access, and the
// expiration sweep.
package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusCancelled
}

// nonTerminalStatuses are the states the sweep and cancel paths act on.
var nonTerminalStatuses = []Status{StatusPending, StatusSent, StatusStarted}

// Instance maps to the assessment_instance table. Instances are never
// deleted; they only move to a terminal state.
type Instance struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Token       string     `db:"token" json:"-"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	MeasureName string     `db:"measure_name" json:"measure_name"`
	EncounterID *uuid.UUID `db:"encounter_id" json:"encounter_id,omitempty"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	Status      Status     `db:"status" json:"status"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ExpiredAt reports whether the access link is dead at the given instant.
// The stored status can lag behind the wall clock between sweep runs, so
// every read and transition path consults this instead of trusting Status.
func (i *Instance) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Response maps to the assessment_response table. Exactly one per completed
// instance; immutable after creation.
type Response struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InstanceID  uuid.UUID `db:"instance_id" json:"instance_id"`
	Answers     []int     `db:"answers" json:"answers"`
	TotalScore  int       `db:"total_score" json:"total_score"`
	Severity    string    `db:"severity" json:"severity"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
