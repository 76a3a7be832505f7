package encounter

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("encounter not found")

// Encounter statuses. Scheduled encounters feed assessment generation;
// cancelled ones are excluded from it.
const (
	StatusScheduled  = "scheduled"
	StatusArrived    = "arrived"
	StatusInProgress = "in-progress"
	StatusFinished   = "finished"
	StatusCancelled  = "cancelled"
)

var validStatuses = map[string]bool{
	StatusScheduled:  true,
	StatusArrived:    true,
	StatusInProgress: true,
	StatusFinished:   true,
	StatusCancelled:  true,
}

// ValidStatus reports whether s is a known encounter status.
func ValidStatus(s string) bool { return validStatuses[s] }

// Encounter maps to the encounter table.
type Encounter struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	Status         string     `db:"status" json:"status"`
	ReasonText     *string    `db:"reason_text" json:"reason_text,omitempty"`
	ScheduledStart time.Time  `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd   *time.Time `db:"scheduled_end" json:"scheduled_end,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
