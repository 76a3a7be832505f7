package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines encounter persistence operations.
type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	List(ctx context.Context, limit, offset int) ([]*Encounter, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error)
	// ListUpcomingBetween returns non-cancelled encounters whose scheduled
	// start falls in [from, to], endpoints inclusive.
	ListUpcomingBetween(ctx context.Context, from, to time.Time) ([]*Encounter, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
