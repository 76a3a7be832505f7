package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines instance and response persistence. The conditional
// transition methods are the serialization point for concurrent callers: a
// false return means the expected prior state was gone by the time the
// update ran.
type Repository interface {
	// Create inserts a new instance, returning ErrAlreadyScheduled when the
	// (patient, measure, encounter) uniqueness constraint is violated.
	Create(ctx context.Context, inst *Instance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Instance, error)
	GetByToken(ctx context.Context, token string) (*Instance, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Instance, int, error)
	CountByEncounter(ctx context.Context, encounterID uuid.UUID) (int, error)

	// TransitionStatus conditionally moves the instance from one of the
	// given states to the target state, stamping the matching timestamp
	// column. Returns false when no row matched.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, at time.Time) (bool, error)

	// CompleteWithResponse atomically moves a live non-terminal instance to
	// COMPLETED and inserts its response. Exactly one concurrent call wins;
	// the rest return false.
	CompleteWithResponse(ctx context.Context, id uuid.UUID, resp *Response, now time.Time) (bool, error)

	// MarkExpired bulk-transitions non-terminal instances with
	// expires_at <= now to EXPIRED and returns the count affected.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	GetResponse(ctx context.Context, instanceID uuid.UUID) (*Response, error)

	// Compliance queries: point-in-time snapshots over due/grace arithmetic.
	ListNonTerminalDueBetween(ctx context.Context, from, to time.Time) ([]*Instance, error)
	ListOverdue(ctx context.Context, graceCutoff, now time.Time) ([]*Instance, error)
	CountDueBetween(ctx context.Context, from, to time.Time) (int, error)
	CountCompletedDueBetween(ctx context.Context, from, to time.Time) (int, error)
}
