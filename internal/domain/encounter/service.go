package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation failed")

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Schedule(ctx context.Context, e *Encounter) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if e.ScheduledStart.IsZero() {
		return fmt.Errorf("%w: scheduled_start is required", ErrValidation)
	}
	if e.ScheduledEnd != nil && !e.ScheduledEnd.After(e.ScheduledStart) {
		return fmt.Errorf("%w: scheduled_end must be after scheduled_start", ErrValidation)
	}
	if e.Status == "" {
		e.Status = StatusScheduled
	}
	if !ValidStatus(e.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, e.Status)
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Upcoming returns non-cancelled encounters starting within daysAhead days
// from now, window endpoints inclusive.
func (s *Service) Upcoming(ctx context.Context, daysAhead int) ([]*Encounter, error) {
	if daysAhead <= 0 {
		return nil, fmt.Errorf("%w: days_ahead must be positive", ErrValidation)
	}
	from := s.now().UTC()
	return s.repo.ListUpcomingBetween(ctx, from, from.AddDate(0, 0, daysAhead))
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
