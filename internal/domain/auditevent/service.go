package auditevent

import (
	"context"

	"github.com/google/uuid"
)

// Service is the read side of the audit trail.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AuditEvent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*AuditEvent, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
