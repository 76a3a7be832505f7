package policy

import (
	"context"
	"fmt"
)

// Service resolves the active compliance policy. It is constructed once at
// process start and passed to the generator and aggregator explicitly; there
// is no ambient global policy.
type Service struct {
	repo            Repository
	name            string
	defaultMeasures []string
}

// NewService builds a policy service for the named policy. defaultMeasures is
// the full configured measure set used when the policy is created on first
// access.
func NewService(repo Repository, name string, defaultMeasures []string) *Service {
	return &Service{repo: repo, name: name, defaultMeasures: defaultMeasures}
}

// Active returns the named policy, creating the hard-coded default on first
// access. This get-or-create is the only implicit write in the system.
func (s *Service) Active(ctx context.Context) (*Policy, error) {
	def := &Policy{
		Name:             s.name,
		CadenceDays:      DefaultCadenceDays,
		GraceWindowDays:  DefaultGraceWindowDays,
		ExpirationDays:   DefaultExpirationDays,
		MeasuresRequired: s.defaultMeasures,
		RequireAtIntake:  true,
	}
	p, err := s.repo.GetOrCreate(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("resolve active policy %q: %w", s.name, err)
	}
	return p, nil
}

// Update validates and persists changes to the active policy.
func (s *Service) Update(ctx context.Context, p *Policy) error {
	p.Name = s.name
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := s.Active(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}
