package policy

import (
	"context"
)

type Repository interface {
	GetByName(ctx context.Context, name string) (*Policy, error)
	// GetOrCreate persists def if no policy with its name exists, and returns
	// the stored row either way. Concurrent first-access calls must converge
	// to one persisted policy.
	GetOrCreate(ctx context.Context, def *Policy) (*Policy, error)
	Update(ctx context.Context, p *Policy) error
}
