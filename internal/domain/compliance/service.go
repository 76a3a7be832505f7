// Package compliance computes point-in-time due/overdue snapshots and
// summary metrics over the instance store, viewed through the active
// policy's grace window. It never mutates anything.
package compliance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/caretrack/caretrack/internal/domain/assessment"
	"github.com/caretrack/caretrack/internal/domain/policy"
)

// InstanceStore is the read surface the aggregator needs; the assessment
// repository satisfies it.
type InstanceStore interface {
	ListNonTerminalDueBetween(ctx context.Context, from, to time.Time) ([]*assessment.Instance, error)
	ListOverdue(ctx context.Context, graceCutoff, now time.Time) ([]*assessment.Instance, error)
	CountDueBetween(ctx context.Context, from, to time.Time) (int, error)
	CountCompletedDueBetween(ctx context.Context, from, to time.Time) (int, error)
}

type Service struct {
	store    InstanceStore
	policies *policy.Service
	now      func() time.Time
}

func NewService(store InstanceStore, policies *policy.Service) *Service {
	return &Service{store: store, policies: policies, now: time.Now}
}

// Due returns non-terminal instances past their due date but still inside
// the grace window.
func (s *Service) Due(ctx context.Context) ([]*assessment.Instance, error) {
	pol, err := s.policies.Active(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.store.ListNonTerminalDueBetween(ctx, now.Add(-pol.GraceWindow()), now)
}

// Overdue returns non-terminal instances past the grace window whose link is
// still valid: the "needs a nudge" set, as opposed to dead links the sweep
// will close out.
func (s *Service) Overdue(ctx context.Context) ([]*assessment.Instance, error) {
	pol, err := s.policies.Active(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.store.ListOverdue(ctx, now.Add(-pol.GraceWindow()), now)
}

// Rate is the completion ratio over instances due in the trailing window,
// as a percentage rounded to one decimal. Zero due instances means vacuous
// compliance: exactly 100.
func (s *Service) Rate(ctx context.Context, window time.Duration) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}
	now := s.now().UTC()
	from := now.Add(-window)

	due, err := s.store.CountDueBetween(ctx, from, now)
	if err != nil {
		return 0, err
	}
	if due == 0 {
		return 100.0, nil
	}
	completed, err := s.store.CountCompletedDueBetween(ctx, from, now)
	if err != nil {
		return 0, err
	}
	return math.Round(100*float64(completed)/float64(due)*10) / 10, nil
}

// Summary is the reporting snapshot for one trailing window.
type Summary struct {
	WindowDays     int       `json:"window_days"`
	DueCount       int       `json:"due_count"`
	OverdueCount   int       `json:"overdue_count"`
	ComplianceRate float64   `json:"compliance_rate"`
	GeneratedAt    time.Time `json:"generated_at"`
}

func (s *Service) Summarize(ctx context.Context, windowDays int) (*Summary, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window_days must be positive")
	}
	due, err := s.Due(ctx)
	if err != nil {
		return nil, err
	}
	overdue, err := s.Overdue(ctx)
	if err != nil {
		return nil, err
	}
	rate, err := s.Rate(ctx, time.Duration(windowDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}
	return &Summary{
		WindowDays:     windowDays,
		DueCount:       len(due),
		OverdueCount:   len(overdue),
		ComplianceRate: rate,
		GeneratedAt:    s.now().UTC(),
	}, nil
}
