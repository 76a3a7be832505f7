package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/caretrack/internal/domain/assessment"
	"github.com/caretrack/caretrack/internal/domain/policy"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// memStore filters a fixed instance slice with the same predicates as the
// Postgres queries.
type memStore struct {
	instances []*assessment.Instance
}

func nonTerminal(s assessment.Status) bool { return !s.Terminal() }

func (m *memStore) ListNonTerminalDueBetween(_ context.Context, from, to time.Time) ([]*assessment.Instance, error) {
	var out []*assessment.Instance
	for _, inst := range m.instances {
		if nonTerminal(inst.Status) && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memStore) ListOverdue(_ context.Context, graceCutoff, at time.Time) ([]*assessment.Instance, error) {
	var out []*assessment.Instance
	for _, inst := range m.instances {
		if nonTerminal(inst.Status) && inst.DueDate.Before(graceCutoff) && inst.ExpiresAt.After(at) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memStore) CountDueBetween(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, inst := range m.instances {
		if inst.Status != assessment.StatusCancelled && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountCompletedDueBetween(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, inst := range m.instances {
		if inst.Status == assessment.StatusCompleted && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			n++
		}
	}
	return n, nil
}

type memPolicyRepo struct {
	p *policy.Policy
}

func (m *memPolicyRepo) GetByName(_ context.Context, name string) (*policy.Policy, error) {
	return m.p, nil
}

func (m *memPolicyRepo) GetOrCreate(_ context.Context, def *policy.Policy) (*policy.Policy, error) {
	if m.p == nil {
		m.p = def
	}
	return m.p, nil
}

func (m *memPolicyRepo) Update(_ context.Context, p *policy.Policy) error {
	m.p = p
	return nil
}

func newService(store *memStore) *Service {
	policies := policy.NewService(&memPolicyRepo{}, "default", []string{"PHQ-9"})
	svc := NewService(store, policies)
	svc.now = func() time.Time { return now }
	return svc
}

func inst(status assessment.Status, dueOffset time.Duration, expiresOffset time.Duration) *assessment.Instance {
	return &assessment.Instance{
		ID:        uuid.New(),
		Status:    status,
		DueDate:   now.Add(dueOffset),
		ExpiresAt: now.Add(expiresOffset),
	}
}

const day = 24 * time.Hour

func TestGraceWindowBoundary(t *testing.T) {
	// Default grace window is 3 days.
	inGrace := inst(assessment.StatusSent, -2*day, 5*day)
	pastGrace := inst(assessment.StatusSent, -4*day, 3*day)
	deadLink := inst(assessment.StatusSent, -4*day, -time.Hour)
	completed := inst(assessment.StatusCompleted, -2*day, 5*day)
	store := &memStore{instances: []*assessment.Instance{inGrace, pastGrace, deadLink, completed}}
	svc := newService(store)

	due, err := svc.Due(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != inGrace.ID {
		t.Errorf("due = %d instances, want only the in-grace one", len(due))
	}

	overdue, err := svc.Overdue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].ID != pastGrace.ID {
		t.Errorf("overdue = %d instances, want only the past-grace live one", len(overdue))
	}
}

func TestRate(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		open      int
		want      float64
	}{
		{"vacuous", 0, 0, 100.0},
		{"three of four", 3, 1, 75.0},
		{"one of three", 1, 2, 33.3},
		{"all complete", 2, 0, 100.0},
		{"none complete", 0, 5, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{}
			for i := 0; i < tc.completed; i++ {
				store.instances = append(store.instances, inst(assessment.StatusCompleted, -5*day, 2*day))
			}
			for i := 0; i < tc.open; i++ {
				store.instances = append(store.instances, inst(assessment.StatusSent, -5*day, 2*day))
			}
			got, err := newService(store).Rate(context.Background(), 30*day)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("rate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRateIgnoresCancelledAndOutOfWindow(t *testing.T) {
	store := &memStore{instances: []*assessment.Instance{
		inst(assessment.StatusCompleted, -5*day, 2*day),
		inst(assessment.StatusCancelled, -5*day, 2*day),
		inst(assessment.StatusSent, -45*day, -38*day), // outside the 30-day window
	}}
	got, err := newService(store).Rate(context.Background(), 30*day)
	if err != nil {
		t.Fatal(err)
	}
	if got != 100.0 {
		t.Errorf("rate = %v, want 100.0", got)
	}
}

func TestSummarize(t *testing.T) {
	store := &memStore{instances: []*assessment.Instance{
		inst(assessment.StatusSent, -2*day, 5*day),
		inst(assessment.StatusSent, -4*day, 3*day),
		inst(assessment.StatusCompleted, -5*day, 2*day),
	}}
	svc := newService(store)

	sum, err := svc.Summarize(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DueCount != 1 {
		t.Errorf("due count = %d, want 1", sum.DueCount)
	}
	if sum.OverdueCount != 1 {
		t.Errorf("overdue count = %d, want 1", sum.OverdueCount)
	}
	if sum.ComplianceRate != 33.3 {
		t.Errorf("rate = %v, want 33.3", sum.ComplianceRate)
	}
	if !sum.GeneratedAt.Equal(now) {
		t.Errorf("generatedAt = %v", sum.GeneratedAt)
	}

	if _, err := svc.Summarize(context.Background(), 0); err == nil {
		t.Error("expected error for non-positive window")
	}
}
