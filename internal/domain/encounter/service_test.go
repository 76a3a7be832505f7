package encounter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	encounters map[uuid.UUID]*Encounter
}

func newMockRepo() *mockRepo {
	return &mockRepo{encounters: map[uuid.UUID]*Encounter{}}
}

func (m *mockRepo) Create(_ context.Context, e *Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.encounters[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Encounter, error) {
	e, ok := m.encounters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListUpcomingBetween(_ context.Context, from, to time.Time) ([]*Encounter, error) {
	var out []*Encounter
	for _, e := range m.encounters {
		if e.Status == StatusCancelled {
			continue
		}
		if e.ScheduledStart.Before(from) || e.ScheduledStart.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	e, ok := m.encounters[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	return nil
}

func TestScheduleDefaultsStatus(t *testing.T) {
	svc := NewService(newMockRepo())
	e := &Encounter{PatientID: uuid.New(), ScheduledStart: time.Now().Add(24 * time.Hour)}
	if err := svc.Schedule(context.Background(), e); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if e.Status != StatusScheduled {
		t.Errorf("status = %q, want %q", e.Status, StatusScheduled)
	}
}

func TestScheduleValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(-time.Hour)

	cases := []struct {
		name string
		enc  *Encounter
	}{
		{"missing patient", &Encounter{ScheduledStart: start}},
		{"missing start", &Encounter{PatientID: uuid.New()}},
		{"end before start", &Encounter{PatientID: uuid.New(), ScheduledStart: start, ScheduledEnd: &end}},
		{"bad status", &Encounter{PatientID: uuid.New(), ScheduledStart: start, Status: "imaginary"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Schedule(context.Background(), tc.enc); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUpcomingWindow(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	inside := &Encounter{PatientID: uuid.New(), Status: StatusScheduled, ScheduledStart: base.AddDate(0, 0, 2)}
	arrived := &Encounter{PatientID: uuid.New(), Status: StatusArrived, ScheduledStart: base.AddDate(0, 0, 1)}
	endpoint := &Encounter{PatientID: uuid.New(), Status: StatusScheduled, ScheduledStart: base.AddDate(0, 0, 7)}
	past := &Encounter{PatientID: uuid.New(), Status: StatusScheduled, ScheduledStart: base.AddDate(0, 0, -1)}
	beyond := &Encounter{PatientID: uuid.New(), Status: StatusScheduled, ScheduledStart: base.AddDate(0, 0, 10)}
	cancelled := &Encounter{PatientID: uuid.New(), Status: StatusCancelled, ScheduledStart: base.AddDate(0, 0, 2)}
	for _, e := range []*Encounter{inside, arrived, endpoint, past, beyond, cancelled} {
		if err := repo.Create(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.Upcoming(context.Background(), 7)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	want := map[uuid.UUID]bool{inside.ID: true, arrived.ID: true, endpoint.ID: true}
	if len(got) != len(want) {
		t.Fatalf("got %d encounters, want %d", len(got), len(want))
	}
	for _, e := range got {
		if !want[e.ID] {
			t.Errorf("unexpected encounter %s (status %s)", e.ID, e.Status)
		}
	}
}

func TestUpcomingRejectsNonPositiveWindow(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Upcoming(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	e := &Encounter{PatientID: uuid.New(), ScheduledStart: time.Now().Add(time.Hour)}
	if err := svc.Schedule(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateStatus(context.Background(), e.ID, StatusCancelled); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := svc.Get(context.Background(), e.ID)
	if got.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	if err := svc.UpdateStatus(context.Background(), e.ID, "nope"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), uuid.New(), StatusFinished); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
