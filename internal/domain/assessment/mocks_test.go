package assessment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caretrack/caretrack/internal/domain/auditevent"
	"github.com/caretrack/caretrack/internal/domain/encounter"
	"github.com/caretrack/caretrack/internal/domain/patient"
	"github.com/caretrack/caretrack/internal/domain/policy"
)

// memInstanceRepo is an in-memory Repository honoring the same conditional
// semantics as the Postgres implementation, so the concurrency tests exercise
// the real serialization contract.
type memInstanceRepo struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*Instance
	byToken   map[string]uuid.UUID
	responses map[uuid.UUID]*Response
}

func newMemInstanceRepo() *memInstanceRepo {
	return &memInstanceRepo{
		instances: map[uuid.UUID]*Instance{},
		byToken:   map[string]uuid.UUID{},
		responses: map[uuid.UUID]*Response{},
	}
}

func schedKey(patientID uuid.UUID, measureName string, encounterID *uuid.UUID) string {
	enc := uuid.Nil
	if encounterID != nil {
		enc = *encounterID
	}
	return patientID.String() + "|" + measureName + "|" + enc.String()
}

func (m *memInstanceRepo) Create(_ context.Context, inst *Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := schedKey(inst.PatientID, inst.MeasureName, inst.EncounterID)
	for _, other := range m.instances {
		if schedKey(other.PatientID, other.MeasureName, other.EncounterID) == key {
			return ErrAlreadyScheduled
		}
	}
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	cp := *inst
	m.instances[cp.ID] = &cp
	m.byToken[cp.Token] = cp.ID
	return nil
}

func (m *memInstanceRepo) get(id uuid.UUID) (*Instance, error) {
	inst, ok := m.instances[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *memInstanceRepo) GetByID(_ context.Context, id uuid.UUID) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memInstanceRepo) GetByToken(_ context.Context, token string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return m.get(id)
}

func (m *memInstanceRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Instance, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Instance
	for _, inst := range m.instances {
		if inst.PatientID == patientID {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memInstanceRepo) CountByEncounter(_ context.Context, encounterID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inst := range m.instances {
		if inst.EncounterID != nil && *inst.EncounterID == encounterID {
			n++
		}
	}
	return n, nil
}

func statusIn(s Status, set []Status) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}

func (m *memInstanceRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []Status, to Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || !statusIn(inst.Status, from) {
		return false, nil
	}
	inst.Status = to
	switch to {
	case StatusSent:
		t := at
		inst.SentAt = &t
	case StatusStarted:
		t := at
		inst.StartedAt = &t
	case StatusCompleted:
		t := at
		inst.CompletedAt = &t
	}
	return true, nil
}

func (m *memInstanceRepo) CompleteWithResponse(_ context.Context, id uuid.UUID, resp *Response, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || !statusIn(inst.Status, nonTerminalStatuses) || !inst.ExpiresAt.After(now) {
		return false, nil
	}
	inst.Status = StatusCompleted
	t := now
	inst.CompletedAt = &t
	if resp.ID == uuid.Nil {
		resp.ID = uuid.New()
	}
	cp := *resp
	m.responses[id] = &cp
	return true, nil
}

func (m *memInstanceRepo) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inst := range m.instances {
		if statusIn(inst.Status, nonTerminalStatuses) && !inst.ExpiresAt.After(now) {
			inst.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memInstanceRepo) GetResponse(_ context.Context, instanceID uuid.UUID) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.responses[instanceID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *resp
	return &cp, nil
}

func (m *memInstanceRepo) ListNonTerminalDueBetween(_ context.Context, from, to time.Time) ([]*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Instance
	for _, inst := range m.instances {
		if statusIn(inst.Status, nonTerminalStatuses) && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInstanceRepo) ListOverdue(_ context.Context, graceCutoff, now time.Time) ([]*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Instance
	for _, inst := range m.instances {
		if statusIn(inst.Status, nonTerminalStatuses) && inst.DueDate.Before(graceCutoff) && inst.ExpiresAt.After(now) {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInstanceRepo) CountDueBetween(_ context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inst := range m.instances {
		if inst.Status != StatusCancelled && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			n++
		}
	}
	return n, nil
}

func (m *memInstanceRepo) CountCompletedDueBetween(_ context.Context, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inst := range m.instances {
		if inst.Status == StatusCompleted && !inst.DueDate.Before(from) && !inst.DueDate.After(to) {
			n++
		}
	}
	return n, nil
}

// memPatientRepo holds patients by id.
type memPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{patients: map[uuid.UUID]*patient.Patient{}}
}

func (m *memPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *memPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *memPatientRepo) GetByMRN(_ context.Context, mrn string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *memPatientRepo) List(_ context.Context, limit, offset int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	m.patients[p.ID] = p
	return nil
}

// memEncounterRepo holds encounters by id.
type memEncounterRepo struct {
	encounters map[uuid.UUID]*encounter.Encounter
}

func newMemEncounterRepo() *memEncounterRepo {
	return &memEncounterRepo{encounters: map[uuid.UUID]*encounter.Encounter{}}
}

func (m *memEncounterRepo) Create(_ context.Context, e *encounter.Encounter) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.encounters[e.ID] = e
	return nil
}

func (m *memEncounterRepo) GetByID(_ context.Context, id uuid.UUID) (*encounter.Encounter, error) {
	e, ok := m.encounters[id]
	if !ok {
		return nil, encounter.ErrNotFound
	}
	return e, nil
}

func (m *memEncounterRepo) List(_ context.Context, limit, offset int) ([]*encounter.Encounter, int, error) {
	var out []*encounter.Encounter
	for _, e := range m.encounters {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memEncounterRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*encounter.Encounter, int, error) {
	var out []*encounter.Encounter
	for _, e := range m.encounters {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memEncounterRepo) ListUpcomingBetween(_ context.Context, from, to time.Time) ([]*encounter.Encounter, error) {
	var out []*encounter.Encounter
	for _, e := range m.encounters {
		if e.Status == encounter.StatusCancelled {
			continue
		}
		if e.ScheduledStart.Before(from) || e.ScheduledStart.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEncounterRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	e, ok := m.encounters[id]
	if !ok {
		return encounter.ErrNotFound
	}
	e.Status = status
	return nil
}

// memPolicyRepo stores policies by name.
type memPolicyRepo struct {
	mu       sync.Mutex
	policies map[string]*policy.Policy
}

func newMemPolicyRepo() *memPolicyRepo {
	return &memPolicyRepo{policies: map[string]*policy.Policy{}}
}

func (m *memPolicyRepo) GetByName(_ context.Context, name string) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[name]
	if !ok {
		return nil, policy.ErrNotFound
	}
	return p, nil
}

func (m *memPolicyRepo) GetOrCreate(_ context.Context, def *policy.Policy) (*policy.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.policies[def.Name]; ok {
		return p, nil
	}
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	m.policies[def.Name] = def
	return def, nil
}

func (m *memPolicyRepo) Update(_ context.Context, p *policy.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.Name] = p
	return nil
}

// memAuditRepo records inserted events for assertions.
type memAuditRepo struct {
	mu     sync.Mutex
	events []*auditevent.AuditEvent
}

func (m *memAuditRepo) Insert(_ context.Context, ev *auditevent.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*auditevent.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, errors.New("audit event not found")
}

func (m *memAuditRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*auditevent.AuditEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events, len(m.events), nil
}

func (m *memAuditRepo) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Kind
	}
	return out
}

func (m *memAuditRepo) countKind(kind string) int {
	n := 0
	for _, k := range m.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}
