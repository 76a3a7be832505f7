package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretrack/caretrack/internal/domain/auditevent"
	"github.com/caretrack/caretrack/internal/domain/encounter"
	"github.com/caretrack/caretrack/internal/domain/measure"
	"github.com/caretrack/caretrack/internal/domain/patient"
	"github.com/caretrack/caretrack/internal/domain/policy"
	"github.com/caretrack/caretrack/internal/platform/notification"
)

// Service drives instance generation and the lifecycle state machine. All
// state transitions pass through here so every one of them produces its
// audit events.
type Service struct {
	repo       Repository
	patients   patient.Repository
	encounters encounter.Repository
	policies   *policy.Service
	registry   *measure.Registry
	notifier   *notification.Manager
	audit      *auditevent.Recorder
	logger     zerolog.Logger
	portalBase string
	now        func() time.Time
}

func NewService(
	repo Repository,
	patients patient.Repository,
	encounters encounter.Repository,
	policies *policy.Service,
	registry *measure.Registry,
	notifier *notification.Manager,
	audit *auditevent.Recorder,
	logger zerolog.Logger,
	portalBase string,
) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		encounters: encounters,
		policies:   policies,
		registry:   registry,
		notifier:   notifier,
		audit:      audit,
		logger:     logger,
		portalBase: portalBase,
		now:        time.Now,
	}
}

// GenerateOptions qualifies a generation request. A nil DueDate means the
// instances are due immediately (the intake case).
type GenerateOptions struct {
	EncounterID *uuid.UUID
	DueDate     *time.Time
}

// GenerateForPatient creates one PENDING instance per required measure that
// is not already scheduled for this (patient, encounter) pair. Re-running it
// is a no-op for measures already present. Returns only the instances
// actually created.
func (s *Service) GenerateForPatient(ctx context.Context, patientID uuid.UUID, opts GenerateOptions) ([]*Instance, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("%w: unknown patient %s", ErrNotFound, patientID)
	}

	pol, err := s.policies.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve policy: %w", err)
	}

	due := s.now().UTC()
	if opts.DueDate != nil {
		due = opts.DueDate.UTC()
	}
	expiresAt := due.Add(pol.Expiration())

	var created []*Instance
	for _, name := range pol.MeasuresRequired {
		if _, err := s.registry.Get(name); err != nil {
			return created, fmt.Errorf("%w: policy requires unknown measure %q", ErrValidation, name)
		}

		token, err := NewToken()
		if err != nil {
			return created, err
		}
		inst := &Instance{
			Token:       token,
			PatientID:   patientID,
			MeasureName: name,
			EncounterID: opts.EncounterID,
			DueDate:     due,
			ExpiresAt:   expiresAt,
			Status:      StatusPending,
		}
		if err := s.repo.Create(ctx, inst); err != nil {
			if errors.Is(err, ErrAlreadyScheduled) {
				continue
			}
			return created, fmt.Errorf("create instance: %w", err)
		}
		created = append(created, inst)

		meta := map[string]interface{}{
			"measure":  name,
			"due_date": due.Format(time.RFC3339),
		}
		if opts.EncounterID != nil {
			meta["encounter_id"] = opts.EncounterID.String()
		}
		s.audit.Record(ctx, &auditevent.AuditEvent{
			Kind:         auditevent.KindInstanceCreated,
			PatientID:    &inst.PatientID,
			ResourceType: "AssessmentInstance",
			ResourceID:   &inst.ID,
			Metadata:     meta,
		})
	}
	return created, nil
}

// GenerateUpcoming runs the generator for every non-cancelled encounter
// starting within daysAhead days, endpoints inclusive, that has no instances
// yet. The zero-instance check is
// per encounter, not per measure: an encounter already covered by an earlier
// run keeps its original instance set even if the policy gained measures
// since. Returns the number of instances created.
func (s *Service) GenerateUpcoming(ctx context.Context, daysAhead int) (int, error) {
	if daysAhead <= 0 {
		return 0, fmt.Errorf("%w: days_ahead must be positive", ErrValidation)
	}
	from := s.now().UTC()
	encounters, err := s.encounters.ListUpcomingBetween(ctx, from, from.AddDate(0, 0, daysAhead))
	if err != nil {
		return 0, fmt.Errorf("list encounters: %w", err)
	}

	total := 0
	for _, enc := range encounters {
		n, err := s.repo.CountByEncounter(ctx, enc.ID)
		if err != nil {
			return total, fmt.Errorf("count instances for encounter %s: %w", enc.ID, err)
		}
		if n > 0 {
			continue
		}
		encID := enc.ID
		due := enc.ScheduledStart
		created, err := s.GenerateForPatient(ctx, enc.PatientID, GenerateOptions{EncounterID: &encID, DueDate: &due})
		if err != nil {
			return total, fmt.Errorf("generate for encounter %s: %w", enc.ID, err)
		}
		total += len(created)
	}
	return total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Instance, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) GetResponse(ctx context.Context, instanceID uuid.UUID) (*Response, error) {
	return s.repo.GetResponse(ctx, instanceID)
}

// MarkSent records a successful notification dispatch, PENDING -> SENT.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := s.now().UTC()
	ok, err := s.repo.TransitionStatus(ctx, id, []Status{StatusPending}, StatusSent, now)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionFailure(ctx, id)
	}
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindLinkSent,
		PatientID:    &inst.PatientID,
		ResourceType: "AssessmentInstance",
		ResourceID:   &inst.ID,
		Metadata:     map[string]interface{}{"measure": inst.MeasureName},
	})
	return nil
}

// SendLink renders and dispatches the access link to the patient's contact
// address, then drives PENDING -> SENT. For an instance already in SENT it
// dispatches the reminder template and leaves the status alone.
func (s *Service) SendLink(ctx context.Context, id uuid.UUID) error {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if inst.ExpiredAt(now) {
		s.expireStale(ctx, inst, now)
		return ErrLinkExpired
	}
	if inst.Status.Terminal() {
		return terminalErr(inst.Status)
	}

	pat, err := s.patients.GetByID(ctx, inst.PatientID)
	if err != nil {
		return fmt.Errorf("%w: patient %s", ErrNotFound, inst.PatientID)
	}
	email := pat.ContactEmail()
	if email == "" {
		return fmt.Errorf("%w: patient has no contact email", ErrValidation)
	}

	templateID := notification.TemplateAssessmentInvite
	if inst.Status != StatusPending {
		templateID = notification.TemplateAssessmentReminder
	}
	data := map[string]string{
		"patient_name": pat.DisplayName(),
		"measure":      inst.MeasureName,
		"due_date":     inst.DueDate.Format("Jan 2, 2006"),
		"expires_date": inst.ExpiresAt.Format("Jan 2, 2006"),
		"link":         s.portalBase + "/a/" + inst.Token,
	}
	res := s.notifier.SendFromTemplate(ctx, templateID, data, email)
	if !res.Success {
		return fmt.Errorf("notification dispatch failed: %s", res.Error)
	}

	if inst.Status == StatusPending {
		return s.MarkSent(ctx, inst.ID)
	}
	return nil
}

// Open resolves an access token to its instance and measure content,
// transitioning PENDING/SENT to STARTED. A live instance already in STARTED
// is served again without a transition. Expired links are never served:
// the wall-clock check runs before the stored status is consulted, and a
// stale non-terminal row is pushed to EXPIRED on the spot.
func (s *Service) Open(ctx context.Context, token string) (*Instance, *measure.Measure, error) {
	inst, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	if inst.ExpiredAt(now) {
		s.expireStale(ctx, inst, now)
		return nil, nil, ErrLinkExpired
	}
	if inst.Status.Terminal() {
		return nil, nil, terminalErr(inst.Status)
	}

	m, err := s.registry.Get(inst.MeasureName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if inst.Status == StatusStarted {
		return inst, m, nil
	}

	ok, err := s.repo.TransitionStatus(ctx, inst.ID, []Status{StatusPending, StatusSent}, StatusStarted, now)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Lost a race. Reload and serve if some concurrent open won.
		inst, err = s.repo.GetByID(ctx, inst.ID)
		if err != nil {
			return nil, nil, err
		}
		if inst.Status != StatusStarted {
			return nil, nil, terminalErr(inst.Status)
		}
		return inst, m, nil
	}

	inst.Status = StatusStarted
	inst.StartedAt = &now
	s.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindQuestionnaireStarted,
		PatientID:    &inst.PatientID,
		ResourceType: "AssessmentInstance",
		ResourceID:   &inst.ID,
		Metadata:     map[string]interface{}{"measure": inst.MeasureName},
	})
	return inst, m, nil
}

// Submit validates and scores the answers, then completes the instance and
// stores its response atomically. Exactly one of two concurrent submissions
// wins; the loser observes the state error matching whatever happened first.
func (s *Service) Submit(ctx context.Context, token string, answers []int) (*Response, error) {
	inst, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if inst.ExpiredAt(now) {
		s.expireStale(ctx, inst, now)
		return nil, ErrLinkExpired
	}
	if inst.Status.Terminal() {
		return nil, terminalErr(inst.Status)
	}

	total, severity, err := s.registry.Score(inst.MeasureName, answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	resp := &Response{
		InstanceID:  inst.ID,
		Answers:     answers,
		TotalScore:  total,
		Severity:    severity,
		CompletedAt: now,
	}
	won, err := s.repo.CompleteWithResponse(ctx, inst.ID, resp, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.transitionFailure(ctx, inst.ID)
	}

	s.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindQuestionnaireSubmitted,
		PatientID:    &inst.PatientID,
		ResourceType: "AssessmentInstance",
		ResourceID:   &inst.ID,
		Metadata:     map[string]interface{}{"measure": inst.MeasureName},
	})
	s.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindScoreComputed,
		PatientID:    &inst.PatientID,
		ResourceType: "AssessmentInstance",
		ResourceID:   &inst.ID,
		Metadata: map[string]interface{}{
			"measure":     inst.MeasureName,
			"total_score": total,
			"severity":    severity,
		},
	})
	return resp, nil
}

// Cancel administratively closes any non-terminal instance.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID, actorName string) error {
	now := s.now().UTC()
	ok, err := s.repo.TransitionStatus(ctx, id, nonTerminalStatuses, StatusCancelled, now)
	if err != nil {
		return err
	}
	if !ok {
		return s.transitionFailure(ctx, id)
	}
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	s.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindInstanceCancelled,
		ActorID:      actor,
		ActorDisplay: actorName,
		PatientID:    &inst.PatientID,
		ResourceType: "AssessmentInstance",
		ResourceID:   &inst.ID,
		Metadata:     map[string]interface{}{"measure": inst.MeasureName},
	})
	return nil
}

// SweepExpired bulk-expires every non-terminal instance past its deadline.
// Safe to run repeatedly and concurrently; each instance is expired once.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	count, err := s.repo.MarkExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.audit.Record(ctx, &auditevent.AuditEvent{
			Kind:         auditevent.KindInstancesExpired,
			ResourceType: "AssessmentInstance",
			Metadata:     map[string]interface{}{"count": count},
		})
	}
	return count, nil
}

// expireStale pushes a row whose stored status lags the wall clock to
// EXPIRED. Best effort: the sweep will catch it if this loses a race.
func (s *Service) expireStale(ctx context.Context, inst *Instance, now time.Time) {
	if inst.Status.Terminal() {
		return
	}
	if _, err := s.repo.TransitionStatus(ctx, inst.ID, nonTerminalStatuses, StatusExpired, now); err != nil {
		s.logger.Error().Err(err).Str("instance_id", inst.ID.String()).Msg("failed to expire stale instance")
	}
}

// transitionFailure reloads the instance after a lost conditional update and
// maps its current state to the matching error.
func (s *Service) transitionFailure(ctx context.Context, id uuid.UUID) error {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inst.Status.Terminal() {
		return terminalErr(inst.Status)
	}
	if inst.ExpiredAt(s.now().UTC()) {
		return ErrLinkExpired
	}
	return fmt.Errorf("%w: instance is %s", ErrInvalidState, inst.Status)
}
