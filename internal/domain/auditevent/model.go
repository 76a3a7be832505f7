// Package auditevent is the append-only audit trail. Every state-changing
// operation on an assessment instance writes at least one event here. Events
// are never updated or deleted.
package auditevent

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds emitted by the assessment engine.
const (
	KindInstanceCreated        = "INSTANCE_CREATED"
	KindLinkSent               = "LINK_SENT"
	KindQuestionnaireStarted   = "QUESTIONNAIRE_STARTED"
	KindQuestionnaireSubmitted = "QUESTIONNAIRE_SUBMITTED"
	KindScoreComputed          = "SCORE_COMPUTED"
	KindInstanceCancelled      = "INSTANCE_CANCELLED"
	KindInstancesExpired       = "INSTANCES_EXPIRED"
	KindPolicyUpdated          = "POLICY_UPDATED"
)

// AuditEvent maps to the audit_event table.
type AuditEvent struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	Kind         string                 `db:"kind" json:"kind"`
	ActorID      *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	ActorDisplay string                 `db:"actor_display" json:"actor_display,omitempty"`
	PatientID    *uuid.UUID             `db:"patient_id" json:"patient_id,omitempty"`
	ResourceType string                 `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID             `db:"resource_id" json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	IPAddress    string                 `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string                 `db:"user_agent" json:"user_agent,omitempty"`
	Recorded     time.Time              `db:"recorded" json:"recorded"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
}
