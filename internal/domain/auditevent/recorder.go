package auditevent

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Recorder is the fire-and-forget write path for audit events. A failed write
// is logged and swallowed: the state transition that triggered it must never
// roll back because the audit stream is unavailable. Operators monitor these
// log lines separately.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record writes the event, stamping Recorded when unset. It never returns an
// error.
func (r *Recorder) Record(ctx context.Context, ev *AuditEvent) {
	if ev.Recorded.IsZero() {
		ev.Recorded = time.Now().UTC()
	}
	if err := r.repo.Insert(ctx, ev); err != nil {
		r.logger.Error().
			Err(err).
			Str("kind", ev.Kind).
			Str("resource_type", ev.ResourceType).
			Msg("audit write failed")
	}
}
