package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrack/caretrack/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const instanceCols = `id, token, patient_id, measure_name, encounter_id, due_date, expires_at,
	status, sent_at, started_at, completed_at, created_at, updated_at`

const pgUniqueViolation = "23505"

func (r *repoPG) Create(ctx context.Context, inst *Instance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assessment_instance (id, token, patient_id, measure_name, encounter_id, due_date, expires_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inst.ID, inst.Token, inst.PatientID, inst.MeasureName, inst.EncounterID,
		inst.DueDate, inst.ExpiresAt, inst.Status,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyScheduled
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Instance, error) {
	return scanInstance(r.pool.QueryRow(ctx, `SELECT `+instanceCols+` FROM assessment_instance WHERE id = $1`, id))
}

func (r *repoPG) GetByToken(ctx context.Context, token string) (*Instance, error) {
	return scanInstance(r.pool.QueryRow(ctx, `SELECT `+instanceCols+` FROM assessment_instance WHERE token = $1`, token))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Instance, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessment_instance WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+instanceCols+` FROM assessment_instance
		WHERE patient_id = $1 ORDER BY due_date DESC, measure_name LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collectInstances(rows)
	return out, total, err
}

func (r *repoPG) CountByEncounter(ctx context.Context, encounterID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assessment_instance WHERE encounter_id = $1`, encounterID).Scan(&n)
	return n, err
}

func timestampCol(to Status) string {
	switch to {
	case StatusSent:
		return "sent_at"
	case StatusStarted:
		return "started_at"
	case StatusCompleted:
		return "completed_at"
	}
	return ""
}

func statusStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func (r *repoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, at time.Time) (bool, error) {
	q := `UPDATE assessment_instance SET status = $1, updated_at = NOW()`
	if col := timestampCol(to); col != "" {
		q += `, ` + col + ` = $4`
	}
	q += ` WHERE id = $2 AND status = ANY($3)`

	args := []interface{}{string(to), id, statusStrings(from)}
	if timestampCol(to) != "" {
		args = append(args, at)
	}
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) CompleteWithResponse(ctx context.Context, id uuid.UUID, resp *Response, now time.Time) (bool, error) {
	won := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE assessment_instance
			SET status = $1, completed_at = $2, updated_at = NOW()
			WHERE id = $3 AND status = ANY($4) AND expires_at > $2`,
			string(StatusCompleted), now, id, statusStrings(nonTerminalStatuses))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if resp.ID == uuid.Nil {
			resp.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO assessment_response (id, instance_id, answers, total_score, severity, completed_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			resp.ID, resp.InstanceID, resp.Answers, resp.TotalScore, resp.Severity, resp.CompletedAt,
		); err != nil {
			return err
		}
		won = true
		return nil
	})
	return won, err
}

func (r *repoPG) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assessment_instance
		SET status = $1, updated_at = NOW()
		WHERE status = ANY($2) AND expires_at <= $3`,
		string(StatusExpired), statusStrings(nonTerminalStatuses), now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) GetResponse(ctx context.Context, instanceID uuid.UUID) (*Response, error) {
	var resp Response
	err := r.pool.QueryRow(ctx, `
		SELECT id, instance_id, answers, total_score, severity, completed_at, created_at
		FROM assessment_response WHERE instance_id = $1`, instanceID).
		Scan(&resp.ID, &resp.InstanceID, &resp.Answers, &resp.TotalScore, &resp.Severity, &resp.CompletedAt, &resp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *repoPG) ListNonTerminalDueBetween(ctx context.Context, from, to time.Time) ([]*Instance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+instanceCols+` FROM assessment_instance
		WHERE status = ANY($1) AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date`,
		statusStrings(nonTerminalStatuses), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *repoPG) ListOverdue(ctx context.Context, graceCutoff, now time.Time) ([]*Instance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+instanceCols+` FROM assessment_instance
		WHERE status = ANY($1) AND due_date < $2 AND expires_at > $3
		ORDER BY due_date`,
		statusStrings(nonTerminalStatuses), graceCutoff, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *repoPG) CountDueBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM assessment_instance
		WHERE status <> $1 AND due_date >= $2 AND due_date <= $3`,
		string(StatusCancelled), from, to).Scan(&n)
	return n, err
}

func (r *repoPG) CountCompletedDueBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM assessment_instance
		WHERE status = $1 AND due_date >= $2 AND due_date <= $3`,
		string(StatusCompleted), from, to).Scan(&n)
	return n, err
}

func scanInstance(row pgx.Row) (*Instance, error) {
	var inst Instance
	err := row.Scan(
		&inst.ID, &inst.Token, &inst.PatientID, &inst.MeasureName, &inst.EncounterID,
		&inst.DueDate, &inst.ExpiresAt, &inst.Status,
		&inst.SentAt, &inst.StartedAt, &inst.CompletedAt, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func collectInstances(rows pgx.Rows) ([]*Instance, error) {
	var out []*Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
