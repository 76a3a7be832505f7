package auditevent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const eventCols = `id, kind, actor_id, actor_display, patient_id,
	resource_type, resource_id, metadata, ip_address, user_agent, recorded, created_at`

func scanEvent(row pgx.Row) (*AuditEvent, error) {
	var ev AuditEvent
	err := row.Scan(&ev.ID, &ev.Kind, &ev.ActorID, &ev.ActorDisplay, &ev.PatientID,
		&ev.ResourceType, &ev.ResourceID, &ev.Metadata, &ev.IPAddress, &ev.UserAgent,
		&ev.Recorded, &ev.CreatedAt)
	return &ev, err
}

func (r *repoPG) Insert(ctx context.Context, ev *AuditEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Recorded.IsZero() {
		ev.Recorded = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_event
			(id, kind, actor_id, actor_display, patient_id, resource_type, resource_id,
			 metadata, ip_address, user_agent, recorded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		ev.ID, ev.Kind, ev.ActorID, ev.ActorDisplay, ev.PatientID,
		ev.ResourceType, ev.ResourceID, ev.Metadata, ev.IPAddress, ev.UserAgent, ev.Recorded)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*AuditEvent, error) {
	return scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM audit_event WHERE id = $1`, id))
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*AuditEvent, int, error) {
	query := `SELECT ` + eventCols + ` FROM audit_event WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM audit_event WHERE 1=1`
	var args []interface{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		query += fmt.Sprintf(clause, idx)
		countQuery += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if p, ok := params["kind"]; ok {
		addFilter(` AND kind = $%d`, p)
	}
	if p, ok := params["patient"]; ok {
		addFilter(` AND patient_id = $%d`, p)
	}
	if p, ok := params["resource"]; ok {
		addFilter(` AND resource_id = $%d`, p)
	}
	if p, ok := params["actor"]; ok {
		addFilter(` AND actor_id = $%d`, p)
	}
	if p, ok := params["since"]; ok {
		addFilter(` AND recorded >= $%d`, p)
	}
	if p, ok := params["until"]; ok {
		addFilter(` AND recorded <= $%d`, p)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY recorded DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*AuditEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, ev)
	}
	return items, total, rows.Err()
}
