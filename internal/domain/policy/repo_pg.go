package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const policyCols = `id, name, cadence_days, grace_window_days, expiration_days,
	measures_required, require_at_intake, created_at, updated_at`

func scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.Name, &p.CadenceDays, &p.GraceWindowDays, &p.ExpirationDays,
		&p.MeasuresRequired, &p.RequireAtIntake, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Policy, error) {
	return scanPolicy(r.pool.QueryRow(ctx,
		`SELECT `+policyCols+` FROM assessment_policy WHERE name = $1`, name))
}

func (r *repoPG) GetOrCreate(ctx context.Context, def *Policy) (*Policy, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	// ON CONFLICT DO NOTHING makes concurrent first access converge on one
	// row; the read after the insert returns whichever row won.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assessment_policy
			(id, name, cadence_days, grace_window_days, expiration_days, measures_required, require_at_intake)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (name) DO NOTHING`,
		def.ID, def.Name, def.CadenceDays, def.GraceWindowDays, def.ExpirationDays,
		def.MeasuresRequired, def.RequireAtIntake)
	if err != nil {
		return nil, err
	}
	return r.GetByName(ctx, def.Name)
}

func (r *repoPG) Update(ctx context.Context, p *Policy) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE assessment_policy
		SET cadence_days=$2, grace_window_days=$3, expiration_days=$4,
			measures_required=$5, require_at_intake=$6, updated_at=NOW()
		WHERE name = $1`,
		p.Name, p.CadenceDays, p.GraceWindowDays, p.ExpirationDays,
		p.MeasuresRequired, p.RequireAtIntake)
	return err
}
