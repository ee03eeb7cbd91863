// Package repo provides the quota repository implementation
package repo

import (
	"context"
	"time"

	"repolyze/internal/modkit/repokit"
	perr "repolyze/internal/platform/errors"
	"repolyze/internal/platform/store"
	"repolyze/internal/services/quota/domain"
)

// Repo is the quota persistence surface used by the service layer
type Repo interface {
	// Insert records one accepted request for scope
	Insert(ctx context.Context, scope string, at time.Time) error

	// CountSince counts records for scope created at or after since
	CountSince(ctx context.Context, scope string, since time.Time) (int, error)

	// DeleteOlderThan prunes records past the retention window
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// PlanByAccount loads the persisted plan; a missing row means free tier
	PlanByAccount(ctx context.Context, accountID string) (domain.Plan, error)
}

type (
	// PG is a Postgres implementation of the quota repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Insert(ctx context.Context, scope string, at time.Time) error {
	const sql = `
		INSERT INTO quota_records (scope, created_at)
		VALUES ($1, $2)
	`
	_, err := r.q.Exec(ctx, sql, scope, at)
	return err
}

func (r *queries) CountSince(ctx context.Context, scope string, since time.Time) (int, error) {
	const sql = `
		SELECT COUNT(*) FROM quota_records
		WHERE scope = $1 AND created_at >= $2
	`
	return store.Scalar[int](ctx, r.q, sql, scope, since)
}

func (r *queries) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const sql = `DELETE FROM quota_records WHERE created_at < $1`
	tag, err := r.q.Exec(ctx, sql, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *queries) PlanByAccount(ctx context.Context, accountID string) (domain.Plan, error) {
	const sql = `
		SELECT tier, expires_at FROM account_plans
		WHERE account_id = $1
	`
	plan, err := store.One(ctx, r.q, func(row store.Row) (domain.Plan, error) {
		var p domain.Plan
		var tier string
		if err := row.Scan(&tier, &p.ExpiresAt); err != nil {
			return domain.Plan{}, err
		}
		p.Tier = domain.Tier(tier)
		return p, nil
	}, sql, accountID)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Plan{Tier: domain.TierFree}, nil
		}
		return domain.Plan{}, err
	}
	return plan, nil
}
