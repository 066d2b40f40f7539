package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// IntegrationRepository resolves connector credentials and tracks sync state.
type IntegrationRepository interface {
	ListActiveByProvider(ctx context.Context, provider string) ([]domain.Integration, error)
	UpdateLastSync(ctx context.Context, id string, at time.Time) error
}

type integrationRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrationRepository instantiates repository.
func NewIntegrationRepository(pool *pgxpool.Pool) IntegrationRepository {
	return &integrationRepository{pool: pool}
}

func (r *integrationRepository) ListActiveByProvider(ctx context.Context, provider string) ([]domain.Integration, error) {
	const query = `
        SELECT id, tenant_id, COALESCE(vendor_id::text, ''), provider, token_digest, target_queue, active, last_sync_at, created_at
        FROM integrations WHERE provider=$1 AND active`
	rows, err := r.pool.Query(ctx, query, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []domain.Integration
	for rows.Next() {
		var rec domain.Integration
		if err := rows.Scan(
			&rec.ID,
			&rec.TenantID,
			&rec.VendorID,
			&rec.Provider,
			&rec.TokenDigest,
			&rec.TargetQueue,
			&rec.Active,
			&rec.LastSyncAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		integrations = append(integrations, rec)
	}
	return integrations, rows.Err()
}

func (r *integrationRepository) UpdateLastSync(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE integrations SET last_sync_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
