package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// VendorRepository is the read-only policy source for this core. Vendor
// records are managed by an external administrative surface.
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vendor, error)
	ListActive(ctx context.Context, tenantID string) ([]domain.Vendor, error)
}

type vendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository instantiates repository.
func NewVendorRepository(pool *pgxpool.Pool) VendorRepository {
	return &vendorRepository{pool: pool}
}

const vendorSelect = `
        SELECT id, tenant_id, name, category, contact, active, sla_table, custom_columns
        FROM vendors`

func (r *vendorRepository) GetByID(ctx context.Context, id string) (*domain.Vendor, error) {
	return scanVendor(r.pool.QueryRow(ctx, vendorSelect+` WHERE id=$1`, id))
}

func (r *vendorRepository) ListActive(ctx context.Context, tenantID string) ([]domain.Vendor, error) {
	rows, err := r.pool.Query(ctx, vendorSelect+` WHERE tenant_id=$1 AND active ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []domain.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *vendor)
	}
	return vendors, rows.Err()
}

func scanVendor(row rowScanner) (*domain.Vendor, error) {
	var (
		vendor  domain.Vendor
		rawSLA  []byte
		columns []string
	)
	if err := row.Scan(
		&vendor.ID,
		&vendor.TenantID,
		&vendor.Name,
		&vendor.Category,
		&vendor.Contact,
		&vendor.Active,
		&rawSLA,
		&columns,
	); err != nil {
		return nil, err
	}
	if len(rawSLA) > 0 {
		if err := json.Unmarshal(rawSLA, &vendor.SLATable); err != nil {
			return nil, err
		}
	}
	for _, col := range columns {
		vendor.CustomColumns = append(vendor.CustomColumns, domain.TicketStatus(col))
	}
	return &vendor, nil
}
