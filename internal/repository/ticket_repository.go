package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-platform/internal/domain"
)

// ErrStaleTicket signals a lost compare-and-swap race; the caller should
// re-read and retry.
var ErrStaleTicket = errors.New("stale ticket version")

// ErrDuplicateExternalID signals that (tenant, source, external_id) already
// resolves to a ticket.
var ErrDuplicateExternalID = errors.New("duplicate external id")

// TicketFilter captures listing parameters for dashboards and the sweep.
type TicketFilter struct {
	TenantID     *string
	CustomerName *string
	VendorID     *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. Creation and transition
// are atomic with their audit entries: a reader never observes a status
// without the matching trail entry.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.AuditEntry) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalID(ctx context.Context, tenantID string, source domain.TicketSource, externalID string) (*domain.Ticket, error)
	ApplyTransition(ctx context.Context, id string, expectedUpdatedAt time.Time, newStatus domain.TicketStatus, entry *domain.AuditEntry) (*domain.Ticket, error)
	AppendAudit(ctx context.Context, id string, entry *domain.AuditEntry) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListUnresolved(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (tenant_id, vendor_id, title, description, priority, status, source, customer_name, external_id, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, insertTicket,
		ticket.TenantID,
		nullable(ticket.VendorID),
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Source,
		ticket.CustomerName,
		ticket.ExternalID,
		ticket.SLADeadline,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateExternalID
		}
		return err
	}

	entry.TicketID = ticket.ID
	if err := insertAudit(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ticket.AuditTrail = []domain.AuditEntry{*entry}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE id=$1`
	ticket, err := r.fetchSingle(ctx, query, id)
	if err != nil {
		return nil, err
	}
	trail, err := r.loadTrail(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.AuditTrail = trail
	return ticket, nil
}

func (r *ticketRepository) GetByExternalID(ctx context.Context, tenantID string, source domain.TicketSource, externalID string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE tenant_id=$1 AND source=$2 AND external_id=$3`
	return r.fetchSingle(ctx, query, tenantID, source, externalID)
}

// ApplyTransition performs the compare-and-swap status update together with
// the audit append in one transaction. A mismatch on expectedUpdatedAt
// returns ErrStaleTicket without touching the row.
func (r *ticketRepository) ApplyTransition(ctx context.Context, id string, expectedUpdatedAt time.Time, newStatus domain.TicketStatus, entry *domain.AuditEntry) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND updated_at=$3`
	cmd, err := tx.Exec(ctx, update, newStatus, id, expectedUpdatedAt)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, pgx.ErrNoRows
		}
		return nil, ErrStaleTicket
	}

	entry.TicketID = id
	if err := insertAudit(ctx, tx, entry); err != nil {
		return nil, err
	}

	ticket, err := fetchSingleTx(ctx, tx, ticketSelect+` WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	trail, err := loadTrailTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	ticket.AuditTrail = trail

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) AppendAudit(ctx context.Context, id string, entry *domain.AuditEntry) error {
	entry.TicketID = id
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck
	if err := insertAudit(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		clauses = append(clauses, fmt.Sprintf("tenant_id=$%d", len(args)))
	}
	if filter.CustomerName != nil {
		args = append(args, *filter.CustomerName)
		clauses = append(clauses, fmt.Sprintf("customer_name=$%d", len(args)))
	}
	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		clauses = append(clauses, fmt.Sprintf("vendor_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketSelect, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListUnresolved returns every ticket outside the terminal states, for the
// periodic SLA sweep.
func (r *ticketRepository) ListUnresolved(ctx context.Context) ([]domain.Ticket, error) {
	query := ticketSelect + ` WHERE status NOT IN ('resolved','closed') ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

const ticketSelect = `
        SELECT id, tenant_id, COALESCE(vendor_id::text, ''), title, description, priority, status, source,
               customer_name, external_id, sla_deadline, created_at, updated_at
        FROM tickets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.VendorID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Source,
		&ticket.CustomerName,
		&ticket.ExternalID,
		&ticket.SLADeadline,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}

func fetchSingleTx(ctx context.Context, tx pgx.Tx, query string, args ...any) (*domain.Ticket, error) {
	return scanTicket(tx.QueryRow(ctx, query, args...))
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

const auditSelect = `
        SELECT id, ticket_id, kind, note, actor, created_at
        FROM audit_entries WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`

func (r *ticketRepository) loadTrail(ctx context.Context, ticketID string) ([]domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, auditSelect, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrail(rows)
}

func loadTrailTx(ctx context.Context, tx pgx.Tx, ticketID string) ([]domain.AuditEntry, error) {
	rows, err := tx.Query(ctx, auditSelect, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrail(rows)
}

func scanTrail(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var trail []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Kind, &entry.Note, &entry.Actor, &entry.CreatedAt); err != nil {
			return nil, err
		}
		trail = append(trail, entry)
	}
	return trail, rows.Err()
}

func insertAudit(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (ticket_id, kind, note, actor)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query, entry.TicketID, entry.Kind, entry.Note, entry.Actor).
		Scan(&entry.ID, &entry.CreatedAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
