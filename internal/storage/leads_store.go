package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadhustle/platform/pkg/leads"
	"github.com/leadhustle/platform/pkg/pg"
)

const defaultListLimit = 100

// LeadStore implements leads.Store on Postgres.
type LeadStore struct {
	pool *pgxpool.Pool
}

// NewLeadStore panics on a nil pool.
func NewLeadStore(pool *pgxpool.Pool) *LeadStore {
	if pool == nil {
		panic("storage: pool is required")
	}
	return &LeadStore{pool: pool}
}

// CreateBatch inserts all leads in one pgx batch round trip.
func (s *LeadStore) CreateBatch(ctx context.Context, batch []leads.Lead) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	b := &pgx.Batch{}
	for _, lead := range batch {
		b.Queue(`
INSERT INTO leads (id, account_id, first_name, last_name, email, phone,
                   company, job_title, status, source, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			lead.ID, lead.AccountID, lead.FirstName, lead.LastName, lead.Email, lead.Phone,
			lead.Company, lead.JobTitle, string(lead.Status), lead.Source, lead.Notes,
			lead.CreatedAt, lead.UpdatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, b)
	defer func() { _ = results.Close() }()

	for i := range batch {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("insert lead %d of %d: %w", i+1, len(batch), err)
		}
	}
	return len(batch), nil
}

const selectLead = `
SELECT id, account_id, first_name, last_name, email, phone,
       company, job_title, status, source, notes, created_at, updated_at
FROM leads`

func scanLead(row pgx.Row) (*leads.Lead, error) {
	var lead leads.Lead
	var status string
	err := row.Scan(
		&lead.ID, &lead.AccountID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Company, &lead.JobTitle, &status, &lead.Source, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Status = leads.Status(status)
	return &lead, nil
}

func (s *LeadStore) List(ctx context.Context, accountID uuid.UUID, filter leads.ListFilter) ([]leads.Lead, error) {
	var sb strings.Builder
	sb.WriteString(selectLead)
	sb.WriteString(" WHERE account_id = $1")
	args := []any{accountID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		fmt.Fprintf(&sb,
			" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)",
			n, n, n, n)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []leads.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return out, nil
}

func (s *LeadStore) Get(ctx context.Context, accountID, leadID uuid.UUID) (*leads.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx, selectLead+" WHERE account_id = $1 AND id = $2", accountID, leadID))
	if pg.IsNotFound(err) {
		return nil, leads.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (s *LeadStore) Delete(ctx context.Context, accountID, leadID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE account_id = $1 AND id = $2`, accountID, leadID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leads.ErrLeadNotFound
	}
	return nil
}
