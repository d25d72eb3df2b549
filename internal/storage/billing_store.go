package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadhustle/platform/pkg/billing"
	"github.com/leadhustle/platform/pkg/pg"
)

// BillingStore implements billing.RecordStore on Postgres. Patches are
// merged under a row lock so concurrent webhook and resolver writes cannot
// interleave partial field groups.
type BillingStore struct {
	pool *pgxpool.Pool
}

// NewBillingStore panics on a nil pool.
func NewBillingStore(pool *pgxpool.Pool) *BillingStore {
	if pool == nil {
		panic("storage: pool is required")
	}
	return &BillingStore{pool: pool}
}

const selectSubscription = `
SELECT account_id, customer_id, subscription_id, status, price_id,
       trial_end, current_period_end, provisional, updated_at
FROM subscriptions`

func scanRecord(row pgx.Row) (*billing.Record, error) {
	var rec billing.Record
	var status string
	err := row.Scan(
		&rec.AccountID, &rec.CustomerID, &rec.SubscriptionID, &status,
		&rec.PriceID, &rec.TrialEnd, &rec.CurrentPeriodEnd,
		&rec.Provisional, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = billing.Status(status)
	return &rec, nil
}

func (s *BillingStore) Get(ctx context.Context, accountID uuid.UUID) (*billing.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectSubscription+" WHERE account_id = $1", accountID))
	if pg.IsNotFound(err) {
		return nil, billing.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription record: %w", err)
	}
	return rec, nil
}

func (s *BillingStore) FindByCustomerID(ctx context.Context, customerID string) (*billing.Record, error) {
	if customerID == "" {
		return nil, billing.ErrRecordNotFound
	}
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectSubscription+" WHERE customer_id = $1 LIMIT 1", customerID))
	if pg.IsNotFound(err) {
		return nil, billing.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription by customer: %w", err)
	}
	return rec, nil
}

// Upsert merges the patch into the account's record inside a transaction.
// Field-group semantics mirror the in-memory store: a provider state write
// clears the provisional marker unless the patch sets it explicitly.
func (s *BillingStore) Upsert(ctx context.Context, accountID uuid.UUID, patch billing.RecordPatch) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := scanRecord(tx.QueryRow(ctx, selectSubscription+" WHERE account_id = $1 FOR UPDATE", accountID))
	if pg.IsNotFound(err) {
		rec = &billing.Record{AccountID: accountID, Status: billing.StatusNoSubscription}
	} else if err != nil {
		return fmt.Errorf("lock subscription record: %w", err)
	}

	applyPatch(rec, patch)
	rec.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
INSERT INTO subscriptions (account_id, customer_id, subscription_id, status, price_id,
                           trial_end, current_period_end, provisional, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (account_id) DO UPDATE SET
    customer_id        = EXCLUDED.customer_id,
    subscription_id    = EXCLUDED.subscription_id,
    status             = EXCLUDED.status,
    price_id           = EXCLUDED.price_id,
    trial_end          = EXCLUDED.trial_end,
    current_period_end = EXCLUDED.current_period_end,
    provisional        = EXCLUDED.provisional,
    updated_at         = EXCLUDED.updated_at`,
		rec.AccountID, rec.CustomerID, rec.SubscriptionID, string(rec.Status), rec.PriceID,
		rec.TrialEnd, rec.CurrentPeriodEnd, rec.Provisional, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription record: %w", err)
	}
	return tx.Commit(ctx)
}

// applyPatch merges patch fields into rec. Kept in sync with the in-memory
// store used by tests.
func applyPatch(rec *billing.Record, patch billing.RecordPatch) {
	if patch.CustomerID != nil {
		rec.CustomerID = *patch.CustomerID
	}
	if patch.SubscriptionID != nil {
		rec.SubscriptionID = *patch.SubscriptionID
	}
	if patch.PriceID != nil {
		rec.PriceID = *patch.PriceID
	}
	if patch.State != nil {
		rec.Status = patch.State.Status
		rec.TrialEnd = patch.State.TrialEnd
		rec.CurrentPeriodEnd = patch.State.CurrentPeriodEnd
		rec.Provisional = false
	}
	if patch.Provisional != nil {
		rec.Provisional = *patch.Provisional
	}
}

// SetProfileStatus mirrors the subscription status onto the profile row the
// client dashboard reads.
func (s *BillingStore) SetProfileStatus(ctx context.Context, accountID uuid.UUID, status billing.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET subscription_status = $2, updated_at = NOW() WHERE account_id = $1`,
		accountID, string(status),
	)
	if err != nil {
		return fmt.Errorf("set profile status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(billing.ErrAccountNotFound, fmt.Errorf("profile %s", accountID))
	}
	return nil
}
