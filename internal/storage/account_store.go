package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadhustle/platform/pkg/identity"
	"github.com/leadhustle/platform/pkg/pg"
)

// AccountStore implements identity.AccountStore on Postgres.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore panics on a nil pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	if pool == nil {
		panic("storage: pool is required")
	}
	return &AccountStore{pool: pool}
}

// CreateAccount inserts the account, its password hash and an empty profile
// row in one transaction. The profile row is what the billing mirror
// updates later.
func (s *AccountStore) CreateAccount(ctx context.Context, account *identity.Account, passwordHash []byte) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create account: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.Email, account.Name, passwordHash, account.CreatedAt,
	)
	if pg.IsDuplicateKey(err) {
		return identity.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO profiles (account_id) VALUES ($1)`, account.ID); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return tx.Commit(ctx)
}

func scanAccount(row pgx.Row) (*identity.Account, error) {
	var account identity.Account
	if err := row.Scan(&account.ID, &account.Email, &account.Name, &account.CreatedAt); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountStore) GetAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM accounts WHERE id = $1`, id))
	if pg.IsNotFound(err) {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM accounts WHERE email = $1`, email))
	if pg.IsNotFound(err) {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return account, nil
}

func (s *AccountStore) GetPasswordHash(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var hash []byte
	err := s.pool.QueryRow(ctx, `SELECT password_hash FROM accounts WHERE id = $1`, id).Scan(&hash)
	if pg.IsNotFound(err) {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}
