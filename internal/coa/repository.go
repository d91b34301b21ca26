package coa

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuaderno-app/cuaderno/internal/platform/db"
)

// Repository persists chart-of-accounts entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAccounts retrieves the tenant's chart ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, orgID uuid.UUID) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, code, name, type, side, level, parent_code, allows_postings, currency, is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.Side, &a.Level, &a.ParentCode, &a.AllowsPostings, &a.Currency, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetByCode retrieves a single account.
func (r *Repository) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `SELECT id, org_id, code, name, type, side, level, parent_code, allows_postings, currency, is_active, created_at, updated_at
FROM accounts WHERE org_id=$1 AND code=$2`, orgID, code).
		Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.Side, &a.Level, &a.ParentCode, &a.AllowsPostings, &a.Currency, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// Seed inserts the canonical chart for a tenant. Existing codes are left
// untouched so re-seeding is safe.
func (r *Repository) Seed(ctx context.Context, orgID uuid.UUID, accounts []Account) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, a := range accounts {
			if _, err := tx.Exec(ctx, `INSERT INTO accounts (org_id, code, name, type, side, level, parent_code, allows_postings, currency, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (org_id, code) DO NOTHING`,
				orgID, a.Code, a.Name, a.Type, a.Side, a.Level, a.ParentCode, a.AllowsPostings, a.Currency, a.IsActive); err != nil {
				return err
			}
		}
		return nil
	})
}
