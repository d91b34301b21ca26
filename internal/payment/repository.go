package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/platform/db"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// Repository persists payments and allocations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetPartyForUpdate(ctx context.Context, orgID uuid.UUID, partyID int64) (thirdparty.ThirdParty, error) {
	var p thirdparty.ThirdParty
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, name, document_id, role, balance_as_client, balance_as_supplier, credit_limit, is_active, created_at, updated_at
FROM third_parties WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, partyID).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.DocumentID, &p.Role, &p.BalanceAsClient, &p.BalanceAsSupplier, &p.CreditLimit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return thirdparty.ThirdParty{}, thirdparty.ErrNotFound
		}
		return thirdparty.ThirdParty{}, err
	}
	return p, nil
}

// ListOpenInstallmentsForUpdate locks and returns the client's unsettled
// installments on collectible credits, ordered for the waterfall: due date,
// then sequence for stable ties. Defaulted credits stay collectible; only a
// cancellation forgives the debt.
func (r *txRepository) ListOpenInstallmentsForUpdate(ctx context.Context, orgID uuid.UUID, clientID int64) ([]credit.Installment, error) {
	rows, err := r.tx.Query(ctx, `SELECT i.id, i.org_id, i.credit_id, i.client_id, i.sequence, i.due_date, i.principal_portion, i.interest_portion, i.total_due, i.amount_paid, i.remaining_balance, i.status, i.paid_at
FROM installments i
JOIN credits c ON c.id = i.credit_id AND c.org_id = i.org_id
WHERE i.org_id=$1 AND i.client_id=$2 AND i.status <> $3 AND c.status <> $4
ORDER BY i.due_date, i.sequence, i.id
FOR UPDATE OF i`, orgID, clientID, credit.InstallmentPaid, credit.StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var installments []credit.Installment
	for rows.Next() {
		var i credit.Installment
		if err := rows.Scan(&i.ID, &i.OrgID, &i.CreditID, &i.ClientID, &i.Sequence, &i.DueDate,
			&i.PrincipalPortion, &i.InterestPortion, &i.TotalDue, &i.AmountPaid,
			&i.RemainingBalance, &i.Status, &i.PaidAt); err != nil {
			return nil, err
		}
		installments = append(installments, i)
	}
	return installments, rows.Err()
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	var ref any
	if p.ExternalReference != "" {
		ref = p.ExternalReference
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO payments (org_id, client_id, amount, method, status, external_reference, unapplied_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		p.OrgID, p.ClientID, num(p.Amount), p.Method, p.Status, ref, num(p.UnappliedAmount))
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Payment{}, ErrDuplicateReference
		}
		return Payment{}, err
	}
	return p, nil
}

func (r *txRepository) InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error {
	for _, a := range allocations {
		if _, err := r.tx.Exec(ctx, `INSERT INTO payment_allocations (payment_id, installment_id, credit_id, component, amount)
VALUES ($1,$2,$3,$4,$5)`, paymentID, a.InstallmentID, a.CreditID, a.Component, num(a.Amount)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) UpdateInstallment(ctx context.Context, orgID uuid.UUID, update InstallmentUpdate) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE installments SET amount_paid=$3, remaining_balance=$4, status=$5, paid_at=$6
WHERE org_id=$1 AND id=$2`, orgID, update.InstallmentID, num(update.AmountPaid), num(update.RemainingBalance), update.Status, update.PaidAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return credit.ErrNotFound
	}
	return nil
}

func (r *txRepository) ApplyCreditPayment(ctx context.Context, orgID uuid.UUID, creditID int64, principalPaid float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE credits SET remaining_principal = GREATEST(remaining_principal - $3, 0), updated_at=NOW()
WHERE org_id=$1 AND id=$2`, orgID, creditID, num(principalPaid))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return credit.ErrNotFound
	}
	return nil
}

func (r *txRepository) CountOutstanding(ctx context.Context, orgID uuid.UUID, creditID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM installments WHERE org_id=$1 AND credit_id=$2 AND status <> $3`,
		orgID, creditID, credit.InstallmentPaid).Scan(&count)
	return count, err
}

func (r *txRepository) UpdateCreditStatus(ctx context.Context, orgID uuid.UUID, creditID int64, status credit.Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE credits SET status=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, creditID, status)
	return err
}

func (r *txRepository) UpdatePartyBalance(ctx context.Context, orgID uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error {
	column := "balance_as_supplier"
	if role == thirdparty.RoleClient {
		column = "balance_as_client"
	}
	_, err := r.tx.Exec(ctx, `UPDATE third_parties SET `+column+`=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, partyID, num(balance))
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m thirdparty.Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO third_party_movements (org_id, party_id, role, journal_entry_id, payment_id, kind, amount, balance_after, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.OrgID, m.PartyID, m.Role, m.JournalEntryID, m.PaymentID, m.Kind, num(m.Amount), num(m.BalanceAfter), m.OccurredAt)
	return err
}

const paymentColumns = `id, org_id, client_id, amount, method, status, COALESCE(external_reference, ''), unapplied_amount, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrgID, &p.ClientID, &p.Amount, &p.Method, &p.Status, &p.ExternalReference, &p.UnappliedAmount, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

// Get returns a payment with its allocation trail.
func (r *Repository) Get(ctx context.Context, orgID uuid.UUID, id int64) (Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		return Payment{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, payment_id, installment_id, credit_id, component, amount FROM payment_allocations WHERE payment_id=$1 ORDER BY id`, id)
	if err != nil {
		return Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InstallmentID, &a.CreditID, &a.Component, &a.Amount); err != nil {
			return Payment{}, err
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}

// ListByClient returns a client's payments, newest first.
func (r *Repository) ListByClient(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE org_id=$1 AND client_id=$2 ORDER BY created_at DESC`, orgID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
