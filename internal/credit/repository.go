package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuaderno-app/cuaderno/internal/platform/db"
)

// Repository persists credits and installments.
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

func (r *txRepository) InsertCredit(ctx context.Context, c Credit) (Credit, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO credits (org_id, client_id, original_amount, down_payment, financed_amount, monthly_rate, installment_count, installment_value, remaining_principal, status, grant_date, first_due_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		c.OrgID, c.ClientID, num(c.OriginalAmount), num(c.DownPayment), num(c.FinancedAmount), c.MonthlyRate,
		c.InstallmentCount, num(c.InstallmentValue), num(c.RemainingPrincipal), c.Status, c.GrantDate, c.FirstDueDate)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Credit{}, err
	}
	return c, nil
}

func (r *txRepository) InsertInstallments(ctx context.Context, installments []Installment) error {
	for _, inst := range installments {
		if _, err := r.tx.Exec(ctx, `INSERT INTO installments (org_id, credit_id, client_id, sequence, due_date, principal_portion, interest_portion, total_due, amount_paid, remaining_balance, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			inst.OrgID, inst.CreditID, inst.ClientID, inst.Sequence, inst.DueDate,
			num(inst.PrincipalPortion), num(inst.InterestPortion), num(inst.TotalDue),
			num(inst.AmountPaid), num(inst.RemainingBalance), inst.Status); err != nil {
			return err
		}
	}
	return nil
}

const creditColumns = `id, org_id, client_id, original_amount, down_payment, financed_amount, monthly_rate, installment_count, installment_value, remaining_principal, status, grant_date, first_due_date, created_at, updated_at`

func scanCredit(row pgx.Row) (Credit, error) {
	var c Credit
	err := row.Scan(&c.ID, &c.OrgID, &c.ClientID, &c.OriginalAmount, &c.DownPayment, &c.FinancedAmount,
		&c.MonthlyRate, &c.InstallmentCount, &c.InstallmentValue, &c.RemainingPrincipal,
		&c.Status, &c.GrantDate, &c.FirstDueDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credit{}, ErrNotFound
		}
		return Credit{}, err
	}
	return c, nil
}

// Get returns a credit by id.
func (r *Repository) Get(ctx context.Context, orgID uuid.UUID, id int64) (Credit, error) {
	return scanCredit(r.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE org_id=$1 AND id=$2`, orgID, id))
}

// List returns credits, optionally filtered by client.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE org_id=$1 ORDER BY grant_date DESC`
	args := []any{orgID}
	if clientID != 0 {
		query = `SELECT ` + creditColumns + ` FROM credits WHERE org_id=$1 AND client_id=$2 ORDER BY grant_date DESC`
		args = append(args, clientID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var credits []Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

const installmentColumns = `id, org_id, credit_id, client_id, sequence, due_date, principal_portion, interest_portion, total_due, amount_paid, remaining_balance, status, paid_at`

func scanInstallment(row pgx.Row) (Installment, error) {
	var i Installment
	err := row.Scan(&i.ID, &i.OrgID, &i.CreditID, &i.ClientID, &i.Sequence, &i.DueDate,
		&i.PrincipalPortion, &i.InterestPortion, &i.TotalDue, &i.AmountPaid,
		&i.RemainingBalance, &i.Status, &i.PaidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Installment{}, ErrNotFound
		}
		return Installment{}, err
	}
	return i, nil
}

// ListInstallments returns a credit's schedule ordered by sequence.
func (r *Repository) ListInstallments(ctx context.Context, orgID uuid.UUID, creditID int64) ([]Installment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+installmentColumns+` FROM installments WHERE org_id=$1 AND credit_id=$2 ORDER BY sequence`, orgID, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var installments []Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, i)
	}
	return installments, rows.Err()
}

// CountOutstanding counts a credit's unsettled installments.
func (r *Repository) CountOutstanding(ctx context.Context, orgID uuid.UUID, creditID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM installments WHERE org_id=$1 AND credit_id=$2 AND status <> $3`, orgID, creditID, InstallmentPaid).Scan(&count)
	return count, err
}

// ListAgingCandidates returns active credits, across tenants, whose oldest
// unsettled installment fell due before the cutoff.
func (r *Repository) ListAgingCandidates(ctx context.Context, cutoff time.Time) ([]Credit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+qualify(creditColumns, "c")+` FROM credits c
WHERE c.status = $1 AND EXISTS (
  SELECT 1 FROM installments i
  WHERE i.credit_id = c.id AND i.org_id = c.org_id AND i.status <> $2 AND i.due_date < $3
) ORDER BY c.id`, StatusActive, InstallmentPaid, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var credits []Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// UpdateStatus persists a credit status change.
func (r *Repository) UpdateStatus(ctx context.Context, orgID uuid.UUID, id int64, status Status) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE credits SET status=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func qualify(columns, alias string) string {
	cols := strings.Split(columns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
