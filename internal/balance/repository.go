package balance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuaderno-app/cuaderno/internal/credit"
)

// Repository reads installment data for aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOpenInstallments returns the client's unsettled installments on
// collectible credits, ordered by due date. Defaulted credits still owe;
// only cancelled ones drop out of the aggregation.
func (r *Repository) ListOpenInstallments(ctx context.Context, orgID uuid.UUID, clientID int64) ([]credit.Installment, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.org_id, i.credit_id, i.client_id, i.sequence, i.due_date, i.principal_portion, i.interest_portion, i.total_due, i.amount_paid, i.remaining_balance, i.status, i.paid_at
FROM installments i
JOIN credits c ON c.id = i.credit_id AND c.org_id = i.org_id
WHERE i.org_id=$1 AND i.client_id=$2 AND i.status <> $3 AND c.status <> $4
ORDER BY i.due_date, i.sequence`, orgID, clientID, credit.InstallmentPaid, credit.StatusCancelled)
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
