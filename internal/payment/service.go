package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// RepositoryPort defines data access for payments.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, orgID uuid.UUID, id int64) (Payment, error)
	ListByClient(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Payment, error)
}

// TxRepository exposes the writes of the atomic allocation unit of work. Open
// installments are locked for the duration so two simultaneous payments for
// the same client cannot double-apply.
type TxRepository interface {
	GetPartyForUpdate(ctx context.Context, orgID uuid.UUID, partyID int64) (thirdparty.ThirdParty, error)
	ListOpenInstallmentsForUpdate(ctx context.Context, orgID uuid.UUID, clientID int64) ([]credit.Installment, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error
	UpdateInstallment(ctx context.Context, orgID uuid.UUID, update InstallmentUpdate) error
	ApplyCreditPayment(ctx context.Context, orgID uuid.UUID, creditID int64, principalPaid float64) error
	CountOutstanding(ctx context.Context, orgID uuid.UUID, creditID int64) (int, error)
	UpdateCreditStatus(ctx context.Context, orgID uuid.UUID, creditID int64, status credit.Status) error
	UpdatePartyBalance(ctx context.Context, orgID uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error
	InsertMovement(ctx context.Context, movement thirdparty.Movement) error
}

// AuditPort records payment events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts allocations for observability.
type MetricsPort interface {
	PaymentAllocated(component string)
}

// Service allocates confirmed payments across a client's outstanding
// installments.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	metrics   MetricsPort
	dailyRate float64
	now       func() time.Time
}

// NewService constructs the payment service. The daily penalty rate is
// injected configuration.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, dailyRate float64) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, dailyRate: dailyRate, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Confirm applies a confirmed gateway payment to the client's open
// installments, oldest due date first, and persists the payment with its full
// allocation trail atomically. Credits whose last installment settles are
// marked paid in the same unit of work.
func (s *Service) Confirm(ctx context.Context, orgID uuid.UUID, in ConfirmInput) (Payment, error) {
	if err := in.Validate(); err != nil {
		return Payment{}, err
	}
	now := s.now()

	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		client, err := tx.GetPartyForUpdate(ctx, orgID, in.ClientID)
		if err != nil {
			if errors.Is(err, thirdparty.ErrNotFound) {
				return fmt.Errorf("%w: client %d", ErrNotFound, in.ClientID)
			}
			return err
		}
		if !client.ActsAs(thirdparty.RoleClient) {
			return fmt.Errorf("%w: party %d is not a client", ErrNotFound, in.ClientID)
		}

		installments, err := tx.ListOpenInstallmentsForUpdate(ctx, orgID, in.ClientID)
		if err != nil {
			return err
		}
		result := Allocate(installments, in.Amount, s.dailyRate, now)

		payment = Payment{
			OrgID:             orgID,
			ClientID:          in.ClientID,
			Amount:            round2(in.Amount),
			Method:            in.Method,
			Status:            StatusConfirmed,
			ExternalReference: in.ExternalReference,
			UnappliedAmount:   result.Unapplied,
		}
		payment, err = tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		if err := tx.InsertAllocations(ctx, payment.ID, result.Allocations); err != nil {
			return err
		}
		for i := range result.Allocations {
			result.Allocations[i].PaymentID = payment.ID
		}
		payment.Allocations = result.Allocations

		principalByCredit := map[int64]float64{}
		for _, update := range result.Updates {
			if err := tx.UpdateInstallment(ctx, orgID, update); err != nil {
				return err
			}
			principalByCredit[update.CreditID] = round2(principalByCredit[update.CreditID] + update.PrincipalApplied)
		}
		for creditID, principalPaid := range principalByCredit {
			if err := tx.ApplyCreditPayment(ctx, orgID, creditID, principalPaid); err != nil {
				return err
			}
			outstanding, err := tx.CountOutstanding(ctx, orgID, creditID)
			if err != nil {
				return err
			}
			if outstanding == 0 {
				if err := tx.UpdateCreditStatus(ctx, orgID, creditID, credit.StatusPaid); err != nil {
					return err
				}
			}
		}

		// The receivable shrinks by the balance portion only; penalties are
		// income on top of the debt, not part of it.
		reduction := round2(result.Applied - result.PenaltyPaid)
		if reduction > 0 {
			balance := round2(client.BalanceAsClient - reduction)
			if err := tx.UpdatePartyBalance(ctx, orgID, in.ClientID, thirdparty.RoleClient, balance); err != nil {
				return err
			}
			paymentID := payment.ID
			if err := tx.InsertMovement(ctx, thirdparty.Movement{
				OrgID:        orgID,
				PartyID:      in.ClientID,
				Role:         thirdparty.RoleClient,
				PaymentID:    &paymentID,
				Kind:         "PAYMENT",
				Amount:       -reduction,
				BalanceAfter: balance,
				OccurredAt:   now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	if s.metrics != nil {
		for _, alloc := range payment.Allocations {
			s.metrics.PaymentAllocated(string(alloc.Component))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    orgID,
			Actor:    "system",
			Action:   "payment.confirm",
			Entity:   "payment",
			EntityID: fmt.Sprintf("%d", payment.ID),
			Meta: map[string]any{
				"client_id":   in.ClientID,
				"amount":      payment.Amount,
				"allocations": len(payment.Allocations),
				"unapplied":   payment.UnappliedAmount,
				"reference":   in.ExternalReference,
			},
			At: now,
		})
	}
	return payment, nil
}

// Get returns a payment with its allocation trail.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID, id int64) (Payment, error) {
	return s.repo.Get(ctx, orgID, id)
}

// ListByClient returns a client's payments, newest first.
func (s *Service) ListByClient(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Payment, error) {
	return s.repo.ListByClient(ctx, orgID, clientID)
}
