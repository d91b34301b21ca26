package payment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cuaderno-app/cuaderno/internal/credit"
)

// Component classifies what part of the debt an allocation settles.
type Component string

const (
	ComponentPrincipal Component = "PRINCIPAL"
	ComponentInterest  Component = "INTEREST"
	ComponentPenalty   Component = "PENALTY"
)

// StatusConfirmed is the only persisted payment status: payments enter the
// system already confirmed by the external gateway boundary.
const StatusConfirmed = "CONFIRMED"

// tolerance is the settlement cutoff: balances within one cent count as paid
// and funds below one cent stop the waterfall.
const tolerance = 0.01

var (
	// ErrNotFound indicates a missing payment or client.
	ErrNotFound = errors.New("payment: not found")
	// ErrInvalidInput indicates a confirmation request that fails validation.
	ErrInvalidInput = errors.New("payment: invalid input")
	// ErrDuplicateReference indicates the external reference was already processed.
	ErrDuplicateReference = errors.New("payment: external reference already processed")
)

// Payment records a confirmed inbound amount and how it was dispersed. Funds
// left over after every installment is settled are kept in UnappliedAmount,
// never silently dropped.
type Payment struct {
	ID                int64
	OrgID             uuid.UUID
	ClientID          int64
	Amount            float64
	Method            string
	Status            string
	ExternalReference string
	UnappliedAmount   float64
	Allocations       []Allocation
	CreatedAt         time.Time
}

// Allocation is one component-level application of funds to an installment.
type Allocation struct {
	ID            int64
	PaymentID     int64
	InstallmentID int64
	CreditID      int64
	Component     Component
	Amount        float64
}

// InstallmentUpdate carries the settlement mutation for one touched installment.
type InstallmentUpdate struct {
	InstallmentID    int64
	CreditID         int64
	AmountPaid       float64
	RemainingBalance float64
	Status           credit.InstallmentStatus
	PaidAt           *time.Time
	PrincipalApplied float64
}

// AllocationResult is the outcome of running the waterfall.
type AllocationResult struct {
	Allocations []Allocation
	Updates     []InstallmentUpdate
	Applied     float64
	PenaltyPaid float64
	Unapplied   float64
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// penaltyFor computes the accrued late charge: remaining × dailyRate × whole
// days overdue, zero when the installment is not yet due.
func penaltyFor(remaining float64, dueDate time.Time, dailyRate float64, now time.Time) float64 {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(remaining).
		Mul(decimal.NewFromFloat(dailyRate)).
		Mul(decimal.NewFromInt(int64(days)))
	return p.Round(2).InexactFloat64()
}

// Allocate runs the first-expired-first-out waterfall over a client's open
// installments. Ordering is oldest due date first; ties keep input order.
// Per installment the applied amount splits penalty, then outstanding
// interest, then principal. Pure: the caller persists the result.
func Allocate(installments []credit.Installment, amount float64, dailyRate float64, now time.Time) AllocationResult {
	ordered := make([]credit.Installment, len(installments))
	copy(ordered, installments)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].DueDate.Before(ordered[b].DueDate)
	})

	result := AllocationResult{}
	funds := round2(amount)
	for _, inst := range ordered {
		if funds < tolerance {
			break
		}
		if inst.Status == credit.InstallmentPaid || inst.RemainingBalance < tolerance {
			continue
		}

		penalty := penaltyFor(inst.RemainingBalance, inst.DueDate, dailyRate, now)
		exigible := round2(inst.RemainingBalance + penalty)
		applied := math.Min(funds, exigible)

		penaltyPaid := math.Min(applied, penalty)
		towardBalance := round2(applied - penaltyPaid)

		// Interest settles before principal within the balance portion.
		alreadyToward := round2(inst.TotalDue - inst.RemainingBalance)
		interestOutstanding := round2(inst.InterestPortion - math.Min(alreadyToward, inst.InterestPortion))
		interestPaid := math.Min(towardBalance, interestOutstanding)
		principalPaid := round2(towardBalance - interestPaid)

		remaining := round2(inst.RemainingBalance - towardBalance)
		status := credit.InstallmentPartial
		var paidAt *time.Time
		if remaining <= tolerance {
			remaining = 0
			status = credit.InstallmentPaid
			at := now
			paidAt = &at
		}

		for _, part := range []struct {
			component Component
			amount    float64
		}{
			{ComponentPenalty, round2(penaltyPaid)},
			{ComponentInterest, round2(interestPaid)},
			{ComponentPrincipal, principalPaid},
		} {
			if part.amount < tolerance {
				continue
			}
			result.Allocations = append(result.Allocations, Allocation{
				InstallmentID: inst.ID,
				CreditID:      inst.CreditID,
				Component:     part.component,
				Amount:        part.amount,
			})
		}

		result.Updates = append(result.Updates, InstallmentUpdate{
			InstallmentID:    inst.ID,
			CreditID:         inst.CreditID,
			AmountPaid:       round2(inst.AmountPaid + applied),
			RemainingBalance: remaining,
			Status:           status,
			PaidAt:           paidAt,
			PrincipalApplied: principalPaid,
		})

		result.Applied = round2(result.Applied + applied)
		result.PenaltyPaid = round2(result.PenaltyPaid + penaltyPaid)
		funds = round2(funds - applied)
	}

	if funds < tolerance {
		funds = 0
	}
	result.Unapplied = funds
	return result
}

// ConfirmInput carries a confirmed gateway payment.
type ConfirmInput struct {
	ClientID          int64
	Amount            float64
	Method            string
	ExternalReference string
}

// Validate checks the confirmation before any computation.
func (in ConfirmInput) Validate() error {
	if in.ClientID == 0 {
		return fmt.Errorf("%w: client id required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if in.Method == "" {
		return fmt.Errorf("%w: method required", ErrInvalidInput)
	}
	return nil
}
