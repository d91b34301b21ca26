package credit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status enumerates credit lifecycle values.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaid      Status = "PAID"
	StatusDefaulted Status = "DEFAULTED"
	StatusCancelled Status = "CANCELLED"
)

// InstallmentStatus enumerates persisted installment settlement states.
// OVERDUE is derived from the due date at read time, never stored: an unpaid
// installment is still PENDING or PARTIAL in the database.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
)

var (
	// ErrNotFound indicates a missing credit.
	ErrNotFound = errors.New("credit: not found")
	// ErrInvalidInput indicates a grant or simulation request that fails validation.
	ErrInvalidInput = errors.New("credit: invalid input")
	// ErrUnknownTerm indicates no financing offer exists for the requested term.
	ErrUnknownTerm = errors.New("credit: no offer for requested term")
	// ErrInvalidTransition indicates a status change the state machine forbids.
	ErrInvalidTransition = errors.New("credit: invalid status transition")
	// ErrUnsettledInstallments indicates a credit cannot be marked paid while
	// installments remain outstanding.
	ErrUnsettledInstallments = errors.New("credit: installments still outstanding")
)

// Credit is an installment financing granted to a client.
type Credit struct {
	ID                 int64
	OrgID              uuid.UUID
	ClientID           int64
	OriginalAmount     float64
	DownPayment        float64
	FinancedAmount     float64
	MonthlyRate        float64
	InstallmentCount   int
	InstallmentValue   float64
	RemainingPrincipal float64
	Status             Status
	GrantDate          time.Time
	FirstDueDate       time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Installment is one period of a credit's amortization schedule. Settlement
// fields are the only ones mutated after creation.
type Installment struct {
	ID               int64
	OrgID            uuid.UUID
	CreditID         int64
	ClientID         int64
	Sequence         int
	DueDate          time.Time
	PrincipalPortion float64
	InterestPortion  float64
	TotalDue         float64
	AmountPaid       float64
	RemainingBalance float64
	Status           InstallmentStatus
	PaidAt           *time.Time
}

// EffectiveStatus derives the read-time status: an unpaid installment past its
// due date reads as OVERDUE regardless of the persisted value.
func (i Installment) EffectiveStatus(now time.Time) InstallmentStatus {
	if i.Status != InstallmentPaid && i.DueDate.Before(now) {
		return InstallmentOverdue
	}
	return i.Status
}

// Settled reports whether the installment balance is cleared.
func (i Installment) Settled() bool {
	return i.Status == InstallmentPaid
}

// transitions defines the credit state machine. Every change starts from ACTIVE.
var transitions = map[Status][]Status{
	StatusActive: {StatusPaid, StatusDefaulted, StatusCancelled},
}

// CanTransition reports whether from→to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
