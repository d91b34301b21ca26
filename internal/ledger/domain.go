package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/coa"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// EntryType enumerates journal entry classes.
type EntryType string

const (
	EntryTypeOpening     EntryType = "OPENING"
	EntryTypeOperational EntryType = "OPERATIONAL"
	EntryTypeAdjustment  EntryType = "ADJUSTMENT"
	EntryTypeClosing     EntryType = "CLOSING"
)

// EntryStatus enumerates journal lifecycle values. Posted entries are
// immutable; corrections are new adjustment entries, never edits.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// JournalEntry captures a dated, balanced set of postings.
type JournalEntry struct {
	ID          int64
	OrgID       uuid.UUID
	Number      int64
	Date        time.Time
	Type        EntryType
	Description string
	Lines       []JournalLine
	TotalDebit  float64
	TotalCredit float64
	Status      EntryStatus
	OperationID uuid.UUID
	CreatedAt   time.Time
}

// JournalLine stores a debit or credit amount against a leaf account. The
// account name is denormalized at posting time.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountCode string
	AccountName string
	Debit       float64
	Credit      float64
}

var (
	// ErrUnbalancedEntry indicates debits != credits. By construction this
	// should never fire; it is a fail-closed integrity check.
	ErrUnbalancedEntry = errors.New("ledger: journal lines must balance")
	// ErrInvalidAmount indicates a non-positive amount or missing field.
	ErrInvalidAmount = errors.New("ledger: invalid amount")
	// ErrDuplicateOperation indicates the originating operation was already posted.
	ErrDuplicateOperation = errors.New("ledger: operation already posted")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrCounterpartyRequired indicates a credit operation without a party.
	ErrCounterpartyRequired = errors.New("ledger: counterparty required")
	// ErrCounterpartyNotFound indicates the referenced third party is absent.
	ErrCounterpartyNotFound = errors.New("ledger: counterparty not found")
)

// OperationHeader carries the fields common to every business operation.
// OperationID is the idempotency key: the identifier of the originating
// operation, unique per tenant.
type OperationHeader struct {
	OperationID uuid.UUID
	Date        time.Time
	Description string
}

func (h OperationHeader) validate() error {
	if h.OperationID == uuid.Nil {
		return fmt.Errorf("%w: operation id required", ErrInvalidAmount)
	}
	if h.Date.IsZero() {
		return fmt.Errorf("%w: date required", ErrInvalidAmount)
	}
	return nil
}

// Operation is the tagged union of recognised business operations. Each
// variant carries exactly the fields its journal-line construction needs.
type Operation interface {
	Header() OperationHeader
	Type() coa.OperationType
	Validate() error
	build() (buildResult, error)
}

// lineInput is a resolved posting line before persistence.
type lineInput struct {
	Account coa.AccountRef
	Debit   float64
	Credit  float64
}

// counterpartyDelta describes the third-party balance movement an operation
// causes, applied in the same atomic unit of work as the entry itself.
type counterpartyDelta struct {
	PartyID int64
	Role    thirdparty.Role
	Delta   float64
	Kind    string
}

type buildResult struct {
	lines        []lineInput
	total        float64
	counterparty *counterpartyDelta
}

// CashIn records income received through a payment method.
type CashIn struct {
	OperationHeader
	Amount   float64
	Method   coa.PaymentMethod
	Category coa.Category
}

// ExpensePayment records an expense settled through a payment method.
type ExpensePayment struct {
	OperationHeader
	Amount   float64
	Method   coa.PaymentMethod
	Category coa.Category
}

// CreditPurchase records a purchase financed by a supplier.
type CreditPurchase struct {
	OperationHeader
	Amount     float64
	Category   coa.Category
	SupplierID int64
}

// DebtPayment settles supplier debt through a payment method.
type DebtPayment struct {
	OperationHeader
	Amount     float64
	Method     coa.PaymentMethod
	SupplierID int64
}

// MerchandiseIntake records merchandise received from a supplier, optionally
// carrying a recoverable tax amount.
type MerchandiseIntake struct {
	OperationHeader
	Amount     float64
	TaxAmount  float64
	SupplierID int64
}

func (o CashIn) Header() OperationHeader            { return o.OperationHeader }
func (o ExpensePayment) Header() OperationHeader    { return o.OperationHeader }
func (o CreditPurchase) Header() OperationHeader    { return o.OperationHeader }
func (o DebtPayment) Header() OperationHeader       { return o.OperationHeader }
func (o MerchandiseIntake) Header() OperationHeader { return o.OperationHeader }

func (o CashIn) Type() coa.OperationType            { return coa.OpCashIn }
func (o ExpensePayment) Type() coa.OperationType    { return coa.OpExpensePayment }
func (o CreditPurchase) Type() coa.OperationType    { return coa.OpCreditPurchase }
func (o DebtPayment) Type() coa.OperationType       { return coa.OpDebtPayment }
func (o MerchandiseIntake) Type() coa.OperationType { return coa.OpMerchandiseIntake }

func validAmount(v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// Validate ensures the variant carries everything its lines need.
func (o CashIn) Validate() error {
	if err := o.OperationHeader.validate(); err != nil {
		return err
	}
	return validAmount(o.Amount)
}

// Validate ensures the variant carries everything its lines need.
func (o ExpensePayment) Validate() error {
	if err := o.OperationHeader.validate(); err != nil {
		return err
	}
	return validAmount(o.Amount)
}

// Validate ensures the variant carries everything its lines need.
func (o CreditPurchase) Validate() error {
	if err := o.OperationHeader.validate(); err != nil {
		return err
	}
	if err := validAmount(o.Amount); err != nil {
		return err
	}
	if o.SupplierID == 0 {
		return ErrCounterpartyRequired
	}
	return nil
}

// Validate ensures the variant carries everything its lines need.
func (o DebtPayment) Validate() error {
	if err := o.OperationHeader.validate(); err != nil {
		return err
	}
	if err := validAmount(o.Amount); err != nil {
		return err
	}
	if o.SupplierID == 0 {
		return ErrCounterpartyRequired
	}
	return nil
}

// Validate ensures the variant carries everything its lines need.
func (o MerchandiseIntake) Validate() error {
	if err := o.OperationHeader.validate(); err != nil {
		return err
	}
	if err := validAmount(o.Amount); err != nil {
		return err
	}
	if o.TaxAmount < 0 {
		return fmt.Errorf("%w: tax amount cannot be negative", ErrInvalidAmount)
	}
	if o.SupplierID == 0 {
		return ErrCounterpartyRequired
	}
	return nil
}

func (o CashIn) build() (buildResult, error) {
	pair, err := coa.Resolve(o.Type(), coa.Attributes{Method: o.Method, Category: o.Category})
	if err != nil {
		return buildResult{}, err
	}
	amount := roundCents(o.Amount)
	return buildResult{
		lines: []lineInput{
			{Account: pair.Debit, Debit: amount},
			{Account: pair.Credit, Credit: amount},
		},
		total: amount,
	}, nil
}

func (o ExpensePayment) build() (buildResult, error) {
	pair, err := coa.Resolve(o.Type(), coa.Attributes{Method: o.Method, Category: o.Category})
	if err != nil {
		return buildResult{}, err
	}
	amount := roundCents(o.Amount)
	return buildResult{
		lines: []lineInput{
			{Account: pair.Debit, Debit: amount},
			{Account: pair.Credit, Credit: amount},
		},
		total: amount,
	}, nil
}

func (o CreditPurchase) build() (buildResult, error) {
	pair, err := coa.Resolve(o.Type(), coa.Attributes{Category: o.Category})
	if err != nil {
		return buildResult{}, err
	}
	amount := roundCents(o.Amount)
	return buildResult{
		lines: []lineInput{
			{Account: pair.Debit, Debit: amount},
			{Account: pair.Credit, Credit: amount},
		},
		total: amount,
		counterparty: &counterpartyDelta{
			PartyID: o.SupplierID,
			Role:    thirdparty.RoleSupplier,
			Delta:   amount,
			Kind:    string(coa.OpCreditPurchase),
		},
	}, nil
}

func (o DebtPayment) build() (buildResult, error) {
	pair, err := coa.Resolve(o.Type(), coa.Attributes{Method: o.Method})
	if err != nil {
		return buildResult{}, err
	}
	amount := roundCents(o.Amount)
	return buildResult{
		lines: []lineInput{
			{Account: pair.Debit, Debit: amount},
			{Account: pair.Credit, Credit: amount},
		},
		total: amount,
		counterparty: &counterpartyDelta{
			PartyID: o.SupplierID,
			Role:    thirdparty.RoleSupplier,
			Delta:   -amount,
			Kind:    string(coa.OpDebtPayment),
		},
	}, nil
}

func (o MerchandiseIntake) build() (buildResult, error) {
	pair, err := coa.Resolve(o.Type(), coa.Attributes{})
	if err != nil {
		return buildResult{}, err
	}
	amount := roundCents(o.Amount)
	tax := roundCents(o.TaxAmount)
	lines := []lineInput{
		{Account: pair.Debit, Debit: amount},
	}
	if tax > 0 {
		lines = append(lines, lineInput{Account: coa.VATReceivable, Debit: tax})
	}
	total := roundCents(amount + tax)
	lines = append(lines, lineInput{Account: pair.Credit, Credit: total})
	return buildResult{
		lines: lines,
		total: total,
		counterparty: &counterpartyDelta{
			PartyID: o.SupplierID,
			Role:    thirdparty.RoleSupplier,
			Delta:   total,
			Kind:    string(coa.OpMerchandiseIntake),
		},
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// cents converts an amount to an integer cent count for exact comparison.
func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
