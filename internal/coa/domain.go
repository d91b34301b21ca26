package coa

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// BalanceSide is the natural balance side of an account.
type BalanceSide string

const (
	SideDebit  BalanceSide = "DEBIT"
	SideCredit BalanceSide = "CREDIT"
)

// Account models a chart of accounts node. Codes are hierarchical and
// dot-separated (e.g. 1.1.01.001); only leaf accounts accept postings.
type Account struct {
	ID             int64
	OrgID          uuid.UUID
	Code           string
	Name           string
	Type           AccountType
	Side           BalanceSide
	Level          int
	ParentCode     *string
	AllowsPostings bool
	Currency       string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	// ErrUnmappedCategory indicates the resolver cannot map operation
	// attributes to accounts. The caller must reject, never default.
	ErrUnmappedCategory = errors.New("coa: no account mapped for operation attributes")
	// ErrAccountNotFound indicates a missing chart node.
	ErrAccountNotFound = errors.New("coa: account not found")
	// ErrSummaryPosting indicates an attempt to post against a non-leaf account.
	ErrSummaryPosting = errors.New("coa: summary accounts do not accept postings")
)

// CodeLevel derives the hierarchy level from a dot-separated code.
func CodeLevel(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(code, ".") + 1
}

// ParentOf returns the parent code of a dot-separated code, or "" at the root.
func ParentOf(code string) string {
	idx := strings.LastIndex(code, ".")
	if idx < 0 {
		return ""
	}
	return code[:idx]
}
