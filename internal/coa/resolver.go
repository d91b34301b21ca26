package coa

import "fmt"

// OperationType enumerates the business operations the ledger recognises.
type OperationType string

const (
	OpCashIn            OperationType = "CASH_IN"
	OpExpensePayment    OperationType = "EXPENSE_PAYMENT"
	OpCreditPurchase    OperationType = "CREDIT_PURCHASE"
	OpDebtPayment       OperationType = "DEBT_PAYMENT"
	OpMerchandiseIntake OperationType = "MERCHANDISE_INTAKE"
)

// PaymentMethod enumerates settlement instruments.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCheck    PaymentMethod = "CHECK"
	MethodCard     PaymentMethod = "CARD"
)

// Category tags an operation for account resolution.
type Category string

const (
	CategorySales        Category = "SALES"
	CategoryServices     Category = "SERVICES"
	CategoryOtherIncome  Category = "OTHER_INCOME"
	CategoryPurchases    Category = "PURCHASES"
	CategoryRent         Category = "RENT"
	CategoryOtherExpense Category = "OTHER_EXPENSE"
)

// Attributes carries the operation attributes the resolver maps on.
type Attributes struct {
	Method   PaymentMethod
	Category Category
}

// AccountRef identifies a concrete leaf account by code and name.
type AccountRef struct {
	Code string
	Name string
}

// Pair is the resolved debit/credit account pair for an operation.
type Pair struct {
	Debit  AccountRef
	Credit AccountRef
}

// Canonical leaf accounts referenced by more than one operation type.
var (
	ClientsReceivable    = AccountRef{Code: "1.1.03.001", Name: "Trade Receivables"}
	MerchandiseInventory = AccountRef{Code: "1.1.04.001", Name: "Merchandise Inventory"}
	VATReceivable        = AccountRef{Code: "1.1.05.001", Name: "VAT Receivable"}
	SuppliersPayable     = AccountRef{Code: "2.1.01.001", Name: "Suppliers Payable"}
)

var methodAccounts = map[PaymentMethod]AccountRef{
	MethodCash:     {Code: "1.1.01.001", Name: "Cash on Hand"},
	MethodTransfer: {Code: "1.1.01.002", Name: "Bank Checking Account"},
	MethodCheck:    {Code: "1.1.01.003", Name: "Checks to Deposit"},
	MethodCard:     {Code: "1.1.02.001", Name: "Card Settlements Receivable"},
}

var incomeAccounts = map[Category]AccountRef{
	CategorySales:       {Code: "4.1.01.001", Name: "Sales Revenue"},
	CategoryServices:    {Code: "4.1.02.001", Name: "Service Revenue"},
	CategoryOtherIncome: {Code: "4.2.01.001", Name: "Other Income"},
}

var expenseAccounts = map[Category]AccountRef{
	CategoryPurchases:    {Code: "5.1.01.001", Name: "Merchandise Purchases"},
	CategoryServices:     {Code: "5.1.02.001", Name: "Contracted Services"},
	CategoryRent:         {Code: "5.1.03.001", Name: "Rent Expense"},
	CategoryOtherExpense: {Code: "5.2.01.001", Name: "Other Expenses"},
}

// source resolves one side of a journal pair from operation attributes.
type source func(Attributes) (AccountRef, error)

func byMethod(attrs Attributes) (AccountRef, error) {
	ref, ok := methodAccounts[attrs.Method]
	if !ok {
		return AccountRef{}, fmt.Errorf("%w: payment method %q", ErrUnmappedCategory, attrs.Method)
	}
	return ref, nil
}

func byIncomeCategory(attrs Attributes) (AccountRef, error) {
	ref, ok := incomeAccounts[attrs.Category]
	if !ok {
		return AccountRef{}, fmt.Errorf("%w: income category %q", ErrUnmappedCategory, attrs.Category)
	}
	return ref, nil
}

func byExpenseCategory(attrs Attributes) (AccountRef, error) {
	ref, ok := expenseAccounts[attrs.Category]
	if !ok {
		return AccountRef{}, fmt.Errorf("%w: expense category %q", ErrUnmappedCategory, attrs.Category)
	}
	return ref, nil
}

func fixed(ref AccountRef) source {
	return func(Attributes) (AccountRef, error) { return ref, nil }
}

// operationRules is the single declarative table mapping each operation type
// to the sources of its debit and credit accounts.
var operationRules = map[OperationType]struct {
	Debit  source
	Credit source
}{
	OpCashIn:            {Debit: byMethod, Credit: byIncomeCategory},
	OpExpensePayment:    {Debit: byExpenseCategory, Credit: byMethod},
	OpCreditPurchase:    {Debit: byExpenseCategory, Credit: fixed(SuppliersPayable)},
	OpDebtPayment:       {Debit: fixed(SuppliersPayable), Credit: byMethod},
	OpMerchandiseIntake: {Debit: fixed(MerchandiseInventory), Credit: fixed(SuppliersPayable)},
}

// Resolve maps an operation type and its attributes to a debit/credit pair.
// Unknown operation types, categories, or payment methods are rejected with
// ErrUnmappedCategory; resolution never falls back to a default account.
func Resolve(op OperationType, attrs Attributes) (Pair, error) {
	rule, ok := operationRules[op]
	if !ok {
		return Pair{}, fmt.Errorf("%w: operation type %q", ErrUnmappedCategory, op)
	}
	debit, err := rule.Debit(attrs)
	if err != nil {
		return Pair{}, err
	}
	credit, err := rule.Credit(attrs)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Debit: debit, Credit: credit}, nil
}
