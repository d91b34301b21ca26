package coa

// chartDef is one seeded chart node. Level, parent and the natural balance
// side are derived from the code and type when the chart is materialised.
type chartDef struct {
	Code string
	Name string
	Type AccountType
	Leaf bool
}

// seedChart is the canonical small-business chart every tenant starts from.
// Every account the resolver references must appear here as a leaf.
var seedChart = []chartDef{
	{"1", "Assets", AccountTypeAsset, false},
	{"1.1", "Current Assets", AccountTypeAsset, false},
	{"1.1.01", "Cash and Banks", AccountTypeAsset, false},
	{"1.1.01.001", "Cash on Hand", AccountTypeAsset, true},
	{"1.1.01.002", "Bank Checking Account", AccountTypeAsset, true},
	{"1.1.01.003", "Checks to Deposit", AccountTypeAsset, true},
	{"1.1.02", "Card Receivables", AccountTypeAsset, false},
	{"1.1.02.001", "Card Settlements Receivable", AccountTypeAsset, true},
	{"1.1.03", "Trade Receivables", AccountTypeAsset, false},
	{"1.1.03.001", "Trade Receivables", AccountTypeAsset, true},
	{"1.1.04", "Inventory", AccountTypeAsset, false},
	{"1.1.04.001", "Merchandise Inventory", AccountTypeAsset, true},
	{"1.1.05", "Tax Credits", AccountTypeAsset, false},
	{"1.1.05.001", "VAT Receivable", AccountTypeAsset, true},
	{"2", "Liabilities", AccountTypeLiability, false},
	{"2.1", "Current Liabilities", AccountTypeLiability, false},
	{"2.1.01", "Trade Payables", AccountTypeLiability, false},
	{"2.1.01.001", "Suppliers Payable", AccountTypeLiability, true},
	{"3", "Equity", AccountTypeEquity, false},
	{"3.1", "Capital", AccountTypeEquity, false},
	{"3.1.01", "Owner Capital", AccountTypeEquity, false},
	{"3.1.01.001", "Paid-in Capital", AccountTypeEquity, true},
	{"4", "Income", AccountTypeIncome, false},
	{"4.1", "Operating Income", AccountTypeIncome, false},
	{"4.1.01", "Sales", AccountTypeIncome, false},
	{"4.1.01.001", "Sales Revenue", AccountTypeIncome, true},
	{"4.1.02", "Services", AccountTypeIncome, false},
	{"4.1.02.001", "Service Revenue", AccountTypeIncome, true},
	{"4.2", "Non-operating Income", AccountTypeIncome, false},
	{"4.2.01", "Other Income", AccountTypeIncome, false},
	{"4.2.01.001", "Other Income", AccountTypeIncome, true},
	{"4.2.02", "Financing Income", AccountTypeIncome, false},
	{"4.2.02.001", "Financing Interest Income", AccountTypeIncome, true},
	{"5", "Expenses", AccountTypeExpense, false},
	{"5.1", "Operating Expenses", AccountTypeExpense, false},
	{"5.1.01", "Purchases", AccountTypeExpense, false},
	{"5.1.01.001", "Merchandise Purchases", AccountTypeExpense, true},
	{"5.1.02", "Services", AccountTypeExpense, false},
	{"5.1.02.001", "Contracted Services", AccountTypeExpense, true},
	{"5.1.03", "Occupancy", AccountTypeExpense, false},
	{"5.1.03.001", "Rent Expense", AccountTypeExpense, true},
	{"5.2", "Other Expenses", AccountTypeExpense, false},
	{"5.2.01", "Miscellaneous", AccountTypeExpense, false},
	{"5.2.01.001", "Other Expenses", AccountTypeExpense, true},
}

// NaturalSide returns the natural balance side for an account type.
func NaturalSide(t AccountType) BalanceSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// SeedChart materialises the canonical chart for a tenant. The returned
// accounts are ordered parents-first so they can be inserted in sequence.
func SeedChart(currency string) []Account {
	accounts := make([]Account, 0, len(seedChart))
	for _, def := range seedChart {
		acc := Account{
			Code:           def.Code,
			Name:           def.Name,
			Type:           def.Type,
			Side:           NaturalSide(def.Type),
			Level:          CodeLevel(def.Code),
			AllowsPostings: def.Leaf,
			Currency:       currency,
			IsActive:       true,
		}
		if parent := ParentOf(def.Code); parent != "" {
			p := parent
			acc.ParentCode = &p
		}
		accounts = append(accounts, acc)
	}
	return accounts
}
