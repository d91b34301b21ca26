package coa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveKnownOperations(t *testing.T) {
	cases := []struct {
		name   string
		op     OperationType
		attrs  Attributes
		debit  string
		credit string
	}{
		{"cash sale", OpCashIn, Attributes{Method: MethodCash, Category: CategorySales}, "1.1.01.001", "4.1.01.001"},
		{"service income by transfer", OpCashIn, Attributes{Method: MethodTransfer, Category: CategoryServices}, "1.1.01.002", "4.1.02.001"},
		{"card sale", OpCashIn, Attributes{Method: MethodCard, Category: CategorySales}, "1.1.02.001", "4.1.01.001"},
		{"rent paid in cash", OpExpensePayment, Attributes{Method: MethodCash, Category: CategoryRent}, "5.1.03.001", "1.1.01.001"},
		{"purchase on supplier credit", OpCreditPurchase, Attributes{Category: CategoryPurchases}, "5.1.01.001", "2.1.01.001"},
		{"supplier debt paid by check", OpDebtPayment, Attributes{Method: MethodCheck}, "2.1.01.001", "1.1.01.003"},
		{"merchandise intake", OpMerchandiseIntake, Attributes{}, "1.1.04.001", "2.1.01.001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := Resolve(tc.op, tc.attrs)
			require.NoError(t, err)
			require.Equal(t, tc.debit, pair.Debit.Code)
			require.Equal(t, tc.credit, pair.Credit.Code)
			require.NotEmpty(t, pair.Debit.Name)
			require.NotEmpty(t, pair.Credit.Name)
		})
	}
}

func TestResolveRejectsUnmapped(t *testing.T) {
	_, err := Resolve(OpCashIn, Attributes{Method: MethodCash, Category: Category("DONATIONS")})
	require.ErrorIs(t, err, ErrUnmappedCategory)

	_, err = Resolve(OpCashIn, Attributes{Method: PaymentMethod("CRYPTO"), Category: CategorySales})
	require.ErrorIs(t, err, ErrUnmappedCategory)

	_, err = Resolve(OpExpensePayment, Attributes{Method: MethodCash, Category: CategorySales})
	require.ErrorIs(t, err, ErrUnmappedCategory, "income category must not resolve on the expense side")

	_, err = Resolve(OperationType("PAYROLL"), Attributes{Method: MethodCash, Category: CategorySales})
	require.ErrorIs(t, err, ErrUnmappedCategory)
}

func TestSeedChartHierarchy(t *testing.T) {
	accounts := SeedChart("ARS")
	byCode := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}

	for _, a := range accounts {
		require.Equal(t, CodeLevel(a.Code), a.Level, a.Code)
		if a.ParentCode != nil {
			parent, ok := byCode[*a.ParentCode]
			require.True(t, ok, "parent of %s must exist", a.Code)
			require.Equal(t, a.Level-1, parent.Level, a.Code)
			require.False(t, parent.AllowsPostings, "parent %s must be a summary account", parent.Code)
		} else {
			require.Equal(t, 1, a.Level, a.Code)
		}
	}
}

func TestSeedChartOnlyLeavesAllowPostings(t *testing.T) {
	accounts := SeedChart("ARS")
	parents := make(map[string]bool)
	for _, a := range accounts {
		if a.ParentCode != nil {
			parents[*a.ParentCode] = true
		}
	}
	for _, a := range accounts {
		if parents[a.Code] {
			require.False(t, a.AllowsPostings, "non-leaf %s must not accept postings", a.Code)
		} else {
			require.True(t, a.AllowsPostings, "leaf %s must accept postings", a.Code)
		}
	}
}

func TestResolverReferencesAreChartLeaves(t *testing.T) {
	accounts := SeedChart("ARS")
	byCode := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}

	refs := []AccountRef{ClientsReceivable, MerchandiseInventory, VATReceivable, SuppliersPayable}
	for _, m := range methodAccounts {
		refs = append(refs, m)
	}
	for _, m := range incomeAccounts {
		refs = append(refs, m)
	}
	for _, m := range expenseAccounts {
		refs = append(refs, m)
	}

	for _, ref := range refs {
		acc, ok := byCode[ref.Code]
		require.True(t, ok, "resolver reference %s missing from chart", ref.Code)
		require.True(t, acc.AllowsPostings, "resolver reference %s must be a posting leaf", ref.Code)
	}
}

func TestNaturalSide(t *testing.T) {
	require.Equal(t, SideDebit, NaturalSide(AccountTypeAsset))
	require.Equal(t, SideDebit, NaturalSide(AccountTypeExpense))
	require.Equal(t, SideCredit, NaturalSide(AccountTypeLiability))
	require.Equal(t, SideCredit, NaturalSide(AccountTypeEquity))
	require.Equal(t, SideCredit, NaturalSide(AccountTypeIncome))
}
