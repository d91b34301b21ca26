package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuaderno-app/cuaderno/internal/coa"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

type memoryLedgerRepo struct {
	entries   []JournalEntry
	lines     map[int64][]JournalLine
	links     map[string]int64
	parties   map[int64]thirdparty.ThirdParty
	movements []thirdparty.Movement
	nextID    int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		lines:   map[int64][]JournalLine{},
		links:   map[string]int64{},
		parties: map[int64]thirdparty.ThirdParty{},
		nextID:  1,
	}
}

func (m *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := *m
	snapshotLines := map[int64][]JournalLine{}
	for k, v := range m.lines {
		snapshotLines[k] = append([]JournalLine(nil), v...)
	}
	snapshotLinks := map[string]int64{}
	for k, v := range m.links {
		snapshotLinks[k] = v
	}
	snapshotParties := map[int64]thirdparty.ThirdParty{}
	for k, v := range m.parties {
		snapshotParties[k] = v
	}
	if err := fn(ctx, m); err != nil {
		// Roll back on failure so nothing partial leaks out.
		*m = snapshot
		m.lines = snapshotLines
		m.links = snapshotLinks
		m.parties = snapshotParties
		return err
	}
	return nil
}

func (m *memoryLedgerRepo) NextEntryNumber(_ context.Context, _ uuid.UUID) (int64, error) {
	return int64(len(m.entries)) + 1, nil
}

func (m *memoryLedgerRepo) InsertEntry(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryLedgerRepo) InsertLines(_ context.Context, entryID int64, lines []JournalLine) error {
	m.lines[entryID] = append([]JournalLine(nil), lines...)
	return nil
}

func (m *memoryLedgerRepo) LinkOperation(_ context.Context, orgID uuid.UUID, operationID uuid.UUID, entryID int64) error {
	key := orgID.String() + "/" + operationID.String()
	if _, exists := m.links[key]; exists {
		return ErrDuplicateOperation
	}
	m.links[key] = entryID
	return nil
}

func (m *memoryLedgerRepo) GetPartyForUpdate(_ context.Context, _ uuid.UUID, partyID int64) (thirdparty.ThirdParty, error) {
	p, ok := m.parties[partyID]
	if !ok {
		return thirdparty.ThirdParty{}, thirdparty.ErrNotFound
	}
	return p, nil
}

func (m *memoryLedgerRepo) UpdatePartyBalance(_ context.Context, _ uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error {
	p, ok := m.parties[partyID]
	if !ok {
		return thirdparty.ErrNotFound
	}
	if role == thirdparty.RoleClient {
		p.BalanceAsClient = balance
	} else {
		p.BalanceAsSupplier = balance
	}
	m.parties[partyID] = p
	return nil
}

func (m *memoryLedgerRepo) InsertMovement(_ context.Context, movement thirdparty.Movement) error {
	m.movements = append(m.movements, movement)
	return nil
}

func (m *memoryLedgerRepo) GetEntry(_ context.Context, _ uuid.UUID, id int64) (JournalEntry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			e.Lines = m.lines[id]
			return e, nil
		}
	}
	return JournalEntry{}, ErrEntryNotFound
}

func (m *memoryLedgerRepo) ListEntries(_ context.Context, _ uuid.UUID, limit, offset int) ([]JournalEntry, int, error) {
	total := len(m.entries)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return m.entries[offset:end], total, nil
}

func testHeader() OperationHeader {
	return OperationHeader{
		OperationID: uuid.New(),
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Description: "test operation",
	}
}

func TestRecordOperationBalances(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.parties[7] = thirdparty.ThirdParty{ID: 7, Name: "Acme Supplies", Role: thirdparty.RoleSupplier, IsActive: true}
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	ops := []Operation{
		CashIn{OperationHeader: testHeader(), Amount: 150.75, Method: coa.MethodCash, Category: coa.CategorySales},
		ExpensePayment{OperationHeader: testHeader(), Amount: 89.99, Method: coa.MethodTransfer, Category: coa.CategoryRent},
		CreditPurchase{OperationHeader: testHeader(), Amount: 1200, Category: coa.CategoryPurchases, SupplierID: 7},
		DebtPayment{OperationHeader: testHeader(), Amount: 400, Method: coa.MethodTransfer, SupplierID: 7},
		MerchandiseIntake{OperationHeader: testHeader(), Amount: 1000, TaxAmount: 190, SupplierID: 7},
	}
	for _, op := range ops {
		entry, err := svc.RecordOperation(context.Background(), orgID, op)
		require.NoError(t, err, "operation %s", op.Type())
		require.Equal(t, EntryStatusPosted, entry.Status)

		var debit, credit float64
		for _, line := range entry.Lines {
			debit += line.Debit
			credit += line.Credit
		}
		require.Equal(t, cents(debit), cents(credit), "operation %s must balance", op.Type())
		require.Equal(t, cents(entry.TotalDebit), cents(debit))
	}
	require.Len(t, repo.entries, len(ops))
	for i, e := range repo.entries {
		require.Equal(t, int64(i+1), e.Number)
	}
}

func TestRecordOperationIdempotent(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	op := CashIn{OperationHeader: testHeader(), Amount: 100, Method: coa.MethodCash, Category: coa.CategorySales}
	first, err := svc.RecordOperation(context.Background(), orgID, op)
	require.NoError(t, err)

	_, err = svc.RecordOperation(context.Background(), orgID, op)
	require.ErrorIs(t, err, ErrDuplicateOperation)
	require.Len(t, repo.entries, 1)
	require.Equal(t, first.Number, repo.entries[0].Number)
}

func TestRecordOperationUnmappedPersistsNothing(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	op := CashIn{OperationHeader: testHeader(), Amount: 50, Method: coa.MethodCash, Category: coa.Category("CONSULTING")}
	_, err := svc.RecordOperation(context.Background(), orgID, op)
	require.ErrorIs(t, err, coa.ErrUnmappedCategory)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.links)
}

func TestRecordOperationRejectsInvalidAmount(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	op := CashIn{OperationHeader: testHeader(), Amount: 0, Method: coa.MethodCash, Category: coa.CategorySales}
	_, err := svc.RecordOperation(context.Background(), orgID, op)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Empty(t, repo.entries)
}

func TestRecordOperationSupplierBalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.parties[3] = thirdparty.ThirdParty{ID: 3, Name: "Distribuidora Sur", Role: thirdparty.RoleSupplier, IsActive: true}
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	_, err := svc.RecordOperation(context.Background(), orgID, CreditPurchase{
		OperationHeader: testHeader(), Amount: 500, Category: coa.CategoryPurchases, SupplierID: 3,
	})
	require.NoError(t, err)
	require.InDelta(t, 500, repo.parties[3].BalanceAsSupplier, 0.001)

	_, err = svc.RecordOperation(context.Background(), orgID, DebtPayment{
		OperationHeader: testHeader(), Amount: 200, Method: coa.MethodCash, SupplierID: 3,
	})
	require.NoError(t, err)
	require.InDelta(t, 300, repo.parties[3].BalanceAsSupplier, 0.001)
	require.Len(t, repo.movements, 2)
	require.InDelta(t, 500, repo.movements[0].BalanceAfter, 0.001)
	require.InDelta(t, 300, repo.movements[1].BalanceAfter, 0.001)
}

func TestRecordOperationMissingCounterparty(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	_, err := svc.RecordOperation(context.Background(), orgID, CreditPurchase{
		OperationHeader: testHeader(), Amount: 500, Category: coa.CategoryPurchases, SupplierID: 99,
	})
	require.ErrorIs(t, err, ErrCounterpartyNotFound)
	// The whole unit of work rolls back, entry included.
	require.Empty(t, repo.entries)
	require.Empty(t, repo.links)
}

func TestMerchandiseIntakeCarriesTax(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.parties[5] = thirdparty.ThirdParty{ID: 5, Name: "Mayorista Norte", Role: thirdparty.RoleBoth, IsActive: true}
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()

	entry, err := svc.RecordOperation(context.Background(), orgID, MerchandiseIntake{
		OperationHeader: testHeader(), Amount: 1000, TaxAmount: 190, SupplierID: 5,
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	require.InDelta(t, 1190, entry.TotalDebit, 0.001)

	var taxLine *JournalLine
	for i := range entry.Lines {
		if entry.Lines[i].AccountCode == coa.VATReceivable.Code {
			taxLine = &entry.Lines[i]
		}
	}
	require.NotNil(t, taxLine)
	require.InDelta(t, 190, taxLine.Debit, 0.001)
	require.InDelta(t, 1190, repo.parties[5].BalanceAsSupplier, 0.001)
}
