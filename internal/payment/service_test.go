package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

type memoryPaymentRepo struct {
	parties      map[int64]thirdparty.ThirdParty
	credits      map[int64]credit.Credit
	installments map[int64]*credit.Installment
	payments     []Payment
	allocations  []Allocation
	movements    []thirdparty.Movement
	references   map[string]bool
	nextID       int64
}

func newMemoryPaymentRepo() *memoryPaymentRepo {
	return &memoryPaymentRepo{
		parties:      map[int64]thirdparty.ThirdParty{},
		credits:      map[int64]credit.Credit{},
		installments: map[int64]*credit.Installment{},
		references:   map[string]bool{},
		nextID:       1,
	}
}

func (m *memoryPaymentRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryPaymentRepo) GetPartyForUpdate(_ context.Context, _ uuid.UUID, partyID int64) (thirdparty.ThirdParty, error) {
	p, ok := m.parties[partyID]
	if !ok {
		return thirdparty.ThirdParty{}, thirdparty.ErrNotFound
	}
	return p, nil
}

func (m *memoryPaymentRepo) ListOpenInstallmentsForUpdate(_ context.Context, _ uuid.UUID, clientID int64) ([]credit.Installment, error) {
	var out []credit.Installment
	for _, inst := range m.installments {
		c := m.credits[inst.CreditID]
		if inst.ClientID == clientID && inst.Status != credit.InstallmentPaid && c.Status != credit.StatusCancelled {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (m *memoryPaymentRepo) InsertPayment(_ context.Context, p Payment) (Payment, error) {
	if p.ExternalReference != "" {
		if m.references[p.ExternalReference] {
			return Payment{}, ErrDuplicateReference
		}
		m.references[p.ExternalReference] = true
	}
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	m.payments = append(m.payments, p)
	return p, nil
}

func (m *memoryPaymentRepo) InsertAllocations(_ context.Context, paymentID int64, allocations []Allocation) error {
	for _, a := range allocations {
		a.PaymentID = paymentID
		m.allocations = append(m.allocations, a)
	}
	return nil
}

func (m *memoryPaymentRepo) UpdateInstallment(_ context.Context, _ uuid.UUID, update InstallmentUpdate) error {
	inst, ok := m.installments[update.InstallmentID]
	if !ok {
		return credit.ErrNotFound
	}
	inst.AmountPaid = update.AmountPaid
	inst.RemainingBalance = update.RemainingBalance
	inst.Status = update.Status
	inst.PaidAt = update.PaidAt
	return nil
}

func (m *memoryPaymentRepo) ApplyCreditPayment(_ context.Context, _ uuid.UUID, creditID int64, principalPaid float64) error {
	c, ok := m.credits[creditID]
	if !ok {
		return credit.ErrNotFound
	}
	c.RemainingPrincipal = round2(c.RemainingPrincipal - principalPaid)
	if c.RemainingPrincipal < 0 {
		c.RemainingPrincipal = 0
	}
	m.credits[creditID] = c
	return nil
}

func (m *memoryPaymentRepo) CountOutstanding(_ context.Context, _ uuid.UUID, creditID int64) (int, error) {
	count := 0
	for _, inst := range m.installments {
		if inst.CreditID == creditID && inst.Status != credit.InstallmentPaid {
			count++
		}
	}
	return count, nil
}

func (m *memoryPaymentRepo) UpdateCreditStatus(_ context.Context, _ uuid.UUID, creditID int64, status credit.Status) error {
	c := m.credits[creditID]
	c.Status = status
	m.credits[creditID] = c
	return nil
}

func (m *memoryPaymentRepo) UpdatePartyBalance(_ context.Context, _ uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error {
	p := m.parties[partyID]
	if role == thirdparty.RoleClient {
		p.BalanceAsClient = balance
	} else {
		p.BalanceAsSupplier = balance
	}
	m.parties[partyID] = p
	return nil
}

func (m *memoryPaymentRepo) InsertMovement(_ context.Context, movement thirdparty.Movement) error {
	m.movements = append(m.movements, movement)
	return nil
}

func (m *memoryPaymentRepo) Get(_ context.Context, _ uuid.UUID, id int64) (Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (m *memoryPaymentRepo) ListByClient(_ context.Context, _ uuid.UUID, clientID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func seedPaymentRepo() *memoryPaymentRepo {
	repo := newMemoryPaymentRepo()
	repo.parties[1] = thirdparty.ThirdParty{ID: 1, Name: "Maria Lopez", Role: thirdparty.RoleClient, BalanceAsClient: 13000, IsActive: true}
	repo.credits[10] = credit.Credit{ID: 10, ClientID: 1, FinancedAmount: 13000, RemainingPrincipal: 13000, Status: credit.StatusActive}
	repo.installments[101] = &credit.Installment{
		ID: 101, CreditID: 10, ClientID: 1, Sequence: 1,
		DueDate:  time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		TotalDue: 5000, RemainingBalance: 5000, Status: credit.InstallmentPending,
	}
	repo.installments[102] = &credit.Installment{
		ID: 102, CreditID: 10, ClientID: 1, Sequence: 2,
		DueDate:  time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		TotalDue: 8000, RemainingBalance: 8000, Status: credit.InstallmentPending,
	}
	return repo
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
}

func TestConfirmAllocatesAndUpdatesBalances(t *testing.T) {
	repo := seedPaymentRepo()
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	p, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 6000, Method: "TRANSFER", ExternalReference: "gw-001",
	})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, p.Status)
	require.Len(t, p.Allocations, 2)
	require.Zero(t, p.UnappliedAmount)

	require.Equal(t, credit.InstallmentPaid, repo.installments[101].Status)
	require.Equal(t, credit.InstallmentPartial, repo.installments[102].Status)
	require.InDelta(t, 7000, repo.installments[102].RemainingBalance, 0.001)

	// Receivable shrinks by the applied amount; the credit stays active.
	require.InDelta(t, 7000, repo.parties[1].BalanceAsClient, 0.001)
	require.Equal(t, credit.StatusActive, repo.credits[10].Status)
	require.Len(t, repo.movements, 1)
	require.InDelta(t, -6000, repo.movements[0].Amount, 0.001)
}

func TestConfirmSettlesCreditWhenLastInstallmentPays(t *testing.T) {
	repo := seedPaymentRepo()
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	p, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 13000, Method: "CASH",
	})
	require.NoError(t, err)
	require.Zero(t, p.UnappliedAmount)
	require.Equal(t, credit.StatusPaid, repo.credits[10].Status)
	require.Zero(t, repo.credits[10].RemainingPrincipal)
	require.InDelta(t, 0, repo.parties[1].BalanceAsClient, 0.001)
}

func TestConfirmSurfacesUnappliedRemainder(t *testing.T) {
	repo := seedPaymentRepo()
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	p, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 14000, Method: "TRANSFER",
	})
	require.NoError(t, err)
	require.InDelta(t, 1000, p.UnappliedAmount, 0.001)
	// The persisted record carries the remainder too.
	require.InDelta(t, 1000, repo.payments[0].UnappliedAmount, 0.001)
}

func TestConfirmCollectsDefaultedCredit(t *testing.T) {
	repo := seedPaymentRepo()
	c := repo.credits[10]
	c.Status = credit.StatusDefaulted
	repo.credits[10] = c
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	// Defaulting flags the credit; the debt is still owed, so payments keep
	// flowing into its installments instead of piling up unapplied.
	p, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 6000, Method: "TRANSFER",
	})
	require.NoError(t, err)
	require.Len(t, p.Allocations, 2)
	require.Zero(t, p.UnappliedAmount)
	require.Equal(t, credit.InstallmentPaid, repo.installments[101].Status)
	require.InDelta(t, 7000, repo.parties[1].BalanceAsClient, 0.001)
}

func TestConfirmSkipsCancelledCredit(t *testing.T) {
	repo := seedPaymentRepo()
	c := repo.credits[10]
	c.Status = credit.StatusCancelled
	repo.credits[10] = c
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	// Cancelled debt is forgiven: nothing to allocate against.
	p, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 6000, Method: "TRANSFER",
	})
	require.NoError(t, err)
	require.Empty(t, p.Allocations)
	require.InDelta(t, 6000, p.UnappliedAmount, 0.001)
	require.Equal(t, credit.InstallmentPending, repo.installments[101].Status)
}

func TestConfirmRejectsDuplicateReference(t *testing.T) {
	repo := seedPaymentRepo()
	svc := NewService(repo, nil, nil, 0.001)
	svc.WithNow(fixedNow)
	orgID := uuid.New()

	_, err := svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 100, Method: "CASH", ExternalReference: "gw-dup",
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), orgID, ConfirmInput{
		ClientID: 1, Amount: 100, Method: "CASH", ExternalReference: "gw-dup",
	})
	require.ErrorIs(t, err, ErrDuplicateReference)
	require.Len(t, repo.payments, 1)
}

func TestConfirmRejectsUnknownClient(t *testing.T) {
	repo := seedPaymentRepo()
	svc := NewService(repo, nil, nil, 0.001)
	orgID := uuid.New()

	_, err := svc.Confirm(context.Background(), orgID, ConfirmInput{ClientID: 42, Amount: 100, Method: "CASH"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Confirm(context.Background(), orgID, ConfirmInput{ClientID: 1, Amount: 0, Method: "CASH"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
