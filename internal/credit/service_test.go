package credit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

type memoryCreditRepo struct {
	credits      map[int64]Credit
	installments map[int64][]Installment
	nextID       int64
}

func newMemoryCreditRepo() *memoryCreditRepo {
	return &memoryCreditRepo{
		credits:      map[int64]Credit{},
		installments: map[int64][]Installment{},
		nextID:       1,
	}
}

func (m *memoryCreditRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryCreditRepo) InsertCredit(_ context.Context, c Credit) (Credit, error) {
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.credits[c.ID] = c
	return c, nil
}

func (m *memoryCreditRepo) InsertInstallments(_ context.Context, installments []Installment) error {
	for _, inst := range installments {
		m.installments[inst.CreditID] = append(m.installments[inst.CreditID], inst)
	}
	return nil
}

func (m *memoryCreditRepo) Get(_ context.Context, _ uuid.UUID, id int64) (Credit, error) {
	c, ok := m.credits[id]
	if !ok {
		return Credit{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryCreditRepo) List(_ context.Context, _ uuid.UUID, clientID int64) ([]Credit, error) {
	var out []Credit
	for _, c := range m.credits {
		if clientID == 0 || c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryCreditRepo) ListInstallments(_ context.Context, _ uuid.UUID, creditID int64) ([]Installment, error) {
	return m.installments[creditID], nil
}

func (m *memoryCreditRepo) CountOutstanding(_ context.Context, _ uuid.UUID, creditID int64) (int, error) {
	count := 0
	for _, inst := range m.installments[creditID] {
		if inst.Status != InstallmentPaid {
			count++
		}
	}
	return count, nil
}

func (m *memoryCreditRepo) ListAgingCandidates(_ context.Context, cutoff time.Time) ([]Credit, error) {
	var out []Credit
	for _, c := range m.credits {
		if c.Status != StatusActive {
			continue
		}
		for _, inst := range m.installments[c.ID] {
			if inst.Status != InstallmentPaid && inst.DueDate.Before(cutoff) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (m *memoryCreditRepo) UpdateStatus(_ context.Context, _ uuid.UUID, id int64, status Status) error {
	c, ok := m.credits[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	m.credits[id] = c
	return nil
}

type staticParties struct {
	parties map[int64]thirdparty.ThirdParty
}

func (s *staticParties) Get(_ context.Context, _ uuid.UUID, id int64) (thirdparty.ThirdParty, error) {
	p, ok := s.parties[id]
	if !ok {
		return thirdparty.ThirdParty{}, thirdparty.ErrNotFound
	}
	return p, nil
}

var testOffers = []Offer{
	{Installments: 3, MonthlyRate: 0.05},
	{Installments: 6, MonthlyRate: 0.065},
}

func newTestService(repo *memoryCreditRepo) *Service {
	parties := &staticParties{parties: map[int64]thirdparty.ThirdParty{
		1: {ID: 1, Name: "Maria Lopez", Role: thirdparty.RoleClient, IsActive: true},
		2: {ID: 2, Name: "Inactive Client", Role: thirdparty.RoleClient, IsActive: false},
		3: {ID: 3, Name: "Pure Supplier", Role: thirdparty.RoleSupplier, IsActive: true},
	}}
	svc := NewService(repo, parties, nil, nil, testOffers)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestGrantCreatesSchedule(t *testing.T) {
	repo := newMemoryCreditRepo()
	svc := newTestService(repo)
	orgID := uuid.New()

	credit, installments, err := svc.Grant(context.Background(), orgID, GrantInput{
		ClientID:     1,
		Amount:       120000,
		DownPayment:  20000,
		Installments: 3,
	})
	require.NoError(t, err)
	require.Equal(t, StatusActive, credit.Status)
	require.InDelta(t, 100000, credit.FinancedAmount, 0.001)
	require.InDelta(t, 100000, credit.RemainingPrincipal, 0.001)
	require.InDelta(t, 36720.86, credit.InstallmentValue, 0.001)
	require.Len(t, installments, 3)

	// First due defaults to one month after grant; periods are monthly.
	require.Equal(t, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), installments[0].DueDate)
	require.Equal(t, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), installments[2].DueDate)
	var principalCents int64
	for _, inst := range installments {
		require.Equal(t, InstallmentPending, inst.Status)
		require.InDelta(t, inst.TotalDue, inst.RemainingBalance, 0.001)
		principalCents += toCents(inst.PrincipalPortion)
	}
	require.Equal(t, int64(10000000), principalCents)
}

func TestGrantRejectsBadClients(t *testing.T) {
	repo := newMemoryCreditRepo()
	svc := newTestService(repo)
	orgID := uuid.New()

	_, _, err := svc.Grant(context.Background(), orgID, GrantInput{ClientID: 99, Amount: 1000, Installments: 3})
	require.ErrorIs(t, err, thirdparty.ErrNotFound)

	_, _, err = svc.Grant(context.Background(), orgID, GrantInput{ClientID: 2, Amount: 1000, Installments: 3})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Grant(context.Background(), orgID, GrantInput{ClientID: 3, Amount: 1000, Installments: 3})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Grant(context.Background(), orgID, GrantInput{ClientID: 1, Amount: 1000, Installments: 9})
	require.ErrorIs(t, err, ErrUnknownTerm)
	require.Empty(t, repo.credits)
}

func TestChangeStatusTransitions(t *testing.T) {
	repo := newMemoryCreditRepo()
	svc := newTestService(repo)
	orgID := uuid.New()

	credit, _, err := svc.Grant(context.Background(), orgID, GrantInput{ClientID: 1, Amount: 1000, Installments: 3})
	require.NoError(t, err)

	// PAID requires a settled schedule.
	_, err = svc.ChangeStatus(context.Background(), orgID, credit.ID, StatusPaid)
	require.ErrorIs(t, err, ErrUnsettledInstallments)

	updated, err := svc.ChangeStatus(context.Background(), orgID, credit.ID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, updated.Status)

	// No transitions out of a terminal state.
	_, err = svc.ChangeStatus(context.Background(), orgID, credit.ID, StatusDefaulted)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestChangeStatusPaidWhenSettled(t *testing.T) {
	repo := newMemoryCreditRepo()
	svc := newTestService(repo)
	orgID := uuid.New()

	credit, _, err := svc.Grant(context.Background(), orgID, GrantInput{ClientID: 1, Amount: 1000, Installments: 3})
	require.NoError(t, err)
	for i := range repo.installments[credit.ID] {
		repo.installments[credit.ID][i].Status = InstallmentPaid
	}

	updated, err := svc.ChangeStatus(context.Background(), orgID, credit.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)
}

func TestDefaultOverdue(t *testing.T) {
	repo := newMemoryCreditRepo()
	svc := newTestService(repo)
	orgID := uuid.New()

	fresh, _, err := svc.Grant(context.Background(), orgID, GrantInput{ClientID: 1, Amount: 1000, Installments: 3})
	require.NoError(t, err)
	stale, _, err := svc.Grant(context.Background(), orgID, GrantInput{ClientID: 1, Amount: 2000, Installments: 3})
	require.NoError(t, err)

	// Age the second credit far past the grace period.
	for i := range repo.installments[stale.ID] {
		repo.installments[stale.ID][i].DueDate = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	}

	defaulted, err := svc.DefaultOverdue(context.Background(), time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), 90)
	require.NoError(t, err)
	require.Equal(t, 1, defaulted)

	got, err := repo.Get(context.Background(), orgID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDefaulted, got.Status)
	got, err = repo.Get(context.Background(), orgID, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
}

func TestInstallmentEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	pastDue := Installment{DueDate: now.AddDate(0, -1, 0), Status: InstallmentPending}
	require.Equal(t, InstallmentOverdue, pastDue.EffectiveStatus(now))

	partial := Installment{DueDate: now.AddDate(0, -1, 0), Status: InstallmentPartial}
	require.Equal(t, InstallmentOverdue, partial.EffectiveStatus(now))

	future := Installment{DueDate: now.AddDate(0, 1, 0), Status: InstallmentPending}
	require.Equal(t, InstallmentPending, future.EffectiveStatus(now))

	paid := Installment{DueDate: now.AddDate(0, -1, 0), Status: InstallmentPaid}
	require.Equal(t, InstallmentPaid, paid.EffectiveStatus(now))
}
