package portal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuaderno-app/cuaderno/internal/balance"
	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

type staticBalance struct {
	result balance.ClientBalance
}

func (s *staticBalance) Calculate(_ context.Context, _ uuid.UUID, _ int64) (balance.ClientBalance, error) {
	return s.result, nil
}

type staticParty struct {
	party thirdparty.ThirdParty
}

func (s *staticParty) Get(_ context.Context, _ uuid.UUID, _ int64) (thirdparty.ThirdParty, error) {
	return s.party, nil
}

func TestRenderStatement(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	balances := &staticBalance{result: balance.ClientBalance{
		ClientID:         1,
		TotalOutstanding: 15000.50,
		OverdueCount:     1,
		NextInstallments: []credit.Installment{
			{Sequence: 1, DueDate: now.AddDate(0, -1, 0), RemainingBalance: 5000},
			{Sequence: 2, DueDate: now.AddDate(0, 1, 0), RemainingBalance: 10000.50},
		},
	}}
	parties := &staticParty{party: thirdparty.ThirdParty{ID: 1, Name: "Maria Lopez", Role: thirdparty.RoleClient}}

	renderer := NewStatementRenderer(balances, parties, "ARS")
	renderer.WithNow(func() time.Time { return now })

	statement, err := renderer.Render(context.Background(), Link{OrgID: uuid.New(), ClientID: 1})
	require.NoError(t, err)

	require.Equal(t, "Maria Lopez", statement.ClientName)
	require.Equal(t, "2026-03-15", statement.GeneratedAt)
	require.Equal(t, 1, statement.OverdueCount)
	require.NotEmpty(t, statement.Total)
	require.Len(t, statement.Upcoming, 2)
	require.True(t, statement.Upcoming[0].Overdue)
	require.False(t, statement.Upcoming[1].Overdue)
	require.Equal(t, "2026-02-15", statement.Upcoming[0].DueDate)
}

func TestRendererFallsBackToUSD(t *testing.T) {
	renderer := NewStatementRenderer(&staticBalance{}, &staticParty{}, "NOPE")
	require.Equal(t, "USD", renderer.unit.String())
}
