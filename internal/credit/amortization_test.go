package credit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func TestBuildScheduleKnownFigures(t *testing.T) {
	firstDue := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := BuildSchedule(100000, 0.05, 3, firstDue)
	require.NoError(t, err)

	require.InDelta(t, 36720.86, schedule.InstallmentValue, 0.001)
	require.InDelta(t, 110162.58, schedule.TotalPayable, 0.001)
	require.InDelta(t, 10162.58, schedule.TotalInterest, 0.001)
	require.Len(t, schedule.Lines, 3)

	first := schedule.Lines[0]
	require.InDelta(t, 5000.00, first.Interest, 0.001)
	require.InDelta(t, 31720.86, first.Principal, 0.001)
	require.Equal(t, firstDue, first.DueDate)
	require.Equal(t, firstDue.AddDate(0, 2, 0), schedule.Lines[2].DueDate)
}

func TestBuildSchedulePrincipalReconciles(t *testing.T) {
	cases := []struct {
		name      string
		principal float64
		rate      float64
		n         int
	}{
		{"short high rate", 100000, 0.05, 3},
		{"year at moderate rate", 54321.99, 0.035, 12},
		{"awkward cents", 1234.56, 0.0712, 7},
		{"single installment", 999.99, 0.05, 1},
		{"long term", 250000, 0.019, 48},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule, err := BuildSchedule(tc.principal, tc.rate, tc.n, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			var principalSum int64
			for _, line := range schedule.Lines {
				principalSum += toCents(line.Principal)
				require.Equal(t, toCents(line.Total), toCents(line.Principal)+toCents(line.Interest))
			}
			require.Equal(t, toCents(tc.principal), principalSum)
		})
	}
}

func TestBuildScheduleZeroRate(t *testing.T) {
	schedule, err := BuildSchedule(1000, 0, 3, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.InDelta(t, 333.33, schedule.InstallmentValue, 0.001)
	require.InDelta(t, 0, schedule.TotalInterest, 0.001)

	var principalSum int64
	for _, line := range schedule.Lines {
		require.Zero(t, toCents(line.Interest))
		principalSum += toCents(line.Principal)
	}
	require.Equal(t, int64(100000), principalSum)
	// The rounding remainder lands in the last installment.
	require.InDelta(t, 333.34, schedule.Lines[2].Principal, 0.001)
}

func TestBuildScheduleRejectsBadInput(t *testing.T) {
	_, err := BuildSchedule(0, 0.05, 3, time.Now())
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = BuildSchedule(1000, 0.05, 0, time.Now())
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = BuildSchedule(1000, -0.01, 3, time.Now())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSimulateQuotesPerOffer(t *testing.T) {
	offers := []Offer{
		{Installments: 3, MonthlyRate: 0.05},
		{Installments: 6, MonthlyRate: 0.065},
	}
	quotes, err := Simulate(120000, 20000, offers)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	require.Equal(t, 3, quotes[0].Installments)
	require.InDelta(t, 36720.86, quotes[0].InstallmentValue, 0.001)
	require.Greater(t, quotes[1].TotalInterest, quotes[0].TotalInterest)
	for _, q := range quotes {
		require.InDelta(t, q.TotalInterest/100000*100, q.TotalCostPercent, 0.01)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	offers := []Offer{{Installments: 3, MonthlyRate: 0.05}}
	_, err := Simulate(0, 0, offers)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Simulate(1000, 1000, offers)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = Simulate(1000, -1, offers)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseOffers(t *testing.T) {
	offers, err := ParseOffers("6:0.065, 3:0.05 ,12:0.075")
	require.NoError(t, err)
	require.Len(t, offers, 3)
	// Sorted by term.
	require.Equal(t, 3, offers[0].Installments)
	require.InDelta(t, 0.05, offers[0].MonthlyRate, 1e-9)
	require.Equal(t, 12, offers[2].Installments)

	_, err = ParseOffers("")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseOffers("banana")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseOffers("0:0.05")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestOfferForTerm(t *testing.T) {
	offers := []Offer{{Installments: 3, MonthlyRate: 0.05}}
	offer, err := OfferForTerm(offers, 3)
	require.NoError(t, err)
	require.InDelta(t, 0.05, offer.MonthlyRate, 1e-9)

	_, err = OfferForTerm(offers, 9)
	require.ErrorIs(t, err, ErrUnknownTerm)
}
