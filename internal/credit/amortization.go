package credit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Offer is one financing term the tenant makes available, e.g. 6 installments
// at 6.5% monthly.
type Offer struct {
	Installments int
	MonthlyRate  float64
}

// ParseOffers reads a comma-separated offer table, e.g. "3:0.05,6:0.065,12:0.075".
func ParseOffers(raw string) ([]Offer, error) {
	var offers []Offer
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: malformed offer %q", ErrInvalidInput, part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: malformed offer term %q", ErrInvalidInput, part)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("%w: malformed offer rate %q", ErrInvalidInput, part)
		}
		offers = append(offers, Offer{Installments: n, MonthlyRate: rate})
	}
	if len(offers) == 0 {
		return nil, fmt.Errorf("%w: empty offer table", ErrInvalidInput)
	}
	sort.Slice(offers, func(a, b int) bool { return offers[a].Installments < offers[b].Installments })
	return offers, nil
}

// ScheduleLine is one period of a generated amortization table.
type ScheduleLine struct {
	Sequence  int
	DueDate   time.Time
	Principal float64
	Interest  float64
	Total     float64
}

// Schedule holds a full French-method amortization table. The invariant is that
// the principal portions sum exactly to the financed amount; any rounding
// remainder is absorbed by the last line.
type Schedule struct {
	InstallmentValue float64
	Lines            []ScheduleLine
	TotalPayable     float64
	TotalInterest    float64
}

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// installmentValue computes the constant payment for the French method:
// P·i·(1+i)^n / ((1+i)^n − 1), or straight division when the rate is zero.
// The result is rounded to two decimals, as is every later per-period figure.
func installmentValue(principal decimal.Decimal, rate decimal.Decimal, n int) decimal.Decimal {
	if rate.IsZero() {
		return round2(principal.Div(decimal.NewFromInt(int64(n))))
	}
	onePlus := decimal.NewFromInt(1).Add(rate)
	factor := onePlus.Pow(decimal.NewFromInt(int64(n)))
	numerator := principal.Mul(rate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return round2(numerator.Div(denominator))
}

// BuildSchedule generates the amortization table for a financed amount. Per
// period: interest = round2(balance · rate), principal = payment − interest.
// The last line absorbs the cumulative rounding remainder so the schedule
// amortizes the principal with no residual.
func BuildSchedule(financed float64, monthlyRate float64, n int, firstDue time.Time) (Schedule, error) {
	if financed <= 0 {
		return Schedule{}, fmt.Errorf("%w: financed amount must be positive", ErrInvalidInput)
	}
	if n < 1 {
		return Schedule{}, fmt.Errorf("%w: installment count must be at least 1", ErrInvalidInput)
	}
	if monthlyRate < 0 {
		return Schedule{}, fmt.Errorf("%w: rate cannot be negative", ErrInvalidInput)
	}

	principal := round2(decimal.NewFromFloat(financed))
	rate := decimal.NewFromFloat(monthlyRate)
	payment := installmentValue(principal, rate, n)

	lines := make([]ScheduleLine, 0, n)
	balance := principal
	principalSum := decimal.Zero
	for k := 1; k <= n; k++ {
		interest := round2(balance.Mul(rate))
		principalPart := round2(payment.Sub(interest))
		if k == n {
			// Remainder correction: force the schedule to fully amortize.
			principalPart = principal.Sub(principalSum)
		}
		balance = balance.Sub(principalPart)
		principalSum = principalSum.Add(principalPart)
		total := principalPart.Add(interest)
		lines = append(lines, ScheduleLine{
			Sequence:  k,
			DueDate:   firstDue.AddDate(0, k-1, 0),
			Principal: principalPart.InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Total:     total.InexactFloat64(),
		})
	}

	// Derived comparison figures: payment × n and its spread over principal.
	totalPayable := round2(payment.Mul(decimal.NewFromInt(int64(n))))
	totalInterest := totalPayable.Sub(principal)
	if totalInterest.IsNegative() {
		// Zero-rate payments round down by up to a cent; the remainder sits in
		// the last line, so the true cost is the principal itself.
		totalPayable = principal
		totalInterest = decimal.Zero
	}
	return Schedule{
		InstallmentValue: payment.InexactFloat64(),
		Lines:            lines,
		TotalPayable:     totalPayable.InexactFloat64(),
		TotalInterest:    totalInterest.InexactFloat64(),
	}, nil
}

// Quote is one financing option computed for a simulation request.
type Quote struct {
	Installments     int
	MonthlyRate      float64
	InstallmentValue float64
	TotalPayable     float64
	TotalInterest    float64
	TotalCostPercent float64
}

// Simulate computes a quote per offer for the financed remainder of a purchase.
// Offers are independent: each runs the full schedule so per-period rounding is
// reflected in the totals.
func Simulate(amount, downPayment float64, offers []Offer) ([]Quote, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if downPayment < 0 || downPayment >= amount {
		return nil, fmt.Errorf("%w: down payment must be within [0, amount)", ErrInvalidInput)
	}
	financed := amount - downPayment
	quotes := make([]Quote, 0, len(offers))
	for _, offer := range offers {
		schedule, err := BuildSchedule(financed, offer.MonthlyRate, offer.Installments, time.Time{})
		if err != nil {
			return nil, err
		}
		costPct := decimal.NewFromFloat(schedule.TotalInterest).
			Div(decimal.NewFromFloat(financed)).
			Mul(hundred).
			Round(2)
		quotes = append(quotes, Quote{
			Installments:     offer.Installments,
			MonthlyRate:      offer.MonthlyRate,
			InstallmentValue: schedule.InstallmentValue,
			TotalPayable:     schedule.TotalPayable,
			TotalInterest:    schedule.TotalInterest,
			TotalCostPercent: costPct.InexactFloat64(),
		})
	}
	return quotes, nil
}

// OfferForTerm finds the offer matching an installment count.
func OfferForTerm(offers []Offer, installments int) (Offer, error) {
	for _, offer := range offers {
		if offer.Installments == installments {
			return offer, nil
		}
	}
	return Offer{}, fmt.Errorf("%w: %d installments", ErrUnknownTerm, installments)
}
