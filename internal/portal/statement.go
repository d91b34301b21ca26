package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cuaderno-app/cuaderno/internal/balance"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// BalancePort computes the figures the statement shows.
type BalancePort interface {
	Calculate(ctx context.Context, orgID uuid.UUID, clientID int64) (balance.ClientBalance, error)
}

// PartyPort resolves the client's display data.
type PartyPort interface {
	Get(ctx context.Context, orgID uuid.UUID, id int64) (thirdparty.ThirdParty, error)
}

// StatementLine is one upcoming installment, amounts preformatted for display.
type StatementLine struct {
	Sequence  int    `json:"sequence"`
	DueDate   string `json:"dueDate"`
	Remaining string `json:"remaining"`
	Overdue   bool   `json:"overdue"`
}

// Statement is the read-only view a magic link grants.
type Statement struct {
	ClientName   string          `json:"clientName"`
	GeneratedAt  string          `json:"generatedAt"`
	Total        string          `json:"total"`
	OverdueCount int             `json:"overdueCount"`
	Upcoming     []StatementLine `json:"upcoming"`
}

// StatementRenderer formats client statements in the tenant's currency and
// locale.
type StatementRenderer struct {
	balances BalancePort
	parties  PartyPort
	printer  *message.Printer
	unit     currency.Unit
	now      func() time.Time
}

// NewStatementRenderer builds a renderer for an ISO 4217 currency code, e.g.
// "ARS" or "USD". Unknown codes fall back to USD.
func NewStatementRenderer(balances BalancePort, parties PartyPort, currencyCode string) *StatementRenderer {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	return &StatementRenderer{
		balances: balances,
		parties:  parties,
		printer:  message.NewPrinter(language.Spanish),
		unit:     unit,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (r *StatementRenderer) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *StatementRenderer) amount(v float64) string {
	return r.printer.Sprint(currency.NarrowSymbol(r.unit.Amount(v)))
}

// Render builds the statement a validated link points at.
func (r *StatementRenderer) Render(ctx context.Context, link Link) (Statement, error) {
	client, err := r.parties.Get(ctx, link.OrgID, link.ClientID)
	if err != nil {
		return Statement{}, err
	}
	result, err := r.balances.Calculate(ctx, link.OrgID, link.ClientID)
	if err != nil {
		return Statement{}, err
	}

	now := r.now()
	out := Statement{
		ClientName:   client.Name,
		GeneratedAt:  now.Format("2006-01-02"),
		Total:        r.amount(result.TotalOutstanding),
		OverdueCount: result.OverdueCount,
		Upcoming:     make([]StatementLine, 0, len(result.NextInstallments)),
	}
	for _, inst := range result.NextInstallments {
		out.Upcoming = append(out.Upcoming, StatementLine{
			Sequence:  inst.Sequence,
			DueDate:   inst.DueDate.Format("2006-01-02"),
			Remaining: r.amount(inst.RemainingBalance),
			Overdue:   inst.DueDate.Before(now),
		})
	}
	return out, nil
}
