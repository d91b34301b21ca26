package balance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// RepositoryPort reads the installments the aggregation runs over.
type RepositoryPort interface {
	ListOpenInstallments(ctx context.Context, orgID uuid.UUID, clientID int64) ([]credit.Installment, error)
}

// PartyPort looks up the client being aggregated.
type PartyPort interface {
	Get(ctx context.Context, orgID uuid.UUID, id int64) (thirdparty.ThirdParty, error)
}

// ClientBalance is the read-model the aggregator produces. It is recomputed on
// demand and never written back.
type ClientBalance struct {
	ClientID         int64
	TotalOutstanding float64
	OverdueCount     int
	CreditLimit      float64
	CreditUsed       float64
	CreditAvailable  float64
	NextInstallments []credit.Installment
}

// Service computes outstanding balance and aging for a client.
type Service struct {
	repo    RepositoryPort
	parties PartyPort
	now     func() time.Time
}

// NewService constructs the balance service.
func NewService(repo RepositoryPort, parties PartyPort) *Service {
	return &Service{repo: repo, parties: parties, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Calculate sums remaining balances over the client's unsettled installments,
// counts how many are past due, and returns the next three by due date.
func (s *Service) Calculate(ctx context.Context, orgID uuid.UUID, clientID int64) (ClientBalance, error) {
	client, err := s.parties.Get(ctx, orgID, clientID)
	if err != nil {
		return ClientBalance{}, err
	}
	installments, err := s.repo.ListOpenInstallments(ctx, orgID, clientID)
	if err != nil {
		return ClientBalance{}, err
	}

	now := s.now()
	out := ClientBalance{ClientID: clientID, CreditLimit: client.CreditLimit}
	for _, inst := range installments {
		out.TotalOutstanding = round2(out.TotalOutstanding + inst.RemainingBalance)
		if inst.DueDate.Before(now) {
			out.OverdueCount++
		}
	}

	sort.SliceStable(installments, func(a, b int) bool {
		return installments[a].DueDate.Before(installments[b].DueDate)
	})
	next := installments
	if len(next) > 3 {
		next = next[:3]
	}
	out.NextInstallments = next

	out.CreditUsed = out.TotalOutstanding
	out.CreditAvailable = round2(out.CreditLimit - out.CreditUsed)
	if out.CreditAvailable < 0 {
		out.CreditAvailable = 0
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
