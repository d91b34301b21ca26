package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// RepositoryPort defines data access for credits and their schedules.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, orgID uuid.UUID, id int64) (Credit, error)
	List(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Credit, error)
	ListInstallments(ctx context.Context, orgID uuid.UUID, creditID int64) ([]Installment, error)
	CountOutstanding(ctx context.Context, orgID uuid.UUID, creditID int64) (int, error)
	ListAgingCandidates(ctx context.Context, cutoff time.Time) ([]Credit, error)
	UpdateStatus(ctx context.Context, orgID uuid.UUID, id int64, status Status) error
}

// TxRepository exposes the writes of the atomic grant unit of work.
type TxRepository interface {
	InsertCredit(ctx context.Context, c Credit) (Credit, error)
	InsertInstallments(ctx context.Context, installments []Installment) error
}

// PartyPort looks up the client a credit is granted to.
type PartyPort interface {
	Get(ctx context.Context, orgID uuid.UUID, id int64) (thirdparty.ThirdParty, error)
}

// AuditPort records credit lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts credit state changes for observability.
type MetricsPort interface {
	CreditGranted()
	CreditDefaulted()
}

// Service manages the credit lifecycle: simulation, granting and status changes.
type Service struct {
	repo    RepositoryPort
	parties PartyPort
	audit   AuditPort
	metrics MetricsPort
	offers  []Offer
	now     func() time.Time
}

// NewService constructs the credit service. The offer table is injected
// configuration, not a package constant.
func NewService(repo RepositoryPort, parties PartyPort, audit AuditPort, metrics MetricsPort, offers []Offer) *Service {
	return &Service{repo: repo, parties: parties, audit: audit, metrics: metrics, offers: offers, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SimulateFinancing quotes every configured offer for a purchase.
func (s *Service) SimulateFinancing(amount, downPayment float64) ([]Quote, error) {
	return Simulate(amount, downPayment, s.offers)
}

// GrantInput carries a credit grant request.
type GrantInput struct {
	ClientID     int64
	Amount       float64
	DownPayment  float64
	Installments int
	FirstDueDate time.Time
}

// Validate checks the grant request before any computation.
func (in GrantInput) Validate() error {
	if in.ClientID == 0 {
		return fmt.Errorf("%w: client id required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if in.DownPayment < 0 || in.DownPayment >= in.Amount {
		return fmt.Errorf("%w: down payment must be within [0, amount)", ErrInvalidInput)
	}
	if in.Installments < 1 {
		return fmt.Errorf("%w: installment count must be at least 1", ErrInvalidInput)
	}
	return nil
}

// Grant creates a credit and its full installment schedule atomically. The
// client must exist, be active and act as a client.
func (s *Service) Grant(ctx context.Context, orgID uuid.UUID, in GrantInput) (Credit, []Installment, error) {
	if err := in.Validate(); err != nil {
		return Credit{}, nil, err
	}
	offer, err := OfferForTerm(s.offers, in.Installments)
	if err != nil {
		return Credit{}, nil, err
	}
	client, err := s.parties.Get(ctx, orgID, in.ClientID)
	if err != nil {
		return Credit{}, nil, err
	}
	if !client.ActsAs(thirdparty.RoleClient) || !client.IsActive {
		return Credit{}, nil, fmt.Errorf("%w: party %d is not an active client", ErrInvalidInput, in.ClientID)
	}

	now := s.now()
	firstDue := in.FirstDueDate
	if firstDue.IsZero() {
		firstDue = now.AddDate(0, 1, 0)
	}
	financed := in.Amount - in.DownPayment
	schedule, err := BuildSchedule(financed, offer.MonthlyRate, offer.Installments, firstDue)
	if err != nil {
		return Credit{}, nil, err
	}

	credit := Credit{
		OrgID:              orgID,
		ClientID:           in.ClientID,
		OriginalAmount:     in.Amount,
		DownPayment:        in.DownPayment,
		FinancedAmount:     financed,
		MonthlyRate:        offer.MonthlyRate,
		InstallmentCount:   offer.Installments,
		InstallmentValue:   schedule.InstallmentValue,
		RemainingPrincipal: financed,
		Status:             StatusActive,
		GrantDate:          now,
		FirstDueDate:       firstDue,
	}

	var installments []Installment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertCredit(ctx, credit)
		if err != nil {
			return err
		}
		credit = inserted
		installments = make([]Installment, 0, len(schedule.Lines))
		for _, line := range schedule.Lines {
			installments = append(installments, Installment{
				OrgID:            orgID,
				CreditID:         credit.ID,
				ClientID:         in.ClientID,
				Sequence:         line.Sequence,
				DueDate:          line.DueDate,
				PrincipalPortion: line.Principal,
				InterestPortion:  line.Interest,
				TotalDue:         line.Total,
				RemainingBalance: line.Total,
				Status:           InstallmentPending,
			})
		}
		return tx.InsertInstallments(ctx, installments)
	})
	if err != nil {
		return Credit{}, nil, err
	}

	if s.metrics != nil {
		s.metrics.CreditGranted()
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    orgID,
			Actor:    "system",
			Action:   "credit.grant",
			Entity:   "credit",
			EntityID: fmt.Sprintf("%d", credit.ID),
			Meta: map[string]any{
				"client_id":    in.ClientID,
				"financed":     financed,
				"installments": offer.Installments,
				"rate":         offer.MonthlyRate,
			},
			At: now,
		})
	}
	return credit, installments, nil
}

// Get returns a credit with its installment schedule.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID, id int64) (Credit, []Installment, error) {
	credit, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Credit{}, nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, orgID, id)
	if err != nil {
		return Credit{}, nil, err
	}
	return credit, installments, nil
}

// List returns a client's credits, or all of the tenant's when clientID is zero.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, clientID int64) ([]Credit, error) {
	return s.repo.List(ctx, orgID, clientID)
}

// ChangeStatus applies a manual state-machine transition. PAID additionally
// requires every installment settled.
func (s *Service) ChangeStatus(ctx context.Context, orgID uuid.UUID, id int64, to Status) (Credit, error) {
	credit, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Credit{}, err
	}
	if !CanTransition(credit.Status, to) {
		return Credit{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, credit.Status, to)
	}
	if to == StatusPaid {
		outstanding, err := s.repo.CountOutstanding(ctx, orgID, id)
		if err != nil {
			return Credit{}, err
		}
		if outstanding > 0 {
			return Credit{}, fmt.Errorf("%w: %d remaining", ErrUnsettledInstallments, outstanding)
		}
	}
	if err := s.repo.UpdateStatus(ctx, orgID, id, to); err != nil {
		return Credit{}, err
	}
	if to == StatusDefaulted && s.metrics != nil {
		s.metrics.CreditDefaulted()
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    orgID,
			Actor:    "system",
			Action:   "credit.status",
			Entity:   "credit",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"from": string(credit.Status), "to": string(to)},
			At:       s.now(),
		})
	}
	credit.Status = to
	return credit, nil
}

// DefaultOverdue marks active credits defaulted when their oldest unpaid
// installment is past due by more than graceDays. Run by the nightly worker,
// it spans all tenants and returns how many credits were defaulted.
func (s *Service) DefaultOverdue(ctx context.Context, asOf time.Time, graceDays int) (int, error) {
	cutoff := asOf.AddDate(0, 0, -graceDays)
	candidates, err := s.repo.ListAgingCandidates(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	defaulted := 0
	for _, credit := range candidates {
		if !CanTransition(credit.Status, StatusDefaulted) {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, credit.OrgID, credit.ID, StatusDefaulted); err != nil {
			return defaulted, err
		}
		defaulted++
		if s.metrics != nil {
			s.metrics.CreditDefaulted()
		}
		if s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				OrgID:    credit.OrgID,
				Actor:    "worker",
				Action:   "credit.default",
				Entity:   "credit",
				EntityID: fmt.Sprintf("%d", credit.ID),
				Meta:     map[string]any{"cutoff": cutoff.Format(time.RFC3339)},
				At:       s.now(),
			})
		}
	}
	return defaulted, nil
}
