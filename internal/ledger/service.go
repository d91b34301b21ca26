package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, orgID uuid.UUID, id int64) (JournalEntry, error)
	ListEntries(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]JournalEntry, int, error)
}

// TxRepository exposes the operations available inside the atomic unit of work.
type TxRepository interface {
	NextEntryNumber(ctx context.Context, orgID uuid.UUID) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	LinkOperation(ctx context.Context, orgID uuid.UUID, operationID uuid.UUID, entryID int64) error
	GetPartyForUpdate(ctx context.Context, orgID uuid.UUID, partyID int64) (thirdparty.ThirdParty, error)
	UpdatePartyBalance(ctx context.Context, orgID uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error
	InsertMovement(ctx context.Context, movement thirdparty.Movement) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted entries for observability.
type MetricsPort interface {
	EntryPosted(opType string)
}

// Service turns plain business operations into balanced journal entries.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordOperation validates an operation, resolves its accounts, verifies the
// balance identity, and persists the entry with its side effects atomically.
// The operation id is the idempotency key: posting the same operation twice
// yields ErrDuplicateOperation and no second entry.
func (s *Service) RecordOperation(ctx context.Context, orgID uuid.UUID, op Operation) (JournalEntry, error) {
	if err := op.Validate(); err != nil {
		return JournalEntry{}, err
	}
	built, err := op.build()
	if err != nil {
		return JournalEntry{}, err
	}

	lines := make([]JournalLine, 0, len(built.lines))
	var totalDebit, totalCredit float64
	for _, in := range built.lines {
		lines = append(lines, JournalLine{
			AccountCode: in.Account.Code,
			AccountName: in.Account.Name,
			Debit:       in.Debit,
			Credit:      in.Credit,
		})
		totalDebit += in.Debit
		totalCredit += in.Credit
	}
	// The totals match by construction unless the resolver handed back
	// inconsistent accounts. Fail closed, persist nothing.
	if cents(totalDebit) != cents(totalCredit) || cents(totalDebit) != cents(built.total) {
		return JournalEntry{}, fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalancedEntry, totalDebit, totalCredit)
	}

	header := op.Header()
	entry := JournalEntry{
		OrgID:       orgID,
		Date:        header.Date,
		Type:        EntryTypeOperational,
		Description: header.Description,
		TotalDebit:  built.total,
		TotalCredit: built.total,
		Status:      EntryStatusPosted,
		OperationID: header.OperationID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEntryNumber(ctx, orgID)
		if err != nil {
			return err
		}
		entry.Number = number

		inserted, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if err := tx.LinkOperation(ctx, orgID, header.OperationID, inserted.ID); err != nil {
			return err
		}

		if cp := built.counterparty; cp != nil {
			party, err := tx.GetPartyForUpdate(ctx, orgID, cp.PartyID)
			if err != nil {
				if errors.Is(err, thirdparty.ErrNotFound) {
					return ErrCounterpartyNotFound
				}
				return err
			}
			if !party.ActsAs(cp.Role) {
				return fmt.Errorf("%w: party %d does not act as %s", ErrCounterpartyNotFound, cp.PartyID, cp.Role)
			}
			current := party.BalanceAsSupplier
			if cp.Role == thirdparty.RoleClient {
				current = party.BalanceAsClient
			}
			balance := roundCents(current + cp.Delta)
			if err := tx.UpdatePartyBalance(ctx, orgID, cp.PartyID, cp.Role, balance); err != nil {
				return err
			}
			entryID := inserted.ID
			if err := tx.InsertMovement(ctx, thirdparty.Movement{
				OrgID:          orgID,
				PartyID:        cp.PartyID,
				Role:           cp.Role,
				JournalEntryID: &entryID,
				Kind:           cp.Kind,
				Amount:         cp.Delta,
				BalanceAfter:   balance,
				OccurredAt:     s.now(),
			}); err != nil {
				return err
			}
		}

		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}

	if s.metrics != nil {
		s.metrics.EntryPosted(string(op.Type()))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    orgID,
			Actor:    "system",
			Action:   "ledger.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":       entry.Number,
				"operation":    string(op.Type()),
				"operation_id": header.OperationID.String(),
				"total":        entry.TotalDebit,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// GetEntry returns a journal entry with its lines.
func (s *Service) GetEntry(ctx context.Context, orgID uuid.UUID, id int64) (JournalEntry, error) {
	return s.repo.GetEntry(ctx, orgID, id)
}

// ListEntries returns a page of entries, newest first, with pagination metadata.
func (s *Service) ListEntries(ctx context.Context, orgID uuid.UUID, page, perPage int) ([]JournalEntry, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	entries, total, err := s.repo.ListEntries(ctx, orgID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, perPage, total), nil
}
