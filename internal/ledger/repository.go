package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuaderno-app/cuaderno/internal/platform/db"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) NextEntryNumber(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var number int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM journal_entries WHERE org_id=$1`, orgID).Scan(&number)
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, number, date, type, description, total_debit, total_credit, status, operation_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		entry.OrgID, entry.Number, entry.Date, entry.Type, entry.Description,
		toNumeric(entry.TotalDebit), toNumeric(entry.TotalCredit), entry.Status, entry.OperationID)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_code, account_name, debit, credit)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountCode, line.AccountName, toNumeric(line.Debit), toNumeric(line.Credit)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkOperation(ctx context.Context, orgID uuid.UUID, operationID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO operation_links (org_id, operation_id, entry_id) VALUES ($1,$2,$3)`, orgID, operationID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOperation
		}
		return err
	}
	return nil
}

func (r *txRepository) GetPartyForUpdate(ctx context.Context, orgID uuid.UUID, partyID int64) (thirdparty.ThirdParty, error) {
	var p thirdparty.ThirdParty
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, name, document_id, role, balance_as_client, balance_as_supplier, credit_limit, is_active, created_at, updated_at
FROM third_parties WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, partyID).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.DocumentID, &p.Role, &p.BalanceAsClient, &p.BalanceAsSupplier, &p.CreditLimit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return thirdparty.ThirdParty{}, thirdparty.ErrNotFound
		}
		return thirdparty.ThirdParty{}, err
	}
	return p, nil
}

func (r *txRepository) UpdatePartyBalance(ctx context.Context, orgID uuid.UUID, partyID int64, role thirdparty.Role, balance float64) error {
	column := "balance_as_supplier"
	if role == thirdparty.RoleClient {
		column = "balance_as_client"
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE third_parties SET `+column+`=$3, updated_at=NOW() WHERE org_id=$1 AND id=$2`, orgID, partyID, toNumeric(balance))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return thirdparty.ErrNotFound
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m thirdparty.Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO third_party_movements (org_id, party_id, role, journal_entry_id, payment_id, kind, amount, balance_after, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		m.OrgID, m.PartyID, m.Role, m.JournalEntryID, m.PaymentID, m.Kind, toNumeric(m.Amount), toNumeric(m.BalanceAfter), m.OccurredAt)
	return err
}

const entryColumns = `id, org_id, number, date, type, description, total_debit, total_credit, status, operation_id, created_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Type, &e.Description, &e.TotalDebit, &e.TotalCredit, &e.Status, &e.OperationID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

// GetEntry returns an entry with its lines.
func (r *Repository) GetEntry(ctx context.Context, orgID uuid.UUID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_code, account_name, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY id`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.AccountName, &line.Debit, &line.Credit); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

// ListEntries returns a page of entries, newest first, plus the total count.
func (r *Repository) ListEntries(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]JournalEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE org_id=$1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 ORDER BY number DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
