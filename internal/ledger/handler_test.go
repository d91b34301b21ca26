package ledger

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuaderno-app/cuaderno/internal/shared"
)

func postOperation(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/operations", strings.NewReader(body))
	req = req.WithContext(shared.ContextWithOrg(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	h.recordOperation(rec, req)
	return rec
}

func TestRecordOperationAcceptsAnyUUIDVersion(t *testing.T) {
	repo := newMemoryLedgerRepo()
	h := NewHandler(slog.Default(), NewService(repo, nil, nil))

	// A v1 operation id is a valid idempotency key; only the UUID syntax is
	// the contract, not a particular version.
	rec := postOperation(t, h, `{
		"operationId": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"operationType": "CASH_IN",
		"date": "2026-03-01",
		"amount": 1500,
		"paymentMethod": "CASH",
		"category": "SALES"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRecordOperationRejectsMalformedOperationID(t *testing.T) {
	repo := newMemoryLedgerRepo()
	h := NewHandler(slog.Default(), NewService(repo, nil, nil))

	rec := postOperation(t, h, `{
		"operationId": "not-a-uuid",
		"operationType": "CASH_IN",
		"date": "2026-03-01",
		"amount": 1500,
		"paymentMethod": "CASH",
		"category": "SALES"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
