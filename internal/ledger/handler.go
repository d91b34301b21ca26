package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cuaderno-app/cuaderno/internal/coa"
	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
)

// Handler exposes the journal endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/operations", h.recordOperation)
	r.Get("/entries", h.listEntries)
	r.Get("/entries/{id}", h.getEntry)
}

// operationRequest is the wire form of a business operation. The variant is
// selected by operationType; fields not used by the variant are ignored.
type operationRequest struct {
	OperationID   string  `json:"operationId" validate:"required,uuid"`
	OperationType string  `json:"operationType" validate:"required,oneof=CASH_IN EXPENSE_PAYMENT CREDIT_PURCHASE DEBT_PAYMENT MERCHANDISE_INTAKE"`
	Date          string  `json:"date" validate:"required"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	TaxAmount     float64 `json:"taxAmount" validate:"gte=0"`
	PaymentMethod string  `json:"paymentMethod"`
	Category      string  `json:"category"`
	SupplierID    int64   `json:"supplierId"`
}

func (req operationRequest) toOperation() (Operation, error) {
	opID, err := uuid.Parse(req.OperationID)
	if err != nil {
		return nil, fmt.Errorf("%w: operation id must be a uuid", ErrInvalidAmount)
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidAmount)
	}
	header := OperationHeader{OperationID: opID, Date: date, Description: req.Description}
	switch coa.OperationType(req.OperationType) {
	case coa.OpCashIn:
		return CashIn{OperationHeader: header, Amount: req.Amount, Method: coa.PaymentMethod(req.PaymentMethod), Category: coa.Category(req.Category)}, nil
	case coa.OpExpensePayment:
		return ExpensePayment{OperationHeader: header, Amount: req.Amount, Method: coa.PaymentMethod(req.PaymentMethod), Category: coa.Category(req.Category)}, nil
	case coa.OpCreditPurchase:
		return CreditPurchase{OperationHeader: header, Amount: req.Amount, Category: coa.Category(req.Category), SupplierID: req.SupplierID}, nil
	case coa.OpDebtPayment:
		return DebtPayment{OperationHeader: header, Amount: req.Amount, Method: coa.PaymentMethod(req.PaymentMethod), SupplierID: req.SupplierID}, nil
	case coa.OpMerchandiseIntake:
		return MerchandiseIntake{OperationHeader: header, Amount: req.Amount, TaxAmount: req.TaxAmount, SupplierID: req.SupplierID}, nil
	default:
		return nil, coa.ErrUnmappedCategory
	}
}

type lineResponse struct {
	AccountCode string  `json:"accountCode"`
	AccountName string  `json:"accountName"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
}

type entryResponse struct {
	ID          int64          `json:"id"`
	Number      int64          `json:"number"`
	Date        string         `json:"date"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Lines       []lineResponse `json:"lines,omitempty"`
	TotalDebit  float64        `json:"totalDebit"`
	TotalCredit float64        `json:"totalCredit"`
	Status      string         `json:"status"`
	OperationID string         `json:"operationId"`
}

func toEntryResponse(e JournalEntry) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		Number:      e.Number,
		Date:        e.Date.Format("2006-01-02"),
		Type:        string(e.Type),
		Description: e.Description,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		Status:      string(e.Status),
		OperationID: e.OperationID.String(),
	}
	for _, line := range e.Lines {
		out.Lines = append(out.Lines, lineResponse{
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return out
}

func (h *Handler) recordOperation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	var req operationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	op, err := req.toOperation()
	if err != nil {
		h.respondOperationError(w, err)
		return
	}
	entry, err := h.service.RecordOperation(r.Context(), orgID, op)
	if err != nil {
		h.respondOperationError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coa.ErrUnmappedCategory):
		httpx.Problem(w, http.StatusUnprocessableEntity, httpx.KindUnmappedCategory, "Unmapped Operation", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrCounterpartyRequired):
		httpx.Problem(w, http.StatusBadRequest, httpx.KindInvalidAmount, "Invalid Operation", err.Error())
	case errors.Is(err, ErrDuplicateOperation):
		httpx.Problem(w, http.StatusConflict, httpx.KindDuplicate, "Duplicate Operation", err.Error())
	case errors.Is(err, ErrCounterpartyNotFound):
		httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Counterparty Not Found", err.Error())
	case errors.Is(err, ErrUnbalancedEntry):
		h.logger.Error("unbalanced entry rejected", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, httpx.KindUnbalancedEntry, "Unbalanced Entry", "entry failed the balance check and was not persisted")
	default:
		h.logger.Error("record operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	entries, pagination, err := h.service.ListEntries(r.Context(), orgID, page, perPage)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out, "pagination": pagination})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid ID", "entry id must be numeric")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "journal entry not found")
			return
		}
		h.logger.Error("get entry", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}
