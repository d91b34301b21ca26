package payment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
)

// Handler exposes payment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/confirm", h.confirm)
	r.Get("/{id}", h.get)
	r.Get("/", h.list)
}

type confirmRequest struct {
	ClientID          int64   `json:"clientId" validate:"required"`
	Amount            float64 `json:"amount" validate:"required,gt=0"`
	Method            string  `json:"method" validate:"required,oneof=CASH TRANSFER CHECK CARD"`
	ExternalReference string  `json:"externalReference"`
}

type allocationResponse struct {
	InstallmentID int64   `json:"installmentId"`
	CreditID      int64   `json:"creditId"`
	Component     string  `json:"component"`
	Amount        float64 `json:"amount"`
}

type paymentResponse struct {
	ID                int64                `json:"id"`
	ClientID          int64                `json:"clientId"`
	Amount            float64              `json:"amount"`
	Method            string               `json:"method"`
	Status            string               `json:"status"`
	ExternalReference string               `json:"externalReference,omitempty"`
	UnappliedAmount   float64              `json:"unappliedAmount"`
	Allocations       []allocationResponse `json:"allocations"`
}

func toPaymentResponse(p Payment) paymentResponse {
	out := paymentResponse{
		ID:                p.ID,
		ClientID:          p.ClientID,
		Amount:            p.Amount,
		Method:            p.Method,
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
		UnappliedAmount:   p.UnappliedAmount,
		Allocations:       make([]allocationResponse, 0, len(p.Allocations)),
	}
	for _, a := range p.Allocations {
		out.Allocations = append(out.Allocations, allocationResponse{
			InstallmentID: a.InstallmentID,
			CreditID:      a.CreditID,
			Component:     string(a.Component),
			Amount:        a.Amount,
		})
	}
	return out
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Confirm(r.Context(), orgID, ConfirmInput{
		ClientID:          req.ClientID,
		Amount:            req.Amount,
		Method:            req.Method,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			httpx.Problem(w, http.StatusBadRequest, httpx.KindInvalidAmount, "Invalid Payment", err.Error())
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Client Not Found", err.Error())
		case errors.Is(err, ErrDuplicateReference):
			httpx.Problem(w, http.StatusConflict, httpx.KindDuplicate, "Duplicate Payment", err.Error())
		default:
			h.logger.Error("confirm payment", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid ID", "payment id must be numeric")
		return
	}
	p, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "payment not found")
			return
		}
		h.logger.Error("get payment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	clientID, err := strconv.ParseInt(r.URL.Query().Get("clientId"), 10, 64)
	if err != nil || clientID == 0 {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Query", "clientId query parameter required")
		return
	}
	payments, err := h.service.ListByClient(r.Context(), orgID, clientID)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": out})
}
