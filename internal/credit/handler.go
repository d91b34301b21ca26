package credit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// Handler exposes credit endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/simulate", h.simulate)
	r.Post("/", h.grant)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/status", h.changeStatus)
}

type simulateRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	DownPayment float64 `json:"downPayment" validate:"gte=0"`
}

type quoteResponse struct {
	Installments     int     `json:"installments"`
	MonthlyRate      float64 `json:"monthlyRate"`
	InstallmentValue float64 `json:"installmentValue"`
	TotalPayable     float64 `json:"totalPayable"`
	TotalInterest    float64 `json:"totalInterest"`
	TotalCostPercent float64 `json:"totalCostPercent"`
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	quotes, err := h.service.SimulateFinancing(req.Amount, req.DownPayment)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			httpx.Problem(w, http.StatusBadRequest, httpx.KindInvalidAmount, "Invalid Simulation", err.Error())
			return
		}
		h.logger.Error("simulate financing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, quoteResponse(q))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"options": out})
}

type grantRequest struct {
	ClientID     int64   `json:"clientId" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	DownPayment  float64 `json:"downPayment" validate:"gte=0"`
	Installments int     `json:"installments" validate:"required,min=1"`
	FirstDueDate string  `json:"firstDueDate"`
}

type installmentResponse struct {
	ID               int64   `json:"id"`
	Sequence         int     `json:"sequence"`
	DueDate          string  `json:"dueDate"`
	PrincipalPortion float64 `json:"principalPortion"`
	InterestPortion  float64 `json:"interestPortion"`
	TotalDue         float64 `json:"totalDue"`
	AmountPaid       float64 `json:"amountPaid"`
	RemainingBalance float64 `json:"remainingBalance"`
	Status           string  `json:"status"`
}

type creditResponse struct {
	ID                 int64                 `json:"id"`
	ClientID           int64                 `json:"clientId"`
	OriginalAmount     float64               `json:"originalAmount"`
	DownPayment        float64               `json:"downPayment"`
	FinancedAmount     float64               `json:"financedAmount"`
	MonthlyRate        float64               `json:"monthlyRate"`
	InstallmentCount   int                   `json:"installmentCount"`
	InstallmentValue   float64               `json:"installmentValue"`
	RemainingPrincipal float64               `json:"remainingPrincipal"`
	Status             string                `json:"status"`
	GrantDate          string                `json:"grantDate"`
	FirstDueDate       string                `json:"firstDueDate"`
	Installments       []installmentResponse `json:"installments,omitempty"`
}

func toCreditResponse(c Credit, installments []Installment, now time.Time) creditResponse {
	out := creditResponse{
		ID:                 c.ID,
		ClientID:           c.ClientID,
		OriginalAmount:     c.OriginalAmount,
		DownPayment:        c.DownPayment,
		FinancedAmount:     c.FinancedAmount,
		MonthlyRate:        c.MonthlyRate,
		InstallmentCount:   c.InstallmentCount,
		InstallmentValue:   c.InstallmentValue,
		RemainingPrincipal: c.RemainingPrincipal,
		Status:             string(c.Status),
		GrantDate:          c.GrantDate.Format("2006-01-02"),
		FirstDueDate:       c.FirstDueDate.Format("2006-01-02"),
	}
	for _, inst := range installments {
		out.Installments = append(out.Installments, installmentResponse{
			ID:               inst.ID,
			Sequence:         inst.Sequence,
			DueDate:          inst.DueDate.Format("2006-01-02"),
			PrincipalPortion: inst.PrincipalPortion,
			InterestPortion:  inst.InterestPortion,
			TotalDue:         inst.TotalDue,
			AmountPaid:       inst.AmountPaid,
			RemainingBalance: inst.RemainingBalance,
			Status:           string(inst.EffectiveStatus(now)),
		})
	}
	return out
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	input := GrantInput{
		ClientID:     req.ClientID,
		Amount:       req.Amount,
		DownPayment:  req.DownPayment,
		Installments: req.Installments,
	}
	if req.FirstDueDate != "" {
		due, err := time.Parse("2006-01-02", req.FirstDueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "firstDueDate must be YYYY-MM-DD")
			return
		}
		input.FirstDueDate = due
	}
	credit, installments, err := h.service.Grant(r.Context(), orgID, input)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownTerm):
			httpx.Problem(w, http.StatusBadRequest, httpx.KindInvalidAmount, "Invalid Grant", err.Error())
		case errors.Is(err, thirdparty.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Client Not Found", "client not found")
		default:
			h.logger.Error("grant credit", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, toCreditResponse(credit, installments, h.service.now()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("clientId"), 10, 64)
	credits, err := h.service.List(r.Context(), orgID, clientID)
	if err != nil {
		h.logger.Error("list credits", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	now := h.service.now()
	out := make([]creditResponse, 0, len(credits))
	for _, c := range credits {
		out = append(out, toCreditResponse(c, nil, now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"credits": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid ID", "credit id must be numeric")
		return
	}
	credit, installments, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "credit not found")
			return
		}
		h.logger.Error("get credit", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCreditResponse(credit, installments, h.service.now()))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=PAID DEFAULTED CANCELLED"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid ID", "credit id must be numeric")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	credit, err := h.service.ChangeStatus(r.Context(), orgID, id, Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "credit not found")
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrUnsettledInstallments):
			httpx.Problem(w, http.StatusConflict, httpx.KindValidation, "Invalid Transition", err.Error())
		default:
			h.logger.Error("change credit status", slog.Any("error", err), slog.Int64("id", id))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, toCreditResponse(credit, nil, h.service.now()))
}
