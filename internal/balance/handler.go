package balance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// Handler exposes the client balance endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers balance routes under the clients resource.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}/balance", h.clientBalance)
}

type nextInstallmentResponse struct {
	ID               int64   `json:"id"`
	CreditID         int64   `json:"creditId"`
	Sequence         int     `json:"sequence"`
	DueDate          string  `json:"dueDate"`
	RemainingBalance float64 `json:"remainingBalance"`
	Status           string  `json:"status"`
}

type balanceResponse struct {
	ClientID         int64                     `json:"clientId"`
	Total            float64                   `json:"total"`
	OverdueCount     int                       `json:"overdueCount"`
	CreditLimit      float64                   `json:"creditLimit"`
	CreditUsed       float64                   `json:"creditUsed"`
	CreditAvailable  float64                   `json:"creditAvailable"`
	NextInstallments []nextInstallmentResponse `json:"nextInstallments"`
}

func (h *Handler) clientBalance(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid ID", "client id must be numeric")
		return
	}
	result, err := h.service.Calculate(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, thirdparty.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "client not found")
			return
		}
		h.logger.Error("client balance", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}

	now := h.service.now()
	out := balanceResponse{
		ClientID:         result.ClientID,
		Total:            result.TotalOutstanding,
		OverdueCount:     result.OverdueCount,
		CreditLimit:      result.CreditLimit,
		CreditUsed:       result.CreditUsed,
		CreditAvailable:  result.CreditAvailable,
		NextInstallments: make([]nextInstallmentResponse, 0, len(result.NextInstallments)),
	}
	for _, inst := range result.NextInstallments {
		out.NextInstallments = append(out.NextInstallments, nextInstallmentResponse{
			ID:               inst.ID,
			CreditID:         inst.CreditID,
			Sequence:         inst.Sequence,
			DueDate:          inst.DueDate.Format("2006-01-02"),
			RemainingBalance: inst.RemainingBalance,
			Status:           string(inst.EffectiveStatus(now)),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
