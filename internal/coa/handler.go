package coa

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
)

// Handler exposes chart-of-accounts endpoints.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers chart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
}

type accountResponse struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Side           string  `json:"side"`
	Level          int     `json:"level"`
	ParentCode     *string `json:"parentCode,omitempty"`
	AllowsPostings bool    `json:"allowsPostings"`
	Currency       string  `json:"currency"`
	Active         bool    `json:"active"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	accounts, err := h.repo.ListAccounts(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			Code:           a.Code,
			Name:           a.Name,
			Type:           string(a.Type),
			Side:           string(a.Side),
			Level:          a.Level,
			ParentCode:     a.ParentCode,
			AllowsPostings: a.AllowsPostings,
			Currency:       a.Currency,
			Active:         a.IsActive,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}
