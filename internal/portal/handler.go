package portal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cuaderno-app/cuaderno/internal/platform/httpx"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
)

// Handler exposes the client portal surface: link issuance for operators and
// the tokenized statement for clients.
type Handler struct {
	logger   *slog.Logger
	tokens   *TokenStore
	renderer *StatementRenderer
	parties  PartyPort
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, tokens *TokenStore, renderer *StatementRenderer, parties PartyPort) *Handler {
	return &Handler{logger: logger, tokens: tokens, renderer: renderer, parties: parties, validate: validator.New()}
}

// MountRoutes registers portal routes. The statement route is exempt from the
// tenant header: the token itself carries the tenant.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/links", h.createLink)
	r.Get("/statement", h.statement)
}

type createLinkRequest struct {
	ClientID int64 `json:"clientId" validate:"required"`
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	orgID, ok := shared.OrgFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Missing Tenant", "organization id required")
		return
	}
	var req createLinkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	client, err := h.parties.Get(r.Context(), orgID, req.ClientID)
	if err != nil {
		if errors.Is(err, thirdparty.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "client not found")
			return
		}
		h.logger.Error("portal link lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !client.ActsAs(thirdparty.RoleClient) {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Not A Client", "party does not act as a client")
		return
	}
	token, link, err := h.tokens.Issue(r.Context(), orgID, req.ClientID)
	if err != nil {
		h.logger.Error("issue portal link", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"token":     token,
		"expiresAt": link.ExpiresAt,
	})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, httpx.KindStaleReference, "Missing Token", "token query parameter required")
		return
	}
	link, err := h.tokens.Validate(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrTokenNotFound):
			httpx.Problem(w, http.StatusUnauthorized, httpx.KindStaleReference, "Invalid Token", "link is invalid")
		case errors.Is(err, ErrTokenExpired):
			httpx.Problem(w, http.StatusUnauthorized, httpx.KindStaleReference, "Expired Token", "link has expired")
		default:
			h.logger.Error("validate portal token", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	statement, err := h.renderer.Render(r.Context(), link)
	if err != nil {
		if errors.Is(err, thirdparty.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, httpx.KindNotFound, "Not Found", "client not found")
			return
		}
		h.logger.Error("render statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}
