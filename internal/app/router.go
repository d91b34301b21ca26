package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cuaderno-app/cuaderno/internal/balance"
	"github.com/cuaderno-app/cuaderno/internal/coa"
	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/ledger"
	"github.com/cuaderno-app/cuaderno/internal/observability"
	"github.com/cuaderno-app/cuaderno/internal/payment"
	"github.com/cuaderno-app/cuaderno/internal/portal"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
	"github.com/cuaderno-app/cuaderno/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	CoaHandler        *coa.Handler
	LedgerHandler     *ledger.Handler
	ThirdPartyHandler *thirdparty.Handler
	CreditHandler     *credit.Handler
	PaymentHandler    *payment.Handler
	BalanceHandler    *balance.Handler
	PortalHandler     *portal.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/coa", params.CoaHandler.MountRoutes)
	r.Route("/ledger", params.LedgerHandler.MountRoutes)
	r.Route("/parties", params.ThirdPartyHandler.MountRoutes)
	r.Route("/credits", params.CreditHandler.MountRoutes)
	r.Route("/payments", params.PaymentHandler.MountRoutes)
	r.Route("/clients", params.BalanceHandler.MountRoutes)
	r.Route("/portal", params.PortalHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}
