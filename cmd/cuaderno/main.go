package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/cuaderno-app/cuaderno/internal/app"
	"github.com/cuaderno-app/cuaderno/internal/balance"
	"github.com/cuaderno-app/cuaderno/internal/coa"
	"github.com/cuaderno-app/cuaderno/internal/credit"
	"github.com/cuaderno-app/cuaderno/internal/ledger"
	"github.com/cuaderno-app/cuaderno/internal/observability"
	"github.com/cuaderno-app/cuaderno/internal/payment"
	"github.com/cuaderno-app/cuaderno/internal/platform/cache"
	"github.com/cuaderno-app/cuaderno/internal/platform/db"
	"github.com/cuaderno-app/cuaderno/internal/portal"
	"github.com/cuaderno-app/cuaderno/internal/shared"
	"github.com/cuaderno-app/cuaderno/internal/thirdparty"
	"github.com/cuaderno-app/cuaderno/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	offers, err := cfg.Offers()
	if err != nil {
		logger.Error("parse financing offers", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	coaRepo := coa.NewRepository(pool)
	coaHandler := coa.NewHandler(logger, coaRepo)

	partyRepo := thirdparty.NewRepository(pool)
	partyService := thirdparty.NewService(partyRepo)
	partyHandler := thirdparty.NewHandler(logger, partyService)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	creditRepo := credit.NewRepository(pool)
	creditService := credit.NewService(creditRepo, partyRepo, auditLogger, metrics, offers)
	creditHandler := credit.NewHandler(logger, creditService)

	paymentRepo := payment.NewRepository(pool)
	paymentService := payment.NewService(paymentRepo, auditLogger, metrics, cfg.PenaltyDailyRate)
	paymentHandler := payment.NewHandler(logger, paymentService)

	balanceRepo := balance.NewRepository(pool)
	balanceService := balance.NewService(balanceRepo, partyRepo)
	balanceHandler := balance.NewHandler(logger, balanceService)

	tokenStore := portal.NewTokenStore(redisClient, cfg.PortalLinkTTL)
	renderer := portal.NewStatementRenderer(balanceService, partyRepo, cfg.StatementCurrency)
	portalHandler := portal.NewHandler(logger, tokenStore, renderer, partyRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		CoaHandler:        coaHandler,
		LedgerHandler:     ledgerHandler,
		ThirdPartyHandler: partyHandler,
		CreditHandler:     creditHandler,
		PaymentHandler:    paymentHandler,
		BalanceHandler:    balanceHandler,
		PortalHandler:     portalHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
