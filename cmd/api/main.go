package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tiendapos/credit-ledger/internal/config"
	"github.com/tiendapos/credit-ledger/internal/handler"
	"github.com/tiendapos/credit-ledger/internal/logging"
	"github.com/tiendapos/credit-ledger/internal/middleware"
	"github.com/tiendapos/credit-ledger/internal/repository"
	"github.com/tiendapos/credit-ledger/internal/service"
	"github.com/tiendapos/credit-ledger/internal/service/ledger"
)

//go:embed openapi.yaml
var openapiSpec []byte

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("credit-ledger-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	creditRepo := repository.NewCreditRepository(db)
	paymentRepo := repository.NewPaymentRecordRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	userRepo := repository.NewUserRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	ledgerSvc := ledger.NewService(creditRepo, paymentRepo, outboxRepo, db,
		time.Duration(cfg.StoreTimeoutMS)*time.Millisecond)

	auditPublisher, err := service.NewKafkaAuditPublisher([]string{cfg.KafkaBrokers}, cfg.AuditTopic)
	if err != nil {
		slog.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	defer auditPublisher.Close()

	salesClient := service.NewSalesClient(cfg.SalesServiceURL)

	dispatcher := service.NewOutboxDispatcher(outboxRepo, auditPublisher, salesClient,
		slog.Default(), time.Duration(cfg.OutboxPollMS)*time.Millisecond, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	creditHandler := handler.NewCreditHandler(ledgerSvc)
	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret,
		time.Duration(cfg.JWTExpiryMin)*time.Minute)
	healthHandler := handler.NewHealthHandler(db)

	authn := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(idempotencyRepo)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.Handle("GET /docs", handler.ServeDocs())
	mux.Handle("GET /docs/openapi.yaml", handler.ServeSpec(openapiSpec))

	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/stores/{storeID}/credits",
		authn(idem(http.HandlerFunc(creditHandler.Create))))
	mux.Handle("GET /api/v1/stores/{storeID}/credits/{id}",
		authn(http.HandlerFunc(creditHandler.Get)))
	mux.Handle("POST /api/v1/stores/{storeID}/credits/{id}/payments",
		authn(idem(http.HandlerFunc(creditHandler.ApplyPayment))))
	mux.Handle("GET /api/v1/stores/{storeID}/credits/{id}/payments",
		authn(http.HandlerFunc(creditHandler.ListPayments)))
	mux.Handle("POST /api/v1/stores/{storeID}/credits/{id}/cancel",
		authn(idem(http.HandlerFunc(creditHandler.CancelCredit))))
	mux.Handle("POST /api/v1/stores/{storeID}/payments/{paymentID}/cancel",
		authn(idem(http.HandlerFunc(creditHandler.CancelPayment))))
	mux.Handle("GET /api/v1/stores/{storeID}/clients/{clientID}/credits",
		authn(http.HandlerFunc(creditHandler.ListClientCredits)))
	mux.Handle("GET /api/v1/stores/{storeID}/clients/{clientID}/credits/summary",
		authn(http.HandlerFunc(creditHandler.ClientSummary)))

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
