// Package accounthub собирает основное приложение центра аккаунтов:
// подключения к PostgreSQL, Redis и RabbitMQ, клиенты внешних приложений
// и биллинга, сервисы бизнес-логики и HTTP-сервер.
package accounthub

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/safekidsapps/account-hub/internal/appclient"
	"github.com/safekidsapps/account-hub/internal/cache"
	"github.com/safekidsapps/account-hub/internal/config"
	sessionjwt "github.com/safekidsapps/account-hub/internal/lib/jwt"
	rabbitmqlib "github.com/safekidsapps/account-hub/internal/lib/rabbitmq"
	"github.com/safekidsapps/account-hub/internal/migrations"
	"github.com/safekidsapps/account-hub/internal/paymentprovider"
	"github.com/safekidsapps/account-hub/internal/rabbitmq"
	accountservice "github.com/safekidsapps/account-hub/internal/services/account"
	billingservice "github.com/safekidsapps/account-hub/internal/services/billing"
	entitlementservice "github.com/safekidsapps/account-hub/internal/services/entitlement"
	migrationservice "github.com/safekidsapps/account-hub/internal/services/migration"
	"github.com/safekidsapps/account-hub/internal/storage/repository"

	amqp "github.com/streadway/amqp"
)

// App хранит запущенные компоненты приложения для корректного завершения.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
	amqpConn *amqp.Connection
}

// New инициализирует все зависимости и возвращает готовое к запуску приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		return nil, err
	}
	bus := rabbitmqlib.NewEventBus(ch)

	gateway := appclient.New(cfg.Apps)
	if err = gateway.Validate(); err != nil {
		return nil, err
	}

	maker := sessionjwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	providerClient := paymentprovider.NewClient(cfg.Stripe.SecretKey)

	syncService := entitlementservice.NewSyncService(gateway, db, cacheRedis, bus, logger)
	accountService := accountservice.NewAccountService(db, cacheRedis, syncService, bus, logger)
	migrationService := migrationservice.NewMigrationService(gateway, db, cacheRedis, bus, logger)
	billingService := billingservice.NewBillingService(providerClient, db, syncService, bus, cfg.Stripe, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, db, maker, accountService, migrationService, billingService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		cache:    cacheRedis,
		amqpConn: conn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста либо ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.amqpConn.Close(); closeErr != nil {
			a.logger.Warn("failed to close rabbitmq connection", slog.Any("err", closeErr))
		}
		a.db.DB.Close()
		return err
	}
}
