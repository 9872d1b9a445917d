// Package accounthub предоставляет маршруты для основного приложения.
package accounthub

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/safekidsapps/account-hub/internal/config"
	"github.com/safekidsapps/account-hub/internal/http/handlers/access/verify"
	"github.com/safekidsapps/account-hub/internal/http/handlers/admin/events"
	"github.com/safekidsapps/account-hub/internal/http/handlers/admin/grantlifetime"
	"github.com/safekidsapps/account-hub/internal/http/handlers/admin/migrationreport"
	"github.com/safekidsapps/account-hub/internal/http/handlers/admin/runmigration"
	"github.com/safekidsapps/account-hub/internal/http/handlers/admin/updatesubscription"
	"github.com/safekidsapps/account-hub/internal/http/handlers/subscription/health"
	"github.com/safekidsapps/account-hub/internal/http/handlers/subscription/updateapps"
	"github.com/safekidsapps/account-hub/internal/http/middlewarectx"
	sessionjwt "github.com/safekidsapps/account-hub/internal/lib/jwt"
	accountservice "github.com/safekidsapps/account-hub/internal/services/account"
	billingservice "github.com/safekidsapps/account-hub/internal/services/billing"
	migrationservice "github.com/safekidsapps/account-hub/internal/services/migration"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, storage *repository.Storage, maker sessionjwt.Maker, accountService *accountservice.AccountService, migrationService *migrationservice.MigrationService, billingService *billingservice.BillingService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, storage).ServeHTTP)

		// Группа с административным ключом: проверка доступа и служебные операции
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AdminKeyMiddleware(cfg.AdminKey, logger))
			r.Get("/verifyAppAccess", verify.New(logger, accountService).ServeHTTP)
			r.Get("/grantLifetime", grantlifetime.New(logger, accountService).ServeHTTP)
			r.Post("/updateSubscription", updatesubscription.New(logger, accountService).ServeHTTP)
			r.Get("/runMigration", runmigration.New(logger, migrationService).ServeHTTP)
			r.Get("/migrationReport", migrationreport.New(logger, migrationService).ServeHTTP)
			r.Get("/events", events.New(logger, accountService).ServeHTTP)
		})

		// Группа с сессионной аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.SessionMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscription/update-apps", updateapps.New(logger, billingService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
