// Package metrics объявляет счётчики Prometheus сервиса.
// Метрики отдаются на /metrics через promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AccessChecks число проверок доступа с разбивкой по результату.
var AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "accounthub_access_checks_total",
	Help: "Количество проверок доступа приложений к аккаунтам.",
}, []string{"result"})

// EntitlementGrants число выданных доступов к приложениям.
var EntitlementGrants = promauto.NewCounter(prometheus.CounterOpts{
	Name: "accounthub_entitlement_grants_total",
	Help: "Количество успешных выдач доступа к приложениям.",
})

// EntitlementRevokes число отозванных доступов к приложениям.
var EntitlementRevokes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "accounthub_entitlement_revokes_total",
	Help: "Количество успешных отзывов доступа к приложениям.",
})

// EntitlementSyncErrors число пер-приложенческих ошибок синхронизации.
var EntitlementSyncErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "accounthub_entitlement_sync_errors_total",
	Help: "Количество ошибок пер-приложенческих вызовов синхронизации.",
})

// UsersMigrated число пользователей, обработанных миграцией.
var UsersMigrated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "accounthub_users_migrated_total",
	Help: "Количество пользователей, обработанных grandfather-миграцией.",
})
