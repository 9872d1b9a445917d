// Package services реализует синхронизатор доступов: по старому и новому
// наборам приложений вычисляет, кому выдать и у кого отозвать доступ,
// и применяет изменение через админ-эндпоинты приложений.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/metrics"
	"github.com/safekidsapps/account-hub/internal/models"
)

// AppGateway описывает вызовы админ-эндпоинтов приложений.
type AppGateway interface {
	// SetAccess устанавливает статус подписки пользователя в приложении.
	SetAccess(ctx context.Context, app models.AppName, email, subscriptionStatus string) error
}

// Repository описывает методы хранилища, нужные синхронизатору.
type Repository interface {
	// UpdateEntitledApps записывает целевой набор приложений аккаунта.
	UpdateEntitledApps(ctx context.Context, email string, apps []models.AppName) error
	// InsertEvent добавляет событие в журнал аудита.
	InsertEvent(ctx context.Context, event models.SubscriptionEvent) error
}

// Publisher публикует события аудита во внешнюю шину.
type Publisher interface {
	Publish(message any) error
}

// CacheInvalidator сбрасывает кешированную запись аккаунта.
type CacheInvalidator interface {
	Invalidate(key string) error
}

// SyncResult итог синхронизации доступов для одного аккаунта.
// Errors перечисляет приложения, где вызов не удался: частичный отказ
// не откатывает успешные изменения, решение о повторе — за вызывающим.
type SyncResult struct {
	Granted []models.AppName  `json:"granted"`
	Revoked []models.AppName  `json:"revoked"`
	Errors  []models.AppError `json:"errors"`
}

// AllFailed истинно, когда синхронизация пыталась изменить доступы,
// но ни один вызов не удался. Пустой diff даёт false: менять было нечего.
func (r *SyncResult) AllFailed() bool {
	return len(r.Errors) > 0 && len(r.Granted)+len(r.Revoked) == 0
}

// SyncService реализует синхронизацию доступов приложений.
type SyncService struct {
	gateway AppGateway
	repo    Repository
	cache   CacheInvalidator
	bus     Publisher
	log     *slog.Logger
}

// NewSyncService создает новый экземпляр SyncService.
func NewSyncService(gateway AppGateway, repo Repository, cache CacheInvalidator, bus Publisher, log *slog.Logger) *SyncService {
	return &SyncService{
		gateway: gateway,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		log:     log,
	}
}

type appOutcome struct {
	app   models.AppName
	grant bool
	err   error
}

// SyncAppAccess приводит доступы приложений к набору newApps.
//
// Выдаются только приложения из newApps, отсутствующие в previousApps,
// отзываются только обратные; общие приложения не трогаются, поэтому
// повторный вызов с теми же наборами не делает ни одного сетевого
// обращения. Пер-приложенческие вызовы идут параллельно (их не больше
// трёх) и собираются до возврата; отказ одного приложения не блокирует
// остальные. Каждый вызов фиксируется одним событием аудита.
func (s *SyncService) SyncAppAccess(ctx context.Context, email string, newApps, previousApps []models.AppName, grantStatus string) (*SyncResult, error) {
	const op = "entitlement.SyncAppAccess"
	email = models.NormalizeEmail(email)
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	if grantStatus != status.Lifetime {
		grantStatus = status.Active
	}

	toGrant := models.DiffApps(newApps, previousApps)
	toRevoke := models.DiffApps(previousApps, newApps)

	outcomes := make(chan appOutcome, len(toGrant)+len(toRevoke))
	var wg sync.WaitGroup
	for _, app := range toGrant {
		wg.Add(1)
		go func(app models.AppName) {
			defer wg.Done()
			outcomes <- appOutcome{app: app, grant: true, err: s.gateway.SetAccess(ctx, app, email, grantStatus)}
		}(app)
	}
	for _, app := range toRevoke {
		wg.Add(1)
		go func(app models.AppName) {
			defer wg.Done()
			outcomes <- appOutcome{app: app, grant: false, err: s.gateway.SetAccess(ctx, app, email, status.Canceled)}
		}(app)
	}
	wg.Wait()
	close(outcomes)

	granted := map[models.AppName]bool{}
	revoked := map[models.AppName]bool{}
	failed := map[models.AppName]string{}
	for outcome := range outcomes {
		if outcome.err != nil {
			log.Error("app call failed", sl.App(string(outcome.app)), sl.Err(outcome.err))
			failed[outcome.app] = outcome.err.Error()
			metrics.EntitlementSyncErrors.Inc()
			continue
		}
		if outcome.grant {
			granted[outcome.app] = true
			metrics.EntitlementGrants.Inc()
		} else {
			revoked[outcome.app] = true
			metrics.EntitlementRevokes.Inc()
		}
	}

	// порядок в ответе фиксированный, как и порядок обхода приложений
	result := &SyncResult{
		Granted: []models.AppName{},
		Revoked: []models.AppName{},
		Errors:  []models.AppError{},
	}
	for _, app := range models.AllApps() {
		switch {
		case granted[app]:
			result.Granted = append(result.Granted, app)
		case revoked[app]:
			result.Revoked = append(result.Revoked, app)
		}
		if msg, ok := failed[app]; ok {
			result.Errors = append(result.Errors, models.AppError{App: app, Message: msg})
		}
	}

	s.appendAuditEvent(ctx, email, newApps, previousApps, result)

	// центральная запись отражает выбор в биллинге; расхождение с
	// отказавшим приложением зафиксировано в errors и журнале аудита
	if err := s.repo.UpdateEntitledApps(ctx, email, models.DiffApps(newApps, nil)); err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	cacheKey := fmt.Sprintf("account:%s", email)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		log.Warn("failed to invalidate account cache", slog.String("key", cacheKey), sl.Err(err))
	}

	log.Info("app access synced",
		slog.Any("granted", result.Granted),
		slog.Any("revoked", result.Revoked),
		slog.Int("errors", len(result.Errors)))
	return result, nil
}

func (s *SyncService) appendAuditEvent(ctx context.Context, email string, newApps, previousApps []models.AppName, result *SyncResult) {
	event := models.SubscriptionEvent{
		Email:     email,
		EventType: models.EventEntitlementSync,
		EventData: map[string]any{
			"newApps":      newApps,
			"previousApps": previousApps,
			"granted":      result.Granted,
			"revoked":      result.Revoked,
			"errors":       result.Errors,
		},
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		s.log.Error("failed to append audit event", sl.Err(err))
	}
	if err := s.bus.Publish(event); err != nil {
		s.log.Warn("failed to publish audit event", sl.Err(err))
	}
}
