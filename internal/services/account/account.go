// Package services содержит бизнес-логику центрального хранилища аккаунтов:
// проверку доступа приложений, админ-выдачу пожизненного доступа и
// авторитетные обновления подписки из биллинга.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/metrics"
	"github.com/safekidsapps/account-hub/internal/models"
	entitlement "github.com/safekidsapps/account-hub/internal/services/entitlement"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// accountCacheTTL время жизни кешированной записи аккаунта.
const accountCacheTTL = 5 * time.Minute

// Repository определяет методы хранилища аккаунтов.
type Repository interface {
	// GetAccountByEmail возвращает аккаунт по email.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// GrantLifetime выдаёт пожизненный доступ, создавая аккаунт при отсутствии.
	GrantLifetime(ctx context.Context, email string, apps []models.AppName) (*models.Account, bool, error)
	// UpdateSubscription применяет авторитетное внешнее обновление подписки.
	UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*models.Account, error)
	// InsertEvent добавляет событие в журнал аудита.
	InsertEvent(ctx context.Context, event models.SubscriptionEvent) error
	// ListEventsByEmail возвращает события аккаунта, новые первыми.
	ListEventsByEmail(ctx context.Context, email string, limit int) ([]*models.SubscriptionEvent, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Syncer приводит доступы приложений к новому набору.
type Syncer interface {
	SyncAppAccess(ctx context.Context, email string, newApps, previousApps []models.AppName, grantStatus string) (*entitlement.SyncResult, error)
}

// Publisher публикует события аудита во внешнюю шину.
type Publisher interface {
	Publish(message any) error
}

// AccountService реализует бизнес-логику работы с аккаунтами.
type AccountService struct {
	repo   Repository
	cache  Cache
	syncer Syncer
	bus    Publisher
	log    *slog.Logger
}

// NewAccountService создает новый экземпляр AccountService.
func NewAccountService(repo Repository, cache Cache, syncer Syncer, bus Publisher, log *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		cache:  cache,
		syncer: syncer,
		bus:    bus,
		log:    log,
	}
}

// VerifyAppAccess решает, имеет ли аккаунт доступ к приложению.
// Отсутствие аккаунта — не ошибка, а отрицательное решение: шлюз
// доступа приложения различает причины по полю reason.
func (s *AccountService) VerifyAppAccess(ctx context.Context, email string, app models.AppName) (*models.AccessDecision, error) {
	acc, err := s.getAccountCached(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		metrics.AccessChecks.WithLabelValues("denied").Inc()
		return &models.AccessDecision{HasAccess: false, Reason: models.ReasonNoAccount}, nil
	}
	if err != nil {
		return nil, err
	}

	decision := accessDecision(acc, app, time.Now().UnixMilli())
	if decision.HasAccess {
		metrics.AccessChecks.WithLabelValues("granted").Inc()
	} else {
		metrics.AccessChecks.WithLabelValues("denied").Inc()
	}
	return decision, nil
}

// accessDecision чистое правило доступа: lifetime и active дают доступ,
// trial — до истечения пробного периода, canceled и past_due — пока не
// закончилась оплаченная дата. Приложение вне entitledApps не получает
// доступа независимо от статуса.
func accessDecision(acc *models.Account, app models.AppName, now int64) *models.AccessDecision {
	decision := &models.AccessDecision{
		SubscriptionStatus:  acc.SubscriptionStatus,
		UserID:              acc.UID,
		OnboardingCompleted: acc.OnboardingCompleted[app],
	}

	if !models.ContainsApp(acc.EntitledApps, app) {
		decision.Reason = models.ReasonNotEntitled
		return decision
	}

	switch acc.SubscriptionStatus {
	case status.Lifetime:
		decision.HasAccess = true
		decision.Reason = models.ReasonLifetime
	case status.Active:
		decision.HasAccess = true
		decision.Reason = models.ReasonActive
	case status.Trial:
		decision.TrialExpiresAt = acc.TrialExpiresAt
		if acc.TrialExpiresAt == nil || *acc.TrialExpiresAt > now {
			decision.HasAccess = true
			decision.Reason = models.ReasonTrial
		} else {
			decision.Reason = models.ReasonTrialExpired
		}
	case status.Canceled, status.PastDue:
		if acc.SubscriptionEndsAt != nil && *acc.SubscriptionEndsAt > now {
			decision.HasAccess = true
			decision.Reason = models.ReasonPaidThrough
		} else {
			decision.Reason = models.ReasonSubscriptionInactive
		}
	default:
		decision.Reason = models.ReasonSubscriptionInactive
	}
	return decision
}

func (s *AccountService) getAccountCached(ctx context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	cacheKey := fmt.Sprintf("account:%s", email)

	var cached *models.Account
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read account cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found && cached != nil {
		return cached, nil
	}

	acc, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, acc, accountCacheTTL); err != nil {
		s.log.Warn("failed to cache account", slog.String("key", cacheKey), sl.Err(err))
	}
	return acc, nil
}

// GrantLifetime выдаёт пожизненный доступ к перечисленным приложениям,
// создавая аккаунт при отсутствии. Идемпотентна по каждому приложению.
func (s *AccountService) GrantLifetime(ctx context.Context, email string, apps []models.AppName) (*models.Account, bool, error) {
	email = models.NormalizeEmail(email)
	if len(apps) == 0 {
		apps = models.AllApps()
	}

	acc, created, err := s.repo.GrantLifetime(ctx, email, apps)
	if err != nil {
		return nil, false, err
	}

	s.appendAuditEvent(ctx, models.SubscriptionEvent{
		UserUID:            acc.UID,
		Email:              email,
		EventType:          models.EventLifetimeGranted,
		EventData:          map[string]any{"apps": apps, "created": created},
		SubscriptionStatus: acc.SubscriptionStatus,
	})
	s.invalidateAccount(email)

	s.log.Info("lifetime access granted", slog.String("email", email), slog.Any("apps", apps))
	return acc, created, nil
}

// SubscriptionUpdateResult итог авторитетного обновления подписки.
// Sync заполняется, когда обновление изменяет набор приложений.
type SubscriptionUpdateResult struct {
	Account *models.Account
	Sync    *entitlement.SyncResult
}

// UpdateSubscription применяет авторитетное обновление подписки от
// биллинга. Если обновление несёт новый набор приложений, следом
// запускается синхронизация доступов против прежнего набора.
func (s *AccountService) UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*SubscriptionUpdateResult, error) {
	upd.Email = models.NormalizeEmail(upd.Email)

	previous, err := s.repo.GetAccountByEmail(ctx, upd.Email)
	if err != nil {
		return nil, err
	}

	acc, err := s.repo.UpdateSubscription(ctx, upd)
	if err != nil {
		return nil, err
	}

	s.appendAuditEvent(ctx, models.SubscriptionEvent{
		UserUID:            acc.UID,
		Email:              upd.Email,
		EventType:          models.EventSubscriptionUpdated,
		EventData:          map[string]any{"previousStatus": previous.SubscriptionStatus, "newStatus": acc.SubscriptionStatus},
		SubscriptionStatus: acc.SubscriptionStatus,
	})
	s.invalidateAccount(upd.Email)

	result := &SubscriptionUpdateResult{Account: acc}
	if upd.EntitledApps != nil {
		grantStatus := status.Active
		if acc.SubscriptionStatus == status.Lifetime {
			grantStatus = status.Lifetime
		}
		syncResult, syncErr := s.syncer.SyncAppAccess(ctx, upd.Email, upd.EntitledApps, previous.EntitledApps, grantStatus)
		if syncErr != nil {
			return nil, syncErr
		}
		result.Sync = syncResult
	}
	return result, nil
}

// Events возвращает журнал аудита аккаунта, новые события первыми.
func (s *AccountService) Events(ctx context.Context, email string, limit int) ([]*models.SubscriptionEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListEventsByEmail(ctx, models.NormalizeEmail(email), limit)
}

func (s *AccountService) appendAuditEvent(ctx context.Context, event models.SubscriptionEvent) {
	event.Timestamp = time.Now().UnixMilli()
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		s.log.Error("failed to append audit event", sl.Err(err))
	}
	if err := s.bus.Publish(event); err != nil {
		s.log.Warn("failed to publish audit event", sl.Err(err))
	}
}

func (s *AccountService) invalidateAccount(email string) {
	cacheKey := fmt.Sprintf("account:%s", email)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate account cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
