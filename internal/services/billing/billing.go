// Package services реализует смену набора приложений живой подписки:
// пересчёт ценового тарифа (1/2/3 приложения, месяц или год), перевод
// подписки в биллинге на новый тариф и синхронизацию доступов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/safekidsapps/account-hub/internal/config"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
	entitlement "github.com/safekidsapps/account-hub/internal/services/entitlement"
)

// ErrNoSubscription возвращается для аккаунта без подписки в биллинге.
var ErrNoSubscription = errors.New("account has no billing subscription")

// ErrBadAppCount возвращается при наборе приложений вне диапазона 1..3.
var ErrBadAppCount = errors.New("app selection must contain from one to three apps")

// BillingProvider описывает операции биллинга.
type BillingProvider interface {
	// UpdateSubscriptionPrice переводит подписку на тариф priceID.
	UpdateSubscriptionPrice(subscriptionID, priceID string) error
}

// Repository определяет методы хранилища, нужные смене тарифа.
type Repository interface {
	// GetAccountByEmail возвращает аккаунт по email.
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// UpdateSubscription применяет обновление подписки аккаунта.
	UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*models.Account, error)
	// InsertEvent добавляет событие в журнал аудита.
	InsertEvent(ctx context.Context, event models.SubscriptionEvent) error
}

// Syncer приводит доступы приложений к новому набору.
type Syncer interface {
	SyncAppAccess(ctx context.Context, email string, newApps, previousApps []models.AppName, grantStatus string) (*entitlement.SyncResult, error)
}

// Publisher публикует события аудита во внешнюю шину.
type Publisher interface {
	Publish(message any) error
}

// BillingService реализует смену набора приложений подписки.
type BillingService struct {
	provider BillingProvider
	repo     Repository
	syncer   Syncer
	bus      Publisher
	prices   config.Stripe
	log      *slog.Logger
}

// NewBillingService создает новый экземпляр BillingService.
func NewBillingService(provider BillingProvider, repo Repository, syncer Syncer, bus Publisher, prices config.Stripe, log *slog.Logger) *BillingService {
	return &BillingService{
		provider: provider,
		repo:     repo,
		syncer:   syncer,
		bus:      bus,
		prices:   prices,
		log:      log,
	}
}

// UpdateApps меняет набор приложений подписки аккаунта.
//
// Сначала подписка в биллинге переводится на тариф, соответствующий
// количеству приложений и интервалу оплаты; отказ биллинга прерывает
// операцию целиком. Затем доступы приложений синхронизируются с новым
// набором: частичный отказ синхронизации не откатывает смену тарифа,
// а возвращается вызывающему списком ошибок по приложениям.
func (s *BillingService) UpdateApps(ctx context.Context, email string, newApps []models.AppName, isYearly bool) (*entitlement.SyncResult, error) {
	const op = "billing.UpdateApps"
	email = models.NormalizeEmail(email)
	log := s.log.With(slog.String("op", op), slog.String("email", email))

	// дедупликация и фиксированный порядок
	apps := models.DiffApps(newApps, nil)
	priceID := s.prices.PriceID(len(apps), isYearly)
	if priceID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrBadAppCount)
	}

	acc, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc.StripeSubscriptionID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSubscription)
	}

	if err := s.provider.UpdateSubscriptionPrice(acc.StripeSubscriptionID, priceID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("billing subscription moved to new price", slog.String("price_id", priceID),
		slog.Int("app_count", len(apps)), slog.Bool("yearly", isYearly))

	interval := "month"
	if isYearly {
		interval = "year"
	}
	if _, err := s.repo.UpdateSubscription(ctx, models.SubscriptionUpdate{
		Email:              email,
		SubscriptionStatus: acc.SubscriptionStatus,
		BillingInterval:    &interval,
		EntitledApps:       apps,
	}); err != nil {
		return nil, err
	}

	grantStatus := status.Active
	if acc.SubscriptionStatus == status.Lifetime {
		grantStatus = status.Lifetime
	}
	result, err := s.syncer.SyncAppAccess(ctx, email, apps, acc.EntitledApps, grantStatus)
	if err != nil {
		return result, err
	}

	event := models.SubscriptionEvent{
		UserUID:   acc.UID,
		Email:     email,
		EventType: models.EventAppsUpdated,
		EventData: map[string]any{
			"newApps":  apps,
			"isYearly": isYearly,
			"priceId":  priceID,
			"granted":  result.Granted,
			"revoked":  result.Revoked,
			"errors":   result.Errors,
		},
		SubscriptionStatus: acc.SubscriptionStatus,
		Timestamp:          time.Now().UnixMilli(),
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		log.Error("failed to append audit event", sl.Err(err))
	}
	if err := s.bus.Publish(event); err != nil {
		log.Warn("failed to publish audit event", sl.Err(err))
	}

	return result, nil
}
