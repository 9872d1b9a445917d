// Package services реализует grandfather-миграцию: чтение пользователей
// трёх независимых приложений, группировку по email, слияние статусов и
// запись единых аккаунтов. Прогон — best-effort batch-задача: отказ
// одного источника или одного пользователя фиксируется в отчёте и не
// прерывает остальных, а повторный запуск безопасен, потому что
// обновления существующих записей идут только "вверх".
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safekidsapps/account-hub/internal/lib/merge"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/metrics"
	"github.com/safekidsapps/account-hub/internal/models"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// AppGateway описывает чтение списков пользователей приложений.
type AppGateway interface {
	// ListUsers возвращает канонические записи всех пользователей приложения.
	ListUsers(ctx context.Context, app models.AppName) ([]models.AppUserRecord, error)
}

// Repository определяет методы хранилища, нужные миграции.
type Repository interface {
	// CreateAccount вставляет новую запись аккаунта.
	CreateAccount(ctx context.Context, acc models.Account) (string, error)
	// UpgradeAccountFromMigration применяет кандидата по правилам "только вверх".
	UpgradeAccountFromMigration(ctx context.Context, candidate models.Account) (*models.Account, bool, error)
	// InsertEvent добавляет событие в журнал аудита.
	InsertEvent(ctx context.Context, event models.SubscriptionEvent) error
	// InsertMigrationRun сохраняет отчёт прогона.
	InsertMigrationRun(ctx context.Context, report models.MigrationReport) error
	// LastMigrationRun возвращает отчёт самого свежего прогона.
	LastMigrationRun(ctx context.Context) (*models.MigrationReport, error)
}

// Publisher публикует события аудита во внешнюю шину.
type Publisher interface {
	Publish(message any) error
}

// CacheInvalidator сбрасывает кешированную запись аккаунта.
type CacheInvalidator interface {
	Invalidate(key string) error
}

// MigrationService реализует grandfather-миграцию.
type MigrationService struct {
	gateway AppGateway
	repo    Repository
	cache   CacheInvalidator
	bus     Publisher
	log     *slog.Logger
}

// NewMigrationService создает новый экземпляр MigrationService.
func NewMigrationService(gateway AppGateway, repo Repository, cache CacheInvalidator, bus Publisher, log *slog.Logger) *MigrationService {
	return &MigrationService{
		gateway: gateway,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		log:     log,
	}
}

// Run выполняет прогон миграции. При dryRun запись не производится,
// действия только логируются, но отчёт считается полностью.
func (s *MigrationService) Run(ctx context.Context, dryRun bool) (*models.MigrationReport, error) {
	const op = "migration.Run"
	log := s.log.With(slog.String("op", op), slog.Bool("dry_run", dryRun))

	report := &models.MigrationReport{
		RunID:       uuid.New().String(),
		DryRun:      dryRun,
		StartedAt:   time.Now().UnixMilli(),
		FetchErrors: []models.AppError{},
		Errors:      []models.UserMigrationError{},
	}

	groups, order := s.fetchAndGroup(ctx, report, log)
	log.Info("fetched app user records", slog.Int("users", len(order)),
		slog.Int("fetch_errors", len(report.FetchErrors)))

	for _, email := range order {
		select {
		case <-ctx.Done():
			report.Errors = append(report.Errors, models.UserMigrationError{
				Email:   email,
				Message: ctx.Err().Error(),
			})
			report.Counters.Errors++
			continue
		default:
		}

		if err := s.migrateUser(ctx, email, groups[email], dryRun, report, log); err != nil {
			log.Error("failed to migrate user", slog.String("email", email), sl.Err(err))
			report.Errors = append(report.Errors, models.UserMigrationError{
				Email:   email,
				Message: err.Error(),
			})
			report.Counters.Errors++
		}
	}

	report.FinishedAt = time.Now().UnixMilli()
	if err := s.repo.InsertMigrationRun(ctx, *report); err != nil {
		log.Error("failed to store migration report", sl.Err(err))
	}

	log.Info("migration finished",
		slog.Int("migrated", report.Counters.Migrated),
		slog.Int("created", report.Counters.Created),
		slog.Int("updated", report.Counters.Updated),
		slog.Int("errors", report.Counters.Errors))
	return report, nil
}

// fetchAndGroup последовательно читает пользователей каждого приложения
// и группирует записи по нормализованному email. Отказ одного источника
// попадает в fetchErrors и не мешает остальным: частичные данные
// допустимы, миграция перезапускаема.
func (s *MigrationService) fetchAndGroup(ctx context.Context, report *models.MigrationReport, log *slog.Logger) (map[string][]models.AppUserRecord, []string) {
	groups := make(map[string][]models.AppUserRecord)
	var order []string

	for _, app := range models.AllApps() {
		records, err := s.gateway.ListUsers(ctx, app)
		if err != nil {
			log.Error("failed to fetch app users", sl.App(string(app)), sl.Err(err))
			report.FetchErrors = append(report.FetchErrors, models.AppError{
				App:     app,
				Message: err.Error(),
			})
			continue
		}
		log.Info("fetched app users", sl.App(string(app)), slog.Int("count", len(records)))
		for _, rec := range records {
			email := models.NormalizeEmail(rec.Email)
			if email == "" {
				continue
			}
			if _, seen := groups[email]; !seen {
				order = append(order, email)
			}
			rec.Email = email
			groups[email] = append(groups[email], rec)
		}
	}
	return groups, order
}

func (s *MigrationService) migrateUser(ctx context.Context, email string, records []models.AppUserRecord, dryRun bool, report *models.MigrationReport, log *slog.Logger) error {
	merged, err := merge.Statuses(records)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	candidate := models.Account{
		Email:              email,
		SubscriptionStatus: merged.Status,
		TrialExpiresAt:     merged.TrialExpiresAt,
		SubscriptionEndsAt: merged.SubscriptionEndsAt,
		// grandfather-оговорка: присутствие в любом приложении даёт
		// доступ ко всем трём
		EntitledApps:  models.AllApps(),
		Grandfathered: merged.Status == status.Active,
		MigratedAt:    &now,
	}
	if from, ok := merge.GrandfatheredFrom(records); ok {
		candidate.GrandfatheredFrom = &from
	}
	candidate.StripeCustomerID, candidate.StripeSubscriptionID = firstStripeRefs(records)

	sourceApps := make([]models.AppName, 0, len(records))
	for _, rec := range records {
		sourceApps = append(sourceApps, rec.App)
	}

	if dryRun {
		log.Info("dry run: would migrate user",
			slog.String("email", email),
			slog.String("status", merged.Status),
			slog.Bool("grandfathered", candidate.Grandfathered),
			slog.Any("source_apps", sourceApps))
		countMigrated(report, merged.Status)
		return nil
	}

	action := "updated"
	acc, _, err := s.repo.UpgradeAccountFromMigration(ctx, candidate)
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		uid, createErr := s.repo.CreateAccount(ctx, candidate)
		if createErr != nil {
			return createErr
		}
		candidate.UID = uid
		acc = &candidate
		action = "created"
		report.Counters.Created++
	case err != nil:
		return err
	default:
		report.Counters.Updated++
	}

	countMigrated(report, merged.Status)
	metrics.UsersMigrated.Inc()

	event := models.SubscriptionEvent{
		UserUID:   acc.UID,
		Email:     email,
		EventType: models.EventGrandfatherMigration,
		EventData: map[string]any{
			"action":        action,
			"sourceApps":    sourceApps,
			"mergedStatus":  merged.Status,
			"grandfathered": candidate.Grandfathered,
		},
		SubscriptionStatus: acc.SubscriptionStatus,
		Timestamp:          now,
	}
	if err := s.repo.InsertEvent(ctx, event); err != nil {
		log.Error("failed to append audit event", slog.String("email", email), sl.Err(err))
	}
	if err := s.bus.Publish(event); err != nil {
		log.Warn("failed to publish audit event", slog.String("email", email), sl.Err(err))
	}

	cacheKey := fmt.Sprintf("account:%s", email)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		log.Warn("failed to invalidate account cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return nil
}

func countMigrated(report *models.MigrationReport, mergedStatus string) {
	report.Counters.Migrated++
	switch mergedStatus {
	case status.Active:
		report.Counters.GrandfatheredActive++
	case status.Lifetime:
		report.Counters.GrandfatheredLifetime++
	case status.Trial:
		report.Counters.TrialUsers++
	}
}

// firstStripeRefs выбирает идентификаторы биллинга из первой записи
// в фиксированном порядке приложений, где они заполнены.
func firstStripeRefs(records []models.AppUserRecord) (customerID, subscriptionID string) {
	for _, app := range models.AllApps() {
		for _, rec := range records {
			if rec.App != app {
				continue
			}
			if customerID == "" && rec.StripeCustomerID != "" {
				customerID = rec.StripeCustomerID
			}
			if subscriptionID == "" && rec.StripeSubscriptionID != "" {
				subscriptionID = rec.StripeSubscriptionID
			}
		}
	}
	return customerID, subscriptionID
}

// LastReport возвращает отчёт самого свежего прогона миграции.
func (s *MigrationService) LastReport(ctx context.Context) (*models.MigrationReport, error) {
	return s.repo.LastMigrationRun(ctx)
}
