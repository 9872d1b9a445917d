package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safekidsapps/account-hub/internal/lib/merge"
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

const accountColumns = `uid, email, subscription_status, entitled_apps, grandfathered,
			      grandfathered_rate, grandfathered_from, stripe_customer_id, stripe_subscription_id,
			      trial_expires_at, subscription_ends_at, billing_interval, onboarding_completed,
			      created_at, migrated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc               models.Account
		entitledApps      []byte
		onboarding        []byte
		grandfatheredRate sql.NullFloat64
		grandfatheredFrom sql.NullString
		trialExpiresAt    sql.NullInt64
		subEndsAt         sql.NullInt64
		migratedAt        sql.NullInt64
	)
	if err := row.Scan(&acc.UID, &acc.Email, &acc.SubscriptionStatus, &entitledApps, &acc.Grandfathered,
		&grandfatheredRate, &grandfatheredFrom, &acc.StripeCustomerID, &acc.StripeSubscriptionID,
		&trialExpiresAt, &subEndsAt, &acc.BillingInterval, &onboarding,
		&acc.CreatedAt, &migratedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entitledApps, &acc.EntitledApps); err != nil {
		return nil, fmt.Errorf("decode entitled_apps: %w", err)
	}
	if err := json.Unmarshal(onboarding, &acc.OnboardingCompleted); err != nil {
		return nil, fmt.Errorf("decode onboarding_completed: %w", err)
	}

	if grandfatheredRate.Valid {
		acc.GrandfatheredRate = &grandfatheredRate.Float64
	}
	if grandfatheredFrom.Valid {
		from := models.AppName(grandfatheredFrom.String)
		acc.GrandfatheredFrom = &from
	}
	if trialExpiresAt.Valid {
		acc.TrialExpiresAt = &trialExpiresAt.Int64
	}
	if subEndsAt.Valid {
		acc.SubscriptionEndsAt = &subEndsAt.Int64
	}
	if migratedAt.Valid {
		acc.MigratedAt = &migratedAt.Int64
	}
	return &acc, nil
}

func accountArgs(acc *models.Account) ([]any, error) {
	entitledApps, err := json.Marshal(acc.EntitledApps)
	if err != nil {
		return nil, fmt.Errorf("encode entitled_apps: %w", err)
	}
	if acc.OnboardingCompleted == nil {
		acc.OnboardingCompleted = map[models.AppName]bool{}
	}
	onboarding, err := json.Marshal(acc.OnboardingCompleted)
	if err != nil {
		return nil, fmt.Errorf("encode onboarding_completed: %w", err)
	}

	var grandfatheredFrom *string
	if acc.GrandfatheredFrom != nil {
		s := string(*acc.GrandfatheredFrom)
		grandfatheredFrom = &s
	}
	return []any{
		acc.UID, acc.Email, acc.SubscriptionStatus, entitledApps, acc.Grandfathered,
		acc.GrandfatheredRate, grandfatheredFrom, acc.StripeCustomerID, acc.StripeSubscriptionID,
		acc.TrialExpiresAt, acc.SubscriptionEndsAt, acc.BillingInterval, onboarding,
		acc.CreatedAt, acc.MigratedAt,
	}, nil
}

// GetAccountByEmail возвращает аккаунт по нормализованному email.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + accountColumns + `
			  FROM accounts WHERE email = $1`
	acc, err := scanAccount(s.DB.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// CreateAccount вставляет новую запись аккаунта и возвращает её UID.
// Email уникален: попытка создать вторую запись на тот же email — ошибка.
func (s *Storage) CreateAccount(ctx context.Context, acc models.Account) (string, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if acc.UID == "" {
		acc.UID = uuid.New().String()
	}
	acc.Email = models.NormalizeEmail(acc.Email)
	if acc.CreatedAt == 0 {
		acc.CreatedAt = time.Now().UnixMilli()
	}

	args, err := accountArgs(&acc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO accounts (` + accountColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return acc.UID, nil
}

func (s *Storage) updateAccountTx(ctx context.Context, tx *sql.Tx, acc *models.Account) error {
	args, err := accountArgs(acc)
	if err != nil {
		return err
	}
	query := `UPDATE accounts
			  SET subscription_status = $3, entitled_apps = $4, grandfathered = $5,
			      grandfathered_rate = $6, grandfathered_from = $7, stripe_customer_id = $8,
			      stripe_subscription_id = $9, trial_expires_at = $10, subscription_ends_at = $11,
			      billing_interval = $12, onboarding_completed = $13, created_at = $14, migrated_at = $15
			  WHERE uid = $1 AND email = $2`
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *Storage) lockAccountByEmail(ctx context.Context, tx *sql.Tx, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
			  FROM accounts WHERE email = $1 FOR UPDATE`
	return scanAccount(tx.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

// UpgradeAccountFromMigration применяет к существующему аккаунту кандидата
// миграции по правилам "только вверх" (см. merge.UpgradeAccount) внутри
// транзакции с блокировкой строки: конкурентные прогоны на одном email
// не гоняются. Отсутствие аккаунта — ErrAccountNotFound.
func (s *Storage) UpgradeAccountFromMigration(ctx context.Context, candidate models.Account) (*models.Account, bool, error) {
	const op = "storage.UpgradeAccountFromMigration"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := s.lockAccountByEmail(ctx, tx, candidate.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	updated, changed := merge.UpgradeAccount(*existing, candidate)
	if !changed {
		return existing, false, nil
	}
	if err := s.updateAccountTx(ctx, tx, &updated); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &updated, true, nil
}

// UpdateSubscription применяет авторитетное внешнее обновление подписки.
// В отличие от миграции статус перезаписывается любым допустимым значением:
// живой биллинг — источник истины.
func (s *Storage) UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*models.Account, error) {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	acc, err := s.lockAccountByEmail(ctx, tx, upd.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc.SubscriptionStatus = upd.SubscriptionStatus
	if upd.StripeCustomerID != nil {
		acc.StripeCustomerID = *upd.StripeCustomerID
	}
	if upd.StripeSubscriptionID != nil {
		acc.StripeSubscriptionID = *upd.StripeSubscriptionID
	}
	if upd.SubscriptionEndsAt != nil {
		acc.SubscriptionEndsAt = upd.SubscriptionEndsAt
	}
	if upd.TrialExpiresAt != nil {
		acc.TrialExpiresAt = upd.TrialExpiresAt
	}
	if upd.BillingInterval != nil {
		acc.BillingInterval = *upd.BillingInterval
	}
	if upd.EntitledApps != nil {
		acc.EntitledApps = upd.EntitledApps
	}
	if acc.SubscriptionStatus != status.Trial {
		acc.TrialExpiresAt = nil
	}

	if err := s.updateAccountTx(ctx, tx, acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// GrantLifetime выдаёт пожизненный доступ к перечисленным приложениям.
// Отсутствующий аккаунт создаётся; существующий дополняется — операция
// идемпотентна по каждому приложению.
func (s *Storage) GrantLifetime(ctx context.Context, email string, apps []models.AppName) (*models.Account, bool, error) {
	const op = "storage.GrantLifetime"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	acc, err := s.lockAccountByEmail(ctx, tx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created := models.Account{
			UID:                uuid.New().String(),
			Email:              models.NormalizeEmail(email),
			SubscriptionStatus: status.Lifetime,
			EntitledApps:       apps,
			CreatedAt:          time.Now().UnixMilli(),
		}
		args, argErr := accountArgs(&created)
		if argErr != nil {
			return nil, false, fmt.Errorf("%s: %w", op, argErr)
		}
		query := `INSERT INTO accounts (` + accountColumns + `)
				  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return &created, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	acc.SubscriptionStatus = status.Lifetime
	acc.TrialExpiresAt = nil
	for _, app := range apps {
		if !models.ContainsApp(acc.EntitledApps, app) {
			acc.EntitledApps = append(acc.EntitledApps, app)
		}
	}
	if err := s.updateAccountTx(ctx, tx, acc); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return acc, false, nil
}

// UpdateEntitledApps записывает целевой набор приложений аккаунта.
func (s *Storage) UpdateEntitledApps(ctx context.Context, email string, apps []models.AppName) error {
	const op = "storage.UpdateEntitledApps"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	entitledApps, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.DB.ExecContext(ctx,
		`UPDATE accounts SET entitled_apps = $1 WHERE email = $2`,
		entitledApps, models.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
	}
	return nil
}
