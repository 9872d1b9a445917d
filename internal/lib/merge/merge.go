// Package merge реализует чистую логику слияния записей пользователя
// из нескольких приложений в единый результат: лучший статус, самая
// ранняя дата окончания пробного периода и самая поздняя оплаченная дата.
// Пакет не имеет побочных эффектов и сетевых вызовов.
package merge

import (
	"errors"

	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

// ErrNoRecords возвращается при слиянии пустого списка записей.
// Вызывающая сторона обязана гарантировать хотя бы одну запись на группу.
var ErrNoRecords = errors.New("merge: no records to merge")

// Result результат слияния записей одной группы email.
type Result struct {
	Status             string
	TrialExpiresAt     *int64
	SubscriptionEndsAt *int64
}

// Statuses сливает записи одного пользователя из разных приложений.
//
// Статус выбирается по приоритету (см. status.Rank), при равном приоритете
// выигрывает более ранняя запись. Если итог — trial, берётся минимальная
// из дат окончания пробного периода: пользователь не должен получить
// более длинный trial лишь потому, что регистрировался в нескольких
// приложениях в разное время. Если итог — active или canceled, берётся
// максимальная из оплаченных дат: любая действующая подписка даёт доступ
// ко всему набору.
func Statuses(records []models.AppUserRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	best := status.Normalize(records[0].SubscriptionStatus)
	for _, rec := range records[1:] {
		if s := status.Normalize(rec.SubscriptionStatus); status.Higher(s, best) {
			best = s
		}
	}

	result := &Result{Status: best}

	switch best {
	case status.Trial:
		for _, rec := range records {
			if rec.TrialExpiresAt == nil {
				continue
			}
			if result.TrialExpiresAt == nil || *rec.TrialExpiresAt < *result.TrialExpiresAt {
				v := *rec.TrialExpiresAt
				result.TrialExpiresAt = &v
			}
		}
	case status.Active, status.Canceled:
		for _, rec := range records {
			if rec.SubscriptionEndsAt == nil {
				continue
			}
			if result.SubscriptionEndsAt == nil || *rec.SubscriptionEndsAt > *result.SubscriptionEndsAt {
				v := *rec.SubscriptionEndsAt
				result.SubscriptionEndsAt = &v
			}
		}
	}

	return result, nil
}

// GrandfatheredFrom возвращает приложение-источник legacy-тарифа:
// первое в фиксированном порядке AllApps приложение, где у пользователя
// одновременно статус active и идентификатор подписки в биллинге.
// Порядок фиксирован, поэтому выбор детерминирован; само приложение —
// презентационная метаданная, в решениях о доступе не участвует.
func GrandfatheredFrom(records []models.AppUserRecord) (models.AppName, bool) {
	for _, app := range models.AllApps() {
		for _, rec := range records {
			if rec.App == app && rec.SubscriptionStatus == status.Active && rec.StripeSubscriptionID != "" {
				return app, true
			}
		}
	}
	return "", false
}
