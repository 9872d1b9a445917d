package merge

import (
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

// UpgradeAccount применяет к существующему аккаунту кандидата миграции
// по правилам "только вверх":
//
//   - статус перезаписывается только строго более приоритетным;
//   - grandfathered выставляется только false -> true;
//   - идентификаторы биллинга заполняются только при пустых текущих,
//     существующие никогда не затираются;
//   - entitledApps дополняется до полного набора приложений.
//
// Возвращает обновлённую копию и признак, изменилось ли хоть одно поле.
// Функция чистая: повторное применение того же кандидата ничего не меняет,
// поэтому перезапуск миграции безопасен.
func UpgradeAccount(existing, candidate models.Account) (models.Account, bool) {
	updated := existing
	changed := false

	if status.Higher(candidate.SubscriptionStatus, existing.SubscriptionStatus) {
		updated.SubscriptionStatus = candidate.SubscriptionStatus
		updated.TrialExpiresAt = candidate.TrialExpiresAt
		updated.SubscriptionEndsAt = candidate.SubscriptionEndsAt
		changed = true
	}

	if candidate.Grandfathered && !existing.Grandfathered {
		updated.Grandfathered = true
		updated.GrandfatheredFrom = candidate.GrandfatheredFrom
		updated.GrandfatheredRate = candidate.GrandfatheredRate
		changed = true
	}

	if existing.StripeCustomerID == "" && candidate.StripeCustomerID != "" {
		updated.StripeCustomerID = candidate.StripeCustomerID
		changed = true
	}
	if existing.StripeSubscriptionID == "" && candidate.StripeSubscriptionID != "" {
		updated.StripeSubscriptionID = candidate.StripeSubscriptionID
		changed = true
	}

	for _, app := range models.AllApps() {
		if !models.ContainsApp(updated.EntitledApps, app) {
			updated.EntitledApps = append(updated.EntitledApps, app)
			changed = true
		}
	}

	if candidate.MigratedAt != nil {
		updated.MigratedAt = candidate.MigratedAt
	}

	return updated, changed
}
