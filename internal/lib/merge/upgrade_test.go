package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

func TestUpgradeAccount_СтатусПовышаетсяТолькоВверх(t *testing.T) {
	existing := models.Account{
		Email:              "user@example.com",
		SubscriptionStatus: status.Lifetime,
		EntitledApps:       models.AllApps(),
	}
	candidate := models.Account{
		Email:              "user@example.com",
		SubscriptionStatus: status.Active,
		EntitledApps:       models.AllApps(),
	}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.False(t, changed, "кандидат с более низким статусом ничего не меняет")
	assert.Equal(t, status.Lifetime, updated.SubscriptionStatus)
}

func TestUpgradeAccount_ПовышениеСтатусаПереноситДаты(t *testing.T) {
	ends := int64(9000)
	existing := models.Account{
		SubscriptionStatus: status.Trial,
		TrialExpiresAt:     ptrInt64(2000),
		EntitledApps:       models.AllApps(),
	}
	candidate := models.Account{
		SubscriptionStatus: status.Active,
		SubscriptionEndsAt: &ends,
		EntitledApps:       models.AllApps(),
	}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.True(t, changed)
	assert.Equal(t, status.Active, updated.SubscriptionStatus)
	assert.Equal(t, &ends, updated.SubscriptionEndsAt)
	assert.Nil(t, updated.TrialExpiresAt)
}

func TestUpgradeAccount_GrandfatheredТолькоВключается(t *testing.T) {
	from := models.AppSafeTunes
	rate := 4.99

	existing := models.Account{SubscriptionStatus: status.Active, EntitledApps: models.AllApps()}
	candidate := models.Account{
		SubscriptionStatus: status.Active,
		Grandfathered:      true,
		GrandfatheredFrom:  &from,
		GrandfatheredRate:  &rate,
		EntitledApps:       models.AllApps(),
	}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.True(t, changed)
	assert.True(t, updated.Grandfathered)
	assert.Equal(t, &from, updated.GrandfatheredFrom)

	// Обратного перехода true -> false не существует.
	reverted, changed := UpgradeAccount(updated, models.Account{SubscriptionStatus: status.Active, EntitledApps: models.AllApps()})
	assert.False(t, changed)
	assert.True(t, reverted.Grandfathered)
}

func TestUpgradeAccount_ИдентификаторыБиллингаНеЗатираются(t *testing.T) {
	existing := models.Account{
		SubscriptionStatus:   status.Active,
		StripeCustomerID:     "cus_old",
		StripeSubscriptionID: "sub_old",
		EntitledApps:         models.AllApps(),
	}
	candidate := models.Account{
		SubscriptionStatus:   status.Active,
		StripeCustomerID:     "cus_new",
		StripeSubscriptionID: "sub_new",
		EntitledApps:         models.AllApps(),
	}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.False(t, changed)
	assert.Equal(t, "cus_old", updated.StripeCustomerID)
	assert.Equal(t, "sub_old", updated.StripeSubscriptionID)
}

func TestUpgradeAccount_ПустыеИдентификаторыЗаполняются(t *testing.T) {
	existing := models.Account{SubscriptionStatus: status.Active, EntitledApps: models.AllApps()}
	candidate := models.Account{
		SubscriptionStatus:   status.Active,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		EntitledApps:         models.AllApps(),
	}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.True(t, changed)
	assert.Equal(t, "cus_1", updated.StripeCustomerID)
	assert.Equal(t, "sub_1", updated.StripeSubscriptionID)
}

func TestUpgradeAccount_НаборПриложенийДополняетсяДоПолного(t *testing.T) {
	existing := models.Account{
		SubscriptionStatus: status.Active,
		EntitledApps:       []models.AppName{models.AppSafeTube},
	}
	candidate := models.Account{SubscriptionStatus: status.Active, EntitledApps: models.AllApps()}

	updated, changed := UpgradeAccount(existing, candidate)
	assert.True(t, changed)
	for _, app := range models.AllApps() {
		assert.True(t, models.ContainsApp(updated.EntitledApps, app))
	}
}

func TestUpgradeAccount_ПовторноеПрименениеИдемпотентно(t *testing.T) {
	migratedAt := int64(123456)
	candidate := models.Account{
		SubscriptionStatus:   status.Active,
		Grandfathered:        true,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		EntitledApps:         models.AllApps(),
		MigratedAt:           &migratedAt,
	}

	first, changed := UpgradeAccount(models.Account{SubscriptionStatus: status.Trial}, candidate)
	assert.True(t, changed)

	second, changed := UpgradeAccount(first, candidate)
	assert.False(t, changed, "повторная миграция того же кандидата ничего не меняет")
	assert.Equal(t, first.SubscriptionStatus, second.SubscriptionStatus)
	assert.Equal(t, first.EntitledApps, second.EntitledApps)
}
