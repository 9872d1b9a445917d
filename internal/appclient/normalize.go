package appclient

import (
	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

// RawAppUser запись пользователя в том виде, в котором её отдаёт
// админ-эндпоинт приложения. Схемы источников разошлись исторически:
// SafeTunes хранит trialExpiresAt и couponCode, SafeTube — trialEndsAt
// и redeemedCoupon, SafeReads — смесь. Адаптер сводит оба варианта
// каждого поля к одной канонической форме, изолируя логику слияния
// от дрейфа схем источников.
type RawAppUser struct {
	Email                string `json:"email"`
	Name                 string `json:"name,omitempty"`
	SubscriptionStatus   string `json:"subscriptionStatus"`
	StripeCustomerID     string `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty"`
	TrialExpiresAt       *int64 `json:"trialExpiresAt,omitempty"`
	TrialEndsAt          *int64 `json:"trialEndsAt,omitempty"`
	SubscriptionEndsAt   *int64 `json:"subscriptionEndsAt,omitempty"`
	CurrentPeriodEnd     *int64 `json:"currentPeriodEnd,omitempty"`
	CouponCode           string `json:"couponCode,omitempty"`
	RedeemedCoupon       string `json:"redeemedCoupon,omitempty"`
}

// Normalize приводит сырую запись к канонической форме.
// Из пары вариантов даты окончания пробного периода берётся меньшая,
// из пары вариантов даты окончания подписки — первая заполненная;
// email нормализуется, неизвестный статус становится trial.
func (r RawAppUser) Normalize(app models.AppName) models.AppUserRecord {
	rec := models.AppUserRecord{
		App:                  app,
		Email:                models.NormalizeEmail(r.Email),
		Name:                 r.Name,
		SubscriptionStatus:   status.Normalize(r.SubscriptionStatus),
		StripeCustomerID:     r.StripeCustomerID,
		StripeSubscriptionID: r.StripeSubscriptionID,
	}

	rec.TrialExpiresAt = minMillis(r.TrialExpiresAt, r.TrialEndsAt)
	rec.SubscriptionEndsAt = firstMillis(r.SubscriptionEndsAt, r.CurrentPeriodEnd)

	rec.CouponCode = r.CouponCode
	if rec.CouponCode == "" {
		rec.CouponCode = r.RedeemedCoupon
	}

	return rec
}

func firstMillis(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			val := *v
			return &val
		}
	}
	return nil
}

// minMillis возвращает минимум из заполненных значений.
func minMillis(values ...*int64) *int64 {
	var min *int64
	for _, v := range values {
		if v == nil {
			continue
		}
		if min == nil || *v < *min {
			val := *v
			min = &val
		}
	}
	return min
}
