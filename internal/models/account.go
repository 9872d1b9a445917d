package models

// Account представляет единую запись аккаунта — цель записей миграции
// и синхронизации и источник истины для проверки доступа каждого приложения.
// Ровно одна запись на нормализованный email. Все отметки времени —
// миллисекунды epoch.
type Account struct {
	UID                  string           // Уникальный идентификатор аккаунта
	Email                string           // Нормализованный email, ключ идентичности
	SubscriptionStatus   string           // Текущий статус подписки (см. lib/status)
	EntitledApps         []AppName        // Приложения, к которым аккаунт имеет доступ
	Grandfathered        bool             // Аккаунт мигрировал с legacy-тарифа
	GrandfatheredRate    *float64         // Legacy-цена, если сохранена
	GrandfatheredFrom    *AppName         // Приложение-источник legacy-тарифа
	StripeCustomerID     string           // Идентификатор клиента в биллинге
	StripeSubscriptionID string           // Идентификатор подписки в биллинге
	TrialExpiresAt       *int64           // Окончание пробного периода, только при статусе trial
	SubscriptionEndsAt   *int64           // Оплаченная дата окончания подписки
	BillingInterval      string           // month или year
	OnboardingCompleted  map[AppName]bool // Пройден ли онбординг в каждом приложении
	CreatedAt            int64            // Момент создания записи
	MigratedAt           *int64           // Момент последней миграции, если была
}

// AccessDecision результат проверки доступа приложения к аккаунту.
type AccessDecision struct {
	HasAccess           bool   `json:"hasAccess"`
	Reason              string `json:"reason"`
	SubscriptionStatus  string `json:"subscriptionStatus"`
	TrialExpiresAt      *int64 `json:"trialExpiresAt,omitempty"`
	UserID              string `json:"userId,omitempty"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

// SubscriptionUpdate авторитетное внешнее обновление подписки,
// например из вебхука биллинга. Nil-поля не трогают текущие значения;
// статус, в отличие от миграции, перезаписывается любым допустимым.
type SubscriptionUpdate struct {
	Email                string
	SubscriptionStatus   string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEndsAt   *int64
	TrialExpiresAt       *int64
	BillingInterval      *string
	EntitledApps         []AppName
}

// Причины решения по доступу.
const (
	ReasonNoAccount            = "no_account"
	ReasonNotEntitled          = "not_entitled"
	ReasonTrialExpired         = "trial_expired"
	ReasonSubscriptionInactive = "subscription_inactive"
	ReasonActive               = "active"
	ReasonLifetime             = "lifetime"
	ReasonTrial                = "trial"
	ReasonPaidThrough          = "paid_through"
)
