package models

// Типы событий аудита.
const (
	EventGrandfatherMigration = "grandfather_migration"
	EventEntitlementSync      = "entitlement_sync"
	EventSubscriptionUpdated  = "subscription_updated"
	EventLifetimeGranted      = "lifetime_granted"
	EventAppsUpdated          = "apps_updated"
)

// SubscriptionEvent запись журнала аудита. Журнал append-only:
// каждая мутация аккаунта создаёт ровно одно событие, события
// никогда не обновляются и не удаляются.
type SubscriptionEvent struct {
	ID                 string         `json:"id"`
	UserUID            string         `json:"userUid,omitempty"`
	Email              string         `json:"email"`
	EventType          string         `json:"eventType"`
	EventData          map[string]any `json:"eventData,omitempty"`
	SubscriptionStatus string         `json:"subscriptionStatus"`
	Timestamp          int64          `json:"timestamp"`
}
