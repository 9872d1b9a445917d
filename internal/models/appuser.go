package models

// AppUserRecord каноническая форма записи пользователя одного из
// внешних приложений. Запись принадлежит приложению-источнику и здесь
// только читается. Разнобой имён полей источников (trialExpiresAt против
// trialEndsAt и т.п.) устраняется адаптером в пакете appclient — логика
// слияния видит только эту форму.
type AppUserRecord struct {
	App                  AppName // Приложение-источник записи
	Email                string  // Нормализованный email
	Name                 string  // Имя пользователя, если источник его хранит
	SubscriptionStatus   string  // Статус подписки в приложении-источнике
	StripeCustomerID     string
	StripeSubscriptionID string
	TrialExpiresAt       *int64 // Окончание пробного периода, мс epoch
	SubscriptionEndsAt   *int64 // Оплаченная дата окончания, мс epoch
	CouponCode           string // Погашенный купон, если был
}

// AppError ошибка операции по одному приложению. Используется в ответах
// синхронизатора и в отчёте миграции: отказ одного приложения не
// останавливает остальные, но всегда фиксируется.
type AppError struct {
	App     AppName `json:"app"`
	Message string  `json:"message"`
}
