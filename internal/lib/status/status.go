// Package status определяет перечень статусов подписки и их приоритеты.
// Приоритеты задают правило "вверх и только вверх" при слиянии записей
// из нескольких приложений: слияние никогда не понижает статус.
package status

// Статусы подписки единого аккаунта.
const (
	Trial      = "trial"
	Active     = "active"
	Lifetime   = "lifetime"
	Canceled   = "canceled"
	PastDue    = "past_due"
	Incomplete = "incomplete"
	Expired    = "expired"
)

// ranks приоритеты статусов, больший выигрывает при слиянии.
var ranks = map[string]int{
	Lifetime:   5,
	Active:     4,
	Trial:      3,
	PastDue:    2,
	Canceled:   1,
	Incomplete: 0,
	Expired:    -1,
}

// Rank возвращает приоритет статуса. Неизвестный или пустой статус
// трактуется как trial.
func Rank(s string) int {
	if r, ok := ranks[s]; ok {
		return r
	}
	return ranks[Trial]
}

// Known проверяет, что статус входит в перечень допустимых.
func Known(s string) bool {
	_, ok := ranks[s]
	return ok
}

// Normalize возвращает сам статус либо trial для неизвестного значения.
func Normalize(s string) string {
	if Known(s) {
		return s
	}
	return Trial
}

// Higher истинно, если a имеет строго больший приоритет, чем b.
func Higher(a, b string) bool {
	return Rank(a) > Rank(b)
}

// All возвращает перечень допустимых статусов.
func All() []string {
	return []string{Trial, Active, Lifetime, Canceled, PastDue, Incomplete, Expired}
}
