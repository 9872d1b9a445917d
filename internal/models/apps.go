// Package models содержит доменные структуры единого аккаунта:
// запись аккаунта, записи пользователей внешних приложений,
// события аудита и отчёт миграции.
package models

import "strings"

// AppName идентификатор приложения семейства.
type AppName string

// Приложения семейства. Порядок в AllApps фиксирован и используется
// как детерминированный порядок обхода при миграции.
const (
	AppSafeTunes AppName = "safetunes"
	AppSafeTube  AppName = "safetube"
	AppSafeReads AppName = "safereads"
)

// AllApps возвращает все приложения семейства в фиксированном порядке.
func AllApps() []AppName {
	return []AppName{AppSafeTunes, AppSafeTube, AppSafeReads}
}

// ValidApp проверяет, что имя приложения входит в известное множество.
func ValidApp(name AppName) bool {
	switch name {
	case AppSafeTunes, AppSafeTube, AppSafeReads:
		return true
	}
	return false
}

// ParseApps разбирает список имён приложений, отбрасывая пустые элементы.
// Неизвестное имя — ошибка вызывающей стороны, поэтому возвращается false.
func ParseApps(names []string) ([]AppName, bool) {
	var apps []AppName
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		app := AppName(n)
		if !ValidApp(app) {
			return nil, false
		}
		apps = append(apps, app)
	}
	return apps, true
}

// ContainsApp проверяет вхождение приложения в список.
func ContainsApp(apps []AppName, app AppName) bool {
	for _, a := range apps {
		if a == app {
			return true
		}
	}
	return false
}

// DiffApps возвращает элементы list, отсутствующие в other,
// в фиксированном порядке AllApps.
func DiffApps(list, other []AppName) []AppName {
	var diff []AppName
	for _, app := range AllApps() {
		if ContainsApp(list, app) && !ContainsApp(other, app) {
			diff = append(diff, app)
		}
	}
	return diff
}

// NormalizeEmail приводит email к каноническому виду:
// обрезанные пробелы и нижний регистр. Email — ключ идентичности
// аккаунта во всех приложениях.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
