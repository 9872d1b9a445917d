// Package sl содержит вспомогательные функции для работы с логгером slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Используется для единообразного вывода ошибок в логах:
//
//	log.Error("failed to sync app access", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// App возвращает slog.Attr с ключом "app" для логов пер-приложенческих
// операций синхронизации и миграции.
func App(name string) slog.Attr {
	return slog.Attr{
		Key:   "app",
		Value: slog.StringValue(name),
	}
}
