package models

// UserMigrationError ошибка обработки одного пользователя в ходе миграции.
type UserMigrationError struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MigrationCounters агрегированные счётчики одного прогона миграции.
type MigrationCounters struct {
	Migrated              int `json:"migrated"`
	Created               int `json:"created"`
	Updated               int `json:"updated"`
	GrandfatheredActive   int `json:"grandfatheredActive"`
	GrandfatheredLifetime int `json:"grandfatheredLifetime"`
	TrialUsers            int `json:"trialUsers"`
	Errors                int `json:"errors"`
}

// MigrationReport итог одного прогона Grandfather-миграции.
// FetchErrors — отказы загрузки списков пользователей по приложениям,
// Errors — ошибки обработки отдельных пользователей. И те и другие
// не прерывают прогон: миграция — batch-задача с best-effort семантикой,
// безопасная для повторного запуска.
type MigrationReport struct {
	RunID       string               `json:"runId"`
	DryRun      bool                 `json:"dryRun"`
	StartedAt   int64                `json:"startedAt"`
	FinishedAt  int64                `json:"finishedAt"`
	Counters    MigrationCounters    `json:"counters"`
	FetchErrors []AppError           `json:"fetchErrors"`
	Errors      []UserMigrationError `json:"errors"`
}
