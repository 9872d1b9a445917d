// Package runmigration реализует HTTP-обработчик запуска миграции пользователей
// из приложений в центральное хранилище аккаунтов.
//
// Handler читает флаг dryRun из query-параметров, запускает прогон миграции
// и возвращает полный отчет в JSON-формате. Миграция идемпотентна, поэтому
// повторный запуск безопасен.
package runmigration

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
)

// Handler обрабатывает запросы запуска миграции.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики миграции
}

// Service описывает интерфейс бизнес-логики прогона миграции.
type Service interface {
	Run(ctx context.Context, dryRun bool) (*models.MigrationReport, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запустить миграцию пользователей
// @Description Собирает пользователей всех приложений, объединяет статусы и записывает аккаунты в центральное хранилище. С dryRun=true изменения не применяются.
// @Tags Admin
// @Produce  json
// @Param dryRun query bool false "Прогон без записи изменений"
// @Success 200 {object} models.MigrationReport "Отчет о прогоне миграции"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при запуске миграции"
// @Security AdminKey
// @Router /runMigration [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.runmigration"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dryRun := r.URL.Query().Get("dryRun") == "true"

	report, err := h.service.Run(r.Context(), dryRun)
	if err != nil {
		log.Error("failed to run migration", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not run migration"))
		return
	}

	log.Info("migration finished",
		slog.String("run_id", report.RunID),
		slog.Bool("dry_run", report.DryRun),
		slog.Int("migrated", report.Counters.Migrated),
		slog.Int("errors", report.Counters.Errors))
	render.JSON(w, r, response.OKWithData(report))
}
