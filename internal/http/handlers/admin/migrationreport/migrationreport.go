// Package migrationreport реализует HTTP-обработчик получения отчета
// о последнем прогоне миграции пользователей.
package migrationreport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// Handler обрабатывает запросы отчета о миграции.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения последнего отчета о миграции.
type Service interface {
	LastReport(ctx context.Context) (*models.MigrationReport, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить отчет о последней миграции
// @Description Возвращает отчет последнего прогона миграции, включая счетчики и ошибки по пользователям.
// @Tags Admin
// @Produce  json
// @Success 200 {object} models.MigrationReport "Отчет о последнем прогоне"
// @Failure 404 {object} response.ErrorResponse "Миграция еще не запускалась"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении отчета"
// @Security AdminKey
// @Router /migrationReport [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.migrationreport"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.LastReport(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoMigrationRuns) {
			log.Info("no migration runs recorded yet")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("no migration runs recorded"))
			return
		}
		log.Error("failed to read migration report", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read migration report"))
		return
	}

	log.Info("migration report read", slog.String("run_id", report.RunID))
	render.JSON(w, r, response.OKWithData(report))
}
