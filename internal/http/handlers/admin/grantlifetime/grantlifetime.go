// Package grantlifetime реализует HTTP-обработчик выдачи пожизненного доступа.
//
// Handler извлекает email и необязательный список приложений из query-параметров,
// вызывает бизнес-логику выдачи lifetime-статуса и возвращает итоговое состояние
// аккаунта в JSON-формате. Отсутствующий аккаунт создается.
package grantlifetime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
)

// Handler обрабатывает запросы выдачи пожизненного доступа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики аккаунтов
}

// Service описывает интерфейс бизнес-логики выдачи lifetime-доступа.
type Service interface {
	GrantLifetime(ctx context.Context, email string, apps []models.AppName) (*models.Account, bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Выдать пожизненный доступ
// @Description Устанавливает аккаунту статус lifetime и перечисленные приложения. Без параметра apps выдаются все три приложения. Отсутствующий аккаунт создается.
// @Tags Admin
// @Produce  json
// @Param email query string true "Email пользователя"
// @Param apps query string false "Список приложений через запятую"
// @Success 200 {object} map[string]any "Итоговое состояние аккаунта"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры запроса"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при выдаче доступа"
// @Security AdminKey
// @Router /grantLifetime [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.grantlifetime"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email := models.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		log.Error("missing email query parameter")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("email is required"))
		return
	}

	var apps []models.AppName
	if raw := r.URL.Query().Get("apps"); raw != "" {
		parsed, ok := models.ParseApps(strings.Split(raw, ","))
		if !ok {
			log.Error("unknown app in apps query", slog.String("apps", raw))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown app"))
			return
		}
		apps = parsed
	}

	account, created, err := h.service.GrantLifetime(r.Context(), email, apps)
	if err != nil {
		log.Error("failed to grant lifetime access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not grant lifetime access"))
		return
	}

	log.Info("lifetime access granted",
		slog.String("email", email),
		slog.Bool("created", created),
		slog.Any("entitled_apps", account.EntitledApps))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"email":              account.Email,
		"subscriptionStatus": account.SubscriptionStatus,
		"entitledApps":       account.EntitledApps,
		"created":            created,
	}))
}
