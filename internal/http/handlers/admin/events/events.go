// Package events реализует HTTP-обработчик чтения журнала событий аккаунта.
//
// Handler извлекает email и необязательный лимит из query-параметров и возвращает
// последние события подписки пользователя в обратном хронологическом порядке.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
)

// Handler обрабатывает запросы журнала событий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс чтения событий аккаунта.
type Service interface {
	Events(ctx context.Context, email string, limit int) ([]*models.SubscriptionEvent, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить журнал событий аккаунта
// @Description Возвращает последние события подписки пользователя, новые первыми.
// @Tags Admin
// @Produce  json
// @Param email query string true "Email пользователя"
// @Param limit query int false "Максимальное число событий (по умолчанию 50, не более 100)"
// @Success 200 {object} map[string]any "Список событий"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры запроса"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении событий"
// @Security AdminKey
// @Router /events [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.events"
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

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			log.Error("failed to decode limit from query", slog.String("limit", raw))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid limit"))
			return
		}
		limit = parsed
	}

	events, err := h.service.Events(r.Context(), email, limit)
	if err != nil {
		log.Error("failed to read events", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read events"))
		return
	}

	log.Info("events read", slog.String("email", email), slog.Int("count", len(events)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"events": events,
	}))
}
