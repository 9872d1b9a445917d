// Package verify реализует HTTP-обработчик проверки доступа пользователя к приложению.
//
// Handler извлекает email и имя приложения из query-параметров, вызывает бизнес-логику
// вычисления решения о доступе и возвращает решение в JSON-формате.
//
// Обработчик всегда отвечает статусом 200 на корректный запрос: отсутствие аккаунта
// или прав — это отрицательное решение, а не ошибка сервера.
package verify

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

// Handler обрабатывает запросы проверки доступа к приложению.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики вычисления решения о доступе
}

// Service описывает интерфейс бизнес-логики проверки доступа.
type Service interface {
	VerifyAppAccess(ctx context.Context, email string, app models.AppName) (*models.AccessDecision, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверить доступ пользователя к приложению
// @Description Вычисляет решение о доступе по email и имени приложения. Отсутствие аккаунта возвращается как отрицательное решение с кодом 200.
// @Tags Access
// @Produce  json
// @Param email query string true "Email пользователя"
// @Param app query string true "Имя приложения (safetunes, safetube, safereads)"
// @Success 200 {object} models.AccessDecision "Решение о доступе"
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры запроса"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при проверке доступа"
// @Security AdminKey
// @Router /verifyAppAccess [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.verify"
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

	app := models.AppName(r.URL.Query().Get("app"))
	if !models.ValidApp(app) {
		log.Error("unknown app in query", slog.String("app", string(app)))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown app"))
		return
	}

	decision, err := h.service.VerifyAppAccess(r.Context(), email, app)
	if err != nil {
		log.Error("failed to verify app access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not verify app access"))
		return
	}

	log.Info("access decision made",
		slog.String("email", email),
		sl.App(string(app)),
		slog.Bool("has_access", decision.HasAccess),
		slog.String("reason", decision.Reason))
	// Приложения-потребители ожидают решение без обертки-конверта.
	render.JSON(w, r, decision)
}
