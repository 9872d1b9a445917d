// Package updateapps реализует HTTP-обработчик смены набора приложений подписки.
//
// Handler принимает JSON-запрос с новым набором приложений, валидирует его,
// извлекает email пользователя из контекста сессии, вызывает бизнес-логику
// биллинга и возвращает результат синхронизации прав в JSON-формате.
package updateapps

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/safekidsapps/account-hub/internal/http/middlewarectx"
	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
	billingservice "github.com/safekidsapps/account-hub/internal/services/billing"
	entitlementservice "github.com/safekidsapps/account-hub/internal/services/entitlement"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// Handler обрабатывает запросы смены набора приложений.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики биллинга
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики смены набора приложений.
type Service interface {
	UpdateApps(ctx context.Context, email string, newApps []models.AppName, isYearly bool) (*entitlementservice.SyncResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Request тело запроса смены набора приложений.
type Request struct {
	NewApps  []string `json:"newApps" validate:"required,min=1,max=3,dive,oneof=safetunes safetube safereads"`
	IsYearly bool     `json:"isYearly"`
}

// ServeHTTP godoc
// @Summary Сменить набор приложений подписки
// @Description Переводит подписку текущего пользователя на тариф, соответствующий новому набору приложений, и синхронизирует права во всех приложениях.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body Request true "Новый набор приложений"
// @Success 200 {object} map[string]any "Результат синхронизации прав"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Аккаунт или подписка не найдены"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при смене набора приложений"
// @Security SessionToken
// @Router /subscription/update-apps [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.updateapps"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	email, ok := r.Context().Value(middlewarectx.Email).(string)
	if !ok || email == "" {
		log.Error("email not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	newApps, _ := models.ParseApps(req.NewApps)

	result, err := h.service.UpdateApps(r.Context(), email, newApps, req.IsYearly)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			log.Error("account not found", slog.String("email", email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
		case errors.Is(err, billingservice.ErrNoSubscription):
			log.Error("account has no billing subscription", slog.String("email", email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("no billing subscription"))
		case errors.Is(err, billingservice.ErrBadAppCount):
			log.Error("bad app selection", slog.Any("apps", req.NewApps))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("app selection must contain from one to three apps"))
		default:
			log.Error("failed to update apps", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update apps"))
		}
		return
	}

	if result.AllFailed() {
		log.Error("app access sync failed in every app",
			slog.String("email", email),
			slog.Any("errors", result.Errors))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithData("app access sync failed in every app", result))
		return
	}

	log.Info("apps updated",
		slog.String("email", email),
		slog.Any("granted", result.Granted),
		slog.Any("revoked", result.Revoked),
		slog.Int("errors", len(result.Errors)))
	render.JSON(w, r, response.OKWithData(result))
}
