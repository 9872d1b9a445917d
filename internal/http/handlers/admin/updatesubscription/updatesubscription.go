// Package updatesubscription реализует HTTP-обработчик авторитетного обновления подписки.
//
// Handler принимает JSON-запрос с новым состоянием подписки (например, из вебхука биллинга),
// валидирует его, вызывает бизнес-логику обновления аккаунта и при наличии списка приложений
// запускает синхронизацию прав. Возвращает итоговое состояние аккаунта и результат синхронизации.
package updatesubscription

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/safekidsapps/account-hub/internal/http/response"
	"github.com/safekidsapps/account-hub/internal/lib/sl"
	"github.com/safekidsapps/account-hub/internal/models"
	accountservice "github.com/safekidsapps/account-hub/internal/services/account"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// Handler обрабатывает запросы обновления подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики аккаунтов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики обновления подписки.
type Service interface {
	UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*accountservice.SubscriptionUpdateResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Request тело запроса обновления подписки.
type Request struct {
	Email                string   `json:"email" validate:"required,email"`
	SubscriptionStatus   string   `json:"subscriptionStatus" validate:"required,oneof=trial active lifetime canceled past_due incomplete expired"`
	StripeCustomerID     *string  `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string  `json:"stripeSubscriptionId,omitempty"`
	SubscriptionEndsAt   *int64   `json:"subscriptionEndsAt,omitempty"`
	TrialExpiresAt       *int64   `json:"trialExpiresAt,omitempty"`
	BillingInterval      *string  `json:"billingInterval,omitempty" validate:"omitempty,oneof=month year"`
	EntitledApps         []string `json:"entitledApps,omitempty" validate:"omitempty,max=3,dive,oneof=safetunes safetube safereads"`
}

// ServeHTTP godoc
// @Summary Обновить подписку аккаунта
// @Description Применяет авторитетное обновление подписки к аккаунту. Если передан список приложений, запускает синхронизацию прав по всем приложениям.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Новое состояние подписки"
// @Success 200 {object} map[string]any "Итоговое состояние аккаунта и результат синхронизации"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при обновлении подписки"
// @Security AdminKey
// @Router /updateSubscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.updatesubscription"
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
	log.Info("request body decoded", slog.String("email", req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	upd := models.SubscriptionUpdate{
		Email:                models.NormalizeEmail(req.Email),
		SubscriptionStatus:   req.SubscriptionStatus,
		StripeCustomerID:     req.StripeCustomerID,
		StripeSubscriptionID: req.StripeSubscriptionID,
		SubscriptionEndsAt:   req.SubscriptionEndsAt,
		TrialExpiresAt:       req.TrialExpiresAt,
		BillingInterval:      req.BillingInterval,
	}
	if req.EntitledApps != nil {
		apps, _ := models.ParseApps(req.EntitledApps)
		if apps == nil {
			// пустой массив в теле — явный сигнал "ноль приложений",
			// он должен дойти до синхронизации и отозвать все доступы
			apps = []models.AppName{}
		}
		upd.EntitledApps = apps
	}

	result, err := h.service.UpdateSubscription(r.Context(), upd)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			log.Error("account not found", slog.String("email", upd.Email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("account not found"))
			return
		}
		log.Error("failed to update subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update subscription"))
		return
	}

	body := map[string]any{
		"email":              result.Account.Email,
		"subscriptionStatus": result.Account.SubscriptionStatus,
		"entitledApps":       result.Account.EntitledApps,
		"sync":               result.Sync,
	}

	if result.Sync != nil && result.Sync.AllFailed() {
		log.Error("app access sync failed in every app",
			slog.String("email", result.Account.Email),
			slog.Any("errors", result.Sync.Errors))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithData("app access sync failed in every app", body))
		return
	}

	log.Info("subscription updated",
		slog.String("email", result.Account.Email),
		slog.String("status", result.Account.SubscriptionStatus))
	render.JSON(w, r, response.OKWithData(body))
}
