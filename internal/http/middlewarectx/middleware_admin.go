// Package middlewarectx содержит HTTP middleware сервиса: проверку
// админ-ключа, проверку сессионного JWT и ограничение частоты запросов.
//
// Проверка админ-ключа вынесена в одно место и выполняется на границе
// запроса; обработчики никогда не сравнивают ключ сами.
package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/safekidsapps/account-hub/internal/http/response"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// Email — ключ для email аккаунта в контексте.
const Email Key = "email"

// AdminKeyMiddleware возвращает middleware, допускающее запрос только
// при точном совпадении ключа из параметра key или заголовка x-admin-key
// с серверным секретом. Сравнение выполняется за постоянное время.
func AdminKeyMiddleware(adminKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminKeyMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			provided := r.URL.Query().Get("key")
			if provided == "" {
				provided = r.Header.Get("x-admin-key")
			}

			if adminKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
				log.Error("invalid or missing admin key", slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or missing admin key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
