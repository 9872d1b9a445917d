package middlewarectx

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminKeyMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		serverKey      string
		url            string
		headerKey      string
		expectedStatus int
		expectNext     bool
	}{
		{
			name:           "корректный ключ в query",
			serverKey:      "secret",
			url:            "/runMigration?key=secret",
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "корректный ключ в заголовке",
			serverKey:      "secret",
			url:            "/updateSubscription",
			headerKey:      "secret",
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "неверный ключ",
			serverKey:      "secret",
			url:            "/runMigration?key=wrong",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "ключ отсутствует",
			serverKey:      "secret",
			url:            "/runMigration",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "пустой серверный ключ отклоняет любой запрос",
			serverKey:      "",
			url:            "/runMigration?key=",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.headerKey != "" {
				req.Header.Set("x-admin-key", tt.headerKey)
			}
			w := httptest.NewRecorder()

			AdminKeyMiddleware(tt.serverKey, logger)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectNext, nextCalled)
		})
	}
}
