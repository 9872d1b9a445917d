package updateapps

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/safekidsapps/account-hub/internal/http/middlewarectx"
	"github.com/safekidsapps/account-hub/internal/models"
	billingservice "github.com/safekidsapps/account-hub/internal/services/billing"
	entitlementservice "github.com/safekidsapps/account-hub/internal/services/entitlement"
)

// MockService реализует интерфейс updateapps.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) UpdateApps(ctx context.Context, email string, newApps []models.AppName, isYearly bool) (*entitlementservice.SyncResult, error) {
	args := m.Called(ctx, email, newApps, isYearly)
	if res := args.Get(0); res != nil {
		return res.(*entitlementservice.SyncResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUpdateAppsHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		email          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "успешная смена набора приложений",
			body:  `{"newApps": ["safetunes", "safereads"], "isYearly": true}`,
			email: "user@example.com",
			setupMock: func(m *MockService) {
				m.On("UpdateApps", mock.Anything, "user@example.com",
					[]models.AppName{models.AppSafeTunes, models.AppSafeReads}, true).
					Return(&entitlementservice.SyncResult{
						Granted: []models.AppName{models.AppSafeReads},
						Revoked: []models.AppName{models.AppSafeTube},
						Errors:  []models.AppError{},
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"granted":["safereads"]`,
		},
		{
			name:           "без email в контексте — 401",
			body:           `{"newApps": ["safetunes"]}`,
			email:          "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:           "пустой набор не проходит валидацию",
			body:           `{"newApps": []}`,
			email:          "user@example.com",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "неизвестное приложение не проходит валидацию",
			body:           `{"newApps": ["safegames"]}`,
			email:          "user@example.com",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:  "аккаунт без подписки в биллинге",
			body:  `{"newApps": ["safetunes"]}`,
			email: "user@example.com",
			setupMock: func(m *MockService) {
				m.On("UpdateApps", mock.Anything, "user@example.com",
					[]models.AppName{models.AppSafeTunes}, false).
					Return(nil, billingservice.ErrNoSubscription)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"no billing subscription"`,
		},
		{
			name:  "отказ синхронизации во всех приложениях — 500 со списком ошибок",
			body:  `{"newApps": ["safetunes"]}`,
			email: "user@example.com",
			setupMock: func(m *MockService) {
				m.On("UpdateApps", mock.Anything, "user@example.com",
					[]models.AppName{models.AppSafeTunes}, false).
					Return(&entitlementservice.SyncResult{
						Granted: []models.AppName{},
						Revoked: []models.AppName{},
						Errors: []models.AppError{
							{App: models.AppSafeTube, Message: "connection refused"},
							{App: models.AppSafeReads, Message: "connection refused"},
						},
					}, nil)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"errors":[{"app":"safetube"`,
		},
		{
			name:  "отказ биллинга",
			body:  `{"newApps": ["safetunes"]}`,
			email: "user@example.com",
			setupMock: func(m *MockService) {
				m.On("UpdateApps", mock.Anything, "user@example.com",
					[]models.AppName{models.AppSafeTunes}, false).
					Return(nil, errors.New("card declined"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not update apps"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscription/update-apps", strings.NewReader(tt.body))
			if tt.email != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Email, tt.email))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
