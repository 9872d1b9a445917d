package updatesubscription

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

	"github.com/safekidsapps/account-hub/internal/models"
	accountservice "github.com/safekidsapps/account-hub/internal/services/account"
	entitlementservice "github.com/safekidsapps/account-hub/internal/services/entitlement"
	"github.com/safekidsapps/account-hub/internal/storage/repository"
)

// MockService реализует интерфейс updatesubscription.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) UpdateSubscription(ctx context.Context, upd models.SubscriptionUpdate) (*accountservice.SubscriptionUpdateResult, error) {
	args := m.Called(ctx, upd)
	if res := args.Get(0); res != nil {
		return res.(*accountservice.SubscriptionUpdateResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUpdateSubscriptionHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное обновление статуса",
			body: `{"email": "User@Example.com", "subscriptionStatus": "active"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
					return upd.Email == "user@example.com" && upd.SubscriptionStatus == "active" && upd.EntitledApps == nil
				})).Return(&accountservice.SubscriptionUpdateResult{
					Account: &models.Account{Email: "user@example.com", SubscriptionStatus: "active", EntitledApps: models.AllApps()},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"subscriptionStatus":"active"`,
		},
		{
			name: "обновление с набором приложений возвращает результат синхронизации",
			body: `{"email": "user@example.com", "subscriptionStatus": "active", "entitledApps": ["safetunes"]}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
					return len(upd.EntitledApps) == 1 && upd.EntitledApps[0] == models.AppSafeTunes
				})).Return(&accountservice.SubscriptionUpdateResult{
					Account: &models.Account{Email: "user@example.com", SubscriptionStatus: "active", EntitledApps: []models.AppName{models.AppSafeTunes}},
					Sync: &entitlementservice.SyncResult{
						Granted: []models.AppName{},
						Revoked: []models.AppName{models.AppSafeTube, models.AppSafeReads},
						Errors:  []models.AppError{},
					},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"revoked":["safetube","safereads"]`,
		},
		{
			name: "пустой массив приложений доходит до сервиса и отзывает все доступы",
			body: `{"email": "user@example.com", "subscriptionStatus": "canceled", "entitledApps": []}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
					return upd.EntitledApps != nil && len(upd.EntitledApps) == 0
				})).Return(&accountservice.SubscriptionUpdateResult{
					Account: &models.Account{Email: "user@example.com", SubscriptionStatus: "canceled", EntitledApps: []models.AppName{}},
					Sync: &entitlementservice.SyncResult{
						Granted: []models.AppName{},
						Revoked: []models.AppName{models.AppSafeTunes, models.AppSafeTube, models.AppSafeReads},
						Errors:  []models.AppError{},
					},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"revoked":["safetunes","safetube","safereads"]`,
		},
		{
			name: "отказ синхронизации во всех приложениях — 500 со списком ошибок",
			body: `{"email": "user@example.com", "subscriptionStatus": "active", "entitledApps": ["safetunes"]}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.AnythingOfType("models.SubscriptionUpdate")).
					Return(&accountservice.SubscriptionUpdateResult{
						Account: &models.Account{Email: "user@example.com", SubscriptionStatus: "active", EntitledApps: []models.AppName{models.AppSafeTunes}},
						Sync: &entitlementservice.SyncResult{
							Granted: []models.AppName{},
							Revoked: []models.AppName{},
							Errors: []models.AppError{
								{App: models.AppSafeTube, Message: "connection refused"},
								{App: models.AppSafeReads, Message: "connection refused"},
							},
						},
					}, nil)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"errors":[{"app":"safetube"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"email": `,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "недопустимый статус не проходит валидацию",
			body:           `{"email": "user@example.com", "subscriptionStatus": "platinum"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "отсутствующий email не проходит валидацию",
			body:           `{"subscriptionStatus": "active"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "аккаунт не найден",
			body: `{"email": "ghost@example.com", "subscriptionStatus": "active"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.AnythingOfType("models.SubscriptionUpdate")).
					Return(nil, repository.ErrAccountNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"account not found"`,
		},
		{
			name: "ошибка сервиса",
			body: `{"email": "user@example.com", "subscriptionStatus": "canceled"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateSubscription", mock.Anything, mock.AnythingOfType("models.SubscriptionUpdate")).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not update subscription"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/updateSubscription", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
