package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safekidsapps/account-hub/internal/lib/status"
	"github.com/safekidsapps/account-hub/internal/models"
)

// MockGateway реализует интерфейс AppGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SetAccess(ctx context.Context, app models.AppName, email, subscriptionStatus string) error {
	args := m.Called(ctx, app, email, subscriptionStatus)
	return args.Error(0)
}

// MockRepository реализует интерфейс Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpdateEntitledApps(ctx context.Context, email string, apps []models.AppName) error {
	args := m.Called(ctx, email, apps)
	return args.Error(0)
}

func (m *MockRepository) InsertEvent(ctx context.Context, event models.SubscriptionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockCache реализует интерфейс CacheInvalidator
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// MockBus реализует интерфейс Publisher
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Publish(message any) error {
	args := m.Called(message)
	return args.Error(0)
}

func newTestSyncService(gateway *MockGateway, repo *MockRepository, cache *MockCache, bus *MockBus) *SyncService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewSyncService(gateway, repo, cache, bus, logger)
}

func TestSyncAppAccess_ВыдачаИОтзывПоРазнице(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	// было {safetunes, safetube}, стало {safetunes, safereads}:
	// выдача safereads, отзыв safetube, safetunes не трогается
	gateway.On("SetAccess", mock.Anything, models.AppSafeReads, "user@example.com", status.Active).Return(nil)
	gateway.On("SetAccess", mock.Anything, models.AppSafeTube, "user@example.com", status.Canceled).Return(nil)
	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "user@example.com",
		[]models.AppName{models.AppSafeTunes, models.AppSafeReads}).Return(nil)
	bus.On("Publish", mock.Anything).Return(nil)
	cache.On("Invalidate", "account:user@example.com").Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	result, err := service.SyncAppAccess(context.Background(), "User@Example.com",
		[]models.AppName{models.AppSafeTunes, models.AppSafeReads},
		[]models.AppName{models.AppSafeTunes, models.AppSafeTube},
		status.Active)

	require.NoError(t, err)
	assert.Equal(t, []models.AppName{models.AppSafeReads}, result.Granted)
	assert.Equal(t, []models.AppName{models.AppSafeTube}, result.Revoked)
	assert.Empty(t, result.Errors)

	gateway.AssertExpectations(t)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestSyncAppAccess_ОдинаковыеНаборыБезСетевыхВызовов(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "user@example.com",
		[]models.AppName{models.AppSafeTunes}).Return(nil)
	bus.On("Publish", mock.Anything).Return(nil)
	cache.On("Invalidate", "account:user@example.com").Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	result, err := service.SyncAppAccess(context.Background(), "user@example.com",
		[]models.AppName{models.AppSafeTunes},
		[]models.AppName{models.AppSafeTunes},
		status.Active)

	require.NoError(t, err)
	assert.Empty(t, result.Granted)
	assert.Empty(t, result.Revoked)
	gateway.AssertNotCalled(t, "SetAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAppAccess_ЧастичныйОтказНеБлокируетОстальные(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	gateway.On("SetAccess", mock.Anything, models.AppSafeTube, "user@example.com", status.Active).
		Return(errors.New("safetube is down"))
	gateway.On("SetAccess", mock.Anything, models.AppSafeReads, "user@example.com", status.Active).Return(nil)
	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "user@example.com",
		[]models.AppName{models.AppSafeTube, models.AppSafeReads}).Return(nil)
	bus.On("Publish", mock.Anything).Return(nil)
	cache.On("Invalidate", "account:user@example.com").Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	result, err := service.SyncAppAccess(context.Background(), "user@example.com",
		[]models.AppName{models.AppSafeTube, models.AppSafeReads},
		nil,
		status.Active)

	require.NoError(t, err)
	assert.Equal(t, []models.AppName{models.AppSafeReads}, result.Granted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.AppSafeTube, result.Errors[0].App)
	assert.Contains(t, result.Errors[0].Message, "safetube is down")

	// целевой набор записывается даже при частичном отказе
	repo.AssertExpectations(t)
}

func TestSyncAppAccess_LifetimeСтатусПередаетсяПриВыдаче(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	gateway.On("SetAccess", mock.Anything, models.AppSafeTunes, "vip@example.com", status.Lifetime).Return(nil)
	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "vip@example.com",
		[]models.AppName{models.AppSafeTunes}).Return(nil)
	bus.On("Publish", mock.Anything).Return(nil)
	cache.On("Invalidate", "account:vip@example.com").Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	_, err := service.SyncAppAccess(context.Background(), "vip@example.com",
		[]models.AppName{models.AppSafeTunes}, nil, status.Lifetime)

	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestSyncAppAccess_ОшибкаЗаписиХранилищаВозвращаетсяСРезультатом(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	gateway.On("SetAccess", mock.Anything, models.AppSafeTunes, "user@example.com", status.Active).Return(nil)
	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "user@example.com",
		[]models.AppName{models.AppSafeTunes}).Return(errors.New("db error"))
	bus.On("Publish", mock.Anything).Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	result, err := service.SyncAppAccess(context.Background(), "user@example.com",
		[]models.AppName{models.AppSafeTunes}, nil, status.Active)

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []models.AppName{models.AppSafeTunes}, result.Granted)
}

func TestSyncResult_AllFailed(t *testing.T) {
	tests := []struct {
		name     string
		result   SyncResult
		expected bool
	}{
		{
			name: "все вызовы отказали",
			result: SyncResult{
				Granted: []models.AppName{},
				Revoked: []models.AppName{},
				Errors: []models.AppError{
					{App: models.AppSafeTube, Message: "connection refused"},
					{App: models.AppSafeReads, Message: "connection refused"},
				},
			},
			expected: true,
		},
		{
			name: "частичный отказ — не полный",
			result: SyncResult{
				Granted: []models.AppName{models.AppSafeTunes},
				Revoked: []models.AppName{},
				Errors:  []models.AppError{{App: models.AppSafeTube, Message: "timeout"}},
			},
			expected: false,
		},
		{
			name: "пустая разница — менять было нечего",
			result: SyncResult{
				Granted: []models.AppName{},
				Revoked: []models.AppName{},
				Errors:  []models.AppError{},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.AllFailed())
		})
	}
}

func TestSyncAppAccess_СобытиеАудитаПишетсяВсегда(t *testing.T) {
	gateway := new(MockGateway)
	repo := new(MockRepository)
	cache := new(MockCache)
	bus := new(MockBus)

	var captured models.SubscriptionEvent
	repo.On("InsertEvent", mock.Anything, mock.AnythingOfType("models.SubscriptionEvent")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(models.SubscriptionEvent)
		}).Return(nil)
	repo.On("UpdateEntitledApps", mock.Anything, "user@example.com", mock.Anything).Return(nil)
	bus.On("Publish", mock.Anything).Return(errors.New("broker is down"))
	cache.On("Invalidate", mock.Anything).Return(nil)

	service := newTestSyncService(gateway, repo, cache, bus)
	_, err := service.SyncAppAccess(context.Background(), "user@example.com", nil, nil, status.Active)

	require.NoError(t, err, "отказ шины не роняет синхронизацию")
	assert.Equal(t, models.EventEntitlementSync, captured.EventType)
	assert.Equal(t, "user@example.com", captured.Email)
	repo.AssertExpectations(t)
}
