// Package appclient реализует HTTP-клиент админ-эндпоинтов внешних
// приложений семейства. Через него миграция читает списки пользователей,
// а синхронизатор выдаёт и отзывает доступ.
//
// Каждый исходящий вызов ограничен таймаутом в 5 секунд; таймаут
// трактуется вызывающей стороной так же, как любой другой отказ
// приложения — фиксируется и не прерывает пакетную операцию.
package appclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/safekidsapps/account-hub/internal/config"
	"github.com/safekidsapps/account-hub/internal/models"
)

// CallTimeout ограничение на один исходящий вызов админ-эндпоинта.
const CallTimeout = 5 * time.Second

// Endpoint адрес и ключ админ-эндпоинта одного приложения.
type Endpoint struct {
	BaseURL  string
	AdminKey string
}

// Client клиент админ-эндпоинтов приложений семейства.
type Client struct {
	endpoints  map[models.AppName]Endpoint
	httpClient *http.Client
}

// New создаёт клиент по настройкам эндпоинтов из конфига.
func New(apps config.AppEndpoints) *Client {
	endpoints := make(map[models.AppName]Endpoint, len(models.AllApps()))
	for _, app := range models.AllApps() {
		ep, ok := apps.ForApp(string(app))
		if !ok {
			continue
		}
		endpoints[app] = Endpoint{BaseURL: ep.BaseURL, AdminKey: ep.AdminKey}
	}
	return &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: CallTimeout},
	}
}

// NewWithEndpoints создаёт клиент по готовой карте эндпоинтов.
// Используется в тестах с httptest-серверами.
func NewWithEndpoints(endpoints map[models.AppName]Endpoint) *Client {
	return &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: CallTimeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method string, app models.AppName, path string, body any) (*http.Request, error) {
	ep, ok := c.endpoints[app]
	if !ok || ep.BaseURL == "" {
		return nil, fmt.Errorf("no endpoint configured for app %s", app)
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, ep.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-admin-key", ep.AdminKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ListUsers возвращает записи всех пользователей приложения,
// приведённые к канонической форме AppUserRecord.
func (c *Client) ListUsers(ctx context.Context, app models.AppName) ([]models.AppUserRecord, error) {
	const op = "appclient.ListUsers"

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, app, "/api/admin/users", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: timeout after %s: %w", op, CallTimeout, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var raw []RawAppUser
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]models.AppUserRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.Normalize(app))
	}
	return records, nil
}

// setAccessRequest тело запроса выдачи или отзыва доступа.
// Эндпоинты приложений идемпотентны: запрос задаёт целевое состояние,
// а не инкремент, поэтому повторный вызов безопасен.
type setAccessRequest struct {
	Email              string `json:"email"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

// SetAccess устанавливает статус подписки пользователя в приложении.
// Статус active или lifetime означает выдачу доступа, canceled — отзыв.
func (c *Client) SetAccess(ctx context.Context, app models.AppName, email, subscriptionStatus string) error {
	const op = "appclient.SetAccess"

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, app, "/api/admin/setAccess", setAccessRequest{
		Email:              models.NormalizeEmail(email),
		SubscriptionStatus: subscriptionStatus,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: timeout after %s: %w", op, CallTimeout, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}

// Validate проверяет абсолютность базовых адресов. Кривой адрес
// ловим на старте сервиса, а не в рантайме пакетной операции.
func (c *Client) Validate() error {
	for app, ep := range c.endpoints {
		if ep.BaseURL == "" {
			continue
		}
		u, err := url.Parse(ep.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("invalid base url for app %s: %q", app, ep.BaseURL)
		}
	}
	return nil
}
