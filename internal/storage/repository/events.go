package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safekidsapps/account-hub/internal/models"
)

// InsertEvent добавляет событие в журнал аудита. Журнал append-only:
// записи никогда не обновляются и не удаляются.
func (s *Storage) InsertEvent(ctx context.Context, event models.SubscriptionEvent) error {
	const op = "storage.InsertEvent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	eventData, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscription_events (id, user_uid, email, event_type, event_data,
			      subscription_status, created_at)
			  VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query,
		event.ID, event.UserUID, models.NormalizeEmail(event.Email), event.EventType,
		eventData, event.SubscriptionStatus, event.Timestamp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListEventsByEmail возвращает события аккаунта, новые первыми.
func (s *Storage) ListEventsByEmail(ctx context.Context, email string, limit int) ([]*models.SubscriptionEvent, error) {
	const op = "storage.ListEventsByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, COALESCE(user_uid, ''), email, event_type, event_data, subscription_status, created_at
			  FROM subscription_events
			  WHERE email = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, models.NormalizeEmail(email), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionEvent
	for rows.Next() {
		var ev models.SubscriptionEvent
		var eventData []byte
		if err = rows.Scan(&ev.ID, &ev.UserUID, &ev.Email, &ev.EventType, &eventData,
			&ev.SubscriptionStatus, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(eventData) > 0 {
			if err = json.Unmarshal(eventData, &ev.EventData); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, &ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
