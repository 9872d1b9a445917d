package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safekidsapps/account-hub/internal/models"
)

// InsertMigrationRun сохраняет отчёт одного прогона миграции.
func (s *Storage) InsertMigrationRun(ctx context.Context, report models.MigrationReport) error {
	const op = "storage.InsertMigrationRun"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO migration_runs (id, dry_run, started_at, finished_at, report)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query,
		report.RunID, report.DryRun, report.StartedAt, report.FinishedAt, payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LastMigrationRun возвращает отчёт самого свежего прогона миграции.
func (s *Storage) LastMigrationRun(ctx context.Context) (*models.MigrationReport, error) {
	const op = "storage.LastMigrationRun"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT report
			  FROM migration_runs
			  ORDER BY started_at DESC
			  LIMIT 1`
	var payload []byte
	err := s.DB.QueryRowContext(ctx, query).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNoMigrationRuns)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var report models.MigrationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &report, nil
}
