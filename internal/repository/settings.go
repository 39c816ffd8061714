package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

// SettingsRepository reads and writes the singleton settings row.
// Every statement addresses the row by model.SettingsID.
type SettingsRepository interface {
	// Get returns (nil, nil) when the row has not been created yet.
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s *model.Settings) error
}

type SettingsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepositoryImpl {
	return &SettingsRepositoryImpl{db: db}
}

var _ SettingsRepository = (*SettingsRepositoryImpl)(nil)

func (r *SettingsRepositoryImpl) Get(ctx context.Context) (*model.Settings, error) {
	var s model.Settings
	err := r.db.GetContext(ctx, &s, `
		SELECT id, site_name, webhook_url, secret_key, enabled_events,
		       retry_attempts, timeout_seconds, updated_at
		  FROM settings
		 WHERE id = ?
	`, model.SettingsID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// Save upserts the singleton row.
func (r *SettingsRepositoryImpl) Save(ctx context.Context, s *model.Settings) error {
	const q = `
		INSERT INTO settings
		    (id, site_name, webhook_url, secret_key, enabled_events, retry_attempts, timeout_seconds, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    site_name       = VALUES(site_name),
		    webhook_url     = VALUES(webhook_url),
		    secret_key      = VALUES(secret_key),
		    enabled_events  = VALUES(enabled_events),
		    retry_attempts  = VALUES(retry_attempts),
		    timeout_seconds = VALUES(timeout_seconds),
		    updated_at      = VALUES(updated_at)
	`
	s.ID = model.SettingsID
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.SiteName, s.WebhookURL, s.SecretKey, s.EnabledEvents, s.RetryAttempts, s.TimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
