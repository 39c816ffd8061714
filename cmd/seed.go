package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/auth"
	"github.com/jmehdipour/paywall/internal/db"
	"github.com/jmehdipour/paywall/internal/logger"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed an admin user, default settings and demo contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()
		log := logger.Named("seed")

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		ctx := context.Background()
		password := seedAdminPassword
		if password == "" {
			password = os.Getenv("PAYWALL_ADMIN_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("admin password required (--admin-password or PAYWALL_ADMIN_PASSWORD)")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if err := repository.NewAdminsRepository(sqlDB).Upsert(ctx, seedAdminEmail, hash); err != nil {
			return err
		}

		if err := ensureSettings(ctx, repository.NewSettingsRepository(sqlDB)); err != nil {
			return err
		}
		if err := seedContents(sqlDB); err != nil {
			return err
		}

		log.Info("seed completed", zap.String("admin", seedAdminEmail))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@paywall.local", "admin login email")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "admin password (or PAYWALL_ADMIN_PASSWORD)")
}

// ensureSettings creates the settings row with webhooks disabled; an existing
// row is left untouched.
func ensureSettings(ctx context.Context, repo repository.SettingsRepository) error {
	cur, err := repo.Get(ctx)
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}
	return repo.Save(ctx, &model.Settings{
		ID:             model.SettingsID,
		SiteName:       "Paywall",
		EnabledEvents:  "[]",
		RetryAttempts:  3,
		TimeoutSeconds: 10,
	})
}

// seedContents inserts two deterministic demo contents (idempotent on slug).
func seedContents(dbx *sqlx.DB) error {
	const q = `
INSERT INTO contents
    (slug, title, description, min_price_cents, file_key, published, published_at, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, 1, NOW(), NOW(), NOW())
ON DUPLICATE KEY UPDATE
    title           = VALUES(title),
    description     = VALUES(description),
    min_price_cents = VALUES(min_price_cents),
    updated_at      = VALUES(updated_at)
`
	demo := []model.Content{
		{Slug: "getting-started", Title: "Getting Started", Description: "Free starter guide", FileKey: "guides/getting-started.pdf"},
		{Slug: "field-manual", Title: "Field Manual", Description: "The complete manual", MinPriceCents: 1500, FileKey: "guides/field-manual.pdf"},
	}

	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range demo {
		if _, err := tx.Exec(q, c.Slug, c.Title, c.Description, c.MinPriceCents, c.FileKey); err != nil {
			return fmt.Errorf("insert content %q: %w", c.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contents: %w", err)
	}
	return nil
}
