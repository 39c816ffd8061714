// Package app builds the process graph shared by the serve and worker commands.
package app

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/auth"
	"github.com/jmehdipour/paywall/internal/cache"
	"github.com/jmehdipour/paywall/internal/config"
	"github.com/jmehdipour/paywall/internal/db"
	"github.com/jmehdipour/paywall/internal/gateway"
	httpSrv "github.com/jmehdipour/paywall/internal/http"
	"github.com/jmehdipour/paywall/internal/logger"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service/catalog"
	"github.com/jmehdipour/paywall/internal/service/contact"
	"github.com/jmehdipour/paywall/internal/service/payment"
	"github.com/jmehdipour/paywall/internal/service/review"
	"github.com/jmehdipour/paywall/internal/webhook"
)

type App struct {
	Cfg config.Config
	Log *zap.Logger

	MySQL      *sqlx.DB
	ClickHouse *sqlx.DB      // nil when clickhouse.dsn is empty
	Redis      *redis.Client // nil when redis.addr is empty

	Settings *cache.Settings
	Events   repository.WebhookEventsRepository
	Attempts repository.AttemptLogRepository

	Emitter *webhook.Emitter
	Retrier *webhook.Retrier
	Sweeper *webhook.Sweeper

	Catalog  *catalog.Service
	Reviews  *review.Service
	Contact  *contact.Service
	Payments *payment.Service
	Auth     *auth.Service
}

// New connects the stores and wires every service. Callers own Close.
func New(cfg config.Config) (*App, error) {
	a := &App{Cfg: cfg, Log: logger.Named("app")}

	var err error
	a.MySQL, err = db.NewMySQLConnection(cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}

	if strings.TrimSpace(cfg.ClickHouse.DSN) != "" {
		a.ClickHouse, err = db.NewClickHouseConnection(cfg.ClickHouse)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("clickhouse connect: %w", err)
		}
		a.Attempts = repository.NewAttemptLogRepository(a.ClickHouse)
	} else {
		a.Log.Warn("clickhouse disabled, delivery attempts are not logged")
	}

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		a.Redis, err = db.NewRedisClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connect: %w", err)
		}
	}

	a.wire()
	return a, nil
}

func (a *App) wire() {
	cfg := a.Cfg
	tx := repository.TxRunner(a.MySQL)

	contents := repository.NewContentsRepository(a.MySQL)
	payments := repository.NewPaymentsRepository(a.MySQL)
	reviews := repository.NewReviewsRepository(a.MySQL)
	contacts := repository.NewContactsRepository(a.MySQL)
	a.Events = repository.NewWebhookEventsRepository(a.MySQL)
	a.Settings = cache.NewSettings(repository.NewSettingsRepository(a.MySQL), a.Redis, cfg.Webhook.SettingsCacheTTL, logger.Named("settings"))

	deps := webhook.Deps{
		Store:          a.Events,
		Config:         a.Settings,
		Transport:      webhook.NewTransport(cfg.Webhook.MaxResponseBytes),
		Logger:         logger.Named("webhook"),
		DefaultTimeout: cfg.Webhook.DefaultTimeout,
	}
	if a.Attempts != nil {
		deps.Attempts = a.Attempts
	}
	a.Emitter = webhook.NewEmitter(deps)
	a.Retrier = webhook.NewRetrier(deps)
	a.Sweeper = webhook.NewSweeper(deps, cfg.Webhook.SweepBatch,
		webhook.NewBreaker(cfg.Webhook.Breaker.FailThreshold, cfg.Webhook.Breaker.OpenFor))

	a.Payments = payment.New(payments, contents, gateway.NewClient(cfg.Gateway), tx, a.Emitter, logger.Named("payment"))
	a.Catalog = catalog.New(contents, payments, tx, a.Payments, a.Emitter, logger.Named("catalog"))
	a.Reviews = review.New(reviews, contents, a.Emitter)
	a.Contact = contact.New(contacts, a.Emitter)
	a.Auth = auth.NewService(repository.NewAdminsRepository(a.MySQL), cfg.Auth)
}

// HTTPDeps adapts the graph to the HTTP server.
func (a *App) HTTPDeps() httpSrv.Deps {
	return httpSrv.Deps{
		Settings: a.Settings,
		Events:   a.Events,
		Attempts: a.Attempts,
		Retrier:  a.Retrier,
		Sweeper:  a.Sweeper,
		Catalog:  a.Catalog,
		Reviews:  a.Reviews,
		Contact:  a.Contact,
		Payments: a.Payments,
		Auth:     a.Auth,
		Redis:    a.Redis,
		Logger:   logger.Named("http"),
	}
}

// Close stops the sweeper and releases connections.
func (a *App) Close() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.ClickHouse != nil {
		_ = a.ClickHouse.Close()
	}
	if a.MySQL != nil {
		_ = a.MySQL.Close()
	}
}
