package db

import (
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/paywall/internal/config"
)

// NewClickHouseConnection opens the analytics store that keeps the
// append-only webhook delivery attempt log.
// DSN e.g. clickhouse://default:@localhost:9000/paywall?dial_timeout=5s
func NewClickHouseConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return open("clickhouse", cfg.DSN, poolOpts(cfg), 3*time.Second)
}
