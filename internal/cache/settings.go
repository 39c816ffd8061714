// Package cache fronts the settings row with a short-lived Redis entry so the
// emitter and sweeper do not hit MySQL on every event.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
)

const settingsKey = "paywall:settings:1"

// Settings is a read-through cache over repository.SettingsRepository.
// A nil Redis client or a Redis error degrades to reading the database.
type Settings struct {
	repo  repository.SettingsRepository
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	log   *zap.Logger
}

func NewSettings(repo repository.SettingsRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Settings {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Settings{repo: repo, rdb: rdb, ttl: ttl, log: log}
}

// Active returns the current settings row, or nil when none exists yet.
func (c *Settings) Active(ctx context.Context) (*model.Settings, error) {
	if s, ok := c.fromRedis(ctx); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(settingsKey, func() (any, error) {
		s, err := c.repo.Get(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s, _ := v.(*model.Settings)
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Save writes through to the database and drops the cached entry.
func (c *Settings) Save(ctx context.Context, s *model.Settings) error {
	if err := c.repo.Save(ctx, s); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *Settings) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, settingsKey).Err(); err != nil {
		c.log.Warn("settings cache invalidate failed", zap.Error(err))
	}
}

func (c *Settings) fromRedis(ctx context.Context) (*model.Settings, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, settingsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("settings cache read failed", zap.Error(err))
		}
		return nil, false
	}
	// "null" caches an absent row
	var s *model.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	if s != nil {
		s.ID = model.SettingsID
	}
	return s, true
}

func (c *Settings) store(ctx context.Context, s *model.Settings) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, settingsKey, raw, c.ttl).Err(); err != nil {
		c.log.Debug("settings cache write failed", zap.Error(err))
	}
}
