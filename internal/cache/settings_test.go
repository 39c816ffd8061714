package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/paywall/internal/model"
)

type countingRepo struct {
	mu    sync.Mutex
	row   *model.Settings
	err   error
	gets  atomic.Int32
	saves int
	delay time.Duration
}

func (r *countingRepo) Get(ctx context.Context) (*model.Settings, error) {
	r.gets.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.row == nil {
		return nil, nil
	}
	cp := *r.row
	return &cp, nil
}

func (r *countingRepo) Save(ctx context.Context, s *model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.row = &cp
	r.saves++
	return nil
}

func TestSettings_NoRedisReadsThrough(t *testing.T) {
	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://x.test/hook", SecretKey: "s3cr3t"}}
	c := NewSettings(repo, nil, time.Minute, nil)

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "https://x.test/hook", s.WebhookURL)

	s.WebhookURL = "mutated"
	again, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/hook", again.WebhookURL)
}

func TestSettings_AbsentRow(t *testing.T) {
	c := NewSettings(&countingRepo{}, nil, time.Minute, nil)

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSettings_RepoErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	c := NewSettings(&countingRepo{err: boom}, nil, time.Minute, nil)

	_, err := c.Active(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSettings_ConcurrentMissesCoalesce(t *testing.T) {
	repo := &countingRepo{row: &model.Settings{ID: 1}, delay: 50 * time.Millisecond}
	c := NewSettings(repo, nil, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Active(context.Background())
		}()
	}
	wg.Wait()

	assert.Less(t, int(repo.gets.Load()), 16)
}

func TestSettings_UnreachableRedisFallsBackToDB(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://x.test/hook", SecretKey: "s3cr3t"}}
	c := NewSettings(repo, rdb, time.Minute, nil)

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Deliverable())

	require.NoError(t, c.Save(context.Background(), &model.Settings{WebhookURL: "https://y.test"}))
	assert.Equal(t, 1, repo.saves)

	s, err = c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://y.test", s.WebhookURL)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestSettings_RedisHitSkipsDatabase(t *testing.T) {
	mr, rdb := newRedis(t)
	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://x.test/hook", SecretKey: "s3cr3t", RetryAttempts: 3}}
	c := NewSettings(repo, rdb, time.Minute, nil)

	first, err := c.Active(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(settingsKey))
	assert.Equal(t, time.Minute, mr.TTL(settingsKey))

	second, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.gets.Load())
	assert.Equal(t, first.WebhookURL, second.WebhookURL)
	assert.Equal(t, model.SettingsID, second.ID)
	assert.Equal(t, 3, second.RetryAttempts)
	assert.True(t, second.Deliverable())
}

func TestSettings_RedisCachesAbsentRow(t *testing.T) {
	mr, rdb := newRedis(t)
	repo := &countingRepo{}
	c := NewSettings(repo, rdb, time.Minute, nil)

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	raw, err := mr.Get(settingsKey)
	require.NoError(t, err)
	assert.Equal(t, "null", raw)

	s, err = c.Active(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestSettings_SaveInvalidatesRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://old.test", SecretKey: "k"}}
	c := NewSettings(repo, rdb, time.Minute, nil)

	_, err := c.Active(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(settingsKey))

	require.NoError(t, c.Save(context.Background(), &model.Settings{ID: 1, WebhookURL: "https://new.test", SecretKey: "k"}))
	assert.False(t, mr.Exists(settingsKey))

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://new.test", s.WebhookURL)
	assert.Equal(t, int32(2), repo.gets.Load())
}

func TestSettings_UndecodableEntryReloads(t *testing.T) {
	mr, rdb := newRedis(t)
	require.NoError(t, mr.Set(settingsKey, "{garbage"))
	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://x.test/hook", SecretKey: "k"}}
	c := NewSettings(repo, rdb, time.Minute, nil)

	s, err := c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/hook", s.WebhookURL)
	assert.Equal(t, int32(1), repo.gets.Load())

	// the bad entry is overwritten with a good one
	s, err = c.Active(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Deliverable())
	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestSettings_EntryExpiresAfterTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	repo := &countingRepo{row: &model.Settings{ID: 1, WebhookURL: "https://x.test/hook", SecretKey: "k"}}
	c := NewSettings(repo, rdb, 30*time.Second, nil)

	_, err := c.Active(context.Background())
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists(settingsKey))

	_, err = c.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.gets.Load())
}
