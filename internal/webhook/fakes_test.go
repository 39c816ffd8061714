package webhook

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/paywall/internal/model"
)

var errNoRow = errors.New("no such row")

// memStore mirrors the conditional semantics of the MySQL repository.
type memStore struct {
	mu        sync.Mutex
	rows      map[int64]*model.WebhookEvent
	next      int64
	insertErr error
	// loseRaces makes every Mark* report that another writer won.
	loseRaces bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]*model.WebhookEvent{}}
}

func (m *memStore) Insert(_ context.Context, e *model.WebhookEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.next++
	e.ID = m.next
	e.Status = model.EventPending
	e.RetryCount = 0
	cp := *e
	cp.Payload = e.Payload.Clone()
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

// seed stores a row as-is, e.g. an already failed event.
func (m *memStore) seed(e model.WebhookEvent) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	e.ID = m.next
	m.rows[e.ID] = &e
	return e.ID
}

func (m *memStore) Get(_ context.Context, id int64) (*model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, errNoRow
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) row(id int64) model.WebhookEvent {
	e, _ := m.Get(context.Background(), id)
	return *e
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) ListRetryable(_ context.Context, bound, limit int) ([]model.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WebhookEvent
	for _, e := range m.rows {
		if e.Status == model.EventFailed && e.RetryCount < bound {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkDelivered(_ context.Context, id int64, from model.EventStatus, retryCount int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || m.loseRaces || e.Status != from || e.RetryCount != retryCount {
		return false, nil
	}
	e.Status = model.EventDelivered
	e.LastAttempt = &at
	return true, nil
}

func (m *memStore) MarkFailed(_ context.Context, id int64, from model.EventStatus, retryCount int, msg string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || m.loseRaces || e.Status != from || e.RetryCount != retryCount {
		return false, nil
	}
	e.Status = model.EventFailed
	e.RetryCount++
	e.ErrorMessage = &msg
	e.LastAttempt = &at
	return true, nil
}

type staticConfig struct {
	s   *model.Settings
	err error
}

func (c staticConfig) Active(context.Context) (*model.Settings, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.s == nil {
		return nil, nil
	}
	cp := *c.s
	return &cp, nil
}

// fakeDeliverer records every envelope; fail decides the outcome.
type fakeDeliverer struct {
	mu    sync.Mutex
	calls []Envelope
	fail  func(Envelope) error
}

func (f *fakeDeliverer) Deliver(_ context.Context, _ Target, env Envelope) error {
	f.mu.Lock()
	f.calls = append(f.calls, env)
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return fail(env)
	}
	return nil
}

func (f *fakeDeliverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memAttempts struct {
	mu   sync.Mutex
	rows []model.DeliveryAttempt
}

func (a *memAttempts) Record(_ context.Context, at model.DeliveryAttempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, at)
	return nil
}

func alwaysDown(Envelope) error { return errors.New("dial tcp: connection refused") }

func testSettings() *model.Settings {
	return &model.Settings{
		ID:             model.SettingsID,
		WebhookURL:     "https://x.test/hook",
		SecretKey:      "s3cr3t",
		EnabledEvents:  `["content_created"]`,
		RetryAttempts:  3,
		TimeoutSeconds: 5,
	}
}

func testDeps(store *memStore, s *model.Settings, tr Deliverer) Deps {
	return Deps{Store: store, Config: staticConfig{s: s}, Transport: tr}
}
