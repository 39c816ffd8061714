// Package webhooktest provides Notifier doubles for services that emit events.
package webhooktest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/jmehdipour/paywall/internal/jsonv"
)

// MockNotifier is a testify mock of webhook.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Emit(ctx context.Context, eventType string, payload jsonv.Object) {
	m.Called(ctx, eventType, payload)
}

type Emitted struct {
	Type    string
	Payload jsonv.Object
}

// Recorder keeps every emission in order.
type Recorder struct {
	mu     sync.Mutex
	events []Emitted
}

func (r *Recorder) Emit(_ context.Context, eventType string, payload jsonv.Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Type: eventType, Payload: payload.Clone()})
}

func (r *Recorder) Events() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emitted(nil), r.events...)
}

// Types lists the emitted event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
