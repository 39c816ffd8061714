package webhook

import (
	"encoding/json"
	"time"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
)

// Envelope is the wire body POSTed to the webhook endpoint.
type Envelope struct {
	ID        int64        `json:"id"`
	Type      string       `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	Data      jsonv.Object `json:"data"`
}

func EnvelopeFor(e model.WebhookEvent) Envelope {
	return Envelope{
		ID:        e.ID,
		Type:      e.EventType,
		CreatedAt: e.CreatedAt.UTC(),
		Data:      e.Payload,
	}
}

// Encode serializes the envelope once; the same bytes are signed and sent.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
