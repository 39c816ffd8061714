package model

import (
	"time"

	"github.com/jmehdipour/paywall/internal/jsonv"
)

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventDelivered EventStatus = "delivered"
	EventFailed    EventStatus = "failed"
)

func (s EventStatus) String() string {
	return string(s)
}

func (s EventStatus) Valid() bool {
	return s == EventPending || s == EventDelivered || s == EventFailed
}

// WebhookEvent is one emitted occurrence and its delivery outcome
// (webhook_events table). Payload is immutable after insert.
type WebhookEvent struct {
	ID           int64        `db:"id"            json:"id"`
	EventType    string       `db:"event_type"    json:"event_type"`
	Payload      jsonv.Object `db:"payload"       json:"payload"`
	Status       EventStatus  `db:"status"        json:"status"`
	RetryCount   int          `db:"retry_count"   json:"retry_count"`
	ErrorMessage *string      `db:"error_message" json:"error_message"`
	LastAttempt  *time.Time   `db:"last_attempt"  json:"last_attempt"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
}

// EventFilter narrows admin listings of webhook events.
type EventFilter struct {
	Status    EventStatus
	EventType string
	Limit     int
	Offset    int
}

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status EventStatus `db:"status" json:"status"`
	Count  int64       `db:"count"  json:"count"`
}

// DeliveryAttempt is one signed POST, recorded in the ClickHouse attempt log.
type DeliveryAttempt struct {
	EventID     int64     `db:"event_id"     json:"event_id"`
	EventType   string    `db:"event_type"   json:"event_type"`
	Source      string    `db:"source"       json:"source"` // emit|sweep|manual
	Attempt     int       `db:"attempt"      json:"attempt"`
	Success     bool      `db:"success"      json:"success"`
	Error       string    `db:"error"        json:"error,omitempty"`
	DurationMs  int64     `db:"duration_ms"  json:"duration_ms"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
}

// AttemptSummary aggregates the attempt log per event type.
type AttemptSummary struct {
	EventType     string  `db:"event_type"      json:"event_type"`
	Attempts      uint64  `db:"attempts"        json:"attempts"`
	Failures      uint64  `db:"failures"        json:"failures"`
	AvgDurationMs float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}
