package model

import (
	"encoding/json"
	"strings"
	"time"
)

// SettingsID is the well-known key of the singleton settings row.
const SettingsID int64 = 1

const (
	MaxRetryAttempts = 10
	MinTimeoutSecs   = 1
	MaxTimeoutSecs   = 30
)

// Settings is the site settings record; the webhook core reads only the
// webhook subset.
type Settings struct {
	ID             int64     `db:"id"              json:"-"`
	SiteName       string    `db:"site_name"       json:"site_name"`
	WebhookURL     string    `db:"webhook_url"     json:"webhook_url"`
	SecretKey      string    `db:"secret_key"      json:"secret_key"`
	EnabledEvents  string    `db:"enabled_events"  json:"enabled_events"` // JSON array
	RetryAttempts  int       `db:"retry_attempts"  json:"retry_attempts"`
	TimeoutSeconds int       `db:"timeout_seconds" json:"timeout_seconds"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// Deliverable reports whether both endpoint and secret are configured.
// A nil receiver (no settings row) is not deliverable.
func (s *Settings) Deliverable() bool {
	return s != nil && strings.TrimSpace(s.WebhookURL) != "" && strings.TrimSpace(s.SecretKey) != ""
}

// EnabledSet parses EnabledEvents. Malformed or empty input yields an empty set.
func (s *Settings) EnabledSet() map[string]struct{} {
	set := map[string]struct{}{}
	if s == nil || strings.TrimSpace(s.EnabledEvents) == "" {
		return set
	}
	var list []string
	if err := json.Unmarshal([]byte(s.EnabledEvents), &list); err != nil {
		return set
	}
	for _, e := range list {
		set[e] = struct{}{}
	}
	return set
}

// Timeout is the per-attempt delivery deadline, clamped to 1..30s.
// An unset value falls back to def.
func (s *Settings) Timeout(def time.Duration) time.Duration {
	secs := 0
	if s != nil {
		secs = s.TimeoutSeconds
	}
	if secs <= 0 {
		if def <= 0 {
			return 10 * time.Second
		}
		return def
	}
	if secs > MaxTimeoutSecs {
		secs = MaxTimeoutSecs
	}
	return time.Duration(secs) * time.Second
}

// RetryBound is retry_attempts clamped to 0..10.
func (s *Settings) RetryBound() int {
	if s == nil || s.RetryAttempts < 0 {
		return 0
	}
	if s.RetryAttempts > MaxRetryAttempts {
		return MaxRetryAttempts
	}
	return s.RetryAttempts
}

// Redacted returns a copy safe to show in admin responses.
func (s *Settings) Redacted() Settings {
	c := *s
	if c.SecretKey != "" {
		c.SecretKey = "********"
	}
	return c
}
