package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jmehdipour/paywall/internal/model"
)

type webhookSettingsRequest struct {
	WebhookURL     *string  `json:"webhook_url"`
	SecretKey      *string  `json:"secret_key"` // nil keeps the stored secret
	EnabledEvents  []string `json:"enabled_events"`
	RetryAttempts  *int     `json:"retry_attempts"`
	TimeoutSeconds *int     `json:"timeout_seconds"`
}

type webhookSettingsResponse struct {
	WebhookURL     string   `json:"webhook_url"`
	SecretKey      string   `json:"secret_key"`
	EnabledEvents  []string `json:"enabled_events"`
	RetryAttempts  int      `json:"retry_attempts"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Deliverable    bool     `json:"deliverable"`
	KnownEvents    []string `json:"known_events"`
}

func toSettingsResponse(s *model.Settings) webhookSettingsResponse {
	if s == nil {
		s = &model.Settings{ID: model.SettingsID}
	}
	r := s.Redacted()
	events := make([]string, 0)
	for e := range s.EnabledSet() {
		events = append(events, e)
	}
	slices.Sort(events)
	return webhookSettingsResponse{
		WebhookURL:     r.WebhookURL,
		SecretKey:      r.SecretKey,
		EnabledEvents:  events,
		RetryAttempts:  r.RetryAttempts,
		TimeoutSeconds: r.TimeoutSeconds,
		Deliverable:    s.Deliverable(),
		KnownEvents:    model.KnownEventTypes,
	}
}

func getWebhookSettingsHandler(store SettingsStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := store.Active(c.Request().Context())
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, toSettingsResponse(s))
	}
}

func putWebhookSettingsHandler(store SettingsStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req webhookSettingsRequest
		if err := c.Bind(&req); err != nil {
			return errJSON(c, http.StatusBadRequest, "invalid body")
		}

		ctx := c.Request().Context()
		cur, err := store.Active(ctx)
		if err != nil {
			return respondErr(c, err)
		}

		next, err := applyWebhookSettings(cur, req)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, err.Error())
		}
		if err := store.Save(ctx, next); err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, toSettingsResponse(next))
	}
}

// applyWebhookSettings merges a partial update onto the stored row and
// validates the result.
func applyWebhookSettings(cur *model.Settings, req webhookSettingsRequest) (*model.Settings, error) {
	next := model.Settings{ID: model.SettingsID, EnabledEvents: "[]", TimeoutSeconds: 10}
	if cur != nil {
		next = *cur
		next.ID = model.SettingsID
	}

	if req.WebhookURL != nil {
		raw := strings.TrimSpace(*req.WebhookURL)
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, fmt.Errorf("webhook_url must be an absolute http(s) URL")
			}
		}
		next.WebhookURL = raw
	}
	if req.SecretKey != nil {
		next.SecretKey = *req.SecretKey
	}
	if req.EnabledEvents != nil {
		for _, e := range req.EnabledEvents {
			if strings.TrimSpace(e) == "" {
				return nil, fmt.Errorf("enabled_events must not contain empty names")
			}
		}
		raw, _ := json.Marshal(req.EnabledEvents)
		next.EnabledEvents = string(raw)
	}
	if req.RetryAttempts != nil {
		if *req.RetryAttempts < 0 || *req.RetryAttempts > model.MaxRetryAttempts {
			return nil, fmt.Errorf("retry_attempts must be between 0 and %d", model.MaxRetryAttempts)
		}
		next.RetryAttempts = *req.RetryAttempts
	}
	if req.TimeoutSeconds != nil {
		if *req.TimeoutSeconds < model.MinTimeoutSecs || *req.TimeoutSeconds > model.MaxTimeoutSecs {
			return nil, fmt.Errorf("timeout_seconds must be between %d and %d", model.MinTimeoutSecs, model.MaxTimeoutSecs)
		}
		next.TimeoutSeconds = *req.TimeoutSeconds
	}
	return &next, nil
}
