// Package gateway talks to the payment gateway's HTTP API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmehdipour/paywall/internal/config"
	"github.com/jmehdipour/paywall/internal/model"
)

var ErrNotFound = errors.New("gateway: payment not found")

type CreateRequest struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

// Charge is the gateway's view of a payment.
type Charge struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	CheckoutURL string `json:"checkout_url"`
}

func (c Charge) PaymentStatus() (model.PaymentStatus, bool) {
	return model.ParsePaymentStatus(c.Status)
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreatePayment(ctx context.Context, in CreateRequest) (Charge, error) {
	var out Charge
	if err := c.do(ctx, http.MethodPost, "/payments", in, &out); err != nil {
		return Charge{}, fmt.Errorf("create payment %s: %w", in.Reference, err)
	}
	return out, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (Charge, error) {
	var out Charge
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &out); err != nil {
		return Charge{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("gateway status=%d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(out)
}
