package model

import (
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentRefused PaymentStatus = "refused"
	PaymentExpired PaymentStatus = "expired"
)

func (s PaymentStatus) String() string { return string(s) }

func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentRefused || s == PaymentExpired
}

// ParsePaymentStatus maps gateway wording onto our statuses.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "waiting", "processing":
		return PaymentPending, true
	case "paid", "approved", "succeeded":
		return PaymentPaid, true
	case "refused", "failed", "declined", "canceled", "cancelled":
		return PaymentRefused, true
	case "expired":
		return PaymentExpired, true
	default:
		return "", false
	}
}

type PaymentMethod string

const (
	MethodCard PaymentMethod = "card"
	MethodPix  PaymentMethod = "pix"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pix":
		return MethodPix, true
	case "card", "credit_card":
		return MethodCard, true
	default:
		return "", false
	}
}

type Payment struct {
	ID          int64         `db:"id"           json:"id"`
	Reference   string        `db:"reference"    json:"reference"` // our ULID, sent to the gateway
	GatewayID   string        `db:"gateway_id"   json:"gateway_id"`
	ContentID   int64         `db:"content_id"   json:"content_id"`
	AccessID    int64         `db:"access_id"    json:"access_id"`
	Email       string        `db:"email"        json:"email"`
	AmountCents int64         `db:"amount_cents" json:"amount_cents"`
	Method      PaymentMethod `db:"method"       json:"method"`
	Status      PaymentStatus `db:"status"       json:"status"`
	CheckoutURL string        `db:"checkout_url" json:"checkout_url,omitempty"`
	CreatedAt   time.Time     `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"   json:"updated_at"`
}
