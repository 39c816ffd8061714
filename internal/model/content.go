package model

import "time"

// Content is a downloadable material behind the contribution gate.
type Content struct {
	ID            int64      `db:"id"              json:"id"`
	Slug          string     `db:"slug"            json:"slug"`
	Title         string     `db:"title"           json:"title"`
	Description   string     `db:"description"     json:"description"`
	MinPriceCents int64      `db:"min_price_cents" json:"min_price_cents"` // 0 = free allowed
	FileKey       string     `db:"file_key"        json:"-"`
	Published     bool       `db:"published"       json:"published"`
	PublishedAt   *time.Time `db:"published_at"    json:"published_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"      json:"updated_at"`
}

type AccessStatus string

const (
	AccessPending AccessStatus = "pending"
	AccessGranted AccessStatus = "granted"
)

// Access is a lead's registration for a content; Token unlocks the download.
type Access struct {
	ID          int64        `db:"id"           json:"id"`
	ContentID   int64        `db:"content_id"   json:"content_id"`
	Email       string       `db:"email"        json:"email"`
	Name        string       `db:"name"         json:"name"`
	Token       string       `db:"token"        json:"token"`
	AmountCents int64        `db:"amount_cents" json:"amount_cents"`
	Status      AccessStatus `db:"status"       json:"status"`
	CreatedAt   time.Time    `db:"created_at"   json:"created_at"`
}
