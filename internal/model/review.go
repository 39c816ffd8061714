package model

import "time"

type Review struct {
	ID        int64     `db:"id"         json:"id"`
	ContentID int64     `db:"content_id" json:"content_id"`
	Author    string    `db:"author"     json:"author"`
	Email     string    `db:"email"      json:"-"`
	Rating    int       `db:"rating"     json:"rating"` // 1..5
	Comment   string    `db:"comment"    json:"comment"`
	Approved  bool      `db:"approved"   json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ContactMessage struct {
	ID        int64     `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	Subject   string    `db:"subject"    json:"subject"`
	Body      string    `db:"body"       json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AdminUser struct {
	ID           int64     `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
