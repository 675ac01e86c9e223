package model

import "time"

// User is a CSM account allowed to call the API.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	APIKey       string    `db:"api_key" json:"-"`
	Status       string    `db:"status" json:"status"`                 // active|suspended
	RateLimitRPS *int      `db:"rate_limit_rps" json:"rate_limit_rps"` // nullable
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u User) Active() bool { return u.Status == "active" }
