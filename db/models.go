package db

import "time"

// Token holds the persisted session credentials. The table only ever has the row with ID 1,
// so both tokens are always written by a single statement.
type Token struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	AccessToken      string    `json:"access_token,omitempty"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Profile is the user object returned by the login endpoint.
type Profile struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Data  string `json:"data"` // raw JSON as received
}

// Product is a cached catalogue entry.
type Product struct {
	ID       int     `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"index" json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Data     string  `json:"data"`
}
