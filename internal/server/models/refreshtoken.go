package models

import "time"

// RefreshToken is the persisted twin of an issued refresh token. Rows are
// never updated; they are inserted and deleted.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
