package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a saved work session.
type Session struct {
	ID            int64
	SessionUUID   uuid.UUID
	UserID        int64
	SessionName   *string
	Description   *string
	StartTime     *time.Time
	EndTime       *time.Time
	LapCount      int
	TotalSeconds  int64
	TotalDuration int64
	TotalAmount   float64
	IsActive      bool
	IsCompleted   bool
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// SessionFilter narrows a session listing. Zero values disable a filter,
// except Limit which the service always sets.
type SessionFilter struct {
	Limit         int
	Offset        int
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IsCompleted   *bool
}

// SessionPatch carries a partial update; nil fields are left unchanged.
type SessionPatch struct {
	SessionName   *string
	Description   *string
	EndTime       *time.Time
	TotalDuration *int64
	IsCompleted   *bool
}
