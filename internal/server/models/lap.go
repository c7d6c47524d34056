package models

import (
	"time"

	"github.com/google/uuid"
)

// Lap is a time block inside a session. LapNumber is 1-based.
type Lap struct {
	ID             int64
	LapUUID        uuid.UUID
	UserID         int64
	SessionID      int64
	LapNumber      int
	LapName        *string
	StartTime      *time.Time
	EndTime        *time.Time
	Duration       *int64
	IsActive       bool
	CurrentHours   int
	CurrentMinutes int
	CurrentSeconds int
	WorkDoneString *string
	IsBreakLap     bool
	HourlyAmount   float64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

type LapPatch struct {
	LapName  *string
	EndTime  *time.Time
	Duration *int64
}
