package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is the metadata row of a lap attachment. The bytes live in the
// object store under ObjectKey.
type Image struct {
	ID         int64
	ImageUUID  uuid.UUID
	UserID     int64
	SessionID  int64
	LapID      int64
	ImageName  string
	MimeType   string
	FileSize   int64
	FileFormat string
	ObjectKey  string
	Bucket     string
	CreatedAt  time.Time
}
