package objectstore

import (
	"fmt"

	"github.com/google/uuid"
)

// ImageKey is "<user>/<session>/<lap>_<uuid>.<ext>".
func ImageKey(userID, sessionID, lapID int64, id uuid.UUID, ext string) string {
	return fmt.Sprintf("%d/%d/%d_%s.%s", userID, sessionID, lapID, id, ext)
}

func SessionPrefix(userID, sessionID int64) string {
	return fmt.Sprintf("%d/%d/", userID, sessionID)
}

func LapPrefix(userID, sessionID, lapID int64) string {
	return fmt.Sprintf("%d/%d/%d_", userID, sessionID, lapID)
}
