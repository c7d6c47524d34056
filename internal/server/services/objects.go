package services

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the part of objectstore.Store the services depend on.
type ObjectStore interface {
	Bucket() string
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ImageView is an image row with a presigned download URL.
type ImageView struct {
	ImageID   string
	ImageName string
	LapID     int64
	URL       string
	MimeType  string
	FileSize  int64
	CreatedAt time.Time
}
