package presigned

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"
)

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 15 * time.Minute

// ErrEmptyObject is returned when no object key is supplied.
var ErrEmptyObject = errors.New("object key required")

type presignClient interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Service issues short-lived download URLs for stored images.
type Service struct {
	client presignClient
	ttl    time.Duration
}

// NewService constructs a Service around a MinIO client.
func NewService(client presignClient, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		client: client,
		ttl:    ttl,
	}
}

// TTL reports how long issued URLs stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// GenerateGetURL returns a URL that serves the object inline under its own file name.
func (s *Service) GenerateGetURL(ctx context.Context, bucket, object string) (string, error) {
	if object == "" {
		return "", ErrEmptyObject
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("inline; filename=%q", path.Base(object)))

	u, err := s.client.PresignedGetObject(ctx, bucket, object, s.ttl, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}
