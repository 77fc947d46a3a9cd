package listing

import (
	"context"

	"github.com/abduss/homelist/internal/image"
	"github.com/google/uuid"
)

// Store is the durable record collection. Implementations serialize every
// mutation so concurrent writers cannot lose updates.
type Store interface {
	Create(ctx context.Context, attrs map[string]any, images []image.Asset) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, id string, patch Patch) (Record, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// newID returns a UUIDv7: a millisecond timestamp followed by random bits.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
