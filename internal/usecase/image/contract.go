package image

import (
	"context"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// Repository defines the storage contract for image metadata.
type Repository interface {
	Create(ctx context.Context, d domimage.Draft) (domimage.Record, error)
	Get(ctx context.Context, id int64) (domimage.Record, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]domimage.Record, error)
}
