package pictag

import (
	"context"
	"fmt"
	"time"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// ImageService manages stored image records.
type ImageService struct {
	svc imageUseCase
	obs *observer
}

// Add validates and stores a record. IDs are assigned in insertion order.
func (s *ImageService) Add(ctx context.Context, d ImageDraft) (img Image, err error) {
	start := time.Now()
	defer func() { s.obs.observe("image_add", start, err) }()

	rec, err := s.svc.Create(ctx, domimage.Draft{
		URL:      d.URL,
		Filename: d.Filename,
		Tags:     d.Tags,
		Captions: d.Captions,
	})
	if err != nil {
		return Image{}, fmt.Errorf("add image: %w", err)
	}
	return toImage(&rec), nil
}

// Get returns one record.
func (s *ImageService) Get(ctx context.Context, id int64) (img Image, err error) {
	start := time.Now()
	defer func() { s.obs.observe("image_get", start, err) }()

	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return Image{}, fmt.Errorf("get image %d: %w", id, err)
	}
	return toImage(&rec), nil
}

// List returns every record in ascending ID order.
func (s *ImageService) List(ctx context.Context) (imgs []Image, err error) {
	start := time.Now()
	defer func() { s.obs.observe("image_list", start, err) }()

	recs, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	imgs = make([]Image, len(recs))
	for i := range recs {
		imgs[i] = toImage(&recs[i])
	}
	return imgs, nil
}

// Delete removes a record.
func (s *ImageService) Delete(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("image_delete", start, err) }()

	if err := s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete image %d: %w", id, err)
	}
	return nil
}

func toImage(r *domimage.Record) Image {
	return Image{
		ID:        r.ID(),
		URL:       r.URL(),
		Filename:  r.Filename(),
		Tags:      r.Tags(),
		Captions:  r.Captions(),
		CreatedAt: r.CreatedAt(),
	}
}
