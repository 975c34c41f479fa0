package image

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// Service handles image metadata CRUD operations.
type Service struct {
	repo Repository
}

// New creates an image service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new image record.
func (s *Service) Create(ctx context.Context, d domimage.Draft) (domimage.Record, error) {
	if err := d.Validate(); err != nil {
		return domimage.Record{}, fmt.Errorf("validate image: %w: %w", domain.ErrInvalidRequest, err)
	}

	rec, err := s.repo.Create(ctx, d)
	if err != nil {
		return domimage.Record{}, fmt.Errorf("create image: %w", err)
	}
	return rec, nil
}

// Get retrieves an image by ID.
func (s *Service) Get(ctx context.Context, id int64) (domimage.Record, error) {
	if id <= 0 {
		return domimage.Record{}, fmt.Errorf("image id %d: %w", id, domain.ErrImageNotFound)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domimage.Record{}, fmt.Errorf("get image: %w", err)
	}
	return rec, nil
}

// List returns all images in ascending ID order.
func (s *Service) List(ctx context.Context) ([]domimage.Record, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return recs, nil
}

// Delete removes an image by ID.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("image id %d: %w", id, domain.ErrImageNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
