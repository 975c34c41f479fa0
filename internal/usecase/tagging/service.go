package tagging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pictag/internal/domain"
	"github.com/kailas-cloud/pictag/internal/logger"
	"github.com/kailas-cloud/pictag/internal/transport/huggingface"
)

// defaultParallelism caps concurrently processed uploads.
const defaultParallelism = 4

// Upload is one image submitted for tagging.
type Upload struct {
	Filename string
	Data     []byte
}

// Tagged is the model output for one upload.
type Tagged struct {
	Filename  string
	Tags      []string
	Captions  []string
	ImageSize int
}

// Service derives tags and captions for uploaded images.
type Service struct {
	captioner   Captioner
	detector    Detector
	parallelism int
	logger      *zap.Logger
}

// New creates a tagging service. parallelism <= 0 uses a default.
func New(captioner Captioner, detector Detector, parallelism int, logger *zap.Logger) *Service {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{captioner: captioner, detector: detector, parallelism: parallelism, logger: logger}
}

// Tag captions and labels every upload. Results keep the input order.
// A failing model leaves the matching list empty for that file; the call fails with
// domain.ErrTaggingUnavailable only when no model produced output for any file.
func (s *Service) Tag(ctx context.Context, uploads []Upload) ([]Tagged, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no images: %w", domain.ErrInvalidRequest)
	}

	log := logger.FromContextOr(ctx, s.logger)
	out := make([]Tagged, len(uploads))
	failed := make([]int, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range uploads {
		g.Go(func() error {
			out[i], failed[i] = s.tagOne(gctx, log, uploads[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors pass through unchanged
	}

	for _, n := range failed {
		if n < 2 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("vision models failed for all %d images: %w", len(uploads), domain.ErrTaggingUnavailable)
}

// tagOne runs both models on one upload and reports how many of them failed.
func (s *Service) tagOne(ctx context.Context, log *zap.Logger, u Upload) (Tagged, int) {
	t := Tagged{Filename: u.Filename, Tags: []string{}, Captions: []string{}, ImageSize: len(u.Data)}

	var (
		captions           []string
		dets               []huggingface.Detection
		captionErr, detErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		captions, captionErr = s.captioner.Caption(ctx, u.Data)
		return nil
	})
	g.Go(func() error {
		dets, detErr = s.detector.Detect(ctx, u.Data)
		return nil
	})
	_ = g.Wait()

	failures := 0
	if captionErr != nil {
		failures++
		log.Warn("Caption failed", zap.String("filename", u.Filename), zap.Error(captionErr))
	} else if captions != nil {
		t.Captions = captions
	}
	if detErr != nil {
		failures++
		log.Warn("Object detection failed", zap.String("filename", u.Filename), zap.Error(detErr))
	} else {
		labels := make([]string, len(dets))
		for i, d := range dets {
			labels[i] = d.Label
		}
		t.Tags = uniqueLabels(labels)
	}
	return t, failures
}

// uniqueLabels drops blank and repeated labels, keeping first-seen order.
func uniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
