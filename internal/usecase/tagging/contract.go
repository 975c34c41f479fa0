package tagging

import (
	"context"

	"github.com/kailas-cloud/pictag/internal/transport/huggingface"
)

// Captioner generates natural-language captions for an image.
type Captioner interface {
	Caption(ctx context.Context, img []byte) ([]string, error)
}

// Detector finds labelled objects in an image.
type Detector interface {
	Detect(ctx context.Context, img []byte) ([]huggingface.Detection, error)
}
