package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/pictag/internal/domain"
)

// Detection is one object found by the detection model.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

// Box is a detection bounding box in pixels.
type Box struct {
	XMin int `json:"xmin"`
	YMin int `json:"ymin"`
	XMax int `json:"xmax"`
	YMax int `json:"ymax"`
}

type captionItem struct {
	GeneratedText *string `json:"generated_text"`
}

// Caption generates captions for an image. Empty captions are dropped.
func (c *Client) Caption(ctx context.Context, img []byte) ([]string, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("caption empty image: %w", domain.ErrInvalidInput)
	}

	var items []captionItem
	if err := c.post(ctx, taskCaption, c.captionModel, contentType(img), img, &items,
		domain.ErrTaggingUnavailable); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("caption response is empty: %w", domain.ErrMalformedResponse)
	}

	captions := make([]string, 0, len(items))
	for i, it := range items {
		if it.GeneratedText == nil {
			return nil, fmt.Errorf("caption %d has no generated_text: %w", i, domain.ErrMalformedResponse)
		}
		if text := strings.TrimSpace(*it.GeneratedText); text != "" {
			captions = append(captions, text)
		}
	}
	return captions, nil
}

// Detect runs object detection on an image.
func (c *Client) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("detect on empty image: %w", domain.ErrInvalidInput)
	}

	var dets []Detection
	if err := c.post(ctx, taskDetection, c.detectionModel, contentType(img), img, &dets,
		domain.ErrTaggingUnavailable); err != nil {
		return nil, err
	}
	for i, d := range dets {
		if strings.TrimSpace(d.Label) == "" {
			return nil, fmt.Errorf("detection %d has no label: %w", i, domain.ErrMalformedResponse)
		}
	}
	return dets, nil
}

func contentType(img []byte) string {
	ct := http.DetectContentType(img)
	if !strings.HasPrefix(ct, "image/") {
		return "application/octet-stream"
	}
	return ct
}
