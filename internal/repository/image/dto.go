package image

import (
	"encoding/json"
	"fmt"
	"time"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// recordJSON is the stored representation of an image record.
type recordJSON struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Tags      []string  `json:"tags"`
	Captions  []string  `json:"captions"`
	Timestamp time.Time `json:"timestamp"`
}

func marshalRecord(r *domimage.Record) ([]byte, error) {
	data, err := json.Marshal(recordJSON{
		ID:        r.ID(),
		URL:       r.URL(),
		Filename:  r.Filename(),
		Tags:      r.Tags(),
		Captions:  r.Captions(),
		Timestamp: r.CreatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image %d: %w", r.ID(), err)
	}
	return data, nil
}

func unmarshalRecord(data []byte) (domimage.Record, error) {
	var j recordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return domimage.Record{}, fmt.Errorf("unmarshal image: %w", err)
	}
	if j.ID <= 0 {
		return domimage.Record{}, fmt.Errorf("unmarshal image: invalid id %d", j.ID)
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	if j.Captions == nil {
		j.Captions = []string{}
	}
	return domimage.Reconstruct(j.ID, j.URL, j.Filename, j.Tags, j.Captions, j.Timestamp), nil
}
