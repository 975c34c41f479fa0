package pictag

import "time"

// ImageDraft describes an image before it is stored.
type ImageDraft struct {
	URL      string
	Filename string
	Tags     []string
	Captions []string
}

// Image is a stored image record.
type Image struct {
	ID        int64
	URL       string
	Filename  string
	Tags      []string
	Captions  []string
	CreatedAt time.Time
}

// SearchHit is one ranked image.
type SearchHit struct {
	Image
	Score float64
	Exact bool // the query was a substring of a tag or caption
}

// Upload is raw image content to be tagged.
type Upload struct {
	Filename string
	Data     []byte
}

// TagResult is the tagging output for one upload.
type TagResult struct {
	Filename  string
	Tags      []string
	Captions  []string
	ImageSize int
}
