package image

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// MaxURLLength mirrors the url column limit of the metadata table.
	MaxURLLength = 500
	// MaxFilenameLength mirrors the filename column limit of the metadata table.
	MaxFilenameLength = 255
)

// Field identifies which list of an image a candidate string came from.
type Field string

const (
	// FieldTag marks a detector label.
	FieldTag Field = "tag"
	// FieldCaption marks a generated caption.
	FieldCaption Field = "caption"
)

// Record is the image metadata aggregate (immutable value object).
// Slices passed in or handed out are copies.
type Record struct {
	id        int64
	url       string
	filename  string
	tags      []string
	captions  []string
	createdAt time.Time
}

// Draft is an image record before the store assigns it an ID.
type Draft struct {
	URL      string
	Filename string
	Tags     []string
	Captions []string
}

// Validate checks the draft against the metadata column constraints.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if len(d.URL) > MaxURLLength {
		return fmt.Errorf("url too long (max %d)", MaxURLLength)
	}
	if strings.TrimSpace(d.Filename) == "" {
		return fmt.Errorf("filename is required")
	}
	if len(d.Filename) > MaxFilenameLength {
		return fmt.Errorf("filename too long (max %d)", MaxFilenameLength)
	}
	return nil
}

// New validates the draft and creates a Record with the given ID and creation time.
func New(id int64, d Draft, createdAt time.Time) (Record, error) {
	if id <= 0 {
		return Record{}, fmt.Errorf("image ID must be positive, got %d", id)
	}
	if err := d.Validate(); err != nil {
		return Record{}, err
	}
	return Record{
		id:        id,
		url:       d.URL,
		filename:  d.Filename,
		tags:      cloneStrings(d.Tags),
		captions:  cloneStrings(d.Captions),
		createdAt: createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id int64, url, filename string, tags, captions []string, createdAt time.Time) Record {
	return Record{
		id:        id,
		url:       url,
		filename:  filename,
		tags:      slices.Clone(tags),
		captions:  slices.Clone(captions),
		createdAt: createdAt,
	}
}

// ID returns the image identifier.
func (r *Record) ID() int64 { return r.id }

// URL returns the storage URL.
func (r *Record) URL() string { return r.url }

// Filename returns the original upload filename.
func (r *Record) Filename() string { return r.filename }

// Tags returns the detector labels in stored order.
func (r *Record) Tags() []string { return slices.Clone(r.tags) }

// Captions returns the generated captions in stored order.
func (r *Record) Captions() []string { return slices.Clone(r.captions) }

// CreatedAt returns the upload timestamp (UTC).
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// EachText calls fn for every tag and then every caption, in stored order.
// Iteration stops when fn returns false.
func (r *Record) EachText(fn func(field Field, text string) bool) {
	for _, t := range r.tags {
		if !fn(FieldTag, t) {
			return
		}
	}
	for _, c := range r.captions {
		if !fn(FieldCaption, c) {
			return
		}
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
