package result

import (
	"slices"

	"github.com/kailas-cloud/pictag/internal/domain/image"
)

// Result is a single search hit: one image and its best score.
type Result struct {
	id       int64
	url      string
	filename string
	tags     []string
	captions []string
	score    float64
	exact    bool
}

// New creates a search result from the matched record.
// exact marks a substring match, which always scores 1.0.
func New(rec *image.Record, score float64, exact bool) Result {
	return Result{
		id:       rec.ID(),
		url:      rec.URL(),
		filename: rec.Filename(),
		tags:     rec.Tags(),
		captions: rec.Captions(),
		score:    score,
		exact:    exact,
	}
}

// ID returns the image identifier.
func (r *Result) ID() int64 { return r.id }

// URL returns the image storage URL.
func (r *Result) URL() string { return r.url }

// Filename returns the image filename.
func (r *Result) Filename() string { return r.filename }

// Tags returns a copy of the image tags.
func (r *Result) Tags() []string { return slices.Clone(r.tags) }

// Captions returns a copy of the image captions.
func (r *Result) Captions() []string { return slices.Clone(r.captions) }

// Score returns the relevance score in [0, 1].
func (r *Result) Score() float64 { return r.score }

// Exact reports whether the score came from a substring match.
func (r *Result) Exact() bool { return r.exact }
