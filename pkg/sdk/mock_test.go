package pictag

import (
	"context"
	"time"

	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pictag/internal/usecase/health"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

// --- imageUseCase mock ---

type mockImageUC struct {
	createFn func(ctx context.Context, d domimage.Draft) (domimage.Record, error)
	getFn    func(ctx context.Context, id int64) (domimage.Record, error)
	listFn   func(ctx context.Context) ([]domimage.Record, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockImageUC) Create(ctx context.Context, d domimage.Draft) (domimage.Record, error) {
	return m.createFn(ctx, d)
}

func (m *mockImageUC) Get(ctx context.Context, id int64) (domimage.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockImageUC) List(ctx context.Context) ([]domimage.Record, error) {
	return m.listFn(ctx)
}

func (m *mockImageUC) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, query string, limit int) ([]result.Result, error)
}

func (m *mockSearchUC) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	return m.searchFn(ctx, query, limit)
}

// --- taggingUseCase mock ---

type mockTaggingUC struct {
	tagFn func(ctx context.Context, uploads []tagging.Upload) ([]tagging.Tagged, error)
}

func (m *mockTaggingUC) Tag(ctx context.Context, uploads []tagging.Upload) ([]tagging.Tagged, error) {
	return m.tagFn(ctx, uploads)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- helpers ---

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecord(id int64, tags ...string) domimage.Record {
	return domimage.Reconstruct(id, "https://img/"+tags[0]+".jpg", tags[0]+".jpg", tags, nil, testTime)
}
