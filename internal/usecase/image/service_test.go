package image

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// --- Mocks ---

type mockRepo struct {
	records   map[int64]domimage.Record
	nextID    int64
	createErr error
	listErr   error
	created   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: map[int64]domimage.Record{}}
}

func (m *mockRepo) Create(_ context.Context, d domimage.Draft) (domimage.Record, error) {
	m.created++
	if m.createErr != nil {
		return domimage.Record{}, m.createErr
	}
	m.nextID++
	rec, err := domimage.New(m.nextID, d, time.Unix(0, 0))
	if err != nil {
		return domimage.Record{}, err
	}
	m.records[rec.ID()] = rec
	return rec, nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (domimage.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return domimage.Record{}, domain.ErrImageNotFound
	}
	return rec, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockRepo) ListAll(_ context.Context) ([]domimage.Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domimage.Record, 0, len(m.records))
	for id := int64(1); id <= m.nextID; id++ {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// --- Tests ---

func TestCreate(t *testing.T) {
	svc := New(newMockRepo())

	rec, err := svc.Create(context.Background(), domimage.Draft{
		URL:      "https://cdn.example/dog.jpg",
		Filename: "dog.jpg",
		Tags:     []string{"dog"},
		Captions: []string{"a dog running"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID() != 1 || rec.Filename() != "dog.jpg" {
		t.Errorf("unexpected record: id=%d filename=%q", rec.ID(), rec.Filename())
	}
}

func TestCreate_Invalid(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo)

	_, err := svc.Create(context.Background(), domimage.Draft{Filename: "dog.jpg"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if repo.created != 0 {
		t.Error("invalid draft must not reach the repository")
	}
}

func TestCreate_StorageError(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = domain.ErrStorageUnavailable

	_, err := New(repo).Create(context.Background(), domimage.Draft{URL: "u", Filename: "f"})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestGetAndDelete(t *testing.T) {
	svc := New(newMockRepo())
	rec, err := svc.Create(context.Background(), domimage.Draft{URL: "u", Filename: "f"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(context.Background(), rec.ID())
	if err != nil || got.ID() != rec.ID() {
		t.Fatalf("get: %v, %d", err, got.ID())
	}

	if err := svc.Delete(context.Background(), rec.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), rec.ID()); !errors.Is(err, domain.ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound after delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), rec.ID()); !errors.Is(err, domain.ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound on second delete, got %v", err)
	}
}

func TestGet_NonPositiveID(t *testing.T) {
	svc := New(newMockRepo())
	for _, id := range []int64{0, -3} {
		if _, err := svc.Get(context.Background(), id); !errors.Is(err, domain.ErrImageNotFound) {
			t.Errorf("Get(%d) expected ErrImageNotFound, got %v", id, err)
		}
	}
}

func TestList(t *testing.T) {
	svc := New(newMockRepo())
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if _, err := svc.Create(context.Background(), domimage.Draft{URL: "u/" + name, Filename: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recs, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 || recs[0].ID() != 1 || recs[2].ID() != 3 {
		t.Errorf("unexpected list order")
	}
}
