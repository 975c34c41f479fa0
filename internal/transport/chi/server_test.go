package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
	"github.com/kailas-cloud/pictag/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pictag/internal/usecase/health"
	"github.com/kailas-cloud/pictag/internal/usecase/tagging"
)

// --- Mocks ---

type mockImages struct {
	records map[int64]domimage.Record
	err     error
}

func (m *mockImages) Create(_ context.Context, d domimage.Draft) (domimage.Record, error) {
	if m.err != nil {
		return domimage.Record{}, m.err
	}
	if err := d.Validate(); err != nil {
		return domimage.Record{}, fmt.Errorf("validate image: %w: %w", domain.ErrInvalidRequest, err)
	}
	id := int64(len(m.records) + 1)
	rec, err := domimage.New(id, d, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		return domimage.Record{}, err
	}
	m.records[id] = rec
	return rec, nil
}

func (m *mockImages) Get(_ context.Context, id int64) (domimage.Record, error) {
	if m.err != nil {
		return domimage.Record{}, m.err
	}
	rec, ok := m.records[id]
	if !ok {
		return domimage.Record{}, domain.ErrImageNotFound
	}
	return rec, nil
}

func (m *mockImages) List(_ context.Context) ([]domimage.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domimage.Record, 0, len(m.records))
	for id := int64(1); id <= int64(len(m.records)); id++ {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *mockImages) Delete(_ context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(m.records, id)
	return nil
}

type mockSearch struct {
	results   []result.Result
	err       error
	tokens    int
	lastQuery string
	lastLimit int
}

func (m *mockSearch) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	m.lastQuery, m.lastLimit = query, limit
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	if m.err != nil {
		return nil, m.err
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return m.results, nil
}

type mockTagging struct {
	err     error
	uploads []tagging.Upload
}

func (m *mockTagging) Tag(_ context.Context, uploads []tagging.Upload) ([]tagging.Tagged, error) {
	m.uploads = uploads
	if m.err != nil {
		return nil, m.err
	}
	out := make([]tagging.Tagged, len(uploads))
	for i, u := range uploads {
		out[i] = tagging.Tagged{
			Filename:  u.Filename,
			Tags:      []string{"dog"},
			Captions:  []string{"a dog"},
			ImageSize: len(u.Data),
		}
	}
	return out, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type fixture struct {
	images  *mockImages
	search  *mockSearch
	tagging *mockTagging
	health  *mockHealth
	handler http.Handler
}

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()
	f := &fixture{
		images:  &mockImages{records: map[int64]domimage.Record{}},
		search:  &mockSearch{},
		tagging: &mockTagging{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(f.images, f.search, f.tagging, f.health, limits, zap.NewNop())
	f.handler = NewRouter(srv, zap.NewNop(), RouterOptions{CORSOrigins: []string{"*"}, CORSMaxAge: 300})
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func sampleResult(id int64, score float64, exact bool) result.Result {
	rec := domimage.Reconstruct(id, fmt.Sprintf("https://cdn.example/%d.jpg", id), fmt.Sprintf("%d.jpg", id),
		[]string{"cat"}, nil, time.Time{})
	return result.New(&rec, score, exact)
}

// --- Tests ---

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t, Limits{})
	req := httptest.NewRequest(http.MethodOptions, "/search?query=cat", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := f.do(t, req)

	if rr.Code < 200 || rr.Code >= 300 {
		t.Fatalf("expected 2xx for preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodGet) {
		t.Errorf("Access-Control-Allow-Methods = %q, want GET", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "300" {
		t.Errorf("Access-Control-Max-Age = %q, want 300", got)
	}
	if f.search.lastQuery != "" {
		t.Errorf("preflight reached the search handler")
	}
}

func TestCORS_SimpleRequestCarriesOrigin(t *testing.T) {
	f := newFixture(t, Limits{})
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	rr := f.do(t, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORS_Disabled(t *testing.T) {
	f := newFixture(t, Limits{})
	srv := NewServer(f.images, f.search, f.tagging, f.health, Limits{}, zap.NewNop())
	h := NewRouter(srv, zap.NewNop(), RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

func TestRoot(t *testing.T) {
	f := newFixture(t, Limits{})
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusOK || rr.Body.String() != banner {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, Limits{DefaultLimit: 25, MaxLimit: 100})
	f.search.results = []result.Result{sampleResult(1, 1.0, true), sampleResult(2, 0.7, false)}
	f.search.tokens = 12

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/search?q=cat", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[SearchResponse](t, rr)
	if resp.Total != 2 || resp.Items[0].ID != 1 || !resp.Items[0].Exact || resp.Items[1].Score != 0.7 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if f.search.lastLimit != 25 {
		t.Errorf("expected default limit 25, got %d", f.search.lastLimit)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "12" {
		t.Errorf("X-Embedding-Tokens = %q, want 12", rr.Header().Get("X-Embedding-Tokens"))
	}
}

func TestSearch_ExplicitLimit(t *testing.T) {
	f := newFixture(t, Limits{MaxLimit: 100})

	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/search?q=dog&limit=5", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if f.search.lastLimit != 5 || f.search.lastQuery != "dog" {
		t.Errorf("unexpected call: q=%q limit=%d", f.search.lastQuery, f.search.lastLimit)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("no embedding calls means no token header")
	}
}

func TestSearch_BadParams(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing q", "/search"},
		{"empty q", "/search?q="},
		{"blank q", "/search?q=%20%20"},
		{"limit not a number", "/search?q=cat&limit=abc"},
		{"limit zero", "/search?q=cat&limit=0"},
		{"limit above max", "/search?q=cat&limit=101"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Limits{MaxLimit: 100})
			rr := f.do(t, httptest.NewRequest(http.MethodGet, tc.url, http.NoBody))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorResponseCode
	}{
		{fmt.Errorf("load corpus: %w", domain.ErrStorageUnavailable), http.StatusServiceUnavailable,
			ErrorResponseCodeStorageUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeRequestCancelled},
		{errors.New("boom"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			f := newFixture(t, Limits{})
			f.search.err = tc.err

			rr := f.do(t, httptest.NewRequest(http.MethodGet, "/search?q=cat", http.NoBody))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tc.code {
				t.Errorf("code = %q, want %q", resp.Code, tc.code)
			}
			if strings.Contains(resp.Message, "boom") {
				t.Error("internal error details must not leak")
			}
		})
	}
}

func TestImagesCRUD(t *testing.T) {
	f := newFixture(t, Limits{})

	body := `{"url":"https://cdn.example/a.jpg","filename":"a.jpg","tags":["dog"],"captions":["a dog running"]}`
	rr := f.do(t, httptest.NewRequest(http.MethodPost, "/images", strings.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[ImageResponse](t, rr)
	if created.ID != 1 || rr.Header().Get("Location") != "/images/1" {
		t.Errorf("unexpected created image: %+v, location %q", created, rr.Header().Get("Location"))
	}

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/images/1", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	got := decode[ImageResponse](t, rr)
	if got.Filename != "a.jpg" || len(got.Captions) != 1 {
		t.Errorf("unexpected image: %+v", got)
	}

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/images", http.NoBody))
	list := decode[ImageListResponse](t, rr)
	if list.Total != 1 {
		t.Errorf("list total = %d, want 1", list.Total)
	}

	rr = f.do(t, httptest.NewRequest(http.MethodDelete, "/images/1", http.NoBody))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/images/1", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rr.Code)
	}
}

func TestCreateImage_Invalid(t *testing.T) {
	f := newFixture(t, Limits{})

	rr := f.do(t, httptest.NewRequest(http.MethodPost, "/images", strings.NewReader(`{"filename":"a.jpg"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr)
	if !strings.Contains(resp.Message, "url is required") {
		t.Errorf("expected validation detail, got %q", resp.Message)
	}

	rr = f.do(t, httptest.NewRequest(http.MethodPost, "/images", strings.NewReader(`{not json`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestGetImage_BadID(t *testing.T) {
	f := newFixture(t, Limits{})
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/images/abc", http.NoBody))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGenerateTags(t *testing.T) {
	f := newFixture(t, Limits{})
	body, ct := multipartBody(t, "images", map[string]string{"dog.jpg": "fake-jpeg-bytes"})

	req := httptest.NewRequest(http.MethodPost, "/images/tags", body)
	req.Header.Set("Content-Type", ct)
	rr := f.do(t, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[TagResponse](t, rr)
	if resp.Error || len(resp.Data) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Data[0].Filename != "dog.jpg" || resp.Data[0].ImageSize != len("fake-jpeg-bytes") {
		t.Errorf("unexpected item: %+v", resp.Data[0])
	}
}

func TestGenerateTags_LegacyPath(t *testing.T) {
	f := newFixture(t, Limits{})
	body, ct := multipartBody(t, "images", map[string]string{"a.png": "x"})

	req := httptest.NewRequest(http.MethodPost, "/generateTags", body)
	req.Header.Set("Content-Type", ct)
	if rr := f.do(t, req); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestGenerateTags_MissingField(t *testing.T) {
	f := newFixture(t, Limits{})
	body, ct := multipartBody(t, "photos", map[string]string{"dog.jpg": "x"})

	req := httptest.NewRequest(http.MethodPost, "/images/tags", body)
	req.Header.Set("Content-Type", ct)
	rr := f.do(t, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if f.tagging.uploads != nil {
		t.Error("tagging must not run without images")
	}
}

func TestGenerateTags_TooLarge(t *testing.T) {
	f := newFixture(t, Limits{MaxUploadBytes: 1024})
	body, ct := multipartBody(t, "images", map[string]string{"big.jpg": strings.Repeat("x", 4096)})

	req := httptest.NewRequest(http.MethodPost, "/images/tags", body)
	req.Header.Set("Content-Type", ct)
	rr := f.do(t, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestGenerateTags_TooManyFiles(t *testing.T) {
	f := newFixture(t, Limits{MaxFiles: 1})
	body, ct := multipartBody(t, "images", map[string]string{"a.jpg": "a", "b.jpg": "b"})

	req := httptest.NewRequest(http.MethodPost, "/images/tags", body)
	req.Header.Set("Content-Type", ct)
	if rr := f.do(t, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGenerateTags_ModelsDown(t *testing.T) {
	f := newFixture(t, Limits{})
	f.tagging.err = fmt.Errorf("all failed: %w", domain.ErrTaggingUnavailable)
	body, ct := multipartBody(t, "images", map[string]string{"a.jpg": "a"})

	req := httptest.NewRequest(http.MethodPost, "/images/tags", body)
	req.Header.Set("Content-Type", ct)
	if rr := f.do(t, req); rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, Limits{})
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	f.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "embedding": healthuc.CheckError},
	}
	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "degraded" || resp.Checks["embedding"] != "error" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture(t, Limits{})
	rr := f.do(t, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr)
	if resp.Code != ErrorResponseCodeInternalError {
		t.Errorf("code = %q", resp.Code)
	}
}
