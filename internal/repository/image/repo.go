package image

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pictag/internal/db"
	"github.com/kailas-cloud/pictag/internal/domain"
	domimage "github.com/kailas-cloud/pictag/internal/domain/image"
)

// fetchBatch bounds the number of keys per GetMulti round-trip.
const fetchBatch = 500

// store is the consumer interface for image records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Repo persists image metadata in a key-value store and serves as the search corpus provider.
// Records live under <prefix>image:<id>; IDs come from the <prefix>image_seq counter.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// New creates an image repository.
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: keyPrefix, now: time.Now, logger: logger}
}

// WithClock overrides the creation timestamp source (tests).
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Create assigns the next ID to the draft and stores the record.
func (r *Repo) Create(ctx context.Context, d domimage.Draft) (domimage.Record, error) {
	if err := d.Validate(); err != nil {
		return domimage.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	id, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return domimage.Record{}, unavailable("allocate image id", err)
	}

	rec, err := domimage.New(id, d, r.now())
	if err != nil {
		return domimage.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	data, err := marshalRecord(&rec)
	if err != nil {
		return domimage.Record{}, err
	}
	if err := r.store.Set(ctx, r.key(id), data); err != nil {
		return domimage.Record{}, unavailable("set "+r.key(id), err)
	}
	return rec, nil
}

// Get returns an image record by ID.
func (r *Repo) Get(ctx context.Context, id int64) (domimage.Record, error) {
	key := r.key(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domimage.Record{}, domain.ErrImageNotFound
		}
		return domimage.Record{}, unavailable("get "+key, err)
	}
	rec, err := unmarshalRecord(data)
	if err != nil {
		return domimage.Record{}, unavailable("decode "+key, err)
	}
	return rec, nil
}

// Delete removes an image record.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	key := r.key(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return unavailable("exists "+key, err)
	}
	if !exists {
		return domain.ErrImageNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return unavailable("del "+key, err)
	}
	return nil
}

// ListAll returns every stored record once, ordered by ascending ID (upload order).
// Records that fail to decode are skipped and logged.
func (r *Repo) ListAll(ctx context.Context) ([]domimage.Record, error) {
	keys, err := r.store.ScanPrefix(ctx, r.recordPrefix())
	if err != nil {
		return nil, unavailable("scan images", err)
	}

	keys = uniqueKeys(keys)

	records := make([]domimage.Record, 0, len(keys))
	for start := 0; start < len(keys); start += fetchBatch {
		end := min(start+fetchBatch, len(keys))
		values, err := r.store.GetMulti(ctx, keys[start:end])
		if err != nil {
			return nil, unavailable("fetch images", err)
		}
		for i, data := range values {
			if data == nil {
				continue // deleted between SCAN and GET
			}
			rec, err := unmarshalRecord(data)
			if err != nil {
				r.logger.Warn("Skipping undecodable image record",
					zap.String("key", keys[start+i]), zap.Error(err))
				continue
			}
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })
	return slices.CompactFunc(records, func(a, b domimage.Record) bool { return a.ID() == b.ID() }), nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (r *Repo) key(id int64) string {
	return r.recordPrefix() + strconv.FormatInt(id, 10)
}

func (r *Repo) recordPrefix() string { return r.prefix + "image:" }

func (r *Repo) seqKey() string { return r.prefix + "image_seq" }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}
