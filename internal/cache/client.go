package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cycleview/internal/metrics"
	"cycleview/internal/models"
)

// Fetcher is the uncached API surface CachedClient wraps.
type Fetcher interface {
	ListCycles(ctx context.Context, imei string, limit int) (*models.CycleList, error)
	GetCycleDetail(ctx context.Context, imei string, cycleNumber int) (*models.CycleDetail, error)
}

// CachedClient wraps the API client with an optional response cache.
// When disabled it passes every call straight through.
type CachedClient struct {
	client  Fetcher
	store   Store
	ttl     time.Duration
	enabled bool
	log     *slog.Logger
	now     func() time.Time
}

// NewCachedClient creates a caching wrapper around the API client. store
// may be nil when enabled is false.
func NewCachedClient(client Fetcher, store Store, ttl time.Duration, enabled bool, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{
		client:  client,
		store:   store,
		ttl:     ttl,
		enabled: enabled && store != nil,
		log:     logger,
		now:     time.Now,
	}
}

func (cc *CachedClient) debugf(format string, args ...interface{}) {
	cc.log.Debug(fmt.Sprintf("[cache] "+format, args...))
}

// lookup returns a fresh entry for key, if any. Store errors count as a
// miss so a broken cache never blocks a fetch.
func (cc *CachedClient) lookup(ctx context.Context, kind, key string) (Entry, bool) {
	e, ok, err := cc.store.Get(ctx, key)
	if err != nil {
		cc.debugf("Warning: reading %s: %v", key, err)
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		return Entry{}, false
	}
	if !ok || !e.Fresh(cc.now(), cc.ttl) {
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return Entry{}, false
	}
	metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
	return e, true
}

func (cc *CachedClient) remember(ctx context.Context, key string, e Entry) {
	if err := cc.store.Put(ctx, key, e); err != nil {
		cc.debugf("Warning: failed to save %s: %v", key, err)
	}
}

// ListCycles serves a fresh cached list or fetches a new one.
func (cc *CachedClient) ListCycles(ctx context.Context, imei string, limit int) (*models.CycleList, error) {
	if !cc.enabled {
		return cc.client.ListCycles(ctx, imei, limit)
	}

	key := ListKey(imei, limit)
	if e, ok := cc.lookup(ctx, "list", key); ok && e.List != nil {
		cc.debugf("Serving %s from cache (%d cycles)", key, len(e.List.Items))
		return e.List, nil
	}

	list, err := cc.client.ListCycles(ctx, imei, limit)
	if err != nil {
		return nil, err
	}
	cc.remember(ctx, key, Entry{FetchedAt: cc.now(), List: list})
	return list, nil
}

// GetCycleDetail serves a fresh cached detail or fetches a new one.
func (cc *CachedClient) GetCycleDetail(ctx context.Context, imei string, cycleNumber int) (*models.CycleDetail, error) {
	if !cc.enabled {
		return cc.client.GetCycleDetail(ctx, imei, cycleNumber)
	}

	key := DetailKey(imei, cycleNumber)
	if e, ok := cc.lookup(ctx, "detail", key); ok && e.Detail != nil {
		cc.debugf("Serving %s from cache", key)
		return e.Detail, nil
	}

	detail, err := cc.client.GetCycleDetail(ctx, imei, cycleNumber)
	if err != nil {
		return nil, err
	}
	cc.remember(ctx, key, Entry{FetchedAt: cc.now(), Detail: detail})
	return detail, nil
}

// ClearCache removes all cached data
func (cc *CachedClient) ClearCache(ctx context.Context) error {
	if cc.store == nil {
		return nil
	}
	return cc.store.Clear(ctx)
}

// DumpCache writes cache contents to the given writer, for stores that
// can describe themselves.
func (cc *CachedClient) DumpCache(w io.Writer) {
	d, ok := cc.store.(interface{ Dump(io.Writer) })
	if !ok {
		fmt.Fprintf(w, "cache store %T cannot be dumped\n", cc.store)
		return
	}
	d.Dump(w)
}
