package cache

import (
	"context"
	"fmt"
	"time"

	"cycleview/internal/models"
)

// Entry is one cached API response. Exactly one of List and Detail is set.
type Entry struct {
	FetchedAt time.Time           `json:"fetchedAt"`
	List      *models.CycleList   `json:"list,omitempty"`
	Detail    *models.CycleDetail `json:"detail,omitempty"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store persists entries by key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Clear(ctx context.Context) error
}

// ListKey is the cache key of a list request.
func ListKey(imei string, limit int) string {
	return fmt.Sprintf("list:%s:%d", imei, limit)
}

// DetailKey is the cache key of a detail request.
func DetailKey(imei string, cycleNumber int) string {
	return fmt.Sprintf("detail:%s:%d", imei, cycleNumber)
}

// Metadata describes a cache file.
type Metadata struct {
	Version     int
	CreatedAt   time.Time
	LastUpdated time.Time
}

// fileData is the gob-encoded layout of a cache file. Entries hold JSON so
// the free-form filter maps survive without gob type registration.
type fileData struct {
	Metadata Metadata
	Entries  map[string][]byte
}
