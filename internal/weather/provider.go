package weather

import (
	"context"
	"time"
)

// Provider produces one historical record for a coordinate and calendar date.
// Failures should be classified with Transient or Permanent.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64, year, month, day int) (HistoricalRecord, error)
}

// Store is the contract every cache backend must satisfy. Get reports a miss
// with ok == false and a nil error; unreadable entries return ErrCorruptEntry.
type Store interface {
	Get(ctx context.Context, key CacheKey) (HistoricalRecord, bool, error)
	Put(ctx context.Context, key CacheKey, record HistoricalRecord) error
	Clear(ctx context.Context) error
}

// Pruner is implemented by stores that support age based housekeeping.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}
