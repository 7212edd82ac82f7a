package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-prediction/internal/weather"
)

func sampleRecord(year int) weather.HistoricalRecord {
	tmax, dir, pressure, uv := 24.5, 240.0, 1012.3, 6.0
	hour := 14
	return weather.HistoricalRecord{
		Year:           year,
		Date:           weather.RecordDate(year, 12, 25),
		TemperatureC:   18.2,
		TemperatureMax: &tmax,
		HourMax:        &hour,
		Humidity:       71,
		WindSpeed:      3.1,
		WindDirection:  &dir,
		Precipitation:  1.4,
		CloudCover:     55,
		Pressure:       &pressure,
		DewPoint:       12.9,
		UVIndex:        &uv,
		FeelsLike:      18.2,
	}
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s weather.Store) {
	t.Helper()
	ctx := context.Background()
	key := weather.NewCacheKey(4.7110, -74.0721, 12, 25, 2019)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "empty store must miss")

	rec := sampleRecord(2019)
	require.NoError(t, s.Put(ctx, key, rec))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// Coordinates that round to the same key share the entry.
	_, ok, err = s.Get(ctx, weather.NewCacheKey(4.7149, -74.0651, 12, 25, 2019))
	require.NoError(t, err)
	assert.True(t, ok)

	updated := sampleRecord(2019)
	updated.TemperatureC = 19.9
	require.NoError(t, s.Put(ctx, key, updated))
	got, _, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 19.9, got.TemperatureC, "last write wins")

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0, 0))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "synthetic")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s := NewMemoryStore(2, time.Hour)
	s.now = func() time.Time { return now }

	for i, year := range []int{2020, 2021, 2022} {
		now = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Put(ctx, weather.NewCacheKey(1, 1, 1, 1, year), sampleRecord(year)))
	}
	assert.Equal(t, 2, s.Len())

	_, ok, _ := s.Get(ctx, weather.NewCacheKey(1, 1, 1, 1, 2020))
	assert.False(t, ok, "oldest entry is evicted")

	now = now.Add(2 * time.Hour)
	_, ok, _ = s.Get(ctx, weather.NewCacheKey(1, 1, 1, 1, 2022))
	assert.False(t, ok, "expired entries read as misses")

	removed, err := s.Prune(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.Len())
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "openmeteo")
	require.NoError(t, err)

	key := weather.NewCacheKey(-33.8688, 151.2093, 2, 29, 2020)
	require.NoError(t, s.Put(context.Background(), key, sampleRecord(2020)))

	_, err = os.Stat(filepath.Join(dir, "openmeteo", "-33.87_151.21", "02-29", "2020.json"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "openmeteo", "-33.87_151.21", "02-29"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileStoreCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "synthetic")
	require.NoError(t, err)

	key := weather.NewCacheKey(1, 2, 3, 4, 2015)
	path := s.path(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok, err := s.Get(context.Background(), key)
	assert.False(t, ok)
	assert.ErrorIs(t, err, weather.ErrCorruptEntry)
}

func TestFileStoreNamespacesAreIsolated(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := weather.NewCacheKey(10, 10, 6, 1, 2018)

	synthetic, err := NewFileStore(dir, "synthetic")
	require.NoError(t, err)
	remote, err := NewFileStore(dir, "openmeteo")
	require.NoError(t, err)

	require.NoError(t, synthetic.Put(ctx, key, sampleRecord(2018)))

	_, ok, err := remote.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, remote.Clear(ctx))
	_, ok, err = synthetic.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "synthetic")
	require.NoError(t, err)
	ctx := context.Background()
	key := weather.NewCacheKey(1, 1, 1, 1, 2010)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := sampleRecord(2010)
			rec.TemperatureC = float64(i)
			assert.NoError(t, s.Put(ctx, key, rec))
		}(i)
	}
	wg.Wait()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStorePrune(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "synthetic")
	require.NoError(t, err)
	ctx := context.Background()

	oldKey := weather.NewCacheKey(1, 1, 1, 1, 2011)
	newKey := weather.NewCacheKey(1, 1, 1, 1, 2012)
	require.NoError(t, s.Put(ctx, oldKey, sampleRecord(2011)))
	require.NoError(t, s.Put(ctx, newKey, sampleRecord(2012)))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(s.path(oldKey), past, past))

	removed, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, _ := s.Get(ctx, newKey)
	assert.True(t, ok)
}

func TestFileStorePruneRemovesStaleTempFiles(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "synthetic")
	require.NoError(t, err)
	ctx := context.Background()

	key := weather.NewCacheKey(1, 1, 1, 1, 2015)
	require.NoError(t, s.Put(ctx, key, sampleRecord(2015)))
	dir := filepath.Dir(s.path(key))

	stale := filepath.Join(dir, tempPrefix+"stale")
	fresh := filepath.Join(dir, tempPrefix+"fresh")
	require.NoError(t, os.WriteFile(stale, []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	removed, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed, "temp files do not count as entries")

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "a write still in progress keeps its temp file")

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPutAfterCancelIsNotStored(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir(), "synthetic")
	require.NoError(t, err)

	for name, s := range map[string]weather.Store{
		"memory": NewMemoryStore(0, 0),
		"file":   fileStore,
	} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			key := weather.NewCacheKey(4.71, -74.07, 12, 25, 2019)
			err := s.Put(ctx, key, sampleRecord(2019))
			assert.ErrorIs(t, err, context.Canceled)

			_, ok, err := s.Get(context.Background(), key)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	entries, err := os.ReadDir(fileStore.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "a cancelled write leaves nothing on disk")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr, Namespace: "test"})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}
	s, err := NewMySQLStore(context.Background(), dsn, "test")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closer, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, closer.Close())

	s, _, err = Open(ctx, Options{Dir: t.TempDir(), Namespace: "synthetic"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, _, err = Open(ctx, Options{Backend: "cassandra"})
	assert.Error(t, err)
}
