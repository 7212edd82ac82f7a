package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-prediction/internal/weather"
)

const (
	tempPrefix = ".tmp-"
	// Temp files older than this belong to a Put that died before its rename.
	staleTempAge = 10 * time.Minute
)

// FileStore keeps one JSON document per cache key under
// <dir>/<namespace>/<location>/<MM-DD>/<YYYY>.json.
type FileStore struct {
	root string
}

// NewFileStore creates the namespace directory if needed.
func NewFileStore(dir, namespace string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is required")
	}
	root := filepath.Join(dir, namespace)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key weather.CacheKey) string {
	return filepath.Join(
		s.root,
		key.Location,
		fmt.Sprintf("%02d-%02d", key.Month, key.Day),
		strconv.Itoa(key.Year)+".json",
	)
}

// Get reads the entry for key. Unreadable JSON returns ErrCorruptEntry.
func (s *FileStore) Get(_ context.Context, key weather.CacheKey) (weather.HistoricalRecord, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return weather.HistoricalRecord{}, false, nil
	}
	if err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("file store: read %s: %w", key, err)
	}

	var entry weather.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("%w: %s: %v", weather.ErrCorruptEntry, key, err)
	}

	rec := entry.Record
	rec.Year = key.Year
	return rec, true, nil
}

// Put writes to a temporary file in the target directory and renames it into
// place, so readers never observe a partial document. Nothing is committed
// once ctx is done.
func (s *FileStore) Put(ctx context.Context, key weather.CacheKey, record weather.HistoricalRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("file store: put %s: %w", key, err)
	}

	target := s.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file store: create %s: %w", dir, err)
	}

	data, err := json.Marshal(weather.CacheEntry{
		Key:      key,
		Record:   record,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: close %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: put %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: rename %s: %w", key, err)
	}
	return nil
}

// Clear removes the whole namespace and recreates it empty.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("file store: clear: %w", err)
	}
	return os.MkdirAll(s.root, 0o755)
}

// Prune deletes entries whose file was last written more than olderThan ago,
// along with temp files left behind by interrupted writes. Only entries count
// toward the returned total.
func (s *FileStore) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)
	tempCutoff := now.Add(-staleTempAge)
	removed := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		temp := strings.HasPrefix(d.Name(), tempPrefix)
		if !temp && filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// Renamed or removed by a concurrent Put.
			return nil
		}
		if err != nil {
			return err
		}
		if temp {
			if info.ModTime().Before(tempCutoff) {
				if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("file store: prune: %w", err)
	}
	return removed, nil
}
