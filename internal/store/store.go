package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/i474232898/weather-prediction/internal/weather"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend   string
	Dir       string
	Namespace string
	TTL       time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN string
}

// Open builds the backend named by opts.Backend. The returned closer is a
// no-op for backends without a connection.
func Open(ctx context.Context, opts Options) (weather.Store, io.Closer, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "file":
		s, err := NewFileStore(opts.Dir, opts.Namespace)
		return s, nopCloser{}, err
	case "memory":
		return NewMemoryStore(0, opts.TTL), nopCloser{}, nil
	case "redis":
		s, err := NewRedisStore(ctx, RedisOptions{
			Addr:      opts.RedisAddr,
			Password:  opts.RedisPassword,
			DB:        opts.RedisDB,
			Namespace: opts.Namespace,
			TTL:       opts.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "mysql":
		s, err := NewMySQLStore(ctx, opts.MySQLDSN, opts.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q (use file, memory, redis or mysql)", opts.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
