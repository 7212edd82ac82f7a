package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/i474232898/weather-prediction/internal/metrics"
	"github.com/i474232898/weather-prediction/internal/weather"
)

const historicalTable = "historical_cache"

// MySQLStore persists cached samples in a single table keyed by
// (namespace, location, month, day, year).
type MySQLStore struct {
	conn      *sql.DB
	namespace string
}

// NewMySQLStore opens the connection and initializes the schema.
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(ctx context.Context, dsn, namespace string) (*MySQLStore, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &MySQLStore{conn: conn, namespace: namespace}
	if err := s.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) initSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS historical_cache (
		namespace VARCHAR(64) NOT NULL,
		location VARCHAR(64) NOT NULL,
		month TINYINT NOT NULL,
		day TINYINT NOT NULL,
		year SMALLINT NOT NULL,
		record JSON NOT NULL,
		stored_at DATETIME(6) NOT NULL,
		PRIMARY KEY (namespace, location, month, day, year),
		INDEX idx_historical_cache_stored_at (stored_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`)
	return err
}

func (s *MySQLStore) Get(ctx context.Context, key weather.CacheKey) (rec weather.HistoricalRecord, ok bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("select", historicalTable, time.Since(start), err)
	}()

	var data []byte
	err = s.conn.QueryRowContext(ctx,
		`SELECT record FROM historical_cache
		 WHERE namespace = ? AND location = ? AND month = ? AND day = ? AND year = ?`,
		s.namespace, key.Location, key.Month, key.Day, key.Year,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.HistoricalRecord{}, false, nil
	}
	if err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("failed to query cache: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return weather.HistoricalRecord{}, false, fmt.Errorf("%w: %s: %v", weather.ErrCorruptEntry, key, err)
	}
	rec.Year = key.Year
	return rec, true, nil
}

func (s *MySQLStore) Put(ctx context.Context, key weather.CacheKey, record weather.HistoricalRecord) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("upsert", historicalTable, time.Since(start), err)
	}()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO historical_cache (namespace, location, month, day, year, record, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE record = VALUES(record), stored_at = VALUES(stored_at)`,
		s.namespace, key.Location, key.Month, key.Day, key.Year, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}
	return nil
}

func (s *MySQLStore) Clear(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("delete", historicalTable, time.Since(start), err)
	}()

	if _, err = s.conn.ExecContext(ctx, `DELETE FROM historical_cache WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Prune deletes rows stored more than olderThan ago.
func (s *MySQLStore) Prune(ctx context.Context, olderThan time.Duration) (n int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("prune", historicalTable, time.Since(start), err)
	}()

	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM historical_cache WHERE namespace = ? AND stored_at < ?`,
		s.namespace, time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *MySQLStore) Close() error {
	return s.conn.Close()
}
