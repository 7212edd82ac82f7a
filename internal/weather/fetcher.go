package weather

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-prediction/internal/logger"
	"github.com/i474232898/weather-prediction/internal/metrics"
)

// FetcherConfig controls how a batch of per-year fetches is scheduled.
type FetcherConfig struct {
	YearsBack      int
	Concurrency    int
	SubmitInterval time.Duration // minimum delay between task submissions
	MaxRetries     int
	BackoffStep    time.Duration
	Timeout        time.Duration // wall clock bound for the whole batch
}

// DefaultFetcherConfig returns the production defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		YearsBack:      14,
		Concurrency:    7,
		SubmitInterval: 200 * time.Millisecond,
		MaxRetries:     3,
		BackoffStep:    3 * time.Second,
		Timeout:        240 * time.Second,
	}
}

// FetchReport summarises what happened to a batch.
type FetchReport struct {
	BatchID   string
	Requested int
	CacheHits int
	Fetched   int
	Failed    int
	Abandoned int
}

type taskResult struct {
	task      FetchTask
	record    HistoricalRecord
	err       error
	abandoned bool
}

// Fetcher collects one historical record per prior year, preferring the cache
// and delegating misses to the provider through a bounded worker pool.
type Fetcher struct {
	cfg      FetcherConfig
	provider Provider
	cache    Store
	log      logger.Logger
	flight   singleflight.Group

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. Zero config values fall back to defaults.
func NewFetcher(provider Provider, cache Store, cfg FetcherConfig, log logger.Logger) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.YearsBack <= 0 {
		cfg.YearsBack = def.YearsBack
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Fetcher{
		cfg:      cfg,
		provider: provider,
		cache:    cache,
		log:      log.WithField("component", "fetcher"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// YearsBack is the number of years each batch asks for.
func (f *Fetcher) YearsBack() int {
	return f.cfg.YearsBack
}

// FetchHistory returns the records that could be obtained for the given
// location and calendar day, most recent year first. Years that fail or are
// still pending at the batch deadline are omitted.
func (f *Fetcher) FetchHistory(ctx context.Context, lat, lon float64, month, day int) ([]HistoricalRecord, FetchReport) {
	report := FetchReport{
		BatchID:   uuid.NewString(),
		Requested: f.cfg.YearsBack,
	}
	log := f.log.WithFields(map[string]interface{}{
		"batch_id": report.BatchID,
		"location": Location{Lat: lat, Lon: lon}.Key(),
		"date":     fmt.Sprintf("%02d-%02d", month, day),
	})

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	currentYear := f.now().Year()
	records := make([]HistoricalRecord, 0, f.cfg.YearsBack)
	var tasks []FetchTask

	for year := currentYear - 1; year >= currentYear-f.cfg.YearsBack; year-- {
		key := NewCacheKey(lat, lon, month, day, year)

		rec, ok, err := f.cache.Get(ctx, key)
		metrics.RecordCacheLookup(ok, err)
		if err != nil {
			log.Warnf("cache read failed for %s, refetching: %v", key, err)
		}
		if ok && err == nil {
			rec.Year = year
			records = append(records, rec)
			report.CacheHits++
			continue
		}

		tasks = append(tasks, FetchTask{Key: key, Lat: lat, Lon: lon})
	}

	if len(tasks) > 0 {
		for _, r := range f.runPool(ctx, tasks, log) {
			switch {
			case r.abandoned:
				report.Abandoned++
			case r.err != nil:
				report.Failed++
				log.Warnf("year %d omitted: %v", r.task.Key.Year, r.err)
			default:
				records = append(records, r.record)
				report.Fetched++
			}
		}
	}

	SortByYearDesc(records)

	log.Infof("history batch done: %d/%d years (cache=%d fetched=%d failed=%d abandoned=%d)",
		len(records), report.Requested, report.CacheHits, report.Fetched, report.Failed, report.Abandoned)

	return records, report
}

// runPool feeds tasks to a fixed set of workers at the configured pace and
// returns one result per task. Tasks still outstanding when ctx expires are
// reported as abandoned.
func (f *Fetcher) runPool(ctx context.Context, tasks []FetchTask, log logger.Logger) []taskResult {
	queue := make(chan FetchTask, len(tasks))
	out := make(chan taskResult, len(tasks))

	workers := f.cfg.Concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range queue {
				if ctx.Err() != nil {
					out <- taskResult{task: task, abandoned: true}
					continue
				}
				rec, err := f.runTask(ctx, task, log)
				out <- taskResult{
					task:      task,
					record:    rec,
					err:       err,
					abandoned: err != nil && ctx.Err() != nil,
				}
			}
			return nil
		})
	}

	limiter := rate.NewLimiter(rate.Every(f.cfg.SubmitInterval), 1)
	submitted := 0
	for _, task := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		queue <- task
		submitted++
	}
	close(queue)

	results := make([]taskResult, 0, len(tasks))
	pending := make(map[CacheKey]FetchTask, len(tasks))
	for _, task := range tasks {
		pending[task.Key] = task
	}

collect:
	for len(results) < submitted {
		select {
		case r := <-out:
			results = append(results, r)
			delete(pending, r.task.Key)
		case <-ctx.Done():
			break collect
		}
	}

	if len(results) == submitted {
		_ = g.Wait()
	} else {
		// Pick up anything that finished while the deadline fired.
		for drained := false; !drained; {
			select {
			case r := <-out:
				results = append(results, r)
				delete(pending, r.task.Key)
			default:
				drained = true
			}
		}
		log.Warnf("batch deadline reached with %d tasks outstanding", len(pending))
	}

	for _, task := range pending {
		results = append(results, taskResult{task: task, abandoned: true})
	}

	return results
}

// runTask executes a task with retries. Concurrent callers asking for the same
// key share one in-flight execution.
func (f *Fetcher) runTask(ctx context.Context, task FetchTask, log logger.Logger) (HistoricalRecord, error) {
	key := task.Key.String()
	run := func() (interface{}, error) {
		return f.attempt(ctx, task, log)
	}

	v, err, shared := f.flight.Do(key, run)
	if err != nil && shared && isContextErr(err) && ctx.Err() == nil {
		// The shared call ran under another caller's context, which ended.
		// This caller is still live, so it fetches again on its own.
		log.Debugf("shared fetch for %s cancelled elsewhere, retrying", task.Key)
		f.flight.Forget(key)
		v, err, _ = f.flight.Do(key, run)
	}
	if err != nil {
		return HistoricalRecord{}, err
	}
	return v.(HistoricalRecord), nil
}

func (f *Fetcher) attempt(ctx context.Context, task FetchTask, log logger.Logger) (HistoricalRecord, error) {
	name := f.provider.Name()
	key := task.Key

	for task.Attempt = 1; ; task.Attempt++ {
		start := time.Now()
		rec, err := f.provider.Fetch(ctx, task.Lat, task.Lon, key.Year, key.Month, key.Day)
		if err == nil {
			metrics.RecordProviderFetch(name, "success", time.Since(start))
			rec.Year = key.Year
			if rec.Date == "" {
				rec.Date = RecordDate(key.Year, key.Month, key.Day)
			}

			// Past the deadline the result is dropped without touching the cache.
			if ctx.Err() != nil {
				return HistoricalRecord{}, ctx.Err()
			}
			if err := f.cache.Put(ctx, key, rec); err != nil {
				log.Warnf("cache write failed for %s: %v", key, err)
			}
			return rec, nil
		}

		if isContextErr(err) || ctx.Err() != nil {
			metrics.RecordProviderFetch(name, "cancelled", time.Since(start))
			return HistoricalRecord{}, err
		}

		if IsPermanent(err) {
			metrics.RecordProviderFetch(name, KindPermanent.String(), time.Since(start))
			return HistoricalRecord{}, err
		}
		metrics.RecordProviderFetch(name, KindTransient.String(), time.Since(start))

		if task.Attempt > f.cfg.MaxRetries {
			return HistoricalRecord{}, fmt.Errorf("giving up after %d attempts: %w", task.Attempt, err)
		}

		delay := Backoff(task.Attempt, f.cfg.BackoffStep)
		metrics.FetchRetriesTotal.Inc()
		log.Debugf("transient failure for %s (attempt %d), retrying in %s: %v", key, task.Attempt, delay, err)

		if err := f.sleep(ctx, delay); err != nil {
			return HistoricalRecord{}, err
		}
	}
}

// SortByYearDesc orders records most recent first.
func SortByYearDesc(records []HistoricalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Year > records[j].Year
	})
}
