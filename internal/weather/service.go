package weather

import (
	"context"
	"fmt"

	"github.com/i474232898/weather-prediction/internal/logger"
	"github.com/i474232898/weather-prediction/internal/metrics"
)

// Service produces predictions from historical samples.
type Service struct {
	fetcher    *Fetcher
	cache      Store
	provider   string
	thresholds Thresholds
	log        logger.Logger
}

// NewService creates a new Service.
func NewService(fetcher *Fetcher, thresholds Thresholds, log logger.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		cache:      fetcher.cache,
		provider:   fetcher.provider.Name(),
		thresholds: thresholds,
		log:        log.WithField("component", "prediction_service"),
	}
}

// Provider returns the name of the configured data provider.
func (s *Service) Provider() string {
	return s.provider
}

// Predict gathers the historical samples for the request's calendar day and
// summarises them. It fails with ErrNoHistoricalData when not a single year
// could be obtained; partial histories are reported with reduced confidence.
func (s *Service) Predict(ctx context.Context, req PredictionRequest) (*PredictionResult, error) {
	month, day := int(req.TargetDate.Month()), req.TargetDate.Day()

	records, report := s.fetcher.FetchHistory(ctx, req.Latitude, req.Longitude, month, day)
	metrics.YearsObtained.Observe(float64(len(records)))

	agg, err := AggregateHistory(records, s.fetcher.YearsBack(), s.thresholds)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues("no_data").Inc()
		s.log.Errorf("no historical data for %s on %02d-%02d (batch %s, failed=%d abandoned=%d)",
			Location{Lat: req.Latitude, Lon: req.Longitude}.Key(), month, day,
			report.BatchID, report.Failed, report.Abandoned)
		return nil, fmt.Errorf("predict %s: %w", req.TargetDate.Format("2006-01-02"), err)
	}

	status := "complete"
	if len(records) < report.Requested {
		status = "partial"
	}
	metrics.PredictionsTotal.WithLabelValues(status).Inc()

	result := Assemble(agg, records)
	return &result, nil
}

// ClearCache removes every cached historical sample.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.log.Info("historical cache cleared")
	return nil
}
