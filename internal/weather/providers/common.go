package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-prediction/internal/common"
	"github.com/i474232898/weather-prediction/internal/weather"
)

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errNoData       = errors.New("no data for coordinate and date")
)

// newCircuitBreaker trips on transient failures only; permanent answers such
// as "no data here" mean the upstream is healthy.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			return err == nil || weather.IsPermanent(err)
		},
	})
}

// getJSON performs a single GET through the circuit breaker and decodes the
// body into out. Returned errors are classified for the fetch scheduler.
func getJSON(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, url string, out interface{}) error {
	if client == nil {
		return weather.Permanent(errNoHTTPClient)
	}

	_, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, weather.Permanent(err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, classifyTransportError(ctx, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, weather.Transient(errRateLimited)
		case resp.StatusCode >= 500:
			return nil, weather.Transient(fmt.Errorf("%w: %d", errServerError, resp.StatusCode))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, weather.Permanent(fmt.Errorf("%w: %d: %s", errUnexpected, resp.StatusCode, string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, weather.Transient(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return weather.Transient(fmt.Errorf("%w: %v", errCircuitOpen, err))
	}
	return err
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if common.HasAny(err.Error(), "unsupported protocol scheme", "invalid url", "missing protocol scheme") {
		return weather.Permanent(err)
	}
	return weather.Transient(err)
}

// apparentTemperature approximates feels-like temperature: wind chill in cold
// windy air, a humidity bump in hot humid air, the air temperature otherwise.
func apparentTemperature(temp, humidity, windSpeed float64) float64 {
	switch {
	case temp < 10 && windSpeed > 5:
		return temp - windSpeed*0.5
	case temp > 27 && humidity > 40:
		return temp + (humidity-40)*0.2
	default:
		return temp
	}
}

// dewPoint uses the Magnus approximation.
func dewPoint(temp, humidity float64) float64 {
	if humidity <= 0 {
		return temp
	}
	const a, b = 17.62, 243.12
	g := math.Log(humidity/100) + a*temp/(b+temp)
	return b * g / (a - g)
}

func round1(v float64) float64 {
	return common.Round(v, 1)
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
