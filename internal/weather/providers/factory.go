package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/weather-prediction/internal/weather"
)

// Options carries the settings remote providers need.
type Options struct {
	HTTPClient       *http.Client
	OpenMeteoBaseURL string
	OpenMeteoAPIKey  string
	NASAPowerBaseURL string
}

// New selects the provider implementation by name.
func New(kind string, opts Options) (weather.Provider, error) {
	switch strings.ToLower(kind) {
	case "", "synthetic", "mock":
		return NewSyntheticProvider(), nil
	case "openmeteo", "era5":
		return NewOpenMeteoProvider(opts.HTTPClient, opts.OpenMeteoBaseURL, opts.OpenMeteoAPIKey), nil
	case "nasapower", "power":
		return NewNASAPowerProvider(opts.HTTPClient, opts.NASAPowerBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported data provider %q (use synthetic, openmeteo or nasapower)", kind)
	}
}
