package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-prediction/internal/common"
	"github.com/i474232898/weather-prediction/internal/weather"
)

const (
	openMeteoArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
	openMeteoCustomerURL = "https://customer-archive-api.open-meteo.com/v1/archive"
)

var openMeteoHourlyFields = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"dew_point_2m",
	"apparent_temperature",
	"precipitation",
	"pressure_msl",
	"cloud_cover",
	"wind_speed_10m",
	"wind_direction_10m",
	"shortwave_radiation",
}

// OpenMeteoProvider reads ERA5 reanalysis from the Open-Meteo historical archive
// and summarises the hourly series of the requested day.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider builds the provider. An API key switches to the
// customer endpoint unless baseURL is set explicitly.
func NewOpenMeteoProvider(client *http.Client, baseURL, apiKey string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = openMeteoArchiveURL
		if apiKey != "" {
			baseURL = openMeteoCustomerURL
		}
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// BuildURL returns the archive query for a single local day.
func (p *OpenMeteoProvider) BuildURL(lat, lon float64, date time.Time) string {
	day := date.Format("2006-01-02")

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("start_date", day)
	values.Set("end_date", day)
	values.Set("hourly", strings.Join(openMeteoHourlyFields, ","))
	values.Set("timezone", "auto")
	values.Set("wind_speed_unit", "ms")
	if p.apiKey != "" {
		values.Set("apikey", p.apiKey)
	}

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

type openMeteoArchive struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Hourly struct {
		Time                []string   `json:"time"`
		Temperature2m       []*float64 `json:"temperature_2m"`
		RelativeHumidity2m  []*float64 `json:"relative_humidity_2m"`
		DewPoint2m          []*float64 `json:"dew_point_2m"`
		ApparentTemperature []*float64 `json:"apparent_temperature"`
		Precipitation       []*float64 `json:"precipitation"`
		PressureMsl         []*float64 `json:"pressure_msl"`
		CloudCover          []*float64 `json:"cloud_cover"`
		WindSpeed10m        []*float64 `json:"wind_speed_10m"`
		WindDirection10m    []*float64 `json:"wind_direction_10m"`
		ShortwaveRadiation  []*float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, lat, lon float64, year, month, day int) (weather.HistoricalRecord, error) {
	date := weather.ResolveDate(year, month, day)

	var payload openMeteoArchive
	if err := getJSON(ctx, p.client, p.circuit, p.BuildURL(lat, lon, date), &payload); err != nil {
		return weather.HistoricalRecord{}, err
	}
	if payload.Error {
		return weather.HistoricalRecord{}, weather.Permanent(fmt.Errorf("openmeteo: %s", payload.Reason))
	}

	rec, err := summariseHourly(&payload)
	if err != nil {
		return weather.HistoricalRecord{}, weather.Permanent(fmt.Errorf("openmeteo %s: %w", date.Format("2006-01-02"), err))
	}
	rec.Year = year
	rec.Date = weather.RecordDate(date.Year(), int(date.Month()), date.Day())
	return rec, nil
}

// summariseHourly reduces the hourly series to one daily record. The hour of
// the extremes comes from the local timestamps of the series.
func summariseHourly(a *openMeteoArchive) (weather.HistoricalRecord, error) {
	h := a.Hourly
	temps := present(h.Temperature2m)
	if len(temps) == 0 {
		return weather.HistoricalRecord{}, errNoData
	}

	maxIdx, minIdx := -1, -1
	for i, v := range h.Temperature2m {
		if v == nil {
			continue
		}
		if maxIdx < 0 || *v > *h.Temperature2m[maxIdx] {
			maxIdx = i
		}
		if minIdx < 0 || *v < *h.Temperature2m[minIdx] {
			minIdx = i
		}
	}

	humidities := present(h.RelativeHumidity2m)
	winds := present(h.WindSpeed10m)
	precips := present(h.Precipitation)
	clouds := present(h.CloudCover)
	if err := requireSeries(map[string][]float64{
		"relative_humidity_2m": humidities,
		"wind_speed_10m":       winds,
		"precipitation":        precips,
		"cloud_cover":          clouds,
	}); err != nil {
		return weather.HistoricalRecord{}, err
	}

	temp := avg(temps)
	humidity := avg(humidities)
	windSpeed := avg(winds)

	rec := weather.HistoricalRecord{
		TemperatureC:   round1(temp),
		TemperatureMax: floatPtr(round1(*h.Temperature2m[maxIdx])),
		TemperatureMin: floatPtr(round1(*h.Temperature2m[minIdx])),
		Humidity:       round1(humidity),
		WindSpeed:      round1(windSpeed),
		Precipitation:  round1(total(precips)),
		CloudCover:     round1(avg(clouds)),
	}

	if dirs := present(h.WindDirection10m); len(dirs) > 0 {
		rec.WindDirection = floatPtr(math.Mod(round1(vectorMean(dirs)), 360))
	}
	if pressures := present(h.PressureMsl); len(pressures) > 0 {
		rec.Pressure = floatPtr(round1(avg(pressures)))
	}

	if hr, ok := hourOf(h.Time, maxIdx); ok {
		rec.HourMax = intPtr(hr)
	}
	if hr, ok := hourOf(h.Time, minIdx); ok {
		rec.HourMin = intPtr(hr)
	}

	if dews := present(h.DewPoint2m); len(dews) > 0 {
		rec.DewPoint = round1(avg(dews))
	} else {
		rec.DewPoint = round1(dewPoint(temp, humidity))
	}
	if feels := present(h.ApparentTemperature); len(feels) > 0 {
		rec.FeelsLike = round1(avg(feels))
	} else {
		rec.FeelsLike = round1(apparentTemperature(temp, humidity, windSpeed))
	}

	// ERA5 carries no UV index; estimate it from peak shortwave radiation.
	if rad := present(h.ShortwaveRadiation); len(rad) > 0 {
		peak := rad[0]
		for _, v := range rad[1:] {
			peak = math.Max(peak, v)
		}
		rec.UVIndex = floatPtr(round1(common.Clamp(peak/100, 0, 11)))
	}

	return rec, nil
}

// requireSeries fails when any named series has no values at all.
func requireSeries(series map[string][]float64) error {
	var missing []string
	for name, values := range series {
		if len(values) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: missing %s", errNoData, strings.Join(missing, ", "))
}

func hourOf(times []string, idx int) (int, bool) {
	if idx < 0 || idx >= len(times) {
		return 0, false
	}
	t, err := time.Parse("2006-01-02T15:04", times[idx])
	if err != nil {
		return 0, false
	}
	return t.Hour(), true
}

func present(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func total(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return total(values) / float64(len(values))
}

func vectorMean(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 0
	}
	var s, c float64
	for _, d := range degrees {
		s += math.Sin(d * math.Pi / 180)
		c += math.Cos(d * math.Pi / 180)
	}
	deg := math.Atan2(s, c) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
