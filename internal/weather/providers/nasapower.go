package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-prediction/internal/weather"
)

const nasaPowerDailyURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

// nasaPowerFill marks missing values in POWER responses.
const nasaPowerFill = -999

var nasaPowerParameters = []string{
	"T2M", "T2M_MAX", "T2M_MIN", "RH2M", "WS10M", "WD10M",
	"PRECTOTCORR", "CLOUD_AMT", "PS", "T2MDEW", "ALLSKY_SFC_UV_INDEX",
}

// NASAPowerProvider reads MERRA-2 derived daily values from the NASA POWER API.
type NASAPowerProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewNASAPowerProvider(client *http.Client, baseURL string) *NASAPowerProvider {
	if baseURL == "" {
		baseURL = nasaPowerDailyURL
	}
	return &NASAPowerProvider{
		name:    "nasapower",
		baseURL: baseURL,
		client:  client,
		circuit: newCircuitBreaker("nasapower"),
	}
}

func (p *NASAPowerProvider) Name() string {
	return p.name
}

func (p *NASAPowerProvider) BuildURL(lat, lon float64, date time.Time) string {
	day := date.Format("20060102")

	values := url.Values{}
	values.Set("parameters", strings.Join(nasaPowerParameters, ","))
	values.Set("community", "RE")
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("start", day)
	values.Set("end", day)
	values.Set("format", "JSON")

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

type nasaPowerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
	Messages []string `json:"messages"`
}

func (p *NASAPowerProvider) Fetch(ctx context.Context, lat, lon float64, year, month, day int) (weather.HistoricalRecord, error) {
	date := weather.ResolveDate(year, month, day)

	var payload nasaPowerResponse
	if err := getJSON(ctx, p.client, p.circuit, p.BuildURL(lat, lon, date), &payload); err != nil {
		return weather.HistoricalRecord{}, err
	}

	dayKey := date.Format("20060102")
	value := func(param string) (float64, bool) {
		series, ok := payload.Properties.Parameter[param]
		if !ok {
			return 0, false
		}
		v, ok := series[dayKey]
		if !ok || v <= nasaPowerFill {
			return 0, false
		}
		return v, true
	}

	// These drive classification and confidence; a year without them is unusable.
	core := make(map[string]float64, 5)
	var missing []string
	for _, param := range []string{"T2M", "RH2M", "WS10M", "PRECTOTCORR", "CLOUD_AMT"} {
		v, ok := value(param)
		if !ok {
			missing = append(missing, param)
			continue
		}
		core[param] = v
	}
	if len(missing) > 0 {
		return weather.HistoricalRecord{}, weather.Permanent(
			fmt.Errorf("nasapower %s: %w: missing %s", dayKey, errNoData, strings.Join(missing, ", ")))
	}

	temp, humidity, windSpeed := core["T2M"], core["RH2M"], core["WS10M"]

	rec := weather.HistoricalRecord{
		Year:          year,
		Date:          weather.RecordDate(date.Year(), int(date.Month()), date.Day()),
		TemperatureC:  round1(temp),
		Humidity:      round1(humidity),
		WindSpeed:     round1(windSpeed),
		Precipitation: round1(core["PRECTOTCORR"]),
		CloudCover:    round1(core["CLOUD_AMT"]),
		FeelsLike:     round1(apparentTemperature(temp, humidity, windSpeed)),
	}

	if v, ok := value("WD10M"); ok {
		rec.WindDirection = floatPtr(math.Mod(round1(v), 360))
	}
	if v, ok := value("ALLSKY_SFC_UV_INDEX"); ok {
		rec.UVIndex = floatPtr(round1(v))
	}
	if v, ok := value("T2M_MAX"); ok {
		rec.TemperatureMax = floatPtr(round1(v))
	}
	if v, ok := value("T2M_MIN"); ok {
		rec.TemperatureMin = floatPtr(round1(v))
	}
	if v, ok := value("PS"); ok {
		rec.Pressure = floatPtr(round1(v * 10)) // kPa to hPa
	}
	if v, ok := value("T2MDEW"); ok {
		rec.DewPoint = round1(v)
	} else {
		rec.DewPoint = round1(dewPoint(temp, humidity))
	}

	return rec, nil
}
