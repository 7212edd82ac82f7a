package weather

import (
	"fmt"
	"math"
	"time"
)

// WeatherType is the coarse classification attached to a prediction.
type WeatherType string

const (
	WeatherSunny  WeatherType = "sunny"
	WeatherCloudy WeatherType = "cloudy"
	WeatherRainy  WeatherType = "rainy"
	WeatherSnowy  WeatherType = "snowy"
	WeatherStormy WeatherType = "stormy"
	WeatherFoggy  WeatherType = "foggy"
)

// LocationPrecision is the number of decimals coordinates are rounded to
// when building cache keys (about 1.1 km at the equator).
const LocationPrecision = 2

// Location is a coordinate pair.
type Location struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Key returns the quantised cache key for this location, e.g. "4.71_-74.07".
func (l Location) Key() string {
	return formatCoord(l.Lat) + "_" + formatCoord(l.Lon)
}

func formatCoord(v float64) string {
	p := math.Pow(10, LocationPrecision)
	r := math.Round(v*p) / p
	if r == 0 {
		r = 0 // drop negative zero
	}
	return fmt.Sprintf("%.*f", LocationPrecision, r)
}

// CacheKey identifies one cached historical sample.
type CacheKey struct {
	Location string `json:"location"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
	Year     int    `json:"year"`
}

// NewCacheKey builds the key for (lat, lon, month, day, year).
func NewCacheKey(lat, lon float64, month, day, year int) CacheKey {
	return CacheKey{
		Location: Location{Lat: lat, Lon: lon}.Key(),
		Month:    month,
		Day:      day,
		Year:     year,
	}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%02d-%02d:%d", k.Location, k.Month, k.Day, k.Year)
}

// HistoricalRecord is one year's weather at a location for the target month/day.
// Year is carried separately from the serialised form; Date holds YYYY-MM-DD.
// Pointer fields are nil when the source had no value for them.
type HistoricalRecord struct {
	Year           int      `json:"-"`
	Date           string   `json:"date"`
	TemperatureC   float64  `json:"temperatureC"`
	TemperatureMax *float64 `json:"temperatureMax,omitempty"`
	TemperatureMin *float64 `json:"temperatureMin,omitempty"`
	HourMax        *int     `json:"hourMax,omitempty"`
	HourMin        *int     `json:"hourMin,omitempty"`
	Humidity       float64  `json:"humidity"`
	WindSpeed      float64  `json:"windSpeed"`
	WindDirection  *float64 `json:"windDirection,omitempty"`
	Precipitation  float64  `json:"precipitation"`
	CloudCover     float64  `json:"cloudCover"`
	Pressure       *float64 `json:"pressure,omitempty"`
	DewPoint       float64  `json:"dewPoint"`
	UVIndex        *float64 `json:"uvIndex,omitempty"`
	FeelsLike      float64  `json:"feelsLike"`
}

// RecordDate formats the date a record for (year, month, day) represents.
func RecordDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// CacheEntry is the persisted form of a HistoricalRecord.
type CacheEntry struct {
	Key      CacheKey         `json:"key"`
	Record   HistoricalRecord `json:"record"`
	StoredAt time.Time        `json:"storedAt"`
}

// FetchTask is one scheduled per-year fetch.
type FetchTask struct {
	Key     CacheKey
	Lat     float64
	Lon     float64
	Attempt int
}

// PredictionRequest is the already validated inbound request.
type PredictionRequest struct {
	Latitude   float64
	Longitude  float64
	TargetDate time.Time
}

// Prediction holds the point estimates for the target date.
type Prediction struct {
	TemperatureC    float64     `json:"temperatureC"`
	TemperatureMax  *float64    `json:"temperatureMax,omitempty"`
	TemperatureMin  *float64    `json:"temperatureMin,omitempty"`
	HourMax         *int        `json:"hourMax,omitempty"`
	HourMin         *int        `json:"hourMin,omitempty"`
	Humidity        float64     `json:"humidity"`
	WindSpeed       float64     `json:"windSpeed"`
	WindDirection   *float64    `json:"windDirection,omitempty"`
	WindCompass     string      `json:"windCompass,omitempty"`
	Precipitation   float64     `json:"precipitation"`
	HeatIndex       float64     `json:"heatIndex"`
	Conditions      string      `json:"conditions"`
	WeatherType     WeatherType `json:"weatherType"`
	CloudCover      float64     `json:"cloudCover"`
	Pressure        *float64    `json:"pressure,omitempty"`
	DewPoint        float64     `json:"dewPoint"`
	UVIndex         *float64    `json:"uvIndex,omitempty"`
	FeelsLike       float64     `json:"feelsLike"`
	RainProbability float64     `json:"rainProbability"`
	SnowProbability float64     `json:"snowProbability"`
}

// VariableStats summarises one variable across years.
type VariableStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// PrecipitationStats summarises precipitation across years.
type PrecipitationStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Total float64 `json:"total"`
}

// Statistics is the per-variable summary returned with a prediction.
type Statistics struct {
	Temperature   VariableStats      `json:"temperature"`
	Humidity      VariableStats      `json:"humidity"`
	WindSpeed     VariableStats      `json:"windSpeed"`
	Precipitation PrecipitationStats `json:"precipitation"`
}

// Trend labels for Analysis.
const (
	TrendWarming      = "warming"
	TrendCooling      = "cooling"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient"
)

// Analysis describes how much data backed the prediction and the temperature trend.
type Analysis struct {
	YearsRequested int     `json:"yearsRequested"`
	YearsAnalyzed  int     `json:"yearsAnalyzed"`
	TrendPerYear   float64 `json:"trendPerYear"`
	Trend          string  `json:"trend"`
}

// PredictionResult is the response contract handed to the API layer.
type PredictionResult struct {
	Prediction     Prediction         `json:"prediction"`
	Confidence     float64            `json:"confidence"`
	HistoricalData []HistoricalRecord `json:"historicalData"`
	Statistics     Statistics         `json:"statistics"`
	Analysis       Analysis           `json:"analysis"`
}

// ResolveDate returns the calendar date for (year, month, day). A day past the
// end of the month, such as Feb 29 in a non-leap year, resolves to the last
// day of that month.
func ResolveDate(year, month, day int) time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) {
		t = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return t
}
