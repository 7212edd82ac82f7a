package weather

import (
	"math"
	"strings"
)

// Thresholds drive weather-type classification and rain/snow probabilities.
// They can be overridden from a YAML file (see config.LoadThresholds).
type Thresholds struct {
	StormPrecipMM  float64 `yaml:"storm_precip_mm"`
	StormWindMS    float64 `yaml:"storm_wind_ms"`
	SnowTempC      float64 `yaml:"snow_temp_c"`
	SnowPrecipMM   float64 `yaml:"snow_precip_mm"`
	RainPrecipMM   float64 `yaml:"rain_precip_mm"`
	FogHumidity    float64 `yaml:"fog_humidity"`
	SunnyMaxCover  float64 `yaml:"sunny_max_cover"`
	WetDayPrecipMM float64 `yaml:"wet_day_precip_mm"`
}

// DefaultThresholds returns the built-in classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StormPrecipMM:  10,
		StormWindMS:    15,
		SnowTempC:      2,
		SnowPrecipMM:   2,
		RainPrecipMM:   5,
		FogHumidity:    90,
		SunnyMaxCover:  60,
		WetDayPrecipMM: 1,
	}
}

// ClassifyWeather picks a weather type from predicted values. Precipitation
// rules win over humidity, humidity over cloud cover; anything not clear
// enough to be sunny falls back to cloudy.
func ClassifyWeather(temp, humidity, precip, cloudCover, windSpeed float64, th Thresholds) WeatherType {
	switch {
	case precip > th.StormPrecipMM && windSpeed > th.StormWindMS:
		return WeatherStormy
	case temp < th.SnowTempC && precip > th.SnowPrecipMM:
		return WeatherSnowy
	case precip > th.RainPrecipMM:
		return WeatherRainy
	case humidity > th.FogHumidity:
		return WeatherFoggy
	case cloudCover <= th.SunnyMaxCover:
		return WeatherSunny
	default:
		return WeatherCloudy
	}
}

// PrecipitationProbabilities returns the percentage of years that were wet
// and warm (rain) or wet and freezing (snow).
func PrecipitationProbabilities(records []HistoricalRecord, th Thresholds) (rain, snow float64) {
	if len(records) == 0 {
		return 0, 0
	}

	var rainy, snowy int
	for _, r := range records {
		if r.Precipitation < th.WetDayPrecipMM {
			continue
		}
		if r.TemperatureC < th.SnowTempC {
			snowy++
		} else {
			rainy++
		}
	}

	n := float64(len(records))
	rain = math.Min(100, math.Max(0, 100*float64(rainy)/n))
	snow = math.Min(100, math.Max(0, 100*float64(snowy)/n))
	return rain, snow
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindCompass converts a direction in degrees to an 8-point compass label.
func WindCompass(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Floor((deg+22.5)/45)) % len(compassPoints)
	return compassPoints[idx]
}

// HeatIndex returns the apparent temperature in Celsius using the Rothfusz
// regression. Below 80°F or 40% humidity the air temperature is returned.
func HeatIndex(tempC, humidity float64) float64 {
	f := tempC*9/5 + 32
	if f < 80 || humidity < 40 {
		return tempC
	}

	hi := -42.379 + 2.04901523*f + 10.14333127*humidity
	hi += -0.22475541 * f * humidity
	hi += -0.00683783 * f * f
	hi += -0.05481717 * humidity * humidity
	hi += 0.00122874 * f * f * humidity
	hi += 0.00085282 * f * humidity * humidity
	hi += -0.00000199 * f * f * humidity * humidity

	return (hi - 32) * 5 / 9
}

// DescribeConditions builds a short human readable summary.
func DescribeConditions(temp, humidity, precip float64) string {
	var parts []string

	switch {
	case temp < 10:
		parts = append(parts, "cold")
	case temp < 20:
		parts = append(parts, "mild")
	case temp < 30:
		parts = append(parts, "warm")
	default:
		parts = append(parts, "hot")
	}

	switch {
	case precip > 5:
		parts = append(parts, "rainy")
	case precip > 1:
		parts = append(parts, "with drizzle")
	case humidity > 80:
		parts = append(parts, "very humid")
	case humidity > 60:
		parts = append(parts, "humid")
	default:
		parts = append(parts, "dry")
	}

	switch {
	case humidity > 80:
		parts = append(parts, "overcast")
	case humidity > 60:
		parts = append(parts, "partly cloudy")
	default:
		parts = append(parts, "clear")
	}

	s := strings.Join(parts, ", ")
	return strings.ToUpper(s[:1]) + s[1:]
}
