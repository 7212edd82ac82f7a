package providers

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/i474232898/weather-prediction/internal/common"
	"github.com/i474232898/weather-prediction/internal/weather"
)

// SyntheticProvider generates plausible historical weather from latitude,
// season and year. The same inputs always produce the same record.
type SyntheticProvider struct {
	name string
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{name: "synthetic"}
}

func (p *SyntheticProvider) Name() string {
	return p.name
}

// Fetch never fails unless ctx is already done.
func (p *SyntheticProvider) Fetch(ctx context.Context, lat, lon float64, year, month, day int) (weather.HistoricalRecord, error) {
	if err := ctx.Err(); err != nil {
		return weather.HistoricalRecord{}, err
	}

	date := weather.ResolveDate(year, month, day)
	rng := rand.New(rand.NewSource(seed(lat, lon, year, month, day)))

	absLat := math.Abs(lat)
	baseTemp, variation := climateZone(absLat)

	// Seasons are mirrored in the southern hemisphere.
	phase := float64(date.Month()) + float64(date.Day()-15)/30
	if lat < 0 {
		phase += 6
	}
	seasonal := math.Sin(2 * math.Pi * (phase - 3) / 12)

	yearAnomaly := rng.NormFloat64() * 1.5
	temp := baseTemp + seasonal*variation + yearAnomaly + rng.NormFloat64()*2

	coastal := math.Abs(lon) > 150 || math.Abs(lon) < 30

	humidityBase := 70 - (temp-15)*1.5
	if coastal {
		humidityBase += 10
	}
	humidity := common.Clamp(humidityBase+rng.NormFloat64()*8, 20, 100)

	windBase := 5 + math.Abs(absLat-45)*0.1
	if coastal {
		windBase += 3
	}
	windSpeed := math.Max(0, windBase+rng.NormFloat64()*3)

	var windDir float64
	if absLat > 30 && absLat < 60 {
		windDir = math.Mod(270+rng.NormFloat64()*45+360, 360)
	} else {
		windDir = rng.Float64() * 360
	}

	precipRate := 0.3
	switch {
	case humidity > 70:
		precipRate = 2.5
	case humidity > 50:
		precipRate = 1.0
	}
	switch {
	case absLat < 35 && seasonal > 0:
		precipRate *= 1.8
	case absLat > 35 && absLat < 45 && seasonal < 0:
		precipRate *= 1.5
	}
	precipitation := rng.ExpFloat64() * precipRate

	cloudCover := common.Clamp(humidity*0.8+rng.NormFloat64()*15, 0, 100)
	pressure := 1013 - absLat*0.5 + rng.NormFloat64()*10
	dew := temp - (100-humidity)/5
	uv := common.Clamp(11-absLat/9+seasonal*2-cloudCover/100*5, 0, 11)

	diurnalRange := 6 + (100-humidity)/10 + rng.Float64()*2
	hourMax := 13 + rng.Intn(4)
	hourMin := 4 + rng.Intn(3)

	return weather.HistoricalRecord{
		Year:           year,
		Date:           weather.RecordDate(date.Year(), int(date.Month()), date.Day()),
		TemperatureC:   round1(temp),
		TemperatureMax: floatPtr(round1(temp + diurnalRange/2)),
		TemperatureMin: floatPtr(round1(temp - diurnalRange/2)),
		HourMax:        intPtr(hourMax),
		HourMin:        intPtr(hourMin),
		Humidity:       round1(humidity),
		WindSpeed:      round1(windSpeed),
		WindDirection:  floatPtr(math.Mod(round1(windDir), 360)),
		Precipitation:  round1(precipitation),
		CloudCover:     round1(cloudCover),
		Pressure:       floatPtr(round1(pressure)),
		DewPoint:       round1(dew),
		UVIndex:        floatPtr(round1(uv)),
		FeelsLike:      round1(apparentTemperature(temp, humidity, windSpeed)),
	}, nil
}

// climateZone returns the base temperature and seasonal amplitude for a latitude band.
func climateZone(absLat float64) (base, variation float64) {
	switch {
	case absLat < 23.5:
		return 25 + (23.5-absLat)*0.3, 5
	case absLat < 35:
		return 20 + (35-absLat)*0.4, 8
	case absLat < 50:
		return 12 + (50-absLat)*0.5, 12
	case absLat < 66.5:
		return 5 + (66.5-absLat)*0.3, 15
	default:
		return -10, 20
	}
}

func seed(lat, lon float64, year, month, day int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.4f|%.4f|%d|%02d|%02d", lat, lon, year, month, day)
	return int64(h.Sum64())
}
