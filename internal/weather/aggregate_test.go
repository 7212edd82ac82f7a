package weather

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func TestAggregateHistoryEmpty(t *testing.T) {
	_, err := AggregateHistory(nil, 14, DefaultThresholds())
	assert.ErrorIs(t, err, ErrNoHistoricalData)
}

func TestAggregateHistoryStatistics(t *testing.T) {
	records := []HistoricalRecord{
		{Year: 2022, TemperatureC: 10, Humidity: 50, WindSpeed: 2, Precipitation: 0, CloudCover: 20, Pressure: floatp(1010)},
		{Year: 2024, TemperatureC: 14, Humidity: 70, WindSpeed: 4, Precipitation: 3, CloudCover: 40, Pressure: floatp(1014)},
		{Year: 2023, TemperatureC: 12, Humidity: 60, WindSpeed: 3, Precipitation: 1.5, CloudCover: 30, Pressure: floatp(1012)},
	}

	agg, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, VariableStats{Mean: 12, Std: 2, Min: 10, Max: 14}, agg.Statistics.Temperature)
	assert.Equal(t, VariableStats{Mean: 60, Std: 10, Min: 50, Max: 70}, agg.Statistics.Humidity)
	assert.Equal(t, 4.5, agg.Statistics.Precipitation.Total)
	assert.Equal(t, 1.5, agg.Statistics.Precipitation.Mean)

	assert.Equal(t, 12.0, agg.Prediction.TemperatureC)
	assert.Equal(t, 60.0, agg.Prediction.Humidity)
	require.NotNil(t, agg.Prediction.Pressure)
	assert.Equal(t, 1012.0, *agg.Prediction.Pressure)
	assert.Nil(t, agg.Prediction.UVIndex)
	assert.Nil(t, agg.Prediction.WindDirection)
	assert.Empty(t, agg.Prediction.WindCompass)
	assert.Equal(t, WeatherSunny, agg.Prediction.WeatherType)

	// (94 + 80) / 2 scaled by 1 - e^-0.75
	assert.Equal(t, 45.9, agg.Confidence)

	assert.Equal(t, 14, agg.Analysis.YearsRequested)
	assert.Equal(t, 3, agg.Analysis.YearsAnalyzed)
	assert.Equal(t, 2.0, agg.Analysis.TrendPerYear)
	assert.Equal(t, TrendWarming, agg.Analysis.Trend)
}

func TestAggregateHistoryOrderIndependent(t *testing.T) {
	records := make([]HistoricalRecord, 0, 10)
	rng := rand.New(rand.NewSource(7))
	for year := 2015; year < 2025; year++ {
		records = append(records, HistoricalRecord{
			Year:           year,
			TemperatureC:   15 + rng.NormFloat64()*3,
			TemperatureMax: floatp(20 + rng.Float64()),
			TemperatureMin: floatp(10 + rng.Float64()),
			HourMax:        intp(13 + rng.Intn(3)),
			HourMin:        intp(4 + rng.Intn(3)),
			Humidity:       60 + rng.NormFloat64()*10,
			WindSpeed:      rng.Float64() * 8,
			WindDirection:  floatp(rng.Float64() * 360),
			Precipitation:  rng.ExpFloat64(),
			CloudCover:     rng.Float64() * 100,
			Pressure:       floatp(1000 + rng.Float64()*20),
		})
	}

	want, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	shuffled := append([]HistoricalRecord(nil), records...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got, err := AggregateHistory(shuffled, 14, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, want, got)

	temp := want.Statistics.Temperature
	assert.LessOrEqual(t, temp.Min, temp.Mean)
	assert.LessOrEqual(t, temp.Mean, temp.Max)
	assert.GreaterOrEqual(t, want.Prediction.RainProbability, 0.0)
	assert.LessOrEqual(t, want.Prediction.RainProbability+want.Prediction.SnowProbability, 100.0)
	assert.GreaterOrEqual(t, want.Confidence, MinConfidence)
	assert.LessOrEqual(t, want.Confidence, 100.0)
}

func TestAggregateHistoryWindDirectionWraps(t *testing.T) {
	records := []HistoricalRecord{
		{Year: 2024, WindDirection: floatp(350)},
		{Year: 2023, WindDirection: floatp(10)},
	}

	agg, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	require.NotNil(t, agg.Prediction.WindDirection)
	assert.Equal(t, 0.0, *agg.Prediction.WindDirection)
	assert.Equal(t, "N", agg.Prediction.WindCompass)
}

func TestAggregateHistorySkipsAbsentVariables(t *testing.T) {
	records := []HistoricalRecord{
		{Year: 2024, TemperatureC: 20, Humidity: 50, Pressure: floatp(1010), UVIndex: floatp(8)},
		{Year: 2023, TemperatureC: 22, Humidity: 60},
		{Year: 2022, TemperatureC: 21, Humidity: 55, UVIndex: floatp(6)},
	}

	agg, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	require.NotNil(t, agg.Prediction.Pressure)
	assert.Equal(t, 1010.0, *agg.Prediction.Pressure, "years without pressure do not pull the mean toward zero")
	require.NotNil(t, agg.Prediction.UVIndex)
	assert.Equal(t, 7.0, *agg.Prediction.UVIndex)
	assert.Nil(t, agg.Prediction.WindDirection)
	assert.Equal(t, 3, agg.Analysis.YearsAnalyzed)
}

func TestAggregateHistoryHourMode(t *testing.T) {
	// In most-recent-first order the hours are 14, 15, 15, 14: a tie that
	// goes to 14 because it is seen first.
	records := []HistoricalRecord{
		{Year: 2022, HourMax: intp(15), HourMin: intp(5)},
		{Year: 2024, HourMax: intp(14), HourMin: intp(5)},
		{Year: 2021, HourMax: intp(14), HourMin: intp(6)},
		{Year: 2023, HourMax: intp(15)},
	}

	agg, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	require.NotNil(t, agg.Prediction.HourMax)
	assert.Equal(t, 14, *agg.Prediction.HourMax)
	require.NotNil(t, agg.Prediction.HourMin)
	assert.Equal(t, 5, *agg.Prediction.HourMin)
}

func TestAggregateHistoryOmitsHoursWithFewSamples(t *testing.T) {
	records := []HistoricalRecord{
		{Year: 2024, HourMax: intp(14), TemperatureMax: floatp(20.04)},
		{Year: 2023},
	}

	agg, err := AggregateHistory(records, 14, DefaultThresholds())
	require.NoError(t, err)

	assert.Nil(t, agg.Prediction.HourMax)
	assert.Nil(t, agg.Prediction.HourMin)
	require.NotNil(t, agg.Prediction.TemperatureMax)
	assert.Equal(t, 20.0, *agg.Prediction.TemperatureMax)
	assert.Nil(t, agg.Prediction.TemperatureMin)
}

func TestAggregateHistorySingleRecord(t *testing.T) {
	agg, err := AggregateHistory([]HistoricalRecord{{Year: 2024, TemperatureC: 21.26, Humidity: 55}}, 14, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, 21.3, agg.Prediction.TemperatureC)
	assert.Equal(t, 0.0, agg.Statistics.Temperature.Std)
	assert.Equal(t, TrendInsufficient, agg.Analysis.Trend)
	assert.GreaterOrEqual(t, agg.Confidence, MinConfidence)
}

func TestPrecipitationProbabilities(t *testing.T) {
	records := []HistoricalRecord{
		{TemperatureC: 10, Precipitation: 0},
		{TemperatureC: 10, Precipitation: 3},
		{TemperatureC: -1, Precipitation: 2},
		{TemperatureC: -5, Precipitation: 0.5},
	}

	rain, snow := PrecipitationProbabilities(records, DefaultThresholds())
	assert.Equal(t, 25.0, rain)
	assert.Equal(t, 25.0, snow)

	rain, snow = PrecipitationProbabilities(nil, DefaultThresholds())
	assert.Zero(t, rain)
	assert.Zero(t, snow)
}

func TestConfidenceMonotonic(t *testing.T) {
	prev := 0.0
	for n := 1; n <= 20; n++ {
		c := Confidence(n, 2, 5)
		assert.GreaterOrEqual(t, c, prev, "more samples never lower confidence (n=%d)", n)
		prev = c
	}

	prev = 101.0
	for std := 0.0; std <= 40; std += 2 {
		c := Confidence(10, std, std)
		assert.LessOrEqual(t, c, prev, "more spread never raises confidence (std=%v)", std)
		prev = c
	}

	assert.Equal(t, MinConfidence, Confidence(1, 50, 80))
	assert.Zero(t, Confidence(0, 0, 0))
	assert.LessOrEqual(t, Confidence(1000, 0, 0), 100.0)
}
