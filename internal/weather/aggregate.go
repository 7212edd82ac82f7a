package weather

import (
	"math"

	"github.com/i474232898/weather-prediction/internal/common"
)

const (
	// ConfidenceSampleScale controls how fast confidence saturates with sample count.
	ConfidenceSampleScale = 4.0
	// MinConfidence is the floor reported whenever at least one year is available.
	MinConfidence = 5.0
	// trendThreshold is the slope (°C/year) separating a trend from stable.
	trendThreshold = 0.1
)

// Aggregate is the statistical summary of a set of historical records.
type Aggregate struct {
	Prediction Prediction
	Confidence float64
	Statistics Statistics
	Analysis   Analysis
}

// AggregateHistory turns the available records into statistics, a point
// prediction, probabilities, a weather type and a confidence score. Records
// may arrive in any order.
func AggregateHistory(records []HistoricalRecord, yearsBack int, th Thresholds) (Aggregate, error) {
	if len(records) == 0 {
		return Aggregate{}, ErrNoHistoricalData
	}

	ordered := make([]HistoricalRecord, len(records))
	copy(ordered, records)
	SortByYearDesc(ordered)

	n := len(ordered)
	temps := make([]float64, 0, n)
	hums := make([]float64, 0, n)
	winds := make([]float64, 0, n)
	precs := make([]float64, 0, n)
	clouds := make([]float64, 0, n)
	dews := make([]float64, 0, n)
	feels := make([]float64, 0, n)
	// Optional variables only count the years that carry them.
	var maxes, mins, dirs, press, uvs []float64

	for _, r := range ordered {
		temps = append(temps, r.TemperatureC)
		hums = append(hums, r.Humidity)
		winds = append(winds, r.WindSpeed)
		precs = append(precs, r.Precipitation)
		clouds = append(clouds, r.CloudCover)
		dews = append(dews, r.DewPoint)
		feels = append(feels, r.FeelsLike)
		maxes = appendPresent(maxes, r.TemperatureMax)
		mins = appendPresent(mins, r.TemperatureMin)
		dirs = appendPresent(dirs, r.WindDirection)
		press = appendPresent(press, r.Pressure)
		uvs = appendPresent(uvs, r.UVIndex)
	}

	tempStats := describe(temps)
	humStats := describe(hums)
	windStats := describe(winds)
	precStats := describe(precs)

	temp := common.Clamp(tempStats.Mean, -50, 60)
	humidity := common.Clamp(humStats.Mean, 0, 100)
	wind := common.Clamp(windStats.Mean, 0, 50)
	precip := math.Max(0, precStats.Mean)
	cloud := common.Clamp(mean(clouds), 0, 100)

	rainProb, snowProb := PrecipitationProbabilities(ordered, th)

	pred := Prediction{
		TemperatureC:    common.Round(temp, 1),
		Humidity:        common.Round(humidity, 1),
		WindSpeed:       common.Round(wind, 1),
		Precipitation:   common.Round(precip, 1),
		HeatIndex:       common.Round(HeatIndex(temp, humidity), 1),
		Conditions:      DescribeConditions(temp, humidity, precip),
		WeatherType:     ClassifyWeather(temp, humidity, precip, cloud, wind, th),
		CloudCover:      common.Round(cloud, 1),
		DewPoint:        common.Round(mean(dews), 1),
		FeelsLike:       common.Round(mean(feels), 1),
		RainProbability: common.Round(rainProb, 1),
		SnowProbability: common.Round(snowProb, 1),
	}

	pred.TemperatureMax = meanOf(maxes, -50, 60)
	pred.TemperatureMin = meanOf(mins, -50, 60)
	pred.Pressure = meanOf(press, 950, 1050)
	pred.UVIndex = meanOf(uvs, 0, 11)
	if len(dirs) > 0 {
		windDir := circularMean(dirs)
		v := math.Mod(common.Round(windDir, 1), 360)
		pred.WindDirection = &v
		pred.WindCompass = WindCompass(windDir)
	}
	pred.HourMax = modeHour(ordered, func(r HistoricalRecord) *int { return r.HourMax })
	pred.HourMin = modeHour(ordered, func(r HistoricalRecord) *int { return r.HourMin })

	stats := Statistics{
		Temperature: roundStats(tempStats),
		Humidity:    roundStats(humStats),
		WindSpeed:   roundStats(windStats),
		Precipitation: PrecipitationStats{
			Mean:  common.Round(precStats.Mean, 2),
			Std:   common.Round(precStats.Std, 2),
			Total: common.Round(sum(precs), 2),
		},
	}

	slope, trend := temperatureTrend(ordered)

	return Aggregate{
		Prediction: pred,
		Confidence: common.Round(Confidence(n, tempStats.Std, humStats.Std), 1),
		Statistics: stats,
		Analysis: Analysis{
			YearsRequested: yearsBack,
			YearsAnalyzed:  n,
			TrendPerYear:   common.Round(slope, 3),
			Trend:          trend,
		},
	}, nil
}

// Confidence scores a prediction from 0 to 100. It grows with the number of
// samples and shrinks as temperature and humidity spread widens.
func Confidence(samples int, tempStd, humidityStd float64) float64 {
	if samples <= 0 {
		return 0
	}
	dispersion := (math.Max(0, 100-3*tempStd) + math.Max(0, 100-2*humidityStd)) / 2
	coverage := 1 - math.Exp(-float64(samples)/ConfidenceSampleScale)
	return common.Clamp(dispersion*coverage, MinConfidence, 100)
}

// modeHour returns the most frequent hour among records that carry one, or
// nil when fewer than two do. Ties go to the hour seen first.
func modeHour(records []HistoricalRecord, hour func(HistoricalRecord) *int) *int {
	counts := make(map[int]int)
	var order []int
	for _, r := range records {
		h := hour(r)
		if h == nil {
			continue
		}
		if counts[*h] == 0 {
			order = append(order, *h)
		}
		counts[*h]++
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total < 2 {
		return nil
	}

	best, bestCount := order[0], counts[order[0]]
	for _, h := range order[1:] {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return &best
}

// temperatureTrend fits a least squares line of temperature against year.
func temperatureTrend(records []HistoricalRecord) (float64, string) {
	if len(records) < 3 {
		return 0, TrendInsufficient
	}

	var sx, sy, sxx, sxy float64
	for _, r := range records {
		x, y := float64(r.Year), r.TemperatureC
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	n := float64(len(records))
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, TrendInsufficient
	}
	slope := (n*sxy - sx*sy) / den

	switch {
	case slope > trendThreshold:
		return slope, TrendWarming
	case slope < -trendThreshold:
		return slope, TrendCooling
	default:
		return slope, TrendStable
	}
}

func appendPresent(values []float64, v *float64) []float64 {
	if v == nil {
		return values
	}
	return append(values, *v)
}

// meanOf returns the clamped mean rounded to one decimal, or nil without samples.
func meanOf(values []float64, lo, hi float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := common.Round(common.Clamp(mean(values), lo, hi), 1)
	return &v
}

func describe(values []float64) VariableStats {
	if len(values) == 0 {
		return VariableStats{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	m := mean(values)
	return VariableStats{Mean: m, Std: stdDev(values, m), Min: lo, Max: hi}
}

func roundStats(s VariableStats) VariableStats {
	return VariableStats{
		Mean: common.Round(s.Mean, 2),
		Std:  common.Round(s.Std, 2),
		Min:  common.Round(s.Min, 2),
		Max:  common.Round(s.Max, 2),
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stdDev is the sample standard deviation; zero below two samples.
func stdDev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// circularMean averages directions in degrees as unit vectors.
func circularMean(degrees []float64) float64 {
	if len(degrees) == 0 {
		return 0
	}
	var sinSum, cosSum float64
	for _, d := range degrees {
		rad := d * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	deg := math.Atan2(sinSum, cosSum) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
