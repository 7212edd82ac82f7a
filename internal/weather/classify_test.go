package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyWeather(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name                                string
		temp, humidity, precip, cloud, wind float64
		want                                WeatherType
	}{
		{"storm needs rain and wind", 20, 80, 12, 90, 16, WeatherStormy},
		{"heavy rain without wind", 20, 80, 12, 90, 5, WeatherRainy},
		{"snow below freezing threshold", 0, 85, 3, 90, 4, WeatherSnowy},
		{"cold but dry", 0, 85, 1, 90, 4, WeatherCloudy},
		{"fog", 12, 95, 0.5, 100, 1, WeatherFoggy},
		{"clear sky", 25, 40, 0, 20, 3, WeatherSunny},
		{"cover at threshold is sunny", 25, 40, 0, 60, 3, WeatherSunny},
		{"overcast", 18, 70, 0.5, 85, 3, WeatherCloudy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyWeather(tc.temp, tc.humidity, tc.precip, tc.cloud, tc.wind, th))
		})
	}
}

func TestClassifyWeatherCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.SunnyMaxCover = 30

	assert.Equal(t, WeatherCloudy, ClassifyWeather(25, 40, 0, 45, 3, th))
}

func TestWindCompass(t *testing.T) {
	cases := map[float64]string{
		0:     "N",
		22.4:  "N",
		22.5:  "NE",
		90:    "E",
		180:   "S",
		225:   "SW",
		292.5: "NW",
		350:   "N",
		-90:   "W",
		720:   "N",
	}
	for deg, want := range cases {
		assert.Equal(t, want, WindCompass(deg), "deg=%v", deg)
	}
}

func TestHeatIndex(t *testing.T) {
	assert.Equal(t, 20.0, HeatIndex(20, 90), "cool air is returned unchanged")
	assert.Equal(t, 32.0, HeatIndex(32, 30), "dry air is returned unchanged")
	assert.Greater(t, HeatIndex(32, 70), 32.0)
}

func TestDescribeConditions(t *testing.T) {
	assert.Equal(t, "Warm, dry, clear", DescribeConditions(25, 40, 0))
	assert.Equal(t, "Cold, rainy, overcast", DescribeConditions(5, 90, 8))
	assert.Equal(t, "Mild, humid, partly cloudy", DescribeConditions(15, 65, 0.2))
}
