package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-prediction/internal/weather"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// now is replaced in tests.
var now = time.Now

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/weather/predict", func(c *fiber.Ctx) error {
		var body predictRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		req, err := body.toRequest()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.Predict(c.UserContext(), req)
		if err != nil {
			if errors.Is(err, weather.ErrNoHistoricalData) {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build prediction")
		}

		return c.JSON(predictResponse{
			Location: weather.Location{
				Lat: req.Latitude,
				Lon: req.Longitude,
			},
			TargetDate:       req.TargetDate.Format(dateLayout),
			Provider:         service.Provider(),
			PredictionResult: result,
		})
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		if err := service.ClearCache(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear cache")
		}
		return c.JSON(fiber.Map{
			"cleared": true,
		})
	})
}

// predictRequest is the JSON body of the predict endpoint. Coordinates are
// pointers so that 0 is distinguishable from a missing value.
type predictRequest struct {
	Latitude   *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	TargetDate string   `json:"targetDate" validate:"required,datetime=2006-01-02"`
}

// toRequest validates the body and requires a target date after today.
func (p predictRequest) toRequest() (weather.PredictionRequest, error) {
	if err := validate.Struct(p); err != nil {
		return weather.PredictionRequest{}, err
	}

	target, err := time.Parse(dateLayout, p.TargetDate)
	if err != nil {
		return weather.PredictionRequest{}, err
	}

	today := now()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if !target.After(todayDate) {
		return weather.PredictionRequest{}, errors.New("targetDate must be in the future")
	}

	return weather.PredictionRequest{
		Latitude:   *p.Latitude,
		Longitude:  *p.Longitude,
		TargetDate: target,
	}, nil
}

type predictResponse struct {
	Location   weather.Location `json:"location"`
	TargetDate string           `json:"targetDate"`
	Provider   string           `json:"provider"`
	*weather.PredictionResult
}
