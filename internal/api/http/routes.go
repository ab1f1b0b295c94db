package httpapi

import (
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/agro-insight/internal/agro"
	"github.com/i474232898/agro-insight/internal/auth"
	"github.com/i474232898/agro-insight/internal/common"
	"github.com/i474232898/agro-insight/internal/service"
)

var validate = validator.New()

const defaultZoom = 6

// Deps are the collaborators the handlers need.
type Deps struct {
	Service      *service.Service
	Auth         *auth.Service
	AuthRequired bool
	Logger       *slog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	svc := d.Service

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(svc.Health())
	})

	registerAuthRoutes(app.Group("/auth"), d.Auth)

	var guard []fiber.Handler
	if d.AuthRequired {
		guard = append(guard, requireAuth(d.Auth))
	}
	get := func(path string, h fiber.Handler) {
		app.Get(path, append(slices.Clone(guard), h)...)
	}

	get("/overview", func(c *fiber.Ctx) error {
		var q overviewQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ov, err := svc.Overview(c.UserContext(), service.OverviewRequest{
			Coordinate: q.Coordinate,
			Culture:    q.Culture,
			Keys:       q.Keys,
			NDVIDate:   q.Date,
			Zoom:       &q.Zoom,
			Refresh:    q.Refresh,
		})
		if err != nil {
			return err
		}
		return c.JSON(ov)
	})

	get("/market/basket", func(c *fiber.Ctx) error {
		keys := common.SplitCSV(c.Query("keys"))
		return c.JSON(svc.Basket(c.UserContext(), keys))
	})

	get("/market", func(c *fiber.Ctx) error {
		commodity := strings.TrimSpace(c.Query("commodity", "soy"))
		return c.JSON(svc.Market(c.UserContext(), commodity))
	})

	get("/weather", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snap, err := svc.Weather(c.UserContext(), coord)
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})

	get("/satellite", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		date, err := parseDate(c, "date")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snap, err := svc.Vegetation(c.UserContext(), coord, date)
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})

	get("/satellite/preview", func(c *fiber.Ctx) error {
		coord, err := parseCoordinate(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		zoom, err := parseZoom(c, "zoom")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		date, err := parseDate(c, "date")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.Preview(c.UserContext(), coord, zoom, date)
		if err != nil {
			return err
		}
		return c.JSON(p)
	})
}

// coordinateQuery holds the lat/lon query parameters.
type coordinateQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordinate(c *fiber.Ctx) (agro.Coordinate, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return agro.Coordinate{}, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return agro.Coordinate{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return agro.Coordinate{}, errors.New("lon must be a number")
	}

	q := coordinateQuery{Lat: lat, Lon: lon}
	if err := validate.Struct(q); err != nil {
		return agro.Coordinate{}, errors.New("lat must be within [-90, 90] and lon within [-180, 180]")
	}

	coord := agro.Coordinate{Lat: q.Lat, Lon: q.Lon}
	return coord, coord.Validate()
}

func parseZoom(c *fiber.Ctx, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultZoom, nil
	}
	z, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return z, nil
}

// dateQuery validates an optional ISO-8601 day.
type dateQuery struct {
	Date string `validate:"omitempty,datetime=2006-01-02"`
}

func parseDate(c *fiber.Ctx, key string) (string, error) {
	q := dateQuery{Date: strings.TrimSpace(c.Query(key))}
	if err := validate.Struct(q); err != nil {
		return "", errors.New(key + " must be an ISO-8601 date (YYYY-MM-DD)")
	}
	return q.Date, nil
}

// overviewQuery holds the query parameters of /overview.
type overviewQuery struct {
	Coordinate agro.Coordinate
	Culture    string
	Keys       []string
	Date       string
	Zoom       int
	Refresh    bool
}

func (q *overviewQuery) bind(c *fiber.Ctx) error {
	coord, err := parseCoordinate(c)
	if err != nil {
		return err
	}
	q.Coordinate = coord

	if q.Date, err = parseDate(c, "ndvi_date"); err != nil {
		return err
	}
	if q.Zoom, err = parseZoom(c, "ndvi_zoom"); err != nil {
		return err
	}
	q.Culture = c.Query("culture", "soy")
	q.Keys = common.SplitCSV(c.Query("keys"))
	q.Refresh = c.QueryBool("refresh", false)
	return nil
}
