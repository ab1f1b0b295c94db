package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/agro-insight/internal/agro/providers"
	"github.com/i474232898/agro-insight/internal/auth"
	"github.com/i474232898/agro-insight/internal/cache"
	"github.com/i474232898/agro-insight/internal/service"
)

var testNow = time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, authRequired bool, cacheOpts ...cache.Option) (*fiber.App, *service.Service) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return testNow }
	opts := providers.Options{Logger: log, Now: now, Rand: providers.FixedRand(0.5)}
	c := cache.New(append([]cache.Option{cache.WithClock(now)}, cacheOpts...)...)

	svc := service.New(service.Deps{
		Weather:    providers.NewWeatherProvider(opts),
		Vegetation: providers.NewVegetationProvider(opts),
		Market:     providers.NewMarketProvider(opts),
		Cache:      c,
		Logger:     log,
		Now:        now,
	}, service.Config{})
	authSvc := auth.NewService("test-secret", 30*time.Minute, auth.WithClock(now), auth.WithBcryptCost(bcrypt.MinCost))

	return NewApp(Deps{Service: svc, Auth: authSvc, AuthRequired: authRequired, Logger: log}), svc
}

func do(t *testing.T, app *fiber.App, method, target string, body any, token string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func getList(t *testing.T, app *fiber.App, target string) (int, []map[string]any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	_, body := do(t, app, http.MethodGet, "/health", nil, "")
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["adapters"], "weather")
	assert.Contains(t, body, "cache")
}

func TestOverviewRejectsBadCoordinates(t *testing.T) {
	app, _ := newTestApp(t, false)

	for _, target := range []string{
		"/overview",
		"/overview?lat=10",
		"/overview?lat=abc&lon=10",
		"/overview?lat=100&lon=10",
		"/overview?lat=10&lon=-181",
		"/overview?lat=NaN&lon=0",
		"/overview?lat=10&lon=10&ndvi_date=yesterday",
		"/overview?lat=10&lon=10&ndvi_zoom=far",
	} {
		status, body := do(t, app, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.Equal(t, true, body["error"], target)
		assert.NotEmpty(t, body["message"], target)
	}
}

func TestOverviewAllMock(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body := do(t, app, http.MethodGet, "/overview?lat=45&lon=10", nil, "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "optimal", body["overall_status"])
	assert.Equal(t, "soy", body["culture"])
	assert.Empty(t, body["alerts"])
	assert.Equal(t, "mock", body["weather"].(map[string]any)["source"])
	assert.Equal(t, "mock", body["vegetation"].(map[string]any)["source"])
	assert.Equal(t, "mock", body["market"].(map[string]any)["source"])
	assert.Equal(t, float64(6), body["ndvi_preview"].(map[string]any)["zoom"])
	assert.NotContains(t, body, "basket")
	assert.NotContains(t, body, "place")

	analyses := body["analyses"].(map[string]any)
	assert.Equal(t, "irrigate_soon", analyses["irrigation"].(map[string]any)["recommendation"])
}

func TestOverviewWithBasketAndCulture(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body := do(t, app, http.MethodGet, "/overview?lat=-15&lon=-47&culture=milho&keys=coffee,%20soja&ndvi_date=2024-07-01&ndvi_zoom=4", nil, "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "corn", body["culture"])
	assert.Equal(t, "corn", body["market"].(map[string]any)["commodity"])
	basket := body["basket"].([]any)
	require.Len(t, basket, 2)
	assert.Equal(t, "coffee", basket[0].(map[string]any)["commodity"])
	assert.Equal(t, "soy", basket[1].(map[string]any)["commodity"])

	preview := body["ndvi_preview"].(map[string]any)
	assert.Equal(t, float64(4), preview["zoom"])
	assert.Equal(t, "2024-07-01", preview["date"])
}

func TestBasket(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, items := getList(t, app, "/market/basket")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items, len(providers.DefaultBasket))
	for i, k := range providers.DefaultBasket {
		assert.Equal(t, k, items[i]["commodity"])
	}

	_, items = getList(t, app, "/market/basket?keys=wheat")
	require.Len(t, items, 1)
	assert.Equal(t, "wheat", items[0]["commodity"])
}

func TestSingleDomainEndpoints(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body := do(t, app, http.MethodGet, "/weather?lat=-15&lon=-47", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(25), body["temperature_c"])

	status, body = do(t, app, http.MethodGet, "/satellite?lat=-15&lon=-47", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dense_vegetation", body["classification"])

	status, body = do(t, app, http.MethodGet, "/market?commodity=coffee", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1944.0, body["price_usd_ton"])

	status, _ = do(t, app, http.MethodGet, "/satellite?lat=-15&lon=-47&date=15/07/2024", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSatellitePreview(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body := do(t, app, http.MethodGet, "/satellite/preview?lat=-15&lon=-47&zoom=3&date=2024-07-01", nil, "")
	require.Equal(t, http.StatusOK, status)

	tile := body["tile"].(map[string]any)
	assert.Equal(t, float64(3), tile["zoom"])
	assert.Contains(t, tile["tile_url"], "/2024-07-01/")
	assert.Equal(t, 0.6, body["vegetation"].(map[string]any)["ndvi"])

	status, _ = do(t, app, http.MethodGet, "/satellite/preview?lat=-15&lon=-47&zoom=1.5", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func registration() auth.Registration {
	years := 5
	return auth.Registration{
		Email:           "carla@example.com",
		Password:        "long-enough",
		FullName:        "Carla Lima",
		Profile:         auth.ProfileCooperative,
		DocumentID:      "00.000.000/0001-00",
		Phone:           "+55 11 90000-0000",
		Organization:    "Coop Sul",
		City:            "Londrina",
		State:           "PR",
		ExperienceYears: &years,
	}
}

func TestAuthFlow(t *testing.T) {
	app, _ := newTestApp(t, false)

	status, body := do(t, app, http.MethodGet, "/auth/profiles", nil, "")
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, app, http.MethodPost, "/auth/register", registration(), "")
	require.Equal(t, http.StatusCreated, status, body)
	token := body["session"].(map[string]any)["access_token"].(string)

	status, _ = do(t, app, http.MethodPost, "/auth/register", registration(), "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/auth/login", map[string]string{"email": "carla@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, app, http.MethodPost, "/auth/login", map[string]string{"email": "carla@example.com", "password": "long-enough"}, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["session"].(map[string]any)["access_token"])

	status, body = do(t, app, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cooperative", body["profile"])

	status, body = do(t, app, http.MethodGet, "/auth/dashboard-config", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Agribusiness Dashboard", body["dashboard"].(map[string]any)["title"])

	status, body = do(t, app, http.MethodGet, "/auth/validate-token", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, _ = do(t, app, http.MethodPost, "/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, app, http.MethodGet, "/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, true, body["error"])
}

func TestRegisterMissingProfileFields(t *testing.T) {
	app, _ := newTestApp(t, false)

	reg := registration()
	reg.ExperienceYears = nil
	status, body := do(t, app, http.MethodPost, "/auth/register", reg, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "experience_years")
}

func TestAuthRequiredGuardsDataEndpoints(t *testing.T) {
	app, _ := newTestApp(t, true)

	status, _ := do(t, app, http.MethodGet, "/overview?lat=45&lon=10", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/market/basket", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)

	_, body := do(t, app, http.MethodPost, "/auth/register", registration(), "")
	token := body["session"].(map[string]any)["access_token"].(string)

	status, _ = do(t, app, http.MethodGet, "/overview?lat=45&lon=10", nil, token)
	assert.Equal(t, http.StatusOK, status)
}

func TestUnexpectedErrorsAreOpaque(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))})
	app.Get("/boom", func(c *fiber.Ctx) error { return io.ErrUnexpectedEOF })

	status, body := do(t, app, http.MethodGet, "/boom", nil, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["message"])
}

func TestLogoutSurvivesSnapshotCacheChurn(t *testing.T) {
	app, svc := newTestApp(t, false, cache.WithMaxEntries(3))

	_, body := do(t, app, http.MethodPost, "/auth/register", registration(), "")
	token := body["session"].(map[string]any)["access_token"].(string)

	status, _ := do(t, app, http.MethodPost, "/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, status)

	for _, key := range []string{"weather:a", "weather:b", "weather:c", "weather:d"} {
		svc.Cache().Set(key, 1, time.Hour)
	}
	assert.Equal(t, 3, svc.Cache().Stats().Total)

	status, _ = do(t, app, http.MethodGet, "/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, status)
}
