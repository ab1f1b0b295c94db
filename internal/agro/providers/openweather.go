package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// OpenWeatherProvider is the OpenWeatherMap upstream. It is disabled without a key.
type OpenWeatherProvider struct {
	client  upstreamClient
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewOpenWeatherProvider(opts Options, apiKey string) *OpenWeatherProvider {
	opts = opts.withDefaults()
	return &OpenWeatherProvider{
		client:  newUpstreamClient("openweathermap", opts),
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		now:     opts.Now,
	}
}

func (p *OpenWeatherProvider) Name() string  { return "openweathermap" }
func (p *OpenWeatherProvider) Enabled() bool { return p.apiKey != "" }

func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, c agro.Coordinate) (agro.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", fmt.Sprintf("%f", c.Lat))
	values.Set("lon", fmt.Sprintf("%f", c.Lon))

	var payload struct {
		Main *struct {
			Temp     float64 `json:"temp"`
			TempMax  float64 `json:"temp_max"`
			TempMin  float64 `json:"temp_min"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Clouds struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Rain struct {
			OneH   float64 `json:"1h"`
			ThreeH float64 `json:"3h"`
		} `json:"rain"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}

	if err := p.client.getJSON(ctx, p.baseURL, values, nil, &payload); err != nil {
		return agro.WeatherSnapshot{}, err
	}
	if payload.Main == nil {
		return agro.WeatherSnapshot{}, fmt.Errorf("openweathermap: %w: missing main block", errIncomplete)
	}

	precip := payload.Rain.OneH
	if precip == 0 {
		precip = payload.Rain.ThreeH
	}

	snap := agro.WeatherSnapshot{
		TemperatureC:     payload.Main.Temp,
		HumidityPct:      payload.Main.Humidity,
		PrecipitationMM:  precip,
		WindSpeed:        payload.Wind.Speed * 3.6,
		WindDirectionDeg: payload.Wind.Deg,
		PressureHpa:      payload.Main.Pressure,
		CloudCoverPct:    payload.Clouds.All,
		Provider:         p.Name(),
	}
	if len(payload.Weather) > 0 {
		snap.Condition = mapOpenWeatherCondition(payload.Weather[0].Main)
	} else {
		snap.Condition = agro.ConditionUnknown
	}
	if payload.Main.TempMax > payload.Main.TempMin {
		et0 := agro.ET0(payload.Main.TempMax, payload.Main.TempMin, snap.HumidityPct, snap.WindSpeed,
			snap.CloudCoverPct, snap.PressureHpa, c.Lat, p.now())
		snap.ET0MM = &et0
	}
	return snap, nil
}

func mapOpenWeatherCondition(main string) agro.Condition {
	switch main {
	case "Clear":
		return agro.ConditionClear
	case "Clouds":
		return agro.ConditionCloudy
	case "Rain", "Drizzle":
		return agro.ConditionRain
	case "Snow":
		return agro.ConditionSnow
	case "Thunderstorm":
		return agro.ConditionStorm
	case "Mist", "Fog", "Haze":
		return agro.ConditionMist
	default:
		return agro.ConditionUnknown
	}
}
