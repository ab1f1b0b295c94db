package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/agro-insight/internal/agro"
	"github.com/i474232898/agro-insight/internal/common"
)

// WeatherAPIProvider is the WeatherAPI.com upstream. It is disabled without a key.
type WeatherAPIProvider struct {
	client  upstreamClient
	apiKey  string
	baseURL string
}

func NewWeatherAPIProvider(opts Options, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		client:  newUpstreamClient("weatherapi", opts),
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
	}
}

func (p *WeatherAPIProvider) Name() string  { return "weatherapi" }
func (p *WeatherAPIProvider) Enabled() bool { return p.apiKey != "" }

func (p *WeatherAPIProvider) FetchWeather(ctx context.Context, c agro.Coordinate) (agro.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%f,%f", c.Lat, c.Lon))
	values.Set("days", "7")

	var payload struct {
		Current *struct {
			TempC      float64  `json:"temp_c"`
			Humidity   float64  `json:"humidity"`
			WindKph    float64  `json:"wind_kph"`
			WindDegree float64  `json:"wind_degree"`
			PressureMb float64  `json:"pressure_mb"`
			PrecipMm   float64  `json:"precip_mm"`
			Cloud      float64  `json:"cloud"`
			UV         *float64 `json:"uv"`
			Condition  struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC    float64 `json:"maxtemp_c"`
					MinTempC    float64 `json:"mintemp_c"`
					TotalPrecip float64 `json:"totalprecip_mm"`
					MaxWindKph  float64 `json:"maxwind_kph"`
					AvgHumidity float64 `json:"avghumidity"`
				} `json:"day"`
				Hour []struct {
					TempC        float64 `json:"temp_c"`
					ChanceOfRain float64 `json:"chance_of_rain"`
					WindKph      float64 `json:"wind_kph"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := p.client.getJSON(ctx, p.baseURL, values, nil, &payload); err != nil {
		return agro.WeatherSnapshot{}, err
	}
	if payload.Current == nil {
		return agro.WeatherSnapshot{}, fmt.Errorf("weatherapi: %w: missing current conditions", errIncomplete)
	}
	cur := payload.Current

	snap := agro.WeatherSnapshot{
		TemperatureC:     cur.TempC,
		HumidityPct:      cur.Humidity,
		PrecipitationMM:  cur.PrecipMm,
		WindSpeed:        cur.WindKph,
		WindDirectionDeg: cur.WindDegree,
		PressureHpa:      cur.PressureMb,
		CloudCoverPct:    cur.Cloud,
		UVIndex:          cur.UV,
		Condition:        mapWeatherAPICondition(cur.Condition.Text),
		Provider:         p.Name(),
	}

	for _, fd := range payload.Forecast.ForecastDay {
		if len(snap.Daily) < 7 {
			snap.Daily = append(snap.Daily, agro.DailyForecast{
				Date:            fd.Date,
				MaxTempC:        fd.Day.MaxTempC,
				MinTempC:        fd.Day.MinTempC,
				PrecipitationMM: fd.Day.TotalPrecip,
				MaxWind:         fd.Day.MaxWindKph,
				HumidityPct:     fd.Day.AvgHumidity,
			})
		}
		for _, h := range fd.Hour {
			if len(snap.Hourly) >= 24 {
				break
			}
			snap.Hourly = append(snap.Hourly, agro.HourlyForecast{
				Hour:              len(snap.Hourly),
				TemperatureC:      h.TempC,
				PrecipitationProb: h.ChanceOfRain,
				WindSpeed:         h.WindKph,
			})
		}
	}
	return snap, nil
}

func mapWeatherAPICondition(text string) agro.Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return agro.ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return agro.ConditionStorm
	case common.HasAny(t, "snow", "sleet", "blizzard", "ice pellets"):
		return agro.ConditionSnow
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return agro.ConditionRain
	case common.HasAny(t, "mist", "fog"):
		return agro.ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return agro.ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return agro.ConditionClear
	default:
		return agro.ConditionUnknown
	}
}
