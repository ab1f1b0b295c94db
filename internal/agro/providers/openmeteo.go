package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// OpenMeteoProvider is the keyless primary weather upstream.
type OpenMeteoProvider struct {
	client  upstreamClient
	baseURL string
	now     func() time.Time
}

func NewOpenMeteoProvider(opts Options) *OpenMeteoProvider {
	opts = opts.withDefaults()
	return &OpenMeteoProvider{
		client:  newUpstreamClient("openmeteo", opts),
		baseURL: "https://api.open-meteo.com/v1/forecast",
		now:     opts.Now,
	}
}

func (p *OpenMeteoProvider) Name() string  { return "openmeteo" }
func (p *OpenMeteoProvider) Enabled() bool { return true }

func (p *OpenMeteoProvider) FetchWeather(ctx context.Context, c agro.Coordinate) (agro.WeatherSnapshot, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", c.Lat))
	values.Set("longitude", fmt.Sprintf("%f", c.Lon))
	values.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,wind_direction_10m,pressure_msl,cloud_cover,uv_index,weather_code")
	values.Set("hourly", "temperature_2m,precipitation_probability,wind_speed_10m")
	values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,et0_fao_evapotranspiration")
	values.Set("timezone", "auto")
	values.Set("forecast_days", "7")

	var payload struct {
		Current struct {
			Temperature   *float64 `json:"temperature_2m"`
			Humidity      *float64 `json:"relative_humidity_2m"`
			Precipitation float64  `json:"precipitation"`
			WindSpeed     float64  `json:"wind_speed_10m"`
			WindDirection float64  `json:"wind_direction_10m"`
			Pressure      float64  `json:"pressure_msl"`
			CloudCover    float64  `json:"cloud_cover"`
			UVIndex       *float64 `json:"uv_index"`
			WeatherCode   int      `json:"weather_code"`
		} `json:"current"`
		Hourly struct {
			Temperature []float64 `json:"temperature_2m"`
			PrecipProb  []float64 `json:"precipitation_probability"`
			WindSpeed   []float64 `json:"wind_speed_10m"`
		} `json:"hourly"`
		Daily struct {
			Time          []string  `json:"time"`
			MaxTemp       []float64 `json:"temperature_2m_max"`
			MinTemp       []float64 `json:"temperature_2m_min"`
			Precipitation []float64 `json:"precipitation_sum"`
			MaxWind       []float64 `json:"wind_speed_10m_max"`
			ET0           []float64 `json:"et0_fao_evapotranspiration"`
		} `json:"daily"`
	}

	if err := p.client.getJSON(ctx, p.baseURL, values, nil, &payload); err != nil {
		return agro.WeatherSnapshot{}, err
	}
	cur := payload.Current
	if cur.Temperature == nil || cur.Humidity == nil {
		return agro.WeatherSnapshot{}, fmt.Errorf("openmeteo: %w: missing current conditions", errIncomplete)
	}

	snap := agro.WeatherSnapshot{
		TemperatureC:     *cur.Temperature,
		HumidityPct:      *cur.Humidity,
		PrecipitationMM:  cur.Precipitation,
		WindSpeed:        cur.WindSpeed,
		WindDirectionDeg: cur.WindDirection,
		PressureHpa:      cur.Pressure,
		CloudCoverPct:    cur.CloudCover,
		UVIndex:          cur.UVIndex,
		Condition:        mapOpenMeteoCondition(cur.WeatherCode),
		Provider:         p.Name(),
	}

	d := payload.Daily
	for i := 0; i < len(d.Time) && i < 7; i++ {
		snap.Daily = append(snap.Daily, agro.DailyForecast{
			Date:            d.Time[i],
			MaxTempC:        at(d.MaxTemp, i),
			MinTempC:        at(d.MinTemp, i),
			PrecipitationMM: at(d.Precipitation, i),
			MaxWind:         at(d.MaxWind, i),
		})
	}
	if len(d.ET0) > 0 {
		et0 := d.ET0[0]
		snap.ET0MM = &et0
	}

	h := payload.Hourly
	for i := 0; i < len(h.Temperature) && i < 24; i++ {
		snap.Hourly = append(snap.Hourly, agro.HourlyForecast{
			Hour:              i,
			TemperatureC:      h.Temperature[i],
			PrecipitationProb: at(h.PrecipProb, i),
			WindSpeed:         at(h.WindSpeed, i),
		})
	}
	return snap, nil
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}

func mapOpenMeteoCondition(code int) agro.Condition {
	// WMO weather interpretation codes.
	switch {
	case code == 0:
		return agro.ConditionClear
	case code >= 1 && code <= 3:
		return agro.ConditionCloudy
	case code == 45 || code == 48:
		return agro.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return agro.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return agro.ConditionSnow
	case code >= 95:
		return agro.ConditionStorm
	default:
		return agro.ConditionUnknown
	}
}
