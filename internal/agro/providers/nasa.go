package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// NASAImageryProvider checks Landsat imagery availability for the point through the NASA
// Earth API and derives a seasonal NDVI estimate when imagery exists.
type NASAImageryProvider struct {
	client  upstreamClient
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewNASAImageryProvider(opts Options, apiKey string) *NASAImageryProvider {
	opts = opts.withDefaults()
	return &NASAImageryProvider{
		client:  newUpstreamClient("nasa_earth", opts),
		apiKey:  apiKey,
		baseURL: "https://api.nasa.gov/planetary/earth/imagery",
		now:     opts.Now,
	}
}

func (p *NASAImageryProvider) Name() string  { return "nasa_earth" }
func (p *NASAImageryProvider) Enabled() bool { return p.apiKey != "" }

func (p *NASAImageryProvider) FetchNDVI(ctx context.Context, c agro.Coordinate, date string) (NDVIReading, error) {
	now := p.now()
	if date == "" {
		date = now.AddDate(0, 0, -30).Format(time.DateOnly)
	}

	values := url.Values{}
	values.Set("lon", fmt.Sprintf("%f", c.Lon))
	values.Set("lat", fmt.Sprintf("%f", c.Lat))
	values.Set("date", date)
	values.Set("dim", "0.10")

	public := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	values.Set("api_key", p.apiKey)

	resp, err := p.client.get(ctx, p.baseURL, values, map[string]string{"Accept": "image/png"})
	if err != nil {
		return NDVIReading{}, err
	}
	drain(resp)

	return NDVIReading{
		NDVI:     imageryNDVI(c.Lat, now.Month()),
		Trend:    imageryTrend(now.Month()),
		ImageURL: public,
		Provider: p.Name(),
	}, nil
}

// imageryNDVI is the seasonal estimate used when imagery is available: higher in the
// rainy months, shifted by latitude.
func imageryNDVI(lat float64, m time.Month) float64 {
	switch m {
	case time.November, time.December, time.January, time.February, time.March:
		return agro.ClampUnit(0.7 + (lat+15)*0.01)
	default:
		return agro.ClampUnit(0.5 + (lat+15)*0.01)
	}
}

func imageryTrend(m time.Month) agro.VegetationTrend {
	if m > time.June {
		return agro.VegetationIncreasing
	}
	return agro.VegetationDecreasing
}
