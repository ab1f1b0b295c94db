package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// centsPerPoundToUSDTon converts US cents per pound to US dollars per metric ton.
var centsPerPoundToUSDTon = decimal.RequireFromString("22.0462")

var alphaVantageFunctions = map[string]string{
	"corn":   "CORN",
	"wheat":  "WHEAT",
	"coffee": "COFFEE",
	"sugar":  "SUGAR",
	"cotton": "COTTON",
}

// AlphaVantageProvider reads monthly global commodity prices. It is disabled without a key
// and fails for commodities the API does not publish.
type AlphaVantageProvider struct {
	client  upstreamClient
	apiKey  string
	baseURL string
}

func NewAlphaVantageProvider(opts Options, apiKey string) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		client:  newUpstreamClient("alpha_vantage", opts),
		apiKey:  apiKey,
		baseURL: "https://www.alphavantage.co/query",
	}
}

func (p *AlphaVantageProvider) Name() string  { return "alpha_vantage" }
func (p *AlphaVantageProvider) Enabled() bool { return p.apiKey != "" }

func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, commodity string) (Quote, error) {
	fn, ok := alphaVantageFunctions[NormalizeCommodity(commodity)]
	if !ok {
		return Quote{}, fmt.Errorf("alpha_vantage: commodity %q not published", commodity)
	}

	values := url.Values{}
	values.Set("function", fn)
	values.Set("interval", "monthly")
	values.Set("apikey", p.apiKey)

	var payload struct {
		Unit string `json:"unit"`
		Data []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"data"`
		Note        string `json:"Note"`
		Information string `json:"Information"`
	}
	if err := p.client.getJSON(ctx, p.baseURL, values, nil, &payload); err != nil {
		return Quote{}, err
	}
	if payload.Note != "" || payload.Information != "" {
		return Quote{}, fmt.Errorf("alpha_vantage: %w", errRateLimited)
	}

	// Newest first; missing months are reported as ".".
	var series []decimal.Decimal
	for _, d := range payload.Data {
		v, err := strconv.ParseFloat(d.Value, 64)
		if err != nil {
			continue
		}
		series = append(series, decimal.NewFromFloat(v))
		if len(series) == 2 {
			break
		}
	}
	if len(series) == 0 {
		return Quote{}, fmt.Errorf("alpha_vantage: %w: empty series", errIncomplete)
	}

	toTon := func(v decimal.Decimal) decimal.Decimal {
		if strings.Contains(strings.ToLower(payload.Unit), "cents per pound") {
			return v.Mul(centsPerPoundToUSDTon)
		}
		return v
	}

	latest := toTon(series[0])
	q := Quote{
		PriceUSDTon: latest.Round(2).InexactFloat64(),
		Provider:    p.Name(),
	}
	if len(series) == 2 {
		prev := toTon(series[1])
		if prev.IsPositive() {
			q.MonthlyChangePct = latest.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
	}
	return q, nil
}
