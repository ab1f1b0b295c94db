package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

type futuresContract struct {
	symbol string
	// toUSDTon converts the quoted unit to US dollars per metric ton.
	toUSDTon decimal.Decimal
}

var yahooContracts = map[string]futuresContract{
	"soy":    {"ZS=F", decimal.RequireFromString("0.367437")}, // cents per 60 lb bushel
	"corn":   {"ZC=F", decimal.RequireFromString("0.393683")}, // cents per 56 lb bushel
	"wheat":  {"ZW=F", decimal.RequireFromString("0.367437")}, // cents per 60 lb bushel
	"coffee": {"KC=F", centsPerPoundToUSDTon},
	"sugar":  {"SB=F", centsPerPoundToUSDTon},
	"cotton": {"CT=F", centsPerPoundToUSDTon},
	"rice":   {"ZR=F", centsPerPoundToUSDTon}, // USD per hundredweight
}

// YahooFinanceProvider reads front-month futures quotes. It needs no key.
type YahooFinanceProvider struct {
	client  upstreamClient
	baseURL string
}

func NewYahooFinanceProvider(opts Options) *YahooFinanceProvider {
	return &YahooFinanceProvider{
		client:  newUpstreamClient("yahoo_finance", opts),
		baseURL: "https://query1.finance.yahoo.com/v7/finance/quote",
	}
}

func (p *YahooFinanceProvider) Name() string  { return "yahoo_finance" }
func (p *YahooFinanceProvider) Enabled() bool { return true }

func (p *YahooFinanceProvider) FetchQuote(ctx context.Context, commodity string) (Quote, error) {
	contract, ok := yahooContracts[NormalizeCommodity(commodity)]
	if !ok {
		return Quote{}, fmt.Errorf("yahoo_finance: no futures contract for %q", commodity)
	}

	values := url.Values{}
	values.Set("symbols", contract.symbol)

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"regularMarketPreviousClose"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	headers := map[string]string{"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"}
	if err := p.client.getJSON(ctx, p.baseURL, values, headers, &payload); err != nil {
		return Quote{}, err
	}
	if len(payload.QuoteResponse.Result) == 0 || payload.QuoteResponse.Result[0].RegularMarketPrice == nil {
		return Quote{}, fmt.Errorf("yahoo_finance: %w: no price for %s", errIncomplete, contract.symbol)
	}
	r := payload.QuoteResponse.Result[0]

	price := decimal.NewFromFloat(*r.RegularMarketPrice)
	q := Quote{
		PriceUSDTon: price.Mul(contract.toUSDTon).Round(2).InexactFloat64(),
		Provider:    p.Name(),
	}
	if r.PreviousClose != nil && *r.PreviousClose > 0 {
		prev := decimal.NewFromFloat(*r.PreviousClose)
		q.DailyChangePct = price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return q, nil
}
