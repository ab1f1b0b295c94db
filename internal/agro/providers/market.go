package providers

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/i474232898/agro-insight/internal/agro"
)

// DefaultBasket is the commodity list used when a basket request names none.
var DefaultBasket = []string{"corn", "soy", "wheat", "coffee", "sugar"}

var basePrices = map[string]float64{
	"soy":       450,
	"corn":      200,
	"wheat":     250,
	"coffee":    1800,
	"sugar":     400,
	"cotton":    1600,
	"rice":      350,
	"sugarcane": 50,
}

const unknownBasePrice = 300.0

var seasonality = map[string][12]float64{
	"soy":    {1.05, 1.08, 1.02, 0.98, 0.95, 0.93, 0.94, 0.96, 0.98, 1.00, 1.02, 1.04},
	"corn":   {1.02, 1.04, 1.06, 1.03, 0.98, 0.95, 0.92, 0.94, 0.97, 1.00, 1.01, 1.02},
	"coffee": {0.98, 0.96, 0.95, 0.97, 1.02, 1.05, 1.08, 1.06, 1.03, 1.00, 0.99, 0.98},
}

var commodityAliases = map[string]string{
	"soja":           "soy",
	"soybean":        "soy",
	"soybeans":       "soy",
	"milho":          "corn",
	"trigo":          "wheat",
	"café":           "coffee",
	"cafe":           "coffee",
	"açúcar":         "sugar",
	"acucar":         "sugar",
	"algodão":        "cotton",
	"algodao":        "cotton",
	"arroz":          "rice",
	"cana-de-açúcar": "sugarcane",
	"cana-de-acucar": "sugarcane",
	"cana":           "sugarcane",
}

// NormalizeCommodity lower-cases key and maps Portuguese and plural aliases to canonical keys.
func NormalizeCommodity(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canon, ok := commodityAliases[k]; ok {
		return canon
	}
	return k
}

// SeasonalFactor returns the price multiplier for commodity in month, 1.0 when undefined.
func SeasonalFactor(commodity string, m time.Month) float64 {
	table, ok := seasonality[NormalizeCommodity(commodity)]
	if !ok || m < time.January || m > time.December {
		return 1.0
	}
	return table[m-1]
}

// BasePrice returns the reference USD/ton price for commodity.
func BasePrice(commodity string) float64 {
	if p, ok := basePrices[NormalizeCommodity(commodity)]; ok {
		return p
	}
	return unknownBasePrice
}

// Quote is the raw result of a price upstream, already in USD/ton.
type Quote struct {
	PriceUSDTon      float64
	DailyChangePct   float64
	WeeklyChangePct  float64
	MonthlyChangePct float64
	Provider         string
}

// MarketUpstream is a single price source in the fallback chain.
type MarketUpstream interface {
	Name() string
	Enabled() bool
	FetchQuote(ctx context.Context, commodity string) (Quote, error)
}

// MarketProvider implements agro.MarketAdapter.
type MarketProvider struct {
	upstreams []MarketUpstream
	opts      Options
	log       *slog.Logger
	health    healthTracker

	simulate func(commodity string) agro.MarketSnapshot
}

func NewMarketProvider(opts Options, upstreams ...MarketUpstream) *MarketProvider {
	opts = opts.withDefaults()
	p := &MarketProvider{
		upstreams: upstreams,
		opts:      opts,
		log:       opts.Logger.With("adapter", "market"),
	}
	p.simulate = p.simulateMarket
	return p
}

func (p *MarketProvider) Name() string { return "market" }

func (p *MarketProvider) Health() agro.Health { return p.health.get() }

func (p *MarketProvider) Market(ctx context.Context, commodity string) agro.MarketSnapshot {
	commodity = NormalizeCommodity(commodity)

	ctx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	attempts := make([]attempt[Quote], len(p.upstreams))
	for i, u := range p.upstreams {
		attempts[i].upstream = u.Name()
		if !u.Enabled() {
			continue
		}
		attempts[i].fetch = func(ctx context.Context) (Quote, error) {
			return u.FetchQuote(ctx, commodity)
		}
	}

	q, src, ok := firstSuccess(ctx, p.log, p.Name(), p.opts.UpstreamTimeout, attempts)
	if !ok {
		return p.downgrade(commodity)
	}
	p.health.record(src)

	now := p.opts.Now()
	snap := BuildMarketSnapshot(commodity, q, now.Month(), p.opts.Rand, p.opts.BRLRate)
	snap.Source = src
	snap.Timestamp = now.UTC()
	return snap
}

func (p *MarketProvider) MockMarket(commodity string) agro.MarketSnapshot {
	return p.simulate(NormalizeCommodity(commodity))
}

func (p *MarketProvider) Probe(ctx context.Context) agro.Health {
	if len(p.upstreams) == 0 || !p.upstreams[0].Enabled() {
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.UpstreamTimeout)
	defer cancel()

	if _, err := p.upstreams[0].FetchQuote(ctx, "corn"); err != nil {
		p.log.Warn("health probe failed", "upstream", p.upstreams[0].Name(), "err", err)
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	p.health.set(agro.HealthHealthy)
	return agro.HealthHealthy
}

func (p *MarketProvider) downgrade(commodity string) agro.MarketSnapshot {
	snap, err := safeMock(func() agro.MarketSnapshot { return p.MockMarket(commodity) })
	if err != nil {
		p.log.Error("market simulation failed, using static snapshot", "commodity", commodity, "err", err)
		p.health.set(agro.HealthUnhealthy)
		return staticMarket(commodity, p.opts.Now())
	}
	p.log.Warn("all upstreams failed, using simulated prices", "commodity", commodity)
	p.health.set(agro.HealthDegraded)
	return snap
}

func (p *MarketProvider) simulateMarket(commodity string) agro.MarketSnapshot {
	now := p.opts.Now()
	snap := BuildMarketSnapshot(commodity, SimulateQuote(commodity, now.Month(), p.opts.Rand), now.Month(), p.opts.Rand, p.opts.BRLRate)
	snap.Source = agro.SourceMock
	snap.Note = "Simulated data: market upstreams unavailable"
	snap.Timestamp = now.UTC()
	return snap
}

// SimulateQuote draws a seasonal price with a uniform random walk.
func SimulateQuote(commodity string, m time.Month, r Rand) Quote {
	price := decimal.NewFromFloat(BasePrice(commodity)).
		Mul(decimal.NewFromFloat(SeasonalFactor(commodity, m)))
	return Quote{
		PriceUSDTon:      price.Round(2).InexactFloat64(),
		DailyChangePct:   uniform(r, -3, 3),
		WeeklyChangePct:  uniform(r, -8, 8),
		MonthlyChangePct: uniform(r, -15, 15),
		Provider:         "simulated",
	}
}

// BuildMarketSnapshot derives the full snapshot from a quote.
func BuildMarketSnapshot(commodity string, q Quote, m time.Month, r Rand, brlRate float64) agro.MarketSnapshot {
	price := decimal.NewFromFloat(q.PriceUSDTon).Round(2)
	daily := round2(q.DailyChangePct)
	weekly := round2(q.WeeklyChangePct)
	monthly := round2(q.MonthlyChangePct)
	trend := TrendFromMonthly(monthly)

	scaled := func(f float64) float64 {
		return price.Mul(decimal.NewFromFloat(f)).Round(2).InexactFloat64()
	}

	return agro.MarketSnapshot{
		Commodity:        commodity,
		PriceUSDTon:      price.InexactFloat64(),
		PriceBRLTon:      scaled(brlRate),
		DailyChangePct:   daily,
		WeeklyChangePct:  weekly,
		MonthlyChangePct: monthly,
		Trend:            trend,
		Volatility:       VolatilityLevel(daily, weekly),
		Support:          scaled(0.95),
		Resistance:       scaled(1.05),
		Recommendation:   marketRecommendation(trend),
		Forecast: agro.PriceForecast{
			NextWeek:    scaled(uniform(r, 0.95, 1.05)),
			NextMonth:   scaled(uniform(r, 0.90, 1.10)),
			NextQuarter: scaled(uniform(r, 0.85, 1.15)),
			Confidence:  "medium",
		},
		Factors:  MarketFactors(m),
		Provider: q.Provider,
	}
}

// TrendFromMonthly classifies the monthly change.
func TrendFromMonthly(monthly float64) agro.MarketTrend {
	switch {
	case monthly > 5:
		return agro.TrendBullish
	case monthly < -5:
		return agro.TrendBearish
	default:
		return agro.TrendSideways
	}
}

// VolatilityLevel scores |daily| + 0.3·|weekly|.
func VolatilityLevel(daily, weekly float64) agro.Volatility {
	v := math.Abs(daily) + math.Abs(weekly)*0.3
	switch {
	case v > 4:
		return agro.VolatilityHigh
	case v > 2:
		return agro.VolatilityMedium
	default:
		return agro.VolatilityLow
	}
}

func marketRecommendation(t agro.MarketTrend) string {
	switch t {
	case agro.TrendBullish:
		return "hold_or_sell"
	case agro.TrendBearish:
		return "buy_or_wait"
	default:
		return "monitor"
	}
}

// MarketFactors lists the drivers of price for month.
func MarketFactors(m time.Month) []string {
	var factors []string
	switch m {
	case time.December, time.January, time.February, time.March:
		factors = append(factors, "Harvest period - selling pressure")
	case time.September, time.October, time.November:
		factors = append(factors, "Planting period - input demand")
	}
	return append(factors,
		"Weather conditions in Brazil",
		"International demand",
		"USD/BRL exchange rate",
		"Government agricultural policy",
	)
}

func staticMarket(commodity string, now time.Time) agro.MarketSnapshot {
	return agro.MarketSnapshot{
		Commodity:        commodity,
		PriceUSDTon:      350,
		PriceBRLTon:      1785,
		DailyChangePct:   0.5,
		WeeklyChangePct:  -1.2,
		MonthlyChangePct: 3.1,
		Trend:            agro.TrendSideways,
		Volatility:       agro.VolatilityMedium,
		Support:          330,
		Resistance:       370,
		Recommendation:   "monitor",
		Forecast: agro.PriceForecast{
			NextWeek:    355,
			NextMonth:   365,
			NextQuarter: 340,
			Confidence:  "low",
		},
		Factors:   []string{"Static data: market simulation failed"},
		Source:    agro.SourceMock,
		Provider:  "static",
		Note:      "Static data: market simulation failed",
		Timestamp: now.UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
