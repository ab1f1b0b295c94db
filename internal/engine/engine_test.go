package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/agro-insight/internal/agro"
)

var fixedNow = time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(func() time.Time { return fixedNow })
}

func aggregate(temp, humidity, precip, ndvi float64, health agro.VegetationHealth, trend agro.MarketTrend, monthly float64) agro.AggregateSnapshot {
	return agro.AggregateSnapshot{
		Weather: agro.WeatherSnapshot{
			TemperatureC: temp, HumidityPct: humidity, PrecipitationMM: precip, Source: agro.SourceMock,
		},
		Vegetation: agro.VegetationSnapshot{NDVI: ndvi, VegetationHealth: health, Source: agro.SourceMock},
		Market:     agro.MarketSnapshot{Trend: trend, MonthlyChangePct: monthly, Source: agro.SourceMock},
	}
}

func TestAnalyzeWinterSoyDefaults(t *testing.T) {
	r := newTestEngine().Analyze(aggregate(25, 65, 0, 0.5, agro.HealthGood, agro.TrendSideways, 0), "soy")

	assert.Equal(t, 4, r.Analyses.Irrigation.WaterStressScore)
	assert.Equal(t, IrrigateSoon, r.Analyses.Irrigation.Recommendation)
	assert.Equal(t, UrgencyMedium, r.Analyses.Irrigation.Urgency)
	assert.Equal(t, "Schedule irrigation for the next 24 hours", r.Analyses.Irrigation.Action)
	// precip < 5 and ndvi < 0.6 each add one
	assert.Equal(t, 2, r.RiskScore)
	assert.Equal(t, StatusLowRisk, r.OverallStatus)
	assert.Equal(t, UrgencyLow, r.Analyses.PestRisk.RiskLevel)
	assert.Equal(t, MonitorMarket, r.Analyses.MarketTiming.Recommendation)
	assert.Equal(t, fixedNow, r.Timestamp)
}

func TestAnalyzeHotDryStressedCorn(t *testing.T) {
	r := newTestEngine().Analyze(aggregate(36, 40, 0, 0.3, agro.HealthPoor, agro.TrendBullish, 6), "corn")

	irr := r.Analyses.Irrigation
	assert.Equal(t, 10, irr.WaterStressScore)
	assert.Equal(t, IrrigateImmediately, irr.Recommendation)
	assert.Equal(t, UrgencyHigh, irr.Urgency)

	pest := r.Analyses.PestRisk
	assert.Equal(t, 3, pest.RiskScore)
	assert.Equal(t, UrgencyMedium, pest.RiskLevel)
	assert.Equal(t, WeeklyMonitoring, pest.Recommendation)
	assert.Equal(t, []string{"Stressed vegetation more susceptible"}, pest.RiskFactors)
	assert.Len(t, pest.PreventiveActions, 3)

	assert.Equal(t, WaitForHarvest, r.Analyses.MarketTiming.Recommendation)
	assert.Equal(t, TimingWait, r.Analyses.MarketTiming.Timing)

	assert.Equal(t, 5, r.RiskScore)
	assert.Equal(t, StatusModerateRisk, r.OverallStatus)

	assert.False(t, r.Analyses.Harvest.WeatherSuitable)
	assert.Equal(t, ContinueMonitoring, r.Analyses.Harvest.Recommendation)

	require.Len(t, r.PriorityActions, 1)
	assert.Equal(t, "Irrigation Required", r.PriorityActions[0].Action)
	assert.Equal(t, "IRRIGATION", r.DecisionSupport.MainDecision.Action)

	require.Len(t, r.Alerts, 1)
	assert.Equal(t, "irrigation", r.Alerts[0].Type)
	assert.Equal(t, UrgencyHigh, r.Alerts[0].Severity)
	assert.Equal(t, "Urgent irrigation required", r.Alerts[0].Message)

	assert.Equal(t, []string{"Thermal stress detected: high temperature coincides with low NDVI"}, r.IntegratedInsights)
}

func TestAnalyzeHarvestReady(t *testing.T) {
	r := newTestEngine().Analyze(aggregate(22, 65, 0, 0.45, agro.HealthModerate, agro.TrendSideways, 0), "soja")

	h := r.Analyses.Harvest
	assert.Equal(t, MaturityReady, h.MaturityStage)
	assert.True(t, h.WeatherSuitable)
	assert.Equal(t, HarvestNow, h.Recommendation)
	assert.Equal(t, TimingOptimal, h.Timing)
	assert.Equal(t, 0, h.EstimatedDaysToHarvest)
	assert.Equal(t, "soy", r.Culture)

	require.NotEmpty(t, r.PriorityActions)
	assert.Equal(t, 1, r.PriorityActions[0].Priority)
	assert.Equal(t, "Harvest Ready", r.PriorityActions[0].Action)
	assert.Equal(t, "HARVEST", r.DecisionSupport.MainDecision.Action)
}

func TestHarvestMaturityBands(t *testing.T) {
	tests := []struct {
		ndvi     float64
		maturity Maturity
		days     int
		rec      Recommendation
	}{
		{0.75, MaturityDeveloping, 45, ContinueMonitoring},
		{0.6, MaturityApproaching, 15, PrepareHarvest},
		{0.5, MaturityReady, 0, HarvestNow},
	}
	for _, tt := range tests {
		h := analyzeHarvest(inputs{temp: 25, ndvi: tt.ndvi, culture: "corn", trend: agro.TrendSideways})
		assert.Equal(t, tt.maturity, h.MaturityStage, "ndvi %v", tt.ndvi)
		assert.Equal(t, tt.days, h.EstimatedDaysToHarvest)
		assert.Equal(t, tt.rec, h.Recommendation)
	}

	bearish := analyzeHarvest(inputs{temp: 25, ndvi: 0.3, culture: "soy", trend: agro.TrendBearish})
	assert.Equal(t, ContinueMonitoring, bearish.Recommendation)

	coffee := analyzeHarvest(inputs{temp: 25, ndvi: 0.3, culture: "coffee", trend: agro.TrendSideways})
	assert.False(t, coffee.WeatherSuitable)
}

func TestPrioritizeOrdersByPriorityThenSequence(t *testing.T) {
	// harvest optimal, irrigation high, pest high, market favorable all at once
	r := newTestEngine().Analyze(aggregate(26, 85, 0, 0.3, agro.HealthPoor, agro.TrendBullish, 6), "soy")
	// poor health blocks the favorable market window, so force it through the analysis struct
	a := r.Analyses
	a.MarketTiming.Timing = TimingFavorable
	actions := prioritize(a)

	require.Len(t, actions, 4)
	assert.Equal(t, "Harvest Ready", actions[0].Action)
	assert.Equal(t, "Irrigation Required", actions[1].Action)
	assert.Equal(t, "Pest Monitoring", actions[2].Action)
	assert.Equal(t, "Market Opportunity", actions[3].Action)
	assert.Equal(t, UrgencyMedium, actions[3].Urgency)
}

func TestPestRiskHigh(t *testing.T) {
	r := newTestEngine().Analyze(aggregate(25, 85, 30, 0.7, agro.HealthGood, agro.TrendSideways, 0), "soy")

	pest := r.Analyses.PestRisk
	assert.Equal(t, 5, pest.RiskScore)
	assert.Equal(t, UrgencyHigh, pest.RiskLevel)
	assert.Equal(t, ImmediateInspection, pest.Recommendation)
	assert.Len(t, pest.PreventiveActions, 4)

	require.Len(t, r.Alerts, 1)
	assert.Equal(t, "pest", r.Alerts[0].Type)
	assert.Equal(t, UrgencyMedium, r.Alerts[0].Severity)
	assert.Contains(t, r.IntegratedInsights, "Abundant rainfall: irrigation-cost reduction opportunity")
}

func TestMarketFavorable(t *testing.T) {
	r := newTestEngine().Analyze(aggregate(25, 65, 10, 0.85, agro.HealthExcellent, agro.TrendBullish, 8), "soy")

	assert.Equal(t, ConsiderSelling, r.Analyses.MarketTiming.Recommendation)
	assert.Equal(t, TimingFavorable, r.Analyses.MarketTiming.Timing)
	assert.Equal(t, "MARKETING", r.DecisionSupport.MainDecision.Action)
	assert.Contains(t, r.IntegratedInsights, "Ideal window: prices up + excellent crop")

	require.Len(t, r.Alerts, 1)
	assert.Equal(t, "market", r.Alerts[0].Type)
	assert.Equal(t, UrgencyLow, r.Alerts[0].Severity)
	assert.Equal(t, "Sell part of the production to capture high prices", r.Alerts[0].Action)

	bear := newTestEngine().Analyze(aggregate(25, 65, 10, 0.85, agro.HealthExcellent, agro.TrendBearish, -8), "soy")
	assert.Equal(t, HoldProduct, bear.Analyses.MarketTiming.Recommendation)
	assert.Equal(t, TimingUnfavorable, bear.Analyses.MarketTiming.Timing)
}

func TestIrrigationMonotonic(t *testing.T) {
	score := func(temp, hum, precip, ndvi float64) int {
		return analyzeIrrigation(inputs{temp: temp, humidity: hum, precip: precip, ndvi: ndvi}).WaterStressScore
	}

	values := []float64{0, 4.9, 5, 14.9, 15, 30, 60}
	for _, base := range values {
		for _, d := range []float64{0.1, 1, 10, 25} {
			assert.GreaterOrEqual(t, score(25, 60, base, 0.5), score(25, 60, base+d, 0.5), "precip")
			assert.GreaterOrEqual(t, score(25, base, 10, 0.5), score(25, base+d, 10, 0.5), "humidity")
			assert.LessOrEqual(t, score(base, 60, 10, 0.5), score(base+d, 60, 10, 0.5), "temperature")
		}
	}
	for _, ndvi := range []float64{0, 0.39, 0.4, 0.59, 0.6, 0.9} {
		assert.GreaterOrEqual(t, score(25, 60, 10, ndvi), score(25, 60, 10, ndvi+0.05), "ndvi")
	}
}

func TestRiskScoreClamp(t *testing.T) {
	for _, temp := range []float64{-40, 5, 20, 36, 60} {
		for _, precip := range []float64{0, 10, 80} {
			for _, ndvi := range []float64{0, 0.5, 0.9} {
				for _, change := range []float64{-50, 0, 50} {
					r := newTestEngine().Analyze(aggregate(temp, 50, precip, ndvi, agro.HealthGood, agro.TrendSideways, change), "soy")
					assert.GreaterOrEqual(t, r.RiskScore, 0)
					assert.LessOrEqual(t, r.RiskScore, 10)
				}
			}
		}
	}

	worst := riskScore(inputs{temp: 40, precip: 0, ndvi: 0.1, monthlyChange: 20})
	assert.Equal(t, 6, worst)
	assert.Equal(t, StatusModerateRisk, StatusFor(worst))
	assert.Equal(t, StatusHighRisk, StatusFor(7))
	assert.Equal(t, StatusLowRisk, StatusFor(2))
}

func TestAnalyzeDeterministic(t *testing.T) {
	agg := aggregate(31, 55, 3, 0.42, agro.HealthModerate, agro.TrendBullish, 12)
	a := New(nil).Analyze(agg, "corn")
	b := New(nil).Analyze(agg, "corn")

	a.Timestamp, b.Timestamp = time.Time{}, time.Time{}
	for i := range a.Alerts {
		a.Alerts[i].Timestamp = time.Time{}
	}
	for i := range b.Alerts {
		b.Alerts[i].Timestamp = time.Time{}
	}
	assert.Equal(t, a, b)
}

func TestMissingReadingsUseDefaults(t *testing.T) {
	nan := math.NaN()
	agg := aggregate(nan, nan, nan, nan, "", "", nan)

	in := readInputs(agg, "")
	assert.Equal(t, defaultTemperature, in.temp)
	assert.Equal(t, defaultHumidity, in.humidity)
	assert.Equal(t, defaultPrecipitation, in.precip)
	assert.Equal(t, defaultNDVI, in.ndvi)
	assert.Equal(t, agro.HealthGood, in.health)
	assert.Equal(t, agro.TrendSideways, in.trend)
	assert.Equal(t, "soy", in.culture)

	r := newTestEngine().Analyze(agg, "")
	assert.NotNil(t, r.PriorityActions)
	assert.NotNil(t, r.Alerts)
	assert.NotNil(t, r.IntegratedInsights)
}

func TestDataQuality(t *testing.T) {
	c, q := dataQuality(agro.SourcePrimary, agro.SourcePrimary, agro.SourcePrimary)
	assert.Equal(t, "high", c)
	assert.Equal(t, "good", q)

	c, q = dataQuality(agro.SourcePrimary, agro.SourceFallback1, agro.SourcePrimary)
	assert.Equal(t, "medium", c)
	assert.Equal(t, "fallback", q)

	c, q = dataQuality(agro.SourcePrimary, agro.SourceMock, agro.SourceFallback2)
	assert.Equal(t, "low", c)
	assert.Equal(t, "estimated", q)
}

func TestNormalizeCulture(t *testing.T) {
	assert.Equal(t, "soy", NormalizeCulture(" Soja "))
	assert.Equal(t, "corn", NormalizeCulture("MILHO"))
	assert.Equal(t, "coffee", NormalizeCulture("coffee"))
	assert.Equal(t, "soy", NormalizeCulture(""))
}
