// Package engine turns an aggregate snapshot into a ranked action plan.
//
// Everything here is pure: the only input besides the snapshot is the clock
// used to stamp the report and its alerts.
package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// Fallbacks for readings a snapshot failed to carry.
const (
	defaultTemperature   = 25.0
	defaultHumidity      = 65.0
	defaultPrecipitation = 0.0
	defaultNDVI          = 0.6
	defaultMonthlyChange = 0.0
	maxRiskScore         = 10
)

// Urgency ranks how soon an action is needed.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Status is the overall reading of the risk score.
type Status string

const (
	StatusHighRisk     Status = "high_risk"
	StatusModerateRisk Status = "moderate_risk"
	StatusLowRisk      Status = "low_risk"
	StatusOptimal      Status = "optimal"
)

// Maturity is the crop maturity inferred from NDVI.
type Maturity string

const (
	MaturityDeveloping  Maturity = "developing"
	MaturityApproaching Maturity = "approaching_harvest"
	MaturityReady       Maturity = "harvest_ready"
)

// Timing is the window qualifier attached to market and harvest analyses.
type Timing string

const (
	TimingFavorable   Timing = "favorable"
	TimingWait        Timing = "wait"
	TimingUnfavorable Timing = "unfavorable"
	TimingNeutral     Timing = "neutral"
	TimingOptimal     Timing = "optimal"
	TimingUpcoming    Timing = "upcoming"
	TimingNotReady    Timing = "not_ready"
)

// Recommendation is the machine-readable verdict of a sub-analysis.
type Recommendation string

const (
	IrrigateImmediately Recommendation = "irrigate_immediately"
	IrrigateSoon        Recommendation = "irrigate_soon"
	IrrigationMonitor   Recommendation = "monitor"

	ImmediateInspection Recommendation = "immediate_inspection"
	WeeklyMonitoring    Recommendation = "weekly_monitoring"
	RoutineMonitoring   Recommendation = "routine_monitoring"

	ConsiderSelling Recommendation = "consider_selling"
	WaitForHarvest  Recommendation = "wait_for_harvest"
	HoldProduct     Recommendation = "hold_product"
	MonitorMarket   Recommendation = "monitor_market"

	HarvestNow         Recommendation = "harvest_now"
	PrepareHarvest     Recommendation = "prepare_harvest"
	ContinueMonitoring Recommendation = "continue_monitoring"
)

// IrrigationFactors echoes the readings the irrigation score was built from.
type IrrigationFactors struct {
	PrecipitationMM float64 `json:"precipitation_mm"`
	HumidityPct     float64 `json:"humidity_pct"`
	TemperatureC    float64 `json:"temperature_c"`
	NDVI            float64 `json:"vegetation_index"`
}

// IrrigationAnalysis scores water stress.
type IrrigationAnalysis struct {
	WaterStressScore int               `json:"water_stress_score"`
	Recommendation   Recommendation    `json:"recommendation"`
	Urgency          Urgency           `json:"urgency"`
	Factors          IrrigationFactors `json:"factors"`
	Action           string            `json:"action"`
}

// PestAnalysis scores pest and disease pressure.
type PestAnalysis struct {
	RiskLevel         Urgency        `json:"risk_level"`
	RiskScore         int            `json:"risk_score"`
	Recommendation    Recommendation `json:"recommendation"`
	RiskFactors       []string       `json:"risk_factors"`
	PreventiveActions []string       `json:"preventive_actions"`
}

// MarketTimingAnalysis decides whether to sell now.
type MarketTimingAnalysis struct {
	Recommendation Recommendation   `json:"recommendation"`
	Timing         Timing           `json:"timing"`
	MarketTrend    agro.MarketTrend `json:"market_trend"`
	PriceChangePct float64          `json:"price_change_pct"`
	Strategy       string           `json:"strategy"`
}

// HarvestAnalysis decides whether the crop is ready to harvest.
type HarvestAnalysis struct {
	MaturityStage          Maturity       `json:"maturity_stage"`
	WeatherSuitable        bool           `json:"weather_suitable"`
	Recommendation         Recommendation `json:"recommendation"`
	Timing                 Timing         `json:"timing"`
	EstimatedDaysToHarvest int            `json:"estimated_days_to_harvest"`
}

// Analyses groups the four sub-analyses.
type Analyses struct {
	Irrigation   IrrigationAnalysis   `json:"irrigation"`
	PestRisk     PestAnalysis         `json:"pest_risk"`
	MarketTiming MarketTimingAnalysis `json:"market_timing"`
	Harvest      HarvestAnalysis      `json:"harvest_timing"`
}

// PriorityAction is one entry of the ranked action plan; 1 is the most pressing.
type PriorityAction struct {
	Priority    int     `json:"priority"`
	Action      string  `json:"action"`
	Description string  `json:"description"`
	Urgency     Urgency `json:"urgency"`
}

// Decision is the single headline recommendation.
type Decision struct {
	Action    string `json:"action"`
	Priority  string `json:"priority"`
	Reasoning string `json:"reasoning"`
	Timeline  string `json:"timeline"`
}

// DecisionSupport wraps the headline decision with data-quality hints.
type DecisionSupport struct {
	MainDecision    Decision `json:"main_decision"`
	ConfidenceLevel string   `json:"confidence_level"`
	DataQuality     string   `json:"data_quality"`
	NextReview      string   `json:"next_review"`
}

// Alert is raised for every sub-analysis that crossed its alarm threshold.
type Alert struct {
	Type      string    `json:"type"`
	Severity  Urgency   `json:"severity"`
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is the full output of Analyze.
type Report struct {
	Timestamp          time.Time        `json:"timestamp"`
	Culture            string           `json:"culture"`
	OverallStatus      Status           `json:"overall_status"`
	RiskScore          int              `json:"risk_score"`
	Analyses           Analyses         `json:"analyses"`
	PriorityActions    []PriorityAction `json:"priority_actions"`
	IntegratedInsights []string         `json:"integrated_insights"`
	DecisionSupport    DecisionSupport  `json:"decision_support"`
	Alerts             []Alert          `json:"alerts"`
}

// Engine runs the rules pipeline.
type Engine struct {
	now func() time.Time
}

// New builds an Engine stamping reports with now. A nil now uses time.Now.
func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// inputs is the flattened, defaulted view of an aggregate the rules read from.
type inputs struct {
	temp          float64
	humidity      float64
	precip        float64
	ndvi          float64
	health        agro.VegetationHealth
	trend         agro.MarketTrend
	monthlyChange float64
	culture       string
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func readInputs(agg agro.AggregateSnapshot, culture string) inputs {
	in := inputs{
		temp:          orDefault(agg.Weather.TemperatureC, defaultTemperature),
		humidity:      orDefault(agg.Weather.HumidityPct, defaultHumidity),
		precip:        orDefault(agg.Weather.PrecipitationMM, defaultPrecipitation),
		ndvi:          orDefault(agg.Vegetation.NDVI, defaultNDVI),
		health:        agg.Vegetation.VegetationHealth,
		trend:         agg.Market.Trend,
		monthlyChange: orDefault(agg.Market.MonthlyChangePct, defaultMonthlyChange),
		culture:       NormalizeCulture(culture),
	}
	if in.health == "" {
		in.health = agro.HealthGood
	}
	if in.trend == "" {
		in.trend = agro.TrendSideways
	}
	return in
}

var cultureAliases = map[string]string{
	"soja":  "soy",
	"milho": "corn",
}

// NormalizeCulture lower-cases a crop key and maps local names to canonical ones.
// An empty key normalizes to soy.
func NormalizeCulture(culture string) string {
	c := strings.ToLower(strings.TrimSpace(culture))
	if c == "" {
		return "soy"
	}
	if alias, ok := cultureAliases[c]; ok {
		return alias
	}
	return c
}

// Analyze runs every rule over agg. It never fails.
func (e *Engine) Analyze(agg agro.AggregateSnapshot, culture string) Report {
	in := readInputs(agg, culture)
	now := e.now().UTC()

	analyses := Analyses{
		Irrigation:   analyzeIrrigation(in),
		PestRisk:     analyzePestRisk(in),
		MarketTiming: analyzeMarketTiming(in),
		Harvest:      analyzeHarvest(in),
	}
	risk := riskScore(in)

	return Report{
		Timestamp:          now,
		Culture:            in.culture,
		OverallStatus:      StatusFor(risk),
		RiskScore:          risk,
		Analyses:           analyses,
		PriorityActions:    prioritize(analyses),
		IntegratedInsights: insights(in),
		DecisionSupport:    decisionSupport(analyses, agg),
		Alerts:             alerts(analyses, now),
	}
}

func analyzeIrrigation(in inputs) IrrigationAnalysis {
	w := 0

	switch {
	case in.precip < 5:
		w += 3
	case in.precip < 15:
		w++
	}
	switch {
	case in.humidity < 50:
		w += 2
	case in.humidity < 65:
		w++
	}
	switch {
	case in.temp > 30:
		w += 2
	case in.temp > 25:
		w++
	}
	switch {
	case in.ndvi < 0.4:
		w += 3
	case in.ndvi < 0.6:
		w++
	}

	a := IrrigationAnalysis{
		WaterStressScore: w,
		Factors: IrrigationFactors{
			PrecipitationMM: in.precip,
			HumidityPct:     in.humidity,
			TemperatureC:    in.temp,
			NDVI:            in.ndvi,
		},
	}
	switch {
	case w >= 6:
		a.Recommendation, a.Urgency = IrrigateImmediately, UrgencyHigh
	case w >= 3:
		a.Recommendation, a.Urgency = IrrigateSoon, UrgencyMedium
	default:
		a.Recommendation, a.Urgency = IrrigationMonitor, UrgencyLow
	}
	a.Action = irrigationActions[a.Recommendation]
	return a
}

var irrigationActions = map[Recommendation]string{
	IrrigateImmediately: "Start irrigating within the next 2 hours",
	IrrigateSoon:        "Schedule irrigation for the next 24 hours",
	IrrigationMonitor:   "Keep monitoring daily",
}

func analyzePestRisk(in inputs) PestAnalysis {
	r := 0
	factors := []string{}

	if in.temp >= 20 && in.temp <= 30 && in.humidity > 70 {
		r += 3
		factors = append(factors, "Temp+humidity favorable for pests")
	}
	if in.humidity > 80 {
		r += 2
		factors = append(factors, "High humidity favors fungal disease")
	}
	if in.health == agro.HealthPoor {
		r += 3
		factors = append(factors, "Stressed vegetation more susceptible")
	}

	a := PestAnalysis{RiskScore: r, RiskFactors: factors}
	switch {
	case r >= 5:
		a.RiskLevel, a.Recommendation = UrgencyHigh, ImmediateInspection
	case r >= 3:
		a.RiskLevel, a.Recommendation = UrgencyMedium, WeeklyMonitoring
	default:
		a.RiskLevel, a.Recommendation = UrgencyLow, RoutineMonitoring
	}
	a.PreventiveActions = preventiveActions(a.RiskLevel)
	return a
}

func preventiveActions(level Urgency) []string {
	switch level {
	case UrgencyHigh:
		return []string{
			"Daily visual inspection of plants",
			"Preventive fungicide application",
			"Check insect traps",
			"Inspect drainage system",
		}
	case UrgencyMedium:
		return []string{
			"Weekly crop inspection",
			"Keep the area free of weeds",
			"Check plants showing symptoms",
		}
	default:
		return []string{
			"Routine inspection every two weeks",
			"Keep a log of field observations",
		}
	}
}

func analyzeMarketTiming(in inputs) MarketTimingAnalysis {
	a := MarketTimingAnalysis{MarketTrend: in.trend, PriceChangePct: in.monthlyChange}

	switch {
	case in.trend == agro.TrendBullish && in.monthlyChange > 5:
		if in.health == agro.HealthGood || in.health == agro.HealthExcellent {
			a.Recommendation, a.Timing = ConsiderSelling, TimingFavorable
		} else {
			a.Recommendation, a.Timing = WaitForHarvest, TimingWait
		}
	case in.trend == agro.TrendBearish && in.monthlyChange < -5:
		a.Recommendation, a.Timing = HoldProduct, TimingUnfavorable
	default:
		a.Recommendation, a.Timing = MonitorMarket, TimingNeutral
	}

	a.Strategy = marketStrategy(a.Recommendation)
	return a
}

func marketStrategy(r Recommendation) string {
	switch r {
	case ConsiderSelling:
		return "Sell part of the production to capture high prices"
	case HoldProduct:
		return "Keep product stored until prices recover"
	case MonitorMarket:
		return "Track price swings daily"
	default:
		return "Standard marketing strategy"
	}
}

func analyzeHarvest(in inputs) HarvestAnalysis {
	a := HarvestAnalysis{
		WeatherSuitable: in.temp < 35 && (in.culture == "soy" || in.culture == "corn"),
	}

	switch {
	case in.ndvi > 0.7:
		a.MaturityStage, a.EstimatedDaysToHarvest = MaturityDeveloping, 45
	case in.ndvi > 0.5:
		a.MaturityStage, a.EstimatedDaysToHarvest = MaturityApproaching, 15
	default:
		a.MaturityStage, a.EstimatedDaysToHarvest = MaturityReady, 0
	}

	switch {
	case a.MaturityStage == MaturityReady && a.WeatherSuitable && in.trend != agro.TrendBearish:
		a.Recommendation, a.Timing = HarvestNow, TimingOptimal
	case a.MaturityStage == MaturityApproaching:
		a.Recommendation, a.Timing = PrepareHarvest, TimingUpcoming
	default:
		a.Recommendation, a.Timing = ContinueMonitoring, TimingNotReady
	}
	return a
}

func prioritize(a Analyses) []PriorityAction {
	actions := []PriorityAction{}

	if a.Harvest.Timing == TimingOptimal {
		actions = append(actions, PriorityAction{
			Priority: 1, Action: "Harvest Ready", Description: string(a.Harvest.Recommendation), Urgency: UrgencyHigh,
		})
	}
	if a.Irrigation.Urgency == UrgencyHigh {
		actions = append(actions, PriorityAction{
			Priority: 1, Action: "Irrigation Required", Description: a.Irrigation.Action, Urgency: UrgencyHigh,
		})
	}
	if a.PestRisk.RiskLevel == UrgencyHigh {
		actions = append(actions, PriorityAction{
			Priority: 2, Action: "Pest Monitoring", Description: string(a.PestRisk.Recommendation), Urgency: UrgencyHigh,
		})
	}
	if a.MarketTiming.Timing == TimingFavorable {
		actions = append(actions, PriorityAction{
			Priority: 3, Action: "Market Opportunity", Description: a.MarketTiming.Strategy, Urgency: UrgencyMedium,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })
	return actions
}

func riskScore(in inputs) int {
	score := 0
	if in.temp > 35 || in.temp < 10 {
		score += 2
	}
	if in.precip > 50 {
		score++
	}
	if in.precip < 5 {
		score++
	}
	switch {
	case in.ndvi < 0.4:
		score += 2
	case in.ndvi < 0.6:
		score++
	}
	if math.Abs(in.monthlyChange) > 10 {
		score++
	}
	return min(score, maxRiskScore)
}

// StatusFor maps a risk score onto an overall status.
func StatusFor(score int) Status {
	switch {
	case score >= 7:
		return StatusHighRisk
	case score >= 4:
		return StatusModerateRisk
	case score >= 2:
		return StatusLowRisk
	default:
		return StatusOptimal
	}
}

func insights(in inputs) []string {
	out := []string{}
	if in.temp > 30 && in.ndvi < 0.5 {
		out = append(out, "Thermal stress detected: high temperature coincides with low NDVI")
	}
	if in.trend == agro.TrendBullish && in.health == agro.HealthExcellent {
		out = append(out, "Ideal window: prices up + excellent crop")
	}
	if in.precip > 20 {
		out = append(out, "Abundant rainfall: irrigation-cost reduction opportunity")
	}
	return out
}

func decisionSupport(a Analyses, agg agro.AggregateSnapshot) DecisionSupport {
	var d Decision
	switch {
	case a.Harvest.Timing == TimingOptimal:
		d = Decision{Action: "HARVEST", Priority: "HIGH", Reasoning: "Crop ready and conditions favorable", Timeline: "Next 3-7 days"}
	case a.Irrigation.Urgency == UrgencyHigh:
		d = Decision{Action: "IRRIGATION", Priority: "HIGH", Reasoning: "Water stress detected", Timeline: "Next 24 hours"}
	case a.MarketTiming.Timing == TimingFavorable:
		d = Decision{Action: "MARKETING", Priority: "MEDIUM", Reasoning: "Favorable market prices", Timeline: "Next 2 weeks"}
	default:
		d = Decision{Action: "MONITORING", Priority: "LOW", Reasoning: "Stable conditions", Timeline: "Daily routine"}
	}

	confidence, quality := dataQuality(agg.Weather.Source, agg.Vegetation.Source, agg.Market.Source)
	return DecisionSupport{
		MainDecision:    d,
		ConfidenceLevel: confidence,
		DataQuality:     quality,
		NextReview:      "24 hours",
	}
}

// dataQuality grades the snapshot sources: any mock drags confidence to low,
// all primaries give high.
func dataQuality(sources ...agro.Source) (confidence, quality string) {
	allPrimary := true
	for _, s := range sources {
		if s == agro.SourceMock {
			return "low", "estimated"
		}
		if s != agro.SourcePrimary {
			allPrimary = false
		}
	}
	if allPrimary {
		return "high", "good"
	}
	return "medium", "fallback"
}

func alerts(a Analyses, now time.Time) []Alert {
	out := []Alert{}
	if a.Irrigation.Urgency == UrgencyHigh {
		out = append(out, Alert{
			Type: "irrigation", Severity: UrgencyHigh, Message: "Urgent irrigation required",
			Action: a.Irrigation.Action, Timestamp: now,
		})
	}
	if a.PestRisk.RiskLevel == UrgencyHigh {
		out = append(out, Alert{
			Type: "pest", Severity: UrgencyMedium, Message: "High pest risk detected",
			Action: "Perform detailed inspection", Timestamp: now,
		})
	}
	if a.MarketTiming.Timing == TimingFavorable {
		out = append(out, Alert{
			Type: "market", Severity: UrgencyLow, Message: "Market opportunity identified",
			Action: a.MarketTiming.Strategy, Timestamp: now,
		})
	}
	return out
}
