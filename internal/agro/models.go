package agro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range or not a number.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Source tags the position in an adapter's upstream chain that produced a snapshot.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceFallback1 Source = "fallback_1"
	SourceFallback2 Source = "fallback_2"
	SourceMock      Source = "mock"
)

// SourceAt maps an index in an upstream chain to its Source tag.
func SourceAt(i int) Source {
	switch i {
	case 0:
		return SourcePrimary
	case 1:
		return SourceFallback1
	case 2:
		return SourceFallback2
	default:
		return Source(fmt.Sprintf("fallback_%d", i))
	}
}

// Health is the state of a provider adapter as of its most recent call or probe.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Coordinate is a single geographic point.
type Coordinate struct {
	Lat float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Lon float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validate rejects NaN and out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return fmt.Errorf("%w: latitude and longitude must be numbers", ErrInvalidCoordinate)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// ParseCoordinate reads a "lat,lon" pair and validates it.
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: expected \"lat,lon\", got %q", ErrInvalidCoordinate, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude: %v", ErrInvalidCoordinate, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude: %v", ErrInvalidCoordinate, err)
	}
	c := Coordinate{Lat: lat, Lon: lon}
	return c, c.Validate()
}

// Key returns a canonical string key for indexing this coordinate in caches.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon)
}

// WeatherSnapshot is the normalized weather view at a point in time.
type WeatherSnapshot struct {
	TemperatureC     float64   `json:"temperature_c"`
	HumidityPct      float64   `json:"humidity_pct"`
	PrecipitationMM  float64   `json:"precipitation_mm"`
	WindSpeed        float64   `json:"wind_speed"`
	WindDirectionDeg float64   `json:"wind_direction_deg"`
	PressureHpa      float64   `json:"pressure_hpa"`
	CloudCoverPct    float64   `json:"cloud_cover_pct"`
	UVIndex          *float64  `json:"uv_index,omitempty"`
	ET0MM            *float64  `json:"et0_mm,omitempty"`
	Condition        Condition `json:"condition"`

	Daily  []DailyForecast  `json:"daily,omitempty"`
	Hourly []HourlyForecast `json:"hourly,omitempty"`

	Insights WeatherInsights `json:"agricultural_insights"`
	Alerts   []WeatherAlert  `json:"alerts,omitempty"`

	Source    Source    `json:"source"`
	Provider  string    `json:"provider"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DailyForecast is one day of an upstream forecast.
type DailyForecast struct {
	Date            string  `json:"date"`
	MaxTempC        float64 `json:"max_temp_c"`
	MinTempC        float64 `json:"min_temp_c"`
	PrecipitationMM float64 `json:"precipitation_mm"`
	MaxWind         float64 `json:"max_wind,omitempty"`
	HumidityPct     float64 `json:"humidity_pct,omitempty"`
}

// HourlyForecast is one hour of an upstream forecast.
type HourlyForecast struct {
	Hour              int     `json:"hour"`
	TemperatureC      float64 `json:"temperature_c"`
	PrecipitationProb float64 `json:"precipitation_prob"`
	WindSpeed         float64 `json:"wind_speed"`
}

// WeatherInsights are coarse agronomic readings of the current conditions.
type WeatherInsights struct {
	IrrigationRecommendation string `json:"irrigation_recommendation"`
	DiseaseRisk              string `json:"disease_risk"`
	StressRisk               string `json:"stress_risk"`
}

// WeatherAlert flags an extreme current reading.
type WeatherAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Classification bands NDVI into canopy density classes.
type Classification string

const (
	ClassBareSoil  Classification = "bare_soil"
	ClassSparse    Classification = "sparse_vegetation"
	ClassModerate  Classification = "moderate_vegetation"
	ClassDense     Classification = "dense_vegetation"
	ClassVeryDense Classification = "very_dense_vegetation"
)

// VegetationHealth is the coarse crop condition derived from NDVI.
type VegetationHealth string

const (
	HealthPoor      VegetationHealth = "poor"
	HealthModerate  VegetationHealth = "moderate"
	HealthGood      VegetationHealth = "good"
	HealthExcellent VegetationHealth = "excellent"
)

// GrowthStage is the crop calendar stage for the current month.
type GrowthStage string

const (
	StagePlanting     GrowthStage = "planting"
	StageDevelopment  GrowthStage = "development"
	StageReproductive GrowthStage = "reproductive"
	StageHarvest      GrowthStage = "harvest"
)

// VegetationTrend is the short-term NDVI direction.
type VegetationTrend string

const (
	VegetationIncreasing VegetationTrend = "increasing"
	VegetationStable     VegetationTrend = "stable"
	VegetationDecreasing VegetationTrend = "decreasing"
)

// VegetationSnapshot is the normalized satellite vegetation view.
type VegetationSnapshot struct {
	NDVI             float64          `json:"ndvi"`
	EVI              float64          `json:"evi"`
	SAVI             float64          `json:"savi"`
	GNDVI            float64          `json:"gndvi"`
	Classification   Classification   `json:"classification"`
	VegetationHealth VegetationHealth `json:"vegetation_health"`
	GrowthStage      GrowthStage      `json:"growth_stage"`
	Trend            VegetationTrend  `json:"trend"`
	StressIndicators []string         `json:"stress_indicators"`
	BiomassEstimate  string           `json:"biomass_estimate"`
	Recommendations  []string         `json:"recommendations"`
	ImageURL         string           `json:"image_url,omitempty"`
	NDVIDate         string           `json:"ndvi_date,omitempty"`

	Source    Source    `json:"source"`
	Provider  string    `json:"provider"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketTrend is the monthly price direction.
type MarketTrend string

const (
	TrendBullish  MarketTrend = "bullish"
	TrendBearish  MarketTrend = "bearish"
	TrendSideways MarketTrend = "sideways"
)

// Volatility is the short-term price dispersion level.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// PriceForecast holds projected USD/ton prices.
type PriceForecast struct {
	NextWeek    float64 `json:"next_week"`
	NextMonth   float64 `json:"next_month"`
	NextQuarter float64 `json:"next_quarter"`
	Confidence  string  `json:"confidence"`
}

// MarketSnapshot is the normalized commodity price view.
type MarketSnapshot struct {
	Commodity        string        `json:"commodity"`
	PriceUSDTon      float64       `json:"price_usd_ton"`
	PriceBRLTon      float64       `json:"price_brl_ton"`
	DailyChangePct   float64       `json:"daily_change_pct"`
	WeeklyChangePct  float64       `json:"weekly_change_pct"`
	MonthlyChangePct float64       `json:"monthly_change_pct"`
	Trend            MarketTrend   `json:"trend"`
	Volatility       Volatility    `json:"volatility"`
	Support          float64       `json:"support"`
	Resistance       float64       `json:"resistance"`
	Recommendation   string        `json:"recommendation"`
	Forecast         PriceForecast `json:"forecast"`
	Factors          []string      `json:"factors"`

	Source    Source    `json:"source"`
	Provider  string    `json:"provider"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AggregateSnapshot is the triple of domain snapshots observed together for one coordinate.
type AggregateSnapshot struct {
	Weather     WeatherSnapshot    `json:"weather"`
	Vegetation  VegetationSnapshot `json:"vegetation"`
	Market      MarketSnapshot     `json:"market"`
	Basket      []MarketSnapshot   `json:"basket,omitempty"`
	Location    Coordinate         `json:"location"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// TilePreview points at a rendered NDVI map tile.
type TilePreview struct {
	Layer   string `json:"layer"`
	Date    string `json:"date"`
	Zoom    int    `json:"zoom"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	TileURL string `json:"tile_url"`
}
