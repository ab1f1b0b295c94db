package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i474232898/agro-insight/internal/agro"
)

// WeatherUpstream is a single weather API in the fallback chain.
type WeatherUpstream interface {
	Name() string
	Enabled() bool
	FetchWeather(ctx context.Context, c agro.Coordinate) (agro.WeatherSnapshot, error)
}

// probeCoordinate is the fixed point used for health probes.
var probeCoordinate = agro.Coordinate{Lat: 0, Lon: 0}

// WeatherProvider implements agro.WeatherAdapter over an ordered list of upstreams.
type WeatherProvider struct {
	upstreams []WeatherUpstream
	opts      Options
	log       *slog.Logger
	health    healthTracker
}

// NewWeatherProvider builds the adapter. Upstreams are tried in the given order: the first
// is the primary, the rest are fallbacks.
func NewWeatherProvider(opts Options, upstreams ...WeatherUpstream) *WeatherProvider {
	opts = opts.withDefaults()
	return &WeatherProvider{
		upstreams: upstreams,
		opts:      opts,
		log:       opts.Logger.With("adapter", "weather"),
	}
}

func (p *WeatherProvider) Name() string { return "weather" }

func (p *WeatherProvider) Health() agro.Health { return p.health.get() }

// Weather returns the first upstream snapshot that succeeds, or the simulated one.
func (p *WeatherProvider) Weather(ctx context.Context, c agro.Coordinate) agro.WeatherSnapshot {
	ctx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	attempts := make([]attempt[agro.WeatherSnapshot], len(p.upstreams))
	for i, u := range p.upstreams {
		attempts[i].upstream = u.Name()
		if !u.Enabled() {
			continue
		}
		attempts[i].fetch = func(ctx context.Context) (agro.WeatherSnapshot, error) {
			return u.FetchWeather(ctx, c)
		}
	}

	snap, src, ok := firstSuccess(ctx, p.log, p.Name(), p.opts.UpstreamTimeout, attempts)
	if !ok {
		return p.downgrade(c)
	}
	p.health.record(src)

	snap.Source = src
	snap.Timestamp = p.opts.Now().UTC()
	if snap.ET0MM == nil {
		et0 := p.estimateET0(snap, c)
		snap.ET0MM = &et0
	}
	return finishWeather(snap)
}

// MockWeather returns the deterministic degraded snapshot.
func (p *WeatherProvider) MockWeather(c agro.Coordinate) agro.WeatherSnapshot {
	return finishWeather(agro.WeatherSnapshot{
		TemperatureC:     25,
		HumidityPct:      65,
		PrecipitationMM:  0,
		WindSpeed:        10,
		WindDirectionDeg: 180,
		PressureHpa:      1013,
		Condition:        agro.ConditionUnknown,
		Source:           agro.SourceMock,
		Provider:         "simulated",
		Note:             "Simulated data: weather upstreams unavailable",
		Timestamp:        p.opts.Now().UTC(),
	})
}

// Probe checks the primary upstream only.
func (p *WeatherProvider) Probe(ctx context.Context) agro.Health {
	if len(p.upstreams) == 0 || !p.upstreams[0].Enabled() {
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.UpstreamTimeout)
	defer cancel()

	if _, err := p.upstreams[0].FetchWeather(ctx, probeCoordinate); err != nil {
		p.log.Warn("health probe failed", "upstream", p.upstreams[0].Name(), "err", err)
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	p.health.set(agro.HealthHealthy)
	return agro.HealthHealthy
}

func (p *WeatherProvider) downgrade(c agro.Coordinate) agro.WeatherSnapshot {
	snap, err := safeMock(func() agro.WeatherSnapshot { return p.MockWeather(c) })
	if err != nil {
		p.log.Error("mock weather failed", "err", err)
		p.health.set(agro.HealthUnhealthy)
		return agro.WeatherSnapshot{
			TemperatureC: 25, HumidityPct: 65, WindSpeed: 10, WindDirectionDeg: 180, PressureHpa: 1013,
			Condition: agro.ConditionUnknown, Source: agro.SourceMock, Provider: "static",
			Note: "Static data: weather simulation failed", Timestamp: p.opts.Now().UTC(),
		}
	}
	p.log.Warn("all upstreams failed, using simulated weather", "lat", c.Lat, "lon", c.Lon)
	p.health.set(agro.HealthDegraded)
	return snap
}

func (p *WeatherProvider) estimateET0(s agro.WeatherSnapshot, c agro.Coordinate) float64 {
	tmax, tmin := s.TemperatureC+3, s.TemperatureC-3
	if len(s.Daily) > 0 && s.Daily[0].MaxTempC > s.Daily[0].MinTempC {
		tmax, tmin = s.Daily[0].MaxTempC, s.Daily[0].MinTempC
	}
	return agro.ET0(tmax, tmin, s.HumidityPct, s.WindSpeed, s.CloudCoverPct, s.PressureHpa, c.Lat, p.opts.Now())
}

func finishWeather(s agro.WeatherSnapshot) agro.WeatherSnapshot {
	if len(s.Daily) > 7 {
		s.Daily = s.Daily[:7]
	}
	if len(s.Hourly) > 24 {
		s.Hourly = s.Hourly[:24]
	}
	s.Insights = WeatherInsights(s.TemperatureC, s.HumidityPct, s.PrecipitationMM)
	s.Alerts = WeatherAlerts(s.TemperatureC, s.PrecipitationMM, s.WindSpeed)
	return s
}

// WeatherInsights derives agronomic readings from current conditions.
func WeatherInsights(temp, humidity, precip float64) agro.WeatherInsights {
	in := agro.WeatherInsights{
		IrrigationRecommendation: "normal",
		DiseaseRisk:              "low",
		StressRisk:               "low",
	}
	switch {
	case precip < 5 && humidity < 60:
		in.IrrigationRecommendation = "increase"
	case precip > 20:
		in.IrrigationRecommendation = "reduce"
	}
	if humidity > 80 && temp >= 20 && temp <= 30 {
		in.DiseaseRisk = "high"
	}
	switch {
	case temp > 35:
		in.StressRisk = "high"
	case temp < 10:
		in.StressRisk = "frost_risk"
	}
	return in
}

// WeatherAlerts flags extreme current readings. Wind is in km/h.
func WeatherAlerts(temp, precip, wind float64) []agro.WeatherAlert {
	var alerts []agro.WeatherAlert
	if temp > 40 {
		alerts = append(alerts, agro.WeatherAlert{
			Type:     "temperature",
			Severity: "high",
			Message:  fmt.Sprintf("Extreme temperature: %.1f°C. Risk of heat stress on crops.", temp),
		})
	}
	if precip > 50 {
		alerts = append(alerts, agro.WeatherAlert{
			Type:     "precipitation",
			Severity: "medium",
			Message:  fmt.Sprintf("Heavy rain: %.1fmm. Watch for waterlogging.", precip),
		})
	}
	if wind > 60 {
		alerts = append(alerts, agro.WeatherAlert{
			Type:     "wind",
			Severity: "high",
			Message:  fmt.Sprintf("Strong wind: %.1f km/h. Risk of crop damage.", wind),
		})
	}
	return alerts
}
