package providers

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// VegetationUpstream is a single satellite source in the fallback chain. It reports NDVI
// and, when it has one, a trend.
type VegetationUpstream interface {
	Name() string
	Enabled() bool
	FetchNDVI(ctx context.Context, c agro.Coordinate, date string) (NDVIReading, error)
}

// NDVIReading is the raw result of a satellite upstream.
type NDVIReading struct {
	NDVI     float64
	Trend    agro.VegetationTrend
	ImageURL string
	Provider string
}

// VegetationProvider implements agro.VegetationAdapter.
type VegetationProvider struct {
	upstreams []VegetationUpstream
	opts      Options
	log       *slog.Logger
	health    healthTracker

	// simulate is replaceable in tests to exercise the static fallback.
	simulate func(c agro.Coordinate, now time.Time) agro.VegetationSnapshot
}

func NewVegetationProvider(opts Options, upstreams ...VegetationUpstream) *VegetationProvider {
	opts = opts.withDefaults()
	return &VegetationProvider{
		upstreams: upstreams,
		opts:      opts,
		log:       opts.Logger.With("adapter", "vegetation"),
		simulate:  SimulateVegetation,
	}
}

func (p *VegetationProvider) Name() string { return "vegetation" }

func (p *VegetationProvider) Health() agro.Health { return p.health.get() }

func (p *VegetationProvider) Vegetation(ctx context.Context, c agro.Coordinate, date string) agro.VegetationSnapshot {
	ctx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()

	attempts := make([]attempt[NDVIReading], len(p.upstreams))
	for i, u := range p.upstreams {
		attempts[i].upstream = u.Name()
		if !u.Enabled() {
			continue
		}
		attempts[i].fetch = func(ctx context.Context) (NDVIReading, error) {
			return u.FetchNDVI(ctx, c, date)
		}
	}

	r, src, ok := firstSuccess(ctx, p.log, p.Name(), p.opts.UpstreamTimeout, attempts)
	if !ok {
		snap := p.downgrade(c)
		snap.NDVIDate = date
		return snap
	}
	p.health.record(src)

	now := p.opts.Now()
	snap := VegetationFromNDVI(r.NDVI, now.Month(), r.Trend)
	snap.ImageURL = r.ImageURL
	snap.Provider = r.Provider
	snap.Source = src
	snap.NDVIDate = date
	snap.Timestamp = now.UTC()
	return snap
}

// MockVegetation returns the simulated snapshot for the current month.
func (p *VegetationProvider) MockVegetation(c agro.Coordinate) agro.VegetationSnapshot {
	return p.simulate(c, p.opts.Now())
}

func (p *VegetationProvider) Probe(ctx context.Context) agro.Health {
	if len(p.upstreams) == 0 || !p.upstreams[0].Enabled() {
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.UpstreamTimeout)
	defer cancel()

	if _, err := p.upstreams[0].FetchNDVI(ctx, probeCoordinate, ""); err != nil {
		p.log.Warn("health probe failed", "upstream", p.upstreams[0].Name(), "err", err)
		p.health.set(agro.HealthDegraded)
		return agro.HealthDegraded
	}
	p.health.set(agro.HealthHealthy)
	return agro.HealthHealthy
}

func (p *VegetationProvider) downgrade(c agro.Coordinate) agro.VegetationSnapshot {
	snap, err := safeMock(func() agro.VegetationSnapshot { return p.MockVegetation(c) })
	if err != nil {
		p.log.Error("vegetation simulation failed, using static snapshot", "err", err)
		p.health.set(agro.HealthUnhealthy)
		return staticVegetation(p.opts.Now())
	}
	p.log.Warn("all upstreams failed, using simulated vegetation", "lat", c.Lat, "lon", c.Lon)
	p.health.set(agro.HealthDegraded)
	return snap
}

// SimulateVegetation derives NDVI from the coordinate and the calendar month.
func SimulateVegetation(c agro.Coordinate, now time.Time) agro.VegetationSnapshot {
	base := 0.6
	if c.Lat >= -35 && c.Lat <= 5 {
		switch now.Month() {
		case time.December, time.January, time.February:
			base = 0.7
		case time.June, time.July, time.August:
			base = 0.5
		}
	}
	switch {
	case c.Lon >= -70 && c.Lon <= -40:
		base += 0.1
	case c.Lon > -40 && c.Lon <= -30:
		base -= 0.1
	}

	snap := VegetationFromNDVI(base, now.Month(), agro.VegetationStable)
	snap.Source = agro.SourceMock
	snap.Provider = "simulated"
	snap.Note = "Simulated data: satellite upstreams unavailable"
	snap.Timestamp = now.UTC()
	return snap
}

func staticVegetation(now time.Time) agro.VegetationSnapshot {
	snap := VegetationFromNDVI(0.65, now.Month(), agro.VegetationStable)
	snap.Source = agro.SourceMock
	snap.Provider = "static"
	snap.Note = "Static data: satellite simulation failed"
	snap.Timestamp = now.UTC()
	return snap
}

// VegetationFromNDVI builds the derived indices and agronomic analysis for an NDVI value.
func VegetationFromNDVI(ndvi float64, month time.Month, trend agro.VegetationTrend) agro.VegetationSnapshot {
	ndvi = round3(agro.ClampUnit(ndvi))
	if trend == "" {
		trend = agro.VegetationStable
	}

	snap := agro.VegetationSnapshot{
		NDVI:             ndvi,
		EVI:              round3(ndvi * 0.8),
		SAVI:             round3(ndvi * 0.9),
		GNDVI:            round3(ndvi * 0.85),
		Classification:   agro.ClassifyNDVI(ndvi),
		VegetationHealth: agro.HealthFromNDVI(ndvi),
		GrowthStage:      agro.StageForMonth(month),
		Trend:            trend,
		StressIndicators: []string{},
		BiomassEstimate:  "medium",
	}

	switch {
	case ndvi < 0.3:
		snap.StressIndicators = append(snap.StressIndicators, "low_vegetation_cover")
		snap.BiomassEstimate = "low"
		snap.Recommendations = []string{
			"Check the irrigation system",
			"Assess fertilization needs",
			"Investigate possible pests or diseases",
			"Consider replanting very sparse areas",
		}
	case ndvi < 0.5:
		snap.StressIndicators = append(snap.StressIndicators, "moderate_stress")
		snap.BiomassEstimate = "medium-low"
		snap.Recommendations = []string{
			"Monitor crop development",
			"Check soil nutrient levels",
			"Adjust irrigation if needed",
		}
	case ndvi > 0.8:
		snap.BiomassEstimate = "high"
		snap.Recommendations = []string{
			"Vegetation in excellent condition",
			"Keep current management practices",
			"Prepare for the next crop stage",
		}
	default:
		snap.Recommendations = []string{"Vegetation developing normally"}
	}
	return snap
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
