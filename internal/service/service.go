// Package service joins the provider adapters, the shared cache and the analysis engine.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/agro-insight/internal/agro"
	"github.com/i474232898/agro-insight/internal/agro/providers"
	"github.com/i474232898/agro-insight/internal/cache"
	"github.com/i474232898/agro-insight/internal/engine"
)

const (
	defaultZoom = 6
	healthKey   = "health"
)

// Config holds cache lifetimes and deadlines. Zero values take the defaults from withDefaults.
type Config struct {
	WeatherTTL     time.Duration
	VegetationTTL  time.Duration
	MarketTTL      time.Duration
	PlaceTTL       time.Duration
	HealthTTL      time.Duration
	AdapterTimeout time.Duration
	Slack          time.Duration
}

func (c Config) withDefaults() Config {
	if c.WeatherTTL <= 0 {
		c.WeatherTTL = 10 * time.Minute
	}
	if c.VegetationTTL <= 0 {
		c.VegetationTTL = time.Hour
	}
	if c.MarketTTL <= 0 {
		c.MarketTTL = 5 * time.Minute
	}
	if c.PlaceTTL <= 0 {
		c.PlaceTTL = 24 * time.Hour
	}
	if c.HealthTTL <= 0 {
		c.HealthTTL = 30 * time.Second
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 10 * time.Second
	}
	if c.Slack <= 0 {
		c.Slack = 500 * time.Millisecond
	}
	return c
}

// Deps are the collaborators a Service is built from. Places may be nil.
type Deps struct {
	Weather    agro.WeatherAdapter
	Vegetation agro.VegetationAdapter
	Market     agro.MarketAdapter
	Places     agro.PlaceResolver
	Engine     *engine.Engine
	Cache      *cache.Cache
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service fetches, caches and analyzes snapshots for a coordinate.
type Service struct {
	weather    agro.WeatherAdapter
	vegetation agro.VegetationAdapter
	market     agro.MarketAdapter
	places     agro.PlaceResolver
	engine     *engine.Engine
	cache      *cache.Cache
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
}

// New creates a Service.
func New(d Deps, cfg Config) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Cache == nil {
		d.Cache = cache.New(cache.WithClock(d.Now))
	}
	if d.Engine == nil {
		d.Engine = engine.New(d.Now)
	}
	return &Service{
		weather:    d.Weather,
		vegetation: d.Vegetation,
		market:     d.Market,
		places:     d.Places,
		engine:     d.Engine,
		cache:      d.Cache,
		cfg:        cfg.withDefaults(),
		log:        d.Logger.With("component", "service"),
		now:        d.Now,
	}
}

// Cache exposes the shared cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// OverviewRequest carries the /overview query.
type OverviewRequest struct {
	Coordinate agro.Coordinate
	Culture    string
	Keys       []string
	NDVIDate   string
	Zoom       *int
	Refresh    bool
}

// Overview is the aggregate snapshot merged with its analysis.
type Overview struct {
	agro.AggregateSnapshot
	engine.Report

	Place       string           `json:"place,omitempty"`
	NDVIPreview agro.TilePreview `json:"ndvi_preview"`
}

// Fetch runs the three adapters concurrently and joins their snapshots. It only fails on
// an invalid coordinate; every other fault degrades to a mock snapshot.
func (s *Service) Fetch(ctx context.Context, c agro.Coordinate, commodity, ndviDate string) (agro.AggregateSnapshot, error) {
	if err := c.Validate(); err != nil {
		return agro.AggregateSnapshot{}, err
	}

	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var agg agro.AggregateSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agg.Weather = s.cachedWeather(gctx, c)
		return nil
	})
	g.Go(func() error {
		agg.Vegetation = s.cachedVegetation(gctx, c, ndviDate)
		return nil
	})
	g.Go(func() error {
		agg.Market = s.cachedMarket(gctx, commodity)
		return nil
	})
	_ = g.Wait()

	agg.Location = c
	agg.GeneratedAt = s.now().UTC()
	return agg, nil
}

// Overview fetches, analyzes and decorates one coordinate.
func (s *Service) Overview(ctx context.Context, req OverviewRequest) (Overview, error) {
	if err := req.Coordinate.Validate(); err != nil {
		return Overview{}, err
	}
	if req.Refresh {
		n := s.Invalidate(req.Coordinate)
		s.log.Debug("cache invalidated", "location", req.Coordinate.Key(), "entries", n)
	}

	culture := engine.NormalizeCulture(req.Culture)
	commodity := providers.NormalizeCommodity(culture)
	zoom := defaultZoom
	if req.Zoom != nil {
		zoom = *req.Zoom
	}

	var (
		agg    agro.AggregateSnapshot
		basket []agro.MarketSnapshot
		place  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.Fetch(gctx, req.Coordinate, commodity, req.NDVIDate)
		return err
	})
	if len(req.Keys) > 0 {
		g.Go(func() error {
			basket = s.Basket(gctx, req.Keys)
			return nil
		})
	}
	g.Go(func() error {
		place = s.Place(gctx, req.Coordinate)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	agg.Basket = basket

	return Overview{
		AggregateSnapshot: agg,
		Report:            s.engine.Analyze(agg, culture),
		Place:             place,
		NDVIPreview:       providers.PreviewTile(req.Coordinate, zoom, req.NDVIDate, s.now()),
	}, nil
}

// Basket fetches every commodity in keys concurrently, in the given order. Empty keys
// fall back to the default basket.
func (s *Service) Basket(ctx context.Context, keys []string) []agro.MarketSnapshot {
	if len(keys) == 0 {
		keys = providers.DefaultBasket
	}

	ctx, cancel := s.deadline(ctx)
	defer cancel()

	out := make([]agro.MarketSnapshot, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			out[i] = s.cachedMarket(gctx, k)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Weather returns the weather snapshot for c.
func (s *Service) Weather(ctx context.Context, c agro.Coordinate) (agro.WeatherSnapshot, error) {
	if err := c.Validate(); err != nil {
		return agro.WeatherSnapshot{}, err
	}
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.cachedWeather(ctx, c), nil
}

// Vegetation returns the vegetation snapshot for c.
func (s *Service) Vegetation(ctx context.Context, c agro.Coordinate, date string) (agro.VegetationSnapshot, error) {
	if err := c.Validate(); err != nil {
		return agro.VegetationSnapshot{}, err
	}
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.cachedVegetation(ctx, c, date), nil
}

// Market returns the price snapshot for commodity.
func (s *Service) Market(ctx context.Context, commodity string) agro.MarketSnapshot {
	ctx, cancel := s.deadline(ctx)
	defer cancel()
	return s.cachedMarket(ctx, commodity)
}

// Preview is a vegetation snapshot paired with its NDVI map tile.
type Preview struct {
	Vegetation agro.VegetationSnapshot `json:"vegetation"`
	Tile       agro.TilePreview        `json:"tile"`
}

// Preview returns the vegetation snapshot and NDVI tile for c.
func (s *Service) Preview(ctx context.Context, c agro.Coordinate, zoom int, date string) (Preview, error) {
	veg, err := s.Vegetation(ctx, c, date)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Vegetation: veg, Tile: providers.PreviewTile(c, zoom, date, s.now())}, nil
}

// Place reverse-geocodes c. It returns "" when no resolver is configured or the lookup fails.
func (s *Service) Place(ctx context.Context, c agro.Coordinate) string {
	if s.places == nil {
		return ""
	}
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	place, err := cache.GetOrComputeAs(s.cache, "place:"+c.Key(), s.cfg.PlaceTTL, func() (string, error) {
		return s.places.Resolve(ctx, c)
	})
	if err != nil {
		s.log.Debug("reverse geocoding failed", "location", c.Key(), "err", err)
		return ""
	}
	return place
}

// Invalidate drops every cached snapshot for c. Cached keys carry the coordinate right
// after a ':' and Key has fixed precision, so neighbouring coordinates never match.
func (s *Service) Invalidate(c agro.Coordinate) int {
	return s.cache.InvalidateContaining(":" + c.Key())
}

// HealthReport summarizes adapter health and cache state.
type HealthReport struct {
	Status    agro.Health            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Adapters  map[string]agro.Health `json:"adapters"`
	Cache     cache.Stats            `json:"cache"`
}

// Health reports the last known adapter health. The report is cached briefly.
func (s *Service) Health() HealthReport {
	r, _ := cache.GetOrComputeAs(s.cache, healthKey, s.cfg.HealthTTL, func() (HealthReport, error) {
		return s.healthReport(), nil
	})
	return r
}

func (s *Service) healthReport() HealthReport {
	r := HealthReport{
		Status:    agro.HealthHealthy,
		Timestamp: s.now().UTC(),
		Adapters: map[string]agro.Health{
			s.weather.Name():    s.weather.Health(),
			s.vegetation.Name(): s.vegetation.Health(),
			s.market.Name():     s.market.Health(),
		},
		Cache: s.cache.Stats(),
	}
	for _, h := range r.Adapters {
		if h != agro.HealthHealthy {
			r.Status = agro.HealthDegraded
			break
		}
	}
	return r
}

// Probe checks every adapter's primary upstream concurrently and drops the cached health report.
func (s *Service) Probe(ctx context.Context) map[string]agro.Health {
	adapters := []interface {
		Name() string
		Probe(context.Context) agro.Health
	}{s.weather, s.vegetation, s.market}

	results := make([]agro.Health, len(adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = a.Probe(gctx)
			return nil
		})
	}
	_ = g.Wait()
	s.cache.Delete(healthKey)

	out := make(map[string]agro.Health, len(adapters))
	for i, a := range adapters {
		out[a.Name()] = results[i]
	}
	return out
}

// Warm refreshes the cached aggregate for each coordinate, skipping invalid ones.
func (s *Service) Warm(ctx context.Context, coords []agro.Coordinate) int {
	warmed := 0
	for _, c := range coords {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Fetch(ctx, c, "soy", ""); err != nil {
			s.log.Warn("skipping warm location", "location", c.Key(), "err", err)
			continue
		}
		warmed++
	}
	return warmed
}

// SweepCache removes expired cache entries.
func (s *Service) SweepCache() int {
	return s.cache.Cleanup()
}

func (s *Service) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.AdapterTimeout+s.cfg.Slack)
}

func (s *Service) cachedWeather(ctx context.Context, c agro.Coordinate) agro.WeatherSnapshot {
	key := "weather:" + c.Key()
	if snap, err := cache.GetAs[agro.WeatherSnapshot](s.cache, key); err == nil {
		return snap
	}
	snap := within(ctx, s.log, s.weather.Name(),
		func(ctx context.Context) agro.WeatherSnapshot { return s.weather.Weather(ctx, c) },
		func() agro.WeatherSnapshot { return s.weather.MockWeather(c) },
	)
	if snap.Source != agro.SourceMock {
		s.cache.Set(key, snap, s.cfg.WeatherTTL)
	}
	return snap
}

func (s *Service) cachedVegetation(ctx context.Context, c agro.Coordinate, date string) agro.VegetationSnapshot {
	key := "vegetation:" + c.Key() + ":" + date
	if snap, err := cache.GetAs[agro.VegetationSnapshot](s.cache, key); err == nil {
		return snap
	}
	snap := within(ctx, s.log, s.vegetation.Name(),
		func(ctx context.Context) agro.VegetationSnapshot { return s.vegetation.Vegetation(ctx, c, date) },
		func() agro.VegetationSnapshot { return s.vegetation.MockVegetation(c) },
	)
	if snap.Source != agro.SourceMock {
		s.cache.Set(key, snap, s.cfg.VegetationTTL)
	}
	return snap
}

func (s *Service) cachedMarket(ctx context.Context, commodity string) agro.MarketSnapshot {
	commodity = providers.NormalizeCommodity(commodity)
	key := "market:" + commodity
	if snap, err := cache.GetAs[agro.MarketSnapshot](s.cache, key); err == nil {
		return snap
	}
	snap := within(ctx, s.log, s.market.Name(),
		func(ctx context.Context) agro.MarketSnapshot { return s.market.Market(ctx, commodity) },
		func() agro.MarketSnapshot { return s.market.MockMarket(commodity) },
	)
	if snap.Source != agro.SourceMock {
		s.cache.Set(key, snap, s.cfg.MarketTTL)
	}
	return snap
}

// within runs fetch and gives up on it when ctx ends, returning the mock instead. The
// abandoned fetch keeps running until its own context is cancelled.
func within[T any](ctx context.Context, log *slog.Logger, adapter string, fetch func(context.Context) T, mock func() T) T {
	done := make(chan T, 1)
	go func() { done <- fetch(ctx) }()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		log.Warn("adapter missed deadline, using mock", "adapter", adapter, "err", ctx.Err())
		return mock()
	}
}
