package agro

import (
	"context"
)

// WeatherAdapter yields a weather snapshot for a coordinate. Weather never fails: when every
// upstream is unavailable it returns the simulated snapshot tagged SourceMock.
type WeatherAdapter interface {
	Name() string
	Weather(ctx context.Context, c Coordinate) WeatherSnapshot
	MockWeather(c Coordinate) WeatherSnapshot
	Health() Health
	Probe(ctx context.Context) Health
}

// VegetationAdapter yields a vegetation snapshot for a coordinate. date is an optional
// ISO-8601 day forwarded to imagery upstreams.
type VegetationAdapter interface {
	Name() string
	Vegetation(ctx context.Context, c Coordinate, date string) VegetationSnapshot
	MockVegetation(c Coordinate) VegetationSnapshot
	Health() Health
	Probe(ctx context.Context) Health
}

// MarketAdapter yields a price snapshot for a commodity key.
type MarketAdapter interface {
	Name() string
	Market(ctx context.Context, commodity string) MarketSnapshot
	MockMarket(commodity string) MarketSnapshot
	Health() Health
	Probe(ctx context.Context) Health
}

// PlaceResolver turns a coordinate into a human-readable place name.
type PlaceResolver interface {
	Resolve(ctx context.Context, c Coordinate) (string, error)
}
