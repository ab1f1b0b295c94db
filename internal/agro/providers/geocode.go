package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/agro-insight/internal/agro"
)

var errNoAddress = errors.New("no address for coordinate")

// geocoder keeps its key in a package variable; set it once per process.
var setGeocoderKey sync.Once

// GoogleGeocoder resolves place names through the Google reverse geocoding API.
type GoogleGeocoder struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	setGeocoderKey.Do(func() { geocoder.ApiKey = apiKey })
	return &GoogleGeocoder{reverse: geocoder.GeocodingReverse}
}

// Resolve returns the formatted address closest to c. The underlying client is not
// context-aware, so a cancelled ctx abandons the lookup rather than aborting it.
func (g *GoogleGeocoder) Resolve(ctx context.Context, c agro.Coordinate) (string, error) {
	type result struct {
		place string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
		if err != nil {
			ch <- result{err: fmt.Errorf("geocode: %w", err)}
			return
		}
		ch <- result{place: placeName(addrs)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err == nil && r.place == "" {
			r.err = errNoAddress
		}
		return r.place, r.err
	}
}

func placeName(addrs []geocoder.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	a := addrs[0]
	if a.FormattedAddress != "" {
		return a.FormattedAddress
	}
	var parts []string
	for _, p := range []string{a.City, a.State, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
