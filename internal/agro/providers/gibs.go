package providers

import (
	"fmt"
	"math"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

const (
	gibsLayer   = "MODIS_Terra_NDVI_8Day"
	gibsBaseURL = "https://gibs.earthdata.nasa.gov/wmts/epsg3857/best"
	gibsMaxZoom = 9
	maxMercator = 85.05112878
)

// PreviewTile returns the GIBS NDVI tile covering c. Zoom is clamped to the layer's levels
// and an empty date means eight days before now, the latest complete composite.
func PreviewTile(c agro.Coordinate, zoom int, date string, now time.Time) agro.TilePreview {
	zoom = max(0, min(zoom, gibsMaxZoom))
	if date == "" {
		date = now.AddDate(0, 0, -8).Format(time.DateOnly)
	}

	x, y := tileXY(c, zoom)
	return agro.TilePreview{
		Layer: gibsLayer,
		Date:  date,
		Zoom:  zoom,
		X:     x,
		Y:     y,
		TileURL: fmt.Sprintf("%s/%s/default/%s/GoogleMapsCompatible_Level%d/%d/%d/%d.png",
			gibsBaseURL, gibsLayer, date, gibsMaxZoom, zoom, y, x),
	}
}

// tileXY converts a coordinate to Web Mercator tile indices.
func tileXY(c agro.Coordinate, zoom int) (int, int) {
	n := math.Exp2(float64(zoom))
	lat := max(-maxMercator, min(c.Lat, maxMercator)) * math.Pi / 180

	x := int(math.Floor((c.Lon + 180) / 360 * n))
	y := int(math.Floor((1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2 * n))

	last := int(n) - 1
	return max(0, min(x, last)), max(0, min(y, last))
}
