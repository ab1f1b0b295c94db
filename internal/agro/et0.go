package agro

import (
	"math"
	"time"
)

const (
	solarConstant      = 0.0820 // MJ m-2 min-1
	standardPressureHP = 1013.0
)

// ET0 estimates reference evapotranspiration in mm/day using FAO-56 Penman-Monteith.
// Solar radiation is derived from extraterrestrial radiation at lat and the cloud cover
// fraction. When the radiation terms are undefined (polar day or night) or the result is
// not finite, the Hargreaves estimate is used. The result is at least 0.1 and rounded to
// two decimals.
func ET0(tmax, tmin, humidityPct, windKmh, cloudPct, pressureHpa, lat float64, day time.Time) float64 {
	if pressureHpa <= 0 {
		pressureHpa = standardPressureHP
	}
	tmean := (tmax + tmin) / 2
	wind := windKmh / 3.6

	es := (satVapour(tmax) + satVapour(tmin)) / 2
	ea := es * humidityPct / 100
	delta := 4098 * satVapour(tmean) / math.Pow(tmean+237.3, 2)
	gamma := 0.000665 * pressureHpa / 10

	ra := extraterrestrialRadiation(lat, day.YearDay())
	rs := ra * (0.25 + 0.50*(1-cloudPct/100))

	num := 0.408*delta*rs + gamma*900/(tmean+273)*wind*(es-ea)
	den := delta + gamma*(1+0.34*wind)
	et0 := num / den

	if math.IsNaN(et0) || math.IsInf(et0, 0) {
		return hargreaves(tmax, tmin)
	}
	return round2(math.Max(0.1, et0))
}

func hargreaves(tmax, tmin float64) float64 {
	tmean := (tmax + tmin) / 2
	v := 0.0023 * (tmean + 17.8) * math.Sqrt(math.Abs(tmax-tmin)) * 15
	return round2(math.Max(0.1, v))
}

func satVapour(t float64) float64 {
	return 0.6108 * math.Exp(17.27*t/(t+237.3))
}

// extraterrestrialRadiation returns Ra in MJ m-2 day-1, or NaN where the sunset hour angle
// is undefined.
func extraterrestrialRadiation(lat float64, dayOfYear int) float64 {
	phi := lat * math.Pi / 180
	j := float64(dayOfYear)
	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	decl := 0.409 * math.Sin(2*math.Pi*j/365-1.39)

	x := -math.Tan(phi) * math.Tan(decl)
	if x < -1 || x > 1 {
		return math.NaN()
	}
	ws := math.Acos(x)
	return (24 * 60 / math.Pi) * solarConstant * dr *
		(ws*math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Sin(ws))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
