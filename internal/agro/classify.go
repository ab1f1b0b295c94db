package agro

import "time"

// ClassifyNDVI bands an NDVI value into a canopy class.
func ClassifyNDVI(ndvi float64) Classification {
	switch {
	case ndvi < 0.2:
		return ClassBareSoil
	case ndvi < 0.4:
		return ClassSparse
	case ndvi < 0.6:
		return ClassModerate
	case ndvi < 0.8:
		return ClassDense
	default:
		return ClassVeryDense
	}
}

// HealthFromNDVI maps NDVI to a coarse crop condition.
func HealthFromNDVI(ndvi float64) VegetationHealth {
	switch {
	case ndvi < 0.3:
		return HealthPoor
	case ndvi < 0.5:
		return HealthModerate
	case ndvi <= 0.8:
		return HealthGood
	default:
		return HealthExcellent
	}
}

// StageForMonth returns the crop calendar stage for a month.
func StageForMonth(m time.Month) GrowthStage {
	switch m {
	case time.September, time.October, time.November:
		return StagePlanting
	case time.December, time.January, time.February:
		return StageDevelopment
	case time.March, time.April, time.May:
		return StageReproductive
	default:
		return StageHarvest
	}
}

// ClampUnit restricts v to [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
