package fare

import (
	"math"

	"github.com/example/sharka/internal/models"
)

const (
	perKmRate      = 10   // rupees per km on top of the class base fare
	minutesPerKm   = 2.5  // fixed average-speed heuristic
	carbonKgPerKm  = 0.14 // CO2 saved per shared km vs solo trips
)

// Classes is the bookable vehicle catalog.
var Classes = []models.VehicleClass{
	{Type: models.VehicleHatchback, Name: "Hatchback", BaseFare: 120, Seats: 3, Description: "Economical & compact"},
	{Type: models.VehicleSedan, Name: "Sedan", BaseFare: 180, Seats: 4, Description: "Comfortable ride"},
	{Type: models.VehicleSUV, Name: "SUV", BaseFare: 250, Seats: 6, Description: "Spacious & premium"},
}

// ClassFor returns the catalog entry for a vehicle type, defaulting to
// the sedan tier for unknown types.
func ClassFor(t models.VehicleType) models.VehicleClass {
	for _, c := range Classes {
		if c.Type == t {
			return c
		}
	}
	return Classes[1]
}

// DistanceKm is an equirectangular (flat-earth) approximation, rounded
// to whole km. Adequate for trips under ~100 km; known to drift beyond
// that, which is acceptable for the city/intercity trips we price.
func DistanceKm(pickup, dropoff models.Location) float64 {
	dy := (dropoff.Lat - pickup.Lat) * 111
	dx := (dropoff.Lon - pickup.Lon) * 111 * math.Cos(pickup.Lat*math.Pi/180)
	return math.Round(math.Sqrt(dx*dx + dy*dy))
}

// Estimate prices a trip. It is pure: identical inputs produce identical
// output. A zero pickup or dropoff yields a zero-valued estimate that
// callers must treat as "unavailable", never as a free zero-length trip.
func Estimate(pickup, dropoff models.Location, class models.VehicleClass, sharing bool) models.FareEstimate {
	if pickup.Zero() || dropoff.Zero() {
		return models.FareEstimate{}
	}
	km := DistanceKm(pickup, dropoff)
	est := models.FareEstimate{
		DistanceKm:  km,
		DurationMin: int(math.Round(km * minutesPerKm)),
		BaseFare:    class.BaseFare,
		TotalFare:   class.BaseFare + int64(km)*perKmRate,
	}
	if sharing {
		est.CarbonSavedKg = math.Round(km*carbonKgPerKm*10) / 10
	}
	return est
}
