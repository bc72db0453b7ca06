package fare

import (
	"testing"

	"github.com/example/sharka/internal/models"
)

func TestEstimateDelhiGurgaon(t *testing.T) {
	pickup := models.Location{Lat: 28.63, Lon: 77.22}
	dropoff := models.Location{Lat: 28.50, Lon: 77.09}
	est := Estimate(pickup, dropoff, ClassFor(models.VehicleSedan), true)
	if est.DistanceKm != 19 {
		t.Fatalf("distance: want 19, got %v", est.DistanceKm)
	}
	if est.TotalFare != 370 {
		t.Fatalf("fare: want 370, got %d", est.TotalFare)
	}
	if est.DurationMin != 48 {
		t.Fatalf("duration: want 48, got %d", est.DurationMin)
	}
	if est.CarbonSavedKg != 2.7 {
		t.Fatalf("carbon: want 2.7, got %v", est.CarbonSavedKg)
	}
}

func TestEstimateIsPure(t *testing.T) {
	pickup := models.Location{Lat: 12.97, Lon: 77.59}
	dropoff := models.Location{Lat: 13.08, Lon: 77.55}
	a := Estimate(pickup, dropoff, ClassFor(models.VehicleSUV), false)
	b := Estimate(pickup, dropoff, ClassFor(models.VehicleSUV), false)
	if a != b {
		t.Fatalf("same inputs, different estimates: %+v vs %+v", a, b)
	}
	if a.CarbonSavedKg != 0 {
		t.Fatalf("carbon must be zero when sharing is off, got %v", a.CarbonSavedKg)
	}
}

func TestEstimateUnavailableWithoutBothLocations(t *testing.T) {
	dropoff := models.Location{Lat: 28.50, Lon: 77.09}
	if est := Estimate(models.Location{}, dropoff, ClassFor(models.VehicleSedan), true); est != (models.FareEstimate{}) {
		t.Fatalf("expected zero estimate, got %+v", est)
	}
	if est := Estimate(dropoff, models.Location{}, ClassFor(models.VehicleSedan), true); est != (models.FareEstimate{}) {
		t.Fatalf("expected zero estimate, got %+v", est)
	}
}

func TestFareIncreasesWithDistance(t *testing.T) {
	pickup := models.Location{Lat: 28.63, Lon: 77.22}
	near := models.Location{Lat: 28.68, Lon: 77.22}
	far := models.Location{Lat: 28.93, Lon: 77.22}
	class := ClassFor(models.VehicleHatchback)
	a := Estimate(pickup, near, class, false)
	b := Estimate(pickup, far, class, false)
	if b.DistanceKm <= a.DistanceKm {
		t.Fatalf("distance ordering broken: %v vs %v", a.DistanceKm, b.DistanceKm)
	}
	if b.TotalFare <= a.TotalFare {
		t.Fatalf("fare must grow with distance: %d vs %d", a.TotalFare, b.TotalFare)
	}
}

func TestClassForUnknownDefaultsToSedan(t *testing.T) {
	c := ClassFor(models.VehicleType("rickshaw"))
	if c.Type != models.VehicleSedan {
		t.Fatalf("want sedan fallback, got %s", c.Type)
	}
}
