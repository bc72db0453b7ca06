// Package simulate synthesizes the events a production deployment would
// receive from real telemetry: matched drivers, co-passenger join
// requests, and dispatch offers. It implements the lifecycle source
// interfaces so the machines never know their inputs are synthetic.
package simulate

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/example/sharka/internal/fare"
	"github.com/example/sharka/internal/match"
	"github.com/example/sharka/internal/models"
)

var mockDrivers = []struct {
	name  string
	maker string
	model string
	color string
}{
	{"Arjun Verma", "Maruti", "Swift Dzire", "White"},
	{"Sunil Yadav", "Hyundai", "Aura", "Silver"},
	{"Deepak Rana", "Tata", "Tigor", "Blue"},
	{"Imran Shaikh", "Honda", "Amaze", "Grey"},
}

var mockRiders = []string{"Asha P.", "Rohit M.", "Neha K.", "Vikram S."}

// Synthesizer produces mock domain objects with monotonically numbered
// ids. When a geo index has real online drivers the matcher result is
// preferred; otherwise a driver is fabricated near the pickup point.
type Synthesizer struct {
	Matcher *match.Service
	seq     atomic.Int64
}

func New(matcher *match.Service) *Synthesizer {
	return &Synthesizer{Matcher: matcher}
}

// FindDriver returns the best indexed candidate, or a fabricated driver
// offset +0.01,+0.01 from the pickup with a 5 minute ETA when the index
// is empty.
func (s *Synthesizer) FindDriver(pickup models.Location) models.Driver {
	if s.Matcher != nil {
		if d, ok := s.Matcher.Best(pickup); ok {
			return d
		}
	}
	n := s.seq.Add(1)
	mock := mockDrivers[int(n)%len(mockDrivers)]
	return models.Driver{
		ID:     fmt.Sprintf("driver-%d", n),
		Name:   mock.name,
		Rating: 4.8,
		Trips:  1250,
		Vehicle: models.Vehicle{
			Make:  mock.maker,
			Model: mock.model,
			Color: mock.color,
			Plate: fmt.Sprintf("DL 0%d CA %04d", int(n)%9+1, 1000+n),
			Seats: 4,
		},
		Loc:        models.Location{Lat: pickup.Lat + 0.01, Lon: pickup.Lon + 0.01},
		ETAMinutes: 5,
		Online:     true,
	}
}

// NextCoPassenger fabricates a join request whose fare share is a
// quarter of the trip fare.
func (s *Synthesizer) NextCoPassenger(pickup models.Location, est models.FareEstimate) models.CoPassengerRequest {
	n := s.seq.Add(1)
	share := est.TotalFare / 4
	if share <= 0 {
		share = 45
	}
	return models.CoPassengerRequest{
		ID:            fmt.Sprintf("co-%d", n),
		Name:          mockRiders[int(n)%len(mockRiders)],
		Rating:        4.7,
		Pickup:        "500m from your pickup",
		FareShare:     share,
		DetourMinutes: 3,
	}
}

// NextOffer fabricates a dispatch offer a few km around a fixed city
// anchor, priced with the production fare formula so earnings figures
// stay consistent.
func (s *Synthesizer) NextOffer(driverID string) (models.RideRequest, bool) {
	n := s.seq.Add(1)
	// rotate pickups around Connaught Place so consecutive offers differ
	angle := float64(n) * math.Pi / 3
	pickup := models.Location{Lat: 28.6315 + 0.02*math.Sin(angle), Lon: 77.2167 + 0.02*math.Cos(angle), Address: "Central Delhi"}
	dropoff := models.Location{Lat: 28.4949, Lon: 77.0895, Address: "Cyber Hub, Gurugram"}
	est := fare.Estimate(pickup, dropoff, fare.ClassFor(models.VehicleSedan), true)
	return models.RideRequest{
		ID:           fmt.Sprintf("ride-%d", n),
		RiderID:      fmt.Sprintf("rider-%d", n),
		RiderName:    mockRiders[int(n)%len(mockRiders)],
		Pickup:       pickup,
		Dropoff:      dropoff,
		DistanceKm:   est.DistanceKm,
		ETAMinutes:   est.DurationMin,
		Fare:         est.TotalFare,
		Shared:       n%2 == 0,
		DetourMin:    3,
		ExtraEarning: est.TotalFare / 4,
	}, true
}
