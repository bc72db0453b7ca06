// Package rides owns the live session registry and the side effects of
// terminal transitions: persisting ride records, holding and settling
// fares, and crediting wallets and earnings.
package rides

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/sharka/internal/config"
	"github.com/example/sharka/internal/fare"
	"github.com/example/sharka/internal/lifecycle"
	"github.com/example/sharka/internal/logging"
	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/payments"
	"github.com/example/sharka/internal/storage"
	"github.com/example/sharka/internal/wallet"

	earningsvc "github.com/example/sharka/internal/earnings"
)

// ErrMissingLocations rejects bookings without both endpoints set.
var ErrMissingLocations = errors.New("pickup and dropoff locations are required")

// ErrSessionNotFound is returned for lookups of unknown or discarded
// sessions.
var ErrSessionNotFound = errors.New("session not found")

// Coordinator wires the two state machines to their collaborators and
// tracks one session per booking attempt and per online driver.
type Coordinator struct {
	Store    storage.RideStore
	Wallet   *wallet.Service
	Earnings *earningsvc.Service
	Pay      payments.Gateway
	Notify   lifecycle.Notifier
	Drivers  lifecycle.DriverSource
	Shares   lifecycle.ShareSource
	Offers   lifecycle.OfferSource
	Sim      config.SimTimings
	Log      *slog.Logger

	mu         sync.Mutex
	passengers map[string]*lifecycle.PassengerSession
	drivers    map[string]*lifecycle.DispatchSession
	intents    map[string]string // ride id -> payment intent id
}

func (c *Coordinator) init() {
	if c.passengers == nil {
		c.passengers = make(map[string]*lifecycle.PassengerSession)
	}
	if c.drivers == nil {
		c.drivers = make(map[string]*lifecycle.DispatchSession)
	}
	if c.intents == nil {
		c.intents = make(map[string]string)
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.Pay == nil {
		c.Pay = payments.NopGateway{}
	}
}

// BookRide validates the request, prices it, and starts a passenger
// session searching for a driver.
func (c *Coordinator) BookRide(riderID string, pickup, dropoff models.Location, vt models.VehicleType, sharing bool, maxCo int) (*lifecycle.PassengerSession, error) {
	if pickup.Zero() || dropoff.Zero() {
		return nil, ErrMissingLocations
	}
	if maxCo <= 0 {
		maxCo = 2
	}
	est := fare.Estimate(pickup, dropoff, fare.ClassFor(vt), sharing)

	c.mu.Lock()
	c.init()
	c.mu.Unlock()

	rideID := newID()
	deps := lifecycle.PassengerDeps{
		Drivers:     c.Drivers,
		Shares:      c.Shares,
		Notify:      c.Notify,
		OnConfirmed: c.rideConfirmed,
		OnCancelled: c.rideCancelled,
		Log:         logging.ForSession(c.Log, string(lifecycle.KindPassenger), rideID),
	}
	s := lifecycle.NewPassengerSession(rideID, riderID, pickup, dropoff, vt, est, sharing, maxCo, deps)

	c.mu.Lock()
	c.passengers[rideID] = s
	c.mu.Unlock()

	s.Start(c.Sim)
	return s, nil
}

// Passenger returns the live session for a ride id.
func (c *Coordinator) Passenger(rideID string) (*lifecycle.PassengerSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.passengers[rideID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Driver returns the dispatch session for a driver, creating it on
// first use.
func (c *Coordinator) Driver(driverID string) *lifecycle.DispatchSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init()
	if s, ok := c.drivers[driverID]; ok {
		return s
	}
	s := lifecycle.NewDispatchSession(driverID, c.Sim, lifecycle.DispatchDeps{
		Offers:      c.Offers,
		Shares:      c.Shares,
		Notify:      c.Notify,
		OnCompleted: c.rideCompleted,
		Log:         logging.ForSession(c.Log, string(lifecycle.KindDriver), driverID),
	})
	s.Start()
	c.drivers[driverID] = s
	return s
}

// Close stops every live session; used on shutdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.passengers {
		s.Close()
	}
	for _, s := range c.drivers {
		s.Close()
	}
}

func (c *Coordinator) rideConfirmed(r lifecycle.ConfirmedRide) {
	c.mu.Lock()
	c.init()
	c.mu.Unlock()

	now := time.Now()
	ride := &models.Ride{
		ID:           r.RideID,
		RiderID:      r.RiderID,
		DriverID:     r.Driver.ID,
		Pickup:       r.Pickup,
		Dropoff:      r.Dropoff,
		VehicleType:  r.VehicleType,
		BaseFare:     r.Estimate.BaseFare,
		TotalFare:    r.Estimate.TotalFare,
		DistanceKm:   r.Estimate.DistanceKm,
		DurationMin:  r.Estimate.DurationMin,
		Sharing:      r.Sharing,
		CoPassengers: r.CoPassengers,
		Status:       models.RideConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Store.SaveRide(ride); err != nil {
		c.Log.Error("save ride", "ride_id", r.RideID, "error", err)
	}
	share := perPassengerShare(r.Estimate.TotalFare, len(r.CoPassengers))
	for _, pid := range r.CoPassengers {
		p := &models.RidePassenger{
			RideID:        r.RideID,
			PassengerID:   pid,
			FareShare:     share,
			CarbonSavedKg: r.Estimate.CarbonSavedKg,
		}
		if err := c.Store.SavePassenger(p); err != nil {
			c.Log.Error("save ride passenger", "ride_id", r.RideID, "passenger_id", pid, "error", err)
		}
	}
	if err := c.Wallet.RideConfirmed(r.RiderID, r.RideID, r.Estimate, r.Sharing); err != nil {
		c.Log.Error("wallet accrual", "ride_id", r.RideID, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	intent, err := c.Pay.Hold(ctx, r.Estimate.TotalFare, "inr", r.RiderID)
	if err != nil {
		// the ride proceeds; settlement falls back to cash
		c.Log.Warn("fare hold failed", "ride_id", r.RideID, "error", err)
	} else if intent != "" {
		c.mu.Lock()
		c.intents[r.RideID] = intent
		c.mu.Unlock()
	}

	// A confirmed session only lives long enough for the client to watch
	// the driver approach; after that its timers and registry entry go.
	ttl := c.Sim.ConfirmedTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	time.AfterFunc(ttl, func() { c.evict(r.RideID) })
}

// evict closes a session and removes it from the registry.
func (c *Coordinator) evict(rideID string) {
	c.mu.Lock()
	s := c.passengers[rideID]
	delete(c.passengers, rideID)
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (c *Coordinator) rideCancelled(rideID string) {
	c.mu.Lock()
	c.init()
	s := c.passengers[rideID]
	delete(c.passengers, rideID)
	intent := c.intents[rideID]
	delete(c.intents, rideID)
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
	// No hold exists before confirmation, and cancel is only legal
	// before it; this releases a hold should a post-confirmation cancel
	// window ever open.
	if intent != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Pay.Cancel(ctx, intent); err != nil {
			c.Log.Warn("release fare hold", "ride_id", rideID, "error", err)
		}
	}
}

func (c *Coordinator) rideCompleted(r lifecycle.CompletedRide) {
	c.mu.Lock()
	c.init()
	c.mu.Unlock()

	bonus := int64(0)
	if r.Shares > 0 {
		bonus = r.Request.ExtraEarning * int64(r.Shares)
	}
	if _, err := c.Earnings.Record(r.DriverID, r.Request.ID, r.Request.Fare, bonus); err != nil {
		c.Log.Error("record earning", "ride_id", r.Request.ID, "error", err)
	}
	if _, ok, _ := c.Store.GetRide(r.Request.ID); ok {
		if err := c.Store.UpdateRideStatus(r.Request.ID, models.RideCompleted); err != nil {
			c.Log.Error("mark ride completed", "ride_id", r.Request.ID, "error", err)
		}
	}
	c.mu.Lock()
	intent := c.intents[r.Request.ID]
	delete(c.intents, r.Request.ID)
	c.mu.Unlock()
	if intent != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Pay.Capture(ctx, intent); err != nil {
			c.Log.Warn("capture fare", "ride_id", r.Request.ID, "error", err)
		}
	}
}

// perPassengerShare splits the fare evenly across the captain and the
// approved co-passengers.
func perPassengerShare(total int64, coPassengers int) int64 {
	if coPassengers <= 0 {
		return 0
	}
	return total / int64(coPassengers+1)
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
