package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/example/sharka/internal/config"
	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/observability"
)

type PassengerStatus string

const (
	StatusSearching       PassengerStatus = "searching"
	StatusDriverFound     PassengerStatus = "driver_found"
	StatusWaitingApproval PassengerStatus = "waiting_approval"
	StatusConfirmed       PassengerStatus = "confirmed"
	StatusCancelled       PassengerStatus = "cancelled"
)

const searchProgressStep = 5

// ConfirmedRide is handed to the confirm collaborator when a passenger
// session reaches confirmed.
type ConfirmedRide struct {
	RideID       string
	RiderID      string
	Pickup       models.Location
	Dropoff      models.Location
	VehicleType  models.VehicleType
	Estimate     models.FareEstimate
	Sharing      bool
	Driver       models.Driver
	CoPassengers []string
}

// PassengerDeps are the collaborators a session needs. Everything is
// passed in explicitly; there is no ambient state.
type PassengerDeps struct {
	Drivers     DriverSource
	Shares      ShareSource
	Notify      Notifier
	OnConfirmed func(ConfirmedRide)
	OnCancelled func(rideID string)
	Log         *slog.Logger
}

// PassengerSession drives one booking attempt from searching to
// confirmed. It is owned by a single booking; a cancelled session is
// discarded, never restarted.
type PassengerSession struct {
	mu sync.Mutex

	id       string
	riderID  string
	pickup   models.Location
	dropoff  models.Location
	vehicle  models.VehicleType
	estimate models.FareEstimate
	sharing  bool
	maxCo    int

	status   PassengerStatus
	progress int
	driver   *models.Driver
	pending  []models.CoPassengerRequest
	approved []string

	deps       PassengerDeps
	startedAt  time.Time
	closed     bool
	timers     timerSet
	stopSearch func()
}

func NewPassengerSession(id, riderID string, pickup, dropoff models.Location, vehicle models.VehicleType, est models.FareEstimate, sharing bool, maxCo int, deps PassengerDeps) *PassengerSession {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &PassengerSession{
		id:        id,
		riderID:   riderID,
		pickup:    pickup,
		dropoff:   dropoff,
		vehicle:   vehicle,
		estimate:  est,
		sharing:   sharing,
		maxCo:     maxCo,
		status:    StatusSearching,
		deps:      deps,
		startedAt: time.Now(),
	}
}

// Start schedules the timed behavior: search progress ticks, the share
// request after a driver is found, and driver position interpolation.
// Tests skip Start and call the transition methods directly.
func (s *PassengerSession) Start(sim config.SimTimings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopSearch = s.timers.ticker(sim.SearchTick, func() {
		if err := s.ProgressTick(); err != nil {
			return
		}
		s.mu.Lock()
		found := s.status != StatusSearching
		stop := s.stopSearch
		s.mu.Unlock()
		if !found {
			return
		}
		// the search is over; its ticker goroutine must not outlive it
		if stop != nil {
			stop()
		}
		if s.sharing {
			s.timers.after(sim.ShareDelay, func() {
				req := s.deps.Shares.NextCoPassenger(s.pickup, s.estimate)
				_ = s.OfferCoPassenger(req)
			})
		}
	})
	s.timers.ticker(sim.MoveTick, func() { s.MoveDriver() })
}

// ProgressTick advances the simulated search. At 100% a driver is
// produced and the session moves to driver_found.
func (s *PassengerSession) ProgressTick() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusSearching {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.progress += searchProgressStep
	if s.progress < 100 {
		s.mu.Unlock()
		return nil
	}
	s.progress = 100
	d := s.deps.Drivers.FindDriver(s.pickup)
	s.driver = &d
	s.status = StatusDriverFound
	s.mu.Unlock()

	observability.MatchesTotal.Inc()
	observability.MatchLatency.Observe(time.Since(s.startedAt).Seconds())
	s.deps.Log.Info("driver matched", "ride_id", s.id, "driver_id", d.ID)
	s.deps.Notify.Notify(s.riderID, "Driver Found!", d.Name+" is on the way")
	return nil
}

// OfferCoPassenger delivers a join request to the Captain. Only legal
// on a shared ride that has found its driver; late offers against a
// confirmed or cancelled session are dropped.
func (s *PassengerSession) OfferCoPassenger(req models.CoPassengerRequest) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.sharing {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if s.status != StatusDriverFound && s.status != StatusWaitingApproval {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if len(s.approved)+len(s.pending) >= s.maxCo {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.pending = append(s.pending, req)
	s.status = StatusWaitingApproval
	s.mu.Unlock()

	s.deps.Notify.Notify(s.riderID, "Share Request!", "Someone wants to share your ride")
	return nil
}

// Approve accepts a pending co-passenger. When the pending list drains
// the session confirms.
func (s *PassengerSession) Approve(coPassengerID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusWaitingApproval {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.removePending(coPassengerID) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.approved = append(s.approved, coPassengerID)
	drained := len(s.pending) == 0
	s.mu.Unlock()

	observability.SharesApproved.Inc()
	s.deps.Notify.Notify(s.riderID, "Co-passenger Approved", "They'll join at a nearby pickup point")
	if drained {
		return s.confirm()
	}
	return nil
}

// Reject declines a pending co-passenger. Draining the pending list
// also confirms: the Captain has answered every request.
func (s *PassengerSession) Reject(coPassengerID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusWaitingApproval {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.removePending(coPassengerID) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	drained := len(s.pending) == 0
	s.mu.Unlock()

	observability.SharesRejected.Inc()
	s.deps.Notify.Notify(s.riderID, "Request Declined", "Looking for other passengers...")
	if drained {
		return s.confirm()
	}
	return nil
}

// Skip confirms immediately, abandoning any pending requests. Only
// meaningful while the Captain is being asked to approve.
func (s *PassengerSession) Skip() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusWaitingApproval {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.pending = nil
	s.mu.Unlock()
	return s.confirm()
}

// Confirm finalizes a solo ride from driver_found. Shared rides confirm
// through the approval flow or Skip.
func (s *PassengerSession) Confirm() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusDriverFound || s.sharing {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.mu.Unlock()
	return s.confirm()
}

func (s *PassengerSession) confirm() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status == StatusConfirmed || s.status == StatusCancelled {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.status = StatusConfirmed
	ride := ConfirmedRide{
		RideID:       s.id,
		RiderID:      s.riderID,
		Pickup:       s.pickup,
		Dropoff:      s.dropoff,
		VehicleType:  s.vehicle,
		Estimate:     s.estimate,
		Sharing:      s.sharing,
		CoPassengers: append([]string(nil), s.approved...),
	}
	if s.driver != nil {
		ride.Driver = *s.driver
	}
	// Keep the movement ticker alive: the driver still approaches after
	// confirmation. The search ticker was released at match time; the
	// share timer is one-shot and guarded.
	s.mu.Unlock()

	observability.RidesConfirmed.Inc()
	s.deps.Log.Info("ride confirmed", "ride_id", s.id, "co_passengers", len(ride.CoPassengers))
	s.deps.Notify.Notify(s.riderID, "Ride Confirmed!", "Your driver is on the way")
	if s.deps.OnConfirmed != nil {
		s.deps.OnConfirmed(ride)
	}
	return nil
}

// Cancel abandons the booking. Legal from searching and driver_found;
// once the approval flow or confirmation has begun the ride is kept.
func (s *PassengerSession) Cancel() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status != StatusSearching && s.status != StatusDriverFound {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.status = StatusCancelled
	s.closeLocked()
	s.mu.Unlock()

	observability.RidesCancelled.Inc()
	s.deps.Log.Info("ride cancelled", "ride_id", s.id)
	if s.deps.OnCancelled != nil {
		s.deps.OnCancelled(s.id)
	}
	return nil
}

// MoveDriver nudges the matched driver 10% of the remaining distance
// toward the pickup point, standing in for real telemetry.
func (s *PassengerSession) MoveDriver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.driver == nil || s.status == StatusSearching || s.status == StatusCancelled {
		return
	}
	s.driver.Loc.Lat += (s.pickup.Lat - s.driver.Loc.Lat) * 0.1
	s.driver.Loc.Lon += (s.pickup.Lon - s.driver.Loc.Lon) * 0.1
}

// PassengerSnapshot is a copy of the session state safe to serialize.
type PassengerSnapshot struct {
	RideID       string                      `json:"ride_id"`
	RiderID      string                      `json:"rider_id"`
	Status       PassengerStatus             `json:"status"`
	Progress     int                         `json:"progress"`
	Pickup       models.Location             `json:"pickup"`
	Dropoff      models.Location             `json:"dropoff"`
	VehicleType  models.VehicleType          `json:"vehicle_type"`
	Estimate     models.FareEstimate         `json:"estimate"`
	Sharing      bool                        `json:"sharing"`
	Driver       *models.Driver              `json:"driver,omitempty"`
	Pending      []models.CoPassengerRequest `json:"pending_co_passengers,omitempty"`
	Approved     []string                    `json:"approved_co_passengers,omitempty"`
}

func (s *PassengerSession) Snapshot() PassengerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := PassengerSnapshot{
		RideID:      s.id,
		RiderID:     s.riderID,
		Status:      s.status,
		Progress:    s.progress,
		Pickup:      s.pickup,
		Dropoff:     s.dropoff,
		VehicleType: s.vehicle,
		Estimate:    s.estimate,
		Sharing:     s.sharing,
		Pending:     append([]models.CoPassengerRequest(nil), s.pending...),
		Approved:    append([]string(nil), s.approved...),
	}
	if s.driver != nil {
		d := *s.driver
		snap.Driver = &d
	}
	return snap
}

func (s *PassengerSession) ID() string { return s.id }

func (s *PassengerSession) Status() PassengerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close stops all timers. Idempotent; fired timers that lost the race
// see the closed flag and drop out.
func (s *PassengerSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *PassengerSession) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.timers.stopAll()
}

// caller holds s.mu
func (s *PassengerSession) removePending(id string) bool {
	for i, p := range s.pending {
		if p.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}
