package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/example/sharka/internal/config"
	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/observability"
)

// RidePhase is the inner state of an accepted ride.
type RidePhase string

const (
	PhaseIdle       RidePhase = "idle"
	PhaseArriving   RidePhase = "arriving"
	PhaseWaiting    RidePhase = "waiting"
	PhaseInProgress RidePhase = "in_progress"
	PhaseCompleting RidePhase = "completing"
)

// CompletedRide reports a finished ride to the earnings collaborator.
type CompletedRide struct {
	DriverID string
	Request  models.RideRequest
	Shares   int // co-passengers approved mid-ride
}

// DispatchDeps are the dispatch session's collaborators.
type DispatchDeps struct {
	Offers      OfferSource
	Shares      ShareSource
	Notify      Notifier
	OnCompleted func(CompletedRide)
	Log         *slog.Logger
}

// DispatchSession is one driver's online presence. At most one incoming
// offer and at most one active ride exist at a time; share requests
// only exist while a ride is active.
type DispatchSession struct {
	mu sync.Mutex

	driverID string
	online   bool

	incoming  *models.RideRequest
	deadline  int // seconds left on the acceptance countdown
	active    *models.RideRequest
	phase     RidePhase
	shares    []models.CoPassengerRequest
	approved  int

	deps   DispatchDeps
	sim    config.SimTimings
	closed bool
	timers timerSet
}

func NewDispatchSession(driverID string, sim config.SimTimings, deps DispatchDeps) *DispatchSession {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if sim.AcceptWindow <= 0 {
		sim.AcceptWindow = 15
	}
	return &DispatchSession{driverID: driverID, phase: PhaseIdle, deps: deps, sim: sim}
}

// GoOnline makes the driver available and arms the next offer.
func (s *DispatchSession) GoOnline() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.online {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.online = true
	s.mu.Unlock()

	observability.DriversOnline.Inc()
	s.deps.Log.Info("driver online", "driver_id", s.driverID)
	s.armNextOffer()
	return nil
}

// GoOffline withdraws the driver. Not legal mid-ride; finish or the
// passenger is stranded.
func (s *DispatchSession) GoOffline() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.online || s.active != nil {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.online = false
	s.incoming = nil
	s.deadline = 0
	s.mu.Unlock()

	observability.DriversOnline.Dec()
	s.deps.Log.Info("driver offline", "driver_id", s.driverID)
	return nil
}

// Start arms the countdown ticker. Offers themselves arrive via
// armNextOffer after GoOnline. Tests skip Start and call
// Offer/CountdownTick directly.
func (s *DispatchSession) Start() {
	s.timers.ticker(time.Second, func() { s.CountdownTick() })
}

// Offer places an incoming request in front of the driver and starts
// the acceptance window. Rejected while offline, mid-ride, or when an
// offer is already pending.
func (s *DispatchSession) Offer(req models.RideRequest) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.online || s.active != nil || s.incoming != nil {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	r := req
	s.incoming = &r
	s.deadline = s.sim.AcceptWindow
	s.mu.Unlock()

	observability.OffersDispatched.Inc()
	s.deps.Log.Info("offer dispatched", "driver_id", s.driverID, "ride_id", req.ID, "fare", req.Fare)
	s.deps.Notify.Notify(s.driverID, "New Ride Request", req.Pickup.Address+" → "+req.Dropoff.Address)
	return nil
}

// CountdownTick burns one second of the acceptance window. At zero the
// offer is withdrawn and the driver stays online awaiting the next one.
func (s *DispatchSession) CountdownTick() {
	s.mu.Lock()
	if s.closed || s.incoming == nil {
		s.mu.Unlock()
		return
	}
	s.deadline--
	if s.deadline > 0 {
		s.mu.Unlock()
		return
	}
	expired := s.incoming.ID
	s.incoming = nil
	s.deadline = 0
	s.mu.Unlock()

	observability.OffersExpired.Inc()
	s.deps.Log.Info("offer expired", "driver_id", s.driverID, "ride_id", expired)
	s.deps.Notify.Notify(s.driverID, "Request Expired", "The ride request timed out")
	s.armNextOffer()
}

// Accept takes the pending offer as the active ride, phase arriving.
func (s *DispatchSession) Accept() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.incoming == nil {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.active = s.incoming
	s.incoming = nil
	s.deadline = 0
	s.phase = PhaseArriving
	s.approved = 0
	rideID := s.active.ID
	shared := s.active.Shared
	pickup := s.active.Pickup
	fareEst := models.FareEstimate{TotalFare: s.active.Fare, DistanceKm: s.active.DistanceKm}
	s.mu.Unlock()

	s.deps.Log.Info("offer accepted", "driver_id", s.driverID, "ride_id", rideID)
	s.deps.Notify.Notify(s.driverID, "Ride Accepted", "Navigate to the pickup point")
	if shared && s.deps.Shares != nil {
		s.timers.after(s.sim.MidRideShare, func() {
			req := s.deps.Shares.NextCoPassenger(pickup, fareEst)
			_ = s.OfferShare(req)
		})
	}
	return nil
}

// Decline withdraws the pending offer; the driver stays online.
func (s *DispatchSession) Decline() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.incoming == nil {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	declined := s.incoming.ID
	s.incoming = nil
	s.deadline = 0
	s.mu.Unlock()

	s.deps.Log.Info("offer declined", "driver_id", s.driverID, "ride_id", declined)
	s.armNextOffer()
	return nil
}

// Arrived marks the driver at the pickup point.
func (s *DispatchSession) Arrived() error {
	return s.advance(PhaseArriving, PhaseWaiting, "Arrived", "Waiting for your passenger")
}

// StartRide begins the trip.
func (s *DispatchSession) StartRide() error {
	return s.advance(PhaseWaiting, PhaseInProgress, "Ride Started", "Drive safe")
}

// Complete ends the trip. The session sits in completing briefly, then
// clears itself, reports earnings, and re-arms for the next offer.
func (s *DispatchSession) Complete() error {
	if err := s.advance(PhaseInProgress, PhaseCompleting, "Ride Completed", "Settling fare..."); err != nil {
		return err
	}
	s.timers.after(s.sim.CompletingHold, func() { s.FinishCompleting() })
	return nil
}

// FinishCompleting clears the completing ride and reports it. Exposed
// so tests can drive the auto-clear without waiting out the hold.
func (s *DispatchSession) FinishCompleting() {
	s.mu.Lock()
	if s.closed || s.phase != PhaseCompleting || s.active == nil {
		s.mu.Unlock()
		return
	}
	done := CompletedRide{DriverID: s.driverID, Request: *s.active, Shares: s.approved}
	s.active = nil
	s.phase = PhaseIdle
	s.shares = nil
	s.approved = 0
	s.mu.Unlock()

	observability.RidesCompleted.Inc()
	s.deps.Log.Info("ride completed", "driver_id", s.driverID, "ride_id", done.Request.ID, "fare", done.Request.Fare)
	s.deps.Notify.Notify(s.driverID, "Fare Settled", "Earnings added to your balance")
	if s.deps.OnCompleted != nil {
		s.deps.OnCompleted(done)
	}
	s.armNextOffer()
}

// OfferShare surfaces a mid-ride join request. Only legal while a ride
// is active.
func (s *DispatchSession) OfferShare(req models.CoPassengerRequest) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.active == nil || s.phase == PhaseCompleting {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.shares = append(s.shares, req)
	s.mu.Unlock()

	s.deps.Notify.Notify(s.driverID, "Join Request", req.Name+" wants to join this ride")
	return nil
}

// ApproveShare adds the requester to the active ride. Fare display is
// informational only; settlement happens at completion.
func (s *DispatchSession) ApproveShare(shareID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.active == nil || !s.removeShare(shareID) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.approved++
	s.mu.Unlock()

	observability.SharesApproved.Inc()
	s.deps.Notify.Notify(s.driverID, "Passenger Added", "Route updated")
	return nil
}

// RejectShare declines a mid-ride join request.
func (s *DispatchSession) RejectShare(shareID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.active == nil || !s.removeShare(shareID) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.mu.Unlock()

	observability.SharesRejected.Inc()
	s.deps.Notify.Notify(s.driverID, "Request Declined", "The passenger will be notified")
	return nil
}

// DispatchSnapshot is a copy of the session state safe to serialize.
type DispatchSnapshot struct {
	DriverID string                      `json:"driver_id"`
	Online   bool                        `json:"online"`
	Phase    RidePhase                   `json:"phase"`
	Incoming *models.RideRequest         `json:"incoming_request,omitempty"`
	Deadline int                         `json:"accept_deadline_seconds,omitempty"`
	Active   *models.RideRequest         `json:"active_ride,omitempty"`
	Shares   []models.CoPassengerRequest `json:"pending_share_requests,omitempty"`
}

func (s *DispatchSession) Snapshot() DispatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := DispatchSnapshot{
		DriverID: s.driverID,
		Online:   s.online,
		Phase:    s.phase,
		Deadline: s.deadline,
		Shares:   append([]models.CoPassengerRequest(nil), s.shares...),
	}
	if s.incoming != nil {
		r := *s.incoming
		snap.Incoming = &r
	}
	if s.active != nil {
		r := *s.active
		snap.Active = &r
	}
	return snap
}

func (s *DispatchSession) DriverID() string { return s.driverID }

func (s *DispatchSession) Phase() RidePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Close stops all timers. The driver is counted offline if they were
// online.
func (s *DispatchSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	wasOnline := s.online
	s.closed = true
	s.online = false
	s.timers.stopAll()
	s.mu.Unlock()

	if wasOnline {
		observability.DriversOnline.Dec()
	}
}

// advance is the shared guard for driver-initiated phase transitions.
func (s *DispatchSession) advance(from, to RidePhase, title, body string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.active == nil || s.phase != from {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.phase = to
	rideID := s.active.ID
	s.mu.Unlock()

	s.deps.Log.Info("ride phase", "driver_id", s.driverID, "ride_id", rideID, "phase", to)
	s.deps.Notify.Notify(s.driverID, title, body)
	return nil
}

// armNextOffer schedules the next synthesized offer for an idle online
// driver. The callback re-checks eligibility: going offline or taking a
// ride in the meantime drops the offer.
func (s *DispatchSession) armNextOffer() {
	if s.deps.Offers == nil {
		return
	}
	s.mu.Lock()
	if s.closed || !s.online || s.active != nil || s.incoming != nil {
		s.mu.Unlock()
		return
	}
	delay := s.sim.OfferDelay
	s.mu.Unlock()

	s.timers.after(delay, func() {
		req, ok := s.deps.Offers.NextOffer(s.driverID)
		if !ok {
			return
		}
		_ = s.Offer(req)
	})
}

// caller holds s.mu
func (s *DispatchSession) removeShare(id string) bool {
	for i, r := range s.shares {
		if r.ID == id {
			s.shares = append(s.shares[:i], s.shares[i+1:]...)
			return true
		}
	}
	return false
}
