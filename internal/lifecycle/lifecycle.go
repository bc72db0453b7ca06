// Package lifecycle holds the two state machines at the heart of the
// booking flow: the passenger matching session and the driver dispatch
// session. The machines themselves are synchronous and lock-guarded;
// timed behavior (search progress, share-request arrival, acceptance
// countdowns) is injected by a runner so tests can drive transitions
// directly and production can pace them from config.
package lifecycle

import (
	"errors"

	"github.com/example/sharka/internal/models"
)

// ErrInvalidTransition is returned when an operation is not legal in
// the session's current state. Sessions never move backwards; the only
// way to retry is cancel-and-rebook with a fresh session.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrSessionClosed is returned once a session has reached a terminal
// state or been closed; late timer callbacks and late HTTP calls both
// land here instead of mutating a discarded session.
var ErrSessionClosed = errors.New("session closed")

// Notifier is the toast-equivalent surface. Implementations push over
// WebSocket when the user is connected and log otherwise.
type Notifier interface {
	Notify(userID, title, body string)
}

// DriverSource produces the driver a completed search yields.
type DriverSource interface {
	FindDriver(pickup models.Location) models.Driver
}

// ShareSource synthesizes co-passenger join requests for shared rides.
type ShareSource interface {
	NextCoPassenger(pickup models.Location, est models.FareEstimate) models.CoPassengerRequest
}

// OfferSource produces the next dispatch offer for an idle online driver.
type OfferSource interface {
	NextOffer(driverID string) (models.RideRequest, bool)
}

// SessionKind tags the two session variants so boundaries can switch
// exhaustively instead of duck-typing on a role string.
type SessionKind string

const (
	KindPassenger SessionKind = "passenger"
	KindDriver    SessionKind = "driver"
)
