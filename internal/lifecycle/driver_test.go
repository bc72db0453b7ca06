package lifecycle

import (
	"testing"
	"time"

	"github.com/example/sharka/internal/config"
	"github.com/example/sharka/internal/models"
)

func testOffer() models.RideRequest {
	return models.RideRequest{
		ID:         "ride-9",
		RiderID:    "rider-9",
		RiderName:  "Test Rider",
		Pickup:     models.Location{Lat: 28.63, Lon: 77.22, Address: "CP"},
		Dropoff:    models.Location{Lat: 28.50, Lon: 77.09, Address: "Cyber Hub"},
		DistanceKm: 19,
		ETAMinutes: 5,
		Fare:       370,
		Shared:     true,
	}
}

func newDispatch(t *testing.T) (*DispatchSession, *recordingNotifier, *CompletedRide) {
	t.Helper()
	notifier := &recordingNotifier{}
	var completed CompletedRide
	// CompletingHold is far in the future so tests drive the auto-clear
	// explicitly via FinishCompleting.
	s := NewDispatchSession("driver-7", config.SimTimings{AcceptWindow: 15, CompletingHold: time.Hour}, DispatchDeps{
		Notify:      notifier,
		OnCompleted: func(r CompletedRide) { completed = r },
	})
	t.Cleanup(s.Close)
	if err := s.GoOnline(); err != nil {
		t.Fatal(err)
	}
	return s, notifier, &completed
}

func TestCountdownExpiryWithdrawsOffer(t *testing.T) {
	s, notifier, _ := newDispatch(t)
	if err := s.Offer(testOffer()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 15; i++ {
		s.CountdownTick()
	}
	snap := s.Snapshot()
	if snap.Incoming != nil {
		t.Fatal("expired offer not withdrawn")
	}
	if snap.Active != nil {
		t.Fatal("expiry must not set an active ride")
	}
	if !snap.Online {
		t.Fatal("driver must stay online after expiry")
	}
	if !notifier.has("Request Expired") {
		t.Fatal("missing expiry notification")
	}
}

func TestAcceptMovesOfferToActiveRide(t *testing.T) {
	s, _, _ := newDispatch(t)
	if err := s.Offer(testOffer()); err != nil {
		t.Fatal(err)
	}
	if err := s.Accept(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Incoming != nil {
		t.Fatal("accept must clear the incoming request")
	}
	if snap.Active == nil || snap.Active.ID != "ride-9" {
		t.Fatalf("active ride wrong: %+v", snap.Active)
	}
	if snap.Phase != PhaseArriving {
		t.Fatalf("want arriving, got %s", snap.Phase)
	}
}

func TestDeclineClearsOfferWithoutActiveRide(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	if err := s.Decline(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Incoming != nil || snap.Active != nil {
		t.Fatalf("decline left state behind: %+v", snap)
	}
	if !snap.Online {
		t.Fatal("driver must stay online after decline")
	}
}

func TestFullRideReportsAcceptedFare(t *testing.T) {
	s, _, completed := newDispatch(t)
	_ = s.Offer(testOffer())
	_ = s.Accept()
	if err := s.Arrived(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartRide(); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseCompleting {
		t.Fatalf("want completing, got %s", s.Phase())
	}
	s.FinishCompleting()

	snap := s.Snapshot()
	if snap.Phase != PhaseIdle || snap.Active != nil {
		t.Fatalf("session not cleared: %+v", snap)
	}
	if !snap.Online {
		t.Fatal("driver must return to online/idle")
	}
	if completed.Request.Fare != 370 {
		t.Fatalf("reported fare: want 370, got %d", completed.Request.Fare)
	}
}

func TestPhaseTransitionsAreOrdered(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	_ = s.Accept()
	if err := s.StartRide(); err == nil {
		t.Fatal("start before arrived must fail")
	}
	if err := s.Complete(); err == nil {
		t.Fatal("complete before start must fail")
	}
	_ = s.Arrived()
	if err := s.Arrived(); err == nil {
		t.Fatal("arrived is not repeatable")
	}
}

func TestSecondOfferRejectedWhilePending(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	other := testOffer()
	other.ID = "ride-10"
	if err := s.Offer(other); err == nil {
		t.Fatal("at most one incoming request may exist")
	}
}

func TestOfferRejectedMidRide(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	_ = s.Accept()
	other := testOffer()
	other.ID = "ride-10"
	if err := s.Offer(other); err == nil {
		t.Fatal("at most one active ride per driver")
	}
}

func TestShareRequestsOnlyWhileRideActive(t *testing.T) {
	s, _, _ := newDispatch(t)
	if err := s.OfferShare(models.CoPassengerRequest{ID: "share-1"}); err == nil {
		t.Fatal("share request without an active ride must fail")
	}
	_ = s.Offer(testOffer())
	_ = s.Accept()
	if err := s.OfferShare(models.CoPassengerRequest{ID: "share-1", Name: "Meera"}); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Snapshot().Shares); got != 1 {
		t.Fatalf("want 1 pending share, got %d", got)
	}
}

func TestSharesResolvedIndependently(t *testing.T) {
	s, notifier, completed := newDispatch(t)
	_ = s.Offer(testOffer())
	_ = s.Accept()
	_ = s.OfferShare(models.CoPassengerRequest{ID: "share-1"})
	_ = s.OfferShare(models.CoPassengerRequest{ID: "share-2"})

	if err := s.ApproveShare("share-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RejectShare("share-2"); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Snapshot().Shares); got != 0 {
		t.Fatalf("shares not drained: %d left", got)
	}
	if !notifier.has("Passenger Added") {
		t.Fatal("missing route-updated notification")
	}

	_ = s.Arrived()
	_ = s.StartRide()
	_ = s.Complete()
	s.FinishCompleting()
	if completed.Shares != 1 {
		t.Fatalf("completed ride must count 1 approved share, got %d", completed.Shares)
	}
}

func TestGoOfflineBlockedMidRide(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	_ = s.Accept()
	if err := s.GoOffline(); err == nil {
		t.Fatal("going offline mid-ride must fail")
	}
}

func TestGoOfflineDropsPendingOffer(t *testing.T) {
	s, _, _ := newDispatch(t)
	_ = s.Offer(testOffer())
	if err := s.GoOffline(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Online || snap.Incoming != nil {
		t.Fatalf("offline session kept state: %+v", snap)
	}
	if err := s.Offer(testOffer()); err == nil {
		t.Fatal("offline driver must not receive offers")
	}
}
