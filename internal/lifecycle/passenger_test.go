package lifecycle

import (
	"sync"
	"testing"

	"github.com/example/sharka/internal/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(userID, title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

func (n *recordingNotifier) has(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.titles {
		if t == title {
			return true
		}
	}
	return false
}

type stubDrivers struct{ d models.Driver }

func (s *stubDrivers) FindDriver(pickup models.Location) models.Driver {
	if s.d.ID == "" {
		return models.Driver{
			ID:         "driver-1",
			Name:       "Test Driver",
			Rating:     4.8,
			ETAMinutes: 5,
			Loc:        models.Location{Lat: pickup.Lat + 0.01, Lon: pickup.Lon + 0.01},
		}
	}
	return s.d
}

type stubShares struct{ next models.CoPassengerRequest }

func (s *stubShares) NextCoPassenger(pickup models.Location, est models.FareEstimate) models.CoPassengerRequest {
	return s.next
}

func newTestSession(t *testing.T, sharing bool) (*PassengerSession, *recordingNotifier, *ConfirmedRide, *bool) {
	t.Helper()
	notifier := &recordingNotifier{}
	var confirmed ConfirmedRide
	cancelled := false
	deps := PassengerDeps{
		Drivers:     &stubDrivers{},
		Shares:      &stubShares{},
		Notify:      notifier,
		OnConfirmed: func(r ConfirmedRide) { confirmed = r },
		OnCancelled: func(string) { cancelled = true },
	}
	s := NewPassengerSession("ride-1", "rider-1",
		models.Location{Lat: 28.63, Lon: 77.22, Address: "CP"},
		models.Location{Lat: 28.50, Lon: 77.09, Address: "Cyber Hub"},
		models.VehicleSedan,
		models.FareEstimate{DistanceKm: 19, TotalFare: 370, DurationMin: 48},
		sharing, 2, deps)
	t.Cleanup(s.Close)
	return s, notifier, &confirmed, &cancelled
}

func searchToDriverFound(t *testing.T, s *PassengerSession) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if err := s.ProgressTick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if got := s.Status(); got != StatusDriverFound {
		t.Fatalf("after 20 ticks want driver_found, got %s", got)
	}
}

func TestSearchFindsDriverAtFullProgress(t *testing.T) {
	s, notifier, _, _ := newTestSession(t, false)
	searchToDriverFound(t, s)
	snap := s.Snapshot()
	if snap.Driver == nil || snap.Driver.ID != "driver-1" {
		t.Fatalf("driver not attached: %+v", snap.Driver)
	}
	if snap.Progress != 100 {
		t.Fatalf("progress: want 100, got %d", snap.Progress)
	}
	if !notifier.has("Driver Found!") {
		t.Fatal("missing driver-found notification")
	}
}

func TestSoloConfirmSkipsApproval(t *testing.T) {
	s, _, confirmed, _ := newTestSession(t, false)
	searchToDriverFound(t, s)
	if err := s.Confirm(); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusConfirmed {
		t.Fatalf("want confirmed, got %s", s.Status())
	}
	if len(confirmed.CoPassengers) != 0 {
		t.Fatalf("solo ride must have no co-passengers, got %v", confirmed.CoPassengers)
	}
	if confirmed.Driver.ID != "driver-1" {
		t.Fatalf("confirmed ride missing driver: %+v", confirmed)
	}
}

func TestCancelFromSearchingIsTerminal(t *testing.T) {
	s, _, _, cancelled := newTestSession(t, false)
	if err := s.ProgressTick(); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusCancelled {
		t.Fatalf("want cancelled, got %s", s.Status())
	}
	if !*cancelled {
		t.Fatal("cancel callback not invoked")
	}
	if err := s.ProgressTick(); err == nil {
		t.Fatal("ticks must not fire after cancel")
	}
	if err := s.Cancel(); err == nil {
		t.Fatal("cancel is not repeatable")
	}
}

func TestCancelFromDriverFound(t *testing.T) {
	s, _, _, cancelled := newTestSession(t, false)
	searchToDriverFound(t, s)
	if err := s.Cancel(); err != nil {
		t.Fatal(err)
	}
	if !*cancelled || s.Status() != StatusCancelled {
		t.Fatalf("cancel from driver_found failed: %s", s.Status())
	}
}

func TestApprovalFlowConfirmsWhenPendingDrains(t *testing.T) {
	s, notifier, confirmed, _ := newTestSession(t, true)
	searchToDriverFound(t, s)

	req := models.CoPassengerRequest{ID: "co-1", Name: "Asha", FareShare: 45, DetourMinutes: 3}
	if err := s.OfferCoPassenger(req); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusWaitingApproval {
		t.Fatalf("want waiting_approval, got %s", s.Status())
	}
	if err := s.Approve("co-1"); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusConfirmed {
		t.Fatalf("want confirmed, got %s", s.Status())
	}
	if len(confirmed.CoPassengers) != 1 || confirmed.CoPassengers[0] != "co-1" {
		t.Fatalf("approved list wrong: %v", confirmed.CoPassengers)
	}
	if !notifier.has("Co-passenger Approved") {
		t.Fatal("missing approval notification")
	}
}

func TestRejectingLastPendingConfirmsSolo(t *testing.T) {
	s, _, confirmed, _ := newTestSession(t, true)
	searchToDriverFound(t, s)
	if err := s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reject("co-1"); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusConfirmed {
		t.Fatalf("want confirmed, got %s", s.Status())
	}
	if len(confirmed.CoPassengers) != 0 {
		t.Fatalf("rejected rider leaked into approved list: %v", confirmed.CoPassengers)
	}
}

func TestSkipConfirmsRegardlessOfPending(t *testing.T) {
	s, _, confirmed, _ := newTestSession(t, true)
	searchToDriverFound(t, s)
	_ = s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-1"})
	_ = s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-2"})
	if err := s.Skip(); err != nil {
		t.Fatal(err)
	}
	if s.Status() != StatusConfirmed {
		t.Fatalf("want confirmed, got %s", s.Status())
	}
	if len(confirmed.CoPassengers) != 0 {
		t.Fatalf("skip must continue solo, got %v", confirmed.CoPassengers)
	}
	if len(s.Snapshot().Pending) != 0 {
		t.Fatal("pending not cleared by skip")
	}
}

func TestApproveOnlyLegalWhileWaiting(t *testing.T) {
	s, _, _, _ := newTestSession(t, true)
	if err := s.Approve("co-1"); err == nil {
		t.Fatal("approve must fail while searching")
	}
	searchToDriverFound(t, s)
	if err := s.Approve("co-1"); err == nil {
		t.Fatal("approve must fail before any request arrives")
	}
}

func TestSoloSessionRejectsShareOffers(t *testing.T) {
	s, _, _, _ := newTestSession(t, false)
	searchToDriverFound(t, s)
	if err := s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-1"}); err == nil {
		t.Fatal("share offer must be rejected when sharing is off")
	}
}

func TestMaxCoPassengersBoundsPending(t *testing.T) {
	s, _, _, _ := newTestSession(t, true) // maxCo = 2
	searchToDriverFound(t, s)
	_ = s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-1"})
	_ = s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-2"})
	if err := s.OfferCoPassenger(models.CoPassengerRequest{ID: "co-3"}); err == nil {
		t.Fatal("third request must be rejected at maxCoPassengers=2")
	}
}

func TestMoveDriverInterpolatesTowardPickup(t *testing.T) {
	s, _, _, _ := newTestSession(t, false)
	searchToDriverFound(t, s)
	before := s.Snapshot().Driver.Loc
	s.MoveDriver()
	after := s.Snapshot().Driver.Loc
	wantLat := before.Lat + (28.63-before.Lat)*0.1
	if after.Lat != wantLat {
		t.Fatalf("lat interpolation: want %v, got %v", wantLat, after.Lat)
	}
}

func TestMoveDriverNoopWhileSearching(t *testing.T) {
	s, _, _, _ := newTestSession(t, false)
	s.MoveDriver() // no driver yet; must not panic or change state
	if s.Snapshot().Driver != nil {
		t.Fatal("driver appeared out of nowhere")
	}
}
