package wallet

import (
	"testing"

	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/storage"
)

func TestRideConfirmedSharedAccruesCreditsAndCashback(t *testing.T) {
	store := storage.NewMemoryStore()
	s := &Service{Store: store}
	est := models.FareEstimate{TotalFare: 370, CarbonSavedKg: 2.7}
	if err := s.RideConfirmed("u1", "r1", est, true); err != nil {
		t.Fatal(err)
	}
	w, _ := store.GetWallet("u1")
	if w.EcoCredits != 27 {
		t.Fatalf("eco credits: want 27, got %d", w.EcoCredits)
	}
	if w.Balance != 18 { // 5% of 370
		t.Fatalf("cashback: want 18, got %d", w.Balance)
	}
}

func TestRideConfirmedSoloIsNoop(t *testing.T) {
	store := storage.NewMemoryStore()
	s := &Service{Store: store}
	if err := s.RideConfirmed("u1", "r1", models.FareEstimate{TotalFare: 370}, false); err != nil {
		t.Fatal(err)
	}
	w, _ := store.GetWallet("u1")
	if w.Balance != 0 || w.EcoCredits != 0 {
		t.Fatalf("solo ride must not accrue: %+v", w)
	}
}

func TestSummaryIncludesTransactions(t *testing.T) {
	store := storage.NewMemoryStore()
	s := &Service{Store: store}
	_ = s.RideConfirmed("u1", "r1", models.FareEstimate{TotalFare: 400, CarbonSavedKg: 1.0}, true)
	sum, err := s.Summary("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Transactions) != 1 {
		t.Fatalf("want 1 transaction, got %d", len(sum.Transactions))
	}
	if sum.Wallet.EcoCredits != 10 {
		t.Fatalf("credits: got %d", sum.Wallet.EcoCredits)
	}
}
