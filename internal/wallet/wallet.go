// Package wallet applies the eco-incentive rules on top of the wallet
// store: cashback for shared rides and eco credits earned per kg of
// CO2 saved.
package wallet

import (
	"fmt"
	"math"

	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/storage"
)

// credits per kg of CO2 saved on a shared ride
const ecoCreditsPerKg = 10

// captain's cashback share of the fare when a ride is shared
const cashbackPercent = 5

type Service struct {
	Store storage.WalletStore
}

// RideConfirmed applies the incentive side of a confirmed ride: eco
// credits for the carbon saved and, on shared rides, a small cashback.
func (s *Service) RideConfirmed(riderID, rideID string, est models.FareEstimate, shared bool) error {
	if !shared {
		return nil
	}
	if est.CarbonSavedKg > 0 {
		credits := int64(math.Round(est.CarbonSavedKg * ecoCreditsPerKg))
		if err := s.Store.AddEcoCredits(riderID, credits); err != nil {
			return fmt.Errorf("eco credits: %w", err)
		}
	}
	cashback := est.TotalFare * cashbackPercent / 100
	if cashback > 0 {
		if err := s.Store.Credit(riderID, cashback, models.TxnCashback, rideID, "shared ride cashback"); err != nil {
			return fmt.Errorf("cashback: %w", err)
		}
	}
	return nil
}

// Convert turns eco credits into spendable balance, 1 credit = ₹1.
func (s *Service) Convert(userID string, credits int64) error {
	return s.Store.ConvertEcoCredits(userID, credits)
}

// Summary is the wallet view served to clients.
type Summary struct {
	Wallet       models.Wallet              `json:"wallet"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

func (s *Service) Summary(userID string) (Summary, error) {
	w, err := s.Store.GetWallet(userID)
	if err != nil {
		return Summary{}, err
	}
	txns, err := s.Store.Transactions(userID, 20)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Wallet: *w, Transactions: txns}, nil
}
