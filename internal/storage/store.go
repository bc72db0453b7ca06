package storage

import "github.com/example/sharka/internal/models"

// RideStore persists ride records and their co-passenger links.
type RideStore interface {
	SaveRide(r *models.Ride) error
	UpdateRideStatus(id string, status models.RideStatus) error
	GetRide(id string) (*models.Ride, bool, error)
	SavePassenger(p *models.RidePassenger) error
}

// WalletStore persists balances, eco credits, and transactions.
type WalletStore interface {
	GetWallet(userID string) (*models.Wallet, error)
	Credit(userID string, amount int64, kind models.WalletTransactionKind, rideID, note string) error
	Debit(userID string, amount int64, note string) error
	AddEcoCredits(userID string, credits int64) error
	ConvertEcoCredits(userID string, credits int64) error
	Transactions(userID string, limit int) ([]models.WalletTransaction, error)
}

// EarningsStore persists per-ride driver payout lines.
type EarningsStore interface {
	SaveEarning(e *models.DriverEarning) error
	EarningsSince(driverID string, sinceUnix int64) ([]models.DriverEarning, error)
}
