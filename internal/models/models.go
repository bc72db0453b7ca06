package models

import "time"

// Location is a geocoded point. Address falls back to a raw
// "lat, lon" string when reverse geocoding is unavailable.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// Zero reports whether the location was never set. Callers must treat
// estimates over zero locations as unavailable, not as zero-length trips.
func (l Location) Zero() bool { return l.Lat == 0 && l.Lon == 0 && l.Address == "" }

type RideStatus string

const (
	RideSearching RideStatus = "searching"
	RideConfirmed RideStatus = "confirmed"
	RideOngoing   RideStatus = "in_progress"
	RideCompleted RideStatus = "completed"
	RideCancelled RideStatus = "cancelled"
)

type VehicleType string

const (
	VehicleHatchback VehicleType = "hatchback"
	VehicleSedan     VehicleType = "sedan"
	VehicleSUV       VehicleType = "suv"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
)

// VehicleClass is a bookable tier with its base fare in whole rupees.
type VehicleClass struct {
	Type        VehicleType `json:"type"`
	Name        string      `json:"name"`
	BaseFare    int64       `json:"base_fare"`
	Seats       int         `json:"seats"`
	Description string      `json:"description"`
}

// FareEstimate is derived, never persisted; recompute on any input change.
type FareEstimate struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationMin   int     `json:"duration_min"`
	BaseFare      int64   `json:"base_fare"`
	TotalFare     int64   `json:"total_fare"`
	CarbonSavedKg float64 `json:"carbon_saved_kg"`
}

type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
	Seats int    `json:"seats"`
}

// Driver is the matched-driver snapshot shown to a passenger. Created on
// match, location-nudged while the session lives, discarded with it.
type Driver struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rating     float64   `json:"rating"` // 0..5
	Trips      int       `json:"trips"`
	Vehicle    Vehicle   `json:"vehicle"`
	Loc        Location  `json:"loc"`
	ETAMinutes int       `json:"eta_minutes"`
	Online     bool      `json:"online"`
	Updated    time.Time `json:"updated"`
}

// CoPassengerRequest is a third party asking to join a shared ride,
// pending the Captain's (and, mid-ride, the driver's) decision.
type CoPassengerRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	Pickup        string  `json:"pickup"`
	FareShare     int64   `json:"fare_share"`
	DetourMinutes int     `json:"detour_minutes"`
}

// RideRequest is what a dispatch offer carries to a driver.
type RideRequest struct {
	ID           string   `json:"id"`
	RiderID      string   `json:"rider_id"`
	RiderName    string   `json:"rider_name"`
	Pickup       Location `json:"pickup"`
	Dropoff      Location `json:"dropoff"`
	DistanceKm   float64  `json:"distance_km"`
	ETAMinutes   int      `json:"eta_minutes"`
	Fare         int64    `json:"fare"`
	Shared       bool     `json:"shared"`
	DetourMin    int      `json:"detour_min,omitempty"`
	ExtraEarning int64    `json:"extra_earning,omitempty"`
}

// Ride is the persisted record handed to the store once a session
// reaches a terminal state.
type Ride struct {
	ID            string
	RiderID       string
	DriverID      string
	Pickup        Location
	Dropoff       Location
	VehicleType   VehicleType
	BaseFare      int64
	TotalFare     int64
	DistanceKm    float64
	DurationMin   int
	Sharing       bool
	MaxPassengers int
	CoPassengers  []string
	Status        RideStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RidePassenger links an approved co-passenger to a ride with their
// settled share and eco accrual.
type RidePassenger struct {
	RideID         string
	PassengerID    string
	FareShare      int64
	CarbonSavedKg  float64
	WalletCashback int64
}

// DriverEarning is one completed ride's payout line.
type DriverEarning struct {
	ID          string
	DriverID    string
	RideID      string
	GrossFare   int64
	PlatformFee int64
	ShareBonus  int64
	Net         int64
	EarnedAt    time.Time
}

type WalletTransactionKind string

const (
	TxnCredit   WalletTransactionKind = "credit"
	TxnDebit    WalletTransactionKind = "debit"
	TxnCashback WalletTransactionKind = "cashback"
)

type WalletTransaction struct {
	ID        string
	WalletID  string
	RideID    string
	Kind      WalletTransactionKind
	Amount    int64
	Note      string
	CreatedAt time.Time
}

type Wallet struct {
	UserID     string
	Balance    int64
	EcoCredits int64
	UpdatedAt  time.Time
}
