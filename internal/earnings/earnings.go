// Package earnings keeps the driver payout ledger: per-ride lines with
// the platform fee taken out, plus period summaries for the earnings
// screen.
package earnings

import (
	"time"

	"github.com/example/sharka/internal/models"
	"github.com/example/sharka/internal/storage"
)

// platform commission, percent of gross fare
const platformFeePercent = 15

type Service struct {
	Store storage.EarningsStore
}

// Record writes the payout line for one completed ride. shareBonus is
// the extra earned from mid-ride co-passengers; the platform fee only
// applies to the base fare.
func (s *Service) Record(driverID, rideID string, grossFare, shareBonus int64) (models.DriverEarning, error) {
	fee := grossFare * platformFeePercent / 100
	e := models.DriverEarning{
		DriverID:    driverID,
		RideID:      rideID,
		GrossFare:   grossFare,
		PlatformFee: fee,
		ShareBonus:  shareBonus,
		Net:         grossFare - fee + shareBonus,
		EarnedAt:    time.Now(),
	}
	if err := s.Store.SaveEarning(&e); err != nil {
		return models.DriverEarning{}, err
	}
	return e, nil
}

// Summary aggregates a driver's earnings over a period.
type Summary struct {
	Period          string `json:"period"`
	Total           int64  `json:"total"`
	Rides           int    `json:"rides"`
	SharedRides     int    `json:"shared_rides"`
	ExtraFromShares int64  `json:"extra_from_shares"`
	AvgPerRide      int64  `json:"avg_per_ride"`
	PlatformFees    int64  `json:"platform_fees"`
}

// Summarize computes the summary for "today", "week", or "month";
// unknown periods default to today.
func (s *Service) Summarize(driverID, period string) (Summary, error) {
	since := periodStart(period, time.Now())
	lines, err := s.Store.EarningsSince(driverID, since.Unix())
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Period: period}
	for _, e := range lines {
		sum.Rides++
		sum.Total += e.Net
		sum.PlatformFees += e.PlatformFee
		if e.ShareBonus > 0 {
			sum.SharedRides++
			sum.ExtraFromShares += e.ShareBonus
		}
	}
	if sum.Rides > 0 {
		sum.AvgPerRide = sum.Total / int64(sum.Rides)
	}
	return sum, nil
}

func periodStart(period string, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "week":
		return midnight.AddDate(0, 0, -7)
	case "month":
		return midnight.AddDate(0, -1, 0)
	default:
		return midnight
	}
}
