package match

import (
	"sort"

	"github.com/example/sharka/internal/geo"
	"github.com/example/sharka/internal/models"
)

// Index is the slice of the geo package the matcher needs.
type Index interface {
	Nearby(lat, lon float64, limit int) []models.Driver
}

// Service picks the driver a searching passenger gets. Candidates come
// from the location index; scoring trades approach time against rating.
type Service struct {
	Index Index
	TopN  int
}

// score weights: one rating star is worth 30 seconds of approach time.
const ratingPenaltySeconds = 30.0

// approach speed used to turn distance into ETA, ~28.8 km/h city average
const citySpeedMps = 8.0

// Best returns the lowest-cost candidate near the pickup point, or
// false when no driver is online nearby.
func (s *Service) Best(pickup models.Location) (models.Driver, bool) {
	limit := s.TopN
	if limit <= 0 {
		limit = 8
	}
	cands := s.Index.Nearby(pickup.Lat, pickup.Lon, limit)
	if len(cands) == 0 {
		return models.Driver{}, false
	}
	type scored struct {
		d      models.Driver
		etaSec float64
		cost   float64
	}
	list := make([]scored, 0, len(cands))
	for _, d := range cands {
		etaSec := geo.Haversine(d.Loc.Lat, d.Loc.Lon, pickup.Lat, pickup.Lon) / citySpeedMps
		cost := etaSec + ratingPenaltySeconds*(5.0-d.Rating)
		list = append(list, scored{d, etaSec, cost})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].cost < list[j].cost })

	best := list[0]
	best.d.ETAMinutes = int(best.etaSec/60) + 1
	return best.d, true
}
