package geo

import (
	"testing"

	"github.com/example/sharka/internal/models"
)

func TestHaversineZero(t *testing.T) {
	if d := Haversine(0, 0, 0, 0); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestNearbyOrdersByDistanceAndSkipsOffline(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Upsert(models.Driver{ID: "far", Loc: models.Location{Lat: 28.70, Lon: 77.30}, Online: true})
	idx.Upsert(models.Driver{ID: "near", Loc: models.Location{Lat: 28.631, Lon: 77.221}, Online: true})
	idx.Upsert(models.Driver{ID: "off", Loc: models.Location{Lat: 28.63, Lon: 77.22}, Online: false})

	got := idx.Nearby(28.63, 77.22, 5)
	if len(got) != 2 {
		t.Fatalf("want 2 online drivers, got %d", len(got))
	}
	if got[0].ID != "near" {
		t.Fatalf("nearest first: got %s", got[0].ID)
	}
}

func TestNearbyHonorsLimit(t *testing.T) {
	idx := NewMemoryIndex()
	for _, id := range []string{"a", "b", "c"} {
		idx.Upsert(models.Driver{ID: id, Loc: models.Location{Lat: 1, Lon: 1}, Online: true})
	}
	if got := idx.Nearby(1, 1, 2); len(got) != 2 {
		t.Fatalf("limit ignored: got %d", len(got))
	}
}
