package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/sharka/internal/geo"
	"github.com/example/sharka/internal/models"
)

// fakeUpdater implements GeoUpdater for tests
type fakeUpdater struct {
	failGeo  int // number of times to fail GeoAdd before succeeding
	failH    int // number of times to fail HSet before succeeding
	geoCalls int
	hCalls   int
	lastGeo  string
	lastMeta string
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	f.lastGeo = key
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	f.lastMeta = key
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	return nil
}

func TestUpdateWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 1, failH: 1}
	d := &models.Driver{ID: "d1", Loc: models.Location{Lat: 28.63, Lon: 77.22}, Rating: 4.5, Online: true}
	start := time.Now()
	if err := updateWithRetry(context.Background(), f, "drivers_geo", d, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.geoCalls < 2 || f.hCalls < 2 {
		t.Fatalf("expected retries, got geo=%d h=%d", f.geoCalls, f.hCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestUpdateWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	d := &models.Driver{ID: "d1", Loc: models.Location{Lat: 28.63, Lon: 77.22}, Online: true}
	if err := updateWithRetry(context.Background(), f, "drivers_geo", d, 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}

func TestUpdateWithRetryWritesExpectedKeys(t *testing.T) {
	f := &fakeUpdater{}
	d := &models.Driver{ID: "d7", Loc: models.Location{Lat: 28.63, Lon: 77.22}, Online: true}
	if err := updateWithRetry(context.Background(), f, "", d, 1, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if f.lastGeo != "drivers_geo" {
		t.Fatalf("geo key: %q", f.lastGeo)
	}
	if f.lastMeta != geo.MetaKey("d7") {
		t.Fatalf("meta key: %q", f.lastMeta)
	}
}
