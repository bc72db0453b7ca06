package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/sharka/internal/models"
)

func locFor(lat, lon float64) models.Location {
	return models.Location{Lat: lat, Lon: lon}
}

func TestReverseFallsBackToRawCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	loc := c.Reverse(context.Background(), 28.6315, 77.2167)
	if loc.Address != "28.6315, 77.2167" {
		t.Fatalf("want coordinate fallback, got %q", loc.Address)
	}
}

func TestReverseUsesDisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"Connaught Place, New Delhi"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	loc := c.Reverse(context.Background(), 28.6315, 77.2167)
	if loc.Address != "Connaught Place, New Delhi" {
		t.Fatalf("got %q", loc.Address)
	}
}

func TestReverseUnreachableServer(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	loc := c.Reverse(context.Background(), 12.9716, 77.5946)
	if loc.Address != "12.9716, 77.5946" {
		t.Fatalf("want coordinate fallback, got %q", loc.Address)
	}
}

func TestSearchParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "cyber hub" {
			t.Errorf("query: got %q", got)
		}
		w.Write([]byte(`[{"lat":"28.4949","lon":"77.0895","display_name":"Cyber Hub, Gurugram"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	locs, err := c.Search(context.Background(), "cyber hub", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 1 || locs[0].Address != "Cyber Hub, Gurugram" {
		t.Fatalf("unexpected results: %+v", locs)
	}
	if locs[0].Lat != 28.4949 || locs[0].Lon != 77.0895 {
		t.Fatalf("coords not parsed: %+v", locs[0])
	}
}

func TestRouteStraightLineFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute"}`))
	}))
	defer srv.Close()

	router := NewRouter(srv.URL)
	a := locFor(28.63, 77.22)
	b := locFor(28.50, 77.09)
	route := router.Between(context.Background(), a, b)
	if !route.Fallback {
		t.Fatal("expected fallback route")
	}
	if len(route.Points) != 2 || route.Points[0].Lat != a.Lat || route.Points[1].Lon != b.Lon {
		t.Fatalf("fallback must be the straight two-point line, got %+v", route.Points)
	}
}

func TestRouteParsesGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"coordinates":[[77.22,28.63],[77.15,28.56],[77.09,28.50]]}}]}`))
	}))
	defer srv.Close()

	router := NewRouter(srv.URL)
	route := router.Between(context.Background(), locFor(28.63, 77.22), locFor(28.50, 77.09))
	if route.Fallback {
		t.Fatal("unexpected fallback")
	}
	if len(route.Points) != 3 || route.Points[1].Lat != 28.56 {
		t.Fatalf("geometry not decoded: %+v", route.Points)
	}
}
