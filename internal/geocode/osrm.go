package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/sharka/internal/models"
)

// Router fetches driving routes from an OSRM HTTP server.
type Router struct {
	Endpoint string
	HTTP     *http.Client
}

func NewRouter(endpoint string) *Router {
	return &Router{Endpoint: endpoint, HTTP: &http.Client{Timeout: 3 * time.Second}}
}

// Route holds a drivable polyline between two points. Fallback indicates
// the straight-line degradation was used because routing failed.
type Route struct {
	Points   []models.Location `json:"points"`
	Fallback bool              `json:"fallback"`
}

// Between returns the route polyline from a to b. On any failure it
// degrades to a straight two-point line rather than erroring: the map
// draws it dashed, the booking flow continues.
func (r *Router) Between(ctx context.Context, a, b models.Location) Route {
	straight := Route{Points: []models.Location{{Lat: a.Lat, Lon: a.Lon}, {Lat: b.Lat, Lon: b.Lon}}, Fallback: true}
	u := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		r.Endpoint, a.Lon, a.Lat, b.Lon, b.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return straight
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return straight
	}
	defer resp.Body.Close()
	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return straight
	}
	if out.Code != "Ok" || len(out.Routes) == 0 || len(out.Routes[0].Geometry.Coordinates) == 0 {
		return straight
	}
	pts := make([]models.Location, 0, len(out.Routes[0].Geometry.Coordinates))
	for _, c := range out.Routes[0].Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.Location{Lat: c[1], Lon: c[0]})
	}
	if len(pts) < 2 {
		return straight
	}
	return Route{Points: pts}
}
