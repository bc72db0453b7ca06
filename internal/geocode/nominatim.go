package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/sharka/internal/models"
)

// Client resolves coordinates to addresses and free-text queries to
// candidate locations against a Nominatim-compatible endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{Endpoint: endpoint, HTTP: &http.Client{Timeout: 3 * time.Second}}
}

// FallbackAddress is the degraded address used when reverse geocoding
// fails: the raw coordinates to four decimal places.
func FallbackAddress(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// Reverse resolves a point to a display address. Failures are recovered
// locally: the returned location always carries a usable address, never
// an error the caller has to surface.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) models.Location {
	loc := models.Location{Lat: lat, Lon: lon, Address: FallbackAddress(lat, lon)}
	u := fmt.Sprintf("%s/reverse?format=json&lat=%s&lon=%s",
		c.Endpoint, formatCoord(lat), formatCoord(lon))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return loc
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return loc
	}
	defer resp.Body.Close()
	var out struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return loc
	}
	if out.DisplayName != "" {
		loc.Address = out.DisplayName
	}
	return loc
}

// Search forward-geocodes a free-text query, returning up to limit
// candidates. An empty slice on failure; search has no fallback beyond
// "no results".
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Location, error) {
	if limit <= 0 {
		limit = 5
	}
	u := fmt.Sprintf("%s/search?format=json&q=%s&limit=%d", c.Endpoint, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	locs := make([]models.Location, 0, len(out))
	for _, item := range out {
		lat, errLat := strconv.ParseFloat(item.Lat, 64)
		lon, errLon := strconv.ParseFloat(item.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		locs = append(locs, models.Location{Lat: lat, Lon: lon, Address: item.DisplayName})
	}
	return locs, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
