package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/sharka/internal/models"
)

// RedisIndex implements Index using Redis GEO commands, with driver
// metadata kept in a companion hash per driver.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(d models.Driver) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: d.Loc.Lon, Latitude: d.Loc.Lat, Name: d.ID}).Result()
	_ = r.client.HSet(r.ctx, MetaKey(d.ID), map[string]interface{}{
		"name":    d.Name,
		"rating":  strconv.FormatFloat(d.Rating, 'f', -1, 64),
		"trips":   strconv.Itoa(d.Trips),
		"online":  strconv.FormatBool(d.Online),
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Nearby(lat, lon float64, limit int) []models.Driver {
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius: 5000, Unit: "m", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.Driver, 0, len(res))
	for _, g := range res {
		d := models.Driver{ID: g.Name}
		d.Loc.Lat = g.Latitude
		d.Loc.Lon = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, MetaKey(g.Name)).Result(); err == nil {
			d.Name = m["name"]
			if v, ok := m["rating"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					d.Rating = f
				}
			}
			if v, ok := m["trips"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					d.Trips = n
				}
			}
			if v, ok := m["online"]; ok {
				d.Online = v == "true"
			}
		}
		if !d.Online {
			continue
		}
		out = append(out, d)
	}
	return out
}

// MetaKey is the hash key holding a driver's non-geo attributes.
func MetaKey(id string) string { return "driver:meta:" + id }
