package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	NominatimEndpoint string
	OSRMEndpoint      string

	MatcherTopN int

	// Simulated-event pacing. Production defaults mirror the product's
	// original timings; tests compress them.
	Sim SimTimings

	LogLevel      string
	RunMigrations bool
}

// SimTimings paces the synthetic event source that stands in for real
// driver telemetry and share-request transport.
type SimTimings struct {
	SearchTick     time.Duration // progress tick while searching
	ShareDelay     time.Duration // co-passenger request after driver_found
	MoveTick       time.Duration // driver position interpolation
	OfferDelay     time.Duration // dispatch offer after going online/idle
	AcceptWindow   int           // seconds to accept a dispatch offer
	CompletingHold time.Duration // completing phase auto-clear
	MidRideShare   time.Duration // mid-ride share request after activation
	ConfirmedTTL   time.Duration // confirmed session retention before teardown
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:          ":8080",
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		RedisGeoKey:       "drivers_geo",
		KafkaTopic:        "driver-locations",
		NominatimEndpoint: "https://nominatim.openstreetmap.org",
		OSRMEndpoint:      "https://router.project-osrm.org",
		MatcherTopN:       8,
		Sim: SimTimings{
			SearchTick:     200 * time.Millisecond,
			ShareDelay:     3 * time.Second,
			MoveTick:       2 * time.Second,
			OfferDelay:     3 * time.Second,
			AcceptWindow:   15,
			CompletingHold: 2 * time.Second,
			MidRideShare:   5 * time.Second,
			ConfirmedTTL:   30 * time.Second,
		},
		LogLevel: "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.NominatimEndpoint, "NOMINATIM_ENDPOINT")
	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")

	setIntFromEnv(&cfg.MatcherTopN, "MATCHER_TOP_N", &errs)

	setDurationFromEnv(&cfg.Sim.SearchTick, "SIM_SEARCH_TICK", &errs)
	setDurationFromEnv(&cfg.Sim.ShareDelay, "SIM_SHARE_DELAY", &errs)
	setDurationFromEnv(&cfg.Sim.MoveTick, "SIM_MOVE_TICK", &errs)
	setDurationFromEnv(&cfg.Sim.OfferDelay, "SIM_OFFER_DELAY", &errs)
	setIntFromEnv(&cfg.Sim.AcceptWindow, "SIM_ACCEPT_WINDOW_SECONDS", &errs)
	setDurationFromEnv(&cfg.Sim.CompletingHold, "SIM_COMPLETING_HOLD", &errs)
	setDurationFromEnv(&cfg.Sim.MidRideShare, "SIM_MID_RIDE_SHARE_DELAY", &errs)
	setDurationFromEnv(&cfg.Sim.ConfirmedTTL, "SIM_CONFIRMED_TTL", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.MatcherTopN <= 0 {
		errs = append(errs, fmt.Errorf("MATCHER_TOP_N must be > 0"))
	}
	if cfg.Sim.AcceptWindow <= 0 {
		errs = append(errs, fmt.Errorf("SIM_ACCEPT_WINDOW_SECONDS must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
