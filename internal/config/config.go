// README: Config loader with env defaults for HTTP, DB, Redis, geocoding, device and session settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type GeocodingConfig struct {
	GoogleMapsKey string
	OpenCageKey   string
	OpenCageURL   string
	CacheTTL      time.Duration
	Timeout       time.Duration
}

// DeviceConfig describes the hardware the service runs on. HasFix is false
// when the host has no configured position.
type DeviceConfig struct {
	Lat           float64
	Lng           float64
	HasFix        bool
	LocateTimeout time.Duration
	CameraID      int
	CameraEnabled bool
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type Config struct {
	HTTP struct {
		Addr   string
		APIKey string
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Log struct {
		Level string
	}
	Geocoding GeocodingConfig
	Device    DeviceConfig
	Session   SessionConfig
}

func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("QIBLA_HTTP_ADDR", ":8080")
	cfg.HTTP.APIKey = os.Getenv("QIBLA_API_KEY")
	cfg.DB.DSN = os.Getenv("QIBLA_DB_DSN")
	cfg.Redis.Addr = os.Getenv("QIBLA_REDIS_ADDR")
	cfg.Log.Level = envOrDefault("QIBLA_LOG_LEVEL", "info")

	cfg.Geocoding.GoogleMapsKey = os.Getenv("QIBLA_GOOGLE_MAPS_KEY")
	cfg.Geocoding.OpenCageKey = os.Getenv("QIBLA_OPENCAGE_KEY")
	cfg.Geocoding.OpenCageURL = envOrDefault("QIBLA_OPENCAGE_URL", "https://api.opencagedata.com/geocode/v1/json")
	cfg.Geocoding.CacheTTL = envOrDefaultDuration("QIBLA_GEOCODE_CACHE_TTL", 24*time.Hour)
	cfg.Geocoding.Timeout = envOrDefaultDuration("QIBLA_GEOCODE_TIMEOUT", 5*time.Second)

	lat, latSet, err := coordEnv("QIBLA_DEVICE_LAT", 90)
	if err != nil {
		return Config{}, err
	}
	lng, lngSet, err := coordEnv("QIBLA_DEVICE_LNG", 180)
	if err != nil {
		return Config{}, err
	}
	if latSet != lngSet {
		return Config{}, fmt.Errorf("config: QIBLA_DEVICE_LAT and QIBLA_DEVICE_LNG must be set together")
	}
	cfg.Device.HasFix = latSet && lngSet
	cfg.Device.Lat = lat
	cfg.Device.Lng = lng
	cfg.Device.LocateTimeout = envOrDefaultDuration("QIBLA_LOCATE_TIMEOUT", 10*time.Second)
	cfg.Device.CameraID = envOrDefaultInt("QIBLA_CAMERA_ID", 0)
	cfg.Device.CameraEnabled = envOrDefaultBool("QIBLA_CAMERA_ENABLED", false)

	cfg.Session.IdleTTL = envOrDefaultDuration("QIBLA_SESSION_TTL", 15*time.Minute)
	cfg.Session.SweepInterval = envOrDefaultDuration("QIBLA_SESSION_SWEEP", time.Minute)
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// coordEnv reads an optional coordinate. Unlike the other settings a bad
// value is an error: falling back would place the device somewhere else.
func coordEnv(key string, limit float64) (float64, bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
	if n < -limit || n > limit {
		return 0, false, fmt.Errorf("config: %s=%q: out of range [-%g, %g]", key, v, limit, limit)
	}
	return n, true, nil
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
