package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type GeocoderCfg struct {
	URL         string
	UserAgent   string
	Country     string
	MinInterval time.Duration
	Timeout     time.Duration
}

type ModelCfg struct {
	URL      string
	Timeout  time.Duration
	MemoSize int
}

type Config struct {
	Addr             string
	LogLevel         string
	LogConsole       bool
	LogFile          string
	LogSampleN       int
	MetricsEnabled   bool
	ReferencePath    string
	Geocoder         GeocoderCfg
	RedisAddr        string
	RedisPoolSize    int
	RedisDialTimeout time.Duration
	RedisReadTimeout time.Duration
	CoordTTL         time.Duration
	CacheOpTimeout   time.Duration
	Model            ModelCfg
	RequireDistance  bool
	CurrencySymbol   string
	H3Res            int
	WaitReadyTimeout time.Duration
}

func FromEnv() Config {
	res := getint("H3_RES", 7)
	if res < 0 || res > 15 {
		res = 7
	}
	interval := getduration("GEOCODE_MIN_INTERVAL", time.Second)
	if interval < 0 {
		interval = 0
	}

	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogFile:        getenv("LOG_FILE", ""),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		ReferencePath:  getenv("REFERENCE_PATH", "configs/reference.json"),
		Geocoder: GeocoderCfg{
			URL:         getenv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:   getenv("GEOCODER_USER_AGENT", "flight-fare-estimator/1.0"),
			Country:     getenv("GEOCODE_COUNTRY", "India"),
			MinInterval: interval,
			Timeout:     getduration("GEOCODE_TIMEOUT", 10*time.Second),
		},
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RedisPoolSize:    max(getint("REDIS_POOL_SIZE", 4), 1),
		RedisDialTimeout: getduration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		RedisReadTimeout: getduration("REDIS_READ_TIMEOUT", time.Second),
		CoordTTL:         getduration("COORD_TTL", 0),
		CacheOpTimeout:   getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		Model: ModelCfg{
			URL:      getenv("MODEL_URL", "http://localhost:5001/invocations"),
			Timeout:  getduration("MODEL_TIMEOUT", 5*time.Second),
			MemoSize: getint("MODEL_MEMO_SIZE", 1024),
		},
		RequireDistance:  getbool("REQUIRE_DISTANCE", false),
		CurrencySymbol:   getenv("CURRENCY_SYMBOL", "₹"),
		H3Res:            res,
		WaitReadyTimeout: getduration("WAIT_READY_TIMEOUT", 30*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}
