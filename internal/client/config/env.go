package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is loaded into the process environment, if it exists, before the
// JOBOOST_* variables are read. Variables already set are not overridden.
var EnvFile = ".env"

// parseEnv overlays Config with JOBOOST_* environment variables.
//
// Recognised variables:
//
//	JOBOOST_API_URL          APIBaseURL
//	JOBOOST_REQUEST_TIMEOUT  RequestTimeout (Go duration)
//	JOBOOST_POLL_INTERVAL    PollInterval (Go duration)
//	JOBOOST_POLL_ATTEMPTS    PollAttempts
//	JOBOOST_RATE_LIMIT       RateLimit (requests per second)
//	JOBOOST_DATA_DIR         DataDir
//	JOBOOST_ORIGIN_URL       OriginURL
//	JOBOOST_LOG_FORMAT       LogFormat
//	JOBOOST_DEBUG            Debug
//
// Panics on malformed values, like the other loaders.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v, ok := os.LookupEnv("JOBOOST_API_URL"); ok {
		cfg.APIBaseURL = v
	}
	if v, ok := os.LookupEnv("JOBOOST_REQUEST_TIMEOUT"); ok {
		cfg.RequestTimeout = mustDuration(v)
	}
	if v, ok := os.LookupEnv("JOBOOST_POLL_INTERVAL"); ok {
		cfg.PollInterval = mustDuration(v)
	}
	if v, ok := os.LookupEnv("JOBOOST_POLL_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		cfg.PollAttempts = n
	}
	if v, ok := os.LookupEnv("JOBOOST_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(err)
		}
		cfg.RateLimit = f
	}
	if v, ok := os.LookupEnv("JOBOOST_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("JOBOOST_ORIGIN_URL"); ok {
		cfg.OriginURL = v
	}
	if v, ok := os.LookupEnv("JOBOOST_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := os.LookupEnv("JOBOOST_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		cfg.Debug = b
	}
}

func mustDuration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	return d
}
