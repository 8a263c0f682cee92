package config

import "time"

// Config holds runtime settings for the joboost CLI.
//
// Fields:
//   - APIBaseURL: root of the Gateway REST API, including the /api prefix.
//   - RequestTimeout: per-request transport timeout.
//   - PollInterval, PollAttempts: payment confirmation polling.
//   - RateLimit, RateBurst: client-side request throttle (0 disables it).
//   - DataDir, DatabaseFile: where the durable session store lives.
//   - OriginURL: where the payment provider sends the user back to.
//   - LogFormat: text, json or console. Debug enables debug logging.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	PollAttempts   int
	RateLimit      float64
	RateBurst      int
	DataDir        string
	DatabaseFile   string
	OriginURL      string
	LogFormat      string
	Debug          bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8001/api"
	c.RequestTimeout = 15 * time.Second
	c.PollInterval = 2 * time.Second
	c.PollAttempts = 10
	c.RateLimit = 10
	c.RateBurst = 20
	c.DataDir = "data"
	c.DatabaseFile = "joboost.db"
	c.OriginURL = "http://localhost:3000"
	c.LogFormat = "text"
	c.Debug = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
