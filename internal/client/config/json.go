package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/joboost/internal/flagx"
	"github.com/dmitrijs2005/joboost/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "2s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL     string         `json:"api_base_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	PollInterval   timex.Duration `json:"poll_interval"`
	PollAttempts   int            `json:"poll_attempts"`
	RateLimit      *float64       `json:"rate_limit"`
	RateBurst      int            `json:"rate_burst"`
	DataDir        string         `json:"data_dir"`
	DatabaseFile   string         `json:"database_file"`
	OriginURL      string         `json:"origin_url"`
	LogFormat      string         `json:"log_format"`
	Debug          *bool          `json:"debug"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flag; without it nothing is
// loaded. Only fields present (non-zero) in the file are copied, so a file
// may set a subset of the options. Panics on read or unmarshal errors.
//
// Intended usage is: defaults -> env -> parseJson -> parseFlags, where later
// stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PollInterval.Duration != 0 {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.PollAttempts != 0 {
		cfg.PollAttempts = jc.PollAttempts
	}
	if jc.RateLimit != nil {
		cfg.RateLimit = *jc.RateLimit
	}
	if jc.RateBurst != 0 {
		cfg.RateBurst = jc.RateBurst
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.DatabaseFile != "" {
		cfg.DatabaseFile = jc.DatabaseFile
	}
	if jc.OriginURL != "" {
		cfg.OriginURL = jc.OriginURL
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
}
