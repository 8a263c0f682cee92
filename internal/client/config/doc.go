// Package config loads runtime configuration for the joboost CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file if present, then JOBOOST_* variables
//     (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string    Gateway API base URL
//	-t duration  request timeout
//	-p duration  payment poll interval
//	-n int       payment poll attempts
//	-d string    data directory
//	-l string    log format
//	-v           debug logging
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "2s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8001/api",
//	  "request_timeout": "15s",
//	  "poll_interval": "2s",
//	  "poll_attempts": 10,
//	  "rate_limit": 10,
//	  "data_dir": "data",
//	  "log_format": "console"
//	}
//
// Primary API
//
//   - type Config                     - holds the settings listed above
//   - func LoadConfig() *Config       - builds Config by applying every source in order
//   - func (*Config) LoadDefaults()   - sets sensible defaults
package config
