package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/joboost/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    Gateway API base URL
//	-t duration  request timeout
//	-p duration  payment poll interval
//	-n int       payment poll attempts
//	-d string    data directory
//	-l string    log format (text, json, console)
//	-v           debug logging
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-p", "-n", "-d", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "Gateway API base URL")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.PollInterval, "p", cfg.PollInterval, "payment poll interval")
	fs.IntVar(&cfg.PollAttempts, "n", cfg.PollAttempts, "payment poll attempts")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogFormat, "l", cfg.LogFormat, "log format: text, json or console")
	fs.BoolVar(&cfg.Debug, "v", cfg.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
