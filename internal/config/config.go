// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses hasherpoold's command-line flags and INI
// configuration file, in the same jessevdk/go-flags idiom the rest of
// the Eacred ecosystem uses for its daemons.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename  = "hasherpoold.conf"
	defaultDataDirname     = "data"
	defaultLogDirname      = "logs"
	defaultLogFilename     = "hasherpoold.log"
	defaultListenAddr      = ":9876"
	defaultLogLevel        = "info"
	defaultLeaseTimeout    = 600.0
	defaultJobSizeFloor    = 1_000_000
	defaultJobTargetSecs   = 30
	defaultMinZeroBits     = 8
	defaultRateLimitPerSec = 20.0
	defaultRateLimitBurst  = 40
	defaultShutdownTimeout = 15
)

// Config holds hasherpoold's runtime configuration, resolved from
// defaults, an INI file, and command-line overrides (applied in that
// order, last one wins).
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	AppDataDir string  `short:"A" long:"appdata" description:"Application data directory"`
	DataDir    string  `long:"datadir" description:"Directory holding the submitters/, best/, and hashes/ trees"`
	LogDir     string  `long:"logdir" description:"Directory to log output to"`
	LogLevel   string  `long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	ListenAddr string  `short:"l" long:"listen" description:"Address to listen for HTTP connections on"`

	LeaseTimeoutSeconds  float64 `long:"leasetimeout" description:"Seconds before a pending job lease is reclaimed"`
	JobSizeFloor         uint64  `long:"jobsizefloor" description:"Minimum nonce range size quoted to a machine"`
	JobSizeTargetSeconds float64 `long:"jobsizetarget" description:"Target seconds of thread-level work per quoted range"`
	MinimumZeroBits      uint8   `long:"minzerobits" description:"Minimum leading zero bits required to accept a solution"`

	RateLimitPerSecond float64 `long:"ratelimit" description:"Sustained requests/sec allowed per submitter"`
	RateLimitBurst     int     `long:"rateburst" description:"Burst requests allowed per submitter"`

	MetricsEnabled  bool `long:"metrics" description:"Expose a Prometheus /metrics endpoint"`
	ShutdownTimeout int  `long:"shutdowntimeout" description:"Seconds to wait for in-flight requests during shutdown"`
}

// defaultConfig returns a Config populated with hasherpoold's defaults.
func defaultConfig() *Config {
	appDataDir := defaultAppDataDir()
	return &Config{
		ConfigFile:           filepath.Join(appDataDir, defaultConfigFilename),
		AppDataDir:           appDataDir,
		DataDir:              filepath.Join(appDataDir, defaultDataDirname),
		LogDir:               filepath.Join(appDataDir, defaultLogDirname),
		LogLevel:             defaultLogLevel,
		ListenAddr:           defaultListenAddr,
		LeaseTimeoutSeconds:  defaultLeaseTimeout,
		JobSizeFloor:         defaultJobSizeFloor,
		JobSizeTargetSeconds: defaultJobTargetSecs,
		MinimumZeroBits:      defaultMinZeroBits,
		RateLimitPerSecond:   defaultRateLimitPerSec,
		RateLimitBurst:       defaultRateLimitBurst,
		MetricsEnabled:       true,
		ShutdownTimeout:      defaultShutdownTimeout,
	}
}

// defaultAppDataDir returns "./hasherpoold" relative to the process's
// working directory, matching the original implementation's use of
// the current working directory as its root (original_source/src/file_operations.rs's
// get_cwd).
func defaultAppDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return filepath.Join(cwd, "hasherpoold")
}

// Load resolves hasherpoold's configuration from defaults, an optional
// INI file, and command-line arguments, in that precedence order.
func Load(args []string) (*Config, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(preCfg, flags.Default&^flags.PrintErrors)
	if _, err := preParser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); !ok || flagsErr.Type != flags.ErrHelp {
			return nil, err
		}
		os.Exit(0)
	}

	cfg := defaultConfig()
	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		iniParser := flags.NewIniParser(flags.NewParser(cfg, flags.Default))
		if err := iniParser.ParseFile(preCfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", preCfg.ConfigFile, err)
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that cfg's values are usable, in the teacher's habit
// of failing fast on bad configuration rather than limping along.
func (cfg *Config) validate() error {
	if cfg.LeaseTimeoutSeconds <= 0 {
		return fmt.Errorf("leasetimeout must be positive, got %v", cfg.LeaseTimeoutSeconds)
	}
	if cfg.JobSizeFloor == 0 {
		return fmt.Errorf("jobsizefloor must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("ratelimit and rateburst must be positive")
	}
	return nil
}
