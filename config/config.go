// Package config reads dispatcher settings from an optional .env file and
// the process environment.
//
// Recognized variables:
//
//	RREST_ASSERT_RESPONSE  validate handler output (bool, default true)
//	RREST_ACCEPT_POLICY    lenient or strict (default lenient)
//	RREST_LOG_LEVEL        zerolog level name (default info)
//	RREST_MAX_BODY_SIZE    request body limit in bytes (default 10 MiB)
//
// The process environment takes precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/negotiate"
)

// Environment variable names.
const (
	EnvAssertResponse = "RREST_ASSERT_RESPONSE"
	EnvAcceptPolicy   = "RREST_ACCEPT_POLICY"
	EnvLogLevel       = "RREST_LOG_LEVEL"
	EnvMaxBodySize    = "RREST_MAX_BODY_SIZE"
)

// Config holds the dispatcher settings.
type Config struct {
	AssertResponse bool
	AcceptPolicy   negotiate.AcceptPolicy
	LogLevel       zerolog.Level
	MaxBodySize    int64
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		AssertResponse: true,
		AcceptPolicy:   negotiate.AcceptLenient,
		LogLevel:       zerolog.InfoLevel,
		MaxBodySize:    dispatch.DefaultMaxBodySize,
	}
}

// Load reads the .env files at paths, skipping missing ones, then the
// process environment.
func Load(paths ...string) (Config, error) {
	vars := make(map[string]string)
	for _, path := range paths {
		fileVars, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, name := range []string{EnvAssertResponse, EnvAcceptPolicy, EnvLogLevel, EnvMaxBodySize} {
		if v, ok := os.LookupEnv(name); ok {
			vars[name] = v
		}
	}
	return Parse(vars)
}

// Parse builds a Config from variables. Absent or empty variables keep
// their default.
func Parse(vars map[string]string) (Config, error) {
	cfg := Default()
	get := func(name string) (string, bool) {
		v := strings.TrimSpace(vars[name])
		return v, v != ""
	}

	if v, ok := get(EnvAssertResponse); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvAssertResponse, err)
		}
		cfg.AssertResponse = b
	}
	if v, ok := get(EnvAcceptPolicy); ok {
		p, err := negotiate.ParseAcceptPolicy(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvAcceptPolicy, err)
		}
		cfg.AcceptPolicy = p
	}
	if v, ok := get(EnvLogLevel); ok {
		level, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v, ok := get(EnvMaxBodySize); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: %s must be a positive byte count, got %q", EnvMaxBodySize, v)
		}
		cfg.MaxBodySize = n
	}
	return cfg, nil
}

// Options turns the settings into dispatcher options. logger is leveled
// with LogLevel.
func (c Config) Options(logger zerolog.Logger) []dispatch.Option {
	return []dispatch.Option{
		dispatch.WithAssertResponse(c.AssertResponse),
		dispatch.WithAcceptPolicy(c.AcceptPolicy),
		dispatch.WithMaxBodySize(c.MaxBodySize),
		dispatch.WithLogger(dispatch.NewZerologAdapter(logger.Level(c.LogLevel))),
	}
}
