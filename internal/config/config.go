// Package config loads and validates the LINASTORE_* environment surface
// once at process start.
package config

import (
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

const (
	defaultIP             = "127.0.0.1"
	defaultHTTPPort       = 8086
	defaultAdvancedPort   = 8096
	defaultMaxPayloadSize = 64 * 1024 * 1024
)

// Config is the fully-resolved process configuration.
type Config struct {
	IP              string
	HTTPPort        int
	AdvancedPort    int
	MaxPayloadSize  int64
	PasswordEnabled bool
	Password        string
}

// Load reads the LINASTORE_* environment variables, substituting and
// logging a warning for each one left unset or invalid, mirroring the
// per-variable warn-and-default behavior of the original Rust service.
func Load(log zerolog.Logger) Config {
	cfg := Config{
		IP:             stringVar(log, "LINASTORE_IP", defaultIP),
		HTTPPort:       intVar(log, "LINASTORE_HTTP_PORT", defaultHTTPPort),
		AdvancedPort:   intVar(log, "LINASTORE_ADVANCED_PORT", defaultAdvancedPort),
		MaxPayloadSize: int64Var(log, "LINASTORE_MAX_PAYLOAD_SIZE", defaultMaxPayloadSize),
	}

	if pw, ok := os.LookupEnv("LINASTORE_PASSWORD"); ok && pw != "" {
		cfg.PasswordEnabled = true
		cfg.Password = pw
	}

	if net.ParseIP(cfg.IP) == nil {
		log.Warn().Str("value", cfg.IP).Msg("LINASTORE_IP is not a valid IP, using default")
		cfg.IP = defaultIP
	}

	return cfg
}

func stringVar(log zerolog.Logger, name, def string) string {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		log.Warn().Str("var", name).Str("default", def).Msg("environment variable not set, using default")
		return def
	}
	return v
}

func intVar(log zerolog.Logger, name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		log.Warn().Str("var", name).Int("default", def).Msg("environment variable not set, using default")
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Int("default", def).Msg("environment variable invalid, using default")
		return def
	}
	return n
}

func int64Var(log zerolog.Logger, name string, def int64) int64 {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		log.Warn().Str("var", name).Int64("default", def).Msg("environment variable not set, using default")
		return def
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("var", name).Str("value", v).Int64("default", def).Msg("environment variable invalid, using default")
		return def
	}
	return n
}
