package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended (with an underscore) to every environment variable
// the server reads, e.g. HIYORI_SST.
const EnvPrefix = "HIYORI"

type (
	Config struct {
		HTTP
		Database
		Auth
		Sweep
		Global
	}

	HTTP struct {
		BindURL string // host:port to listen on
	}
	Database struct {
		URL string // mysql DSN or sqlite file path
	}
	Auth struct {
		SharedSecret string // exact-match Authorization header value
	}
	Sweep struct {
		Enabled  bool
		Schedule string // cron format, e.g. "17 3 * * *"
	}
	Global struct {
		ShutdownTimeout time.Duration
	}
)

// Load reads the configuration from HIYORI_-prefixed environment variables.
// The three settings the server cannot run without (shared secret, database
// URL, bind address) are validated here so a misconfigured process fails at
// startup instead of on the first request.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("sweep_enabled", true)
	v.SetDefault("sweep_schedule", "17 3 * * *")
	v.SetDefault("shutdown_timeout", "5s")

	cfg := &Config{
		HTTP: HTTP{
			BindURL: v.GetString("BIND_URL"),
		},
		Database: Database{
			URL: v.GetString("DATABASE_URL"),
		},
		Auth: Auth{
			SharedSecret: v.GetString("SST"),
		},
		Sweep: Sweep{
			Enabled:  v.GetBool("SWEEP_ENABLED"),
			Schedule: v.GetString("SWEEP_SCHEDULE"),
		},
		Global: Global{
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}

	for name, value := range map[string]string{
		"SST":          cfg.Auth.SharedSecret,
		"DATABASE_URL": cfg.Database.URL,
		"BIND_URL":     cfg.HTTP.BindURL,
	} {
		if value == "" {
			return nil, fmt.Errorf("required environment variable %s_%s is not set", EnvPrefix, name)
		}
	}

	return cfg, nil
}
