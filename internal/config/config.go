package config

import (
	"errors"
	"fmt"
	"os"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const developmentAPIURL = "http://localhost:8080/api"

type Config struct {
	apiURL         string
	apiKey         string
	sentryDSN      string
	databaseURL    string
	listenAddr     string
	archiveEnabled bool
	env            environment
}

func (c *Config) APIURL() string {
	return c.apiURL
}

func (c *Config) APIKey() string {
	return c.apiKey
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) DatabaseURL() string {
	return c.databaseURL
}

func (c *Config) ListenAddr() string {
	return c.listenAddr
}

func (c *Config) ArchiveEnabled() bool {
	return c.archiveEnabled
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf("Config{env: %s, apiURL: %s, listenAddr: %s, archiveEnabled: %t, ...}", string(c.env), c.apiURL, c.listenAddr, c.archiveEnabled)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("EASEL_ENVIRONMENT")
	if !ok {
		return missingKey("EASEL_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: EASEL_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	apiURL := os.Getenv("EASEL_API_URL")
	apiKey := os.Getenv("EASEL_API_KEY")
	sentryDSN := os.Getenv("SENTRY_DSN")
	databaseURL := os.Getenv("EASEL_DATABASE_URL")
	listenAddr := os.Getenv("EASEL_LISTEN_ADDR")

	var archiveEnabled bool
	switch rawArchive := os.Getenv("EASEL_ARCHIVE_ENABLED"); rawArchive {
	case "", "false":
		archiveEnabled = false
	case "true":
		archiveEnabled = true
	default:
		return Config{}, fmt.Errorf("%w: EASEL_ARCHIVE_ENABLED (%s)", ErrInvalidValue, rawArchive)
	}

	if env == production || env == staging {
		if apiURL == "" {
			return missingKey("EASEL_API_URL")
		}
		if apiKey == "" {
			return missingKey("EASEL_API_KEY")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if archiveEnabled && databaseURL == "" {
			return missingKey("EASEL_DATABASE_URL")
		}
	}

	if apiURL == "" && env == development {
		apiURL = developmentAPIURL
	}
	if listenAddr == "" {
		listenAddr = ":4680"
	}

	return Config{
		apiURL:         apiURL,
		apiKey:         apiKey,
		sentryDSN:      sentryDSN,
		databaseURL:    databaseURL,
		listenAddr:     listenAddr,
		archiveEnabled: archiveEnabled,
		env:            env,
	}, nil
}
