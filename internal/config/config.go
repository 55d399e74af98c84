package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig is returned by Validate when a required setting is missing or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	// Content store
	ContentBackend string
	DatasetFile    string
	VisualEditing  bool

	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityToken      string
	SanityUseCDN     bool
	SanityStudioURL  string

	// Feed store
	DBDriver string
	DBDSN    string

	// Server settings
	ServerHost     string
	ServerPort     int
	SiteURL        string
	NewsRevalidate time.Duration
	FetchTimeout   time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		ContentBackend:   DefaultContentBackend,
		DatasetFile:      DefaultDatasetFile,
		SanityAPIVersion: DefaultSanityAPIVersion,
		SanityStudioURL:  DefaultSanityStudioURL,
		SanityUseCDN:     true,
		DBDriver:         DefaultDBDriver,
		DBDSN:            DefaultDBDSN,
		ServerHost:       DefaultServerHost,
		ServerPort:       DefaultServerPort,
		SiteURL:          DefaultSiteURL,
		NewsRevalidate:   DefaultNewsRevalidate,
		FetchTimeout:     DefaultFetchTimeout,
		LogLevel:         logLevel,
	}
}

// FromEnv returns the defaults overridden by whatever is set in the environment.
func FromEnv() *Config {
	cfg := DefaultConfig()

	cfg.ContentBackend = GetEnvString(EnvContentBackend, cfg.ContentBackend)
	cfg.DatasetFile = GetEnvString(EnvDatasetFile, cfg.DatasetFile)
	cfg.VisualEditing = GetEnvBool(EnvVisualEditing, cfg.VisualEditing)

	cfg.SanityProjectID = GetEnvString(EnvSanityProjectID, cfg.SanityProjectID)
	cfg.SanityDataset = GetEnvString(EnvSanityDataset, cfg.SanityDataset)
	cfg.SanityAPIVersion = GetEnvString(EnvSanityAPIVersion, cfg.SanityAPIVersion)
	cfg.SanityToken = GetEnvString(EnvSanityToken, cfg.SanityToken)
	cfg.SanityUseCDN = GetEnvBool(EnvSanityUseCDN, cfg.SanityUseCDN)
	cfg.SanityStudioURL = GetEnvString(EnvSanityStudioURL, cfg.SanityStudioURL)

	cfg.DBDriver = GetEnvString(EnvDBDriver, cfg.DBDriver)
	cfg.DBDSN = GetEnvString(EnvDBDSN, cfg.DBDSN)

	cfg.ServerHost = GetEnvString(EnvHost, cfg.ServerHost)
	cfg.ServerPort = GetEnvInt(EnvPort, cfg.ServerPort)
	cfg.SiteURL = GetEnvString(EnvSiteURL, cfg.SiteURL)
	cfg.NewsRevalidate = GetEnvDuration(EnvNewsRevalidate, cfg.NewsRevalidate)
	cfg.FetchTimeout = GetEnvDuration(EnvFetchTimeout, cfg.FetchTimeout)

	cfg.LogLevel = GetEnvLogLevel(EnvLogLevel, cfg.LogLevel)
	return cfg
}

// Validate reports every missing required setting at once so that a
// misconfigured deployment fails at startup rather than on the first request.
func (c *Config) Validate() error {
	var problems []string

	switch c.ContentBackend {
	case BackendSanity:
		if c.SanityProjectID == "" {
			problems = append(problems, EnvSanityProjectID+" is required")
		}
		if c.SanityDataset == "" {
			problems = append(problems, EnvSanityDataset+" is required")
		}
		if c.SanityAPIVersion == "" {
			problems = append(problems, EnvSanityAPIVersion+" is required")
		}
		if c.VisualEditing && c.SanityToken == "" {
			problems = append(problems, EnvSanityToken+" is required when visual editing is enabled")
		}
	case BackendLocal:
		if c.DatasetFile == "" {
			problems = append(problems, EnvDatasetFile+" is required for the local backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("%s must be %q or %q, got %q",
			EnvContentBackend, BackendSanity, BackendLocal, c.ContentBackend))
	}

	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("%s must be sqlite3 or postgres, got %q", EnvDBDriver, c.DBDriver))
	}
	if c.DBDSN == "" {
		problems = append(problems, EnvDBDSN+" is required")
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		problems = append(problems, fmt.Sprintf("%s out of range: %d", EnvPort, c.ServerPort))
	}
	if c.NewsRevalidate <= 0 {
		problems = append(problems, EnvNewsRevalidate+" must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// ImageProject returns the project and dataset the image CDN serves assets from.
func (c *Config) ImageProject() (string, string) {
	return c.SanityProjectID, c.SanityDataset
}
