// Package config provides configuration management for gopherlist.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration settings for the archive.
type Config struct {
	// Server
	Host    string
	Port    int
	SiteURL string
	DevMode bool

	// Storage
	Repository  string // git repository holding raw messages
	DatabaseURI string
	ListsFile   string // optional YAML list registry seeded at startup

	// Site
	SiteName        string
	SiteDescription string
	SiteLang        string
	RobotsTxt       string

	// Auth
	AuthMethod          string
	SecretKey           string
	ReadAccess          string
	ModerateAccess      string
	ImportAccess        string
	AutoApproval        bool
	DisableRegistration bool

	// Presentation
	PreviewLines int // lines of a patch mail shown before the fold
	PageSize     int
	FeedLimit    int

	// Import
	ImportMaxBytes int64

	// Logging
	LogLevel  string
	LogFormat string
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Host:    "",
		Port:    8080,
		SiteURL: "http://localhost:8080",
		DevMode: false,

		Repository:  "",
		DatabaseURI: "sqlite:///:memory:",
		ListsFile:   "",

		SiteName:        "gopherlist",
		SiteDescription: "",
		SiteLang:        "en",
		RobotsTxt:       "allow",

		AuthMethod:          "",
		SecretKey:           "CHANGE ME",
		ReadAccess:          "ANONYMOUS",
		ModerateAccess:      "ADMIN",
		ImportAccess:        "ADMIN",
		AutoApproval:        true,
		DisableRegistration: false,

		PreviewLines: 3,
		PageSize:     50,
		FeedLimit:    30,

		ImportMaxBytes: 64 << 20,

		LogLevel:  "INFO",
		LogFormat: "text",
	}
}

// LoadFromEnv loads configuration from GOPHERLIST_* environment variables.
func (c *Config) LoadFromEnv() {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	getEnvBool := func(key string, fallback bool) bool {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		v = strings.ToLower(v)
		return v == "true" || v == "yes" || v == "on" || v == "1"
	}

	getEnvInt := func(key string, fallback int) int {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}
		return i
	}

	getEnvInt64 := func(key string, fallback int64) int64 {
		v := os.Getenv(key)
		if v == "" {
			return fallback
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fallback
		}
		return i
	}

	// Server
	c.Host = getEnv("GOPHERLIST_HOST", c.Host)
	c.Port = getEnvInt("GOPHERLIST_PORT", c.Port)
	c.SiteURL = getEnv("GOPHERLIST_SITE_URL", c.SiteURL)
	c.DevMode = getEnvBool("GOPHERLIST_DEV_MODE", c.DevMode)

	// Storage
	c.Repository = getEnv("GOPHERLIST_REPOSITORY", c.Repository)
	c.DatabaseURI = getEnv("GOPHERLIST_DATABASE_URI", c.DatabaseURI)
	c.ListsFile = getEnv("GOPHERLIST_LISTS_FILE", c.ListsFile)

	// Site
	c.SiteName = getEnv("GOPHERLIST_SITE_NAME", c.SiteName)
	c.SiteDescription = getEnv("GOPHERLIST_SITE_DESCRIPTION", c.SiteDescription)
	c.SiteLang = getEnv("GOPHERLIST_SITE_LANG", c.SiteLang)
	c.RobotsTxt = getEnv("GOPHERLIST_ROBOTS_TXT", c.RobotsTxt)

	// Auth
	c.AuthMethod = getEnv("GOPHERLIST_AUTH_METHOD", c.AuthMethod)
	c.SecretKey = getEnv("GOPHERLIST_SECRET_KEY", c.SecretKey)
	c.ReadAccess = getEnv("GOPHERLIST_READ_ACCESS", c.ReadAccess)
	c.ModerateAccess = getEnv("GOPHERLIST_MODERATE_ACCESS", c.ModerateAccess)
	c.ImportAccess = getEnv("GOPHERLIST_IMPORT_ACCESS", c.ImportAccess)
	c.AutoApproval = getEnvBool("GOPHERLIST_AUTO_APPROVAL", c.AutoApproval)
	c.DisableRegistration = getEnvBool("GOPHERLIST_DISABLE_REGISTRATION", c.DisableRegistration)

	// Presentation
	c.PreviewLines = getEnvInt("GOPHERLIST_PREVIEW_LINES", c.PreviewLines)
	c.PageSize = getEnvInt("GOPHERLIST_PAGE_SIZE", c.PageSize)
	c.FeedLimit = getEnvInt("GOPHERLIST_FEED_LIMIT", c.FeedLimit)

	// Import
	c.ImportMaxBytes = getEnvInt64("GOPHERLIST_IMPORT_MAX_BYTES", c.ImportMaxBytes)

	// Logging
	c.LogLevel = getEnv("GOPHERLIST_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("GOPHERLIST_LOG_FORMAT", c.LogFormat)
}

// Validate checks that required configuration is set. DevMode relaxes the
// secret key requirement so a checkout runs without setup.
func (c *Config) Validate() error {
	if !c.DevMode && (len(c.SecretKey) < 16 || c.SecretKey == "CHANGE ME") {
		return fmt.Errorf("please configure a random GOPHERLIST_SECRET_KEY with a length of at least 16 characters")
	}
	if c.Repository == "" {
		return fmt.Errorf("please configure a GOPHERLIST_REPOSITORY path")
	}
	if _, err := os.Stat(c.Repository); os.IsNotExist(err) {
		return fmt.Errorf("repository path '%s' not found", c.Repository)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PreviewLines < 1 {
		return fmt.Errorf("preview lines must be at least 1, got %d", c.PreviewLines)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", c.PageSize)
	}
	return nil
}

// Load creates a new Config with defaults and loads from environment.
func Load() *Config {
	cfg := Default()
	cfg.LoadFromEnv()
	return cfg
}
