// Package config loads the suite configuration from environment variables.
//
// Only BLOG_E2E_BASE_URL is needed to run the browser scenarios against a
// running blog application; everything else has a default. Without a base URL
// the scenarios skip instead of failing.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBrowser       = "chromium"
	defaultActionTimeout = 5 * time.Second
	defaultAssertTimeout = 5 * time.Second
	defaultSetupRPS      = 20.0
	defaultSetupBurst    = 5
	defaultAWSRegion     = "us-east-1"
)

// Browsers lists the Playwright browser engines the suite can launch.
var Browsers = []string{"chromium", "firefox", "webkit"}

// Config holds all suite configuration.
type Config struct {
	// Application under test
	BaseURL string // root the browser navigates to
	APIURL  string // backend root for fixture calls; defaults to BaseURL

	// Browser
	Browser       string
	Headless      bool
	ActionTimeout time.Duration // per driver action
	AssertTimeout time.Duration // per oracle poll loop

	// Fixture calls
	SetupRPS     float64
	SetupBurst   int
	FixturesFile string // optional YAML override of the default fixture data

	// Failure artifacts
	ArtifactDir        string // local directory for screenshots
	ArtifactBucket     string // S3 bucket for screenshots (wins over ArtifactDir)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY

	// Run report
	ReportDir string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("BLOG_E2E_BASE_URL", ""), "/")
	cfg.APIURL = strings.TrimRight(getEnvOrDefault("BLOG_E2E_API_URL", cfg.BaseURL), "/")

	cfg.Browser = strings.ToLower(getEnvOrDefault("BLOG_E2E_BROWSER", defaultBrowser))
	// HEADLESS=false shows the browser for debugging.
	cfg.Headless = getEnvOrDefault("HEADLESS", "true") != "false"
	cfg.ActionTimeout = parseDurationOrDefault("BLOG_E2E_ACTION_TIMEOUT", defaultActionTimeout)
	cfg.AssertTimeout = parseDurationOrDefault("BLOG_E2E_ASSERT_TIMEOUT", defaultAssertTimeout)

	cfg.SetupRPS = parseFloat64OrDefault("BLOG_E2E_SETUP_RPS", defaultSetupRPS)
	cfg.SetupBurst = parseIntOrDefault("BLOG_E2E_SETUP_BURST", defaultSetupBurst)
	cfg.FixturesFile = getEnvOrDefault("BLOG_E2E_FIXTURES", "")

	cfg.ArtifactDir = getEnvOrDefault("BLOG_E2E_ARTIFACT_DIR", "")
	cfg.ArtifactBucket = getEnvOrDefault("BLOG_E2E_ARTIFACT_BUCKET", "")
	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultAWSRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")

	cfg.ReportDir = getEnvOrDefault("BLOG_E2E_REPORT_DIR", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. An empty BaseURL is valid:
// it disables the browser scenarios.
func (c *Config) Validate() error {
	var errs []string

	if c.BaseURL != "" {
		if err := validateHTTPURL(c.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("BLOG_E2E_BASE_URL %v", err))
		}
	}
	if c.APIURL != "" {
		if err := validateHTTPURL(c.APIURL); err != nil {
			errs = append(errs, fmt.Sprintf("BLOG_E2E_API_URL %v", err))
		}
	}
	if c.APIURL != "" && c.BaseURL == "" {
		errs = append(errs, "BLOG_E2E_API_URL requires BLOG_E2E_BASE_URL")
	}

	if !isKnownBrowser(c.Browser) {
		errs = append(errs, fmt.Sprintf("BLOG_E2E_BROWSER must be one of %s (got %q)", strings.Join(Browsers, ", "), c.Browser))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, "BLOG_E2E_ACTION_TIMEOUT must be positive")
	}
	if c.AssertTimeout <= 0 {
		errs = append(errs, "BLOG_E2E_ASSERT_TIMEOUT must be positive")
	}
	if c.SetupRPS <= 0 {
		errs = append(errs, "BLOG_E2E_SETUP_RPS must be positive")
	}
	if c.SetupBurst <= 0 {
		errs = append(errs, "BLOG_E2E_SETUP_BURST must be positive")
	}

	if c.ArtifactBucket != "" {
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when BLOG_E2E_ARTIFACT_BUCKET is set")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when BLOG_E2E_ARTIFACT_BUCKET is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// BrowserEnabled reports whether the browser scenarios can run.
func (c *Config) BrowserEnabled() bool {
	return c.BaseURL != ""
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https (got %q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host (got %q)", raw)
	}
	return nil
}

func isKnownBrowser(name string) bool {
	for _, b := range Browsers {
		if b == name {
			return true
		}
	}
	return false
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
