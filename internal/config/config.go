package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pageweight"

	// DefaultTimeout is the per-request timeout, including the body download.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop browser User-Agent. Some servers send
	// different (usually smaller) pages to unknown clients, which would skew
	// the measurement.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/41.0.2228.0 Safari/537.36"

	// DefaultMaxBodySize is how much of an HTML or CSS document is kept in
	// memory for reference extraction. Larger documents are still counted
	// in full.
	DefaultMaxBodySize = 50 * 1024 * 1024 // 50MB
)

// Config holds every option of a measurement. It is built once from CLI
// flags and the optional configuration file, then passed explicitly.
type Config struct {
	// URL is the page to measure. It must be an absolute http or https URL.
	URL string

	// Timeout is the timeout of each individual request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits how much of a document is kept for extraction.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// Cookie is a raw cookie header value sent with every request.
	Cookie string

	// Headers are extra request headers sent with every request.
	Headers map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output on stderr to JSON.
	LogJSON bool

	// Progress shows a live request counter on stderr while crawling.
	Progress bool

	// NoColor disables coloured text output.
	NoColor bool

	// ConfigFilePath is an explicit configuration file. When empty,
	// .pageweight is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file.
	SiteConfigs *File

	// JSONReport writes the report as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the report as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is written instead of stdout when set.
	ReportFile string

	// Tee also prints the text report on stdout when ReportFile is set.
	Tee bool

	// NoSummary limits the text report to the tree and the request count.
	NoSummary bool

	// DBDir is the directory holding the history database.
	DBDir string

	// SaveToDB stores the measurement in the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Headers:     make(map[string]string),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/pageweight on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/pageweight on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingArgument
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrMissingDBDir
	}
	return nil
}

// ApplySiteConfig fills request settings from site. Values already set on
// c take precedence; headers are merged with c's headers winning.
func (c *Config) ApplySiteConfig(site SiteConfig) {
	if c.Cookie == "" {
		c.Cookie = site.Cookie
	}
	if site.UserAgent != "" && c.UserAgent == DefaultUserAgent {
		c.UserAgent = site.UserAgent
	}

	if len(site.Headers) == 0 {
		return
	}
	merged := make(map[string]string, len(site.Headers)+len(c.Headers))
	for k, v := range site.Headers {
		merged[k] = v
	}
	for k, v := range c.Headers {
		merged[k] = v
	}
	c.Headers = merged
}
