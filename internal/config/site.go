package config

import (
	"fmt"
	"net/url"
	"strings"
)

// SiteConfig holds request settings for one host.
type SiteConfig struct {
	// Cookie is sent with every request. Format: "name=value; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the default User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .pageweight configuration file.
type File struct {
	// Sites maps a host ("example.com" or "example.com:8080") to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[strings.ToLower(host)]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range siteConfig.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return result
}

// SiteConfigForURL looks up the settings for the host of rawURL. An entry
// with the port ("example.com:8080") is preferred over one without.
func (cf *File) SiteConfigForURL(rawURL string) SiteConfig {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return cf.Defaults
	}
	if _, ok := cf.Sites[strings.ToLower(u.Host)]; ok {
		return cf.GetSiteConfig(u.Host)
	}
	return cf.GetSiteConfig(u.Hostname())
}

// ParseHeader splits "Name: value" into its parts.
func ParseHeader(raw string) (name, value string, err error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, raw)
	}
	return name, strings.TrimSpace(value), nil
}
