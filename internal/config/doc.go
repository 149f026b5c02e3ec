// Package config provides the configuration of a page measurement: request
// settings (timeout, user agent, proxy, cookies, headers), output settings and
// the location of the history database.
//
// Settings come from CLI flags and an optional YAML file named .pageweight,
// which holds defaults and per-host overrides.
package config
