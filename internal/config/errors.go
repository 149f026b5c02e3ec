package config

import "errors"

// Configuration errors returned by Config.Validate and the CLI.
var (
	// ErrMissingArgument is returned when the command line does not hold
	// exactly one URL.
	ErrMissingArgument = errors.New("missing argument: exactly one URL is required")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrMissingDBDir is returned when history is enabled without a directory.
	ErrMissingDBDir = errors.New("history is enabled but no database directory is set")

	// ErrInvalidHeader is returned for a --header value that is not "Name: value".
	ErrInvalidHeader = errors.New("invalid header: expected \"Name: value\"")
)
