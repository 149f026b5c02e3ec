package crawler

import "errors"

var (
	// ErrInvalidURL is returned for malformed URLs and URLs whose scheme is
	// not http or https.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrNoContentSet is returned when the extractor is called without content.
	ErrNoContentSet = errors.New("no content set")

	// ErrFetchFailure is returned when the requested page itself could not be
	// fetched. Failures on referenced resources are recorded in the report instead.
	ErrFetchFailure = errors.New("fetch failed")
)
