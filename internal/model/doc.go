// Package model defines the data structures produced by a pageweight crawl.
//
// This package contains the following main types:
//   - ReportNode: One fetched resource and the resources it references
//   - CrawlResult: The root ReportNode plus the total number of HTTP requests
//
// The crawler, report, and database packages all share these types, so they
// live in their own package to avoid import cycles. Every type serializes to
// JSON for report output and history storage.
package model
