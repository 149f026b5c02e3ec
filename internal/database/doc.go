// Package database stores measurement history in SQLite.
//
// Each call to CrawlDB.SaveResult adds one row to the measurements table
// holding the summary columns (request count, total bytes, failed requests,
// root content hash) and the full result tree as JSON. The history command
// reads the summaries back with GetHistory and compares content hashes of
// consecutive rows to tell whether the page changed.
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
