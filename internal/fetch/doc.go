// Package fetch implements the HTTP transport used by the crawler.
//
// A Client issues plain GET requests and reports, for each one, the received
// body size, the media type and charset from the Content-Type header and the
// HTTP status. Transport failures, timeouts, and non-2xx responses are never
// returned as Go errors; they are recorded in Response.Err so that a crawl over
// hundreds of resources can keep going when one of them fails.
//
// # Usage
//
//	client, err := fetch.New(
//	    fetch.WithTimeout(30*time.Second),
//	    fetch.WithUserAgent("Mozilla/5.0 ..."),
//	)
//	resp := client.Get(ctx, "https://example.com/", false)
//	if resp.Err != nil {
//	    // counted, but nothing to parse
//	}
//
// Requests can optionally be routed through a SOCKS5 proxy (WithProxy), which
// uses golang.org/x/net/proxy.
package fetch
