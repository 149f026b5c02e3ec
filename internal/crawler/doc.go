// Package crawler measures the network footprint of a single web page.
//
// # Architecture
//
// The package is built around the Spider type, which fetches a page, decides
// whether its content type can reference further resources, extracts those
// references and fetches each of them once. Frame documents referenced by the
// requested page are crawled one more level; frames nested inside frames are
// never fetched.
//
// # Components
//
//   - Spider: Orchestrates the fetch tree and counts every request
//   - Extractor: Pulls frame and normal references out of HTML and CSS
//   - Resolve: Turns a possibly-relative reference into an absolute URL
//
// # Ordering
//
// Children of a node appear in extraction order, with all normal references
// (images, scripts, stylesheets, media) before any frame document.
//
// # Failures
//
// A failed fetch of a referenced resource becomes a zero-size "text/plain"
// leaf and the crawl continues. Only a failed fetch of the requested page is
// returned as an error (ErrFetchFailure).
//
// # Usage
//
//	client, _ := fetch.New()
//	spider := crawler.NewSpider(client, crawler.WithLogger(logger))
//	result, err := spider.Crawl(ctx, "https://example.com/")
package crawler
