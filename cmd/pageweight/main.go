// Package main provides the entry point for the pageweight CLI.
//
// pageweight downloads a web page together with every resource it references
// (images, scripts, stylesheets, embedded media and one level of iframes) and
// reports the size of each download and the total number of HTTP requests.
//
// Usage:
//
//	pageweight <url>
//	pageweight --json https://example.com/
//	pageweight history https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for pageweight.
func main() {
	Execute()
}
