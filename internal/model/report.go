package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Expandable content types. Documents of these types may reference further
// external resources; anything else is treated as a leaf.
const (
	// MimeTypeHTML is the content type of HTML documents.
	MimeTypeHTML = "text/html"

	// MimeTypeCSS is the content type of stylesheets.
	MimeTypeCSS = "text/css"

	// MimeTypeUnknown is used when a server sends no usable Content-Type
	// header and for resources whose fetch failed.
	MimeTypeUnknown = "text/plain"
)

// IsExpandable reports whether a document with the given lowercase mime type
// may reference further external resources.
func IsExpandable(mimeType string) bool {
	return mimeType == MimeTypeHTML || mimeType == MimeTypeCSS
}

// ReportNode represents one fetched resource.
//
// Children is non-empty only for expandable documents (see IsExpandable).
// Frame documents fetched below the first level keep an empty Children slice
// even when their content is HTML.
type ReportNode struct {
	// URL is the absolute URL that was fetched.
	URL string `json:"url"`

	// MimeType is the lowercase media type without parameters, e.g. "text/html".
	// It is MimeTypeUnknown when undetermined or when the fetch failed.
	MimeType string `json:"mime_type"`

	// DownloadSize is the number of body bytes received for this single fetch.
	DownloadSize int64 `json:"download_size"`

	// StatusCode is the HTTP status of the response, or 0 if none was received.
	StatusCode int `json:"status_code,omitempty"`

	// Error describes why the fetch failed. Empty on success.
	Error string `json:"error,omitempty"`

	// Children holds referenced resources in document order, normal
	// references first and frame documents after them.
	Children []*ReportNode `json:"children"`
}

// NewReportNode creates a leaf node with an empty, non-nil Children slice.
func NewReportNode(url, mimeType string, size int64) *ReportNode {
	return &ReportNode{
		URL:          url,
		MimeType:     mimeType,
		DownloadSize: size,
		Children:     make([]*ReportNode, 0),
	}
}

// AddChild appends a child node.
func (n *ReportNode) AddChild(child *ReportNode) {
	n.Children = append(n.Children, child)
}

// Failed reports whether the fetch for this node failed.
func (n *ReportNode) Failed() bool {
	return n.Error != ""
}

// TotalBytes returns the download size of this node and all its descendants.
func (n *ReportNode) TotalBytes() int64 {
	total := n.DownloadSize
	for _, c := range n.Children {
		total += c.TotalBytes()
	}
	return total
}

// Walk visits the node and its descendants depth-first, pre-order.
// depth is 0 for the node Walk is called on.
func (n *ReportNode) Walk(fn func(node *ReportNode, depth int)) {
	n.walk(fn, 0)
}

func (n *ReportNode) walk(fn func(node *ReportNode, depth int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// CrawlResult is the outcome of measuring a single page.
type CrawlResult struct {
	// URL is the URL the crawl was started with.
	URL string `json:"url"`

	// Root is the node for the requested URL.
	Root *ReportNode `json:"root"`

	// RequestCount is the number of fetches performed across the whole tree,
	// failed ones included.
	RequestCount int `json:"request_count"`

	// ContentHash is the hex SHA3-256 digest of the root document body.
	// Empty when the body was empty.
	ContentHash string `json:"content_hash,omitempty"`

	// StartedAt is when the root fetch was issued.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time spent on the crawl.
	Duration time.Duration `json:"duration"`
}

// NewCrawlResult creates an empty result for the given URL.
func NewCrawlResult(url string) *CrawlResult {
	return &CrawlResult{
		URL:       url,
		StartedAt: time.Now(),
	}
}

// TotalBytes returns the sum of download sizes over every node.
func (r *CrawlResult) TotalBytes() int64 {
	if r.Root == nil {
		return 0
	}
	return r.Root.TotalBytes()
}

// NodeCount returns the number of nodes in the tree.
func (r *CrawlResult) NodeCount() int {
	if r.Root == nil {
		return 0
	}
	count := 0
	r.Root.Walk(func(*ReportNode, int) { count++ })
	return count
}

// FailedCount returns the number of nodes whose fetch failed.
func (r *CrawlResult) FailedCount() int {
	if r.Root == nil {
		return 0
	}
	count := 0
	r.Root.Walk(func(n *ReportNode, _ int) {
		if n.Failed() {
			count++
		}
	})
	return count
}

// BytesByMimeType sums download sizes per mime type over every node.
func (r *CrawlResult) BytesByMimeType() map[string]int64 {
	totals := make(map[string]int64)
	if r.Root == nil {
		return totals
	}
	r.Root.Walk(func(n *ReportNode, _ int) {
		totals[n.MimeType] += n.DownloadSize
	})
	return totals
}

// SetContentHash records the SHA3-256 digest of the root document body.
func (r *CrawlResult) SetContentHash(content []byte) {
	if len(content) == 0 {
		r.ContentHash = ""
		return
	}
	sum := sha3.Sum256(content)
	r.ContentHash = hex.EncodeToString(sum[:])
}
