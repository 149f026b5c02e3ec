package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/pageweight/internal/fetch"
	"github.com/nao1215/pageweight/internal/model"
)

// Fetcher performs single HTTP GET requests. Failures are reported through
// fetch.Response.Err, never by panicking or returning nil.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, metadataOnly bool) *fetch.Response
}

// ResourceExtractor finds references in a fetched document.
type ResourceExtractor interface {
	Extract(content []byte, charsetLabel, mimeType string) (*Resources, error)
}

// FetchObserver is called after every request with the resulting node and
// the number of requests made so far in the current crawl.
type FetchObserver func(node *model.ReportNode, requestCount int)

// Spider builds the resource tree of a single page.
//
// A Spider holds no per-crawl state, so one value can run any number of
// sequential or concurrent Crawl calls.
type Spider struct {
	fetcher   Fetcher
	extractor ResourceExtractor
	logger    *slog.Logger
	observer  FetchObserver
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger. Fetches are logged at Debug, failures at Warn.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExtractor replaces the default HTML/CSS extractor.
func WithExtractor(e ResourceExtractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithObserver registers a callback invoked after every request.
func WithObserver(fn FetchObserver) SpiderOption {
	return func(s *Spider) {
		s.observer = fn
	}
}

// NewSpider creates a Spider that fetches through fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// requestCounter accumulates the number of fetches of one crawl.
type requestCounter struct {
	n int
}

func (c *requestCounter) inc() int {
	c.n++
	return c.n
}

// Crawl fetches rawURL, every resource it references and, one level deep,
// every iframe document it embeds together with that document's resources.
//
// It returns ErrInvalidURL when rawURL is not an absolute http(s) URL and
// ErrFetchFailure when rawURL itself cannot be fetched. Failures on
// referenced resources are recorded in the tree and do not stop the crawl.
// If ctx is cancelled, the crawl stops before the next request and ctx.Err()
// is returned.
func (s *Spider) Crawl(ctx context.Context, rawURL string) (*model.CrawlResult, error) {
	if !IsHTTPURL(rawURL) {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidURL, rawURL)
	}

	result := model.NewCrawlResult(rawURL)
	counter := &requestCounter{}

	root, resp, err := s.crawl(ctx, rawURL, true, counter)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailure, rawURL, resp.Err)
	}

	result.Root = root
	result.RequestCount = counter.n
	result.SetContentHash(resp.Content)
	result.Duration = time.Since(result.StartedAt)

	s.logger.Debug("crawl finished",
		"url", rawURL,
		"requests", result.RequestCount,
		"bytes", result.TotalBytes(),
		"duration", result.Duration,
	)

	return result, nil
}

// crawl fetches rawURL in full and, when it is an HTML or CSS document,
// fetches its normal references as leaves. Frame references are crawled
// with expandFrames=false only when expandFrames is true.
// The returned response is that of rawURL itself.
func (s *Spider) crawl(ctx context.Context, rawURL string, expandFrames bool, counter *requestCounter) (*model.ReportNode, *fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	node, resp := s.fetch(ctx, rawURL, false, counter)
	if node.Failed() || !model.IsExpandable(node.MimeType) {
		return node, resp, nil
	}

	refs, err := s.extractor.Extract(resp.Content, resp.Charset, node.MimeType)
	if err != nil {
		s.logger.Warn("failed to extract references", "url", rawURL, "error", err)
		return node, resp, nil
	}

	for _, ref := range refs.Normal {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// Resolve only fails on an unparseable base, and rawURL was just
		// fetched, so this branch is not reached in practice.
		target, err := Resolve(ref, rawURL)
		if err != nil {
			s.logger.Warn("skipping unresolvable reference", "reference", ref, "base", rawURL, "error", err)
			continue
		}

		child, _ := s.fetch(ctx, target, true, counter)
		node.AddChild(child)
	}

	if !expandFrames {
		return node, resp, nil
	}

	for _, ref := range refs.Frames {
		target, err := Resolve(ref, rawURL) // same as above
		if err != nil {
			s.logger.Warn("skipping unresolvable frame", "reference", ref, "base", rawURL, "error", err)
			continue
		}

		child, _, err := s.crawl(ctx, target, false, counter)
		if err != nil {
			return nil, nil, err
		}
		node.AddChild(child)
	}

	return node, resp, nil
}

// fetch performs one request, counts it and converts the response to a node.
func (s *Spider) fetch(ctx context.Context, rawURL string, metadataOnly bool, counter *requestCounter) (*model.ReportNode, *fetch.Response) {
	resp := s.fetcher.Get(ctx, rawURL, metadataOnly)
	if resp == nil {
		resp = &fetch.Response{URL: rawURL, Err: fmt.Errorf("%w: no response", ErrFetchFailure)}
	}
	count := counter.inc()

	node := newNode(rawURL, resp)
	if node.Failed() {
		s.logger.Warn("fetch failed", "url", rawURL, "error", resp.Err)
	} else {
		s.logger.Debug("fetched",
			"url", rawURL,
			"mime_type", node.MimeType,
			"size", node.DownloadSize,
			"metadata_only", metadataOnly,
		)
	}

	if s.observer != nil {
		s.observer(node, count)
	}

	return node, resp
}

// newNode converts a response into a leaf node. Failed fetches become
// zero-size "text/plain" nodes.
func newNode(rawURL string, resp *fetch.Response) *model.ReportNode {
	if !resp.OK() {
		node := model.NewReportNode(rawURL, model.MimeTypeUnknown, 0)
		node.StatusCode = resp.StatusCode
		node.Error = resp.Err.Error()
		return node
	}

	mimeType := strings.ToLower(strings.TrimSpace(resp.MimeType))
	if mimeType == "" {
		mimeType = model.MimeTypeUnknown
	}

	node := model.NewReportNode(rawURL, mimeType, resp.DownloadSize)
	node.StatusCode = resp.StatusCode
	return node
}
