package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults used when no option overrides them.
const (
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 50 * 1024 * 1024 // 50MB
	defaultCharset     = "utf-8"
	defaultMimeType    = "text/plain"
	maxRedirects       = 10
)

// Response is the outcome of a single GET request.
//
// When Err is non-nil the request still counts as performed, but Content is
// nil, DownloadSize is 0 and MimeType is "text/plain".
type Response struct {
	// URL is the requested URL.
	URL string

	// Content is the response body. It is nil for metadata-only requests and
	// failed requests, and is truncated to the client's max body size.
	Content []byte

	// MimeType is the lowercase media type from the Content-Type header,
	// without parameters. "text/plain" when the header is missing or invalid.
	MimeType string

	// Charset is the charset parameter of the Content-Type header,
	// "utf-8" when absent.
	Charset string

	// DownloadSize is the number of body bytes received.
	DownloadSize int64

	// StatusCode is the HTTP status code, or 0 when no response was received.
	StatusCode int

	// Err is set when the request failed at the transport level, timed out,
	// or returned a non-2xx status.
	Err error
}

// OK reports whether the request succeeded.
func (r *Response) OK() bool {
	return r.Err == nil
}

// Client issues HTTP GET requests and measures their responses.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client

	// userAgent is sent as the User-Agent header when non-empty.
	userAgent string

	// maxBodySize limits how much of a body is kept in Response.Content.
	// Bytes beyond the limit are still read and counted.
	maxBodySize int64

	// The fields below are only used while building httpClient.
	timeout      time.Duration
	proxyAddress string
	insecure     bool
	cookie       string
	headers      map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets how many body bytes are retained per response.
// Values <= 0 keep the default.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes every request through the SOCKS5 proxy at addr ("host:port").
func WithProxy(addr string) Option {
	return func(c *Client) {
		c.proxyAddress = addr
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(c *Client) {
		c.insecure = insecure
	}
}

// WithCookie adds a raw cookie string (e.g. "session=abc") to every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithHTTPClient replaces the underlying HTTP client. Timeout, proxy, TLS,
// cookie, and header options are ignored when this is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client. It only fails when the proxy address is malformed;
// no network connection is made.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:     defaultTimeout,
		maxBodySize: defaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		return c, nil
	}

	hc, err := c.newHTTPClient()
	if err != nil {
		return nil, err
	}
	c.httpClient = hc

	return c, nil
}

// newHTTPClient builds the HTTP client from the configured options.
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		// Without Accept-Encoding servers send identity bodies, so the
		// counted size matches what a plain client receives.
		DisableCompression: true,
	}

	if c.insecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Opt-in via --insecure
		}
	}

	if c.proxyAddress != "" {
		if !isValidProxyAddress(c.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	var rt http.RoundTripper = transport
	if c.cookie != "" || len(c.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  c.cookie,
			headers: c.headers,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Get fetches rawURL. When metadataOnly is true the body is read and counted
// but not retained. Get never returns nil.
func (c *Client) Get(ctx context.Context, rawURL string, metadataOnly bool) *Response {
	resp := &Response{
		URL:      rawURL,
		MimeType: defaultMimeType,
		Charset:  defaultCharset,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		resp.Err = err
		return resp
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "*/*")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Err = err
		return resp
	}
	defer httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// Drain so the connection can be reused; the size is not reported.
		_, _ = io.Copy(io.Discard, httpResp.Body) //nolint:errcheck // best effort drain
		resp.Err = &StatusError{Code: httpResp.StatusCode}
		return resp
	}

	content, size, err := c.readBody(httpResp.Body, metadataOnly)
	if err != nil {
		resp.Err = err
		return resp
	}

	resp.MimeType, resp.Charset = ParseContentType(httpResp.Header.Get("Content-Type"))
	resp.Content = content
	resp.DownloadSize = size

	return resp
}

// readBody reads the whole body, keeping at most maxBodySize bytes unless
// discard is true. It returns the retained bytes and the total byte count.
func (c *Client) readBody(body io.Reader, discard bool) ([]byte, int64, error) {
	if discard {
		n, err := io.Copy(io.Discard, body)
		return nil, n, err
	}

	content, err := io.ReadAll(io.LimitReader(body, c.maxBodySize))
	if err != nil {
		return nil, int64(len(content)), err
	}

	rest, err := io.Copy(io.Discard, body)
	if err != nil {
		return nil, int64(len(content)) + rest, err
	}

	return content, int64(len(content)) + rest, nil
}

// ParseContentType splits a Content-Type header value into a lowercase media
// type and a charset. Missing or invalid values yield "text/plain" and "utf-8".
func ParseContentType(header string) (mimeType, charset string) {
	mimeType, charset = defaultMimeType, defaultCharset

	header = strings.TrimSpace(header)
	if header == "" {
		return mimeType, charset
	}

	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		// Fall back to the part before the first ';', which is what most
		// clients do with slightly malformed headers.
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
		params = nil
	}
	if mediaType != "" {
		mimeType = mediaType
	}
	if cs := strings.TrimSpace(params["charset"]); cs != "" {
		charset = strings.ToLower(cs)
	}

	return mimeType, charset
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return portNum >= 1 && portNum <= 65535
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
