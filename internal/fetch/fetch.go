// Package fetch downloads the page to summarize.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagedigest/internal/cache"
)

// DefaultMaxBytes caps the size of a downloaded page.
const DefaultMaxBytes = 8 << 20

var (
	// ErrUnsupportedScheme is returned for anything other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("unsupported content type")
)

// statusError carries a non-success HTTP status.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status: %d", e.code) }

// Client wraps http.Client and provides timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Cache enables conditional revalidation with ETag and Last-Modified.
	Cache *cache.PageCache
	// BypassCache skips conditional headers but still saves the response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxBytes caps the body size. Zero means DefaultMaxBytes.
	MaxBytes int64
	// Backoff is the base delay between attempts. Zero means 200ms.
	Backoff time.Duration
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get issues a GET with context, user-agent, and bounded retry for transient
// errors. It returns the body and its content type.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.finish(ctx, rawURL, resp)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("retrying page fetch")
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	return nil, "", fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (c *Client) finish(ctx context.Context, rawURL string, resp response) ([]byte, string, error) {
	if resp.status == http.StatusNotModified {
		if c.Cache != nil {
			if cached, err := c.Cache.LoadBody(ctx, rawURL); err == nil {
				ct := resp.contentType
				if meta, merr := c.Cache.LoadMeta(ctx, rawURL); merr == nil && ct == "" {
					ct = meta.ContentType
				}
				return cached, ct, nil
			}
		}
		return nil, "", fmt.Errorf("fetch %s: not modified but no cached body", rawURL)
	}
	if c.Cache != nil {
		if err := c.Cache.Save(ctx, rawURL, resp.contentType, resp.etag, resp.lastModified, resp.body); err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("page cache save failed")
		}
	}
	return resp.body, resp.contentType, nil
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, req.URL.Scheme)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &statusError{code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(out.contentType) {
		return out, fmt.Errorf("%w: %s", ErrNotHTML, out.contentType)
	}
	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	out.body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	return out, nil
}

// isTransient treats 5xx, 429 and per-request deadlines as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return false
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
