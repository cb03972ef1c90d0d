// Package webpage provides the bounded homepage/sub-page fetcher shared by
// domain verification and site scanning. Every failure mode that matters to
// the pipeline (DNS, TLS, timeout, non-success status, non-HTML content) is
// reported as serrors.ErrUnreachable so callers can treat it uniformly as
// "no signal".
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxRedirects = 5
	defaultMaxBodyBytes = 2 << 20 // 2 MiB, caps pathological pages
	defaultUserAgent    = "ESN-Discovery/1.0 (+https://example.com)"
)

// Options bound the work a single fetch may do.
type Options struct {
	// Timeout is the per-fetch deadline covering connect, TLS and body read.
	Timeout time.Duration
	// MaxRedirects caps redirect following.
	MaxRedirects int
	// MaxBodyBytes caps how much of the response body is read.
	MaxBodyBytes int64
	// UserAgent identifies the pipeline to the sites it probes.
	UserAgent string
}

// Fetcher fetches HTML pages within the configured bounds. Safe for
// concurrent use.
type Fetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
}

// New constructs a Fetcher, filling unset options with conservative
// defaults.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	maxRedirects := opts.MaxRedirects

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}

				return nil
			},
		},
		maxBody:   opts.MaxBodyBytes,
		userAgent: opts.UserAgent,
	}
}

// EnsureHTTP prefixes raw with "http://" when it carries no scheme, so bare
// hosts from guessing and search results can be fetched directly.
func EnsureHTTP(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	return "http://" + raw
}

// FetchHTML fetches rawURL and returns its body when the response is a
// success-class HTML page. Anything else (transport error, non-2xx status,
// non-HTML content type) yields serrors.ErrUnreachable.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, EnsureHTTP(rawURL), nil)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnreachable, err, "could not create request for %q", rawURL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnreachable, err, "fetching %q", rawURL)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", serrors.With(serrors.ErrUnreachable, "fetching %q: HTTP %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return "", serrors.With(serrors.ErrUnreachable, "fetching %q: content type %q is not HTML", rawURL, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnreachable, err, "reading body of %q", rawURL)
	}

	return string(body), nil
}

// Reachable reports whether the homepage of host answers with a
// success-class HTML response within the bounded timeout.
func (f *Fetcher) Reachable(ctx context.Context, host string) bool {
	_, err := f.FetchHTML(ctx, host)

	return err == nil
}
