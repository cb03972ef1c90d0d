// Package serper provides a search.Provider backed by the serper.dev Google
// search API. Credentials are passed per call so the resolver can rotate API
// keys from the pool when a key runs out of quota.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/search"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

const endpoint = "https://google.serper.dev/search"

// Options tune the search request.
type Options struct {
	// Num is how many organic results to request. One result is enough to
	// resolve a domain and keeps the per-call cost down.
	Num int
	// HL is the interface language (default "fr").
	HL string
	// GL is the country bias (default "fr").
	GL string
}

// Client talks to the serper.dev REST API.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New constructs a Client using the provided http.Client.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.Num <= 0 {
		opts.Num = 1
	}
	if opts.HL == "" {
		opts.HL = "fr"
	}
	if opts.GL == "" {
		opts.GL = "fr"
	}

	return &Client{httpClient: httpClient, opts: opts}
}

// Source implements search.Provider.
func (c *Client) Source() domain.Source { return domain.SourceSerper }

// FindDomain queries serper.dev and returns the host of the first organic
// result that is not a social or aggregator site.
func (c *Client) FindDomain(ctx context.Context, token, query string) (string, error) {
	payload, err := json.Marshal(struct {
		Q   string `json:"q"`
		Num int    `json:"num"`
		HL  string `json:"hl"`
		GL  string `json:"gl"`
	}{Q: query, Num: c.opts.Num, HL: c.opts.HL, GL: c.opts.GL})
	if err != nil {
		return "", serrors.Wrap(serrors.ErrInternal, err, "could not marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", serrors.Wrap(serrors.ErrInternal, err, "could not create request")
	}
	req.Header.Set("X-API-KEY", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnreachable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnreachable, err, "could not read response body")
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		// serper.dev reports an out-of-credit key with 403 as well as 429.
		return "", serrors.With(serrors.ErrQuotaExceeded, "serper quota exceeded: %s", strings.TrimSpace(string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", serrors.With(serrors.ErrUnreachable, "serper search failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var searchResp struct {
		Organic []struct {
			Link string `json:"link"`
			URL  string `json:"url"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(b, &searchResp); err != nil {
		return "", serrors.Wrap(serrors.ErrMalformed, err, "could not decode serper response")
	}

	for _, r := range searchResp.Organic {
		link := r.Link
		if link == "" {
			link = r.URL
		}
		host := search.HostFromLink(link)
		if host == "" || search.Skipped(host) {
			continue
		}

		return host, nil
	}

	return "", serrors.With(serrors.ErrNotFound, "no acceptable organic result for %q", query)
}

// Ensure Client conforms to the search.Provider interface at compile time.
var _ search.Provider = (*Client)(nil)
