// Package serpapi provides a search.Provider backed by SerpAPI. Unlike the
// serper client, which takes the first acceptable result, this one ranks the
// organic hosts by TLD preference and name overlap before choosing.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/search"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

const endpoint = "https://serpapi.com/search.json"

// Options tune the search request.
type Options struct {
	// Engine selects the SerpAPI engine (default "google").
	Engine string
	// Num is how many organic results to inspect (default 5).
	Num int
	// HL is the interface language (default "fr").
	HL string
	// GL is the country bias (default "fr").
	GL string
}

// Client talks to the SerpAPI REST API.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New constructs a Client using the provided http.Client.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.Engine == "" {
		opts.Engine = "google"
	}
	if opts.Num <= 0 {
		opts.Num = 5
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
func (c *Client) Source() domain.Source { return domain.SourceSerpAPI }

// FindDomain queries SerpAPI and returns the best-ranked organic host:
// +2 for a .fr domain, plus up to 3 for company-name token overlap.
func (c *Client) FindDomain(ctx context.Context, token, query string) (string, error) {
	params := url.Values{}
	params.Set("engine", c.opts.Engine)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.opts.Num))
	params.Set("hl", c.opts.HL)
	params.Set("gl", c.opts.GL)
	params.Set("api_key", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrInternal, err, "could not create request")
	}

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
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", serrors.With(serrors.ErrQuotaExceeded, "serpapi quota exceeded: %s", strings.TrimSpace(string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", serrors.With(serrors.ErrUnreachable, "serpapi search failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var searchResp struct {
		OrganicResults []struct {
			Link string `json:"link"`
			URL  string `json:"url"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(b, &searchResp); err != nil {
		return "", serrors.Wrap(serrors.ErrMalformed, err, "could not decode serpapi response")
	}

	type candidate struct {
		score int
		host  string
	}
	var candidates []candidate
	for _, r := range searchResp.OrganicResults {
		link := r.Link
		if link == "" {
			link = r.URL
		}
		host := search.HostFromLink(link)
		if host == "" || search.Skipped(host) {
			continue
		}
		score := search.NameOverlap(query, host)
		if strings.HasSuffix(host, ".fr") {
			score += 2
		}
		candidates = append(candidates, candidate{score: score, host: host})
	}
	if len(candidates) == 0 {
		return "", serrors.With(serrors.ErrNotFound, "no acceptable organic result for %q", query)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	return candidates[0].host, nil
}

// Ensure Client conforms to the search.Provider interface at compile time.
var _ search.Provider = (*Client)(nil)
