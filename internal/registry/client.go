// Package registry fetches active companies from the French company registry
// search API (recherche-entreprises.api.gouv.fr) and normalizes them into
// domain.BusinessRecord values.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

// DefaultBaseURL is the public search endpoint.
const DefaultBaseURL = "https://recherche-entreprises.api.gouv.fr/search"

// maxPerPage is the hard page-size ceiling enforced by the API.
const maxPerPage = 25

// Options configure a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// PerPage is clamped to [1, 25].
	PerPage int
	// MaxPages bounds pagination per industry code.
	MaxPages int
	// RetryBackoff is the base delay between retries on throttling responses.
	// Zero means two seconds.
	RetryBackoff time.Duration
}

// Client talks to the registry search API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New constructs a Client that uses the provided http.Client.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PerPage < 1 {
		opts.PerPage = maxPerPage
	}
	if opts.PerPage > maxPerPage {
		opts.PerPage = maxPerPage
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	return &Client{httpClient: httpClient, opts: opts}
}

type searchResponse struct {
	Results []struct {
		SIREN             string `json:"siren"`
		NomComplet        string `json:"nom_complet"`
		NomRaisonSociale  string `json:"nom_raison_sociale"`
		ActivitePrincNAF  string `json:"activite_principale"`
		TrancheEffectif   string `json:"tranche_effectif_salarie"`
		EtatAdministratif string `json:"etat_administratif"`
		Siege             struct {
			SIRET            string `json:"siret"`
			ActivitePrincNAF string `json:"activite_principale"`
			TrancheEffectif  string `json:"tranche_effectif_salarie"`
		} `json:"siege"`
	} `json:"results"`
	TotalResults int `json:"total_results"`
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
}

// FetchByNAF pages through all active companies declaring the given industry
// code at the legal-unit level. trancheCodes, when non-empty, is passed as a
// server-side workforce-bracket filter. Pagination stops at MaxPages, at an
// empty page, or once the reported total is covered.
func (c *Client) FetchByNAF(ctx context.Context, nafCode string, trancheCodes []string) ([]domain.BusinessRecord, error) {
	log := logger.Get(ctx).With(zap.String("naf", nafCode))

	var records []domain.BusinessRecord
	for page := 1; page <= c.opts.MaxPages; page++ {
		resp, err := c.search(ctx, nafCode, trancheCodes, page)
		if err != nil {
			return records, fmt.Errorf("could not fetch page %d: %w", page, err)
		}
		if len(resp.Results) == 0 {
			break
		}

		for _, r := range resp.Results {
			naf := r.ActivitePrincNAF
			if naf == "" {
				naf = r.Siege.ActivitePrincNAF
			}
			tranche := r.TrancheEffectif
			if tranche == "" {
				tranche = r.Siege.TrancheEffectif
			}
			legal := r.NomRaisonSociale
			if legal == "" {
				legal = r.NomComplet
			}
			records = append(records, domain.BusinessRecord{
				SIREN:       r.SIREN,
				SIRET:       r.Siege.SIRET,
				LegalName:   legal,
				DisplayName: r.NomComplet,
				NAF:         naf,
				Tranche:     domain.Tranche(tranche),
				HeadOffice:  true,
			})
		}

		log.Debug("fetched registry page",
			zap.Int("page", page),
			zap.Int("rows", len(resp.Results)),
			zap.Int("total", resp.TotalResults))
		if resp.TotalResults > 0 && page*c.opts.PerPage >= resp.TotalResults {
			break
		}
	}

	return records, nil
}

// search performs a single page request with a bounded retry on throttling
// and transient upstream failures.
func (c *Client) search(ctx context.Context, nafCode string, trancheCodes []string, page int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("activite_principale", nafCode)
	q.Set("etat_administratif", "A")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.opts.PerPage))
	q.Set("minimal", "true")
	q.Set("include", "siege")
	if len(trancheCodes) > 0 {
		q.Set("tranche_effectif_salarie", strings.Join(trancheCodes, ","))
	}

	const maxTries = 3
	var lastErr error
	for attempt := 0; attempt < maxTries; attempt++ {
		if attempt > 0 {
			delay := c.opts.RetryBackoff * time.Duration(attempt+1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, retryable, err := c.doSearch(ctx, q)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) doSearch(ctx context.Context, q url.Values) (*searchResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, serrors.Wrap(serrors.ErrUnreachable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, serrors.Wrap(serrors.ErrUnreachable, err, "could not read response body")
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, true, serrors.With(serrors.ErrUnreachable, "registry throttled: status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, serrors.With(serrors.ErrUnreachable,
			"registry search failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sr searchResponse
	if err := json.Unmarshal(b, &sr); err != nil {
		return nil, false, serrors.Wrap(serrors.ErrMalformed, err, "could not decode response")
	}

	return &sr, false, nil
}

// Ping performs a minimal one-row search to verify the registry is reachable.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("q", "a")
	q.Set("page", "1")
	q.Set("per_page", "1")

	_, _, err := c.doSearch(ctx, q)

	return err
}

// Dedupe collapses establishment rows to one record per SIREN, preferring
// the head office when several establishments of the same company show up.
// Input order is preserved for first occurrences.
func Dedupe(records []domain.BusinessRecord) []domain.BusinessRecord {
	index := make(map[string]int, len(records))
	out := make([]domain.BusinessRecord, 0, len(records))
	for _, rec := range records {
		if rec.SIREN == "" {
			continue
		}
		if i, ok := index[rec.SIREN]; ok {
			if rec.HeadOffice && !out[i].HeadOffice {
				out[i] = rec
			}

			continue
		}
		index[rec.SIREN] = len(out)
		out = append(out, rec)
	}

	return out
}
