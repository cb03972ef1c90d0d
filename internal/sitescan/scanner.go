// Package sitescan probes a resolved domain for keyword and job-posting
// signals: the homepage plus a small fixed set of candidate sub-paths, each
// fetched within the shared bounds. Every fetch failure is tolerated; an
// unreachable site simply yields empty signals.
package sitescan

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/textnorm"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/webpage"
)

// Fetcher fetches a single HTML page. *webpage.Fetcher implements it.
type Fetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (string, error)
}

// Options configure how much work a scan may do and what it looks for.
type Options struct {
	// CandidatePaths are the sub-paths probed after the homepage.
	CandidatePaths []string
	// MaxPages caps total fetches per domain, homepage included.
	MaxPages int
	// MinPageBytes skips sub-pages smaller than this as stubs.
	MinPageBytes int
	// SiteKeywords is the relevance keyword set.
	SiteKeywords []string
	// JobIndicators is the job-posting indicator set.
	JobIndicators []string
}

// Scanner detects configured keyword signals on a domain's pages.
type Scanner struct {
	fetcher Fetcher
	opts    Options
}

// New constructs a Scanner. A MaxPages of zero or less means homepage only.
func New(fetcher Fetcher, opts Options) *Scanner {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	return &Scanner{fetcher: fetcher, opts: opts}
}

// Scan fetches the homepage of host and a bounded set of sub-pages, then
// searches their visible text for the configured keyword sets. Scanning the
// same static content with the same configuration always yields identical
// signals. No error is ever returned: failures degrade to empty signals.
func (s *Scanner) Scan(ctx context.Context, host string) domain.SiteSignals {
	base := webpage.EnsureHTTP(host)

	homepage, err := s.fetcher.FetchHTML(ctx, base)
	if err != nil {
		logger.Debug(ctx, "homepage unreachable, no signals", zap.String("host", host), zap.Error(err))

		return domain.SiteSignals{}
	}

	texts := []string{visibleText(homepage)}
	pages := 1

	for _, p := range s.opts.CandidatePaths {
		if pages >= s.opts.MaxPages || ctx.Err() != nil {
			break
		}
		html, err := s.fetcher.FetchHTML(ctx, base+p)
		if err != nil {
			continue // sub-path failures are silently skipped
		}
		if len(html) < s.opts.MinPageBytes {
			continue // tiny stubs carry no signal
		}
		texts = append(texts, visibleText(html))
		pages++
	}

	combined := strings.Join(texts, "\n\n")

	signals := domain.SiteSignals{
		SiteKeywords: textnorm.AnyKeyword(combined, s.opts.SiteKeywords),
		PagesScanned: pages,
	}
	signals.JobPosting = len(textnorm.AnyKeyword(combined, s.opts.JobIndicators)) > 0

	return signals
}

// visibleText extracts the human-visible text of an HTML page, dropping
// script and style content. Unparseable markup falls back to the raw bytes
// so keyword matching still gets a chance.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()

	return doc.Text()
}
