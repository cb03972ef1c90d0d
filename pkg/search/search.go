// Package search defines the external search-provider abstraction used by
// domain resolution, plus the host filtering shared by its implementations.
// Providers take the credential per call so the resolver can rotate tokens
// from the pool on quota exhaustion.
package search

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/textnorm"
)

// Provider queries an external search service for a company's official
// website. Implementations live in sub-packages (serper, serpapi).
type Provider interface {
	// Source tags resolutions produced through this provider.
	Source() domain.Source
	// FindDomain issues a search with the given credential and returns the
	// most plausible official host. It returns serrors.ErrQuotaExceeded on a
	// rate-limit response, serrors.ErrMalformed when the response fails to
	// parse and serrors.ErrNotFound when no acceptable result exists.
	FindDomain(ctx context.Context, token, query string) (string, error)
}

// Query builds the search query for a company: the name, a NAF-tailored
// precision suffix, and "site officiel" to bias results toward the official
// website.
func Query(name, naf string) string {
	extra := ""
	code := strings.ToUpper(strings.TrimSpace(naf))
	switch {
	case strings.HasPrefix(code, "71.12B"):
		extra = " conseil"
	case strings.HasPrefix(code, "62.02A"):
		extra = " ESN SSII"
	}

	return strings.TrimSpace(name) + extra + " site officiel"
}

// skippedHosts are social networks, registries and press aggregators that
// rank well for company names but are never the official site.
var skippedHosts = map[string]struct{}{ //nolint: gochecknoglobals
	"linkedin.com":             {},
	"facebook.com":             {},
	"twitter.com":              {},
	"x.com":                    {},
	"societe.com":              {},
	"societeinfo.com":          {},
	"verif.com":                {},
	"manageo.fr":               {},
	"pappers.fr":               {},
	"bloomberg.com":            {},
	"wikipedia.org":            {},
	"lefigaro.fr":              {},
	"lemonde.fr":               {},
	"indeed.fr":                {},
	"welcometothejungle.com":   {},
}

// HostFromLink extracts the registrable domain (eTLD+1) from a result link.
// Returns "" for unparseable links.
func HostFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		host = registrable
	} // else: bare hosts and IPs stay as-is

	return host
}

// Skipped reports whether host is on the aggregator/social blocklist, either
// exactly or as a subdomain.
func Skipped(host string) bool {
	host = strings.ToLower(host)
	for bad := range skippedHosts {
		if host == bad || strings.HasSuffix(host, "."+bad) {
			return true
		}
	}

	return false
}

// NameOverlap counts how many tokens of the folded query (longer than two
// characters) occur in the host, capped at 3. Used to rank candidate hosts
// by similarity to the company name.
func NameOverlap(query, host string) int {
	host = strings.ToLower(host)
	overlap := 0
	for _, tok := range strings.FieldsFunc(textnorm.Fold(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(tok) <= 2 {
			continue
		}
		if strings.Contains(host, tok) {
			overlap++
			if overlap == 3 {
				break
			}
		}
	}

	return overlap
}
