package resolver

import (
	"strings"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/textnorm"
)

// legalForms are French company-form suffixes dropped before deriving domain
// candidates: "ACME CONSEIL SARL" guesses the same domains as "ACME CONSEIL".
var legalForms = map[string]struct{}{ //nolint: gochecknoglobals
	"sa": {}, "sarl": {}, "sas": {}, "sasu": {}, "eurl": {}, "sci": {},
	"snc": {}, "scop": {}, "scm": {}, "selarl": {}, "gie": {},
}

// GuessCandidates derives candidate domains from a company name: fold
// accents, drop legal-form suffixes and punctuation, then apply common
// French naming patterns over .fr and .com. The result is de-duplicated
// preserving order and carries no guarantee any candidate exists; callers
// verify reachability separately. Pure function, no network access.
func GuessCandidates(name string) []string {
	base := textnorm.Fold(name)

	// Keep only [a-z0-9- ] so the parts are valid hostname material.
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == ' ':
			b.WriteRune(r)
		}
	}

	var parts []string
	for _, p := range strings.Fields(b.String()) {
		if len(p) <= 1 {
			continue
		}
		if _, legal := legalForms[p]; legal {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil
	}

	joined := strings.Join(parts, "")
	candidates := []string{
		joined + ".fr",
		joined + ".com",
		strings.Join(parts[:min(2, len(parts))], "") + ".fr",
		strings.Join(parts, "-") + ".fr",
		strings.Join(parts, "-") + ".com",
	}

	seen := make(map[string]struct{}, len(candidates))
	var uniq []string
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}

	return uniq
}
