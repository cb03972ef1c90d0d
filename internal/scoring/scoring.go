// Package scoring turns a record, its resolution and its site signals into a
// deterministic additive relevance score. Each condition is evaluated
// independently; the score is the sum of the weights of the satisfied ones,
// so evaluation order never matters.
package scoring

import (
	"strings"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/textnorm"
)

// Weights are the per-condition contributions to the score. No negative
// weights: absence of a signal contributes zero.
type Weights struct {
	NAF         int
	NameKeyword int
	SiteKeyword int
	JobPosting  int
	Size        int
}

// DefaultWeights mirror the tuned production values.
func DefaultWeights() Weights {
	return Weights{NAF: 3, NameKeyword: 2, SiteKeyword: 3, JobPosting: 4, Size: 2}
}

// Total is the maximum reachable score.
func (w Weights) Total() int {
	return w.NAF + w.NameKeyword + w.SiteKeyword + w.JobPosting + w.Size
}

// Thresholds derive the meets-threshold booleans from the final score. They
// are not part of the weighted sum.
type Thresholds struct {
	Strong   int
	Possible int
}

// DefaultThresholds mirror the tuned production values.
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 7, Possible: 4}
}

// Options configure an Engine.
type Options struct {
	// TargetNAFPrefixes is the refined prefix list for the industry-code
	// condition.
	TargetNAFPrefixes []string
	// NameKeywords is the relevance set matched against legal/display names.
	NameKeywords []string
	// MinEmp and MaxEmp bound the size-fit condition.
	MinEmp int
	MaxEmp int
	// Weights and Thresholds default when zero-valued.
	Weights    Weights
	Thresholds Thresholds
}

// Engine evaluates records against the configured rule set.
type Engine struct {
	opts Options
}

// New constructs an Engine, defaulting weights and thresholds when unset.
func New(opts Options) *Engine {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}

	return &Engine{opts: opts}
}

// Weights exposes the engine's weight set, mainly for bound checks.
func (e *Engine) Weights() Weights { return e.opts.Weights }

// MatchNameKeywords returns the relevance keywords found in the record's
// legal and display names, used as audit evidence alongside the flag.
func (e *Engine) MatchNameKeywords(rec domain.BusinessRecord) []string {
	text := rec.LegalName + " " + rec.DisplayName

	return textnorm.AnyKeyword(text, e.opts.NameKeywords)
}

// Evaluate computes the additive score and the condition flags for one
// record. Signal detection failures have already degraded to empty signals
// upstream, so a best-effort score always comes out.
func (e *Engine) Evaluate(rec domain.BusinessRecord, res domain.DomainResolution, sig domain.SiteSignals) domain.Evaluation {
	ev := domain.Evaluation{
		NAFOK:             e.nafMatches(rec.NAF),
		NameKeywordFound:  len(sig.NameKeywords) > 0,
		SiteKeywordFound:  res.Found() && len(sig.SiteKeywords) > 0,
		JobPostingPresent: res.Found() && sig.JobPosting,
		SizeOK:            rec.Tranche.Within(e.opts.MinEmp, e.opts.MaxEmp),
	}

	w := e.opts.Weights
	if ev.NAFOK {
		ev.Score += w.NAF
	}
	if ev.NameKeywordFound {
		ev.Score += w.NameKeyword
	}
	if ev.SiteKeywordFound {
		ev.Score += w.SiteKeyword
	}
	if ev.JobPostingPresent {
		ev.Score += w.JobPosting
	}
	if ev.SizeOK {
		ev.Score += w.Size
	}

	ev.Strong = ev.Score >= e.opts.Thresholds.Strong
	ev.Possible = ev.Score >= e.opts.Thresholds.Possible

	return ev
}

// nafMatches reports whether code starts with any targeted prefix.
func (e *Engine) nafMatches(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	for _, prefix := range e.opts.TargetNAFPrefixes {
		if strings.HasPrefix(code, strings.ToUpper(strings.TrimSpace(prefix))) {
			return true
		}
	}

	return false
}
