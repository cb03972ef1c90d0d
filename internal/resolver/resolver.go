// Package resolver determines the most likely website for a business by
// trying an ordered list of strategies (pre-existing domain, external search
// providers with credential rotation, heuristic name-based guessing) and
// verifying reachability of every candidate before accepting it.
package resolver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/search"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/webpage"
)

// Strategy produces candidate hosts for a record, in preference order. The
// resolver verifies candidates itself; strategies never perform reachability
// checks.
type Strategy interface {
	// Source tags resolutions produced through this strategy.
	Source() domain.Source
	// Candidates returns candidate hosts for the record. An error means the
	// strategy could not run at all (e.g. all credentials exhausted); the
	// resolver then degrades to the next strategy.
	Candidates(ctx context.Context, rec domain.BusinessRecord) ([]string, error)
}

// SearchStrategy adapts a search.Provider into a Strategy, rotating
// credentials from the pool when the provider reports quota exhaustion.
type SearchStrategy struct {
	provider search.Provider
	pool     *keypool.Pool
}

// NewSearchStrategy builds a SearchStrategy over the given provider and
// credential pool.
func NewSearchStrategy(provider search.Provider, pool *keypool.Pool) *SearchStrategy {
	return &SearchStrategy{provider: provider, pool: pool}
}

// Source implements Strategy.
func (s *SearchStrategy) Source() domain.Source { return s.provider.Source() }

// Candidates issues the search query, retrying with the next credential when
// the current one is quota-exhausted. Retries are bounded by the pool size:
// each retry permanently burns one slot.
func (s *SearchStrategy) Candidates(ctx context.Context, rec domain.BusinessRecord) ([]string, error) {
	query := search.Query(rec.Name(), rec.NAF)

	for attempt := 0; attempt < s.pool.Size(); attempt++ {
		token, err := s.pool.Current()
		if err != nil {
			return nil, err
		}

		host, err := s.provider.FindDomain(ctx, token, query)
		s.pool.RecordUsage(token)
		if errors.Is(err, serrors.ErrQuotaExceeded) {
			logger.Warn(ctx, "credential exhausted, rotating",
				zap.String("provider", string(s.provider.Source())),
				zap.String("token", keypool.MaskToken(token)))
			s.pool.MarkExhausted(token)

			continue
		}
		if err != nil {
			return nil, err
		}

		return []string{host}, nil
	}

	return nil, serrors.With(serrors.ErrNoCredentials, "every credential exhausted during retries")
}

// maxGuessCandidates caps how many heuristic candidates are verified per
// record.
const maxGuessCandidates = 3

// GuessStrategy derives candidates from the company name without any
// external service.
type GuessStrategy struct{}

// Source implements Strategy.
func (GuessStrategy) Source() domain.Source { return domain.SourceGuess }

// Candidates implements Strategy.
func (GuessStrategy) Candidates(_ context.Context, rec domain.BusinessRecord) ([]string, error) {
	candidates := GuessCandidates(rec.Name())
	if len(candidates) > maxGuessCandidates {
		candidates = candidates[:maxGuessCandidates]
	}

	return candidates, nil
}

// Verifier answers reachability checks. *webpage.Fetcher implements it.
type Verifier interface {
	Reachable(ctx context.Context, host string) bool
}

// Resolver walks the configured strategies in order, short-circuiting on the
// first verified candidate. The strategy list is assembled once at startup
// from configuration toggles, so no feature flags are consulted here.
type Resolver struct {
	verifier   Verifier
	strategies []Strategy
}

// New constructs a Resolver over the given verifier and ordered strategies.
func New(verifier Verifier, strategies []Strategy) *Resolver {
	return &Resolver{verifier: verifier, strategies: strategies}
}

// Resolve determines the website for a record. knownDomain, when non-empty,
// is verified first and returned as a pre-existing resolution, bypassing all
// strategies. Strategy failures degrade to the next strategy; running out of
// strategies yields an empty resolution carrying the reason, never an error.
func (r *Resolver) Resolve(ctx context.Context, rec domain.BusinessRecord, knownDomain string) domain.DomainResolution {
	if knownDomain != "" {
		if r.verifier.Reachable(ctx, knownDomain) {
			return domain.DomainResolution{
				Domain:   knownDomain,
				Source:   domain.SourcePreexisting,
				Verified: true,
			}
		}
		logger.Debug(ctx, "known domain unreachable, falling back to strategies",
			zap.String("domain", knownDomain))
	}

	for _, s := range r.strategies {
		candidates, err := s.Candidates(ctx, rec)
		if err != nil {
			logger.Debug(ctx, "resolution strategy unavailable",
				zap.String("source", string(s.Source())), zap.Error(err))

			continue
		}

		for _, host := range candidates {
			if ctx.Err() != nil {
				return domain.NotResolved("resolution interrupted")
			}
			if r.verifier.Reachable(ctx, host) {
				return domain.DomainResolution{Domain: host, Source: s.Source(), Verified: true}
			}
		}
	}

	return domain.NotResolved("no reachable candidate")
}

// Compile-time checks that the shipped strategies satisfy Strategy.
var (
	_ Strategy = (*SearchStrategy)(nil)
	_ Strategy = GuessStrategy{}
	_ Verifier = (*webpage.Fetcher)(nil)
)
