package resolver_test

import (
	"context"
	"testing"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/resolver"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func init() {
	logger.Setup(logger.DevelopmentEnvironment)
}

// fakeVerifier treats the listed hosts as reachable.
type fakeVerifier struct {
	reachable map[string]bool
	checks    []string
}

func (v *fakeVerifier) Reachable(_ context.Context, host string) bool {
	v.checks = append(v.checks, host)

	return v.reachable[host]
}

// fakeStrategy returns fixed candidates and counts invocations.
type fakeStrategy struct {
	source     domain.Source
	candidates []string
	err        error
	calls      int
}

func (s *fakeStrategy) Source() domain.Source { return s.source }

func (s *fakeStrategy) Candidates(context.Context, domain.BusinessRecord) ([]string, error) {
	s.calls++

	return s.candidates, s.err
}

// fakeProvider scripts FindDomain responses per token.
type fakeProvider struct {
	responses map[string]string // token -> host; missing token means quota exceeded
	calls     int
}

func (p *fakeProvider) Source() domain.Source { return domain.SourceSerper }

func (p *fakeProvider) FindDomain(_ context.Context, token, _ string) (string, error) {
	p.calls++
	if host, ok := p.responses[token]; ok {
		return host, nil
	}

	return "", serrors.KindOnly(serrors.ErrQuotaExceeded)
}

func record() domain.BusinessRecord {
	return domain.BusinessRecord{SIREN: "123456789", LegalName: "ACME CONSEIL", NAF: "62.02A"}
}

func TestResolveKnownDomainShortCircuits(t *testing.T) {
	v := &fakeVerifier{reachable: map[string]bool{"acme.fr": true}}
	strategy := &fakeStrategy{source: domain.SourceSerper, candidates: []string{"other.fr"}}
	r := resolver.New(v, []resolver.Strategy{strategy})

	res := r.Resolve(context.Background(), record(), "acme.fr")
	require.True(t, res.Found())
	require.Equal(t, "acme.fr", res.Domain)
	require.Equal(t, domain.SourcePreexisting, res.Source)
	require.Zero(t, strategy.calls, "no search strategy may run when the known domain is reachable")
}

func TestResolveKnownDomainUnreachableFallsThrough(t *testing.T) {
	v := &fakeVerifier{reachable: map[string]bool{"fallback.fr": true}}
	strategy := &fakeStrategy{source: domain.SourceSerper, candidates: []string{"fallback.fr"}}
	r := resolver.New(v, []resolver.Strategy{strategy})

	res := r.Resolve(context.Background(), record(), "dead.fr")
	require.True(t, res.Found())
	require.Equal(t, "fallback.fr", res.Domain)
	require.Equal(t, domain.SourceSerper, res.Source)
	require.Equal(t, 1, strategy.calls)
}

func TestResolveStrategyOrder(t *testing.T) {
	v := &fakeVerifier{reachable: map[string]bool{"first.fr": true, "second.fr": true}}
	first := &fakeStrategy{source: domain.SourceSerper, candidates: []string{"first.fr"}}
	second := &fakeStrategy{source: domain.SourceGuess, candidates: []string{"second.fr"}}
	r := resolver.New(v, []resolver.Strategy{first, second})

	res := r.Resolve(context.Background(), record(), "")
	require.Equal(t, "first.fr", res.Domain)
	require.Zero(t, second.calls, "resolution short-circuits on the first verified candidate")
}

func TestResolveStrategyErrorDegrades(t *testing.T) {
	v := &fakeVerifier{reachable: map[string]bool{"guessed.fr": true}}
	failing := &fakeStrategy{source: domain.SourceSerper, err: serrors.KindOnly(serrors.ErrNoCredentials)}
	guess := &fakeStrategy{source: domain.SourceGuess, candidates: []string{"guessed.fr"}}
	r := resolver.New(v, []resolver.Strategy{failing, guess})

	res := r.Resolve(context.Background(), record(), "")
	require.True(t, res.Found())
	require.Equal(t, domain.SourceGuess, res.Source)
}

func TestResolveNothingFound(t *testing.T) {
	v := &fakeVerifier{reachable: map[string]bool{}}
	strategy := &fakeStrategy{source: domain.SourceGuess, candidates: []string{"a.fr", "b.fr"}}
	r := resolver.New(v, []resolver.Strategy{strategy})

	res := r.Resolve(context.Background(), record(), "")
	require.False(t, res.Found())
	require.Empty(t, res.Domain)
	require.Equal(t, domain.SourceNone, res.Source)
	require.Equal(t, "no reachable candidate", res.Reason)
}

func TestSearchStrategyRotatesOnQuota(t *testing.T) {
	pool := keypool.New([]string{"key-1-aaaaaaaaaaaa", "key-2-bbbbbbbbbbbb", "key-3-cccccccccccc"})
	provider := &fakeProvider{responses: map[string]string{"key-3-cccccccccccc": "acme.fr"}}
	s := resolver.NewSearchStrategy(provider, pool)

	hosts, err := s.Candidates(context.Background(), record())
	require.NoError(t, err)
	require.Equal(t, []string{"acme.fr"}, hosts)
	require.Equal(t, 3, provider.calls, "two exhausted keys rotate before the third succeeds")
	require.Equal(t, 3, pool.TotalRequests(), "every dispatched call is counted")
}

func TestSearchStrategyAllExhausted(t *testing.T) {
	pool := keypool.New([]string{"key-1-aaaaaaaaaaaa", "key-2-bbbbbbbbbbbb"})
	provider := &fakeProvider{responses: map[string]string{}}
	s := resolver.NewSearchStrategy(provider, pool)

	_, err := s.Candidates(context.Background(), record())
	require.ErrorIs(t, err, serrors.ErrNoCredentials)
	require.Equal(t, 2, provider.calls, "retries are bounded by the pool size")

	// The exhaustion is permanent: a later record does not retry.
	_, err = s.Candidates(context.Background(), record())
	require.ErrorIs(t, err, serrors.ErrNoCredentials)
	require.Equal(t, 2, provider.calls)
}

func TestGuessStrategyCapsCandidates(t *testing.T) {
	hosts, err := resolver.GuessStrategy{}.Candidates(context.Background(), domain.BusinessRecord{
		LegalName: "Bureau Etudes Dupont",
	})
	require.NoError(t, err)
	require.LessOrEqual(t, len(hosts), 3)
	require.NotEmpty(t, hosts)
}
