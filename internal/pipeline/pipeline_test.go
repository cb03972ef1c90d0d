package pipeline_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/pipeline"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/scoring"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	os.Exit(m.Run())
}

type sliceSource struct {
	records []domain.BusinessRecord
	pos     int
	failAt  int // 1-based position that returns an error, 0 disables
}

func (s *sliceSource) Next(_ context.Context) (domain.BusinessRecord, bool, error) {
	s.pos++
	if s.failAt > 0 && s.pos == s.failAt {
		return domain.BusinessRecord{}, false, errors.New("source exploded")
	}
	if s.pos > len(s.records) {
		return domain.BusinessRecord{}, false, nil
	}

	return s.records[s.pos-1], true, nil
}

type fakeResolver struct {
	domains map[string]string // siren -> domain
	known   map[string]string // siren -> knownDomain argument received
	calls   int
}

func (r *fakeResolver) Resolve(_ context.Context, rec domain.BusinessRecord, knownDomain string) domain.DomainResolution {
	r.calls++
	if r.known == nil {
		r.known = map[string]string{}
	}
	r.known[rec.SIREN] = knownDomain

	if d, ok := r.domains[rec.SIREN]; ok {
		return domain.DomainResolution{Domain: d, Source: domain.SourceSerper, Verified: true, Reason: "found"}
	}

	return domain.NotResolved("no reachable candidate")
}

type fakeScanner struct {
	signals map[string]domain.SiteSignals // host -> signals
	calls   int
}

func (s *fakeScanner) Scan(_ context.Context, host string) domain.SiteSignals {
	s.calls++

	return s.signals[host]
}

func testEngine() *scoring.Engine {
	return scoring.New(scoring.Options{
		TargetNAFPrefixes: []string{"62.02"},
		NameKeywords:      []string{"conseil"},
		MinEmp:            10,
		MaxEmp:            500,
	})
}

func TestRunScoresAndOrdersByDescendingScore(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "ALPHA", NAF: "62.02A", Tranche: "22"},
		{SIREN: "100000002", LegalName: "BETA", NAF: "62.02A", Tranche: "22"},
		{SIREN: "100000003", LegalName: "GAMMA", NAF: "62.02A", Tranche: "22"},
		{SIREN: "100000004", LegalName: "DELTA", NAF: "47.11F", Tranche: "22"},
	}}
	res := &fakeResolver{domains: map[string]string{"100000002": "beta.fr"}}
	scan := &fakeScanner{signals: map[string]domain.SiteSignals{
		"beta.fr": {JobPosting: true, PagesScanned: 2},
	}}

	p := pipeline.New(source, res, scan, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: 2000,
		ScanEnabled:    true,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 4)
	require.NotEmpty(t, out.RunID)

	// naf+size+job = 9, then the two naf+size = 5 in processing order, then
	// size only = 2.
	scores := make([]int, 0, 4)
	names := make([]string, 0, 4)
	for _, r := range out.Records {
		scores = append(scores, r.Evaluation.Score)
		names = append(names, r.Record.LegalName)
	}
	require.Equal(t, []int{9, 5, 5, 2}, scores)
	require.Equal(t, []string{"BETA", "ALPHA", "GAMMA", "DELTA"}, names)

	require.Equal(t, 4, out.Summary.Processed)
	require.Equal(t, 1, out.Summary.Resolved)
	require.Equal(t, 3, out.Summary.NoDomain)
	require.Equal(t, 1, out.Summary.Strong)
	require.Equal(t, 1, scan.calls)
}

func TestRunExcludesBeforeAnyNetworkWork(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "EMPTY", NAF: "62.02A", Tranche: "00"},
		{SIREN: "100000002", LegalName: "HUGE", NAF: "62.02A", Tranche: "53"},
	}}
	res := &fakeResolver{}
	scan := &fakeScanner{}

	p := pipeline.New(source, res, scan, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: 2000,
		ScanEnabled:    true,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.Records)
	require.Zero(t, res.calls)
	require.Zero(t, scan.calls)
	require.Equal(t, 1, out.Summary.SkippedZero)
	require.Equal(t, 1, out.Summary.SkippedSize)
	require.Zero(t, out.Summary.Processed)
}

func TestRunCeilingDisabledBySentinel(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "HUGE", NAF: "62.02A", Tranche: "53"},
	}}
	res := &fakeResolver{}

	p := pipeline.New(source, res, &fakeScanner{}, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: -1,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	require.Equal(t, 1, res.calls)
}

func TestRunIncludesZeroEmployeesWhenAsked(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "EMPTY", NAF: "62.02A", Tranche: "00"},
	}}

	p := pipeline.New(source, &fakeResolver{}, &fakeScanner{}, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp:       2000,
		IncludeZeroEmployees: true,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	require.Zero(t, out.Summary.SkippedZero)
}

func TestRunHonorsRecordCap(t *testing.T) {
	t.Parallel()

	records := make([]domain.BusinessRecord, 5)
	for i := range records {
		records[i] = domain.BusinessRecord{SIREN: "10000000" + string(rune('1'+i)), NAF: "62.02A", Tranche: "22"}
	}
	source := &sliceSource{records: records}
	res := &fakeResolver{}

	p := pipeline.New(source, res, &fakeScanner{}, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: -1,
		MaxRecords:     2,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	require.Equal(t, 2, out.Summary.Processed)
	require.Equal(t, 2, res.calls)
}

func TestRunPassesKnownDomainToResolver(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "ALPHA", NAF: "62.02A", Tranche: "22"},
	}}
	res := &fakeResolver{}

	p := pipeline.New(source, res, &fakeScanner{}, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: -1,
		KnownDomains:   map[string]string{"100000001": "alpha.fr"},
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alpha.fr", res.known["100000001"])
}

func TestRunSkipsScanWhenDisabled(t *testing.T) {
	t.Parallel()

	source := &sliceSource{records: []domain.BusinessRecord{
		{SIREN: "100000001", LegalName: "ALPHA", NAF: "62.02A", Tranche: "22"},
	}}
	res := &fakeResolver{domains: map[string]string{"100000001": "alpha.fr"}}
	scan := &fakeScanner{}

	p := pipeline.New(source, res, scan, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: -1,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, scan.calls)
	require.Equal(t, 1, out.Summary.Resolved)
}

func TestRunSourceFailureReturnsPartialResult(t *testing.T) {
	t.Parallel()

	source := &sliceSource{
		records: []domain.BusinessRecord{
			{SIREN: "100000001", LegalName: "ALPHA", NAF: "62.02A", Tranche: "22"},
			{SIREN: "100000002", LegalName: "BETA", NAF: "62.02A", Tranche: "22"},
		},
		failAt: 2,
	}

	p := pipeline.New(source, &fakeResolver{}, &fakeScanner{}, testEngine(), nil, pipeline.Options{
		ExcludeOverEmp: -1,
	})

	out, err := p.Run(context.Background())
	require.Error(t, err)
	require.Len(t, out.Records, 1)
	require.Equal(t, "ALPHA", out.Records[0].Record.LegalName)
}

func TestRunReportsCredentialUsage(t *testing.T) {
	t.Parallel()

	pool := keypool.New([]string{"serper-key-0001", "serper-key-0002"})
	tok, err := pool.Current()
	require.NoError(t, err)
	pool.RecordUsage(tok)

	source := &sliceSource{}
	p := pipeline.New(source, &fakeResolver{}, &fakeScanner{}, testEngine(), pool, pipeline.Options{
		ExcludeOverEmp: -1,
	})

	out, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Summary.KeyUsage, 2)
	require.Equal(t, 1, out.Summary.SearchRequests)
}
