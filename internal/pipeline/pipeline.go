// Package pipeline orchestrates the enrichment run: it pulls company records
// from a source, resolves a web domain for each, scans the resolved site for
// relevance signals and scores the result. Failures on one record never stop
// the run; they degrade to a record scored on whatever evidence was gathered.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/scoring"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
)

// Source yields company records one at a time. ok is false once drained.
type Source interface {
	Next(ctx context.Context) (domain.BusinessRecord, bool, error)
}

// DomainResolver finds and verifies a web domain for a record. It never
// fails; an unresolvable record comes back with an unresolved result.
type DomainResolver interface {
	Resolve(ctx context.Context, rec domain.BusinessRecord, knownDomain string) domain.DomainResolution
}

// SiteScanner extracts relevance signals from a resolved site. It never
// fails; an unreachable site yields empty signals.
type SiteScanner interface {
	Scan(ctx context.Context, host string) domain.SiteSignals
}

// Options configure a run.
type Options struct {
	// ExcludeOverEmp drops records whose workforce bracket sits strictly
	// above this many employees before any network work. Negative disables
	// the ceiling.
	ExcludeOverEmp int
	// IncludeZeroEmployees keeps records whose bracket indicates no staff.
	IncludeZeroEmployees bool
	// ScanEnabled controls whether resolved sites are scanned for signals.
	ScanEnabled bool
	// MaxRecords caps the number of records processed. Zero means no cap.
	MaxRecords int
	// Politeness is the minimum spacing between records that hit the
	// network. Zero disables pacing.
	Politeness time.Duration
	// KnownDomains maps SIREN to an already known domain, tried before any
	// search provider.
	KnownDomains map[string]string
}

// Summary aggregates run-level counters.
type Summary struct {
	Processed      int
	SkippedZero    int
	SkippedSize    int
	Resolved       int
	NoDomain       int
	Strong         int
	Possible       int
	SearchRequests int
	KeyUsage       []keypool.Usage
}

// Result is the outcome of a run: scored records in descending score order
// plus the counters.
type Result struct {
	RunID   string
	Records []domain.ScoredRecord
	Summary Summary
}

// Pipeline wires the stages together.
type Pipeline struct {
	source   Source
	resolver DomainResolver
	scanner  SiteScanner
	engine   *scoring.Engine
	pool     *keypool.Pool
	limiter  *rate.Limiter
	opts     Options
}

// New constructs a Pipeline. pool may be nil when no search provider is
// configured; it is only read for the usage summary.
func New(source Source, resolver DomainResolver, scanner SiteScanner, engine *scoring.Engine, pool *keypool.Pool, opts Options) *Pipeline {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Politeness > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Politeness), 1)
	}

	return &Pipeline{
		source:   source,
		resolver: resolver,
		scanner:  scanner,
		engine:   engine,
		pool:     pool,
		limiter:  limiter,
		opts:     opts,
	}
}

// Run drains the source and returns the scored result. A context
// cancellation or a source failure returns the partial result alongside the
// error; everything scored so far stays usable.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	ctx = logger.WithFields(ctx, zap.String("run", res.RunID))

	for {
		if p.opts.MaxRecords > 0 && res.Summary.Processed >= p.opts.MaxRecords {
			logger.Info(ctx, "record cap reached", zap.Int("max_records", p.opts.MaxRecords))

			break
		}

		rec, ok, err := p.source.Next(ctx)
		if err != nil {
			p.finish(res)

			return res, fmt.Errorf("could not read next record: %w", err)
		}
		if !ok {
			break
		}

		rctx := logger.WithFields(ctx, zap.String("siren", rec.SIREN))

		// Size exclusions run before any network work.
		if !p.opts.IncludeZeroEmployees && rec.Tranche.IndicatesZero() {
			res.Summary.SkippedZero++
			logger.Debug(rctx, "skipping record, zero employees", zap.String("tranche", string(rec.Tranche)))

			continue
		}
		if p.opts.ExcludeOverEmp >= 0 && rec.Tranche.Above(p.opts.ExcludeOverEmp) {
			res.Summary.SkippedSize++
			logger.Debug(rctx, "skipping record, above workforce ceiling",
				zap.String("tranche", string(rec.Tranche)),
				zap.Int("ceiling", p.opts.ExcludeOverEmp))

			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			p.finish(res)

			return res, fmt.Errorf("run interrupted: %w", err)
		}

		res.Records = append(res.Records, p.process(rctx, rec, res))
		res.Summary.Processed++
	}

	p.finish(res)
	logger.Info(ctx, "run finished",
		zap.Int("processed", res.Summary.Processed),
		zap.Int("skipped_zero", res.Summary.SkippedZero),
		zap.Int("skipped_size", res.Summary.SkippedSize),
		zap.Int("no_domain", res.Summary.NoDomain),
		zap.Int("strong", res.Summary.Strong))

	return res, nil
}

// process runs resolution, scanning and scoring for one record.
func (p *Pipeline) process(ctx context.Context, rec domain.BusinessRecord, res *Result) domain.ScoredRecord {
	resolution := p.resolver.Resolve(ctx, rec, p.opts.KnownDomains[rec.SIREN])

	var sig domain.SiteSignals
	if resolution.Found() {
		res.Summary.Resolved++
		if p.opts.ScanEnabled {
			sig = p.scanner.Scan(ctx, resolution.Domain)
		}
	} else {
		res.Summary.NoDomain++
	}
	sig.NameKeywords = p.engine.MatchNameKeywords(rec)

	ev := p.engine.Evaluate(rec, resolution, sig)
	if ev.Strong {
		res.Summary.Strong++
	}
	if ev.Possible {
		res.Summary.Possible++
	}

	logger.Info(ctx, "record scored",
		zap.String("name", rec.Name()),
		zap.String("domain", resolution.Domain),
		zap.String("source", string(resolution.Source)),
		zap.Int("score", ev.Score),
		zap.Bool("strong", ev.Strong))

	return domain.ScoredRecord{
		Record:     rec,
		Resolution: resolution,
		Signals:    sig,
		Evaluation: ev,
	}
}

// finish sorts the records by descending score (stable, so equal scores keep
// their processing order) and snapshots credential usage.
func (p *Pipeline) finish(res *Result) {
	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].Evaluation.Score > res.Records[j].Evaluation.Score
	})
	if p.pool != nil {
		res.Summary.KeyUsage = p.pool.Summary()
		res.Summary.SearchRequests = p.pool.TotalRequests()
	}
}
