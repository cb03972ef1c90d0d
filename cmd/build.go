package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/config"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/export"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/pipeline"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/registry"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/resolver"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/scoring"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/sitescan"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/keypool"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/search/serpapi"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/search/serper"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/webpage"
)

// getRegistry creates the registry client from configuration values.
func getRegistry(cfg *config.Config) *registry.Client {
	return registry.New(&http.Client{Timeout: cfg.Registry.Timeout}, registry.Options{
		BaseURL:  cfg.Registry.BaseURL,
		PerPage:  cfg.Registry.PerPage,
		MaxPages: cfg.Registry.MaxPages,
	})
}

// getResolver assembles the resolution strategy chain in priority order:
// serper, then SerpAPI, then name-pattern guessing. The returned pool is nil
// when no serper credentials are configured.
func getResolver(cfg *config.Config, fetcher *webpage.Fetcher) (*resolver.Resolver, *keypool.Pool) {
	searchClient := &http.Client{Timeout: cfg.Scan.Timeout}

	var strategies []resolver.Strategy
	var pool *keypool.Pool
	if cfg.Search.UseSerper {
		pool = keypool.New(cfg.SerperTokens())
		client := serper.New(searchClient, serper.Options{
			Num: 1,
			HL:  cfg.Search.HL,
			GL:  cfg.Search.GL,
		})
		strategies = append(strategies, resolver.NewSearchStrategy(client, pool))
	}
	if cfg.Search.UseSerpAPI {
		client := serpapi.New(searchClient, serpapi.Options{
			Engine: cfg.Search.Engine,
			Num:    cfg.Search.Num,
			HL:     cfg.Search.HL,
			GL:     cfg.Search.GL,
		})
		strategies = append(strategies, resolver.NewSearchStrategy(client, keypool.New([]string{cfg.Search.SerpAPIKey})))
	}
	strategies = append(strategies, resolver.GuessStrategy{})

	return resolver.New(fetcher, strategies), pool
}

func buildCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Collects companies from the registry, resolves and scans their websites, and exports the scored list",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			regClient := getRegistry(cfg)
			trancheCodes := allowedTrancheCodes(cfg)

			logger.Info(ctx, "collecting registry records",
				zap.Strings("naf_codes", cfg.Filter.NAFCodes),
				zap.Strings("tranche_codes", trancheCodes))

			records, err := regClient.Collect(ctx, cfg.Filter.NAFCodes, trancheCodes)
			if err != nil {
				logger.Fatal(ctx, "could not collect registry records", zap.Error(err))
			}
			logger.Info(ctx, "registry collection done", zap.Int("unique_companies", len(records)))

			fetcher := webpage.New(webpage.Options{
				Timeout:      cfg.Scan.Timeout,
				MaxRedirects: cfg.Scan.MaxRedirects,
				MaxBodyBytes: cfg.Scan.MaxBodyBytes,
				UserAgent:    cfg.Scan.UserAgent,
			})
			res, pool := getResolver(cfg, fetcher)
			scanner := sitescan.New(fetcher, sitescan.Options{
				CandidatePaths: cfg.Scan.CandidatePaths,
				MaxPages:       cfg.Scan.MaxPages,
				MinPageBytes:   cfg.Scan.MinPageBytes,
				SiteKeywords:   cfg.Keywords.Site,
				JobIndicators:  cfg.Keywords.JobIndicators,
			})
			engine := scoring.New(scoring.Options{
				TargetNAFPrefixes: cfg.Filter.TargetNAFPrefixes,
				NameKeywords:      cfg.Keywords.Name,
				MinEmp:            cfg.Filter.MinEmp,
				MaxEmp:            cfg.Filter.MaxEmp,
				Weights: scoring.Weights{
					NAF:         cfg.Scoring.NAFWeight,
					NameKeyword: cfg.Scoring.NameKeywordWeight,
					SiteKeyword: cfg.Scoring.SiteKeywordWeight,
					JobPosting:  cfg.Scoring.JobPostingWeight,
					Size:        cfg.Scoring.SizeWeight,
				},
				Thresholds: scoring.Thresholds{
					Strong:   cfg.Scoring.StrongThreshold,
					Possible: cfg.Scoring.PossibleThreshold,
				},
			})

			p := pipeline.New(registry.NewFeed(records), res, scanner, engine, pool, pipeline.Options{
				ExcludeOverEmp:       cfg.Filter.ExcludeOverEmp,
				IncludeZeroEmployees: cfg.Filter.IncludeZeroEmployees,
				ScanEnabled:          cfg.Scan.Enabled,
				MaxRecords:           cfg.Pipeline.MaxRecords,
				Politeness:           cfg.Pipeline.Sleep,
			})

			out, runErr := p.Run(ctx)
			if runErr != nil {
				logger.Warn(ctx, "run ended early, exporting partial result", zap.Error(runErr))
			}

			if err := export.Write(cfg.Output.File, out.Records); err != nil {
				logger.Fatal(ctx, "could not write output", zap.Error(err))
			}
			logger.Info(ctx, "wrote output",
				zap.String("file", cfg.Output.File),
				zap.Int("rows", len(out.Records)))

			if cfg.Output.StrongSubset {
				subsetPath, n, err := export.WriteStrongSubset(cfg.Output.File, out.Records)
				if err != nil {
					logger.Fatal(ctx, "could not write strong subset", zap.Error(err))
				}
				logger.Info(ctx, "wrote strong subset", zap.String("file", subsetPath), zap.Int("rows", n))
			}

			logSummary(ctx, out)
		},
	}

	return cmd
}

// allowedTrancheCodes builds the server-side workforce filter from the
// exclusion ceiling. A disabled ceiling means no filter.
func allowedTrancheCodes(cfg *config.Config) []string {
	if cfg.Filter.ExcludeOverEmp < 0 {
		return nil
	}

	return domain.AllowedTrancheCodes(cfg.Filter.ExcludeOverEmp)
}

func logSummary(ctx context.Context, out *pipeline.Result) {
	logger.Info(ctx, "run summary",
		zap.String("run", out.RunID),
		zap.Int("processed", out.Summary.Processed),
		zap.Int("skipped_zero_employees", out.Summary.SkippedZero),
		zap.Int("skipped_over_ceiling", out.Summary.SkippedSize),
		zap.Int("resolved", out.Summary.Resolved),
		zap.Int("no_domain", out.Summary.NoDomain),
		zap.Int("strong", out.Summary.Strong),
		zap.Int("possible", out.Summary.Possible),
		zap.Int("search_requests", out.Summary.SearchRequests))

	for _, usage := range out.Summary.KeyUsage {
		logger.Info(ctx, "credential usage",
			zap.String("key", usage.MaskedToken),
			zap.Int("requests", usage.Requests),
			zap.Bool("exhausted", usage.Exhausted))
	}
}
