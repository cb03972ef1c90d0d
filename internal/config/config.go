// Package config loads and validates the application configuration from a
// YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

// Default keyword sets (French) used when the configuration provides none.
// They target ESN / consulting / staffing companies.
var (
	defaultNameKeywords = []string{ //nolint: gochecknoglobals
		"esn", "ssii", "société de service", "bureau d'études", "ingenierie", "ingénierie",
		"conseil", "consulting", "staffing", "placement", "staff augmentation", "intérim",
		"recrutement",
	}
	defaultSiteKeywords = []string{ //nolint: gochecknoglobals
		"consultant", "consultants", "mission", "missions", "recrutement",
		"ingénieur d'affaires", "ingenieur d'affaires", "business developer", "account manager",
		"commercial sédentaire", "placement", "staffing", "consulting", "bureau d'études",
		"solutions engineering", "staff augmentation", "assistance technique",
	}
	defaultJobIndicators = []string{ //nolint: gochecknoglobals
		"offre", "recrutement", "carriere", "carrières", "careers", "job",
		"poste", "recrute", "candidat", "join us",
	}
	defaultCandidatePaths = []string{ //nolint: gochecknoglobals
		"/services", "/service", "/recrutement", "/carriere", "/carrieres", "/careers",
		"/jobs", "/offres", "/offres-demploi", "/offre", "/join-us",
	}
	defaultTargetNAFPrefixes = []string{"71.12", "62.02", "70.22", "78"} //nolint: gochecknoglobals
)

// Config represents the application configuration structure.
type Config struct {
	// Environment specifies the current running environment (development, production).
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// Registry configures the business-registry source.
	Registry struct {
		// BaseURL of the recherche-entreprises search endpoint.
		BaseURL string `env:"REGISTRY_BASE_URL" env-default:"https://recherche-entreprises.api.gouv.fr/search" yaml:"baseURL"`
		// PerPage is the page size requested from the registry (the API caps it at 25).
		PerPage int `env:"REGISTRY_PER_PAGE" env-default:"25" yaml:"perPage"`
		// MaxPages caps how many pages are fetched per NAF code.
		MaxPages int `env:"REGISTRY_MAX_PAGES" env-default:"5" yaml:"maxPages"`
		// Timeout bounds each registry call.
		Timeout time.Duration `env:"REGISTRY_TIMEOUT" env-default:"20s" yaml:"timeout"`
	} `yaml:"registry"`

	// Filter selects and bounds the records entering the pipeline.
	Filter struct {
		// NAFCodes are the collection codes or prefixes, e.g. 62.02A,71.12B.
		NAFCodes []string `env:"NAF_CODES" env-separator:"," env-default:"62.02A,71.12B" yaml:"nafCodes"`
		// TargetNAFPrefixes is the refined prefix list used for scoring.
		TargetNAFPrefixes []string `env:"TARGET_NAF_PREFIXES" env-separator:"," yaml:"targetNAFPrefixes"`
		// MinEmp and MaxEmp bound the employee bracket considered a size fit.
		MinEmp int `env:"MIN_EMP" env-default:"10" yaml:"minEmp"`
		MaxEmp int `env:"MAX_EMP" env-default:"500" yaml:"maxEmp"`
		// ExcludeOverEmp is the hard pre-resolution exclusion ceiling; -1 disables it.
		ExcludeOverEmp int `env:"EXCLUDE_OVER_EMP" env-default:"2000" yaml:"excludeOverEmp"`
		// IncludeZeroEmployees keeps companies whose bracket indicates zero employees.
		IncludeZeroEmployees bool `env:"INCLUDE_ZERO_EMPLOYEES" env-default:"false" yaml:"includeZeroEmployees"`
	} `yaml:"filter"`

	// Search configures the external domain-search strategies.
	Search struct {
		// UseSerper enables the serper.dev strategy.
		UseSerper bool `env:"USE_SERPER" env-default:"false" yaml:"useSerper"`
		// SerperKeys is the ordered credential list for the rotation pool.
		SerperKeys []string `env:"SERPER_API_KEYS" env-separator:"," yaml:"serperKeys"`
		// SerperKey is the legacy single-key form, used when SerperKeys is empty.
		SerperKey string `env:"SERPER_API_KEY" yaml:"serperKey"`
		// UseSerpAPI enables the SerpAPI strategy.
		UseSerpAPI bool `env:"USE_SERPAPI" env-default:"false" yaml:"useSerpAPI"`
		// SerpAPIKey is the SerpAPI credential.
		SerpAPIKey string `env:"SERPAPI_KEY" yaml:"serpAPIKey"`
		// Engine is the SerpAPI engine.
		Engine string `env:"SERPAPI_ENGINE" env-default:"google" yaml:"engine"`
		// Num is how many results to inspect per SerpAPI query.
		Num int `env:"SERPAPI_NUM" env-default:"5" yaml:"num"`
		// HL and GL bias results toward French language and locale.
		HL string `env:"SEARCH_HL" env-default:"fr" yaml:"hl"`
		GL string `env:"SEARCH_GL" env-default:"fr" yaml:"gl"`
	} `yaml:"search"`

	// Scan configures site fetching and signal detection.
	Scan struct {
		// Enabled toggles all website fetching; disabling it validates registry
		// connectivity quickly.
		Enabled bool `env:"WEB_SCAN" env-default:"true" yaml:"enabled"`
		// MaxPages caps total fetches per domain (homepage + sub-paths).
		MaxPages int `env:"SCAN_MAX_PAGES" env-default:"5" yaml:"maxPages"`
		// MinPageBytes skips sub-pages smaller than this as stubs.
		MinPageBytes int `env:"SCAN_MIN_PAGE_BYTES" env-default:"1000" yaml:"minPageBytes"`
		// CandidatePaths are the sub-paths probed on a resolved domain.
		CandidatePaths []string `env:"SCAN_CANDIDATE_PATHS" env-separator:"," yaml:"candidatePaths"`
		// Timeout bounds each page fetch.
		Timeout time.Duration `env:"SCAN_TIMEOUT" env-default:"15s" yaml:"timeout"`
		// MaxRedirects caps redirect following per fetch.
		MaxRedirects int `env:"SCAN_MAX_REDIRECTS" env-default:"5" yaml:"maxRedirects"`
		// MaxBodyBytes caps how much of a page body is read.
		MaxBodyBytes int64 `env:"SCAN_MAX_BODY_BYTES" env-default:"2097152" yaml:"maxBodyBytes"`
		// UserAgent identifies the pipeline to probed sites.
		UserAgent string `env:"SCAN_USER_AGENT" env-default:"ESN-Discovery/1.0 (+https://example.com)" yaml:"userAgent"`
	} `yaml:"scan"`

	// Keywords configures the detection sets; empty lists fall back to the
	// built-in French defaults.
	Keywords struct {
		Name          []string `env:"NAME_KEYWORDS" env-separator:"," yaml:"name"`
		Site          []string `env:"SITE_KEYWORDS" env-separator:"," yaml:"site"`
		JobIndicators []string `env:"JOB_INDICATORS" env-separator:"," yaml:"jobIndicators"`
	} `yaml:"keywords"`

	// Scoring configures the weighted rules and thresholds.
	Scoring struct {
		NAFWeight         int `env:"SCORE_NAF" env-default:"3" yaml:"nafWeight"`
		NameKeywordWeight int `env:"SCORE_NAME_KEYWORD" env-default:"2" yaml:"nameKeywordWeight"`
		SiteKeywordWeight int `env:"SCORE_SITE_KEYWORD" env-default:"3" yaml:"siteKeywordWeight"`
		JobPostingWeight  int `env:"SCORE_JOB_POSTING" env-default:"4" yaml:"jobPostingWeight"`
		SizeWeight        int `env:"SCORE_SIZE" env-default:"2" yaml:"sizeWeight"`
		// StrongThreshold and PossibleThreshold derive the meets-threshold flags.
		StrongThreshold   int `env:"THRESHOLD_STRONG" env-default:"7" yaml:"strongThreshold"`
		PossibleThreshold int `env:"THRESHOLD_POSSIBLE" env-default:"4" yaml:"possibleThreshold"`
	} `yaml:"scoring"`

	// Pipeline configures orchestration.
	Pipeline struct {
		// Sleep is the politeness delay between records that issued network calls.
		Sleep time.Duration `env:"SLEEP" env-default:"600ms" yaml:"sleep"`
		// MaxRecords is a hard cap on records processed per run; 0 means no cap.
		MaxRecords int `env:"MAX_RECORDS" env-default:"0" yaml:"maxRecords"`
	} `yaml:"pipeline"`

	// Output configures the export.
	Output struct {
		// File is the main export path; .xlsx selects the Excel writer,
		// anything else CSV.
		File string `env:"OUTFILE" env-default:"esn_candidates.csv" yaml:"file"`
		// StrongSubset also writes the strong-threshold subset next to File.
		StrongSubset bool `env:"OUTFILE_STRONG_SUBSET" env-default:"true" yaml:"strongSubset"`
	} `yaml:"output"`
}

// Load receives the path for a yaml config file and returns a filled Config
// struct with keyword/path defaults applied. A missing file is not an error:
// the environment alone is enough to configure a run.
func Load(configPath string) (*Config, error) {
	var cfg Config
	var err error
	if _, statErr := os.Stat(configPath); statErr == nil {
		err = cleanenv.ReadConfig(configPath, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills list options that cleanenv cannot express as tag
// defaults.
func (c *Config) applyDefaults() {
	if len(c.Filter.TargetNAFPrefixes) == 0 {
		c.Filter.TargetNAFPrefixes = defaultTargetNAFPrefixes
	}
	if len(c.Keywords.Name) == 0 {
		c.Keywords.Name = defaultNameKeywords
	}
	if len(c.Keywords.Site) == 0 {
		c.Keywords.Site = defaultSiteKeywords
	}
	if len(c.Keywords.JobIndicators) == 0 {
		c.Keywords.JobIndicators = defaultJobIndicators
	}
	if len(c.Scan.CandidatePaths) == 0 {
		c.Scan.CandidatePaths = defaultCandidatePaths
	}
}

// SerperTokens returns the ordered credential list for the rotation pool,
// accepting the legacy single-key form as a one-element list.
func (c *Config) SerperTokens() []string {
	if len(c.Search.SerperKeys) > 0 {
		return c.Search.SerperKeys
	}
	if c.Search.SerperKey != "" {
		return []string{c.Search.SerperKey}
	}

	return nil
}

// Validate checks for configuration errors that must abort the run before
// any processing begins. All violations are reported as ErrBadRequest.
func (c *Config) Validate() error {
	if len(c.Filter.NAFCodes) == 0 {
		return serrors.With(serrors.ErrBadRequest, "at least one NAF code is required")
	}
	if c.Filter.MinEmp < 0 || c.Filter.MaxEmp < c.Filter.MinEmp {
		return serrors.With(serrors.ErrBadRequest,
			"invalid employee bounds: min %d, max %d", c.Filter.MinEmp, c.Filter.MaxEmp)
	}
	if c.Filter.ExcludeOverEmp < -1 {
		return serrors.With(serrors.ErrBadRequest,
			"invalid exclusion ceiling %d: use -1 to disable", c.Filter.ExcludeOverEmp)
	}
	for name, w := range map[string]int{
		"naf":          c.Scoring.NAFWeight,
		"name_keyword": c.Scoring.NameKeywordWeight,
		"site_keyword": c.Scoring.SiteKeywordWeight,
		"job_posting":  c.Scoring.JobPostingWeight,
		"size":         c.Scoring.SizeWeight,
	} {
		if w < 0 {
			return serrors.With(serrors.ErrBadRequest, "negative weight for %s: %d", name, w)
		}
	}
	maxScore := c.Scoring.NAFWeight + c.Scoring.NameKeywordWeight + c.Scoring.SiteKeywordWeight +
		c.Scoring.JobPostingWeight + c.Scoring.SizeWeight
	if c.Scoring.PossibleThreshold < 0 || c.Scoring.StrongThreshold < c.Scoring.PossibleThreshold {
		return serrors.With(serrors.ErrBadRequest,
			"invalid thresholds: strong %d must be >= possible %d >= 0",
			c.Scoring.StrongThreshold, c.Scoring.PossibleThreshold)
	}
	if c.Scoring.StrongThreshold > maxScore {
		return serrors.With(serrors.ErrBadRequest,
			"strong threshold %d exceeds the maximum reachable score %d", c.Scoring.StrongThreshold, maxScore)
	}
	if c.Search.UseSerper && len(c.SerperTokens()) == 0 {
		return serrors.With(serrors.ErrBadRequest, "serper strategy enabled but no API key configured")
	}
	if c.Search.UseSerpAPI && c.Search.SerpAPIKey == "" {
		return serrors.With(serrors.ErrBadRequest, "serpapi strategy enabled but no API key configured")
	}
	if c.Registry.PerPage < 1 {
		return serrors.With(serrors.ErrBadRequest, "registry per-page must be >= 1")
	}
	if c.Registry.MaxPages < 1 {
		return serrors.With(serrors.ErrBadRequest, "registry max-pages must be >= 1")
	}
	if c.Pipeline.Sleep < 0 {
		return serrors.With(serrors.ErrBadRequest, "politeness delay must not be negative")
	}
	if c.Output.File == "" {
		return serrors.With(serrors.ErrBadRequest, "output file is required")
	}

	return nil
}
