package domain

// Evaluation is the scoring outcome for one record: the additive score, the
// individual condition flags that contributed to it, and threshold
// derivations. Strong/Possible are pure functions of Score.
type Evaluation struct {
	// Score is the sum of the weights of the satisfied conditions. Always
	// within [0, sum of all weights].
	Score int
	// NAFOK is set when the industry code matches a targeted prefix.
	NAFOK bool
	// NameKeywordFound is set when a relevance keyword occurs in the legal or
	// display name.
	NameKeywordFound bool
	// SiteKeywordFound is set when a relevance keyword occurs in scanned site
	// text.
	SiteKeywordFound bool
	// JobPostingPresent is set when a job-posting indicator was found on any
	// scanned page.
	JobPostingPresent bool
	// SizeOK is set when the employee bracket falls within the configured
	// bounds.
	SizeOK bool
	// Strong is set when Score meets the strong threshold.
	Strong bool
	// Possible is set when Score meets the possible threshold.
	Possible bool
}

// ScoredRecord is the final output unit: one input record together with its
// resolution, signals and evaluation. Created once per input record and
// immutable thereafter; output ordering is by descending score with input
// order breaking ties.
type ScoredRecord struct {
	Record     BusinessRecord
	Resolution DomainResolution
	Signals    SiteSignals
	Evaluation Evaluation
}
