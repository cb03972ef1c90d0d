package domain

// Source tags where a resolved domain came from.
type Source string

const (
	// SourceNone marks a resolution with no domain.
	SourceNone Source = ""
	// SourcePreexisting marks a domain supplied with the input record and
	// verified reachable.
	SourcePreexisting Source = "pre-existing"
	// SourceSerper marks a domain found through the serper.dev search API.
	SourceSerper Source = "serper"
	// SourceSerpAPI marks a domain found through SerpAPI.
	SourceSerpAPI Source = "serpapi"
	// SourceGuess marks a domain derived heuristically from the company name.
	SourceGuess Source = "guess"
)

// DomainResolution is the outcome of resolving a business to a website.
// An empty Domain is not an error, just "not found"; Reason then records why
// so that "not attempted", "attempted and failed" and "found" stay
// distinguishable internally even though the export collapses them.
type DomainResolution struct {
	// Domain is the resolved registrable host, empty when none was found.
	Domain string
	// Source tags the strategy that produced the domain. SourceNone when
	// Domain is empty.
	Source Source
	// Verified is true only after a homepage fetch returned a success-class
	// response within the bounded timeout.
	Verified bool
	// Reason explains an empty resolution ("resolution skipped",
	// "no reachable candidate"). Empty when a domain was found.
	Reason string
}

// Found reports whether a verified domain was resolved.
func (r DomainResolution) Found() bool {
	return r.Domain != "" && r.Verified
}

// NotResolved builds an empty resolution carrying the reason it is empty.
func NotResolved(reason string) DomainResolution {
	return DomainResolution{Source: SourceNone, Reason: reason}
}
