package domain

// SiteSignals is the result of scanning a resolved domain for keyword and
// job-posting evidence. Computed only when a domain is resolved and
// reachable; the zero value (all empty, all false) stands for "no signal".
type SiteSignals struct {
	// NameKeywords lists relevance keywords matched in the company's legal or
	// display name.
	NameKeywords []string `json:"name_keywords"`
	// SiteKeywords lists relevance keywords matched in scanned page text,
	// de-duplicated and bounded as audit evidence.
	SiteKeywords []string `json:"site_keywords"`
	// JobPosting is set when any fetched page contains a job-posting
	// indicator.
	JobPosting bool `json:"job_posting"`
	// PagesScanned counts the pages whose text contributed to the scan.
	PagesScanned int `json:"pages_scanned,omitempty"`
}

// Empty reports whether the scan produced no signal at all.
func (s SiteSignals) Empty() bool {
	return len(s.NameKeywords) == 0 && len(s.SiteKeywords) == 0 && !s.JobPosting
}
