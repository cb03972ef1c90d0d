package domain

import (
	"sort"
	"strconv"
	"strings"
)

// BusinessRecord is one registry entity. Records are immutable once read from
// the registry source and de-duplicated by SIREN before entering the
// pipeline: no two records in a batch share the same SIREN.
type BusinessRecord struct {
	// SIREN is the stable unique key for the enterprise across its
	// establishments.
	SIREN string
	// SIRET identifies the establishment (usually the head office) the record
	// was derived from. May be empty when the registry response omits it.
	SIRET string
	// LegalName is the registered denomination (raison sociale).
	LegalName string
	// DisplayName is the directory display name (nom complet annuaire) when
	// the registry provides one.
	DisplayName string
	// NAF is the principal activity code, e.g. "62.02A".
	NAF string
	// Tranche is the INSEE employee-size bracket code.
	Tranche Tranche
	// HeadOffice reports whether the record comes from the siège
	// establishment. Used to pick the preferred record when de-duplicating.
	HeadOffice bool
}

// Name returns the best available name for search queries and domain
// guessing: the directory display name when present, otherwise the legal
// name.
func (r BusinessRecord) Name() string {
	if strings.TrimSpace(r.DisplayName) != "" {
		return r.DisplayName
	}

	return r.LegalName
}

// Tranche is an INSEE "tranche effectif salarié" code describing a headcount
// bracket ("12" = 20..49 employees). The empty string and "NN" mean the
// bracket is unknown.
type Tranche string

// trancheBounds maps INSEE tranche codes to inclusive headcount bounds.
var trancheBounds = map[Tranche]struct{ lower, upper int }{ //nolint: gochecknoglobals
	"00": {0, 0},
	"01": {1, 2},
	"02": {3, 5},
	"03": {6, 9},
	"11": {10, 19},
	"12": {20, 49},
	"21": {50, 99},
	"22": {100, 199},
	"31": {200, 249},
	"32": {250, 499},
	"41": {500, 999},
	"42": {1000, 1999},
	"51": {2000, 4999},
	"52": {5000, 9999},
	"53": {10000, 1000000},
}

// normalized trims and upper-cases the raw code.
func (t Tranche) normalized() string {
	return strings.ToUpper(strings.TrimSpace(string(t)))
}

// Known reports whether the code maps to a documented INSEE bracket.
func (t Tranche) Known() bool {
	_, ok := trancheBounds[Tranche(t.normalized())]

	return ok
}

// Bounds returns the inclusive headcount bounds of the bracket. ok is false
// for unknown codes.
func (t Tranche) Bounds() (lower, upper int, ok bool) {
	b, ok := trancheBounds[Tranche(t.normalized())]

	return b.lower, b.upper, ok
}

// IndicatesZero reports whether the bracket clearly indicates zero
// employees. Covers the INSEE "00" code and textual variants such as "0" or
// "0-0" seen in some registry payloads. Unknown brackets are not zero.
func (t Tranche) IndicatesZero() bool {
	s := t.normalized()
	switch s {
	case "00", "0", "0-0":
		return true
	case "", "NN":
		return false
	}

	// If all numeric mentions are zero, treat as zero employees.
	nums := digitsIn(s)
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if n != 0 {
			return false
		}
	}

	return true
}

// Above reports whether the bracket's lower bound exceeds threshold, meaning
// every company in the bracket has more than threshold employees. Unknown
// brackets are never above.
func (t Tranche) Above(threshold int) bool {
	if lower, _, ok := t.Bounds(); ok {
		return lower > threshold
	}

	// Fallback for free-form values such as "250-499": use the largest
	// numeric mention.
	nums := digitsIn(t.normalized())
	if len(nums) == 0 {
		return false
	}
	maxN := nums[0]
	for _, n := range nums[1:] {
		if n > maxN {
			maxN = n
		}
	}

	return maxN > threshold
}

// Within reports whether the bracket overlaps the inclusive [min, max]
// headcount range. Unknown and zero brackets are never within.
func (t Tranche) Within(minEmp, maxEmp int) bool {
	lower, upper, ok := t.Bounds()
	if !ok {
		// Free-form fallback: accept if any numeric mention falls in range.
		for _, n := range digitsIn(t.normalized()) {
			if n >= minEmp && n <= maxEmp {
				return true
			}
		}

		return false
	}
	if upper == 0 {
		return false
	}

	return upper >= minEmp && lower <= maxEmp
}

// AllowedTrancheCodes returns the tranche codes whose upper bound does not
// exceed maxEmp, in ascending bracket order, plus "NN" so that companies with
// an unreported headcount are kept. Used to pre-filter registry queries.
func AllowedTrancheCodes(maxEmp int) []string {
	var codes []Tranche
	for code, b := range trancheBounds {
		if b.upper <= maxEmp {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool {
		return trancheBounds[codes[i]].upper < trancheBounds[codes[j]].upper
	})

	out := make([]string, 0, len(codes)+1)
	for _, c := range codes {
		out = append(out, string(c))
	}

	return append(out, "NN")
}

// digitsIn extracts every decimal run in s as an integer.
func digitsIn(s string) []int {
	var nums []int
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}

			continue
		}
		if start >= 0 {
			if n, err := strconv.Atoi(s[start:i]); err == nil {
				nums = append(nums, n)
			}
			start = -1
		}
	}
	if start >= 0 {
		if n, err := strconv.Atoi(s[start:]); err == nil {
			nums = append(nums, n)
		}
	}

	return nums
}
