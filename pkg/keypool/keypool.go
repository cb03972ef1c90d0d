// Package keypool manages an ordered pool of interchangeable API credentials
// for a rate-limited external search service. The pool tracks per-credential
// usage and rotates to the next slot when the caller observes a
// quota-exceeded response; exhausted slots never come back within a run.
package keypool

import (
	"sync"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

// slot is one rotation-pool entry.
type slot struct {
	token     string
	requests  int
	exhausted bool
}

// Usage is one line of the diagnostics summary. The token is masked and the
// full secret is never exposed.
type Usage struct {
	MaskedToken string
	Requests    int
	Exhausted   bool
}

// Pool rotates through credentials in insertion order. The pipeline mutates
// it from a single goroutine; the mutex keeps the read-then-write operations
// safe should a caller ever parallelize record processing.
type Pool struct {
	mu     sync.Mutex
	slots  []*slot
	active int
}

// New builds a pool from the configured tokens, preserving order. Blank
// tokens are ignored. An empty pool is valid: Current then fails with
// ErrNoCredentials and search strategies degrade.
func New(tokens []string) *Pool {
	p := &Pool{}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		p.slots = append(p.slots, &slot{token: t})
	}

	return p
}

// Size returns the number of slots in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.slots)
}

// Current returns the active non-exhausted token, or ErrNoCredentials when
// the pool is empty or every slot has been exhausted.
func (p *Pool) Current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := p.active; i < len(p.slots); i++ {
		if !p.slots[i].exhausted {
			p.active = i

			return p.slots[i].token, nil
		}
	}

	return "", serrors.With(serrors.ErrNoCredentials, "no usable credential: %d slot(s), all exhausted or empty pool", len(p.slots))
}

// RecordUsage increments the request counter of the slot holding token.
// Unknown tokens are ignored.
func (p *Pool) RecordUsage(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.token == token {
			s.requests++

			return
		}
	}
}

// MarkExhausted permanently flags the slot holding token and advances the
// active pointer to the next non-exhausted slot in original order. The flag
// is never reset within a run; the pool does not query remaining quota.
func (p *Pool) MarkExhausted(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.slots {
		if s.token == token {
			s.exhausted = true
			if i == p.active {
				p.advanceLocked()
			}

			return
		}
	}
}

// advanceLocked moves the active pointer past exhausted slots. Caller holds
// the lock.
func (p *Pool) advanceLocked() {
	for p.active < len(p.slots) && p.slots[p.active].exhausted {
		p.active++
	}
}

// Summary returns per-slot usage in insertion order for operator
// diagnostics.
func (p *Pool) Summary() []Usage {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Usage, 0, len(p.slots))
	for _, s := range p.slots {
		out = append(out, Usage{
			MaskedToken: MaskToken(s.token),
			Requests:    s.requests,
			Exhausted:   s.exhausted,
		})
	}

	return out
}

// TotalRequests sums the request counters across all slots.
func (p *Pool) TotalRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, s := range p.slots {
		total += s.requests
	}

	return total
}

// MaskToken hides the middle of a secret, keeping at most the first 8 and
// last 4 characters. Short tokens are fully masked.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}

	return token[:8] + "..." + token[len(token)-4:]
}
