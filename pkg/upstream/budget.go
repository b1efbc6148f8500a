package upstream

import (
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
)

// LowBudgetThreshold is the remaining-request count under which the
// dispatcher proactively rolls the credential over to a fresh one,
// before the budget runs dry.
const LowBudgetThreshold = 10

// defaultBudget is the optimistic starting value before the first
// upstream response reports the real remaining count.
const defaultBudget = 99

// Budget mirrors the upstream rate-limit allowance. Upstream reports
// the remaining request count on every API response; the dispatcher
// stores it here and decrements between responses so the current
// estimate never lags more than one round-trip behind.
type Budget struct {
	remaining atomic.Int64
}

// NewBudget creates a budget with the optimistic default remaining
// count.
func NewBudget() *Budget {
	b := &Budget{}
	b.remaining.Store(defaultBudget)
	return b
}

// Remaining returns the current estimate of requests left in the
// window.
func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}

// Spend decrements the estimate for one outbound request, stopping at
// zero.
func (b *Budget) Spend() {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Observe updates the estimate from a response's rate-limit headers
// and returns the raw reset value when present. Upstream reports
// remaining as a float; it is rounded to the nearest request.
func (b *Budget) Observe(h http.Header) (reset string) {
	if v := h.Get("x-ratelimit-remaining"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			b.remaining.Store(int64(math.Round(f)))
		}
	}
	return h.Get("x-ratelimit-reset")
}

// Low reports whether the remaining estimate has dropped under the
// proactive-rollover threshold.
func (b *Budget) Low() bool {
	return b.remaining.Load() < LowBudgetThreshold
}
