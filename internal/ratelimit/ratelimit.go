package ratelimit

import (
	"fmt"
	"sync"
)

// Budget caps judge calls within one run. A zero max means unlimited.
type Budget struct {
	mu      sync.Mutex
	max     int
	used    int
	denied  int
	resetAt int
}

func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Take reserves one call or reports that the budget is spent.
func (b *Budget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used >= b.max {
		b.denied++
		return fmt.Errorf("judge call budget exhausted (%d/%d)", b.used, b.max)
	}
	b.used++
	return nil
}

// Reset starts a new run.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used = 0
	b.denied = 0
	b.resetAt++
}

func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"judge_calls_used":   b.used,
		"judge_calls_limit":  b.max,
		"judge_calls_denied": b.denied,
		"budget_resets":      b.resetAt,
	}
}
