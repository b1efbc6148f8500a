package upstream

import (
	"net/http"
	"sync"
	"testing"
)

func TestBudget_Defaults(t *testing.T) {
	b := NewBudget()

	if got := b.Remaining(); got != defaultBudget {
		t.Errorf("Remaining() = %d, expected %d", got, defaultBudget)
	}
	if b.Low() {
		t.Error("fresh budget reported low")
	}
}

func TestBudget_Spend(t *testing.T) {
	b := NewBudget()

	for i := 0; i < 5; i++ {
		b.Spend()
	}
	if got := b.Remaining(); got != defaultBudget-5 {
		t.Errorf("Remaining() = %d, expected %d", got, defaultBudget-5)
	}
}

func TestBudget_SpendStopsAtZero(t *testing.T) {
	b := NewBudget()

	for i := 0; i < defaultBudget+10; i++ {
		b.Spend()
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, expected 0", got)
	}
}

func TestBudget_Observe(t *testing.T) {
	tests := []struct {
		name      string
		remaining string
		reset     string
		expected  int
	}{
		{name: "integer", remaining: "42", reset: "300", expected: 42},
		{name: "float rounds", remaining: "41.6", reset: "120", expected: 42},
		{name: "zero", remaining: "0", reset: "10", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBudget()
			h := http.Header{}
			h.Set("x-ratelimit-remaining", tt.remaining)
			h.Set("x-ratelimit-reset", tt.reset)

			reset := b.Observe(h)

			if got := b.Remaining(); got != tt.expected {
				t.Errorf("Remaining() = %d, expected %d", got, tt.expected)
			}
			if reset != tt.reset {
				t.Errorf("reset = %q, expected %q", reset, tt.reset)
			}
		})
	}
}

func TestBudget_ObserveIgnoresMissingHeader(t *testing.T) {
	b := NewBudget()
	b.Spend()

	reset := b.Observe(http.Header{})

	if got := b.Remaining(); got != defaultBudget-1 {
		t.Errorf("Remaining() = %d, expected %d", got, defaultBudget-1)
	}
	if reset != "" {
		t.Errorf("reset = %q, expected empty", reset)
	}
}

func TestBudget_ObserveIgnoresGarbage(t *testing.T) {
	b := NewBudget()
	h := http.Header{}
	h.Set("x-ratelimit-remaining", "soon")

	b.Observe(h)

	if got := b.Remaining(); got != defaultBudget {
		t.Errorf("Remaining() = %d, expected %d", got, defaultBudget)
	}
}

func TestBudget_Low(t *testing.T) {
	b := NewBudget()
	h := http.Header{}
	h.Set("x-ratelimit-remaining", "9")
	b.Observe(h)

	if !b.Low() {
		t.Errorf("budget at 9 not reported low (threshold %d)", LowBudgetThreshold)
	}

	h.Set("x-ratelimit-remaining", "10")
	b.Observe(h)
	if b.Low() {
		t.Error("budget at the threshold reported low")
	}
}

func TestBudget_ConcurrentSpend(t *testing.T) {
	b := NewBudget()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				b.Spend()
			}
		}()
	}
	wg.Wait()

	if got := b.Remaining(); got != defaultBudget-50 {
		t.Errorf("Remaining() = %d, expected %d", got, defaultBudget-50)
	}
}
