package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// frozen returns a limiter whose clock only moves when advance is called.
func frozen(perSecond float64, burst int) (*Limiter, func(time.Duration)) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(perSecond, burst)
	l.nowFunc = func() time.Time { return now }
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestLimiterAllow(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		burst     int
		spend     int           // calls made before the wait
		wait      time.Duration // clock advance after spending
		want      int           // calls admitted after the wait, tried up to burst+1
	}{
		{"fresh bucket admits burst", 1, 3, 0, 0, 3},
		{"exhausted bucket rejects", 1, 2, 2, 0, 0},
		{"refill after wait", 10, 2, 2, 200 * time.Millisecond, 2},
		{"refill capped at burst", 100, 3, 3, 10 * time.Second, 3},
		{"partial refill", 2, 5, 3, 250 * time.Millisecond, 2},
		{"zero rate never refills", 0, 2, 2, time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, advance := frozen(tt.perSecond, tt.burst)
			for i := 0; i < tt.spend; i++ {
				if !l.Allow("metakg_simulate_ode") {
					t.Fatalf("spend call %d rejected", i+1)
				}
			}
			advance(tt.wait)

			got := 0
			for i := 0; i <= tt.burst; i++ {
				if l.Allow("metakg_simulate_ode") {
					got++
				}
			}
			if got != tt.want {
				t.Errorf("admitted %d calls, want %d", got, tt.want)
			}
		})
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := frozen(1, 1)

	if !l.Allow("metakg_simulate_fba") || l.Allow("metakg_simulate_fba") {
		t.Fatal("fba bucket should admit exactly one call")
	}
	if !l.Allow("metakg_simulate_ode") {
		t.Error("ode bucket should be unaffected by fba calls")
	}
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l, _ := frozen(1000, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("metakg_stats") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 100 {
		t.Errorf("admitted %d calls with a frozen clock, want the burst of 100", admitted)
	}
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(30, 5)
	if l.rate != 0.5 || l.burst != 5 {
		t.Errorf("PerMinute(30, 5) = rate %v burst %d, want 0.5 and 5", l.rate, l.burst)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	bursts := map[string]int{
		"metakg_get_reaction":    10,
		"metakg_get_compound":    10,
		"metakg_stats":           10,
		"metakg_simulate_fba":    5,
		"metakg_simulate_ode":    3,
		"metakg_simulate_whatif": 2,
	}
	if len(limiters) != len(bursts) {
		t.Errorf("got %d limiters, want %d", len(limiters), len(bursts))
	}
	for tool, burst := range bursts {
		l, ok := limiters[tool]
		if !ok {
			t.Errorf("no limiter for %s", tool)
			continue
		}
		if l.burst != burst {
			t.Errorf("%s burst = %d, want %d", tool, l.burst, burst)
		}
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := NewToolLimiters()

	if err := CheckLimit(limiters, "metakg_export"); err != nil {
		t.Errorf("unlimited tool rejected: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := CheckLimit(limiters, "metakg_simulate_whatif"); err != nil {
			t.Fatalf("call %d within burst rejected: %v", i+1, err)
		}
	}
	err := CheckLimit(limiters, "metakg_simulate_whatif")
	if err == nil || !strings.Contains(err.Error(), "metakg_simulate_whatif") {
		t.Errorf("error = %v, want a rate limit error naming the tool", err)
	}
}
