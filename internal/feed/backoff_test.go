package feed

import (
	"testing"
	"time"
)

func TestBackoffDoublesUpToCeiling(t *testing.T) {
	b := Backoff{Base: 1 * time.Second, Max: 30 * time.Second}

	delay := b.Next(0, true) // initial
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if delay != w {
			t.Fatalf("attempt %d: delay = %v, want %v", i, delay, w)
		}
		delay = b.Next(delay, false)
	}
}

func TestBackoffResetsAfterSuccess(t *testing.T) {
	b := Backoff{Base: 1 * time.Second, Max: 30 * time.Second}

	delay := b.Next(0, true)
	for i := 0; i < 4; i++ {
		delay = b.Next(delay, false)
	}
	if delay != 16*time.Second {
		t.Fatalf("delay before success = %v, want 16s", delay)
	}

	delay = b.Next(delay, true)
	if delay != 1*time.Second {
		t.Fatalf("delay after success = %v, want 1s", delay)
	}
}

func TestBackoffZeroValueUsesDefaults(t *testing.T) {
	var b Backoff

	if got := b.Next(0, true); got != DefaultBaseDelay {
		t.Errorf("Next(0, true) = %v, want %v", got, DefaultBaseDelay)
	}
	if got := b.Next(DefaultMaxDelay, false); got != DefaultMaxDelay {
		t.Errorf("Next(max, false) = %v, want %v", got, DefaultMaxDelay)
	}
}
