package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before.Add(-time.Second)), time.Second)

	ticker := clock.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("ticker did not fire")
	}
}

func TestMockClockSleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Sleep(250 * time.Millisecond)
	c.Sleep(750 * time.Millisecond)

	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 750 * time.Millisecond}, c.Sleeps())
	assert.Equal(t, time.Second, c.Since(start))
}

func TestMockTicker(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(100 * time.Millisecond)

	c.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(60 * time.Millisecond)
	select {
	case <-tk.C():
	default:
		t.Fatal("ticker did not fire")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockClockSet(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	target := time.Unix(1000, 0)
	c.Set(target)
	assert.Equal(t, target, c.Now())
}
