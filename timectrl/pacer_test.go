package timectrl

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestPacerSchedule(t *testing.T) {
	c := NewManualClock(epoch)
	p := NewPacer(c, 0.5, 10)

	if p.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", p.Count())
	}
	if p.Interval() != 100*time.Millisecond {
		t.Fatalf("Interval() = %v, want 100ms", p.Interval())
	}
	for i := range p.Count() {
		want := epoch.Add(time.Duration(i) * 100 * time.Millisecond)
		if got := p.Target(i); !got.Equal(want) {
			t.Fatalf("Target(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestPacerCountFloors(t *testing.T) {
	c := NewManualClock(epoch)
	cases := []struct {
		duration, rate float64
		want           int
	}{
		{duration: 0.25, rate: 10, want: 2},
		{duration: 0.1, rate: 1, want: 0},
		{duration: 2, rate: 20, want: 40},
		{duration: 1, rate: 0, want: 0},
		{duration: -1, rate: 10, want: 0},
		{duration: math.NaN(), rate: 10, want: 0},
		{duration: 1, rate: math.NaN(), want: 0},
		{duration: math.Inf(1), rate: 10, want: 0},
		{duration: 1, rate: math.Inf(1), want: 0},
		{duration: math.Inf(-1), rate: 10, want: 0},
		{duration: 1e300, rate: 1e10, want: 0},
		{duration: MaxEvents, rate: 2, want: 0},
		{duration: MaxEvents, rate: 1, want: MaxEvents},
	}
	for _, tc := range cases {
		if got := NewPacer(c, tc.duration, tc.rate).Count(); got != tc.want {
			t.Errorf("NewPacer(%v s, %v Hz).Count() = %d, want %d", tc.duration, tc.rate, got, tc.want)
		}
	}
}

func TestPacerWaitSleepsUntilTarget(t *testing.T) {
	c := NewManualClock(epoch)
	p := NewPacer(c, 1, 4)

	lag, err := p.Wait(context.Background(), 2)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if lag != 0 {
		t.Fatalf("lag = %v, want 0 when waiting", lag)
	}
	if got := c.Now(); !got.Equal(epoch.Add(500 * time.Millisecond)) {
		t.Fatalf("clock after Wait = %v, want +500ms", got)
	}
}

func TestPacerWaitReportsLag(t *testing.T) {
	c := NewManualClock(epoch)
	p := NewPacer(c, 1, 10)
	c.Advance(350 * time.Millisecond)

	lag, err := p.Wait(context.Background(), 1)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if lag != 250*time.Millisecond {
		t.Fatalf("lag = %v, want 250ms", lag)
	}
	if len(c.Sleeps()) != 0 {
		t.Fatalf("a late event should not sleep, got %v", c.Sleeps())
	}
	if p.Elapsed() != 350*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 350ms", p.Elapsed())
	}
}
