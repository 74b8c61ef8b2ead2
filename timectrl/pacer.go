package timectrl

import (
	"context"
	"math"
	"time"
)

// Pacer schedules a fixed number of events at a constant rate from a start
// instant. Event i is due at Start + i/rate; the schedule is anchored to the
// start so late events never push later ones back.
type Pacer struct {
	clock    Clock
	start    time.Time
	rateHz   float64
	interval time.Duration
	count    int
}

// MaxEvents caps a Pacer schedule.
const MaxEvents = math.MaxInt32

// NewPacer builds a schedule of floor(durationS*rateHz) events starting now
// on clock. A non-positive or non-finite duration or rate, or a schedule
// longer than MaxEvents, yields an empty schedule.
func NewPacer(clock Clock, durationS, rateHz float64) *Pacer {
	p := &Pacer{clock: clock, start: clock.Now()}
	if !positiveFinite(rateHz) || !positiveFinite(durationS) {
		return p
	}
	n := math.Floor(durationS * rateHz)
	if n > MaxEvents {
		return p
	}
	p.rateHz = rateHz
	p.count = int(n)
	p.interval = time.Duration(math.Round(float64(time.Second) / rateHz))
	return p
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Start returns the schedule anchor.
func (p *Pacer) Start() time.Time { return p.start }

// Count returns the number of scheduled events.
func (p *Pacer) Count() int { return p.count }

// Interval returns the spacing between events.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Target returns the due time of event i.
func (p *Pacer) Target(i int) time.Time {
	if p.rateHz <= 0 {
		return p.start
	}
	return p.start.Add(time.Duration(math.Round(float64(i) * float64(time.Second) / p.rateHz)))
}

// Wait blocks until event i is due. It returns how late the caller already
// was (zero when it had to wait) and ctx.Err() if the wait was cancelled.
func (p *Pacer) Wait(ctx context.Context, i int) (time.Duration, error) {
	target := p.Target(i)
	now := p.clock.Now()
	if !now.Before(target) {
		return now.Sub(target), ctx.Err()
	}
	return 0, p.clock.SleepUntil(ctx, target)
}

// Elapsed returns the time since Start on the pacer's clock.
func (p *Pacer) Elapsed() time.Duration {
	return p.clock.Now().Sub(p.start)
}
