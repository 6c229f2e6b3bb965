package timeline

import "time"

const (
	// DefaultStagger is the delay between consecutive bars entering.
	DefaultStagger = 10 * time.Millisecond

	// DefaultRevealDuration is how long a single bar takes to enter.
	DefaultRevealDuration = 500 * time.Millisecond

	// DefaultAnimatedBars bounds the staggered window. Later bars enter
	// together with the last animated one.
	DefaultAnimatedBars = 90
)

// Reveal is the staged entrance of a day sequence, started on mount or year
// change. Bars enter in index order.
type Reveal struct {
	Start    time.Time
	Count    int
	Stagger  time.Duration
	Duration time.Duration
	Animated int
}

// delay returns when bar i starts entering, relative to Start.
func (r Reveal) delay(i int) time.Duration {
	slot := i
	if r.Animated > 0 && slot > r.Animated-1 {
		slot = r.Animated - 1
	}
	return time.Duration(slot) * r.Stagger
}

// Progress returns how far bar i has entered at now, from 0 to 1.
func (r Reveal) Progress(i int, now time.Time) float64 {
	if i < 0 || i >= r.Count {
		return 0
	}

	elapsed := now.Sub(r.Start) - r.delay(i)
	switch {
	case elapsed <= 0:
		return 0
	case r.Duration <= 0 || elapsed >= r.Duration:
		return 1
	default:
		return float64(elapsed) / float64(r.Duration)
	}
}

// End returns when the last bar has fully entered.
func (r Reveal) End() time.Time {
	if r.Count == 0 {
		return r.Start
	}
	return r.Start.Add(r.delay(r.Count-1) + r.Duration)
}

// Done reports whether every bar has fully entered at now.
func (r Reveal) Done(now time.Time) bool {
	return !now.Before(r.End())
}
