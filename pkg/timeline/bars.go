package timeline

import (
	"math"

	"github.com/sheeehy/lena/pkg/day"
)

// Bar geometry, in rendering units.
const (
	UnitHeight          = 11
	EmptyHeight         = 2
	MaxUnitHeight       = 25
	SelectedHeightRatio = 0.7
)

// Tier is one of four discrete brightness levels.
type Tier int

const (
	TierDimmest Tier = iota
	TierThird
	TierSecond
	TierBrightest
)

func (t Tier) String() string {
	switch t {
	case TierBrightest:
		return "brightest"
	case TierSecond:
		return "second"
	case TierThird:
		return "third"
	default:
		return "dimmest"
	}
}

// None marks an absent hover, selection or reveal index.
const None = -1

// State is the interaction state bars are derived from.
type State struct {
	Hovered  int
	Selected int
	Revealed int
}

// Bar is the derived visual state of one day.
type Bar struct {
	Index      int
	Date       string
	Count      int
	BaseHeight float64
	Scale      float64
	Tier       Tier
	Selected   bool
	Hovered    bool

	// Dot is true for the selected bar when it holds memories and the
	// selection has been revealed. DotHeight is where it sits.
	Dot       bool
	DotHeight float64

	// Entered is the reveal progress of the bar, from 0 to 1.
	Entered float64
}

// Height returns the scaled height of the bar.
func (b Bar) Height() float64 {
	return b.BaseHeight * b.Scale
}

// BaseHeight returns the unscaled height for a day with count memories.
func BaseHeight(count int) float64 {
	if count > 0 {
		return float64(count * UnitHeight)
	}
	return EmptyHeight
}

// MaxBarHeight returns the largest count × MaxUnitHeight across days.
func MaxBarHeight(days []day.Record) float64 {
	m := 0
	for _, d := range days {
		m = max(m, d.Count()*MaxUnitHeight)
	}
	return float64(m)
}

// ProximityScale returns the hover scale at distance from the hovered bar.
func ProximityScale(distance int) float64 {
	switch distance {
	case 0:
		return 1.4
	case 1:
		return 1.2
	case 2:
		return 1.1
	default:
		return 1
	}
}

// ComputeBars derives every bar from days and st. It has no side effects.
func ComputeBars(days []day.Record, st State) []Bar {
	maxHeight := MaxBarHeight(days)
	bars := make([]Bar, len(days))

	for i, d := range days {
		b := Bar{
			Index:      i,
			Date:       d.Date,
			Count:      d.Count(),
			BaseHeight: BaseHeight(d.Count()),
			Scale:      1,
			Tier:       TierDimmest,
			Selected:   i == st.Selected,
			Hovered:    i == st.Hovered,
		}

		distance := math.MaxInt
		if st.Hovered != None {
			distance = abs(i - st.Hovered)
		}

		switch {
		case b.Selected && b.BaseHeight > 0:
			b.Scale = maxHeight * SelectedHeightRatio / b.BaseHeight
		case b.Selected:
			b.Scale = 1
		default:
			b.Scale = ProximityScale(distance)
		}

		switch {
		case b.Selected || b.Hovered:
			b.Tier = TierBrightest
		case distance == 1:
			b.Tier = TierSecond
		case distance == 2:
			b.Tier = TierThird
		}

		if b.Selected && b.Count > 0 && st.Revealed == i {
			b.Dot = true
			b.DotHeight = b.Height()
		}

		bars[i] = b
	}

	return bars
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
