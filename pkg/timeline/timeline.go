// Package timeline is the interaction engine behind the day-bar chart:
// hover, selection and reveal state, per-bar visual state, popup placement
// from measured geometry, and the staged entrance of a year's bars.
//
// The engine draws nothing. Hosts feed it pointer or keyboard events, flush
// its Scheduler once per frame, call Remeasure after layout and render what
// Bars and Popup return.
package timeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/logger"
)

// DefaultPopupOffset is the vertical distance of the popup above the bar row.
const DefaultPopupOffset = 23

// Phase is the engine's position in its state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHovering
	PhaseSelected
	PhaseRevealed
)

func (p Phase) String() string {
	switch p {
	case PhaseHovering:
		return "hovering"
	case PhaseSelected:
		return "selected"
	case PhaseRevealed:
		return "revealed"
	default:
		return "idle"
	}
}

// Config configures an Engine.
type Config struct {
	Measurer  Measurer
	Scheduler Scheduler

	Stagger        time.Duration
	RevealDuration time.Duration
	AnimatedBars   int
	PopupOffset    float64

	Clock  func() time.Time
	Logger *slog.Logger

	// OnRevealComplete fires once per reveal, with the revealed year.
	OnRevealComplete func(year int)
}

// Popup is the placement of the selected day's detail card.
type Popup struct {
	Index   int
	Record  day.Record
	CenterX float64
	OffsetY float64

	// Memory is the memory of Record currently shown.
	Memory int
}

// Engine holds the visual and interaction state of one year of bars.
type Engine struct {
	mu sync.Mutex

	cfg Config
	log *slog.Logger

	year    int
	version uint64
	days    []day.Record
	loaded  bool

	st State

	// selectGen invalidates reveal ticks scheduled for an older selection.
	selectGen int

	centers  []float64
	measured bool

	reveal         Reveal
	revealNotified bool

	offset int
	memory int
}

// New creates an engine. A nil Scheduler reveals selections immediately.
func New(cfg Config) *Engine {
	if cfg.Stagger == 0 {
		cfg.Stagger = DefaultStagger
	}
	if cfg.RevealDuration == 0 {
		cfg.RevealDuration = DefaultRevealDuration
	}
	if cfg.AnimatedBars == 0 {
		cfg.AnimatedBars = DefaultAnimatedBars
	}
	if cfg.PopupOffset == 0 {
		cfg.PopupOffset = DefaultPopupOffset
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Engine{
		cfg: cfg,
		log: log,
		st:  State{Hovered: None, Selected: None, Revealed: None},
	}
}

// SetDays hands the engine a year's day sequence. A different year resets
// the engine to idle and restarts the reveal. The same year at a new
// version keeps the selection and invalidates geometry.
func (e *Engine) SetDays(year int, days []day.Record, version uint64) {
	e.mu.Lock()

	switch {
	case !e.loaded || year != e.year:
		e.year = year
		e.version = version
		e.days = days
		e.loaded = true
		e.st = State{Hovered: None, Selected: None, Revealed: None}
		e.selectGen++
		e.offset = 0
		e.memory = 0
		e.centers = nil
		e.restartRevealLocked()
		e.log.Debug("timeline year changed", "year", year, "days", len(days))

	case version != e.version:
		e.version = version
		e.days = days
		if e.st.Selected >= len(days) {
			e.st = State{Hovered: None, Selected: None, Revealed: None}
		}
		if e.st.Hovered >= len(days) {
			e.st.Hovered = None
		}
		e.log.Debug("timeline data changed", "year", year, "version", version)

	default:
		e.mu.Unlock()
		return
	}

	e.invalidateLocked()
	e.mu.Unlock()

	e.deferRemeasure()
}

// Year returns the year being shown.
func (e *Engine) Year() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.year
}

// Len returns the number of bars.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.days)
}

// Hover marks bar i as hovered. Out-of-range indexes clear the hover.
func (e *Engine) Hover(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.days) {
		e.st.Hovered = None
		return
	}
	e.st.Hovered = i
}

// Leave clears the hover.
func (e *Engine) Leave() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.Hovered = None
}

// MoveHover moves the hover by delta bars, starting from the selection when
// nothing is hovered. Returns the hovered index.
func (e *Engine) MoveHover(delta int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.days) == 0 {
		return None
	}

	from := e.st.Hovered
	switch {
	case from != None:
	case e.st.Selected != None:
		from = e.st.Selected
	default:
		// the first key press lands on the first visible bar
		e.st.Hovered = clamp(e.offset, 0, len(e.days)-1)
		return e.st.Hovered
	}

	e.st.Hovered = clamp(from+delta, 0, len(e.days)-1)
	return e.st.Hovered
}

// Click selects bar i, or clears the selection when i is already selected.
// The selection is revealed on the scheduler's next tick.
func (e *Engine) Click(i int) {
	e.mu.Lock()

	if i < 0 || i >= len(e.days) {
		e.mu.Unlock()
		return
	}

	e.selectGen++
	e.memory = 0
	if e.st.Selected == i {
		e.st.Selected = None
		e.st.Revealed = None
		e.mu.Unlock()
		return
	}

	e.st.Selected = i
	e.st.Revealed = None
	gen := e.selectGen
	e.mu.Unlock()

	e.schedule(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.selectGen == gen && e.st.Selected == i {
			e.st.Revealed = i
		}
	})
}

// ClickHovered clicks the hovered bar, if any.
func (e *Engine) ClickHovered() {
	e.mu.Lock()
	i := e.st.Hovered
	e.mu.Unlock()

	if i != None {
		e.Click(i)
	}
}

// Deselect clears the selection.
func (e *Engine) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selectGen++
	e.st.Selected = None
	e.st.Revealed = None
	e.memory = 0
}

// State returns the hover, selection and reveal indexes.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.st
}

// Phase returns the state machine position.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.st.Selected != None && e.st.Revealed == e.st.Selected:
		return PhaseRevealed
	case e.st.Selected != None:
		return PhaseSelected
	case e.st.Hovered != None:
		return PhaseHovering
	default:
		return PhaseIdle
	}
}

// Bars computes the visual state of every bar at the current time.
func (e *Engine) Bars() []Bar {
	e.mu.Lock()
	defer e.mu.Unlock()

	bars := ComputeBars(e.days, e.st)
	now := e.cfg.Clock()
	for i := range bars {
		bars[i].Entered = e.reveal.Progress(i, now)
	}
	return bars
}

// Popup returns the detail card placement when the selected bar holds at
// least one memory.
func (e *Engine) Popup() (Popup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.st.Selected
	if i == None || i >= len(e.days) || e.days[i].Count() == 0 {
		return Popup{}, false
	}

	return Popup{
		Index:   i,
		Record:  e.days[i].Clone(),
		CenterX: e.centerLocked(i),
		OffsetY: e.cfg.PopupOffset,
		Memory:  min(e.memory, e.days[i].Count()-1),
	}, true
}

// CycleMemory moves the popup to the next or previous memory of the
// selected day, wrapping around.
func (e *Engine) CycleMemory(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.st.Selected
	if i == None || i >= len(e.days) {
		return
	}
	n := e.days[i].Count()
	if n == 0 {
		return
	}
	e.memory = ((e.memory+delta)%n + n) % n
}

// Remeasure queries the measurer for every bar center.
func (e *Engine) Remeasure() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.Measurer == nil {
		return
	}

	n := len(e.days)
	centers := make([]float64, n)
	copy(centers, e.cfg.Measurer.MeasureBarCenters(n))
	e.centers = centers
	e.measured = true
}

// Measured reports whether geometry is current.
func (e *Engine) Measured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.measured
}

// Resize invalidates geometry after the viewport changed and schedules a
// remeasure.
func (e *Engine) Resize() {
	e.mu.Lock()
	e.invalidateLocked()
	e.mu.Unlock()

	e.deferRemeasure()
}

// Scroll moves the viewport by delta bars and schedules a remeasure.
func (e *Engine) Scroll(delta int) {
	e.mu.Lock()
	e.offset = clamp(e.offset+delta, 0, max(len(e.days)-1, 0))
	e.invalidateLocked()
	e.mu.Unlock()

	e.deferRemeasure()
}

// SetOffset positions the viewport at bar offset.
func (e *Engine) SetOffset(offset int) {
	e.mu.Lock()
	e.offset = clamp(offset, 0, max(len(e.days)-1, 0))
	e.invalidateLocked()
	e.mu.Unlock()

	e.deferRemeasure()
}

// Offset returns the index of the first bar in the viewport.
func (e *Engine) Offset() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.offset
}

// RevealComplete reports whether every bar has entered.
func (e *Engine) RevealComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loaded && e.reveal.Done(e.cfg.Clock())
}

// Tick advances time-based state. It fires OnRevealComplete once the reveal
// finishes and reports whether the reveal is still running.
func (e *Engine) Tick() bool {
	e.mu.Lock()

	if !e.loaded {
		e.mu.Unlock()
		return false
	}
	if !e.reveal.Done(e.cfg.Clock()) {
		e.mu.Unlock()
		return true
	}

	notify := !e.revealNotified
	e.revealNotified = true
	year := e.year
	cb := e.cfg.OnRevealComplete
	e.mu.Unlock()

	if notify && cb != nil {
		cb(year)
	}
	return false
}

func (e *Engine) restartRevealLocked() {
	e.reveal = Reveal{
		Start:    e.cfg.Clock(),
		Count:    len(e.days),
		Stagger:  e.cfg.Stagger,
		Duration: e.cfg.RevealDuration,
		Animated: e.cfg.AnimatedBars,
	}
	e.revealNotified = false
}

func (e *Engine) invalidateLocked() {
	e.measured = false
}

// centerLocked returns the last measured center of bar i, or 0 when the
// bar has never been measured.
func (e *Engine) centerLocked(i int) float64 {
	if i >= len(e.centers) {
		return 0
	}
	return e.centers[i]
}

func (e *Engine) deferRemeasure() {
	e.schedule(e.Remeasure)
}

func (e *Engine) schedule(fn func()) {
	if e.cfg.Scheduler == nil {
		fn()
		return
	}
	e.cfg.Scheduler.Defer(fn)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
