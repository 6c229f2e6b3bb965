package timelinecmder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/dotdir"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/memory"
	"github.com/sheeehy/lena/pkg/timeline"
	"github.com/sheeehy/lena/pkg/wizard"
	"github.com/sheeehy/lena/pkg/years"
)

const (
	frameInterval  = 33 * time.Millisecond
	notifyDuration = 4 * time.Second
)

// layout is the terminal geometry of the bar row. The engine's measurer
// reads it, so it is shared by pointer across model copies.
type layout struct {
	width  int
	height int

	origin  int
	pitch   int
	visible int
	offset  int

	popupRows int
	chartTop  int
	chartRows int
}

const (
	marginCols = 2
	barPitch   = 2
	headerRows = 2
	footerRows = 4
	maxPopup   = 12
	maxChart   = 20
	minChart   = 3
)

func newLayout() *layout {
	return &layout{origin: marginCols, pitch: barPitch, visible: 1, chartRows: minChart}
}

func (l *layout) resize(width, height int) {
	l.width = width
	l.height = height
	l.visible = max(1, (width-2*marginCols)/l.pitch)

	avail := max(0, height-headerRows-footerRows)
	l.popupRows = min(maxPopup, avail/2)
	l.chartRows = min(maxChart, max(minChart, avail-l.popupRows-1))
	l.chartTop = headerRows + l.popupRows
}

func (l *layout) measure(count int) []float64 {
	return timeline.GridMeasurer{
		Origin:  float64(l.origin),
		Pitch:   float64(l.pitch),
		Offset:  l.offset,
		Visible: l.visible,
	}.MeasureBarCenters(count)
}

// barAt maps a terminal cell to a bar index. The dot row above the chart
// counts as part of the bar.
func (l *layout) barAt(x, y, count int) (int, bool) {
	if y < l.chartTop || y > l.chartTop+l.chartRows {
		return timeline.None, false
	}
	col := x - l.origin
	if col < 0 {
		return timeline.None, false
	}
	slot := col / l.pitch
	if slot >= l.visible {
		return timeline.None, false
	}
	i := l.offset + slot
	if i >= count {
		return timeline.None, false
	}
	return i, true
}

type frameMsg time.Time

type submitDoneMsg struct {
	memory day.Memory
	err    error
}

type dismissMsg struct {
	at time.Time
}

type storeChangedMsg struct{}

type reloadedMsg struct {
	err error
}

type modelConfig struct {
	Store  *memory.Store
	Wizard *wizard.Wizard

	Stagger        time.Duration
	RevealDuration time.Duration
	AnimatedBars   int

	// View restores the last position. Year overrides it when non-zero.
	View *dotdir.ViewState
	Year int

	// Watch signals external database writes. Optional.
	Watch <-chan struct{}

	Clock  func() time.Time
	Logger *slog.Logger
}

type timelineModel struct {
	ctx    context.Context
	store  *memory.Store
	years  *years.Controller
	engine *timeline.Engine
	queue  *timeline.Queue
	wizard *wizard.Wizard
	layout *layout
	watch  <-chan struct{}
	logger *slog.Logger

	seenVersion uint64

	input    textinput.Model
	imageErr error

	// dateHint previews the date step's error once a full date is typed.
	dateHint error

	// status is a transient message, e.g. a failed reload.
	status string

	// descriptions caches rendered markdown by memory id and width.
	descriptions map[string]string

	keys       timelineKeyMap
	wizardKeys wizardKeyMap
	help       help.Model
}

func newTimelineModel(ctx context.Context, cfg modelConfig) timelineModel {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	l := newLayout()
	queue := &timeline.Queue{}
	log := cfg.Logger
	engine := timeline.New(timeline.Config{
		Measurer:       timeline.MeasurerFunc(l.measure),
		Scheduler:      queue,
		Stagger:        cfg.Stagger,
		RevealDuration: cfg.RevealDuration,
		AnimatedBars:   cfg.AnimatedBars,
		Clock:          cfg.Clock,
		Logger:         log,
		OnRevealComplete: func(year int) {
			log.Debug("timeline revealed", "year", year)
		},
	})

	store := cfg.Store
	ctrl := years.New(store)
	ctrl.OnChange = func(from, to int) {
		log.Debug("year changed", "from", from, "to", to)
		engine.SetDays(to, store.Year(to), store.Version())
	}

	year, offset := ctrl.Selected(), 0
	if cfg.View != nil && cfg.View.Year != 0 {
		year, offset = cfg.View.Year, cfg.View.Offset
	}
	if cfg.Year != 0 && cfg.Year != year {
		year, offset = cfg.Year, 0
	}
	ctrl.Select(year)
	version := store.Version()
	engine.SetDays(ctrl.Selected(), store.Year(ctrl.Selected()), version)
	engine.SetOffset(offset)

	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 5000
	input.SetWidth(48)

	return timelineModel{
		ctx:          ctx,
		store:        store,
		years:        ctrl,
		engine:       engine,
		queue:        queue,
		wizard:       cfg.Wizard,
		layout:       l,
		watch:        cfg.Watch,
		logger:       log,
		seenVersion:  version,
		input:        input,
		descriptions: make(map[string]string),
		keys:         defaultKeyMap(),
		wizardKeys:   defaultWizardKeyMap(),
		help:         help.New(),
	}
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

func (m timelineModel) Init() tea.Cmd {
	return tea.Batch(frameCmd(), waitForChange(m.watch))
}

func (m timelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.resize(msg.Width, msg.Height)
		m.help.SetWidth(msg.Width)
		m.input.SetWidth(min(48, max(10, msg.Width-16)))
		m.engine.Resize()

	case frameMsg:
		m.engine.Tick()
		cmds = append(cmds, frameCmd())

	case tea.KeyPressMsg:
		if m.wizard.IsOpen() {
			cmds = append(cmds, m.handleWizardKey(msg))
		} else {
			cmds = append(cmds, m.handleKey(msg))
		}

	case tea.MouseMotionMsg:
		if !m.wizard.IsOpen() {
			m.handleHover(msg.Mouse())
		}

	case tea.MouseClickMsg:
		if !m.wizard.IsOpen() {
			m.handleClick(msg.Mouse())
		}

	case tea.MouseWheelMsg:
		if !m.wizard.IsOpen() {
			m.handleWheel(msg.Mouse())
		}

	case submitDoneMsg:
		cmds = append(cmds, m.handleSubmitDone(msg))

	case dismissMsg:
		if note, ok := m.wizard.Notification(); ok && note.At.Equal(msg.at) {
			m.wizard.DismissNotification()
		}

	case storeChangedMsg:
		cmds = append(cmds, m.reload(), waitForChange(m.watch))

	case reloadedMsg:
		if msg.err != nil {
			m.logger.Error("reloading memories failed", "error", msg.err)
			m.status = "Couldn't refresh memories: " + msg.err.Error()
		} else {
			m.status = ""
		}

	default:
		if m.wizard.IsOpen() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

// sync hands the engine a new day sequence when the store changed, then
// runs the work the engine deferred to this frame.
func (m *timelineModel) sync() {
	if v := m.store.Version(); v != m.seenVersion {
		m.seenVersion = v
		m.years.Revalidate()
		year := m.years.Selected()
		m.engine.SetDays(year, m.store.Year(year), v)
	}

	m.layout.offset = m.engine.Offset()
	m.queue.Flush()
}

func (m *timelineModel) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Left):
		m.ensureVisible(m.engine.MoveHover(-1))

	case key.Matches(msg, m.keys.Right):
		m.ensureVisible(m.engine.MoveHover(1))

	case key.Matches(msg, m.keys.PageLeft):
		m.engine.Scroll(-max(1, m.layout.visible/2))

	case key.Matches(msg, m.keys.PageRight):
		m.engine.Scroll(max(1, m.layout.visible/2))

	case key.Matches(msg, m.keys.Select):
		m.engine.ClickHovered()

	case key.Matches(msg, m.keys.Back):
		if m.engine.State().Selected != timeline.None {
			m.engine.Deselect()
		} else {
			m.engine.Leave()
		}

	case key.Matches(msg, m.keys.NextMem):
		m.engine.CycleMemory(1)

	case key.Matches(msg, m.keys.PrevMem):
		m.engine.CycleMemory(-1)

	case key.Matches(msg, m.keys.PrevYear):
		m.years.Prev()

	case key.Matches(msg, m.keys.NextYear):
		m.years.Next()

	case key.Matches(msg, m.keys.Add):
		return m.openWizard()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// ensureVisible scrolls the bar row so bar i is in the viewport.
func (m *timelineModel) ensureVisible(i int) {
	if i == timeline.None {
		return
	}
	offset := m.engine.Offset()
	switch {
	case i < offset:
		m.engine.SetOffset(i)
	case i >= offset+m.layout.visible:
		m.engine.SetOffset(i - m.layout.visible + 1)
	}
}

func (m *timelineModel) handleHover(mouse tea.Mouse) {
	if i, ok := m.layout.barAt(mouse.X, mouse.Y, m.engine.Len()); ok {
		m.engine.Hover(i)
		return
	}
	m.engine.Leave()
}

func (m *timelineModel) handleClick(mouse tea.Mouse) {
	if mouse.Button != tea.MouseLeft {
		return
	}
	if i, ok := m.layout.barAt(mouse.X, mouse.Y, m.engine.Len()); ok {
		m.engine.Click(i)
	}
}

func (m *timelineModel) handleWheel(mouse tea.Mouse) {
	step := max(1, m.layout.visible/8)
	switch mouse.Button {
	case tea.MouseWheelUp, tea.MouseWheelLeft:
		m.engine.Scroll(-step)
	case tea.MouseWheelDown, tea.MouseWheelRight:
		m.engine.Scroll(step)
	}
}

func (m *timelineModel) reload() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return reloadedMsg{err: store.Load(ctx)}
	}
}

// handleSubmitDone shows the saved memory's day or moves the form to the
// step that failed.
func (m *timelineModel) handleSubmitDone(msg submitDoneMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, wizard.ErrSubmitting), errors.Is(msg.err, wizard.ErrClosed):
		return nil
	case msg.err != nil:
		m.logger.Warn("memory not saved", "error", msg.err)
		m.loadStep()
	default:
		m.input.Blur()
		m.showMemory(msg.memory)
	}

	note, ok := m.wizard.Notification()
	if !ok {
		return nil
	}
	return tea.Tick(notifyDuration, func(time.Time) tea.Msg {
		return dismissMsg{at: note.At}
	})
}

// showMemory switches to the memory's year and selects its day.
func (m *timelineModel) showMemory(saved day.Memory) {
	t, err := day.ParseKey(saved.Date)
	if err != nil {
		return
	}
	m.years.Select(t.Year())
	m.sync()
	if m.engine.Year() != t.Year() {
		return
	}

	i := t.YearDay() - 1
	if m.engine.State().Selected != i {
		m.engine.Click(i)
	}
	m.ensureVisible(i)
}

func (m timelineModel) viewState() *dotdir.ViewState {
	return &dotdir.ViewState{Year: m.years.Selected(), Offset: m.engine.Offset()}
}
