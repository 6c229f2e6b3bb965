package timelinecmder

import (
	"fmt"
	"math"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/sheeehy/lena/pkg/cliui"
	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/timeline"
	"github.com/sheeehy/lena/pkg/utils"
	"github.com/sheeehy/lena/pkg/wizard"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	yearStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	yearSelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	yearMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	axisStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dotStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	cardStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)

	tierStyles = map[timeline.Tier]lipgloss.Style{
		timeline.TierBrightest: lipgloss.NewStyle().Foreground(lipgloss.Color("230")),
		timeline.TierSecond:    lipgloss.NewStyle().Foreground(lipgloss.Color("187")),
		timeline.TierThird:     lipgloss.NewStyle().Foreground(lipgloss.Color("144")),
		timeline.TierDimmest:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	selectedBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	emptyBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

const (
	barGlyph   = "█"
	dotGlyph   = "●"
	cardWidth  = 48
	formWidth  = 64
	yearWindow = 3
)

func (m timelineModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	return v
}

func (m timelineModel) render() string {
	l := m.layout
	if l.width == 0 {
		return "loading…"
	}

	header := m.renderHeader()

	var body string
	if m.wizard.IsOpen() {
		body = lipgloss.Place(l.width, l.popupRows+l.chartRows+2, lipgloss.Center, lipgloss.Center, m.renderForm())
	} else {
		parts := []string{m.renderChart(), m.renderAxis()}
		if l.popupRows > 0 {
			parts = append([]string{m.renderPopup()}, parts...)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	keys := m.help.View(m.keys)
	if m.wizard.IsOpen() {
		keys = m.help.View(m.wizardKeys)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderStatus(),
		"",
		keys,
	)
}

func (m timelineModel) renderHeader() string {
	selected := m.years.Selected()
	all := m.years.All()

	var parts []string
	for i := len(all) - 1; i >= 0; i-- {
		year := all[i]
		if year < selected-yearWindow || year > selected+yearWindow {
			continue
		}
		label := yearStyle.Render(fmt.Sprintf(" %d ", year))
		if year == selected {
			label = yearSelStyle.Render(fmt.Sprintf(" %d ", year))
		}
		if m.years.HasMemories(year) {
			label += yearMarkStyle.Render("•")
		} else {
			label += " "
		}
		parts = append(parts, label)
	}

	line := titleStyle.Render("lena") + "  " + mutedStyle.Render("‹") + " " + strings.Join(parts, "") + " " + mutedStyle.Render("›")
	return strings.Repeat(" ", marginCols) + line + "\n"
}

// referenceHeight is the bar height that fills the chart: the tallest a bar
// of this year can get, selected or hovered.
func referenceHeight(bars []timeline.Bar) float64 {
	maxCount := 0
	for _, b := range bars {
		maxCount = max(maxCount, b.Count)
	}
	ref := float64(maxCount) * timeline.MaxUnitHeight * timeline.SelectedHeightRatio
	ref = max(ref, float64(maxCount*timeline.UnitHeight)*timeline.ProximityScale(0))
	return max(ref, 4*timeline.UnitHeight)
}

// barRows converts a bar's entered height to terminal rows.
func barRows(b timeline.Bar, ref float64, rows int) int {
	h := b.Height() * b.Entered
	if h <= 0 || ref <= 0 {
		return 0
	}
	n := int(math.Ceil(h / ref * float64(rows)))
	return min(max(n, 1), rows)
}

func barStyle(b timeline.Bar) lipgloss.Style {
	switch {
	case b.Selected:
		return selectedBarStyle
	case b.Count == 0 && b.Tier == timeline.TierDimmest:
		return emptyBarStyle
	default:
		return tierStyles[b.Tier]
	}
}

func (m timelineModel) visibleBars() []timeline.Bar {
	bars := m.engine.Bars()
	start := min(m.layout.offset, len(bars))
	end := min(len(bars), start+m.layout.visible)
	return bars[start:end]
}

func (m timelineModel) renderChart() string {
	l := m.layout
	all := m.engine.Bars()
	ref := referenceHeight(all)
	start := min(l.offset, len(all))
	window := all[start:min(len(all), start+l.visible)]

	heights := make([]int, len(window))
	for i, b := range window {
		heights[i] = barRows(b, ref, l.chartRows)
	}

	lines := make([]string, 0, l.chartRows+1)
	for row := l.chartRows; row >= 0; row-- {
		var sb strings.Builder
		sb.WriteString(strings.Repeat(" ", l.origin))
		for i, b := range window {
			switch {
			case heights[i] > row:
				sb.WriteString(barStyle(b).Render(barGlyph))
			case b.Dot && heights[i] == row:
				sb.WriteString(dotStyle.Render(dotGlyph))
			default:
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.Repeat(" ", l.pitch-1))
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// renderAxis labels the first bar of every month in view.
func (m timelineModel) renderAxis() string {
	l := m.layout
	cells := []rune(strings.Repeat(" ", max(l.width, 1)))
	for slot, b := range m.visibleBars() {
		if !strings.HasSuffix(b.Date, "-01") {
			continue
		}
		t, err := day.ParseKey(b.Date)
		if err != nil {
			continue
		}
		col := l.origin + slot*l.pitch
		for i, r := range t.Format("Jan") {
			if col+i < len(cells) {
				cells[col+i] = r
			}
		}
	}
	return axisStyle.Render(strings.TrimRight(string(cells), " "))
}

func (m timelineModel) renderPopup() string {
	rows := m.layout.popupRows
	p, ok := m.engine.Popup()
	if !ok || rows < 3 {
		return strings.Repeat("\n", max(rows-1, 0))
	}

	width := min(cardWidth, m.layout.width-2*marginCols)
	inner := max(width-4, 8)
	mem := p.Record.Memories[p.Memory]

	lines := []string{}
	heading := formatDay(p.Record.Date)
	if n := p.Record.Count(); n > 1 {
		counter := fmt.Sprintf("%d/%d", p.Memory+1, n)
		gap := max(1, inner-lipgloss.Width(heading)-len(counter))
		heading += strings.Repeat(" ", gap) + mutedStyle.Render(counter)
	}
	lines = append(lines, mutedStyle.Render(heading))
	lines = append(lines, labelStyle.Render(ansi.Truncate(mem.Title, inner, "…")))
	if mem.Location != "" {
		lines = append(lines, mutedStyle.Render(ansi.Truncate("at "+mem.Location, inner, "…")))
	}

	// border and the trailing image line
	budget := rows - 2 - len(lines)
	if mem.Image != "" {
		budget--
	}
	for _, line := range strings.Split(m.description(mem.ID, mem.Description, inner), "\n") {
		if budget <= 0 {
			break
		}
		lines = append(lines, ansi.Truncate(line, inner, "…"))
		budget--
	}
	if mem.Image != "" {
		lines = append(lines, cliui.Link(mem.Image, "view image"))
	}

	card := cardStyle.Width(width).Render(strings.Join(lines, "\n"))
	left := int(math.Round(p.CenterX)) - width/2
	left = min(max(left, 0), max(m.layout.width-width, 0))
	card = lipgloss.NewStyle().MarginLeft(left).Render(card)

	return lipgloss.PlaceVertical(rows, lipgloss.Bottom, card)
}

// description renders markdown once per memory and width.
func (m timelineModel) description(id, text string, width int) string {
	cacheKey := fmt.Sprintf("%s/%d", id, width)
	if out, ok := m.descriptions[cacheKey]; ok {
		return out
	}
	out, err := cliui.RenderMarkdown(text, width)
	if err != nil {
		m.logger.Debug("rendering description failed", "memory_id", id, "error", err)
	}
	out = strings.Trim(out, "\n")
	m.descriptions[cacheKey] = out
	return out
}

func (m timelineModel) renderStatus() string {
	prefix := strings.Repeat(" ", marginCols)

	if note, ok := m.wizard.Notification(); ok {
		if note.Kind == wizard.NotifyError {
			return prefix + failStyle.Render(cliui.FailMark+" "+m.fitStatus(note.Message))
		}
		return prefix + okStyle.Render(cliui.SuccessMark+" "+m.fitStatus(note.Message))
	}
	if m.status != "" {
		return prefix + failStyle.Render(m.fitStatus(m.status))
	}

	unsaved := ""
	if n := m.store.PendingCount(); n > 0 {
		unsaved = fmt.Sprintf(" · %d unsaved", n)
	}

	st := m.engine.State()
	i := st.Hovered
	if i == timeline.None {
		i = st.Selected
	}
	bars := m.engine.Bars()
	if i == timeline.None || i >= len(bars) {
		return prefix + mutedStyle.Render("←/→ to explore, a to add a memory"+unsaved)
	}

	b := bars[i]
	count := "no memories"
	switch {
	case b.Count == 1:
		count = "1 memory"
	case b.Count > 1:
		count = fmt.Sprintf("%d memories", b.Count)
	}
	return prefix + labelStyle.Render(formatDay(b.Date)) + mutedStyle.Render(" · "+count+unsaved)
}

// fitStatus keeps long error messages on the single status row.
func (m timelineModel) fitStatus(msg string) string {
	room := m.layout.width - 2*marginCols - 5
	if room <= 0 {
		return msg
	}
	return utils.Truncate(msg, room)
}

func (m timelineModel) renderForm() string {
	snap := m.wizard.Snapshot()

	var steps []string
	for _, s := range wizard.Steps {
		label := fmt.Sprintf("%d %s", int(s)+1, s)
		switch {
		case s == snap.Step:
			label = yearSelStyle.Render(" " + label + " ")
		case snap.Errors[s] != nil:
			label = failStyle.Render(" " + label + " ")
		default:
			label = mutedStyle.Render(" " + label + " ")
		}
		steps = append(steps, label)
	}

	lines := []string{
		titleStyle.Render("Add a memory"),
		"",
		strings.Join(steps, ""),
		"",
		labelStyle.Render(stepPrompts[snap.Step]),
		m.input.View(),
	}

	err := snap.Errors[snap.Step]
	switch {
	case snap.Step == wizard.StepImage && m.imageErr != nil:
		err = m.imageErr
	case snap.Step == wizard.StepDate && err == nil:
		err = m.dateHint
	}
	if err != nil {
		lines = append(lines, failStyle.Render(err.Error()))
	}
	if snap.Step == wizard.StepImage && snap.Image != nil {
		lines = append(lines, mutedStyle.Render("selected "+ansi.Truncate(snap.Image.Preview, formWidth-8, "…")))
	}
	if snap.Submitting {
		lines = append(lines, "", mutedStyle.Render("Saving your memory…"))
	}

	return formStyle.Width(min(formWidth, max(m.layout.width-2, 20))).Render(strings.Join(lines, "\n"))
}

func formatDay(key string) string {
	t, err := day.ParseKey(key)
	if err != nil {
		return key
	}
	return t.Format("Mon 2 Jan 2006")
}
