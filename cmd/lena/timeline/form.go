package timelinecmder

import (
	"os"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/sheeehy/lena/pkg/wizard"
)

var stepPrompts = map[wizard.Step]string{
	wizard.StepDate:        "When did it happen?",
	wizard.StepTitle:       "Give it a title",
	wizard.StepDescription: "What happened?",
	wizard.StepLocation:    "Where were you? (optional)",
	wizard.StepImage:       "Attach an image (path, optional)",
}

var stepPlaceholders = map[wizard.Step]string{
	wizard.StepDate:        "DD MM YYYY",
	wizard.StepTitle:       "First day in Lisbon",
	wizard.StepDescription: "Markdown is fine",
	wizard.StepLocation:    "Lisbon",
	wizard.StepImage:       "~/Pictures/tram.jpg",
}

func (m *timelineModel) openWizard() tea.Cmd {
	m.wizard.Open()
	m.imageErr = nil
	m.engine.Leave()
	m.loadStep()
	return m.input.Focus()
}

// loadStep points the input at the wizard's current step.
func (m *timelineModel) loadStep() {
	snap := m.wizard.Snapshot()

	var value string
	switch snap.Step {
	case wizard.StepDate:
		value = snap.Draft.Date
	case wizard.StepTitle:
		value = snap.Draft.Title
	case wizard.StepDescription:
		value = snap.Draft.Description
	case wizard.StepLocation:
		value = snap.Draft.Location
	case wizard.StepImage:
		if snap.Image != nil {
			value = snap.Image.Path
		}
	}

	m.dateHint = nil
	m.input.Placeholder = stepPlaceholders[snap.Step]
	m.input.SetValue(value)
	m.input.CursorEnd()
}

// storeInput copies the input into the wizard draft. The date is masked as
// it is typed.
func (m *timelineModel) storeInput() {
	v := m.input.Value()
	switch m.wizard.Step() {
	case wizard.StepDate:
		masked := m.wizard.SetDate(v)
		if masked != v {
			m.input.SetValue(masked)
			m.input.CursorEnd()
		}
		m.dateHint = nil
		if len(masked) == len(wizard.DateLayout) {
			m.dateHint = m.wizard.Validate(wizard.StepDate)
		}
	case wizard.StepTitle:
		m.wizard.SetTitle(v)
	case wizard.StepDescription:
		m.wizard.SetDescription(v)
	case wizard.StepLocation:
		m.wizard.SetLocation(v)
	case wizard.StepImage:
		m.imageErr = nil
	}
}

func (m *timelineModel) handleWizardKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.wizardKeys.Quit):
		return tea.Quit

	case key.Matches(msg, m.wizardKeys.Cancel):
		m.wizard.Close()
		m.input.Blur()
		return nil

	case m.wizard.Submitting():
		return nil

	case key.Matches(msg, m.wizardKeys.Next):
		return m.advance()

	case key.Matches(msg, m.wizardKeys.Back):
		m.wizard.GoBack()
		m.loadStep()
		return nil

	case key.Matches(msg, m.wizardKeys.Jump):
		s := msg.String()
		target := wizard.Step(s[len(s)-1] - '1')
		if err := m.wizard.GoToStep(m.ctx, target); err != nil {
			m.logger.Debug("wizard jump stopped", "target", target, "error", err)
		}
		m.loadStep()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.storeInput()
	return cmd
}

// advance validates the current step and moves on. The image step selects
// the typed file and submits in the background.
func (m *timelineModel) advance() tea.Cmd {
	if m.wizard.Step().Last() {
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			m.wizard.ClearImage()
		} else if err := m.wizard.SelectImage(expandHome(path)); err != nil {
			m.imageErr = err
			return nil
		}
		return m.submit()
	}

	if err := m.wizard.GoNext(m.ctx); err != nil {
		return nil
	}
	m.loadStep()
	return nil
}

func (m *timelineModel) submit() tea.Cmd {
	ctx, w := m.ctx, m.wizard
	return func() tea.Msg {
		saved, err := w.Submit(ctx)
		return submitDoneMsg{memory: saved, err: err}
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
