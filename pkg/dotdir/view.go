package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	viewFile = "view.json"
)

// ViewState is the timeline position restored when the TUI starts again.
type ViewState struct {
	// Year is the last year the user was viewing.
	Year int `json:"year"`

	// Offset is the horizontal scroll offset of the bar row.
	Offset int `json:"offset"`
}

// LoadViewState reads .lena/view.json. Returns nil, nil when no state has
// been saved yet.
func (m *Manager) LoadViewState(overrideDir string) (*ViewState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, viewFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading view state: %w", err)
	}

	state := &ViewState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing view state: %w", err)
	}

	return state, nil
}

// SaveViewState persists state to .lena/view.json.
func (m *Manager) SaveViewState(state *ViewState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil view state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling view state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, viewFile), data, 0o600); err != nil {
		return fmt.Errorf("writing view state: %w", err)
	}

	return nil
}

// ClearViewState removes the view state file. A missing file is not an error.
func (m *Manager) ClearViewState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, viewFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing view state: %w", err)
	}

	return nil
}
