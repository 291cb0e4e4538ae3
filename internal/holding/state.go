package holding

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Position is the persisted form of a held symbol.
type Position struct {
	EntryPrice *float64  `json:"entry_price,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
}

// State is the on-disk holdings file.
type State struct {
	Positions map[string]Position `json:"positions"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// LoadState reads the holdings from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Positions: make(map[string]Position)}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Positions == nil {
		state.Positions = make(map[string]Position)
	}
	return &state, nil
}

// SaveState writes the holdings to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
