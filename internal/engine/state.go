package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/position"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

const stateVersion = 1

// State is the JSON dump written by SaveState. Saving and loading is an
// explicit action; nothing is written automatically.
type State struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Tasks   []Task    `json:"tasks"`
}

// SaveState writes every task, with positions, orders and closed trades, to w.
func (b *Bot) SaveState(w io.Writer) error {
	state := State{Version: stateVersion, SavedAt: b.now(), Tasks: b.Tasks()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// LoadState replaces every task with the ones read from r. Tasks keep their
// saved status, so running tasks resume on the next cycle with empty
// indicator history.
func (b *Bot) LoadState(r io.Reader) error {
	state, err := DecodeState(r)
	if err != nil {
		return err
	}

	tasks := make(map[string]*Task, len(state.Tasks))
	order := make([]string, 0, len(state.Tasks))
	analyzers := make(map[string]*indicator.Analyzer, len(state.Tasks))
	for i := range state.Tasks {
		t := state.Tasks[i]
		tasks[t.ID] = &t
		order = append(order, t.ID)
		analyzers[t.ID] = indicator.NewAnalyzer(b.analyzerCfg)
	}

	b.mu.Lock()
	b.tasks = tasks
	b.order = order
	b.analyzers = analyzers
	b.mu.Unlock()

	for _, id := range order {
		b.applyAssetClass(tasks[id].AssetClass, tasks[id].Symbols)
	}

	logger.Infof("Loaded %d tasks from saved state", len(order))
	return nil
}

// DecodeState reads and checks a state dump without touching any bot.
func DecodeState(r io.Reader) (State, error) {
	var state State
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return State{}, fmt.Errorf("failed to decode state: %w", err)
	}
	if state.Version != stateVersion {
		return State{}, fmt.Errorf("unsupported state version %d", state.Version)
	}
	seen := make(map[string]bool, len(state.Tasks))
	for i := range state.Tasks {
		t := &state.Tasks[i]
		if t.ID == "" {
			return State{}, errors.New("state contains a task without an id")
		}
		if seen[t.ID] {
			return State{}, fmt.Errorf("state contains task %s twice", t.ID)
		}
		seen[t.ID] = true
		if t.Account == nil {
			return State{}, fmt.Errorf("task %s has no account", t.ID)
		}
		if t.Account.Positions == nil {
			t.Account.Positions = make(map[string]*position.Position)
		}
		for sym, pos := range t.Account.Positions {
			if pos == nil || pos.Quantity < 0 {
				return State{}, fmt.Errorf("task %s has an invalid %s position", t.ID, sym)
			}
		}
	}
	return state, nil
}

// SaveStateFile writes the state to path through a temporary file.
func (b *Bot) SaveStateFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := b.SaveState(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	logger.Infof("Saved state to %s", path)
	return nil
}

// LoadStateFile reads a state written by SaveStateFile.
func (b *Bot) LoadStateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()
	return b.LoadState(f)
}

// ReadStateFile reads a state dump from path without a bot.
func ReadStateFile(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()
	return DecodeState(f)
}
