package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidValue = errors.New("tile value must be positive")
	ErrCellEmpty    = errors.New("cell is empty")
)

// Engine provides the main interface for board operations
type Engine interface {
	// Board state
	GetGrid() *Grid
	GetState() GridState
	Restore(state GridState) error
	Reset() GridState
	GetMessage() string

	// Tile operations
	Insert(pos Position, value int) error
	Remove(pos Position) (*Tile, error)
	Spawn() (*Tile, error)

	// Configuration
	GetConfig() *BoardConfig
	SetConfig(config *BoardConfig) error

	// History
	GetHistory() []OperationEntry
	GetLastOperation() *OperationEntry

	// Lookahead
	GetHints() Hints
}

var _ Engine = (*BoardEngine)(nil)

// BoardEngine implements the Engine interface
type BoardEngine struct {
	grid    *Grid
	config  *BoardConfig
	rng     RandomSource
	history []OperationEntry
	message string
}

// NewEngine creates a board engine and places the configured start tiles
func NewEngine(config *BoardConfig, rng RandomSource) (*BoardEngine, error) {
	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRandomSource()
	}

	e := &BoardEngine{
		config:  config,
		rng:     rng,
		history: []OperationEntry{},
	}
	e.Reset()

	return e, nil
}

// GetGrid returns the live grid
func (e *BoardEngine) GetGrid() *Grid {
	return e.grid
}

// GetState returns a serialized snapshot of the grid
func (e *BoardEngine) GetState() GridState {
	return e.grid.Serialize()
}

// Restore replaces the grid with one rebuilt from state (used for persistence loading)
func (e *BoardEngine) Restore(state GridState) error {
	grid, err := NewGridFromState(e.config.GridSize, state)
	if err != nil {
		return fmt.Errorf("failed to restore grid: %w", err)
	}
	e.grid = grid
	return nil
}

// SetHistory replaces the operation history (used for persistence loading)
func (e *BoardEngine) SetHistory(history []OperationEntry) {
	if history == nil {
		history = []OperationEntry{}
	}
	e.history = history
}

// Reset replaces the grid with a fresh one holding the start tiles.
// The operation history is cumulative and survives resets.
func (e *BoardEngine) Reset() GridState {
	// Size was validated with the config, so this cannot fail
	grid, _ := NewGrid(e.config.GridSize)
	e.grid = grid

	for _, tile := range AddStartTiles(e.grid, e.rng, e.config.FourProbability, e.config.StartTiles) {
		e.record(ActionSpawn, tile.Position, tile.Value, true)
	}
	e.record(ActionReset, Position{}, 0, true)
	e.message = e.config.Messages.Welcome

	return e.grid.Serialize()
}

// GetMessage returns the latest status message
func (e *BoardEngine) GetMessage() string {
	return e.message
}

// Insert places a new tile with the given value
func (e *BoardEngine) Insert(pos Position, value int) error {
	if value <= 0 {
		e.record(ActionInsert, pos, value, false)
		return fmt.Errorf("%w: got %d", ErrInvalidValue, value)
	}

	if err := e.grid.InsertTile(NewTile(pos, value)); err != nil {
		e.record(ActionInsert, pos, value, false)
		return err
	}

	e.record(ActionInsert, pos, value, true)
	e.message = fmt.Sprintf("Placed %d at (%d,%d)", value, pos.X, pos.Y)
	return nil
}

// Remove clears the tile at pos and returns it
func (e *BoardEngine) Remove(pos Position) (*Tile, error) {
	tile := e.grid.CellContent(pos)
	if tile == nil {
		e.record(ActionRemove, pos, 0, false)
		if !e.grid.WithinBounds(pos) {
			return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.X, pos.Y)
		}
		return nil, fmt.Errorf("%w at (%d,%d)", ErrCellEmpty, pos.X, pos.Y)
	}

	if _, err := e.grid.ClearCell(pos); err != nil {
		e.record(ActionRemove, pos, tile.Value, false)
		return nil, err
	}

	e.record(ActionRemove, pos, tile.Value, true)
	e.message = fmt.Sprintf("Removed %d from (%d,%d)", tile.Value, pos.X, pos.Y)
	return tile, nil
}

// Spawn places a random tile in a random empty cell
func (e *BoardEngine) Spawn() (*Tile, error) {
	tile, err := SpawnRandomTile(e.grid, e.rng, e.config.FourProbability)
	if err != nil {
		e.record(ActionSpawn, Position{}, 0, false)
		e.message = e.config.Messages.BoardFull
		return nil, err
	}

	e.record(ActionSpawn, tile.Position, tile.Value, true)
	e.message = fmt.Sprintf("Spawned %d at (%d,%d)", tile.Value, tile.Position.X, tile.Position.Y)
	if !e.grid.CellsAvailable() && e.config.Messages.BoardFull != "" {
		e.message = e.config.Messages.BoardFull
	}
	return tile, nil
}

// GetConfig returns the current board configuration
func (e *BoardEngine) GetConfig() *BoardConfig {
	return e.config
}

// SetConfig sets a new board configuration and resets the grid
func (e *BoardEngine) SetConfig(config *BoardConfig) error {
	if err := ValidateBoardConfig(config); err != nil {
		return err
	}

	e.config = config
	e.Reset()
	return nil
}

// GetHistory returns the complete operation history
func (e *BoardEngine) GetHistory() []OperationEntry {
	return e.history
}

// GetLastOperation returns the last operation, or nil if there is none
func (e *BoardEngine) GetLastOperation() *OperationEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// GetHints returns the lookahead predicates for the current grid
func (e *BoardEngine) GetHints() Hints {
	return e.grid.Hints()
}

func (e *BoardEngine) record(action string, pos Position, value int, success bool) {
	opNumber := 1
	if n := len(e.history); n > 0 {
		opNumber = e.history[n-1].OpNumber + 1
	}
	e.history = append(e.history, newOperationEntry(action, pos, value, success, opNumber))

	// Keep the newest entries only
	if len(e.history) > MaxHistoryEntries {
		e.history = e.history[len(e.history)-MaxHistoryEntries:]
	}
}
