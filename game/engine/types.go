package engine

import "time"

const (
	// Validation constants
	MinGridSize       = 2
	MaxGridSize       = 16
	DefaultGridSize   = 4
	DefaultStartTiles = 2
	MaxHistoryEntries = 1000

	// Values spawned into empty cells
	BaseTileValue = 2
	HighTileValue = 4
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// TileState is the serialized snapshot of a tile
type TileState struct {
	Position Position `json:"position"`
	Value    int      `json:"value"`
}

// GridState is the serialized snapshot of a grid.
// Cells are indexed cells[x][y]; an empty cell is nil.
type GridState struct {
	Size  int            `json:"size"`
	Cells [][]*TileState `json:"cells"`
}

// Operation names recorded in the history
const (
	ActionInsert = "insert"
	ActionRemove = "remove"
	ActionSpawn  = "spawn"
	ActionReset  = "reset"
)

// OperationEntry represents a single tile operation in the history
type OperationEntry struct {
	Action    string   `json:"action"`
	Position  Position `json:"position"`
	Value     int      `json:"value,omitempty"`
	Success   bool     `json:"success"`
	Timestamp int64    `json:"timestamp"`
	OpNumber  int      `json:"op_number"`
}

// Hints summarizes the lookahead predicates and availability of a grid
type Hints struct {
	CombineDiagonally bool  `json:"combine_diagonally"`
	CombineDown       bool  `json:"combine_down"`
	CellsAvailable    bool  `json:"cells_available"`
	AvailableCount    int   `json:"available_count"`
	AvailableByRow    []int `json:"available_by_row"`
}

func newOperationEntry(action string, pos Position, value int, success bool, opNumber int) OperationEntry {
	return OperationEntry{
		Action:    action,
		Position:  pos,
		Value:     value,
		Success:   success,
		Timestamp: time.Now().Unix(),
		OpNumber:  opNumber,
	}
}
