package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/tile-grid-game/game/engine"
)

// SessionInfo provides information about a board session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Grid           engine.GridState    `json:"grid"`
	Hints          engine.Hints        `json:"hints"`
	Message        string              `json:"message,omitempty"`
	BoardConfig    *engine.BoardConfig `json:"board_config"`
}

// GridView is the current board of a session
type GridView struct {
	SessionID string           `json:"session_id"`
	Grid      engine.GridState `json:"grid"`
	Hints     engine.Hints     `json:"hints"`
	Message   string           `json:"message,omitempty"`
}

// TileResult contains the result of an insert, remove or spawn
type TileResult struct {
	Success bool              `json:"success"`
	Action  string            `json:"action"`
	Tile    *engine.TileState `json:"tile,omitempty"`
	Grid    engine.GridState  `json:"grid"`
	Hints   engine.Hints      `json:"hints"`
	Message string            `json:"message"`
	Events  []GridEvent       `json:"events,omitempty"`
}

// AvailableCellsResult lists empty cells, optionally restricted to one row
type AvailableCellsResult struct {
	Row            *int              `json:"row,omitempty"`
	Cells          []engine.Position `json:"cells"`
	Count          int               `json:"count"`
	CellsAvailable bool              `json:"cells_available"`
}

// CellInfo describes a single cell
type CellInfo struct {
	Position     engine.Position   `json:"position"`
	WithinBounds bool              `json:"within_bounds"`
	Occupied     bool              `json:"occupied"`
	Tile         *engine.TileState `json:"tile,omitempty"`
}

// GridEvent represents something that happened to a board
type GridEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"` // "insert", "remove", "spawn", "board_full", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

func newGridEvent(eventType, message string, pos engine.Position) GridEvent {
	return GridEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
		Position:  pos,
	}
}

// HistoryOptions configures operation history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated operation history
type HistoryResponse struct {
	Operations      []engine.OperationEntry `json:"operations"`
	TotalOperations int                     `json:"total_operations"`
	Page            int                     `json:"page"`
	PageSize        int                     `json:"page_size"`
	TotalPages      int                     `json:"total_pages"`
	HasNext         bool                    `json:"has_next"`
	HasPrevious     bool                    `json:"has_previous"`
}

// ConfigInfo provides information about a board configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	StartTiles  int    `json:"start_tiles"`
}
