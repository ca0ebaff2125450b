package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/wricardo/tile-grid-game/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Grid:           sess.Engine.GetState(),
		Hints:          sess.Engine.GetHints(),
		Message:        sess.Engine.GetMessage(),
		BoardConfig:    sess.Config,
	}
}

func (s *gameServiceImpl) gridView(sess *Session) *GridView {
	return &GridView{
		SessionID: sess.ID,
		Grid:      sess.Engine.GetState(),
		Hints:     sess.Engine.GetHints(),
		Message:   sess.Engine.GetMessage(),
	}
}

// CreateSession creates a new board session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.BoardConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return s.sessionInfo(sess, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// exclusive: UpdateLastAccessed writes LastAccessedAt
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(sess, s.getConfigID(sess.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// InsertTile places a tile with the given value at (x, y)
func (s *gameServiceImpl) InsertTile(ctx context.Context, sessionID string, x, y, value int) (*TileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	pos := engine.Position{X: x, Y: y}
	result := &TileResult{Action: engine.ActionInsert}

	if err := sess.Engine.Insert(pos, value); err != nil {
		result.Message = err.Error()
	} else {
		result.Success = true
		ts := sess.Engine.GetGrid().CellContent(pos).Serialize()
		result.Tile = &ts
		result.Message = sess.Engine.GetMessage()
		result.Events = append(result.Events, newGridEvent("insert", result.Message, pos))
	}

	s.finishTileResult(sess, result)
	return result, nil
}

// RemoveTile clears the tile at (x, y)
func (s *gameServiceImpl) RemoveTile(ctx context.Context, sessionID string, x, y int) (*TileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	pos := engine.Position{X: x, Y: y}
	result := &TileResult{Action: engine.ActionRemove}

	tile, err := sess.Engine.Remove(pos)
	if err != nil {
		result.Message = err.Error()
	} else {
		result.Success = true
		ts := tile.Serialize()
		result.Tile = &ts
		result.Message = sess.Engine.GetMessage()
		result.Events = append(result.Events, newGridEvent("remove", result.Message, pos))
	}

	s.finishTileResult(sess, result)
	return result, nil
}

// SpawnTile places a random tile in a random empty cell
func (s *gameServiceImpl) SpawnTile(ctx context.Context, sessionID string) (*TileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &TileResult{Action: engine.ActionSpawn}

	tile, err := sess.Engine.Spawn()
	switch {
	case errors.Is(err, engine.ErrNoAvailableCells):
		result.Message = sess.Engine.GetMessage()
		if result.Message == "" {
			result.Message = err.Error()
		}
		result.Events = append(result.Events, newGridEvent("board_full", result.Message, engine.Position{}))
	case err != nil:
		result.Message = err.Error()
	default:
		result.Success = true
		ts := tile.Serialize()
		result.Tile = &ts
		result.Message = sess.Engine.GetMessage()
		result.Events = append(result.Events, newGridEvent("spawn", fmt.Sprintf("Spawned %d at (%d,%d)", tile.Value, tile.Position.X, tile.Position.Y), tile.Position))
		if !sess.Engine.GetGrid().CellsAvailable() {
			result.Events = append(result.Events, newGridEvent("board_full", "No available cells remain", tile.Position))
		}
	}

	s.finishTileResult(sess, result)
	return result, nil
}

func (s *gameServiceImpl) finishTileResult(sess *Session, result *TileResult) {
	result.Grid = sess.Engine.GetState()
	result.Hints = sess.Engine.GetHints()

	if err := s.sessions.Save(sess.ID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sess.ID, result.Action, err)
	}
}

// Reset replaces a session's board with a fresh one
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*GridView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.Reset()

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after reset: %v", sessionID, err)
	}

	return s.gridView(sess), nil
}

// GetGrid retrieves the current board
func (s *gameServiceImpl) GetGrid(ctx context.Context, sessionID string) (*GridView, error) {
	// exclusive: UpdateLastAccessed writes LastAccessedAt
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.gridView(sess), nil
}

// GetAvailableCells lists empty cells, restricted to one row when row is set
func (s *gameServiceImpl) GetAvailableCells(ctx context.Context, sessionID string, row *int) (*AvailableCellsResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	grid := sess.Engine.GetGrid()
	var cells []engine.Position
	if row != nil {
		cells = grid.AvailableCellsInRow(*row)
	} else {
		cells = grid.AvailableCells()
	}
	if cells == nil {
		cells = []engine.Position{}
	}

	return &AvailableCellsResult{
		Row:            row,
		Cells:          cells,
		Count:          len(cells),
		CellsAvailable: grid.CellsAvailable(),
	}, nil
}

// GetCell describes the cell at (x, y). Out-of-bounds cells are reported, not rejected.
func (s *gameServiceImpl) GetCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	grid := sess.Engine.GetGrid()
	pos := engine.Position{X: x, Y: y}
	info := &CellInfo{
		Position:     pos,
		WithinBounds: grid.WithinBounds(pos),
		Occupied:     grid.CellOccupied(pos),
	}
	if tile := grid.CellContent(pos); tile != nil {
		ts := tile.Serialize()
		info.Tile = &ts
	}

	return info, nil
}

// GetHints returns the lookahead predicates for a session's board
func (s *gameServiceImpl) GetHints(ctx context.Context, sessionID string) (*engine.Hints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	hints := sess.Engine.GetHints()
	return &hints, nil
}

// GetHistory returns paginated operation history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var ops []engine.OperationEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			ops = append(ops, history[i])
		}
	} else if start < total {
		ops = history[start:end]
	}

	if ops == nil {
		ops = []engine.OperationEntry{}
	}

	return &HistoryResponse{
		Operations:      ops,
		TotalOperations: total,
		Page:            opts.Page,
		PageSize:        opts.Limit,
		TotalPages:      totalPages,
		HasNext:         opts.Page < totalPages,
		HasPrevious:     opts.Page > 1,
	}, nil
}

// ListConfigs returns available board configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific board configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a board configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error {
	return s.configs.SaveConfig(configName, config)
}
