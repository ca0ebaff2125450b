package service

import (
	"context"
	"time"

	"github.com/wricardo/tile-grid-game/game/engine"
)

// GameService defines all board-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Tile Operations
	InsertTile(ctx context.Context, sessionID string, x, y, value int) (*TileResult, error)
	RemoveTile(ctx context.Context, sessionID string, x, y int) (*TileResult, error)
	SpawnTile(ctx context.Context, sessionID string) (*TileResult, error)
	Reset(ctx context.Context, sessionID string) (*GridView, error)

	// Board State
	GetGrid(ctx context.Context, sessionID string) (*GridView, error)
	GetAvailableCells(ctx context.Context, sessionID string, row *int) (*AvailableCellsResult, error)
	GetCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error)
	GetHints(ctx context.Context, sessionID string) (*engine.Hints, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.BoardConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.BoardConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.BoardConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles board configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.BoardConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.BoardConfig
	SaveConfig(name string, config *engine.BoardConfig) error
}

// Session represents an active board session
type Session struct {
	ID             string
	Engine         engine.Engine
	Config         *engine.BoardConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
