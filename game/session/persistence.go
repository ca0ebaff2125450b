package session

import (
	"fmt"
	"time"

	"github.com/wricardo/tile-grid-game/game/engine"
	"github.com/wricardo/tile-grid-game/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session, shared by every backend
type PersistedSessionData struct {
	ID             string                  `json:"id"`
	ConfigName     string                  `json:"config_name"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessedAt time.Time               `json:"last_accessed_at"`
	BoardConfig    *engine.BoardConfig     `json:"board_config,omitempty"`
	Grid           engine.GridState        `json:"grid"`
	History        []engine.OperationEntry `json:"history"`
}

// newPersistedSessionData snapshots a session for storage
func newPersistedSessionData(session *service.Session, configs service.ConfigManager) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	configID, err := configIDFromName(configs, session.Config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get config ID: %w", err)
	}

	return &PersistedSessionData{
		ID:             session.ID,
		ConfigName:     configID, // Store config ID, not display name
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		BoardConfig:    session.Config,
		Grid:           session.Engine.GetState(),
		History:        session.Engine.GetHistory(),
	}, nil
}

// restore rebuilds a live session. The stored board config wins over the
// preset so sessions survive preset edits.
func (data *PersistedSessionData) restore(configs service.ConfigManager) (*service.Session, error) {
	boardConfig := data.BoardConfig
	if boardConfig == nil {
		if configs == nil {
			return nil, fmt.Errorf("no board config stored for session %s", data.ID)
		}
		loaded, err := configs.LoadConfig(data.ConfigName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigName, err)
		}
		boardConfig = loaded
	}

	eng, err := engine.NewEngine(boardConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create board engine: %w", err)
	}

	if err := eng.Restore(data.Grid); err != nil {
		return nil, fmt.Errorf("failed to restore grid: %w", err)
	}
	eng.SetHistory(data.History)

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		Config:         boardConfig,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}

// configIDFromName returns the config ID (filename without extension) for a display name
func configIDFromName(configs service.ConfigManager, displayName string) (string, error) {
	if configs == nil {
		return displayName, nil
	}

	list, err := configs.ListConfigs()
	if err != nil {
		return "", fmt.Errorf("failed to list configs: %w", err)
	}

	for _, config := range list {
		if config.Name == displayName {
			return config.ConfigID, nil
		}
	}

	// If not found, assume the displayName is already the config ID
	return displayName, nil
}
