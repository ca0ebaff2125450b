package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/tile-grid-game/game/engine"
	"github.com/wricardo/tile-grid-game/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const defaultConfigID = "classic"

// configExtensions lists the preset file extensions in lookup order
var configExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles board preset loading and caching
type Manager struct {
	configDir     string
	defaultID     string
	defaultConfig *engine.BoardConfig
	configs       map[string]*engine.BoardConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		defaultID: defaultConfigID,
		configs:   make(map[string]*engine.BoardConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// configID strips a known preset extension from name
func configID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range configExtensions {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}

// findConfigFile returns the path of the preset file for name
func (m *Manager) findConfigFile(name string) (string, error) {
	if id := configID(name); id != name {
		path := filepath.Join(m.configDir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", ErrConfigNotFound
			}
			return "", err
		}
		return path, nil
	}

	for _, ext := range configExtensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig loads a configuration by ID, with or without its extension
func (m *Manager) LoadConfig(name string) (*engine.BoardConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	configPath, err := m.findConfigFile(name)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to locate config file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.DecodeBoardConfig(configPath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateBoardConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all valid presets, sorted by config ID
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := configID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			GridSize:    config.GridSize,
			StartTiles:  config.StartTiles,
		})
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.BoardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = configID(name)
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk.
// A default chosen with SetDefault survives the refresh while its file exists.
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.BoardConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// Count returns the number of cached presets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

func (m *Manager) loadDefaultConfig() error {
	m.mu.RLock()
	id := m.defaultID
	m.mu.RUnlock()

	config, err := m.LoadConfig(id)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = engine.DefaultBoardConfig()
		} else if config, err = m.LoadConfig(configs[0].Filename); err != nil {
			config = engine.DefaultBoardConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates a configuration and writes it to disk as JSON
func (m *Manager) SaveConfig(name string, config *engine.BoardConfig) error {
	if err := engine.ValidateBoardConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	configPath := filepath.Join(m.configDir, id+".json")

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}
