package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/tile-grid-game/game/engine"
)

func createValidConfig() *engine.BoardConfig {
	return &engine.BoardConfig{
		Name:            "Test Config",
		Description:     "Test configuration",
		GridSize:        4,
		StartTiles:      2,
		FourProbability: 0.1,
		Messages: engine.BoardMessages{
			Welcome:   "Welcome!",
			BoardFull: "Full!",
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.BoardConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRawFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()

		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic to be the default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in board", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}

		defaultConfig := manager.GetDefault()
		if defaultConfig == nil {
			t.Fatal("Expected default config to be available")
		}
		if defaultConfig.GridSize != engine.DefaultGridSize {
			t.Errorf("Expected built-in grid size %d, got %d", engine.DefaultGridSize, defaultConfig.GridSize)
		}
	})

	t.Run("first preset becomes default without classic", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"zeta", "alpha"} {
			cfg := createValidConfig()
			cfg.Name = name
			writeConfigFile(t, dir, name, cfg)
		}

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "alpha" {
			t.Errorf("Expected alpha as default, got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_SetDefaultSurvivesRefresh(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	big := createValidConfig()
	big.Name = "Big"
	big.GridSize = 8
	writeConfigFile(t, dir, "big", big)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("missing"); err == nil {
		t.Error("Expected error for unknown default")
	}
	if err := manager.SetDefault("big"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Big" {
		t.Fatalf("Expected Big as default, got %q", manager.GetDefault().Name)
	}

	big.Description = "Edited on disk"
	writeConfigFile(t, dir, "big", big)
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}

	def := manager.GetDefault()
	if def.Name != "Big" || def.Description != "Edited on disk" {
		t.Errorf("Expected refreshed Big default, got %q / %q", def.Name, def.Description)
	}
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	writeConfigFile(t, dir, "classic", createValidConfig())

	big := createValidConfig()
	big.Name = "Big"
	big.GridSize = 8
	writeConfigFile(t, dir, "big", big)

	writeRawFile(t, dir, "huge.yaml", `name: Huge
description: Sixteen by sixteen
grid_size: 16
start_tiles: 4
four_probability: 0.25
messages:
  welcome: Good luck
  board_full: No room left
`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("big")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Big" || config.GridSize != 8 {
			t.Errorf("Unexpected config: %+v", config)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("big.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Big" {
			t.Errorf("Expected config name 'Big', got '%s'", config.Name)
		}
	})

	t.Run("load yaml preset", func(t *testing.T) {
		config, err := manager.LoadConfig("huge")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if config.GridSize != 16 || config.StartTiles != 4 || config.FourProbability != 0.25 {
			t.Errorf("Unexpected yaml config: %+v", config)
		}
		if config.Messages.BoardFull != "No room left" {
			t.Errorf("Expected board_full message, got %q", config.Messages.BoardFull)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("big")
		config2, err := manager.LoadConfig("big")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		writeRawFile(t, dir, "invalid.json", `{"name": "Invalid", "description": "x", "grid_size": 1}`)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		writeRawFile(t, dir, "malformed.json", `{"name": "Malformed", invalid json}`)

		_, err := manager.LoadConfig("malformed")
		if err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"classic", "big", "small"} {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, name, config)
	}
	writeRawFile(t, dir, "wide.yml", "name: wide\ndescription: yml preset\ngrid_size: 6\nstart_tiles: 3\n")

	// Ignored: unknown extension, invalid content
	writeRawFile(t, dir, "readme.txt", "readme")
	writeRawFile(t, dir, "broken.json", `{"name": ""}`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	wantIDs := []string{"big", "classic", "small", "wide"}
	if len(configList) != len(wantIDs) {
		t.Fatalf("Expected %d configs, got %d", len(wantIDs), len(configList))
	}
	for i, info := range configList {
		if info.ConfigID != wantIDs[i] {
			t.Errorf("configList[%d].ConfigID = %q, want %q", i, info.ConfigID, wantIDs[i])
		}
	}
	if configList[3].StartTiles != 3 || configList[3].GridSize != 6 {
		t.Errorf("Unexpected yml preset info: %+v", configList[3])
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config := createValidConfig()
	config.Name = "Saved"
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	// Drop the cache so the file is read back
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	loaded, err := manager.LoadConfig("saved")
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Name != "Saved" {
		t.Errorf("Expected name 'Saved', got %q", loaded.Name)
	}

	tests := []struct {
		name   string
		id     string
		config *engine.BoardConfig
	}{
		{"invalid board", "bad", &engine.BoardConfig{Name: "bad", Description: "x", GridSize: 40}},
		{"path traversal", "../escape", createValidConfig()},
		{"empty name", "", createValidConfig()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := manager.SaveConfig(tt.id, tt.config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()

	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.GridSize != 4 {
		t.Errorf("Expected initial grid size 4, got %d", loaded.GridSize)
	}

	config.GridSize = 6
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.GridSize != 6 {
		t.Errorf("Expected reloaded grid size 6, got %d", reloaded.GridSize)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = "Config" + string(rune('0'+i))
		writeConfigFile(t, dir, "config"+string(rune('0'+i)), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			configName := "config" + string(rune('0'+((id%5)+1)))
			if _, err := manager.LoadConfig(configName); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	if manager.Count() < 5 {
		t.Errorf("Expected at least 5 configs in cache, got %d", manager.Count())
	}
}

// ReloadConfig drops a cached preset and reads it from disk again
func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, configID(name))
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}
