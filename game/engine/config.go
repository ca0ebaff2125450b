package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BoardMessages holds the status messages shown to players
type BoardMessages struct {
	Welcome   string `json:"welcome" yaml:"welcome"`
	BoardFull string `json:"board_full" yaml:"board_full"`
}

// BoardConfig represents a board preset loaded from JSON or YAML
type BoardConfig struct {
	Name            string        `json:"name" yaml:"name"`
	Description     string        `json:"description" yaml:"description"`
	GridSize        int           `json:"grid_size" yaml:"grid_size"`
	StartTiles      int           `json:"start_tiles" yaml:"start_tiles"`
	FourProbability float64       `json:"four_probability" yaml:"four_probability"`
	Messages        BoardMessages `json:"messages" yaml:"messages"`
}

// ValidateBoardConfig validates a board configuration
func ValidateBoardConfig(config *BoardConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is required")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}

	cells := config.GridSize * config.GridSize
	if config.StartTiles < 0 || config.StartTiles > cells {
		return fmt.Errorf("config validation: start_tiles must be between 0 and %d, got %d", cells, config.StartTiles)
	}

	if config.FourProbability < 0 || config.FourProbability > 1 {
		return fmt.Errorf("config validation: four_probability must be between 0 and 1, got %g", config.FourProbability)
	}

	return nil
}

// DefaultBoardConfig returns the classic 4x4 preset
func DefaultBoardConfig() *BoardConfig {
	return &BoardConfig{
		Name:            "classic",
		Description:     "Classic 4x4 board with two starting tiles",
		GridSize:        DefaultGridSize,
		StartTiles:      DefaultStartTiles,
		FourProbability: 0.1,
		Messages: BoardMessages{
			Welcome:   "Welcome! Tiles appear in empty cells.",
			BoardFull: "The board is full.",
		},
	}
}

// DecodeBoardConfig parses a preset. Files ending in .yaml or .yml are read as
// YAML, everything else as JSON.
func DecodeBoardConfig(filename string, data []byte) (*BoardConfig, error) {
	var config BoardConfig

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	}

	return &config, nil
}

// LoadBoardConfig loads and validates a board configuration file
func LoadBoardConfig(filename string) (*BoardConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeBoardConfig(filename, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateBoardConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
