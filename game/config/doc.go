// Package config manages the board presets available to new sessions.
//
// Presets live in a single directory as JSON (.json) or YAML (.yaml, .yml)
// files. Each file decodes into an engine.BoardConfig:
//
//	{
//	  "name": "classic",
//	  "description": "Classic 4x4 board",
//	  "grid_size": 4,
//	  "start_tiles": 2,
//	  "four_probability": 0.1
//	}
//
// The file name without its extension is the config ID used when creating
// sessions. Loaded presets are cached. The default preset is "classic" when
// present, otherwise the first valid preset in the directory, otherwise a
// built-in 4x4 board.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	boardConfig, err := manager.LoadConfig("big")
//	defaultConfig := manager.GetDefault()
//	presets, err := manager.ListConfigs()
package config
