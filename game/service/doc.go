// Package service provides the business logic layer for the Tile Grid Game.
//
// The service package implements:
//   - Multi-session board management
//   - Configuration management and loading
//   - Tile insertion, removal and random spawning
//   - Cell and availability queries
//   - Operation history tracking
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level board operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages board preset loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine, providing session isolation, configuration management, and
// serialized access to each board. A Grid has no locking of its own; every
// operation on it goes through this layer.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.InsertTile(ctx, info.ID, 1, 2, 4)
package service
