// Package mcp exposes the tile grid server to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a REST request against a
// running server and the JSON response is rendered as text. No board state lives here.
//
// Tools:
//   - create_session, list_sessions, get_session: session management
//   - get_grid: the board, one line per row
//   - insert_tile, remove_tile, spawn_tile, reset_grid: mutations
//   - available_cells: empty cells, optionally for a single row
//   - describe_cell: bounds and occupancy of one cell
//   - hints: lookahead predicates and per-row availability
//   - history: paginated operation history
//   - list_configs: board presets
//   - board_instructions: rules and coordinate conventions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
