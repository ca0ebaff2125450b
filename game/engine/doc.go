// Package engine provides the core board logic for the Tile Grid Game.
//
// The engine package implements:
//   - A fixed-size square grid of numbered tiles
//   - Cell queries for availability, occupancy and bounds
//   - Random placement of new tiles into empty cells
//   - Serialization of the grid to a plain snapshot and back
//   - Lookahead predicates used by the combine hints
//   - Board configuration validation
//
// Core Types:
//
// Grid owns the cells of a board. Tile is a numbered piece at a Position.
// GridState is the serialized form handed to storage and clients, while
// BoardConfig describes a board preset loaded from JSON or YAML files.
// BoardEngine wraps a Grid with its configuration, a random source and an
// operation history.
//
// Usage:
//
//	grid, err := engine.NewGrid(4)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := grid.InsertTile(engine.NewTile(engine.Position{X: 1, Y: 2}, 4)); err != nil {
//		log.Fatal(err)
//	}
//
//	cell, ok := grid.RandomAvailableCell(engine.NewRandomSource())
//	state := grid.Serialize()
//
// Coordinates:
//
// Cells are addressed by (x, y) with both coordinates in [0, size). Whole-grid
// iteration is x outer ascending, y inner ascending. A "row" is a fixed y.
// Lookups outside the grid never fail; they report no tile.
package engine
