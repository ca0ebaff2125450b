package engine

import "errors"

var ErrNoAvailableCells = errors.New("no available cells")

// SpawnValue picks the value of a new tile: HighTileValue with the given
// probability, BaseTileValue otherwise.
func SpawnValue(rng RandomSource, highProbability float64) int {
	if rng.Float64() < highProbability {
		return HighTileValue
	}
	return BaseTileValue
}

// SpawnRandomTile inserts a new tile into a random empty cell
func SpawnRandomTile(g *Grid, rng RandomSource, highProbability float64) (*Tile, error) {
	cell, ok := g.RandomAvailableCell(rng)
	if !ok {
		return nil, ErrNoAvailableCells
	}

	tile := NewTile(cell, SpawnValue(rng, highProbability))
	if err := g.InsertTile(tile); err != nil {
		return nil, err
	}
	return tile, nil
}

// AddStartTiles spawns count tiles, stopping early if the grid fills up
func AddStartTiles(g *Grid, rng RandomSource, highProbability float64, count int) []*Tile {
	tiles := make([]*Tile, 0, count)
	for i := 0; i < count; i++ {
		tile, err := SpawnRandomTile(g, rng, highProbability)
		if err != nil {
			break
		}
		tiles = append(tiles, tile)
	}
	return tiles
}
